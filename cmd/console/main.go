package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/ssis-app/console/internal/api"
	"github.com/ssis-app/console/internal/config"
	"github.com/ssis-app/console/internal/controller"
	"github.com/ssis-app/console/internal/observability"
	"github.com/ssis-app/console/internal/record"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	level := zerolog.WarnLevel
	if cfg.AppEnv == "development" {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	if cfg.MetricsAddr != "" {
		metrics := fiber.New(fiber.Config{DisableStartupMessage: true})
		metrics.Get("/metrics", observability.MetricsHandler())
		go func() {
			if err := metrics.Listen(cfg.MetricsAddr); err != nil {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics listener stopped")
			}
		}()
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.HTTPTimeout, logger)
	notifier := controller.NewNotifier(cfg.NotificationTTL)
	notifier.OnChange(func(n *controller.Notification) {
		if n != nil {
			fmt.Printf("\n[%s] %s\n", n.Level, n.Message)
		}
	})

	app := &consoleApp{
		cfg:      cfg,
		notifier: notifier,
		modal:    controller.NewModal(logger),
		lists: map[api.Entity]*controller.List{
			api.EntityStudents: controller.NewList(api.EntityStudents, client, notifier, cfg.SearchDebounce, logger),
			api.EntityColleges: controller.NewList(api.EntityColleges, client, notifier, cfg.SearchDebounce, logger),
			api.EntityPrograms: controller.NewList(api.EntityPrograms, client, notifier, cfg.SearchDebounce, logger),
		},
		active: api.EntityStudents,
		out:    os.Stdout,
	}

	fmt.Printf("%s — %s\n", cfg.AppName, cfg.APIBaseURL)
	app.run(context.Background(), bufio.NewScanner(os.Stdin))
}

type consoleApp struct {
	cfg      config.Config
	notifier *controller.Notifier
	modal    *controller.Modal
	lists    map[api.Entity]*controller.List
	active   api.Entity
	out      *os.File
}

func (a *consoleApp) list() *controller.List { return a.lists[a.active] }

func (a *consoleApp) run(ctx context.Context, in *bufio.Scanner) {
	a.list().Fetch(ctx)
	a.render()

	for {
		fmt.Fprintf(a.out, "%s> ", a.prompt())
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")

		if a.modal.State() != controller.ModalClosed {
			a.handleModalCommand(ctx, cmd, arg)
			continue
		}
		if cmd == "quit" || cmd == "exit" {
			return
		}
		a.handleCommand(ctx, cmd, arg)
	}
}

func (a *consoleApp) prompt() string {
	switch a.modal.State() {
	case controller.ModalEditing:
		return strings.ToLower(a.modal.Title())
	case controller.ModalConfirmingDelete:
		return "delete? (yes/no)"
	default:
		return string(a.active)
	}
}

func (a *consoleApp) handleCommand(ctx context.Context, cmd, arg string) {
	switch cmd {
	case "students", "colleges", "programs":
		a.active = api.Entity(cmd)
		a.list().Fetch(ctx)
		a.render()
	case "next":
		a.list().NextPage()
		a.render()
	case "prev":
		a.list().PrevPage()
		a.render()
	case "jump":
		n, err := strconv.Atoi(arg)
		if err != nil || !a.list().JumpToPage(n) {
			fmt.Fprintf(a.out, "Enter 1-%d\n", a.list().TotalPages())
			return
		}
		a.render()
	case "sort":
		a.list().ToggleSort(ctx, arg)
		a.render()
	case "search":
		a.list().SetSearchText(arg)
		a.list().SearchNow(ctx)
		a.render()
	case "field":
		a.list().SetSearchField(arg)
	case "reset":
		a.list().Reset(ctx)
		a.render()
	case "add":
		if err := a.modal.OpenForAdd(kindFor(a.active)); err != nil {
			fmt.Fprintln(a.out, err)
			return
		}
		a.seedPickLists(ctx)
		a.renderModal()
	case "edit":
		a.openEdit(ctx, arg)
	case "del":
		a.openDelete(arg)
	case "help":
		fmt.Fprintln(a.out, "commands: students colleges programs | next prev jump N | sort KEY | search TEXT | field F | reset | add | edit N | del N | quit")
	default:
		fmt.Fprintf(a.out, "unknown command %q (try help)\n", cmd)
	}
}

func (a *consoleApp) handleModalCommand(ctx context.Context, cmd, arg string) {
	if a.modal.State() == controller.ModalConfirmingDelete {
		switch cmd {
		case "yes", "y":
			_ = a.modal.ConfirmDelete(func(rec record.Record) error {
				return a.list().Delete(ctx, rec)
			})
			a.render()
		default:
			a.modal.Cancel()
		}
		return
	}

	switch cmd {
	case "set":
		field, value, _ := strings.Cut(arg, " ")
		a.modal.SetField(field, value)
		a.renderModal()
	case "reset":
		a.modal.ResetForm()
		a.renderModal()
	case "save":
		adding := a.modal.Adding()
		submitted, err := a.modal.Submit(func(payload any, originalID string) error {
			if adding {
				return a.list().Create(ctx, payload)
			}
			return a.list().Update(ctx, payload, originalID)
		})
		if err != nil {
			return
		}
		if !submitted {
			a.renderModal()
			return
		}
		a.render()
	case "cancel":
		a.modal.Cancel()
		a.render()
	default:
		fmt.Fprintln(a.out, "modal commands: set FIELD VALUE | reset | save | cancel")
	}
}

func (a *consoleApp) openEdit(ctx context.Context, arg string) {
	rec, ok := a.rowFromArg(arg)
	if !ok {
		return
	}
	err := a.modal.OpenForEdit(rec, func(id string) (record.Record, error) {
		return a.list().FetchSingle(ctx, id)
	})
	if err != nil {
		fmt.Fprintln(a.out, err)
		return
	}
	a.seedPickLists(ctx)
	a.renderModal()
}

// seedPickLists loads the related collection and constrains the reference
// field to its live identities: programs pick their parent college, students
// pick their course from the existing programs.
func (a *consoleApp) seedPickLists(ctx context.Context) {
	companion, field, ok := companionFor(a.active)
	if !ok {
		return
	}
	source := a.lists[companion]
	source.Fetch(ctx)
	a.modal.SetOptions(field, source.IdentityOptions())
}

func companionFor(entity api.Entity) (api.Entity, string, bool) {
	switch entity {
	case api.EntityPrograms:
		return api.EntityColleges, "collegeCode", true
	case api.EntityStudents:
		return api.EntityPrograms, "course", true
	default:
		return "", "", false
	}
}

func (a *consoleApp) openDelete(arg string) {
	rec, ok := a.rowFromArg(arg)
	if !ok {
		return
	}
	if err := a.modal.RequestDelete(rec); err != nil {
		fmt.Fprintln(a.out, err)
		return
	}
	fmt.Fprintf(a.out, "Are you sure you want to delete this %s?\n", strings.ToLower(rec.Label()))
}

func (a *consoleApp) rowFromArg(arg string) (record.Record, bool) {
	page := a.list().PageRecords()
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(page) {
		fmt.Fprintf(a.out, "Enter 1-%d\n", len(page))
		return record.Record{}, false
	}
	return page[n-1], true
}

func (a *consoleApp) render() {
	l := a.list()
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)

	switch a.active {
	case api.EntityStudents:
		fmt.Fprintln(w, "#\tStudent ID\tFirst Name\tLast Name\tGender\tCourse\tYear Level")
		for i, rec := range l.PageRecords() {
			if rec.Kind != record.KindStudent {
				fmt.Fprintf(w, "%d\t%s\t\t\t\t\t\n", i+1, rec.Label())
				continue
			}
			s := rec.Student
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%d\n", i+1, s.ID, s.FirstName, s.LastName, s.Gender, s.Course, s.YearLevel)
		}
	case api.EntityColleges:
		fmt.Fprintln(w, "#\tCollege Code\tCollege Name")
		for i, rec := range l.PageRecords() {
			if rec.Kind != record.KindCollege {
				fmt.Fprintf(w, "%d\t%s\t\n", i+1, rec.Label())
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, rec.College.Code, rec.College.Name)
		}
	case api.EntityPrograms:
		fmt.Fprintln(w, "#\tProgram Code\tProgram Name\tCollege Code")
		for i, rec := range l.PageRecords() {
			if rec.Kind != record.KindProgram {
				fmt.Fprintf(w, "%d\t%s\t\t\n", i+1, rec.Label())
				continue
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, rec.Program.Code, rec.Program.Name, rec.Program.CollegeCode)
		}
	}
	w.Flush()

	total := l.TotalPages()
	page := l.Page()
	if total == 0 {
		page = 0
	}
	fmt.Fprintf(a.out, "Page %d of %d\n", page, total)
}

func (a *consoleApp) renderModal() {
	fmt.Fprintln(a.out, a.modal.Title())
	for _, field := range fieldsFor(a.modal.Kind()) {
		fmt.Fprintf(a.out, "  %s: %s", field, a.modal.Field(field))
		if opts := a.modal.Options(field); len(opts) > 0 {
			fmt.Fprintf(a.out, "  (choose: %s)", strings.Join(opts, ", "))
		}
		if msg := a.modal.FieldError(field); msg != "" {
			fmt.Fprintf(a.out, "  <- %s", msg)
		}
		fmt.Fprintln(a.out)
	}
}

func kindFor(entity api.Entity) record.Kind {
	switch entity {
	case api.EntityStudents:
		return record.KindStudent
	case api.EntityColleges:
		return record.KindCollege
	case api.EntityPrograms:
		return record.KindProgram
	default:
		return record.KindUnknown
	}
}

func fieldsFor(kind record.Kind) []string {
	switch kind {
	case record.KindStudent:
		return []string{"id", "firstName", "lastName", "gender", "course", "yearLevel"}
	case record.KindCollege:
		return []string{"code", "name"}
	case record.KindProgram:
		return []string{"code", "name", "collegeCode"}
	default:
		return nil
	}
}
