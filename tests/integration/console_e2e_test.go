package integration_test

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ssis-app/console/internal/api"
	"github.com/ssis-app/console/internal/controller"
	"github.com/ssis-app/console/internal/record"
)

// sisServer is an in-memory stand-in for the Flask SIS backend: list with
// sort/search parameters, single-record reads, and CRUD with rename support
// on the college code.
type sisServer struct {
	mu       sync.Mutex
	colleges map[string]string // code -> name
	programs map[string][2]string
}

func newSISServer() *sisServer {
	return &sisServer{
		colleges: map[string]string{},
		programs: map[string][2]string{},
	}
}

func (s *sisServer) app() *fiber.App {
	app := fiber.New()

	app.Get("/colleges", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()

		search := strings.ToLower(c.Query("search"))
		codes := make([]string, 0, len(s.colleges))
		for code, name := range s.colleges {
			if search != "" && !strings.Contains(strings.ToLower(code), search) &&
				!strings.Contains(strings.ToLower(name), search) {
				continue
			}
			codes = append(codes, code)
		}
		sort.Strings(codes)
		if c.Query("sort") == "desc" {
			for i, j := 0, len(codes)-1; i < j; i, j = i+1, j-1 {
				codes[i], codes[j] = codes[j], codes[i]
			}
		}

		out := make([]fiber.Map, 0, len(codes))
		for _, code := range codes {
			out = append(out, fiber.Map{"code": code, "name": s.colleges[code]})
		}
		return c.JSON(out)
	})

	app.Get("/colleges/:code", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		name, ok := s.colleges[c.Params("code")]
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "College not found"})
		}
		return c.JSON(fiber.Map{"code": c.Params("code"), "name": name})
	})

	app.Post("/colleges", func(c *fiber.Ctx) error {
		var body struct{ Code, Name string }
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, exists := s.colleges[body.Code]; exists {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "College code already exists"})
		}
		s.colleges[body.Code] = body.Name
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "College added successfully"})
	})

	app.Put("/colleges/:code", func(c *fiber.Ctx) error {
		var body struct{ Code, Name string }
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		original := c.Params("code")
		if _, ok := s.colleges[original]; !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "College not found"})
		}
		delete(s.colleges, original)
		s.colleges[body.Code] = body.Name
		return c.JSON(fiber.Map{"message": "College updated successfully"})
	})

	app.Delete("/colleges/:code", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.colleges[c.Params("code")]; !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "College not found"})
		}
		delete(s.colleges, c.Params("code"))
		return c.JSON(fiber.Map{"message": "College deleted successfully"})
	})

	// Programs store the parent college under the wire field college but list
	// it back out as collegeCode, mirroring the backend's asymmetry.
	app.Get("/programs", func(c *fiber.Ctx) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		codes := make([]string, 0, len(s.programs))
		for code := range s.programs {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		out := make([]fiber.Map, 0, len(codes))
		for _, code := range codes {
			entry := s.programs[code]
			out = append(out, fiber.Map{"code": code, "name": entry[0], "collegeCode": entry[1]})
		}
		return c.JSON(out)
	})

	app.Post("/programs", func(c *fiber.Ctx) error {
		var body struct{ Code, Name, College string }
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if body.College == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "College code does not exist"})
		}
		s.programs[body.Code] = [2]string{body.Name, body.College}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Program added successfully"})
	})

	return app
}

func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return "http://" + ln.Addr().String()
}

func TestCollegeCreateFlow(t *testing.T) {
	server := newSISServer()
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(300 * time.Millisecond)
	list := controller.NewList(api.EntityColleges, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, modal.OpenForAdd(record.KindCollege))

	// Typing a lowercase code lands uppercased in the buffer.
	modal.SetField("code", "eng")
	modal.SetField("name", "College of Engineering")
	require.Equal(t, "ENG", modal.Field("code"))

	submitted, err := modal.Submit(func(payload any, originalID string) error {
		require.Empty(t, originalID)
		return list.Create(ctx, payload)
	})
	require.NoError(t, err)
	require.True(t, submitted)
	require.Equal(t, controller.ModalClosed, modal.State())

	// The follow-up fetch replaced the collection with the server's list.
	records := list.Records()
	require.Len(t, records, 1)
	require.Equal(t, "ENG", records[0].College.Code)

	current := notifier.Current()
	require.NotNil(t, current)
	require.Equal(t, controller.LevelSuccess, current.Level)
	require.Equal(t, "College added successfully!", current.Message)

	// Auto-dismissed after the TTL.
	require.Eventually(t, func() bool {
		return notifier.Current() == nil
	}, time.Second, 10*time.Millisecond)
}

func TestCollegeRenameFlow(t *testing.T) {
	server := newSISServer()
	server.colleges["CCS"] = "College of Computer Studies"
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	list := controller.NewList(api.EntityColleges, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	list.Fetch(ctx)
	row := list.PageRecords()[0]

	// Edit fetches a fresh copy of the row before seeding the buffer.
	require.NoError(t, modal.OpenForEdit(row, func(id string) (record.Record, error) {
		return list.FetchSingle(ctx, id)
	}))

	modal.SetField("code", "cns")
	modal.SetField("name", "College of Natural Sciences")

	submitted, err := modal.Submit(func(payload any, originalID string) error {
		return list.Update(ctx, payload, originalID)
	})
	require.NoError(t, err)
	require.True(t, submitted)

	records := list.Records()
	require.Len(t, records, 1)
	require.Equal(t, "CNS", records[0].College.Code)
	require.Equal(t, "College updated successfully!", notifier.Current().Message)
}

func TestCollegeDeleteFlow(t *testing.T) {
	server := newSISServer()
	server.colleges["CCS"] = "College of Computer Studies"
	server.colleges["ENG"] = "College of Engineering"
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	list := controller.NewList(api.EntityColleges, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	list.Fetch(ctx)
	require.Len(t, list.Records(), 2)

	row := list.PageRecords()[0] // CCS sorts first
	require.NoError(t, modal.RequestDelete(row))
	require.NoError(t, modal.ConfirmDelete(func(rec record.Record) error {
		return list.Delete(ctx, rec)
	}))

	require.Len(t, list.Records(), 1)
	require.Equal(t, "ENG", list.Records()[0].College.Code)
	require.Equal(t, "College deleted successfully!", notifier.Current().Message)
}

func TestDuplicateCollegeSurfacesServerError(t *testing.T) {
	server := newSISServer()
	server.colleges["ENG"] = "College of Engineering"
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	list := controller.NewList(api.EntityColleges, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	list.Fetch(ctx)

	require.NoError(t, modal.OpenForAdd(record.KindCollege))
	modal.SetField("code", "eng")
	modal.SetField("name", "Engineering Again")

	submitted, err := modal.Submit(func(payload any, originalID string) error {
		return list.Create(ctx, payload)
	})
	require.False(t, submitted)
	require.EqualError(t, err, "College code already exists")
	require.Equal(t, controller.ModalEditing, modal.State())

	current := notifier.Current()
	require.NotNil(t, current)
	require.Equal(t, controller.LevelError, current.Level)
	require.Equal(t, "College code already exists", current.Message)
}

func TestProgramWireTranslationRoundTrip(t *testing.T) {
	server := newSISServer()
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	list := controller.NewList(api.EntityPrograms, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, modal.OpenForAdd(record.KindProgram))
	modal.SetField("code", "bscs")
	modal.SetField("name", "Computer Science")
	modal.SetField("collegeCode", "CCS")

	submitted, err := modal.Submit(func(payload any, originalID string) error {
		return list.Create(ctx, payload)
	})
	require.NoError(t, err)
	require.True(t, submitted)

	// The UI collegeCode went out as the wire field college and came back as
	// collegeCode in the list.
	records := list.Records()
	require.Len(t, records, 1)
	require.Equal(t, record.KindProgram, records[0].Kind)
	require.Equal(t, "CCS", records[0].Program.CollegeCode)
}

func TestDebouncedSearchAgainstServer(t *testing.T) {
	server := newSISServer()
	server.colleges["CCS"] = "College of Computer Studies"
	server.colleges["ENG"] = "College of Engineering"
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	list := controller.NewList(api.EntityColleges, client, notifier, 15*time.Millisecond, zerolog.Nop())

	ctx := context.Background()
	list.Fetch(ctx)
	require.Len(t, list.Records(), 2)

	list.SetSearchText("e")
	list.SetSearchText("en")
	list.SetSearchText("eng")

	require.Eventually(t, func() bool {
		records := list.Records()
		return len(records) == 1 && records[0].College.Code == "ENG"
	}, time.Second, 10*time.Millisecond)
}

func TestProgramCollegePickListFromLiveColleges(t *testing.T) {
	server := newSISServer()
	server.colleges["CCS"] = "College of Computer Studies"
	server.colleges["ENG"] = "College of Engineering"
	base := startServer(t, server.app())

	client := api.NewClient(base, "", 5*time.Second, zerolog.Nop())
	notifier := controller.NewNotifier(time.Minute)
	programs := controller.NewList(api.EntityPrograms, client, notifier, 10*time.Millisecond, zerolog.Nop())
	colleges := controller.NewList(api.EntityColleges, client, notifier, 10*time.Millisecond, zerolog.Nop())
	modal := controller.NewModal(zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, modal.OpenForAdd(record.KindProgram))

	colleges.Fetch(ctx)
	modal.SetOptions("collegeCode", colleges.IdentityOptions())
	require.Equal(t, []string{"CCS", "ENG"}, modal.Options("collegeCode"))

	// A college absent from the live list cannot be chosen.
	modal.SetField("collegeCode", "XYZ")
	require.Empty(t, modal.Field("collegeCode"))

	modal.SetField("code", "bscs")
	modal.SetField("name", "Computer Science")
	modal.SetField("collegeCode", "ccs")
	require.Equal(t, "CCS", modal.Field("collegeCode"))

	submitted, err := modal.Submit(func(payload any, originalID string) error {
		return programs.Create(ctx, payload)
	})
	require.NoError(t, err)
	require.True(t, submitted)

	records := programs.Records()
	require.Len(t, records, 1)
	require.Equal(t, "CCS", records[0].Program.CollegeCode)
}
