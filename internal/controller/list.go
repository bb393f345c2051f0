package controller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssis-app/console/internal/api"
	"github.com/ssis-app/console/internal/dto"
	"github.com/ssis-app/console/internal/observability"
	"github.com/ssis-app/console/internal/record"
)

// PageSize is the fixed client-side pagination window.
const PageSize = 10

// SearchFieldAll requests a server-side search across every column.
const SearchFieldAll = "all"

// Service is the slice of the API client the list controller depends on.
type Service interface {
	List(ctx context.Context, entity api.Entity, q dto.Query) ([]record.Record, error)
	Get(ctx context.Context, entity api.Entity, id string) (record.Record, error)
	Create(ctx context.Context, entity api.Entity, payload any) error
	Update(ctx context.Context, entity api.Entity, originalID string, payload any) error
	Delete(ctx context.Context, entity api.Entity, id string) error
}

// DefaultSortKey returns the column an entity's list is ordered by before
// any header has been clicked.
func DefaultSortKey(entity api.Entity) string {
	switch entity {
	case api.EntityStudents:
		return "student_id"
	case api.EntityColleges:
		return "college_code"
	case api.EntityPrograms:
		return "program_code"
	default:
		return "id"
	}
}

// List owns the authoritative collection for one entity together with the
// server query parameters and the client-side page window. The collection is
// only ever replaced wholesale by a successful fetch; create, update and
// delete re-fetch instead of patching locally, so a failed operation leaves
// the last-known-good collection intact.
type List struct {
	entity   api.Entity
	service  Service
	notifier *Notifier
	logger   zerolog.Logger

	mu       sync.Mutex
	records  []record.Record
	query    dto.Query
	page     int
	loading  bool
	fetchSeq uint64

	debounce *Debouncer
}

// NewList constructs a list controller for one entity. Search-text changes
// re-fetch only after the settle window elapses.
func NewList(entity api.Entity, service Service, notifier *Notifier, settle time.Duration, logger zerolog.Logger) *List {
	l := &List{
		entity:   entity,
		service:  service,
		notifier: notifier,
		logger:   logger.With().Str("component", "list").Str("entity", string(entity)).Logger(),
		query: dto.Query{
			Sort:        "asc",
			SortBy:      DefaultSortKey(entity),
			SearchField: SearchFieldAll,
		},
		page: 1,
	}
	l.debounce = NewDebouncer(settle, func() {
		l.Fetch(context.Background())
	})
	return l
}

// Entity returns the collection this controller manages.
func (l *List) Entity() api.Entity { return l.entity }

// Query returns the current server query parameters.
func (l *List) Query() dto.Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Loading reports whether a fetch is in flight.
func (l *List) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Fetch retrieves the collection with the current parameters. A successful
// fetch replaces the collection and resets to page one. Responses overtaken
// by a newer fetch are discarded: the last request issued wins, not the last
// response to arrive.
func (l *List) Fetch(ctx context.Context) {
	l.mu.Lock()
	l.fetchSeq++
	seq := l.fetchSeq
	q := l.query
	l.loading = true
	l.mu.Unlock()

	records, err := l.service.List(ctx, l.entity, q)

	l.mu.Lock()
	if seq != l.fetchSeq {
		l.mu.Unlock()
		observability.StaleResponses().WithLabelValues(string(l.entity)).Inc()
		l.logger.Debug().Uint64("seq", seq).Msg("stale list response discarded")
		return
	}
	l.loading = false
	if err != nil {
		l.mu.Unlock()
		l.logger.Error().Err(err).Msg("list fetch failed")
		l.notifier.Error(err.Error())
		return
	}
	l.records = records
	l.page = 1
	l.mu.Unlock()
}

// ToggleSort flips the sort direction when the already-ascending column is
// clicked again, and sorts ascending on any newly clicked column, then
// re-fetches immediately.
func (l *List) ToggleSort(ctx context.Context, key string) {
	l.mu.Lock()
	direction := "asc"
	if l.query.SortBy == key && l.query.Sort == "asc" {
		direction = "desc"
	}
	l.query.SortBy = key
	l.query.Sort = direction
	l.mu.Unlock()

	l.Fetch(ctx)
}

// SetSearchText stores the search text and schedules a debounced re-fetch.
func (l *List) SetSearchText(text string) {
	l.mu.Lock()
	l.query.Search = text
	l.mu.Unlock()
	l.debounce.Trigger()
}

// SetSearchField selects which column the server searches.
func (l *List) SetSearchField(field string) {
	l.mu.Lock()
	l.query.SearchField = field
	l.mu.Unlock()
}

// SearchNow bypasses the debounce and fetches with the current parameters.
func (l *List) SearchNow(ctx context.Context) {
	l.debounce.Stop()
	l.Fetch(ctx)
}

// Reset restores the default sort and clears the search, then re-fetches.
func (l *List) Reset(ctx context.Context) {
	l.mu.Lock()
	l.query = dto.Query{
		Sort:        "asc",
		SortBy:      DefaultSortKey(l.entity),
		SearchField: SearchFieldAll,
	}
	l.mu.Unlock()

	l.debounce.Stop()
	l.Fetch(ctx)
}

// Records returns a copy of the full fetched collection.
func (l *List) Records() []record.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]record.Record(nil), l.records...)
}

// PageRecords returns a copy of the current page window of the collection.
func (l *List) PageRecords() []record.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := (l.page - 1) * PageSize
	if start >= len(l.records) {
		return nil
	}
	end := start + PageSize
	if end > len(l.records) {
		end = len(l.records)
	}
	return append([]record.Record(nil), l.records[start:end]...)
}

// IdentityOptions returns the identities of the fetched collection, in order.
// A related entity's modal offers these as the pick list for its reference
// field, so the choice is constrained to records that actually exist.
func (l *List) IdentityOptions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.records))
	for _, rec := range l.records {
		if id := rec.Identity(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Page returns the current page number.
func (l *List) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// TotalPages returns the number of client-side pages.
func (l *List) TotalPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPagesLocked()
}

func (l *List) totalPagesLocked() int {
	return (len(l.records) + PageSize - 1) / PageSize
}

// NextPage advances one page; a no-op at the last page.
func (l *List) NextPage() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page < l.totalPagesLocked() {
		l.page++
	}
}

// PrevPage goes back one page; a no-op at the first page.
func (l *List) PrevPage() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page > 1 {
		l.page--
	}
}

// JumpToPage moves to an explicit page and reports whether the target was
// within bounds; out-of-range requests leave the current page unchanged.
func (l *List) JumpToPage(page int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if page < 1 || page > l.totalPagesLocked() {
		return false
	}
	l.page = page
	return true
}

// FetchSingle refreshes one record before editing.
func (l *List) FetchSingle(ctx context.Context, id string) (record.Record, error) {
	return l.service.Get(ctx, l.entity, id)
}

// Create submits a new record and, on acknowledgment, re-fetches the
// collection with the current parameters. The API's error message is shown
// verbatim on failure.
func (l *List) Create(ctx context.Context, payload any) error {
	if err := l.service.Create(ctx, l.entity, payload); err != nil {
		l.notifier.Error(err.Error())
		return err
	}

	l.Fetch(ctx)
	l.notifier.Success(l.label() + " added successfully!")
	return nil
}

// Update submits an edited record against its pre-edit identity and
// re-fetches on acknowledgment.
func (l *List) Update(ctx context.Context, payload any, originalID string) error {
	if err := l.service.Update(ctx, l.entity, originalID, payload); err != nil {
		l.notifier.Error(err.Error())
		return err
	}

	l.Fetch(ctx)
	l.notifier.Success(l.label() + " updated successfully!")
	return nil
}

// Delete removes a record and re-fetches on acknowledgment.
func (l *List) Delete(ctx context.Context, rec record.Record) error {
	if err := l.service.Delete(ctx, l.entity, rec.Identity()); err != nil {
		l.notifier.Error(err.Error())
		return err
	}

	l.Fetch(ctx)
	l.notifier.Success(l.label() + " deleted successfully!")
	return nil
}

func (l *List) label() string {
	switch l.entity {
	case api.EntityStudents:
		return "Student"
	case api.EntityColleges:
		return "College"
	case api.EntityPrograms:
		return "Program"
	default:
		return "Record"
	}
}
