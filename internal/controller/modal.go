package controller

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ssis-app/console/internal/dto"
	"github.com/ssis-app/console/internal/record"
	"github.com/ssis-app/console/internal/validation"
)

// ModalState names the states of the edit/delete modal.
type ModalState string

const (
	ModalClosed           ModalState = "closed"
	ModalEditing          ModalState = "editing"
	ModalSubmitting       ModalState = "submitting"
	ModalConfirmingDelete ModalState = "confirmingDelete"
)

// ErrModalOpen is returned when a modal flow is started while another one is
// active; the edit and delete sub-flows only hand over through the closed
// state.
var ErrModalOpen = errors.New("modal already open")

// SubmitFunc receives the validated, kind-specific payload and the record's
// pre-edit identity (empty for adds).
type SubmitFunc func(payload any, originalID string) error

// DeleteFunc receives the full original record on delete confirmation.
type DeleteFunc func(rec record.Record) error

// FetchSingleFunc refreshes a record from the API before the edit buffer is
// seeded.
type FetchSingleFunc func(id string) (record.Record, error)

// Modal owns the transient edit buffer for one add/edit/delete interaction.
// The buffer lives only while the modal is open and is discarded on close,
// cancel, or submit. Methods are driven from a single event loop and are not
// safe for concurrent use.
type Modal struct {
	state      ModalState
	kind       record.Kind
	original   record.Record
	originalID string
	adding     bool
	buffer     map[string]string
	fieldErrs  map[string]string
	options    map[string][]string
	logger     zerolog.Logger
}

// NewModal constructs a closed modal.
func NewModal(logger zerolog.Logger) *Modal {
	return &Modal{
		state:     ModalClosed,
		kind:      record.KindUnknown,
		buffer:    map[string]string{},
		fieldErrs: map[string]string{},
		options:   map[string][]string{},
		logger:    logger.With().Str("component", "modal").Logger(),
	}
}

// State returns the current modal state.
func (m *Modal) State() ModalState { return m.state }

// Kind returns the record kind the modal is editing.
func (m *Modal) Kind() record.Kind { return m.kind }

// Adding reports whether the open flow is an add form rather than an edit.
func (m *Modal) Adding() bool { return m.adding }

// Field returns the buffered value for a field.
func (m *Modal) Field(name string) string { return m.buffer[name] }

// FieldError returns the pending error message for a field, if any.
func (m *Modal) FieldError(name string) string { return m.fieldErrs[name] }

// Errors returns a copy of the pending field error map.
func (m *Modal) Errors() map[string]string {
	errs := make(map[string]string, len(m.fieldErrs))
	for field, msg := range m.fieldErrs {
		errs[field] = msg
	}
	return errs
}

// Options returns the offered values for a pick-list field, or nil when the
// field is free-form.
func (m *Modal) Options(name string) []string {
	return append([]string(nil), m.options[name]...)
}

// SetOptions constrains a field to a referential pick list, typically the
// live identities of a related collection. Subsequent SetField calls for the
// field only accept one of the offered values.
func (m *Modal) SetOptions(name string, values []string) {
	if m.state != ModalEditing {
		return
	}
	m.options[name] = append([]string(nil), values...)
}

// Title returns the modal heading, degrading to "Record" for rows that could
// not be classified.
func (m *Modal) Title() string {
	if m.adding {
		return "Add New " + m.kind.Label()
	}
	return "Edit " + m.kind.Label()
}

// OpenForAdd opens the modal with a blank buffer for a new record.
func (m *Modal) OpenForAdd(kind record.Kind) error {
	if m.state != ModalClosed {
		return ErrModalOpen
	}

	m.kind = kind
	m.adding = true
	m.original = record.Record{Kind: kind}
	m.originalID = ""
	m.buffer = map[string]string{}
	m.fieldErrs = map[string]string{}
	m.options = map[string][]string{}
	m.state = ModalEditing
	return nil
}

// OpenForEdit seeds the buffer from the row's record. For students and
// colleges a fresh authoritative copy is fetched first when a fetcher is
// provided; a fetch failure keeps the modal closed and is reported to the
// caller as a blocking error.
func (m *Modal) OpenForEdit(rec record.Record, fetch FetchSingleFunc) error {
	if m.state != ModalClosed {
		return ErrModalOpen
	}

	if fetch != nil && (rec.Kind == record.KindStudent || rec.Kind == record.KindCollege) {
		fresh, err := fetch(rec.Identity())
		if err != nil {
			m.logger.Warn().Err(err).Str("id", rec.Identity()).Msg("fetch before edit failed")
			// Shown to the admin as-is, hence the sentence casing.
			return fmt.Errorf("Error fetching data: %w", err)
		}
		rec = fresh
	}

	m.kind = rec.Kind
	m.adding = false
	m.original = rec
	m.originalID = rec.Identity()
	m.buffer = rec.Fields()
	m.fieldErrs = map[string]string{}
	m.options = map[string][]string{}
	m.state = ModalEditing
	return nil
}

// SetField writes one field into the edit buffer, applying the input
// normalization rules. Changing a field clears its pending error immediately
// even when the new value is rejected; full validation re-runs only on
// submit.
func (m *Modal) SetField(name, value string) {
	if m.state != ModalEditing {
		return
	}

	delete(m.fieldErrs, name)

	switch {
	case name == "yearLevel":
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && (n < 1 || n > 5) {
			return
		}
	case name == "id" && m.kind == record.KindStudent:
		value = maskStudentID(value)
	case name == "code" && (m.kind == record.KindCollege || m.kind == record.KindProgram):
		value = strings.ToUpper(value)
	}

	// A field with a pick list only accepts one of the offered values;
	// clearing back to the blank placeholder is always allowed.
	if opts := m.options[name]; len(opts) > 0 && value != "" {
		matched := ""
		for _, opt := range opts {
			if strings.EqualFold(opt, value) {
				matched = opt
				break
			}
		}
		if matched == "" {
			return
		}
		value = matched
	}

	m.buffer[name] = value
}

// maskStudentID applies the live YYYY-NNNN input mask: everything but digits
// and dashes is stripped, a dash is appended after the fourth digit, and the
// result is capped at nine characters.
func maskStudentID(value string) string {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	formatted := b.String()
	if len(formatted) == 4 && !strings.Contains(formatted, "-") {
		formatted += "-"
	}
	if len(formatted) > 9 {
		formatted = formatted[:9]
	}
	return formatted
}

// ResetForm restores the blank add-form buffer and clears field errors.
func (m *Modal) ResetForm() {
	if m.state != ModalEditing || !m.adding {
		return
	}
	m.buffer = map[string]string{}
	m.fieldErrs = map[string]string{}
}

// Submit validates the buffer and, on success, hands the kind-specific
// payload to fn together with the pre-edit identity. Validation failure is a
// guard: the modal stays open in editing state with the field errors set and
// no callback runs. The modal closes only when fn returns nil. The returned
// bool reports whether the payload was submitted.
func (m *Modal) Submit(fn SubmitFunc) (bool, error) {
	if m.state != ModalEditing {
		return false, nil
	}
	if m.kind == record.KindUnknown {
		return false, nil
	}

	if errs := validation.Validate(m.kind, m.buffer); len(errs) > 0 {
		m.fieldErrs = errs
		return false, nil
	}

	payload := m.payload()
	m.state = ModalSubmitting
	if err := fn(payload, m.originalID); err != nil {
		m.state = ModalEditing
		return false, err
	}

	m.close()
	return true, nil
}

// payload builds the wire payload for the buffered kind. Program submissions
// translate the UI field collegeCode to the wire field college.
func (m *Modal) payload() any {
	switch m.kind {
	case record.KindStudent:
		year, _ := strconv.Atoi(strings.TrimSpace(m.buffer["yearLevel"]))
		return dto.StudentPayload{
			ID:           m.buffer["id"],
			FirstName:    m.buffer["firstName"],
			LastName:     m.buffer["lastName"],
			Gender:       m.buffer["gender"],
			Course:       m.buffer["course"],
			YearLevel:    year,
			ProfileImage: m.buffer["profileImage"],
		}
	case record.KindCollege:
		return dto.CollegePayload{
			Code: m.buffer["code"],
			Name: m.buffer["name"],
		}
	case record.KindProgram:
		return dto.ProgramPayload{
			Code:    m.buffer["code"],
			Name:    m.buffer["name"],
			College: m.buffer["collegeCode"],
		}
	default:
		return nil
	}
}

// RequestDelete opens the delete confirmation for a row.
func (m *Modal) RequestDelete(rec record.Record) error {
	if m.state != ModalClosed {
		return ErrModalOpen
	}
	m.kind = rec.Kind
	m.adding = false
	m.original = rec
	m.originalID = rec.Identity()
	m.state = ModalConfirmingDelete
	return nil
}

// ConfirmDelete invokes fn with the full original record and closes the
// modal regardless of the outcome; the caller surfaces any error.
func (m *Modal) ConfirmDelete(fn DeleteFunc) error {
	if m.state != ModalConfirmingDelete {
		return nil
	}
	err := fn(m.original)
	m.close()
	return err
}

// Cancel abandons the open flow and discards the buffer.
func (m *Modal) Cancel() {
	if m.state == ModalClosed || m.state == ModalSubmitting {
		return
	}
	m.close()
}

func (m *Modal) close() {
	m.state = ModalClosed
	m.kind = record.KindUnknown
	m.original = record.Record{}
	m.originalID = ""
	m.adding = false
	m.buffer = map[string]string{}
	m.fieldErrs = map[string]string{}
	m.options = map[string][]string{}
}
