package record

import (
	"strconv"
	"strings"
)

// Kind tags the three record shapes the console manages.
type Kind string

const (
	KindStudent Kind = "student"
	KindCollege Kind = "college"
	KindProgram Kind = "program"
	KindUnknown Kind = "unknown"
)

// Label returns the human-readable name used in modal titles and table headers.
func (k Kind) Label() string {
	switch k {
	case KindStudent:
		return "Student"
	case KindCollege:
		return "College"
	case KindProgram:
		return "Program"
	default:
		return "Record"
	}
}

// Student is an enrolled student. ID follows the YYYY-NNNN format and is
// immutable after creation.
type Student struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender"`
	Course       string `json:"course"`
	YearLevel    int    `json:"yearLevel"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// College is identified by its code; renames are supported, so the code is
// mutable and updates carry the pre-edit code separately.
type College struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Program belongs to a college. The list endpoint returns the parent under
// collegeCode while create/update payloads use the wire field college; both
// are normalized to CollegeCode at ingestion.
type Program struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	CollegeCode string `json:"collegeCode"`
}

// Record is the tagged union handed to the modal and list controllers.
// Exactly one of the shape pointers is set for a classified record; unknown
// records keep only the raw wire fields and render with a generic label.
type Record struct {
	Kind    Kind
	Student *Student
	College *College
	Program *Program
	raw     map[string]any
}

// DetectKind classifies an untagged wire object. Predicates are checked in
// priority order so overlapping shapes resolve deterministically: a defined
// firstName always wins, then collegeCode, then code+name without collegeCode.
func DetectKind(fields map[string]any) Kind {
	if _, ok := fields["firstName"]; ok {
		return KindStudent
	}
	if _, ok := fields["collegeCode"]; ok {
		return KindProgram
	}
	_, hasCode := fields["code"]
	_, hasName := fields["name"]
	if hasCode && hasName {
		return KindCollege
	}
	return KindUnknown
}

// Decode is the single conversion point from the untagged wire format into
// the tagged union. Unclassifiable objects come back as KindUnknown
// rather than an error; callers degrade to the generic label.
func Decode(fields map[string]any) Record {
	kind := DetectKind(fields)
	rec := Record{Kind: kind, raw: fields}

	switch kind {
	case KindStudent:
		rec.Student = &Student{
			ID:           stringField(fields, "id"),
			FirstName:    stringField(fields, "firstName"),
			LastName:     stringField(fields, "lastName"),
			Gender:       stringField(fields, "gender"),
			Course:       stringField(fields, "course"),
			YearLevel:    intField(fields, "yearLevel"),
			ProfileImage: stringField(fields, "profileImage"),
		}
	case KindCollege:
		rec.College = &College{
			Code: stringField(fields, "code"),
			Name: stringField(fields, "name"),
		}
	case KindProgram:
		college := stringField(fields, "collegeCode")
		if college == "" {
			college = stringField(fields, "college")
		}
		rec.Program = &Program{
			Code:        stringField(fields, "code"),
			Name:        stringField(fields, "name"),
			CollegeCode: college,
		}
	}

	return rec
}

// DecodeList converts a fetched wire array into tagged records.
func DecodeList(items []map[string]any) []Record {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, Decode(item))
	}
	return records
}

// Label returns the kind name shown in the modal title, falling back to
// "Record" for unclassifiable rows.
func (r Record) Label() string {
	return r.Kind.Label()
}

// Identity returns the value the collaborator API addresses this record by:
// the student ID, or the college/program code.
func (r Record) Identity() string {
	switch r.Kind {
	case KindStudent:
		return r.Student.ID
	case KindCollege:
		return r.College.Code
	case KindProgram:
		return r.Program.Code
	default:
		return ""
	}
}

// Fields flattens the record into the string field map the modal edit buffer
// is seeded from. Unknown records expose nothing editable.
func (r Record) Fields() map[string]string {
	switch r.Kind {
	case KindStudent:
		fields := map[string]string{
			"id":        r.Student.ID,
			"firstName": r.Student.FirstName,
			"lastName":  r.Student.LastName,
			"gender":    r.Student.Gender,
			"course":    r.Student.Course,
		}
		if r.Student.YearLevel != 0 {
			fields["yearLevel"] = strconv.Itoa(r.Student.YearLevel)
		} else {
			fields["yearLevel"] = ""
		}
		if r.Student.ProfileImage != "" {
			fields["profileImage"] = r.Student.ProfileImage
		}
		return fields
	case KindCollege:
		return map[string]string{
			"code": r.College.Code,
			"name": r.College.Name,
		}
	case KindProgram:
		return map[string]string{
			"code":        r.Program.Code,
			"name":        r.Program.Name,
			"collegeCode": r.Program.CollegeCode,
		}
	default:
		return map[string]string{}
	}
}

func stringField(fields map[string]any, key string) string {
	value, ok := fields[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}

func intField(fields map[string]any, key string) int {
	value, ok := fields[key]
	if !ok || value == nil {
		return 0
	}
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
