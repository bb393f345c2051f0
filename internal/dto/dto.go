// Package dto defines the wire shapes exchanged with the student-information
// REST API. The console edits records through UI field names (collegeCode);
// payload builders translate those to the wire fields the API expects.
package dto

// Query carries the server-side list parameters. It is a plain value so the
// request URL can be built and tested without any network code.
type Query struct {
	Sort        string
	SortBy      string
	Search      string
	SearchField string
}

// StudentPayload is the create/update body for a student.
type StudentPayload struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Gender       string `json:"gender"`
	Course       string `json:"course"`
	YearLevel    int    `json:"yearLevel"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// CollegePayload is the create/update body for a college.
type CollegePayload struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProgramPayload is the create/update body for a program. The parent college
// travels as the wire field college, not the collegeCode name the UI uses.
type ProgramPayload struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	College string `json:"college"`
}

// ErrorResponse is the error envelope returned by the API on non-2xx
// statuses. Its message is surfaced to the user verbatim.
type ErrorResponse struct {
	Error string `json:"error"`
}
