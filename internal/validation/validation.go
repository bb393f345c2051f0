// Package validation implements the per-field form validation the edit and
// add modals run on submit. Messages are part of the console's surface;
// tests assert on them verbatim.
package validation

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ssis-app/console/internal/record"
)

var studentIDPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// trimmin behaves like min but on the whitespace-trimmed value, so
	// padding spaces never satisfy a length rule.
	if err := v.RegisterValidation("trimmin", func(fl validator.FieldLevel) bool {
		min, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(strings.TrimSpace(fl.Field().String())) >= min
	}); err != nil {
		panic(err)
	}

	if err := v.RegisterValidation("studentid", func(fl validator.FieldLevel) bool {
		return studentIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}

	return v
}

// Validator reports one failing tag per field, which is all the modal
// displays per input.
type studentForm struct {
	ID        string `form:"id" validate:"required,studentid"`
	FirstName string `form:"firstName" validate:"required,trimmin=2"`
	LastName  string `form:"lastName" validate:"required,trimmin=2"`
	Gender    string `form:"gender" validate:"required,oneof=M F Others"`
	Course    string `form:"course" validate:"required"`
	YearLevel int    `form:"yearLevel" validate:"required,min=1,max=5"`
}

type collegeForm struct {
	Code string `form:"code" validate:"required,trimmin=2"`
	Name string `form:"name" validate:"required,trimmin=3"`
}

type programForm struct {
	Code        string `form:"code" validate:"required,trimmin=2"`
	Name        string `form:"name" validate:"required,trimmin=3"`
	CollegeCode string `form:"collegeCode" validate:"required"`
}

// Validate checks an edit buffer for the given kind and returns a field name
// to message map. An empty map means the buffer may be submitted. Unknown
// kinds validate vacuously; the modal guards submission for those separately.
func Validate(kind record.Kind, buffer map[string]string) map[string]string {
	var form any

	switch kind {
	case record.KindStudent:
		year, _ := strconv.Atoi(strings.TrimSpace(buffer["yearLevel"]))
		form = studentForm{
			ID:        buffer["id"],
			FirstName: buffer["firstName"],
			LastName:  buffer["lastName"],
			Gender:    buffer["gender"],
			Course:    buffer["course"],
			YearLevel: year,
		}
	case record.KindCollege:
		form = collegeForm{Code: buffer["code"], Name: buffer["name"]}
	case record.KindProgram:
		form = programForm{
			Code:        buffer["code"],
			Name:        buffer["name"],
			CollegeCode: buffer["collegeCode"],
		}
	default:
		return map[string]string{}
	}

	errs := map[string]string{}
	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = err.Error()
		return errs
	}

	for _, fe := range fieldErrors {
		errs[fe.Field()] = message(kind, fe.Field(), fe.Tag())
	}
	return errs
}

func message(kind record.Kind, field, tag string) string {
	switch kind {
	case record.KindStudent:
		switch field {
		case "id":
			if tag == "required" {
				return "Student ID is required"
			}
			return "Format must be YYYY-NNNN"
		case "firstName":
			return "First name must be at least 2 characters"
		case "lastName":
			return "Last name must be at least 2 characters"
		case "gender":
			return "Gender is required"
		case "course":
			return "Program is required"
		case "yearLevel":
			return "Year level is required"
		}
	case record.KindCollege:
		switch field {
		case "code":
			if tag == "required" {
				return "College code is required"
			}
			return "College code must be at least 2 characters"
		case "name":
			return "College name must be at least 3 characters"
		}
	case record.KindProgram:
		switch field {
		case "code":
			if tag == "required" {
				return "Program code is required"
			}
			return "Program code must be at least 2 characters"
		case "name":
			return "Program name must be at least 3 characters"
		case "collegeCode":
			return "College is required"
		}
	}
	return field + " is invalid"
}
