// Package validate checks a candidate student against the record format
// rules and turns every broken rule into a human-readable sentence.
//
// The rules are expressed as go-playground/validator struct tags on
// types.StudentInput. The stock tags do not match our formats exactly
// ("email" accepts far more than name@domain.tld, "min" does not trim),
// so four custom tags are registered once at package init:
//
//	trimmed_min=N     at least N characters after trimming whitespace
//	trimmed_required  non-empty after trimming whitespace
//	simple_email      local@domain.tld, no whitespace, exactly one "@"
//	roll              non-empty, letters, digits and dashes only
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-records/internal/types"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	rollRe  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

// v is shared by every call. A *validator.Validate caches struct metadata
// and is safe for concurrent use once the custom tags are registered.
var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()

	// RegisterValidation only fails on an empty tag name or a nil func,
	// neither of which can happen here.
	_ = val.RegisterValidation("trimmed_min", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= n
	})
	_ = val.RegisterValidation("trimmed_required", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = val.RegisterValidation("simple_email", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	_ = val.RegisterValidation("roll", func(fl validator.FieldLevel) bool {
		return rollRe.MatchString(fl.Field().String())
	})

	return val
}

// Student returns the list of broken rules for in, in field order
// (name, email, roll, class). An empty slice means the input is valid.
// Every rule is checked independently so the caller sees all problems at
// once, not just the first.
func Student(in types.StudentInput) []string {
	err := v.Struct(in)
	if err == nil {
		return []string{}
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		// InvalidValidationError: only possible for a nil or non-struct
		// argument, which the signature rules out.
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return msgs
}

// Valid reports whether in passes every rule.
func Valid(in types.StudentInput) bool {
	return len(Student(in)) == 0
}

// message converts one validator.FieldError into a sentence.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "trimmed_min":
		return fmt.Sprintf("%s must be at least %s characters", label(fe.Field()), fe.Param())
	case "trimmed_required":
		return fmt.Sprintf("%s is required", label(fe.Field()))
	case "simple_email":
		return "Email must look like name@domain.tld"
	case "roll":
		if fe.Value() == "" {
			return "Roll is required"
		}
		return "Roll may only contain letters, digits and dashes"
	default:
		return fmt.Sprintf("%s is invalid", label(fe.Field()))
	}
}

func label(field string) string {
	if field == "ClassName" {
		return "Class"
	}
	return field
}
