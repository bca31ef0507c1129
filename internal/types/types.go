// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// the codecs, the record store, the query pipeline and the handlers can
// all import types without depending on each other.
package types

import "time"

// Student represents one stored student record.
//
// Struct tags:
//
//  1. json:"..."  the shape of the record inside the persisted blob and
//     in HTTP responses. UpdatedAt is a pointer with omitempty so a record
//     that was never edited carries no "updatedAt" key at all.
//
//  2. yaml:"..."  the same names for the command line tool's yaml output.
//
//  3. The validation rules live on StudentInput, not here. A Student is
//     only ever built from an input that already passed validation.
type Student struct {
	ID        string     `json:"id"                  yaml:"id"`
	Name      string     `json:"name"                yaml:"name"`
	Email     string     `json:"email"               yaml:"email"`
	Roll      string     `json:"roll"                yaml:"roll"`
	ClassName string     `json:"className"           yaml:"className"`
	Notes     string     `json:"notes"               yaml:"notes"`
	CreatedAt time.Time  `json:"createdAt"           yaml:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" yaml:"updatedAt,omitempty"`
}

// StudentInput carries the mutable fields of a student: what a user types
// into the form, what an HTTP client posts, or what a CSV row maps to.
//
// The validate:"..." tags are custom rules registered by package validate.
type StudentInput struct {
	Name      string `json:"name"      validate:"trimmed_min=2"`
	Email     string `json:"email"     validate:"simple_email"`
	Roll      string `json:"roll"      validate:"roll"`
	ClassName string `json:"className" validate:"trimmed_required"`
	Notes     string `json:"notes"`
}

// Input returns the mutable fields of s.
func (s Student) Input() StudentInput {
	return StudentInput{
		Name:      s.Name,
		Email:     s.Email,
		Roll:      s.Roll,
		ClassName: s.ClassName,
		Notes:     s.Notes,
	}
}

// DedupKey identifies a student for import de-duplication: "roll::email".
func (s StudentInput) DedupKey() string {
	return s.Roll + "::" + s.Email
}
