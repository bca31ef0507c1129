// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client (except
// the export downloads). Rather than repeating the same three lines (set
// header, set status, encode JSON) in every handler, we centralise them
// here.
package response

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a student, a page, a report...).
// Error responses always look like:
//
//	{ "status": "error", "error": "Name must be at least 2 characters" }
//
// Validation failures also carry the individual messages, in field order:
//
//	{ "status": "error", "error": "...; ...", "errors": ["...", "..."] }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

// Status string constants. Use these instead of raw string literals so
// a typo is caught by the compiler rather than silently sending "eroor".
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape.
// Use this for unexpected errors (storage failures, decode errors, etc.)
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ValidationError turns the validator's messages into a single Response.
// The joined string is for humans; the slice is for clients that render
// one message per field.
func ValidationError(msgs []string) Response {
	return Response{
		Status: StatusError,
		Error:  strings.Join(msgs, "; "),
		Errors: msgs,
	}
}
