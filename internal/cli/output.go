package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/types"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure, unknown id, malformed import
	ExitCommandError = 2 // Bad flags, unreadable config, storage unavailable
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text, JSON or YAML.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print writes data in the configured format. text renders the
// human-readable form and is only called for FormatText.
func (f *OutputFormatter) Print(data any, text func(w io.Writer)) error {
	switch f.Format {
	case FormatJSON:
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(f.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		text(f.Writer)
		return nil
	}
}

// ── text renderers ──────────────────────────────────────────────────────────

func writeStudent(w io.Writer, s types.Student) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", s.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", s.Name)
	fmt.Fprintf(tw, "Email:\t%s\n", s.Email)
	fmt.Fprintf(tw, "Roll:\t%s\n", s.Roll)
	fmt.Fprintf(tw, "Class:\t%s\n", s.ClassName)
	if s.Notes != "" {
		fmt.Fprintf(tw, "Notes:\t%s\n", s.Notes)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", s.CreatedAt.Local().Format("2006-01-02 15:04"))
	if s.UpdatedAt != nil {
		fmt.Fprintf(tw, "Updated:\t%s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func writePage(w io.Writer, p query.Page) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No students found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLL\tCLASS")
	for _, s := range p.Students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Email, s.Roll, s.ClassName)
	}
	tw.Flush()
	fmt.Fprintf(w, "Page %d of %d (%d students)\n", p.Page, p.Pages, p.Total)
}

func writeErrors(w io.Writer, errs []string) {
	fmt.Fprintln(w, "The student was not saved:")
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}

func writeReport(w io.Writer, r app.ImportReport) {
	fmt.Fprintf(w, "Imported %d of %d rows (%d duplicates, %d rejected)\n",
		r.Added, r.Rows, r.Duplicates, len(r.Rejected))
	for _, rej := range r.Rejected {
		fmt.Fprintf(w, "  line %d: %s\n", rej.Line, strings.Join(rej.Reasons, "; "))
	}
}
