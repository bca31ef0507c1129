// Package app is the command interface every front end talks to.
//
// A Session pairs the shared record store with one user's view state (the
// search text, the sort order, the current page and the record being
// edited). The HTTP handlers build a short-lived Session per request; the
// CLI builds one per invocation. Neither touches records, query or the
// codecs directly for anything a Session can do.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aanand-mishra/student-records/internal/csvcodec"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/records"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/validate"
	"github.com/aanand-mishra/student-records/internal/xlsxcodec"
)

// ErrMalformedImport wraps a workbook that cannot be read at all, so
// callers can tell a bad file from a failed write. CSV text always
// decodes; a bad CSV row is rejected on its own.
var ErrMalformedImport = errors.New("malformed import file")

// Commands is the full set of user actions.
type Commands interface {
	Submit(ctx context.Context, form Form) (Result, error)
	SelectForEdit(id string) (types.Student, bool)
	Delete(ctx context.Context, id string) (bool, error)
	Search(q string)
	Sort(key query.SortKey, dir query.Direction)
	GotoPage(n int)
	View() query.Page
	ExportAll() string
	ExportXLSX(w io.Writer) error
	ImportFrom(ctx context.Context, text string) (ImportReport, error)
	ImportXLSX(ctx context.Context, r io.Reader) (ImportReport, error)
	ClearAll(ctx context.Context, confirmed bool) error
}

// Form is what the user submits. An empty ID creates a student; a
// non-empty ID updates that student.
type Form struct {
	ID string `json:"id,omitempty"`
	types.StudentInput
}

// Result describes the outcome of Submit.
type Result struct {
	// Errors is non-empty when validation failed; nothing was changed.
	Errors []string `json:"errors,omitempty"`
	// Created is true when a new student was added.
	Created bool `json:"created"`
	// NotFound is true when the form named an id that no longer exists.
	NotFound bool          `json:"notFound,omitempty"`
	Student  types.Student `json:"student"`
}

// OK reports whether the submission was stored.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && !r.NotFound
}

// Rejection is one import row that failed validation.
type Rejection struct {
	Line    int      `json:"line"    yaml:"line"`
	Reasons []string `json:"reasons" yaml:"reasons"`
}

// ImportReport summarises an import.
type ImportReport struct {
	Rows       int         `json:"rows"       yaml:"rows"`
	Added      int         `json:"added"      yaml:"added"`
	Duplicates int         `json:"duplicates" yaml:"duplicates"`
	Rejected   []Rejection `json:"rejected"   yaml:"rejected"`
}

// Session implements Commands over a shared *records.Store.
type Session struct {
	store *records.Store
	log   *slog.Logger

	query   string
	sortKey query.SortKey
	dir     query.Direction
	page    int
	editing string
}

var _ Commands = (*Session)(nil)

// NewSession starts with no filter, name ascending, page 1.
func NewSession(store *records.Store, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		store:   store,
		log:     log,
		sortKey: query.SortByName,
		dir:     query.Asc,
		page:    1,
	}
}

// Submit validates the form, then creates or updates.
func (s *Session) Submit(ctx context.Context, form Form) (Result, error) {
	in := normalize(form.StudentInput)

	if errs := validate.Student(in); len(errs) > 0 {
		return Result{Errors: errs}, nil
	}

	id := strings.TrimSpace(form.ID)
	if id == "" {
		st, err := s.store.Create(ctx, in)
		if err != nil {
			return Result{}, err
		}
		s.editing = ""
		return Result{Created: true, Student: st}, nil
	}

	st, found, err := s.store.Update(ctx, id, in)
	if err != nil {
		return Result{}, err
	}
	s.editing = ""
	if !found {
		return Result{NotFound: true}, nil
	}
	return Result{Student: st}, nil
}

// SelectForEdit marks id as being edited and returns its current values.
func (s *Session) SelectForEdit(id string) (types.Student, bool) {
	st, ok := s.store.Get(id)
	if ok {
		s.editing = id
	}
	return st, ok
}

// Editing returns the id selected by SelectForEdit, or "".
func (s *Session) Editing() string {
	return s.editing
}

// Delete removes id. Deleting the record being edited cancels the edit.
func (s *Session) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.store.Delete(ctx, id)
	if ok && s.editing == id {
		s.editing = ""
	}
	return ok, err
}

// Search sets the filter text and goes back to page 1.
func (s *Session) Search(q string) {
	s.query = strings.TrimSpace(q)
	s.page = 1
}

// Sort sets the order and goes back to page 1.
func (s *Session) Sort(key query.SortKey, dir query.Direction) {
	s.sortKey = key
	s.dir = dir
	s.page = 1
}

// GotoPage selects a page. View clamps it.
func (s *Session) GotoPage(n int) {
	s.page = n
}

// View runs the query pipeline over the current collection.
func (s *Session) View() query.Page {
	page := query.Run(s.store.All(), query.Params{
		Query: s.query,
		Sort:  s.sortKey,
		Dir:   s.dir,
		Page:  s.page,
	})
	s.page = page.Page
	return page
}

// ExportAll renders every student, in storage order, as CSV.
func (s *Session) ExportAll() string {
	return csvcodec.Encode(s.store.All())
}

// ExportXLSX writes every student, in storage order, as a workbook.
func (s *Session) ExportXLSX(w io.Writer) error {
	return xlsxcodec.Encode(w, s.store.All())
}

// ImportFrom decodes CSV text and merges the valid, new rows.
func (s *Session) ImportFrom(ctx context.Context, text string) (ImportReport, error) {
	return s.merge(ctx, csvcodec.Decode(text))
}

// ImportXLSX is ImportFrom for a workbook. A workbook that cannot be
// opened returns ErrMalformedImport and changes nothing.
func (s *Session) ImportXLSX(ctx context.Context, r io.Reader) (ImportReport, error) {
	rows, err := xlsxcodec.Decode(r)
	if err != nil {
		return ImportReport{}, fmt.Errorf("%w: %w", ErrMalformedImport, err)
	}
	return s.merge(ctx, rows)
}

// merge validates every row, then hands the survivors to the store in one
// batch so the collection is persisted once.
func (s *Session) merge(ctx context.Context, rows []csvcodec.Row) (ImportReport, error) {
	report := ImportReport{Rows: len(rows), Rejected: []Rejection{}}

	valid := make([]types.StudentInput, 0, len(rows))
	for _, row := range rows {
		in := normalize(row.Candidate())
		if errs := validate.Student(in); len(errs) > 0 {
			report.Rejected = append(report.Rejected, Rejection{Line: row.Line, Reasons: errs})
			continue
		}
		valid = append(valid, in)
	}

	added, err := s.store.ImportMerge(ctx, valid)
	if err != nil {
		return ImportReport{}, err
	}
	report.Added = added
	report.Duplicates = len(valid) - added

	if len(report.Rejected) > 0 {
		s.log.Info("import rows rejected", slog.Int("count", len(report.Rejected)))
	}
	return report, nil
}

// ClearAll removes every student. confirmed must be true.
func (s *Session) ClearAll(ctx context.Context, confirmed bool) error {
	if err := s.store.Clear(ctx, confirmed); err != nil {
		return err
	}
	s.editing = ""
	s.page = 1
	return nil
}

// normalize trims the surrounding whitespace of every field.
func normalize(in types.StudentInput) types.StudentInput {
	return types.StudentInput{
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Roll:      strings.TrimSpace(in.Roll),
		ClassName: strings.TrimSpace(in.ClassName),
		Notes:     strings.TrimSpace(in.Notes),
	}
}
