// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN:
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// To inject the record store we use a factory function that accepts it
// and returns a function with the exact signature the router needs:
//
//	router.HandleFunc("POST /api/students", student.New(store))
//
// Every handler opens a fresh app.Session over the shared store. HTTP is
// stateless, so the view state a Session normally remembers (search text,
// sort order, page) comes from the query string of each request instead.
package student

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/csvcodec"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/records"
	"github.com/aanand-mishra/student-records/internal/utils/response"
	"github.com/aanand-mishra/student-records/internal/xlsxcodec"
)

// maxImportBytes caps the size of an uploaded import file.
const maxImportBytes = 10 << 20

func session(store *records.Store) *app.Session {
	return app.NewSession(store, slog.Default())
}

// decodeForm reads a JSON app.Form from the request body.
func decodeForm(r *http.Request) (app.Form, error) {
	var form app.Form
	err := json.NewDecoder(r.Body).Decode(&form)
	if errors.Is(err, io.EOF) {
		return app.Form{}, errors.New("request body is empty")
	}
	return form, err
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a new student from the JSON request body.
//
// Request body (JSON):
//
//	{ "name": "Ann Lee", "email": "ann@school.edu", "roll": "A-1", "className": "10B", "notes": "" }
//
// Success response (201 Created): the stored student, including its id.
//
// Error responses:
//
//	400 Bad Request   empty body, malformed JSON, or failed validation
//	500 Internal      storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("creating a student")

		form, err := decodeForm(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		// An id in a POST body is ignored: POST always creates.
		form.ID = ""

		res, err := session(store).Submit(r.Context(), form)
		if err != nil {
			slog.Error("error creating student", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		if len(res.Errors) > 0 {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(res.Errors))
			return
		}

		response.WriteJSON(w, http.StatusCreated, res.Student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Error responses:
//
//	404 Not Found  no student with that id
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("getting a student", slog.String("id", id))

		st, ok := session(store).SelectForEdit(id)
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf("no student found with id: %s", id)))
			return
		}

		response.WriteJSON(w, http.StatusOK, st)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetList handles GET /api/students
// Returns one page of students.
//
// Query parameters (all optional):
//
//	q      case-insensitive search over name, email, roll and class
//	sort   name | email | roll | className | notes | createdAt (default name)
//	dir    asc | desc (default asc)
//	page   1-based page number; clamped to the last page
//
// Success response (200 OK):
//
//	{ "students": [...], "total": 25, "page": 3, "pages": 3, "pageSize": 10 }
//
// ─────────────────────────────────────────────────────────────────────────────
func GetList(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		slog.Info("listing students",
			slog.String("q", params.Get("q")),
			slog.String("sort", params.Get("sort")))

		page := 1
		if p := params.Get("page"); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(errors.New("invalid page: must be an integer")))
				return
			}
			page = n
		}

		sortKey := query.SortByName
		if s := params.Get("sort"); s != "" {
			k, ok := query.ParseSortKey(s)
			if !ok {
				response.WriteJSON(w, http.StatusBadRequest,
					response.GeneralError(fmt.Errorf("invalid sort key: %q", s)))
				return
			}
			sortKey = k
		}

		sess := session(store)
		sess.Search(params.Get("q"))
		sess.Sort(sortKey, query.ParseDirection(params.Get("dir")))
		sess.GotoPage(page)

		response.WriteJSON(w, http.StatusOK, sess.View())
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Replaces the mutable fields of an existing student.
//
// Error responses:
//
//	400 Bad Request   empty body, malformed JSON, or failed validation
//	404 Not Found     no student with that id
//	500 Internal      storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("updating a student", slog.String("id", id))

		form, err := decodeForm(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}
		// The path wins over any id in the body.
		form.ID = id

		res, err := session(store).Submit(r.Context(), form)
		switch {
		case err != nil:
			slog.Error("error updating student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
		case len(res.Errors) > 0:
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(res.Errors))
		case res.NotFound:
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf("no student found with id: %s", id)))
		default:
			response.WriteJSON(w, http.StatusOK, res.Student)
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
//
// Success response (200 OK):
//
//	{ "status": "deleted" }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		slog.Info("deleting a student", slog.String("id", id))

		ok, err := session(store).Delete(r.Context(), id)
		if err != nil {
			slog.Error("error deleting student",
				slog.String("id", id),
				slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}
		if !ok {
			response.WriteJSON(w, http.StatusNotFound,
				response.GeneralError(fmt.Errorf("no student found with id: %s", id)))
			return
		}

		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Clear handles DELETE /api/students?confirm=true
// Removes EVERY student. Without confirm=true nothing happens and the
// client gets 400, so a stray DELETE on the collection is harmless.
// ─────────────────────────────────────────────────────────────────────────────
func Clear(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		slog.Info("clear requested", slog.Bool("confirmed", confirmed))

		err := session(store).ClearAll(r.Context(), confirmed)
		switch {
		case errors.Is(err, records.ErrClearNotConfirmed):
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		case err != nil:
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
		default:
			response.WriteJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Export handles GET /api/students/export
// Downloads every student, in storage order, as students_export.csv.
// ─────────────────────────────────────────────────────────────────────────────
func Export(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("exporting students as csv")

		body := session(store).ExportAll()

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename=%q`, csvcodec.ExportFilename))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, body)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ExportXLSX handles GET /api/students/export.xlsx
// The workbook is built in memory first so a failure can still be
// reported as a JSON 500 before any header is sent.
// ─────────────────────────────────────────────────────────────────────────────
func ExportXLSX(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("exporting students as xlsx")

		var buf bytes.Buffer
		if err := session(store).ExportXLSX(&buf); err != nil {
			slog.Error("error exporting students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
			return
		}

		w.Header().Set("Content-Type", xlsxcodec.ContentType)
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename=%q`, xlsxcodec.ExportFilename))
		w.WriteHeader(http.StatusOK)
		buf.WriteTo(w)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Import handles POST /api/students/import
//
// Accepted bodies:
//
//	text/csv (or anything else)         the raw CSV text
//	application/vnd.openxmlformats-...    a raw .xlsx workbook
//	multipart/form-data, field "file"   either, chosen by file extension
//
// Success response (200 OK):
//
//	{ "rows": 5, "added": 2, "duplicates": 2, "rejected": [{ "line": 5, "reasons": [...] }] }
//
// Error responses:
//
//	400 Bad Request   the file could not be decoded; nothing was imported
//	500 Internal      storage error
//
// ─────────────────────────────────────────────────────────────────────────────
func Import(store *records.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slog.Info("importing students")

		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		sess := session(store)

		report, err := importBody(sess, r)
		switch {
		case errors.Is(err, app.ErrMalformedImport), errors.Is(err, errUpload):
			slog.Info("import rejected", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		case err != nil:
			slog.Error("error importing students", slog.String("error", err.Error()))
			response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
		default:
			slog.Info("students imported",
				slog.Int("added", report.Added),
				slog.Int("duplicates", report.Duplicates),
				slog.Int("rejected", len(report.Rejected)))
			response.WriteJSON(w, http.StatusOK, report)
		}
	}
}

// errUpload marks problems reading the request itself.
var errUpload = errors.New("cannot read upload")

func importBody(sess *app.Session, r *http.Request) (app.ImportReport, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		file, hdr, err := r.FormFile("file")
		if err != nil {
			return app.ImportReport{}, fmt.Errorf("%w: %w", errUpload, err)
		}
		defer file.Close()

		if strings.HasSuffix(strings.ToLower(hdr.Filename), ".xlsx") {
			return sess.ImportXLSX(r.Context(), file)
		}
		text, err := io.ReadAll(file)
		if err != nil {
			return app.ImportReport{}, fmt.Errorf("%w: %w", errUpload, err)
		}
		return sess.ImportFrom(r.Context(), string(text))

	case xlsxcodec.ContentType:
		return sess.ImportXLSX(r.Context(), r.Body)

	default:
		text, err := io.ReadAll(r.Body)
		if err != nil {
			return app.ImportReport{}, fmt.Errorf("%w: %w", errUpload, err)
		}
		return sess.ImportFrom(r.Context(), string(text))
	}
}
