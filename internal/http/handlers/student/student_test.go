package student

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/app"
	"github.com/aanand-mishra/student-records/internal/logging"
	"github.com/aanand-mishra/student-records/internal/query"
	"github.com/aanand-mishra/student-records/internal/records"
	"github.com/aanand-mishra/student-records/internal/storage/memory"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
	"github.com/aanand-mishra/student-records/internal/xlsxcodec"
)

func TestMain(m *testing.M) {
	slog.SetDefault(logging.Quiet(io.Discard))
	os.Exit(m.Run())
}

func newServer(t *testing.T) (http.Handler, *records.Store, *memory.Memory) {
	t.Helper()
	mem := memory.New()
	n := 0
	store, err := records.Open(context.Background(), mem, "students", logging.Quiet(io.Discard),
		records.WithIDGenerator(func() string { n++; return fmt.Sprintf("s-%d", n) }))
	require.NoError(t, err)
	return NewRouter(store), store, mem
}

func do(t *testing.T, h http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, h http.Handler, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	blob, err := json.Marshal(v)
	require.NoError(t, err)
	return do(t, h, method, target, bytes.NewReader(blob), "application/json")
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func ann() types.StudentInput {
	return types.StudentInput{Name: "Ann Lee", Email: "ann@school.edu", Roll: "A-1", ClassName: "10B"}
}

func TestCreateAndGet(t *testing.T) {
	h, store, _ := newServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/students", ann())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Student](t, rec)
	assert.Equal(t, "s-1", created.ID)
	assert.Equal(t, "Ann Lee", created.Name)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 1, store.Len())

	rec = do(t, h, http.MethodGet, "/api/students/s-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.Email, decode[types.Student](t, rec).Email)
}

func TestCreate_IgnoresBodyID(t *testing.T) {
	h, store, _ := newServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/students", app.Form{ID: "forged", StudentInput: ann()})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "s-1", decode[types.Student](t, rec).ID)
	assert.Equal(t, 1, store.Len())
}

func TestCreate_ValidationFailure(t *testing.T) {
	h, store, _ := newServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/students", types.StudentInput{Name: "A", Email: "nope", Roll: "bad roll"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	res := decode[response.Response](t, rec)
	assert.Equal(t, response.StatusError, res.Status)
	assert.Len(t, res.Errors, 4)
	assert.Contains(t, res.Errors, "Name must be at least 2 characters")
	assert.Contains(t, res.Errors, "Class is required")
	assert.Equal(t, 0, store.Len())
}

func TestCreate_BadBodies(t *testing.T) {
	h, _, _ := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/students", strings.NewReader(""), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is empty")

	rec = do(t, h, http.MethodPost, "/api/students", strings.NewReader("{not json"), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreate_StorageFailure(t *testing.T) {
	h, store, mem := newServer(t)
	mem.FailWrites = errors.New("disk gone")

	rec := doJSON(t, h, http.MethodPost, "/api/students", ann())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk gone")
	assert.Equal(t, 0, store.Len())
}

func TestGetByID_NotFound(t *testing.T) {
	h, _, _ := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/students/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing")
}

func TestUpdate(t *testing.T) {
	h, store, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	in := ann()
	in.Notes = "moved to front row"
	rec := doJSON(t, h, http.MethodPut, "/api/students/s-1", in)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[types.Student](t, rec)
	assert.Equal(t, "moved to front row", updated.Notes)
	require.NotNil(t, updated.UpdatedAt)

	got, ok := store.Get("s-1")
	require.True(t, ok)
	assert.Equal(t, "moved to front row", got.Notes)
}

func TestUpdate_Failures(t *testing.T) {
	h, _, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	rec := doJSON(t, h, http.MethodPut, "/api/students/nobody", ann())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bad := ann()
	bad.Email = "no-at-sign"
	rec = doJSON(t, h, http.MethodPut, "/api/students/s-1", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Email must look like name@domain.tld"}, decode[response.Response](t, rec).Errors)
}

func TestDelete(t *testing.T) {
	h, store, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	rec := do(t, h, http.MethodDelete, "/api/students/s-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, rec.Body.String())
	assert.Equal(t, 0, store.Len())

	rec = do(t, h, http.MethodDelete, "/api/students/s-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClear(t *testing.T) {
	h, store, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	rec := do(t, h, http.MethodDelete, "/api/students", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, store.Len())

	rec = do(t, h, http.MethodDelete, "/api/students?confirm=false", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, store.Len())

	rec = do(t, h, http.MethodDelete, "/api/students?confirm=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, store.Len())
}

func TestClear_UnconfirmedLogsNothingAboveInfo(t *testing.T) {
	h, _, _ := newServer(t)

	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.Quiet(&logs))
	t.Cleanup(func() { slog.SetDefault(prev) })

	rec := do(t, h, http.MethodDelete, "/api/students", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, logs.String())
}

func seed(t *testing.T, h http.Handler, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		in := types.StudentInput{
			Name:      fmt.Sprintf("Student %02d", i),
			Email:     fmt.Sprintf("s%d@school.edu", i),
			Roll:      fmt.Sprintf("R-%d", i),
			ClassName: "9A",
		}
		require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", in).Code)
	}
}

func TestGetList_Paging(t *testing.T) {
	h, _, _ := newServer(t)
	seed(t, h, 12)

	rec := do(t, h, http.MethodGet, "/api/students", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[query.Page](t, rec)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Students, query.PageSize)
	assert.Equal(t, "Student 01", page.Students[0].Name)

	// Past the end clamps to the last page.
	page = decode[query.Page](t, do(t, h, http.MethodGet, "/api/students?page=9", nil, ""))
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Students, 2)
}

func TestGetList_SearchAndSort(t *testing.T) {
	h, _, _ := newServer(t)
	seed(t, h, 12)

	page := decode[query.Page](t, do(t, h, http.MethodGet, "/api/students?q=STUDENT%201&sort=name&dir=desc", nil, ""))
	require.Equal(t, 3, page.Total)
	assert.Equal(t, "Student 12", page.Students[0].Name)
	assert.Equal(t, "Student 10", page.Students[2].Name)

	page = decode[query.Page](t, do(t, h, http.MethodGet, "/api/students?q=nobody", nil, ""))
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 0, page.Pages)
	assert.NotNil(t, page.Students)
}

func TestGetList_BadParams(t *testing.T) {
	h, _, _ := newServer(t)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/students?page=two", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/students?sort=height", nil, "").Code)
}

func TestExportCSV(t *testing.T) {
	h, _, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	rec := do(t, h, http.MethodGet, "/api/students/export", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="students_export.csv"`, rec.Header().Get("Content-Disposition"))

	lines := strings.Split(rec.Body.String(), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,email,roll,class,notes", lines[0])
	assert.Equal(t, `"s-1","Ann Lee","ann@school.edu","A-1","10B",""`, lines[1])
}

func TestImportCSV(t *testing.T) {
	h, store, _ := newServer(t)
	require.Equal(t, http.StatusCreated, doJSON(t, h, http.MethodPost, "/api/students", ann()).Code)

	body := strings.Join([]string{
		"Name,Email,Roll,Class",
		"Ann Lee,ann@school.edu,A-1,10B",
		"Bob Tan,bob@school.edu,B-2,10B",
		"X,bad,,",
	}, "\n")

	rec := do(t, h, http.MethodPost, "/api/students/import", strings.NewReader(body), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[app.ImportReport](t, rec)
	assert.Equal(t, 3, report.Rows)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Duplicates)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, 4, report.Rejected[0].Line)
	assert.Equal(t, 2, store.Len())
}

func TestImportCSV_StrayQuote(t *testing.T) {
	h, store, _ := newServer(t)

	body := "name,email,roll,class,notes\n" +
		"Ann Lee,ann@school.edu,A-1,10B,5\" tall\n" +
		"Bob Tan,bob@school.edu,B-2,10B,ok"
	rec := do(t, h, http.MethodPost, "/api/students/import", strings.NewReader(body), "text/csv")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[app.ImportReport](t, rec)
	assert.Equal(t, 2, report.Added)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 2, store.Len())
}

func TestImportMultipart(t *testing.T) {
	h, store, _ := newServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, "name,email,roll,class\nAnn Lee,ann@school.edu,A-1,10B\n")
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/api/students/import", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[app.ImportReport](t, rec).Added)
	assert.Equal(t, 1, store.Len())
}

func TestImportMultipart_MissingFile(t *testing.T) {
	h, _, _ := newServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	rec := do(t, h, http.MethodPost, "/api/students/import", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestXLSXRoundTrip(t *testing.T) {
	src, _, _ := newServer(t)
	seed(t, src, 3)

	rec := do(t, src, http.MethodGet, "/api/students/export.xlsx", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxcodec.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), xlsxcodec.ExportFilename)

	dst, store, _ := newServer(t)
	rec = do(t, dst, http.MethodPost, "/api/students/import", bytes.NewReader(rec.Body.Bytes()), xlsxcodec.ContentType)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[app.ImportReport](t, rec)
	assert.Equal(t, 3, report.Added)
	assert.Empty(t, report.Rejected)
	assert.Equal(t, 3, store.Len())
}

func TestImportXLSX_Garbage(t *testing.T) {
	h, store, mem := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/students/import", strings.NewReader("not a workbook"), xlsxcodec.ContentType)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed import file")
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 0, mem.Writes)
}
