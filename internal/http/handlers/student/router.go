package student

import (
	"net/http"

	"github.com/aanand-mishra/student-records/internal/records"
)

// NewRouter registers every student route on a fresh ServeMux.
//
// Route table:
//
//	POST   /api/students              → create a new student
//	GET    /api/students              → search / sort / page
//	DELETE /api/students?confirm=true → clear all students
//	GET    /api/students/export       → CSV download
//	GET    /api/students/export.xlsx  → workbook download
//	POST   /api/students/import       → CSV or workbook upload
//	GET    /api/students/{id}         → get one student
//	PUT    /api/students/{id}         → update a student
//	DELETE /api/students/{id}         → delete a student
//
// The literal export paths are more specific than {id}, so the ServeMux
// prefers them.
func NewRouter(store *records.Store) *http.ServeMux {
	router := http.NewServeMux()

	router.HandleFunc("POST /api/students", New(store))
	router.HandleFunc("GET /api/students", GetList(store))
	router.HandleFunc("DELETE /api/students", Clear(store))
	router.HandleFunc("GET /api/students/export", Export(store))
	router.HandleFunc("GET /api/students/export.xlsx", ExportXLSX(store))
	router.HandleFunc("POST /api/students/import", Import(store))
	router.HandleFunc("GET /api/students/{id}", GetByID(store))
	router.HandleFunc("PUT /api/students/{id}", Update(store))
	router.HandleFunc("DELETE /api/students/{id}", Delete(store))

	return router
}
