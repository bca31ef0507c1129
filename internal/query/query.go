// Package query derives the displayed page from the full collection:
// filter, then sort, then paginate. It never modifies its input.
package query

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/aanand-mishra/student-records/internal/types"
)

// PageSize is the fixed number of students per page.
const PageSize = 10

// SortKey names the field the page is ordered by.
type SortKey string

const (
	SortByName      SortKey = "name"
	SortByEmail     SortKey = "email"
	SortByRoll      SortKey = "roll"
	SortByClassName SortKey = "className"
	SortByNotes     SortKey = "notes"
	SortByCreatedAt SortKey = "createdAt"
)

// SortKeys lists every accepted SortKey.
var SortKeys = []SortKey{SortByName, SortByEmail, SortByRoll, SortByClassName, SortByNotes, SortByCreatedAt}

// ParseSortKey accepts a SortKey case-insensitively, plus "class" as an
// alias for className. Anything else yields SortByName and false.
func ParseSortKey(s string) (SortKey, bool) {
	if strings.EqualFold(s, "class") {
		return SortByClassName, true
	}
	for _, k := range SortKeys {
		if strings.EqualFold(s, string(k)) {
			return k, true
		}
	}
	return SortByName, false
}

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Desc)) {
		return Desc
	}
	return Asc
}

// Params is one view request.
type Params struct {
	Query string
	Sort  SortKey
	Dir   Direction
	// Page is 1-based. Values below 1 mean page 1; values past the end are
	// clamped to the last page.
	Page int
}

// Page is the result of Run.
type Page struct {
	Students []types.Student `json:"students" yaml:"students"`
	// Total is the number of students that matched the filter.
	Total int `json:"total" yaml:"total"`
	// Page is the page actually returned, after clamping.
	Page int `json:"page" yaml:"page"`
	// Pages is the number of pages Total spans (0 when Total is 0).
	Pages    int `json:"pages"    yaml:"pages"`
	PageSize int `json:"pageSize" yaml:"pageSize"`
}

// Run filters, sorts and paginates students.
func Run(students []types.Student, p Params) Page {
	matched := Filter(students, p.Query)
	Sort(matched, p.Sort, p.Dir)
	return Paginate(matched, p.Page)
}

// Filter keeps the students whose name, email, roll or class contains q,
// ignoring case. An empty q keeps everyone. The result is a new slice.
func Filter(students []types.Student, q string) []types.Student {
	if q == "" {
		return slices.Clone(students)
	}

	folder := cases.Fold()
	needle := folder.String(q)

	out := make([]types.Student, 0, len(students))
	for _, s := range students {
		for _, field := range []string{s.Name, s.Email, s.Roll, s.ClassName} {
			if strings.Contains(folder.String(field), needle) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Sort orders students in place by key, comparing case-folded values.
// Ties keep their input order.
func Sort(students []types.Student, key SortKey, dir Direction) {
	folder := cases.Fold()
	field := fieldFunc(key)

	slices.SortStableFunc(students, func(a, b types.Student) int {
		c := strings.Compare(folder.String(field(a)), folder.String(field(b)))
		if dir == Desc {
			return -c
		}
		return c
	})
}

func fieldFunc(key SortKey) func(types.Student) string {
	switch key {
	case SortByEmail:
		return func(s types.Student) string { return s.Email }
	case SortByRoll:
		return func(s types.Student) string { return s.Roll }
	case SortByClassName:
		return func(s types.Student) string { return s.ClassName }
	case SortByNotes:
		return func(s types.Student) string { return s.Notes }
	case SortByCreatedAt:
		// RFC 3339 in UTC sorts chronologically as a string.
		return func(s types.Student) string { return s.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z") }
	default:
		return func(s types.Student) string { return s.Name }
	}
}

// PageCount returns how many pages of PageSize total spans.
func PageCount(total int) int {
	return (total + PageSize - 1) / PageSize
}

// Paginate returns the page window for page, clamping page into
// [1, PageCount(len(students))].
func Paginate(students []types.Student, page int) Page {
	total := len(students)
	pages := PageCount(total)

	if page > pages {
		page = pages
	}
	if page < 1 {
		page = 1
	}

	start := min((page-1)*PageSize, total)
	end := min(start+PageSize, total)

	return Page{
		Students: append([]types.Student{}, students[start:end]...),
		Total:    total,
		Page:     page,
		Pages:    pages,
		PageSize: PageSize,
	}
}
