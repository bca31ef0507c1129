// Package csvcodec converts between student records and CSV text.
//
// Encode always quotes every field. Decode is deliberately lenient: it
// accepts any header order, a handful of header aliases, and any newline
// style. It is a single-line tokenizer, so a quoted field can never span
// lines.
package csvcodec

import (
	"regexp"
	"strings"

	"github.com/aanand-mishra/student-records/internal/types"
)

// Header is the first line of every export.
var Header = []string{"id", "name", "email", "roll", "class", "notes"}

// ExportFilename is the suggested download name for Encode's output.
const ExportFilename = "students_export.csv"

// UnnamedPlaceholder is used when a row has neither a name nor first/last.
const UnnamedPlaceholder = "Unnamed"

var newlineRe = regexp.MustCompile(`\r\n|\r|\n`)

// Encode renders students as CSV: the fixed header, then one fully quoted
// line per student, lines joined by "\n".
func Encode(students []types.Student) string {
	lines := make([]string, 0, len(students)+1)
	lines = append(lines, strings.Join(Header, ","))

	for _, s := range students {
		lines = append(lines, encodeLine([]string{
			s.ID, s.Name, s.Email, s.Roll, s.ClassName, s.Notes,
		}))
	}

	return strings.Join(lines, "\n")
}

func encodeLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// Row is one decoded data line: lower-cased header name → trimmed value.
// Unknown headers are kept as-is; Candidate simply never looks at them.
type Row struct {
	// Line is the 1-based line number in the source text.
	Line   int
	Fields map[string]string
}

// Get returns the first non-empty value among keys.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := r.Fields[k]; v != "" {
			return v
		}
	}
	return ""
}

// Candidate promotes a raw row to a typed input, resolving header aliases:
//
//	roll      ← roll | roll_no | rollno
//	className ← class | classname | course
//	name      ← name, else "first last", else UnnamedPlaceholder
//
// The result is NOT validated here.
func (r Row) Candidate() types.StudentInput {
	name := r.Get("name")
	if name == "" {
		name = strings.TrimSpace(r.Get("first") + " " + r.Get("last"))
	}
	if name == "" {
		name = UnnamedPlaceholder
	}

	return types.StudentInput{
		Name:      name,
		Email:     r.Get("email"),
		Roll:      r.Get("roll", "roll_no", "rollno"),
		ClassName: r.Get("class", "classname", "course"),
		Notes:     r.Get("notes"),
	}
}

// Decode parses CSV text into rows keyed by the lower-cased header.
//
// Empty lines are discarded before anything else; if nothing is left the
// result is empty. Missing trailing fields map to "", extra fields past
// the header are dropped. A line that ends while a quote is still open
// keeps whatever the field accumulated; decoding never fails, so one
// sloppy line cannot cost the rows around it.
func Decode(text string) []Row {
	type numbered struct {
		no   int
		text string
	}

	var lines []numbered
	for i, l := range newlineRe.Split(text, -1) {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, numbered{no: i + 1, text: l})
		}
	}
	if len(lines) == 0 {
		return []Row{}
	}

	header := NormalizeHeader(SplitLine(lines[0].text))

	rows := make([]Row, 0, len(lines)-1)
	for _, l := range lines[1:] {
		rows = append(rows, RowFromValues(l.no, header, SplitLine(l.text)))
	}

	return rows
}

// NormalizeHeader trims and lower-cases header names.
func NormalizeHeader(fields []string) []string {
	header := make([]string, len(fields))
	for i, h := range fields {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return header
}

// RowFromValues pairs values with header names positionally.
func RowFromValues(line int, header, values []string) Row {
	fields := make(map[string]string, len(header))
	for i, h := range header {
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		fields[h] = v
	}
	return Row{Line: line, Fields: fields}
}

// SplitLine tokenizes one CSV line.
//
// Characters are copied literally. An unescaped '"' toggles quote mode;
// inside quotes '""' yields a literal '"' and ',' is literal; outside
// quotes ',' ends the field. The end of the line ends the last field,
// open quote or not: `5" tall` yields "5 tall".
func SplitLine(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && inQuote && i+1 < len(line) && line[i+1] == '"':
			cur.WriteByte('"')
			i++
		case c == '"':
			inQuote = !inQuote
		case c == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}

	return append(fields, cur.String())
}
