package csvcodec

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/types"
)

func fixtureStudents() []types.Student {
	created := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	return []types.Student{
		{ID: "s-1", Name: "Ann Lee", Email: "ann@x.com", Roll: "A1", ClassName: "10B", CreatedAt: created},
		{ID: "s-2", Name: `Bob "Bobby" Tan`, Email: "bob@x.com", Roll: "B-2", ClassName: "11A", Notes: `a,"b"`, CreatedAt: created},
		{ID: "s-3", Name: "Cy", Email: "cy@x.com", Roll: "C3", ClassName: "Physics, Honours", CreatedAt: created},
	}
}

func TestEncode_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export", []byte(Encode(fixtureStudents())))
}

func TestEncode_Empty(t *testing.T) {
	assert.Equal(t, "id,name,email,roll,class,notes", Encode(nil))
}

func TestEncode_EscapesQuotes(t *testing.T) {
	out := Encode([]types.Student{{ID: "x", Notes: `a,"b"`}})
	assert.Equal(t, "id,name,email,roll,class,notes\n"+`"x","","","","","a,""b"""`, out)
}

func TestRoundTrip(t *testing.T) {
	students := fixtureStudents()

	rows := Decode(Encode(students))
	require.Len(t, rows, len(students))

	for i, row := range rows {
		assert.Equal(t, students[i].ID, row.Fields["id"])
		if diff := cmp.Diff(students[i].Input(), row.Candidate()); diff != "" {
			t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestRoundTrip_NotesWithQuotes(t *testing.T) {
	rows := Decode(Encode([]types.Student{{ID: "1", Name: "Ann", Notes: `a,"b"`}}))
	require.Len(t, rows, 1)
	assert.Equal(t, `a,"b"`, rows[0].Fields["notes"])
}

func TestDecode_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "\n\n", "  \r\n \r"} {
		rows := Decode(text)
		assert.Empty(t, rows)
	}
}

func TestDecode_HeaderOnly(t *testing.T) {
	rows := Decode("name,email\n")
	assert.Empty(t, rows)
}

func TestDecode_NewlineStylesAndBlankLines(t *testing.T) {
	text := "Name , EMAIL\r\nAnn,ann@x.com\r\rBob,bob@x.com\n\n  \nCy,cy@x.com"
	rows := Decode(text)
	require.Len(t, rows, 3)

	assert.Equal(t, map[string]string{"name": "Ann", "email": "ann@x.com"}, rows[0].Fields)
	assert.Equal(t, "Bob", rows[1].Fields["name"])
	assert.Equal(t, "Cy", rows[2].Fields["name"])

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, 7, rows[2].Line)
}

func TestDecode_MissingAndExtraFields(t *testing.T) {
	rows := Decode("a,b,c\n1\n1,2,3,4")
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"a": "1", "b": "", "c": ""}, rows[0].Fields)
	assert.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, rows[1].Fields)
}

func TestDecode_TrimsValuesAndKeepsUnknownHeaders(t *testing.T) {
	rows := Decode("Name,Favourite Colour\n  Ann  ,  blue ")
	require.Len(t, rows, 1)
	assert.Equal(t, "Ann", rows[0].Fields["name"])
	assert.Equal(t, "blue", rows[0].Fields["favourite colour"])
}

func TestDecode_StrayQuoteKeepsNeighbouringRows(t *testing.T) {
	text := "name,email,roll,class,notes\n" +
		"Ann,ann@x.com,A1,10B,5\" tall\n" +
		"Bob,bob@x.com,B2,10B,ok"

	rows := Decode(text)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "5 tall", rows[0].Fields["notes"])
	assert.Equal(t, "Ann", rows[0].Fields["name"])

	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, types.StudentInput{Name: "Bob", Email: "bob@x.com", Roll: "B2", ClassName: "10B", Notes: "ok"},
		rows[1].Candidate())
}

func TestDecode_OpenQuoteSwallowsRestOfLine(t *testing.T) {
	rows := Decode("name,notes,roll\nAnn,\"open, still notes\nBob,ok,B2")
	require.Len(t, rows, 2)
	assert.Equal(t, map[string]string{"name": "Ann", "notes": "open, still notes", "roll": ""}, rows[0].Fields)
	assert.Equal(t, "B2", rows[1].Fields["roll"])
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{``, []string{""}},
		{`a,b`, []string{"a", "b"}},
		{`"a,b",c`, []string{"a,b", "c"}},
		{`"",x`, []string{"", "x"}},
		{`""""`, []string{`"`}},
		{`"a""b"`, []string{`a"b`}},
		{`a"b"c,d`, []string{"abc", "d"}},
		{`a,`, []string{"a", ""}},
		{`,,`, []string{"", "", ""}},
		{`"héllo, wörld"`, []string{"héllo, wörld"}},
		{`5" tall`, []string{"5 tall"}},
		{`a,"b,c`, []string{"a", "b,c"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SplitLine(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRowCandidate_Aliases(t *testing.T) {
	tests := []struct {
		name string
		text string
		want types.StudentInput
	}{
		{
			name: "canonical headers",
			text: "name,email,roll,class,notes\nAnn,ann@x.com,A1,10B,hi",
			want: types.StudentInput{Name: "Ann", Email: "ann@x.com", Roll: "A1", ClassName: "10B", Notes: "hi"},
		},
		{
			name: "roll_no and classname",
			text: "name,email,roll_no,classname\nAnn,ann@x.com,A1,10B",
			want: types.StudentInput{Name: "Ann", Email: "ann@x.com", Roll: "A1", ClassName: "10B"},
		},
		{
			name: "rollno and course",
			text: "name,email,RollNo,Course\nAnn,ann@x.com,A1,Physics",
			want: types.StudentInput{Name: "Ann", Email: "ann@x.com", Roll: "A1", ClassName: "Physics"},
		},
		{
			name: "first and last",
			text: "first,last,email\nAnn,Lee,ann@x.com",
			want: types.StudentInput{Name: "Ann Lee", Email: "ann@x.com"},
		},
		{
			name: "first only",
			text: "first,email\nAnn,ann@x.com",
			want: types.StudentInput{Name: "Ann", Email: "ann@x.com"},
		},
		{
			name: "placeholder",
			text: "email,roll\nann@x.com,A1",
			want: types.StudentInput{Name: UnnamedPlaceholder, Email: "ann@x.com", Roll: "A1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := Decode(tt.text)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.want, rows[0].Candidate())
		})
	}
}
