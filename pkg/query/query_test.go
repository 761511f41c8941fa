package query

import (
	"testing"
	"time"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

func personTable(t *testing.T) *table.Table {
	t.Helper()
	s, err := schema.New("Person",
		schema.Property{Name: "id", Type: schema.Int},
		schema.Property{Name: "name", Type: schema.String},
		schema.Property{Name: "age", Type: schema.Int},
		schema.Property{Name: "score", Type: schema.Float},
		schema.Property{Name: "active", Type: schema.Bool},
		schema.Property{Name: "joined", Type: schema.Timestamp},
	)
	if err != nil {
		t.Fatalf("schema.New error: %v", err)
	}
	tbl := table.New(s)
	rows := []map[string]any{
		{"id": 1, "name": "alice", "age": 30, "score": 8.5, "active": true, "joined": "2024-01-15T00:00:00Z"},
		{"id": 2, "name": "bob", "age": 25, "score": 6.0, "active": false, "joined": "2024-03-10T00:00:00Z"},
		{"id": 3, "name": "carol", "age": 35, "score": 9.2, "active": true, "joined": "2023-11-05T00:00:00Z"},
		{"id": 4, "name": "dan", "score": 4.0, "active": false, "joined": "2024-06-01T00:00:00Z"},
	}
	for _, row := range rows {
		if _, err := tbl.Insert(row); err != nil {
			t.Fatalf("Insert error: %v", err)
		}
	}
	return tbl
}

func runText(t *testing.T, tbl *table.Table, text string, args ...any) []int {
	t.Helper()
	q, err := FromText(tbl, text, args...)
	if err != nil {
		t.Fatalf("FromText(%q) error: %v", text, err)
	}
	return q.Run()
}

func equalKeys(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRunMatchesExpectedRows(t *testing.T) {
	tbl := personTable(t)

	tests := []struct {
		name string
		text string
		args []any
		want []int
	}{
		{"equality", "name == 'alice'", nil, []int{0}},
		{"single equals", "name = 'bob'", nil, []int{1}},
		{"int comparison", "age > 26", nil, []int{0, 2}},
		{"int literal on float column", "score >= 6", nil, []int{0, 1, 2}},
		{"literal on the left", "26 < age", nil, []int{0, 2}},
		{"property vs property", "age > id", nil, []int{0, 1, 2}},
		{"boolean", "active == TRUE", nil, []int{0, 2}},
		{"negated boolean", "NOT active == TRUE", nil, []int{1, 3}},
		{"contains", "name CONTAINS 'a'", nil, []int{0, 2, 3}},
		{"begins with", "name BEGINSWITH 'ca'", nil, []int{2}},
		{"ends with", "name ENDSWITH 'ob'", nil, []int{1}},
		{"conjunction", "age > 26 AND active == TRUE", nil, []int{0, 2}},
		{"disjunction", "name == 'bob' OR name == 'dan'", nil, []int{1, 3}},
		{"symbolic combinators", "age > 26 && score > 9 || name == 'bob'", nil, []int{1, 2}},
		{"grouping", "(name == 'bob' OR name == 'dan') AND score > 5", nil, []int{1}},
		{"timestamp comparison", "joined > '2024-01-01'", nil, []int{0, 1, 3}},
		{"null equality matches missing", "age == NULL", nil, []int{3}},
		{"null inequality", "age != NULL", nil, []int{0, 1, 2}},
		{"ordering skips nulls", "age < 100", nil, []int{0, 1, 2}},
		{"true predicate", "TRUEPREDICATE", nil, []int{0, 1, 2, 3}},
		{"false predicate", "FALSEPREDICATE", nil, []int{}},
		{"constant fold", "5 > 3", nil, []int{0, 1, 2, 3}},
		{"placeholder int", "age >= $0", []any{30}, []int{0, 2}},
		{"placeholder string", "name == $0", []any{"carol"}, []int{2}},
		{"placeholder twice", "age > $0 AND score > $1", []any{26, 9.0}, []int{2}},
		{"placeholder timestamp", "joined < $0", []any{"2024-01-01T00:00:00Z"}, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runText(t, tbl, tt.text, tt.args...)
			if !equalKeys(got, tt.want) {
				t.Errorf("Run(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tbl := personTable(t)

	tests := []struct {
		name string
		text string
		args []any
		kind errs.Kind
	}{
		{"unknown property", "color == 'red'", nil, errs.KindSchema},
		{"unknown property in group", "age > 21 AND (color == 'red')", nil, errs.KindSchema},
		{"missing argument", "age > $0", nil, errs.KindArgument},
		{"argument position beyond list", "age > $2", []any{1, 2}, errs.KindArgument},
		{"unconvertible argument", "age > $0", []any{"abc"}, errs.KindArgument},
		{"unconvertible literal", "age > 'abc'", nil, errs.KindArgument},
		{"contains on int property", "age CONTAINS '3'", nil, errs.KindArgument},
		{"contains with int literal", "name CONTAINS 5", nil, errs.KindArgument},
		{"contains between mixed properties", "age CONTAINS name", nil, errs.KindArgument},
		{"placeholder vs placeholder", "$0 == $1", []any{1, 2}, errs.KindArgument},
		{"syntax error", "name ==", nil, errs.KindPredicateSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromText(tbl, tt.text, tt.args...)
			if !errs.IsKind(err, tt.kind) {
				t.Errorf("FromText(%q) error = %v, want kind %v", tt.text, err, tt.kind)
			}
		})
	}
}

func TestAndNarrowsWithoutMutating(t *testing.T) {
	tbl := personTable(t)

	base, err := FromText(tbl, "active == TRUE")
	if err != nil {
		t.Fatalf("FromText error: %v", err)
	}
	narrowed, err := base.AndText("age > $0", 31)
	if err != nil {
		t.Fatalf("AndText error: %v", err)
	}

	if got := narrowed.Run(); !equalKeys(got, []int{2}) {
		t.Errorf("narrowed Run() = %v, want [2]", got)
	}
	if got := base.Run(); !equalKeys(got, []int{0, 2}) {
		t.Errorf("base Run() = %v, want [0 2]: deriving must not mutate the source", got)
	}
}

func TestMatchAllQuery(t *testing.T) {
	tbl := personTable(t)
	q := New(tbl)
	if got := q.Run(); !equalKeys(got, []int{0, 1, 2, 3}) {
		t.Errorf("Run() = %v, want all rows", got)
	}
	if q.Count() != 4 {
		t.Errorf("Count() = %d, want 4", q.Count())
	}
	if q.String() != "TRUEPREDICATE" {
		t.Errorf("String() = %q, want TRUEPREDICATE", q.String())
	}
}

func TestRunSkipsDeletedRows(t *testing.T) {
	tbl := personTable(t)
	if err := tbl.Delete(0); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	got := runText(t, tbl, "active == TRUE")
	if !equalKeys(got, []int{2}) {
		t.Errorf("Run() = %v, want [2] after deleting row 0", got)
	}
}

func TestKeySetExpression(t *testing.T) {
	tbl := personTable(t)
	q := New(tbl).And(KeySet([]int{2, 0}))

	if got := q.Run(); !equalKeys(got, []int{0, 2}) {
		t.Errorf("Run() = %v, want [0 2] in table order", got)
	}

	narrowed, err := q.AndText("age > $0", 31)
	if err != nil {
		t.Fatalf("AndText error: %v", err)
	}
	if got := narrowed.Run(); !equalKeys(got, []int{2}) {
		t.Errorf("narrowed Run() = %v, want [2]", got)
	}
}

func TestExpressionString(t *testing.T) {
	tbl := personTable(t)
	q, err := FromText(tbl, "age > $0 AND name CONTAINS 'a'", 21)
	if err != nil {
		t.Fatalf("FromText error: %v", err)
	}
	want := "(age > 21 AND name CONTAINS 'a')"
	if got := q.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTimestampHintFromProperty(t *testing.T) {
	tbl := personTable(t)
	cutoff := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got := runText(t, tbl, "joined < $0", cutoff)
	if !equalKeys(got, []int{2}) {
		t.Errorf("Run() = %v, want [2]", got)
	}
}
