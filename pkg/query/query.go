package query

import (
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// Query pairs a table with a compiled filter expression. The zero filter
// (nil expression) matches every attached row. Query is a small value:
// deriving a narrower query copies it and leaves the source untouched.
type Query struct {
	table *table.Table
	expr  Expression
}

// New builds a match-all query over t.
func New(t *table.Table) Query {
	return Query{table: t}
}

// FromText parses and compiles predicate text against t's schema, binding
// $n placeholders from args.
func FromText(t *table.Table, text string, args ...any) (Query, error) {
	expr, err := CompileText(t.Schema(), text, args...)
	if err != nil {
		return Query{}, err
	}
	return Query{table: t, expr: expr}, nil
}

// Table returns the table the query runs against.
func (q Query) Table() *table.Table { return q.table }

// Schema returns the schema of the queried table, nil for the zero Query.
func (q Query) Schema() *schema.Schema {
	if q.table == nil {
		return nil
	}
	return q.table.Schema()
}

// Expression returns the compiled filter, nil when the query matches all.
func (q Query) Expression() Expression { return q.expr }

// And returns a copy of q narrowed by expr.
func (q Query) And(expr Expression) Query {
	if expr == nil {
		return q
	}
	if q.expr == nil {
		return Query{table: q.table, expr: expr}
	}
	return Query{table: q.table, expr: &AndNode{Left: q.expr, Right: expr}}
}

// AndText parses, compiles and conjoins predicate text onto q.
func (q Query) AndText(text string, args ...any) (Query, error) {
	expr, err := CompileText(q.Schema(), text, args...)
	if err != nil {
		return Query{}, err
	}
	return q.And(expr), nil
}

// Matches reports whether a single row satisfies the query.
func (q Query) Matches(row table.Row) bool {
	return q.expr == nil || q.expr.Evaluate(row)
}

// Run evaluates the query and returns the keys of matching attached rows
// in table order.
func (q Query) Run() []int {
	if q.table == nil {
		return nil
	}
	keys := make([]int, 0, q.table.Len())
	q.table.Scan(func(key int, row table.Row) bool {
		if q.Matches(row) {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Count returns the number of matching rows.
func (q Query) Count() int {
	return len(q.Run())
}

// String renders the filter for diagnostics.
func (q Query) String() string {
	if q.expr == nil {
		return "TRUEPREDICATE"
	}
	return q.expr.String()
}
