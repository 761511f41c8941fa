package table

import (
	"github.com/bisegni/liveset/pkg/errs"
)

// Row is a lightweight accessor for one table slot. It stays cheap to
// copy and remains usable after the underlying row is deleted, in which
// case Attached reports false and reads return the last stored values.
type Row struct {
	table *Table
	key   int
}

// Key returns the stable row key inside the table.
func (r Row) Key() int { return r.key }

// Table returns the owning table, nil for the zero Row.
func (r Row) Table() *Table { return r.table }

// Attached reports whether the row still exists in its table.
func (r Row) Attached() bool {
	if r.table == nil {
		return false
	}
	return r.table.Attached(r.key)
}

// Value reads the cell at column position col.
func (r Row) Value(col int) Value {
	if r.table == nil {
		return Value{}
	}
	return r.table.valueAt(r.key, col)
}

// Get reads the cell for a named property.
func (r Row) Get(property string) (Value, error) {
	if r.table == nil {
		return Value{}, errs.Argument("row is not bound to a table")
	}
	col, ok := r.table.schema.ColumnOf(property)
	if !ok {
		return Value{}, errs.Schema(property, r.table.schema.Name())
	}
	return r.Value(col), nil
}

// Record materializes the row as an ordered record following the schema's
// property order.
func (r Row) Record() Record {
	if r.table == nil {
		return nil
	}
	s := r.table.schema
	rec := make(Record, 0, s.Len())
	for col := 0; col < s.Len(); col++ {
		rec = append(rec, Field{Key: s.PropertyAt(col).Name, Value: r.Value(col).Go()})
	}
	return rec
}
