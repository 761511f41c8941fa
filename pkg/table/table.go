// Package table implements the in-memory row store the results engine
// reads from: typed tables with stable row keys, tombstone deletion, and
// a version counter that lets live views detect staleness cheaply.
package table

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
)

// tagProperty stamps a conversion failure with the property it happened
// on, keeping a single readable message instead of nested wrapping.
func tagProperty(err error, property string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		e.Property = property
		e.Detail = fmt.Sprintf("property '%s': %s", property, e.Detail)
		return e
	}
	return err
}

type slot struct {
	values   []Value
	attached bool
}

// Table is a mutable collection of rows laid out per its schema. Row keys
// are physical slot positions and never move: deletion tombstones the
// slot instead of compacting, so references held by snapshots stay valid
// and simply report the row as detached.
//
// Table methods are safe for concurrent readers; writes are expected to
// be serialized by the caller, matching a single-writer storage model.
type Table struct {
	mu      sync.RWMutex
	schema  *schema.Schema
	slots   []slot
	version uint64
	live    int
}

// New creates an empty table for the given schema.
func New(s *schema.Schema) *Table {
	return &Table{schema: s}
}

// Schema returns the table's object type layout.
func (t *Table) Schema() *schema.Schema { return t.schema }

// Name returns the object type name of the table.
func (t *Table) Name() string { return t.schema.Name() }

// Version returns a counter incremented by every successful mutation.
func (t *Table) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Len returns the number of attached rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Slots returns the total number of slots, attached or not.
func (t *Table) Slots() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.slots)
}

// ValuesFor converts a decoded record into column-ordered cells for the
// schema. Missing properties become typed nulls; unknown keys are
// rejected so typos surface instead of silently dropping data.
func ValuesFor(s *schema.Schema, record map[string]any) ([]Value, error) {
	for key := range record {
		if _, ok := s.ColumnOf(key); !ok {
			return nil, errs.Schema(key, s.Name())
		}
	}
	values := make([]Value, s.Len())
	for col := 0; col < s.Len(); col++ {
		prop := s.PropertyAt(col)
		raw, present := record[prop.Name]
		if !present {
			values[col] = Null(prop.Type)
			continue
		}
		v, err := FromGo(raw, prop.Type)
		if err != nil {
			return nil, tagProperty(err, prop.Name)
		}
		values[col] = v
	}
	return values, nil
}

// Insert adds a record and returns its row key.
func (t *Table) Insert(record map[string]any) (int, error) {
	values, err := ValuesFor(t.schema, record)
	if err != nil {
		return 0, err
	}
	return t.InsertValues(values)
}

// InsertValues adds a pre-converted row and returns its key. The slice is
// owned by the table after the call.
func (t *Table) InsertValues(values []Value) (int, error) {
	if len(values) != t.schema.Len() {
		return 0, errs.Argument("row has %d values, schema '%s' has %d properties",
			len(values), t.schema.Name(), t.schema.Len())
	}
	for col, v := range values {
		if want := t.schema.PropertyAt(col).Type; !v.IsNull() && v.Type() != want {
			return 0, errs.Conversion(t.schema.PropertyAt(col).Name,
				"column %d holds %s, schema wants %s", col, v.Type(), want)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = append(t.slots, slot{values: values, attached: true})
	t.live++
	t.version++
	return len(t.slots) - 1, nil
}

// Set updates one property of an attached row.
func (t *Table) Set(key int, property string, value any) error {
	col, ok := t.schema.ColumnOf(property)
	if !ok {
		return errs.Schema(property, t.schema.Name())
	}
	v, err := FromGo(value, t.schema.PropertyAt(col).Type)
	if err != nil {
		return tagProperty(err, property)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if key < 0 || key >= len(t.slots) || !t.slots[key].attached {
		return errs.Argument("row %d is not attached to table '%s'", key, t.schema.Name())
	}
	t.slots[key].values[col] = v
	t.version++
	return nil
}

// Delete tombstones a row. Its slot and key remain valid but the row is
// reported as detached from then on.
func (t *Table) Delete(key int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if key < 0 || key >= len(t.slots) || !t.slots[key].attached {
		return errs.Argument("row %d is not attached to table '%s'", key, t.schema.Name())
	}
	t.slots[key].attached = false
	t.live--
	t.version++
	return nil
}

// Row returns an accessor for the row at key. The second result is false
// when the key is out of the slot range or the row has been deleted.
func (t *Table) Row(key int) (Row, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if key < 0 || key >= len(t.slots) {
		return Row{}, false
	}
	return Row{table: t, key: key}, t.slots[key].attached
}

// Attached reports whether the row at key currently exists.
func (t *Table) Attached(key int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return key >= 0 && key < len(t.slots) && t.slots[key].attached
}

// Scan walks attached rows in key order, stopping early if fn returns
// false. The lock is not held across fn, so fn may read row values
// through the usual accessors.
func (t *Table) Scan(fn func(key int, row Row) bool) {
	t.mu.RLock()
	n := len(t.slots)
	t.mu.RUnlock()
	for key := 0; key < n; key++ {
		t.mu.RLock()
		ok := t.slots[key].attached
		t.mu.RUnlock()
		if !ok {
			continue
		}
		if !fn(key, Row{table: t, key: key}) {
			return
		}
	}
}

// Keys returns the keys of all attached rows in slot order.
func (t *Table) Keys() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]int, 0, t.live)
	for key, s := range t.slots {
		if s.attached {
			keys = append(keys, key)
		}
	}
	return keys
}

func (t *Table) valueAt(key, col int) Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if key < 0 || key >= len(t.slots) {
		return Value{}
	}
	values := t.slots[key].values
	if col < 0 || col >= len(values) {
		return Value{}
	}
	return values[col]
}
