package table

import (
	"github.com/bisegni/liveset/pkg/errs"
)

// List is an explicit, ordered subset of one table's rows, the in-memory
// analogue of a to-many link. Lists hold row keys, not copies, so a listed
// row that is later deleted simply stops matching.
type List struct {
	table *Table
	keys  []int
}

// NewList builds a list over t containing the given row keys. Keys must
// reference slots that exist at call time.
func NewList(t *Table, keys ...int) (*List, error) {
	if t == nil {
		return nil, errs.Argument("list requires a table")
	}
	l := &List{table: t}
	for _, key := range keys {
		if err := l.Append(key); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Table returns the table the list points into.
func (l *List) Table() *Table { return l.table }

// Len returns the number of listed keys, including ones whose rows have
// since been deleted.
func (l *List) Len() int { return len(l.keys) }

// Keys returns a copy of the listed row keys in list order.
func (l *List) Keys() []int {
	out := make([]int, len(l.keys))
	copy(out, l.keys)
	return out
}

// Append adds a row key to the end of the list.
func (l *List) Append(key int) error {
	if key < 0 || key >= l.table.Slots() {
		return errs.Argument("row %d does not exist in table '%s'", key, l.table.Name())
	}
	l.keys = append(l.keys, key)
	return nil
}

// Remove drops the entry at list position pos.
func (l *List) Remove(pos int) error {
	if pos < 0 || pos >= len(l.keys) {
		return errs.OutOfRange(pos, len(l.keys))
	}
	l.keys = append(l.keys[:pos], l.keys[pos+1:]...)
	return nil
}
