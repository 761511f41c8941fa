package results

import (
	"sort"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// Descriptor names a property to order by. Descriptors are resolved
// against the schema when Sorted is called, so a bad property name fails
// there and never at access time.
type Descriptor struct {
	Property  string
	Ascending bool
}

// sortKey is a resolved descriptor: column position instead of name.
type sortKey struct {
	column    int
	ascending bool
}

func resolveDescriptors(s *schema.Schema, descriptors []Descriptor) ([]sortKey, error) {
	if len(descriptors) == 0 {
		return nil, errs.Argument("sort descriptor list must not be empty")
	}
	if s == nil {
		return nil, errs.Argument("results have no schema to sort by")
	}
	keys := make([]sortKey, len(descriptors))
	for i, d := range descriptors {
		col, ok := s.ColumnOf(d.Property)
		if !ok {
			return nil, errs.Schema(d.Property, s.Name())
		}
		keys[i] = sortKey{column: col, ascending: d.Ascending}
	}
	return keys, nil
}

// sortRows orders row keys by the given sort keys. The sort is stable, so
// rows that compare equal on every key keep their table order.
func sortRows(t *table.Table, rowKeys []int, keys []sortKey) {
	if t == nil || len(keys) == 0 {
		return
	}
	sort.SliceStable(rowKeys, func(i, j int) bool {
		for _, k := range keys {
			c := table.Compare(valueAt(t, rowKeys[i], k.column), valueAt(t, rowKeys[j], k.column))
			if c == 0 {
				continue
			}
			if k.ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

func valueAt(t *table.Table, key, col int) table.Value {
	row, _ := t.Row(key)
	return row.Value(col)
}
