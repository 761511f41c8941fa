// Package results implements lazily evaluated views over tables. A view
// holds a query plus an optional ordering and resolves membership only
// when accessed: live views re-run their query whenever the table has
// changed since the last access, snapshots keep the row set they were
// frozen with.
//
// Views are cheap handles meant for a single caller; the tables they read
// are safe to share.
package results

import (
	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/query"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"

	"go.uber.org/zap"
)

// Mode tells whether a view tracks table mutations or stays frozen.
type Mode uint8

const (
	// Live views re-evaluate membership and order on access.
	Live Mode = iota
	// Snapshot views keep the membership captured at freeze time.
	// Rows deleted afterwards still occupy their position and read as
	// absent. A snapshot never becomes live again.
	Snapshot
)

func (m Mode) String() string {
	if m == Snapshot {
		return "snapshot"
	}
	return "live"
}

// Results is a view over the rows matching a query, in an optional order.
type Results struct {
	query query.Query
	order []sortKey
	mode  Mode

	// frozen is the ordered membership of a snapshot.
	frozen []int

	// cached memoizes the last live evaluation together with the table
	// version it was computed at.
	cached   []int
	cachedAt uint64
	hasCache bool
}

// New builds a live view over every row of t.
func New(t *table.Table) *Results {
	return FromQuery(query.New(t), true)
}

// FromQuery builds a view over the rows matching q. A non-live view is
// frozen immediately, capturing the rows matching at call time.
func FromQuery(q query.Query, live bool) *Results {
	r := &Results{query: q, mode: Live}
	if !live {
		return r.Snapshot()
	}
	return r
}

// FromList builds a view over the rows of an explicit list, preserving
// the list's membership semantics: listed rows that are later deleted
// stop matching in a live view.
func FromList(l *table.List, live bool) (*Results, error) {
	if l == nil {
		return nil, errs.Argument("results need a list to read from")
	}
	q := query.New(l.Table()).And(query.KeySet(l.Keys()))
	return FromQuery(q, live), nil
}

// ByType builds a view over every row of the named object type.
func ByType(reg *table.Registry, name string, live bool) (*Results, error) {
	if reg == nil {
		return nil, errs.Argument("results need a registry to resolve type names")
	}
	t, err := reg.Lookup(name)
	if err != nil {
		return nil, err
	}
	return FromQuery(query.New(t), live), nil
}

// Mode reports whether the view is live or a snapshot.
func (r *Results) Mode() Mode { return r.mode }

// Table returns the table the view reads from.
func (r *Results) Table() *table.Table { return r.query.Table() }

// Schema returns the object type layout of the viewed rows.
func (r *Results) Schema() *schema.Schema { return r.query.Schema() }

// Query returns the underlying query, useful for diagnostics.
func (r *Results) Query() query.Query { return r.query }

// rows resolves the current ordered membership. Snapshots return their
// frozen set; live views reuse the memoized evaluation until the table
// version moves.
func (r *Results) rows() []int {
	if r.mode == Snapshot {
		return r.frozen
	}
	t := r.query.Table()
	if t == nil {
		return nil
	}
	version := t.Version()
	if r.hasCache && r.cachedAt == version {
		return r.cached
	}
	keys := r.query.Run()
	sortRows(t, keys, r.order)
	r.cached, r.cachedAt, r.hasCache = keys, version, true
	Logger().Debug("evaluated live view",
		zap.String("type", t.Name()),
		zap.Int("rows", len(keys)),
		zap.Uint64("version", version))
	return keys
}

// Size returns the number of positions in the view. For snapshots this
// includes rows that have since been deleted.
func (r *Results) Size() int {
	return len(r.rows())
}

// Keys returns a copy of the current ordered row keys.
func (r *Results) Keys() []int {
	rows := r.rows()
	out := make([]int, len(rows))
	copy(out, rows)
	return out
}

// Get returns the row at position i. The bool result is false when the
// position is valid but the row no longer exists, which only snapshots
// can observe under a single writer. An index outside [0, Size()) is an
// error.
func (r *Results) Get(i int) (table.Row, bool, error) {
	rows := r.rows()
	if i < 0 || i >= len(rows) {
		return table.Row{}, false, errs.OutOfRange(i, len(rows))
	}
	t := r.query.Table()
	if t == nil {
		return table.Row{}, false, errs.OutOfRange(i, 0)
	}
	row, attached := t.Row(rows[i])
	if !attached {
		return table.Row{}, false, nil
	}
	return row, true, nil
}

// Each walks the view in order. Absent rows are reported with a zero Row
// and attached=false. Iteration stops early when fn returns false.
func (r *Results) Each(fn func(i int, row table.Row, attached bool) bool) {
	t := r.query.Table()
	for i, key := range r.rows() {
		var row table.Row
		var attached bool
		if t != nil {
			row, attached = t.Row(key)
		}
		if !attached {
			row = table.Row{}
		}
		if !fn(i, row, attached) {
			return
		}
	}
}

// Filtered narrows the view with predicate text, binding $n placeholders
// from args. The predicate is conjoined onto the existing query, so
// chained calls only ever narrow. The new view is live and keeps the
// receiver's ordering; filtering a snapshot therefore re-attaches the
// result to the table.
func (r *Results) Filtered(text string, args ...any) (*Results, error) {
	q, err := r.query.AndText(text, args...)
	if err != nil {
		return nil, err
	}
	return &Results{query: q, order: r.order, mode: Live}, nil
}

// Sorted returns a live view ordered by the given descriptors, most
// significant first. It replaces any previous ordering. Descriptors are
// resolved against the schema immediately.
func (r *Results) Sorted(descriptors ...Descriptor) (*Results, error) {
	keys, err := resolveDescriptors(r.Schema(), descriptors)
	if err != nil {
		return nil, err
	}
	return &Results{query: r.query, order: keys, mode: Live}, nil
}

// Snapshot freezes the view's current membership and order. The result
// never changes again: rows deleted later read as absent but keep their
// position. Snapshotting a snapshot copies it.
func (r *Results) Snapshot() *Results {
	rows := r.rows()
	frozen := make([]int, len(rows))
	copy(frozen, rows)
	if t := r.query.Table(); t != nil {
		Logger().Debug("froze snapshot",
			zap.String("type", t.Name()),
			zap.Int("rows", len(frozen)))
	}
	return &Results{query: r.query, order: r.order, mode: Snapshot, frozen: frozen}
}
