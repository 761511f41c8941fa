package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// Expression is a compiled boolean predicate evaluated against one row.
// Property references are already resolved to column positions, so
// evaluation never touches the schema.
type Expression interface {
	Evaluate(row table.Row) bool
	String() string
}

type compareOp uint8

const (
	opEq compareOp = iota
	opNe
	opLt
	opLe
	opGt
	opGe
	opContains
	opBeginsWith
	opEndsWith
)

var opNames = map[compareOp]string{
	opEq:         "==",
	opNe:         "!=",
	opLt:         "<",
	opLe:         "<=",
	opGt:         ">",
	opGe:         ">=",
	opContains:   "CONTAINS",
	opBeginsWith: "BEGINSWITH",
	opEndsWith:   "ENDSWITH",
}

func (o compareOp) String() string { return opNames[o] }

// operand is one resolved side of a comparison: either a column
// reference or a constant value.
type operand struct {
	col  int // -1 for constants
	name string
	lit  table.Value
}

func columnOperand(col int, name string) operand {
	return operand{col: col, name: name}
}

func literalOperand(v table.Value) operand {
	return operand{col: -1, lit: v}
}

func (o operand) resolve(row table.Row) table.Value {
	if o.col < 0 {
		return o.lit
	}
	return row.Value(o.col)
}

func (o operand) String() string {
	if o.col < 0 {
		if o.lit.Type() == schema.String && !o.lit.IsNull() {
			return "'" + o.lit.Str() + "'"
		}
		return o.lit.String()
	}
	return o.name
}

// Condition is a leaf comparison between two operands. Ordering
// comparisons against null are false; equality treats null as a regular
// value, so `x == NULL` matches null cells and `x != NULL` matches the
// rest.
type Condition struct {
	left  operand
	right operand
	op    compareOp
}

func (c *Condition) Evaluate(row table.Row) bool {
	l := c.left.resolve(row)
	r := c.right.resolve(row)

	switch c.op {
	case opEq:
		return table.Equal(l, r)
	case opNe:
		return !table.Equal(l, r)
	}

	if l.IsNull() || r.IsNull() {
		return false
	}
	switch c.op {
	case opLt:
		return table.Compare(l, r) < 0
	case opLe:
		return table.Compare(l, r) <= 0
	case opGt:
		return table.Compare(l, r) > 0
	case opGe:
		return table.Compare(l, r) >= 0
	case opContains:
		return strings.Contains(l.Str(), r.Str())
	case opBeginsWith:
		return strings.HasPrefix(l.Str(), r.Str())
	case opEndsWith:
		return strings.HasSuffix(l.Str(), r.Str())
	}
	return false
}

func (c *Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.left, c.op, c.right)
}

// AndNode is a logical conjunction.
type AndNode struct {
	Left  Expression
	Right Expression
}

func (a *AndNode) Evaluate(row table.Row) bool {
	return a.Left.Evaluate(row) && a.Right.Evaluate(row)
}

func (a *AndNode) String() string {
	return fmt.Sprintf("(%s AND %s)", a.Left, a.Right)
}

// OrNode is a logical disjunction.
type OrNode struct {
	Left  Expression
	Right Expression
}

func (o *OrNode) Evaluate(row table.Row) bool {
	return o.Left.Evaluate(row) || o.Right.Evaluate(row)
}

func (o *OrNode) String() string {
	return fmt.Sprintf("(%s OR %s)", o.Left, o.Right)
}

// NotNode negates its inner expression.
type NotNode struct {
	Inner Expression
}

func (n *NotNode) Evaluate(row table.Row) bool {
	return !n.Inner.Evaluate(row)
}

func (n *NotNode) String() string {
	return fmt.Sprintf("NOT %s", n.Inner)
}

// ConstNode matches everything or nothing.
type ConstNode struct {
	Value bool
}

func (c *ConstNode) Evaluate(table.Row) bool { return c.Value }

func (c *ConstNode) String() string {
	if c.Value {
		return "TRUEPREDICATE"
	}
	return "FALSEPREDICATE"
}

// KeySetNode matches rows whose key is in a fixed set. It anchors
// results built from explicit lists.
type KeySetNode struct {
	keys map[int]struct{}
}

// KeySet builds an expression matching exactly the given row keys.
func KeySet(keys []int) *KeySetNode {
	set := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return &KeySetNode{keys: set}
}

func (k *KeySetNode) Evaluate(row table.Row) bool {
	_, ok := k.keys[row.Key()]
	return ok
}

func (k *KeySetNode) String() string {
	keys := make([]int, 0, len(k.keys))
	for key := range k.keys {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = fmt.Sprint(key)
	}
	return "rows(" + strings.Join(parts, ", ") + ")"
}
