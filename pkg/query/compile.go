package query

import (
	"strings"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// Compile resolves a parse tree against a schema: property names become
// column positions, literals and placeholder arguments are converted to
// the property's type. Compilation fails up front for unknown properties,
// unconvertible values and missing arguments, so evaluation itself can
// never fail.
func Compile(ast *Predicate, s *schema.Schema, conv ArgumentConverter) (Expression, error) {
	if ast == nil || ast.Or == nil {
		return nil, errs.Argument("predicate must not be empty")
	}
	if s == nil {
		return nil, errs.Argument("predicate needs a schema to compile against")
	}
	c := &compiler{schema: s, conv: conv}
	return c.or(ast.Or)
}

// CompileText parses (through the AST cache) and compiles in one step.
func CompileText(s *schema.Schema, text string, args ...any) (Expression, error) {
	ast, err := ParseCached(text)
	if err != nil {
		return nil, err
	}
	return Compile(ast, s, Arguments(args...))
}

type compiler struct {
	schema *schema.Schema
	conv   ArgumentConverter
}

func (c *compiler) or(node *OrExpression) (Expression, error) {
	expr, err := c.and(node.Left)
	if err != nil {
		return nil, err
	}
	for _, right := range node.Right {
		r, err := c.and(right)
		if err != nil {
			return nil, err
		}
		expr = &OrNode{Left: expr, Right: r}
	}
	return expr, nil
}

func (c *compiler) and(node *AndExpression) (Expression, error) {
	expr, err := c.unary(node.Left)
	if err != nil {
		return nil, err
	}
	for _, right := range node.Right {
		r, err := c.unary(right)
		if err != nil {
			return nil, err
		}
		expr = &AndNode{Left: expr, Right: r}
	}
	return expr, nil
}

func (c *compiler) unary(node *UnaryExpression) (Expression, error) {
	if node.Not != nil {
		inner, err := c.unary(node.Not)
		if err != nil {
			return nil, err
		}
		return &NotNode{Inner: inner}, nil
	}
	return c.primary(node.Primary)
}

func (c *compiler) primary(node *PrimaryExpression) (Expression, error) {
	switch {
	case node.Always != nil:
		return &ConstNode{Value: strings.EqualFold(*node.Always, "TRUEPREDICATE")}, nil
	case node.Grouped != nil:
		return c.or(node.Grouped.Or)
	case node.Comparison != nil:
		return c.comparison(node.Comparison)
	}
	return nil, errs.Argument("empty predicate term")
}

func (c *compiler) comparison(node *Comparison) (Expression, error) {
	op, err := opFromToken(node.Op)
	if err != nil {
		return nil, err
	}

	left, err := c.operand(node.Left, node.Right)
	if err != nil {
		return nil, err
	}
	right, err := c.operand(node.Right, node.Left)
	if err != nil {
		return nil, err
	}

	if op >= opContains {
		if err := c.requireString(left, op); err != nil {
			return nil, err
		}
		if err := c.requireString(right, op); err != nil {
			return nil, err
		}
	}

	cond := &Condition{left: left, right: right, op: op}
	if left.col < 0 && right.col < 0 {
		// Both sides constant: fold to a constant predicate.
		return &ConstNode{Value: cond.Evaluate(table.Row{})}, nil
	}
	return cond, nil
}

// operand resolves one comparison side. The opposite side supplies the
// type hint: a literal compared against a property is converted to the
// property's type, and a placeholder takes the type of whatever it is
// compared with.
func (c *compiler) operand(node *Operand, other *Operand) (operand, error) {
	if node.Property != nil {
		name := *node.Property
		col, ok := c.schema.ColumnOf(name)
		if !ok {
			return operand{}, errs.Schema(name, c.schema.Name())
		}
		return columnOperand(col, name), nil
	}

	want, hinted := c.typeHint(other)

	if node.Placeholder != nil {
		pos := int(*node.Placeholder)
		if !hinted {
			return operand{}, errs.Argument("argument $%d must be compared with a property or literal", pos)
		}
		if c.conv == nil {
			return operand{}, errs.Argument("predicate references $%d but no arguments were supplied", pos)
		}
		v, err := c.conv.Literal(pos, want)
		if err != nil {
			return operand{}, err
		}
		return literalOperand(v), nil
	}

	v, err := literalValue(node, want, hinted)
	if err != nil {
		return operand{}, err
	}
	return literalOperand(v), nil
}

// typeHint returns the concrete type the other operand pins down, if any.
func (c *compiler) typeHint(other *Operand) (schema.Type, bool) {
	if other == nil {
		return schema.Invalid, false
	}
	switch {
	case other.Property != nil:
		if t, ok := c.schema.TypeOf(*other.Property); ok {
			return t, true
		}
		return schema.Invalid, false
	case other.Number != nil:
		return schema.Float, true
	case other.Str != nil:
		return schema.String, true
	case other.Boolean != nil:
		return schema.Bool, true
	}
	return schema.Invalid, false
}

// literalValue converts an inline literal, honoring the hinted property
// type so `age > 21` yields an int and `joined > '2024-01-01'` a
// timestamp.
func literalValue(node *Operand, want schema.Type, hinted bool) (table.Value, error) {
	var raw any
	switch {
	case node.Number != nil:
		raw = *node.Number
		if !hinted {
			want = schema.Float
		}
	case node.Str != nil:
		raw = *node.Str
		if !hinted {
			want = schema.String
		}
	case node.Boolean != nil:
		raw = bool(*node.Boolean)
		if !hinted {
			want = schema.Bool
		}
	case node.Null:
		return table.Null(want), nil
	default:
		return table.Value{}, errs.Argument("unsupported predicate operand")
	}

	v, err := table.FromGo(raw, want)
	if err != nil {
		return table.Value{}, errs.Argument("cannot compare a %s property with %v", want, raw)
	}
	return v, nil
}

func (c *compiler) requireString(o operand, op compareOp) error {
	if o.col >= 0 {
		if t := c.schema.PropertyAt(o.col).Type; t != schema.String {
			return errs.Argument("%s requires string operands, property '%s' is %s", op, o.name, t)
		}
		return nil
	}
	if o.lit.IsNull() || o.lit.Type() != schema.String {
		return errs.Argument("%s requires string operands, got %s", op, o.lit.Type())
	}
	return nil
}

func opFromToken(tok string) (compareOp, error) {
	switch strings.ToUpper(tok) {
	case "=", "==":
		return opEq, nil
	case "!=":
		return opNe, nil
	case "<":
		return opLt, nil
	case "<=":
		return opLe, nil
	case ">":
		return opGt, nil
	case ">=":
		return opGe, nil
	case "CONTAINS":
		return opContains, nil
	case "BEGINSWITH":
		return opBeginsWith, nil
	case "ENDSWITH":
		return opEndsWith, nil
	}
	return 0, errs.Argument("unsupported comparison operator %q", tok)
}
