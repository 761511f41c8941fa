// Package query parses predicate strings and compiles them against a
// schema into evaluable filter expressions. The predicate language is a
// small comparison grammar: typed literals, property references,
// positional placeholders ($0, $1, ...), string matching operators and
// boolean combinators.
package query

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bisegni/liveset/pkg/errs"
)

// predicateLexer tokenizes predicate text. Keywords are matched before
// identifiers so property names cannot shadow them.
var predicateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Keyword", Pattern: `(?i)\b(TRUEPREDICATE|FALSEPREDICATE|BEGINSWITH|ENDSWITH|CONTAINS|AND|OR|NOT|TRUE|FALSE|NULL)\b`},
	{Name: "Placeholder", Pattern: `\$\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Number", Pattern: `[-+]?\d*\.?\d+`},
	{Name: "String", Pattern: `'[^']*'|"[^"]*"`},
	{Name: "Operators", Pattern: `==|!=|<=|>=|&&|\|\||[!=<>()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Predicate is the parse tree of a predicate string.
type Predicate struct {
	Or *OrExpression `parser:"@@"`
}

// OrExpression is a disjunction of conjunctions.
type OrExpression struct {
	Left  *AndExpression   `parser:"@@"`
	Right []*AndExpression `parser:"(('OR' | '||') @@)*"`
}

// AndExpression is a conjunction of unary terms.
type AndExpression struct {
	Left  *UnaryExpression   `parser:"@@"`
	Right []*UnaryExpression `parser:"(('AND' | '&&') @@)*"`
}

// UnaryExpression is an optionally negated primary term.
type UnaryExpression struct {
	Not     *UnaryExpression   `parser:"  ('NOT' | '!') @@"`
	Primary *PrimaryExpression `parser:"| @@"`
}

// PrimaryExpression is a constant predicate, a parenthesized predicate,
// or a comparison.
type PrimaryExpression struct {
	Always     *string     `parser:"  @('TRUEPREDICATE' | 'FALSEPREDICATE')"`
	Grouped    *Predicate  `parser:"| '(' @@ ')'"`
	Comparison *Comparison `parser:"| @@"`
}

// Comparison relates two operands.
type Comparison struct {
	Left  *Operand `parser:"@@"`
	Op    string   `parser:"@('==' | '=' | '!=' | '>=' | '<=' | '>' | '<' | 'CONTAINS' | 'BEGINSWITH' | 'ENDSWITH')"`
	Right *Operand `parser:"@@"`
}

// Operand is one side of a comparison: a literal, a placeholder, or a
// property reference.
type Operand struct {
	Number      *float64     `parser:"  @Number"`
	Str         *string      `parser:"| @String"`
	Boolean     *Boolean     `parser:"| @('TRUE' | 'FALSE')"`
	Null        bool         `parser:"| @'NULL'"`
	Placeholder *Placeholder `parser:"| @Placeholder"`
	Property    *string      `parser:"| @Ident"`
}

// Boolean captures TRUE/FALSE keywords in any case.
type Boolean bool

// Capture implements participle's capture hook.
func (b *Boolean) Capture(values []string) error {
	*b = strings.EqualFold(values[0], "true")
	return nil
}

// Placeholder captures a $n token as its argument position.
type Placeholder int

// Capture implements participle's capture hook.
func (p *Placeholder) Capture(values []string) error {
	n, err := strconv.Atoi(strings.TrimPrefix(values[0], "$"))
	if err != nil {
		return err
	}
	*p = Placeholder(n)
	return nil
}

var predicateParser = participle.MustBuild[Predicate](
	participle.Lexer(predicateLexer),
	participle.Unquote("String"),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse turns predicate text into a parse tree.
func Parse(text string) (*Predicate, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Argument("predicate must not be empty")
	}
	ast, err := predicateParser.ParseString("", text)
	if err != nil {
		return nil, errs.Syntax(text, err)
	}
	return ast, nil
}

// astCache memoizes parse trees by predicate text. Trees are read-only
// after parsing, so sharing them between callers is safe. Compiled
// expressions are never cached: they bind schema columns and argument
// values, which differ per call.
var astCache, _ = lru.New[string, *Predicate](256)

// ParseCached is Parse behind a small LRU keyed by the raw text.
func ParseCached(text string) (*Predicate, error) {
	if ast, ok := astCache.Get(text); ok {
		return ast, nil
	}
	ast, err := Parse(text)
	if err != nil {
		return nil, err
	}
	astCache.Add(text, ast)
	return ast, nil
}
