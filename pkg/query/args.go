package query

import (
	"errors"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
	"github.com/bisegni/liveset/pkg/table"
)

// ArgumentConverter supplies typed values for predicate placeholders.
// Compilation asks for each $n exactly once, passing the type the
// surrounding comparison requires. Implementations adapt whatever value
// representation the caller works in (plain Go values, decoded JSON,
// database rows) without the compiler knowing about it.
type ArgumentConverter interface {
	Literal(pos int, want schema.Type) (table.Value, error)
}

type goArguments struct {
	args []any
}

// Arguments adapts plain Go values as placeholder arguments: $0 is
// args[0] and so on. Conversions follow the same strict rules as stored
// values.
func Arguments(args ...any) ArgumentConverter {
	return goArguments{args: args}
}

func (g goArguments) Literal(pos int, want schema.Type) (table.Value, error) {
	if pos < 0 || pos >= len(g.args) {
		return table.Value{}, errs.Argument(
			"predicate references $%d but only %d argument(s) were supplied", pos, len(g.args))
	}
	v, err := table.FromGo(g.args[pos], want)
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) {
			return table.Value{}, errs.Argument("argument $%d: %s", pos, e.Detail)
		}
		return table.Value{}, errs.Argument("argument $%d: %v", pos, err)
	}
	return v, nil
}
