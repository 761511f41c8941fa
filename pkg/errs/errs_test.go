package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageIncludesKind(t *testing.T) {
	err := Schema("color", "Item")
	want := "[schema] property 'color' does not exist on object type 'Item'"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestIsMatchesOnKind(t *testing.T) {
	err := OutOfRange(5, 3)
	if !errors.Is(err, &Error{Kind: KindIndexOutOfRange}) {
		t.Error("expected Is to match errors of the same kind")
	}
	if errors.Is(err, &Error{Kind: KindSchema}) {
		t.Error("expected Is to reject errors of a different kind")
	}
}

func TestIsKindSeesThroughWrapping(t *testing.T) {
	inner := TypeNotFound("Person")
	wrapped := fmt.Errorf("loading registry: %w", inner)

	if !IsKind(wrapped, KindTypeNotFound) {
		t.Error("IsKind should unwrap to the engine error")
	}
	if IsKind(wrapped, KindArgument) {
		t.Error("IsKind matched the wrong kind")
	}
	if IsKind(errors.New("plain"), KindTypeNotFound) {
		t.Error("IsKind matched a foreign error")
	}
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk gone")
	err := IO(cause, "reading %s", "data.jsonl")
	if !errors.Is(err, cause) {
		t.Error("expected the cause to be reachable via errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"argument", Argument("missing predicate"), KindArgument},
		{"conversion", Conversion("age", "cannot store %q", "abc"), KindConversion},
		{"constraint", Constraint("required field absent"), KindConstraint},
		{"foreign", errors.New("nope"), Kind("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOutOfRangeCarriesIndex(t *testing.T) {
	err := OutOfRange(9, 2)
	if err.Index != 9 {
		t.Errorf("Index = %d, want 9", err.Index)
	}
}
