package table

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bisegni/liveset/pkg/errs"
	"github.com/bisegni/liveset/pkg/schema"
)

// Value is a single typed cell. The zero Value is an invalid-typed null;
// real cells always carry the declared type of their column, with null
// tracked separately so a null int stays an int.
type Value struct {
	typ  schema.Type
	null bool
	b    bool
	i    int64
	f    float64
	s    string
	t    time.Time
}

// Null returns a typed null for the given property type.
func Null(t schema.Type) Value { return Value{typ: t, null: true} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{typ: schema.Bool, b: b} }

// IntValue wraps an int64.
func IntValue(i int64) Value { return Value{typ: schema.Int, i: i} }

// FloatValue wraps a float64.
func FloatValue(f float64) Value { return Value{typ: schema.Float, f: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{typ: schema.String, s: s} }

// TimeValue wraps a timestamp, normalized to UTC.
func TimeValue(t time.Time) Value { return Value{typ: schema.Timestamp, t: t.UTC()} }

// Type returns the declared type of the cell.
func (v Value) Type() schema.Type { return v.typ }

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool { return v.null || v.typ == schema.Invalid }

// Bool returns the boolean payload. Meaningful only for Bool cells.
func (v Value) Bool() bool { return v.b }

// Int returns the integer payload. Meaningful only for Int cells.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Meaningful only for Float cells.
func (v Value) Float() float64 { return v.f }

// Str returns the string payload. Meaningful only for String cells.
func (v Value) Str() string { return v.s }

// Time returns the timestamp payload. Meaningful only for Timestamp cells.
func (v Value) Time() time.Time { return v.t }

// Go unwraps the cell into a plain Go value, nil for nulls.
func (v Value) Go() any {
	if v.IsNull() {
		return nil
	}
	switch v.typ {
	case schema.Bool:
		return v.b
	case schema.Int:
		return v.i
	case schema.Float:
		return v.f
	case schema.String:
		return v.s
	case schema.Timestamp:
		return v.t
	}
	return nil
}

// String renders the cell for diagnostics and REPL output.
func (v Value) String() string {
	if v.IsNull() {
		return "null"
	}
	switch v.typ {
	case schema.Bool:
		if v.b {
			return "true"
		}
		return "false"
	case schema.Int:
		return strconv.FormatInt(v.i, 10)
	case schema.Float:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case schema.String:
		return v.s
	case schema.Timestamp:
		return v.t.Format(time.RFC3339Nano)
	}
	return "invalid"
}

// FromGo converts a plain Go value into a cell of the wanted type.
// Conversions are strict: a value either represents the declared type
// exactly or the conversion fails. The only latitude given is for JSON
// decoding artifacts, where numbers arrive as float64 or json.Number and
// timestamps arrive as RFC 3339 text or epoch seconds.
func FromGo(v any, want schema.Type) (Value, error) {
	if v == nil {
		return Null(want), nil
	}
	switch want {
	case schema.Bool:
		if b, ok := v.(bool); ok {
			return BoolValue(b), nil
		}
	case schema.Int:
		switch n := v.(type) {
		case int:
			return IntValue(int64(n)), nil
		case int8:
			return IntValue(int64(n)), nil
		case int16:
			return IntValue(int64(n)), nil
		case int32:
			return IntValue(int64(n)), nil
		case int64:
			return IntValue(n), nil
		case uint:
			if uint64(n) > math.MaxInt64 {
				return Value{}, errs.Conversion("", "unsigned value %d overflows int", n)
			}
			return IntValue(int64(n)), nil
		case uint8:
			return IntValue(int64(n)), nil
		case uint16:
			return IntValue(int64(n)), nil
		case uint32:
			return IntValue(int64(n)), nil
		case uint64:
			if n > math.MaxInt64 {
				return Value{}, errs.Conversion("", "unsigned value %d overflows int", n)
			}
			return IntValue(int64(n)), nil
		case float64:
			if n != math.Trunc(n) || math.Abs(n) >= math.MaxInt64 {
				return Value{}, errs.Conversion("", "number %v is not an integer", n)
			}
			return IntValue(int64(n)), nil
		case float32:
			return FromGo(float64(n), want)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return IntValue(i), nil
			}
			return Value{}, errs.Conversion("", "number %s is not an integer", n)
		}
	case schema.Float:
		switch n := v.(type) {
		case float64:
			return FloatValue(n), nil
		case float32:
			return FloatValue(float64(n)), nil
		case int:
			return FloatValue(float64(n)), nil
		case int32:
			return FloatValue(float64(n)), nil
		case int64:
			return FloatValue(float64(n)), nil
		case json.Number:
			if f, err := n.Float64(); err == nil {
				return FloatValue(f), nil
			}
			return Value{}, errs.Conversion("", "number %s is not a float", n)
		}
	case schema.String:
		if s, ok := v.(string); ok {
			return StringValue(s), nil
		}
	case schema.Timestamp:
		switch ts := v.(type) {
		case time.Time:
			return TimeValue(ts), nil
		case string:
			if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				return TimeValue(parsed), nil
			}
			if parsed, err := time.Parse("2006-01-02", ts); err == nil {
				return TimeValue(parsed), nil
			}
			return Value{}, errs.Conversion("", "cannot parse %q as a timestamp", ts)
		case int64:
			return TimeValue(time.Unix(ts, 0)), nil
		case int:
			return TimeValue(time.Unix(int64(ts), 0)), nil
		case float64:
			if ts != math.Trunc(ts) {
				sec, frac := math.Modf(ts)
				return TimeValue(time.Unix(int64(sec), int64(frac*float64(time.Second)))), nil
			}
			return TimeValue(time.Unix(int64(ts), 0)), nil
		case json.Number:
			if i, err := ts.Int64(); err == nil {
				return TimeValue(time.Unix(i, 0)), nil
			}
		}
	}
	return Value{}, errs.Conversion("", "cannot convert %T (%v) to %s", v, v, want)
}

// Compare orders two cells. Nulls sort before every concrete value, and
// cells of different types order by type so the comparison stays total.
func Compare(a, b Value) int {
	an, bn := a.IsNull(), b.IsNull()
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	if a.typ != b.typ {
		return cmpInt(int64(a.typ), int64(b.typ))
	}
	switch a.typ {
	case schema.Bool:
		return cmpBool(a.b, b.b)
	case schema.Int:
		return cmpInt(a.i, b.i)
	case schema.Float:
		return cmpFloat(a.f, b.f)
	case schema.String:
		return strings.Compare(a.s, b.s)
	case schema.Timestamp:
		return a.t.Compare(b.t)
	}
	return 0
}

// Equal reports whether two cells hold the same value. Two nulls are equal.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
