// Package schema describes the shape of an object type: an ordered list
// of typed properties plus an optional primary key. Schemas are built once
// and treated as immutable afterwards, which lets queries and sort
// descriptors resolve property names to column positions up front.
package schema

import (
	"fmt"

	"github.com/bisegni/liveset/pkg/errs"
)

// Type enumerates the value types a property can hold.
type Type uint8

const (
	Invalid Type = iota
	Bool
	Int
	Float
	String
	Timestamp
)

var typeNames = map[Type]string{
	Invalid:   "invalid",
	Bool:      "bool",
	Int:       "int",
	Float:     "float",
	String:    "string",
	Timestamp: "timestamp",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// TypeFromName maps a textual type name (as used in CLI schema specs)
// back to a Type.
func TypeFromName(name string) (Type, bool) {
	for t, n := range typeNames {
		if n == name && t != Invalid {
			return t, true
		}
	}
	return Invalid, false
}

// Property is a single named, typed column of an object type.
type Property struct {
	Name string
	Type Type
}

// Schema is the resolved layout of an object type. The property order is
// the column order of the backing table.
type Schema struct {
	name       string
	primaryKey string
	props      []Property
	byName     map[string]int
}

// New builds a schema from an object type name and its properties.
// Property names must be unique and types valid.
func New(name string, props ...Property) (*Schema, error) {
	if name == "" {
		return nil, errs.Argument("object type name must not be empty")
	}
	if len(props) == 0 {
		return nil, errs.Argument("object type '%s' must declare at least one property", name)
	}
	s := &Schema{
		name:   name,
		props:  make([]Property, len(props)),
		byName: make(map[string]int, len(props)),
	}
	for i, p := range props {
		if p.Name == "" {
			return nil, errs.Argument("object type '%s': property %d has no name", name, i)
		}
		if p.Type == Invalid || p.Type > Timestamp {
			return nil, errs.Argument("object type '%s': property '%s' has invalid type", name, p.Name)
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, errs.Argument("object type '%s': duplicate property '%s'", name, p.Name)
		}
		s.props[i] = p
		s.byName[p.Name] = i
	}
	return s, nil
}

// MustNew is New for statically known schemas, panicking on error.
func MustNew(name string, props ...Property) *Schema {
	s, err := New(name, props...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithPrimaryKey marks an existing string or int property as the primary
// key and returns the schema for chaining.
func (s *Schema) WithPrimaryKey(property string) (*Schema, error) {
	col, ok := s.byName[property]
	if !ok {
		return nil, errs.Schema(property, s.name)
	}
	if t := s.props[col].Type; t != String && t != Int {
		return nil, errs.Argument("primary key '%s' must be a string or int property, got %s", property, t)
	}
	s.primaryKey = property
	return s, nil
}

// Name returns the object type name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of properties.
func (s *Schema) Len() int { return len(s.props) }

// Properties returns a copy of the property list in column order.
func (s *Schema) Properties() []Property {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out
}

// PropertyAt returns the property stored at column col.
func (s *Schema) PropertyAt(col int) Property {
	return s.props[col]
}

// ColumnOf resolves a property name to its column position.
func (s *Schema) ColumnOf(name string) (int, bool) {
	col, ok := s.byName[name]
	return col, ok
}

// TypeOf resolves a property name to its declared type.
func (s *Schema) TypeOf(name string) (Type, bool) {
	col, ok := s.byName[name]
	if !ok {
		return Invalid, false
	}
	return s.props[col].Type, true
}

// PrimaryKey returns the primary key property name, if one was declared.
func (s *Schema) PrimaryKey() (string, bool) {
	return s.primaryKey, s.primaryKey != ""
}
