package model

import (
	"fmt"
	"strings"
)

// FieldType is the declared type of a model field.
type FieldType int

const (
	// TypeString holds a plain string value.
	TypeString FieldType = iota + 1
	// TypeInteger holds an int64 value.
	TypeInteger
	// TypeBoolean holds a bool value.
	TypeBoolean
	// TypeStringList holds a []string value.
	TypeStringList
)

// String returns the name of the field type.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeStringList:
		return "list"
	default:
		return "unknown"
	}
}

// Field declares one named, typed field of a schema.
type Field struct {
	Name string
	Type FieldType
}

// Schema is the fixed field layout of a model type.
// Field names are unique regardless of case.
type Schema struct {
	name   string
	key    string
	fields []Field
	index  map[string]int
}

// NewSchema declares a schema. It panics on duplicate field names or when
// the key field is not one of the declared fields, since both are
// programming errors in the model declaration.
func NewSchema(name, keyField string, fields ...Field) *Schema {
	s := &Schema{
		name:   name,
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}

	for _, f := range fields {
		lower := strings.ToLower(f.Name)
		if _, dup := s.index[lower]; dup {
			panic(fmt.Sprintf("model %s: duplicate field %q", name, f.Name))
		}

		s.index[lower] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	idx, ok := s.index[strings.ToLower(keyField)]
	if !ok {
		panic(fmt.Sprintf("model %s: key field %q is not declared", name, keyField))
	}

	s.key = s.fields[idx].Name

	return s
}

// Name returns the model type name.
func (s *Schema) Name() string {
	return s.name
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)

	return out
}

// FieldType returns the type of the named field.
func (s *Schema) FieldType(name string) (FieldType, bool) {
	idx, ok := s.index[strings.ToLower(name)]
	if !ok {
		return 0, false
	}

	return s.fields[idx].Type, true
}

// KeyField returns the canonical name of the key field.
func (s *Schema) KeyField() string {
	return s.key
}

// Canonical returns the declared spelling of a field name.
func (s *Schema) Canonical(name string) (string, bool) {
	idx, ok := s.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}

	return s.fields[idx].Name, true
}

func (s *Schema) position(name string) (int, error) {
	idx, ok := s.index[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrFieldDoesNotExist, s.name, name)
	}

	return idx, nil
}
