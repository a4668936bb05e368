// Package model implements the typed field container shared by every entity
// that is stored through a database service.
//
// A model is declared once through a Schema (ordered, typed fields plus one
// key field) and every instance is fully populated with zero values. Values
// are coerced to the declared type on each Set, so a model never holds a
// value of the wrong type. Field lookups ignore case.
//
// Entities embed Base and add declared accessors, for example:
//
//	var userSchema = model.NewSchema("user", "username",
//		model.Field{Name: "username", Type: model.TypeString},
//	)
//
//	type User struct{ model.Base }
//
//	func (u *User) Username() string { return u.Text("username") }
package model

import (
	"fmt"
)

// Model is implemented by every schema backed entity.
type Model interface {
	Schema() *Schema
	Get(field string) (any, error)
	Set(field string, value any) error
	AsMap() map[string]any
}

// Factory creates an empty instance of one concrete model type.
// Database services use it as the row template.
type Factory func() Model

// Base holds the values of one model instance. Embed it in entity types.
type Base struct {
	schema *Schema
	values []any
}

// NewBase returns a Base for s populated with zero values.
func NewBase(s *Schema) Base {
	values := make([]any, len(s.fields))
	for i, f := range s.fields {
		values[i] = zero(f.Type)
	}

	return Base{schema: s, values: values}
}

// Schema returns the schema of the model.
func (b *Base) Schema() *Schema {
	return b.schema
}

// Get returns the value of field.
func (b *Base) Get(field string) (any, error) {
	idx, err := b.schema.position(field)
	if err != nil {
		return nil, err
	}

	if list, ok := b.values[idx].([]string); ok {
		out := make([]string, len(list))
		copy(out, list)

		return out, nil
	}

	return b.values[idx], nil
}

// Set coerces value to the declared type and stores it.
func (b *Base) Set(field string, value any) error {
	idx, err := b.schema.position(field)
	if err != nil {
		return err
	}

	b.values[idx] = Coerce(b.schema.fields[idx].Type, value)

	return nil
}

// MustGet is Get for declared fields. It panics on an undeclared field.
func (b *Base) MustGet(field string) any {
	v, err := b.Get(field)
	if err != nil {
		panic(err)
	}

	return v
}

// MustSet is Set for declared fields. It panics on an undeclared field.
func (b *Base) MustSet(field string, value any) {
	if err := b.Set(field, value); err != nil {
		panic(err)
	}
}

// Text returns a string field.
func (b *Base) Text(field string) string {
	s, _ := b.MustGet(field).(string)
	return s
}

// Int returns an integer field.
func (b *Base) Int(field string) int64 {
	i, _ := b.MustGet(field).(int64)
	return i
}

// Bool returns a boolean field.
func (b *Base) Bool(field string) bool {
	v, _ := b.MustGet(field).(bool)
	return v
}

// Strings returns a copy of a list field.
func (b *Base) Strings(field string) []string {
	l, _ := b.MustGet(field).([]string)
	return l
}

// KeyValue returns the key field value formatted as a string.
func (b *Base) KeyValue() string {
	return toString(b.MustGet(b.schema.key))
}

// AsMap returns every field with its value. Lists are copied.
func (b *Base) AsMap() map[string]any {
	out := make(map[string]any, len(b.values))

	for i, f := range b.schema.fields {
		if list, ok := b.values[i].([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[f.Name] = cp

			continue
		}

		out[f.Name] = b.values[i]
	}

	return out
}

// Load sets every field present in values. Keys that are not declared
// fields are ignored, which lets rows carry backend columns such as "_id".
func Load(m Model, values map[string]any) {
	for k, v := range values {
		_ = m.Set(k, v)
	}
}

// Copy loads every field of src into dst. Both must share a schema.
func Copy(dst, src Model) error {
	if dst.Schema() != src.Schema() {
		return fmt.Errorf("copy %s into %s: schema mismatch", src.Schema().Name(), dst.Schema().Name())
	}

	Load(dst, src.AsMap())

	return nil
}

// Equal reports whether a and b share a schema and hold equal values.
func Equal(a, b Model) bool {
	if a.Schema() != b.Schema() {
		return false
	}

	am, bm := a.AsMap(), b.AsMap()

	for _, f := range a.Schema().fields {
		if f.Type == TypeStringList {
			al, _ := am[f.Name].([]string)
			bl, _ := bm[f.Name].([]string)

			if len(al) != len(bl) {
				return false
			}

			for i := range al {
				if al[i] != bl[i] {
					return false
				}
			}

			continue
		}

		if am[f.Name] != bm[f.Name] {
			return false
		}
	}

	return true
}
