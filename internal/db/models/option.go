// Package models contains the entity models stored through the database services.
package models

import (
	"github.com/foundry-core/foundry/internal/model"
)

// Option field names.
const (
	OptionFieldName  = "name"
	OptionFieldValue = "value"
	OptionFieldID    = "id"
)

// OptionSchema is the field layout of an Option. The id is the key.
var OptionSchema = model.NewSchema("option", OptionFieldID, //nolint:gochecknoglobals
	model.Field{Name: OptionFieldName, Type: model.TypeString},
	model.Field{Name: OptionFieldValue, Type: model.TypeString},
	model.Field{Name: OptionFieldID, Type: model.TypeString},
)

// Option represents a configuration setting stored in the database.
// Names are unique.
type Option struct {
	model.Base
}

// NewOption returns an empty option.
func NewOption() *Option {
	return &Option{Base: model.NewBase(OptionSchema)}
}

// NewOptionModel is a model.Factory for options.
func NewOptionModel() model.Model {
	return NewOption()
}

// TableName is the collection options are stored in.
func (*Option) TableName() string {
	return "options"
}

// Name returns the option name.
func (o *Option) Name() string { return o.Text(OptionFieldName) }

// SetName sets the option name.
func (o *Option) SetName(v string) { o.MustSet(OptionFieldName, v) }

// Value returns the option value.
func (o *Option) Value() string { return o.Text(OptionFieldValue) }

// SetValue sets the option value.
func (o *Option) SetValue(v string) { o.MustSet(OptionFieldValue, v) }

// ID returns the row identifier.
func (o *Option) ID() string { return o.Text(OptionFieldID) }

// SetID sets the row identifier.
func (o *Option) SetID(v string) { o.MustSet(OptionFieldID, v) }
