// Package option provides CRUD operations for managing configuration options
// stored one row per name in the options collection.
package option

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/models"
)

// Collection holds one row per option.
const Collection = "options"

var (
	// ErrOptionNotFound is returned when an option is not found.
	ErrOptionNotFound = errors.New("option not found")
	// ErrOptionNameEmpty is returned when attempting to create/update an option with an empty name.
	ErrOptionNameEmpty = errors.New("option name cannot be empty")
	// ErrOptionAlreadyExists is returned when attempting to create an option that already exists.
	ErrOptionAlreadyExists = errors.New("option already exists")
	// ErrDBNil is returned when the database is nil.
	ErrDBNil = errors.New("database is nil")
)

// Get retrieves an option by its name.
func Get(ctx context.Context, d *db.Database, name string) (*models.Option, error) {
	if d == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrOptionNameEmpty
	}

	m, err := d.LoadObject(ctx, models.NewOptionModel, Collection, byName(name))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrOptionNotFound
		}

		return nil, err
	}

	return m.(*models.Option), nil //nolint:forcetypeassert
}

// Value returns the value of an option, or fallback when it is not set.
func Value(ctx context.Context, d *db.Database, name, fallback string) string {
	o, err := Get(ctx, d, name)
	if err != nil {
		return fallback
	}

	return o.Value()
}

// GetAll retrieves all options ordered by name.
func GetAll(ctx context.Context, d *db.Database) ([]*models.Option, error) {
	if d == nil {
		return nil, ErrDBNil
	}

	rs, err := d.LoadObjects(ctx, models.NewOptionModel, Collection, db.Query{
		Sort: []db.SortRule{db.SortAsc(models.OptionFieldName)},
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.Option, 0, rs.Len())
	for _, m := range rs.Items() {
		out = append(out, m.(*models.Option)) //nolint:forcetypeassert
	}

	return out, nil
}

// Create creates a new option.
func Create(ctx context.Context, d *db.Database, name, value string) (*models.Option, error) {
	if d == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrOptionNameEmpty
	}

	// Check if option already exists
	_, err := Get(ctx, d, name)
	if err == nil {
		return nil, ErrOptionAlreadyExists
	}

	if !errors.Is(err, ErrOptionNotFound) {
		return nil, err
	}

	o := models.NewOption()
	o.SetID(uuid.NewString())
	o.SetName(name)
	o.SetValue(value)

	if err = d.WriteObject(ctx, o, Collection); err != nil {
		return nil, err
	}

	return o, nil
}

// Set creates or updates an option by name (upsert operation).
func Set(ctx context.Context, d *db.Database, name, value string) (*models.Option, error) {
	o, err := Get(ctx, d, name)
	if errors.Is(err, ErrOptionNotFound) {
		// Option doesn't exist, create it
		return Create(ctx, d, name, value)
	}

	if err != nil {
		return nil, err
	}

	// Option exists, update it
	o.SetValue(value)

	err = d.UpdateObject(ctx, o, Collection, byID(o.ID()), []string{models.OptionFieldValue})
	if err != nil {
		return nil, err
	}

	return o, nil
}

// Delete deletes an option by name.
func Delete(ctx context.Context, d *db.Database, name string) error {
	o, err := Get(ctx, d, name)
	if err != nil {
		return err
	}

	return d.DeleteObject(ctx, Collection, byID(o.ID()))
}

func byName(name string) db.Conditions {
	return db.Conditions{db.Eq(models.OptionFieldName, name)}
}

func byID(id string) db.Conditions {
	return db.Conditions{db.Eq(models.OptionFieldID, id)}
}
