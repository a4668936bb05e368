// Package db defines the storage contract every database backend implements
// and the Database façade application code works with.
//
// Backends translate a Query (conditions, sort rules and limits) to their
// native form: the memory backend scans, the sql backend builds a
// parameterized statement and the mongo backend builds a filter document.
// The memory backend is the reference for condition, sort and limit
// semantics.
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/foundry-core/foundry/internal/model"
)

// Service is implemented by every database backend.
type Service interface {
	LoadObjects(ctx context.Context, factory model.Factory, collection string, q Query) (*ResultSet, error)
	CountObjects(ctx context.Context, collection string, conds Conditions) (int, error)
	WriteObject(ctx context.Context, m model.Model, collection string) error
	UpdateObject(ctx context.Context, m model.Model, collection string, conds Conditions, fields []string) error
	DeleteObject(ctx context.Context, collection string, conds Conditions) error
	Close() error
}

// Database wraps one Service with argument checks and debug logging.
type Database struct {
	svc Service
}

// New returns a Database backed by svc.
func New(svc Service) *Database {
	return &Database{svc: svc}
}

// Service returns the wrapped backend.
func (d *Database) Service() Service {
	return d.svc
}

// LoadObjects returns the objects of collection matching q.
func (d *Database) LoadObjects(ctx context.Context, factory model.Factory, collection string, q Query) (*ResultSet, error) {
	if err := check(collection, q.Conditions); err != nil {
		return nil, err
	}

	rs, err := d.svc.LoadObjects(ctx, factory, collection, q)
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("load objects failed")

		return nil, err
	}

	log.Debug().Str("collection", collection).Int("conditions", len(q.Conditions)).
		Int("rows", rs.Len()).Msg("load objects")

	return rs, nil
}

// LoadObject returns the first object matching conds, or ErrNotFound.
func (d *Database) LoadObject(ctx context.Context, factory model.Factory, collection string, conds Conditions) (model.Model, error) {
	rs, err := d.LoadObjects(ctx, factory, collection, Query{Conditions: conds, Limit: First(1)})
	if err != nil {
		return nil, err
	}

	m, ok := rs.First()
	if !ok {
		return nil, ErrNotFound
	}

	return m, nil
}

// CountObjects returns the number of objects matching conds.
func (d *Database) CountObjects(ctx context.Context, collection string, conds Conditions) (int, error) {
	if err := check(collection, conds); err != nil {
		return 0, err
	}

	n, err := d.svc.CountObjects(ctx, collection, conds)
	if err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("count objects failed")

		return 0, err
	}

	return n, nil
}

// WriteObject inserts m. Duplicates are not detected at this layer.
func (d *Database) WriteObject(ctx context.Context, m model.Model, collection string) error {
	if err := check(collection, nil); err != nil {
		return err
	}

	if err := d.svc.WriteObject(ctx, m, collection); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("write object failed")

		return err
	}

	log.Debug().Str("collection", collection).Str("schema", m.Schema().Name()).Msg("write object")

	return nil
}

// UpdateObject writes the listed fields of m to every row matching conds.
func (d *Database) UpdateObject(ctx context.Context, m model.Model, collection string, conds Conditions, fields []string) error {
	if err := check(collection, conds); err != nil {
		return err
	}

	if len(fields) == 0 {
		return ErrNoUpdateFields
	}

	for _, f := range fields {
		if _, ok := m.Schema().FieldType(f); !ok {
			return fmt.Errorf("%w: %s", model.ErrFieldDoesNotExist, f)
		}
	}

	if err := d.svc.UpdateObject(ctx, m, collection, conds, fields); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("update object failed")

		return err
	}

	log.Debug().Str("collection", collection).Strs("fields", fields).Msg("update object")

	return nil
}

// DeleteObject removes every row matching conds.
func (d *Database) DeleteObject(ctx context.Context, collection string, conds Conditions) error {
	if err := check(collection, conds); err != nil {
		return err
	}

	if err := d.svc.DeleteObject(ctx, collection, conds); err != nil {
		log.Error().Err(err).Str("collection", collection).Msg("delete object failed")

		return err
	}

	log.Debug().Str("collection", collection).Int("conditions", len(conds)).Msg("delete object")

	return nil
}

// Close releases the backend.
func (d *Database) Close() error {
	return d.svc.Close()
}

func check(collection string, conds Conditions) error {
	if strings.TrimSpace(collection) == "" {
		return ErrEmptyCollection
	}

	return conds.Validate()
}
