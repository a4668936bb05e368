// Package memory implements db.Service on in-process maps.
//
// It is the reference backend: conditions are evaluated by a linear scan,
// sorting is stable and limits are applied last. Other backends must return
// the same rows in the same order for the same query.
package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/model"
)

type row = map[string]any

// Service keeps every collection as an ordered slice of rows.
type Service struct {
	mu          sync.RWMutex
	collections map[string][]row
}

var _ db.Service = (*Service)(nil)

// New returns an empty memory backend.
func New() *Service {
	return &Service{collections: make(map[string][]row)}
}

// LoadObjects implements db.Service. An unknown collection yields an empty result.
func (s *Service) LoadObjects(_ context.Context, factory model.Factory, collection string, q db.Query) (*db.ResultSet, error) {
	s.mu.RLock()
	rows := s.match(collection, q.Conditions)
	s.mu.RUnlock()

	sortRows(rows, q.Sort)

	lo, hi := q.Limit.Apply(len(rows))

	return db.Collect(factory, q.KeyField, rows[lo:hi])
}

// CountObjects implements db.Service.
func (s *Service) CountObjects(_ context.Context, collection string, conds db.Conditions) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.match(collection, conds)), nil
}

// WriteObject implements db.Service. The collection is created on first write.
func (s *Service) WriteObject(_ context.Context, m model.Model, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[collection] = append(s.collections[collection], m.AsMap())

	return nil
}

// UpdateObject implements db.Service.
func (s *Service) UpdateObject(_ context.Context, m model.Model, collection string, conds db.Conditions, fields []string) error {
	values := make(row, len(fields))

	for _, f := range fields {
		v, err := m.Get(f)
		if err != nil {
			return err
		}

		name, _ := m.Schema().Canonical(f)
		values[name] = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.collections[collection] {
		if !matches(r, conds) {
			continue
		}

		for k, v := range values {
			r[k] = v
		}
	}

	return nil
}

// DeleteObject implements db.Service.
func (s *Service) DeleteObject(_ context.Context, collection string, conds db.Conditions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.collections[collection]
	if !ok {
		return nil
	}

	s.collections[collection] = slices.DeleteFunc(rows, func(r row) bool {
		return matches(r, conds)
	})

	return nil
}

// Close implements db.Service.
func (s *Service) Close() error {
	return nil
}

// Collections returns the names of the collections holding rows.
func (s *Service) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.collections))
	for name := range s.collections {
		out = append(out, name)
	}

	slices.Sort(out)

	return out
}

// match returns shallow copies of the rows of collection matching conds.
func (s *Service) match(collection string, conds db.Conditions) []row {
	var out []row

	for _, r := range s.collections[collection] {
		if matches(r, conds) {
			out = append(out, maps.Clone(r))
		}
	}

	return out
}

func matches(r row, conds db.Conditions) bool {
	for _, c := range conds {
		if !c.Op.Holds(Compare(lookup(r, c.Field), c.Value)) {
			return false
		}
	}

	return true
}

// lookup returns the value of field in r, ignoring case.
func lookup(r row, field string) any {
	if v, ok := r[field]; ok {
		return v
	}

	for k, v := range r {
		if strings.EqualFold(k, field) {
			return v
		}
	}

	return nil
}
