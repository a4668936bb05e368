// Package sql implements db.Service on a relational database through gorm.
//
// Conditions become a parameterized WHERE clause, sort rules an ORDER BY and
// limits LIMIT/OFFSET. List fields are stored as JSON text columns.
package sql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/db/dsn"
	"github.com/foundry-core/foundry/internal/logger/adapter/gormlogger"
	"github.com/foundry-core/foundry/internal/model"
	"github.com/foundry-core/foundry/internal/provider"
)

const serviceName = "database/sql"

// Service stores collections as tables.
type Service struct {
	db *gorm.DB
}

var _ db.Service = (*Service)(nil)

// Open validates cfg, connects with the configured engine and pings the server.
func Open(ctx context.Context, cfg config.DB) (*Service, error) {
	if err := provider.Validate(serviceName, cfg); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(Dialector(cfg), &gorm.Config{Logger: gormlogger.New()})
	if err != nil {
		return nil, provider.Connection(serviceName, err)
	}

	return New(ctx, gdb)
}

// Dialector returns the gorm dialector for the configured engine.
func Dialector(cfg config.DB) gorm.Dialector {
	switch cfg.GormEngine {
	case "postgres":
		return postgres.Open(dsn.Postgres(cfg))
	case "sqlite":
		return sqlite.Open(dsn.SQLite(cfg))
	default:
		return mysql.Open(dsn.MySQL(cfg))
	}
}

// New wraps an open gorm connection. The connection is pinged once.
func New(ctx context.Context, gdb *gorm.DB) (*Service, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, provider.Connection(serviceName, err)
	}

	if err = sqlDB.PingContext(ctx); err != nil {
		return nil, provider.Connection(serviceName, err)
	}

	return &Service{db: gdb}, nil
}

// DB returns the underlying gorm connection.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// EnsureCollection creates the table for schema unless it exists.
func (s *Service) EnsureCollection(ctx context.Context, collection string, schema *model.Schema) error {
	tx := s.db.WithContext(ctx)
	if tx.Migrator().HasTable(collection) {
		return nil
	}

	var (
		ddl  = "CREATE TABLE ? ("
		args = []any{clause.Table{Name: collection}}
	)

	for i, f := range schema.Fields() {
		if i > 0 {
			ddl += ", "
		}

		ddl += "? " + columnType(f.Type)
		args = append(args, clause.Column{Name: f.Name})
	}

	ddl += ")"

	return tx.Exec(ddl, args...).Error
}

// LoadObjects implements db.Service.
func (s *Service) LoadObjects(ctx context.Context, factory model.Factory, collection string, q db.Query) (*db.ResultSet, error) {
	tx := s.table(ctx, collection, q.Conditions)

	for _, rule := range q.Sort {
		tx = tx.Order(clause.OrderByColumn{
			Column: clause.Column{Name: rule.Field},
			Desc:   rule.Direction == db.Desc,
		})
	}

	if q.Limit != nil {
		if q.Limit.Offset > 0 {
			tx = tx.Offset(q.Limit.Offset)
		}

		tx = tx.Limit(q.Limit.Count)
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	return db.Collect(factory, q.KeyField, rows)
}

// CountObjects implements db.Service.
func (s *Service) CountObjects(ctx context.Context, collection string, conds db.Conditions) (int, error) {
	var n int64
	if err := s.table(ctx, collection, conds).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}

	return int(n), nil
}

// WriteObject implements db.Service.
func (s *Service) WriteObject(ctx context.Context, m model.Model, collection string) error {
	values, err := columns(m, nil)
	if err != nil {
		return err
	}

	if err = s.db.WithContext(ctx).Table(collection).Create(values).Error; err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}

	return nil
}

// UpdateObject implements db.Service.
func (s *Service) UpdateObject(ctx context.Context, m model.Model, collection string, conds db.Conditions, fields []string) error {
	values, err := columns(m, fields)
	if err != nil {
		return err
	}

	if err = s.table(ctx, collection, conds).Updates(values).Error; err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}

	return nil
}

// DeleteObject implements db.Service.
func (s *Service) DeleteObject(ctx context.Context, collection string, conds db.Conditions) error {
	if err := s.table(ctx, collection, conds).Delete(map[string]any{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}

	return nil
}

// Close implements db.Service.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *Service) table(ctx context.Context, collection string, conds db.Conditions) *gorm.DB {
	tx := s.db.WithContext(ctx).Table(collection)

	if len(conds) == 0 {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true})
	}

	exprs := make([]clause.Expression, 0, len(conds))
	for _, c := range conds {
		exprs = append(exprs, expression(c))
	}

	return tx.Clauses(clause.Where{Exprs: exprs})
}

func expression(c db.Condition) clause.Expression {
	col := clause.Column{Name: c.Field}
	val := value(c.Value)

	switch c.Op {
	case db.OpLt:
		return clause.Lt{Column: col, Value: val}
	case db.OpGt:
		return clause.Gt{Column: col, Value: val}
	case db.OpLte:
		return clause.Lte{Column: col, Value: val}
	case db.OpGte:
		return clause.Gte{Column: col, Value: val}
	default:
		return clause.Eq{Column: col, Value: val}
	}
}

// columns returns the column values of m, all fields when only is empty.
func columns(m model.Model, only []string) (map[string]any, error) {
	if len(only) == 0 {
		out := m.AsMap()
		for k, v := range out {
			out[k] = value(v)
		}

		return out, nil
	}

	out := make(map[string]any, len(only))

	for _, f := range only {
		v, err := m.Get(f)
		if err != nil {
			return nil, err
		}

		name, _ := m.Schema().Canonical(f)
		out[name] = value(v)
	}

	return out, nil
}

// value converts lists to their JSON text column form.
func value(v any) any {
	list, ok := v.([]string)
	if !ok {
		return v
	}

	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}

	return string(b)
}

func columnType(t model.FieldType) string {
	switch t {
	case model.TypeInteger:
		return "BIGINT"
	case model.TypeBoolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}
