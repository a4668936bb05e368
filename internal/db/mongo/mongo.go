// Package mongo implements db.Service on a MongoDB database.
//
// Conditions become a filter document using $eq, $lt, $gt, $lte and $gte,
// sort rules a sort document and limits skip/limit options. List fields are
// stored as native arrays.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/foundry-core/foundry/internal/config"
	"github.com/foundry-core/foundry/internal/db"
	"github.com/foundry-core/foundry/internal/model"
	"github.com/foundry-core/foundry/internal/provider"
)

const serviceName = "database/mongo"

// Service stores collections in one MongoDB database.
type Service struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ db.Service = (*Service)(nil)

// Open validates cfg, connects and pings the primary.
func Open(ctx context.Context, cfg config.Mongo) (*Service, error) {
	if err := provider.Validate(serviceName, cfg); err != nil {
		return nil, err
	}

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Timeout > 0 {
		opts.SetConnectTimeout(cfg.Timeout).SetServerSelectionTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, provider.Connection(serviceName, err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, provider.Connection(serviceName, err)
	}

	return &Service{client: client, db: client.Database(cfg.Name)}, nil
}

// LoadObjects implements db.Service.
func (s *Service) LoadObjects(ctx context.Context, factory model.Factory, collection string, q db.Query) (*db.ResultSet, error) {
	opts := FindOptions(q)
	if opts == nil {
		return db.NewResultSet(), nil
	}

	cur, err := s.db.Collection(collection).Find(ctx, Filter(q.Conditions), opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	var docs []bson.M
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("load %s: %w", collection, err)
	}

	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, Row(doc))
	}

	return db.Collect(factory, q.KeyField, rows)
}

// CountObjects implements db.Service.
func (s *Service) CountObjects(ctx context.Context, collection string, conds db.Conditions) (int, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, Filter(conds))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}

	return int(n), nil
}

// WriteObject implements db.Service.
func (s *Service) WriteObject(ctx context.Context, m model.Model, collection string) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, Document(m, nil)); err != nil {
		return fmt.Errorf("write %s: %w", collection, err)
	}

	return nil
}

// UpdateObject implements db.Service.
func (s *Service) UpdateObject(ctx context.Context, m model.Model, collection string, conds db.Conditions, fields []string) error {
	update := bson.D{{Key: "$set", Value: Document(m, fields)}}

	if _, err := s.db.Collection(collection).UpdateMany(ctx, Filter(conds), update); err != nil {
		return fmt.Errorf("update %s: %w", collection, err)
	}

	return nil
}

// DeleteObject implements db.Service.
func (s *Service) DeleteObject(ctx context.Context, collection string, conds db.Conditions) error {
	if _, err := s.db.Collection(collection).DeleteMany(ctx, Filter(conds)); err != nil {
		return fmt.Errorf("delete %s: %w", collection, err)
	}

	return nil
}

// Close implements db.Service.
func (s *Service) Close() error {
	return s.client.Disconnect(context.Background())
}

// Filter translates conditions to a filter document. Several conditions on
// one field are merged into a single operator document.
func Filter(conds db.Conditions) bson.D {
	filter := bson.D{}
	index := make(map[string]int, len(conds))

	for _, c := range conds {
		op := bson.E{Key: operator(c.Op), Value: c.Value}

		if i, ok := index[c.Field]; ok {
			ops, _ := filter[i].Value.(bson.D)
			filter[i].Value = append(ops, op)

			continue
		}

		index[c.Field] = len(filter)
		filter = append(filter, bson.E{Key: c.Field, Value: bson.D{op}})
	}

	return filter
}

// FindOptions translates sort rules and limits. It returns nil when the
// limit selects no rows, since a zero limit means no limit to MongoDB.
// A negative count only skips.
func FindOptions(q db.Query) *options.FindOptions {
	opts := options.Find()

	if len(q.Sort) > 0 {
		sort := make(bson.D, 0, len(q.Sort))

		for _, rule := range q.Sort {
			dir := 1
			if rule.Direction == db.Desc {
				dir = -1
			}

			sort = append(sort, bson.E{Key: rule.Field, Value: dir})
		}

		opts.SetSort(sort)
	}

	if q.Limit != nil {
		if q.Limit.Count == 0 {
			return nil
		}

		if q.Limit.Offset > 0 {
			opts.SetSkip(int64(q.Limit.Offset))
		}

		if q.Limit.Count > 0 {
			opts.SetLimit(int64(q.Limit.Count))
		}
	}

	return opts
}

// Document returns the fields of m as a document, all fields when only is empty.
func Document(m model.Model, only []string) bson.D {
	if len(only) == 0 {
		for _, f := range m.Schema().Fields() {
			only = append(only, f.Name)
		}
	}

	doc := make(bson.D, 0, len(only))

	for _, f := range only {
		v, err := m.Get(f)
		if err != nil {
			continue
		}

		name, _ := m.Schema().Canonical(f)
		doc = append(doc, bson.E{Key: name, Value: v})
	}

	return doc
}

// Row converts a decoded document to a plain row. Arrays become []any.
func Row(doc bson.M) map[string]any {
	row := make(map[string]any, len(doc))

	for k, v := range doc {
		switch val := v.(type) {
		case primitive.A:
			row[k] = []any(val)
		case primitive.ObjectID:
			row[k] = val.Hex()
		default:
			row[k] = val
		}
	}

	return row
}

func operator(op db.Operator) string {
	switch op {
	case db.OpLt:
		return "$lt"
	case db.OpGt:
		return "$gt"
	case db.OpLte:
		return "$lte"
	case db.OpGte:
		return "$gte"
	default:
		return "$eq"
	}
}
