package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNoDocuments is returned by FindOne when no row matches the filter,
// mirroring mongo.ErrNoDocuments's role in a Mongo-shaped API.
var ErrNoDocuments = errors.New("store: no matching document")

// Collection is a Mongo-collection-shaped facade over a GORM table, giving
// every component the same narrow vocabulary (InsertOne/FindOne/Find/
// UpdateOne/ReplaceOne/CountDocuments/CreateIndex) regardless of the
// underlying SQL engine.
type Collection[T any] struct {
	db *gorm.DB
}

func newCollection[T any](db *gorm.DB) *Collection[T] {
	return &Collection[T]{db: db}
}

// InsertOne persists doc.
func (c *Collection[T]) InsertOne(ctx context.Context, doc *T) error {
	return c.db.WithContext(ctx).Create(doc).Error
}

// FindOne returns the first row matching filter, or ErrNoDocuments.
func (c *Collection[T]) FindOne(ctx context.Context, filter map[string]any) (*T, error) {
	var dest T
	err := c.db.WithContext(ctx).Where(filter).First(&dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDocuments
	}
	if err != nil {
		return nil, err
	}
	return &dest, nil
}

// Find begins a chainable query, mirroring Mongo's find().sort().skip().limit().
func (c *Collection[T]) Find(filter map[string]any) *Query[T] {
	return &Query[T]{db: c.db, filter: filter}
}

// UpdateOne applies a partial update to the first row matching filter.
func (c *Collection[T]) UpdateOne(ctx context.Context, filter map[string]any, update map[string]any) error {
	var model T
	res := c.db.WithContext(ctx).Model(&model).Where(filter).Limit(1).Updates(update)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoDocuments
	}
	return nil
}

// ReplaceOne writes doc onto the rows matching filter. As with GORM's
// Updates on a struct, zero-valued fields of doc are left unchanged.
func (c *Collection[T]) ReplaceOne(ctx context.Context, filter map[string]any, doc *T) error {
	var model T
	res := c.db.WithContext(ctx).Model(&model).Where(filter).Updates(doc)
	return res.Error
}

// CountDocuments returns the number of rows matching filter.
func (c *Collection[T]) CountDocuments(ctx context.Context, filter map[string]any) (int64, error) {
	var (
		model T
		count int64
	)
	err := c.db.WithContext(ctx).Model(&model).Where(filter).Count(&count).Error
	return count, err
}

// CreateIndex creates a (composite) index on columns, matching the required
// indices this service starts up with (spec §6.3).
func (c *Collection[T]) CreateIndex(columns []string, unique bool) error {
	var model T
	name := indexName(columns, unique)
	if c.db.Migrator().HasIndex(&model, name) {
		return nil
	}
	stmt := &gorm.Statement{DB: c.db}
	if err := stmt.Parse(&model); err != nil {
		return err
	}
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	sql := fmt.Sprintf("CREATE %s %s ON %s (%s)", kind, name, stmt.Table, joinColumns(columns))
	return c.db.Exec(sql).Error
}

func indexName(columns []string, unique bool) string {
	prefix := "idx"
	if unique {
		prefix = "uidx"
	}
	name := prefix
	for _, col := range columns {
		name += "_" + col
	}
	return name
}

func joinColumns(columns []string) string {
	out := ""
	for i, col := range columns {
		if i > 0 {
			out += ", "
		}
		out += col
	}
	return out
}

// Query is a chainable, lazily-evaluated Find(), mirroring Mongo's cursor
// builder. Nothing runs until All or One is called.
type Query[T any] struct {
	db     *gorm.DB
	filter map[string]any
	sort   string
	skip   int
	limit  int
}

// Sort orders by field, descending when desc is true.
func (q *Query[T]) Sort(field string, desc bool) *Query[T] {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	q.sort = field + " " + dir
	return q
}

// Skip offsets the result set by n rows.
func (q *Query[T]) Skip(n int) *Query[T] {
	q.skip = n
	return q
}

// Limit caps the result set at n rows.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = n
	return q
}

// All executes the query and returns every matching row.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	var out []T
	tx := q.db.WithContext(ctx).Where(q.filter)
	if q.sort != "" {
		tx = tx.Order(q.sort)
	}
	if q.skip > 0 {
		tx = tx.Offset(q.skip)
	}
	if q.limit > 0 {
		tx = tx.Limit(q.limit)
	}
	err := tx.Find(&out).Error
	return out, err
}
