// Package dao provides a generic data-access object over GORM.
//
// A DAO covers the write side of an entity (insert, bulk insert, update,
// delete). Entity-specific reads are added by embedding the generic DAO in a
// per-entity type:
//
//	type UserDAO struct {
//	    *dao.Gorm[User]
//	}
//
//	func (d *UserDAO) GetAll(ctx context.Context) ([]User, error) {
//	    var users []User
//	    return users, d.DB(ctx).Find(&users).Error
//	}
package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/marmos91/ormkit/internal/telemetry"
)

// DAO is the write capability shared by every entity.
type DAO[T any] interface {
	// Insert stores entity, applying the configured conflict strategy.
	Insert(ctx context.Context, entity *T) error

	// InsertAll stores every entity in one transaction. Nothing is stored if any insert fails.
	InsertAll(ctx context.Context, entities []*T) error

	// Update writes every column of entity by primary key and returns the rows affected.
	Update(ctx context.Context, entity *T) (int64, error)

	// Delete removes entity by primary key and returns the rows affected.
	Delete(ctx context.Context, entity *T) (int64, error)
}

// ConflictStrategy selects what Insert does when a row violates a constraint.
type ConflictStrategy int

const (
	// Abort fails the insert with ErrConflict.
	Abort ConflictStrategy = iota

	// Replace overwrites the existing row with the same primary key. A
	// conflict on any other unique constraint still fails with ErrConflict.
	Replace

	// Ignore skips the conflicting row without an error.
	Ignore
)

func (s ConflictStrategy) String() string {
	switch s {
	case Abort:
		return "abort"
	case Replace:
		return "replace"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("ConflictStrategy(%d)", int(s))
	}
}

// DefaultBatchSize is the number of rows per INSERT statement in InsertAll.
const DefaultBatchSize = 100

// Option configures a Gorm DAO.
type Option func(*options)

type options struct {
	conflict  ConflictStrategy
	batchSize int
}

// WithConflictStrategy sets the strategy used by Insert and InsertAll.
func WithConflictStrategy(s ConflictStrategy) Option {
	return func(o *options) {
		o.conflict = s
	}
}

// WithBatchSize sets how many rows InsertAll sends per statement.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// Gorm implements DAO[T] on a *gorm.DB.
type Gorm[T any] struct {
	db       *gorm.DB
	opts     options
	entity   string
	readOnly []string // columns Update never writes
}

var _ DAO[struct{ ID uint }] = (*Gorm[struct{ ID uint }])(nil)

// New creates a DAO for entity type T.
func New[T any](db *gorm.DB, opts ...Option) *Gorm[T] {
	o := options{conflict: Abort, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(&o)
	}

	g := &Gorm[T]{db: db, opts: o, entity: fmt.Sprintf("%T", *new(T))}

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(new(T)); err == nil {
		g.entity = stmt.Schema.Name
		for _, f := range stmt.Schema.Fields {
			if f.DBName != "" && f.AutoCreateTime > 0 {
				g.readOnly = append(g.readOnly, f.DBName)
			}
		}
	}
	return g
}

// DB returns the underlying handle bound to ctx, for entity-specific queries.
func (g *Gorm[T]) DB(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

// ConflictStrategy returns the configured conflict strategy.
func (g *Gorm[T]) ConflictStrategy() ConflictStrategy {
	return g.opts.conflict
}

func (g *Gorm[T]) Insert(ctx context.Context, entity *T) error {
	ctx, span := telemetry.StartDAOSpan(ctx, "insert", g.entity)
	defer span.End()

	err := g.withConflict(g.db.WithContext(ctx)).Create(entity).Error
	return g.fail(ctx, translate(err))
}

func (g *Gorm[T]) InsertAll(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

	ctx, span := telemetry.StartDAOSpan(ctx, "insert_all", g.entity, telemetry.DBCount(len(entities)))
	defer span.End()

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return g.withConflict(tx).CreateInBatches(entities, g.opts.batchSize).Error
	})
	return g.fail(ctx, translate(err))
}

func (g *Gorm[T]) Update(ctx context.Context, entity *T) (int64, error) {
	ctx, span := telemetry.StartDAOSpan(ctx, "update", g.entity)
	defer span.End()

	q := g.db.WithContext(ctx).Model(entity).Select("*")
	if len(g.readOnly) > 0 {
		q = q.Omit(g.readOnly...)
	}
	res := q.Updates(entity)
	if res.Error != nil {
		return 0, g.fail(ctx, translate(res.Error))
	}
	telemetry.SetAttributes(ctx, telemetry.DBRows(res.RowsAffected))
	return res.RowsAffected, nil
}

func (g *Gorm[T]) Delete(ctx context.Context, entity *T) (int64, error) {
	ctx, span := telemetry.StartDAOSpan(ctx, "delete", g.entity)
	defer span.End()

	res := g.db.WithContext(ctx).Delete(entity)
	if res.Error != nil {
		return 0, g.fail(ctx, translate(res.Error))
	}
	telemetry.SetAttributes(ctx, telemetry.DBRows(res.RowsAffected))
	return res.RowsAffected, nil
}

func (g *Gorm[T]) withConflict(db *gorm.DB) *gorm.DB {
	switch g.opts.conflict {
	case Replace:
		return db.Clauses(clause.OnConflict{UpdateAll: true})
	case Ignore:
		return db.Clauses(clause.OnConflict{DoNothing: true})
	default:
		return db
	}
}

func (g *Gorm[T]) fail(ctx context.Context, err error) error {
	telemetry.RecordError(ctx, err)
	return err
}
