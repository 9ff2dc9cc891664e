package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/internal/telemetry"
)

// Database is an open storage handle: one GORM connection pool whose tables
// match a Schema.
type Database struct {
	name     string
	db       *gorm.DB
	sqlDB    *sql.DB
	config   Config
	schema   Schema
	openedAt time.Time
}

// Open connects to the database described by cfg and reconciles its tables with
// schema. The returned handle is ready for use.
func Open(ctx context.Context, name string, cfg Config, schema Schema) (*Database, error) {
	start := time.Now()
	cfg.ApplyDefaults()

	ctx, span := telemetry.StartDatabaseSpan(ctx, "open", name,
		telemetry.DBSystem(string(cfg.Type)),
		telemetry.DBLocation(cfg.Location()),
		telemetry.DBVersion(schema.Version),
	)
	defer span.End()
	ctx = logger.WithContext(ctx, logger.NewLogContext(name).
		WithOperation("open").
		WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx)))

	d, err := open(ctx, name, cfg, schema)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.ErrorCtx(ctx, "Failed to open database", logger.KeyType, cfg.Type, logger.KeyError, err)
		return nil, err
	}

	logger.InfoCtx(ctx, "Database opened",
		logger.KeyType, cfg.Type,
		logger.KeyLocation, cfg.Location(),
		logger.KeyVersion, schema.Version,
		logger.Since(start))
	return d, nil
}

func open(ctx context.Context, name string, cfg Config, schema Schema) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	dialector, err := cfg.dialector()
	if err != nil {
		return nil, err
	}

	// The ping below owns connectivity checks so a failed attempt closes its pool.
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:               newGormLogger(name, cfg),
		TranslateError:       true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		closePool(gormDB)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	cfg.configurePool(sqlDB)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	d := &Database{
		name:     name,
		db:       gormDB,
		sqlDB:    sqlDB,
		config:   cfg,
		schema:   schema,
		openedAt: time.Now(),
	}
	if err := d.reconcile(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func closePool(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// reconcile brings the tables in line with d.schema according to the
// destructive migration policy.
func (d *Database) reconcile(ctx context.Context) error {
	identity, err := d.schema.Identity(d.db)
	if err != nil {
		return err
	}

	db := d.db.WithContext(ctx)
	if err := db.AutoMigrate(&schemaRecord{}); err != nil {
		return fmt.Errorf("failed to create schema record table: %w", err)
	}

	var rec schemaRecord
	err = db.Take(&rec, schemaRecordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.DebugCtx(ctx, "Creating schema", logger.KeyVersion, d.schema.Version)
		return d.migrate(ctx, identity)
	}
	if err != nil {
		return fmt.Errorf("failed to read schema record: %w", err)
	}

	want := d.schema.Version
	policy := d.config.DestructiveMigration

	switch {
	case rec.Version == want && rec.Identity == identity:
		return nil

	case rec.Version == want:
		return fmt.Errorf("%w: %q changed at version %d without a version bump",
			ErrSchemaMismatch, d.name, want)

	case rec.Version < want:
		if policy == DestructiveAlways {
			logger.WarnCtx(ctx, "Recreating schema, existing rows are dropped",
				"from", rec.Version, "to", want)
			return d.recreate(ctx, identity)
		}
		logger.InfoCtx(ctx, "Migrating schema", "from", rec.Version, "to", want)
		return d.migrate(ctx, identity)

	default:
		if policy == DestructiveOnDowngrade || policy == DestructiveAlways {
			logger.WarnCtx(ctx, "Downgrading schema, existing rows are dropped",
				"from", rec.Version, "to", want)
			return d.recreate(ctx, identity)
		}
		return fmt.Errorf("%w: %q holds schema version %d, newer than requested %d (destructive_migration=%s)",
			ErrSchemaMismatch, d.name, rec.Version, want, policy)
	}
}

// migrate applies additive changes through GORM AutoMigrate and records the
// new version.
func (d *Database) migrate(ctx context.Context, identity string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(d.schema.Entities...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		return d.saveRecord(tx, identity)
	})
}

// recreate drops every schema table and creates it again.
func (d *Database) recreate(ctx context.Context, identity string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(d.schema.Entities...); err != nil {
			return fmt.Errorf("failed to drop schema tables: %w", err)
		}
		if err := tx.AutoMigrate(d.schema.Entities...); err != nil {
			return fmt.Errorf("failed to create schema tables: %w", err)
		}
		return d.saveRecord(tx, identity)
	})
}

func (d *Database) saveRecord(tx *gorm.DB, identity string) error {
	rec := schemaRecord{ID: schemaRecordID, Version: d.schema.Version, Identity: identity}
	if err := tx.Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to write schema record: %w", err)
	}
	return nil
}

// Name returns the logical database name.
func (d *Database) Name() string { return d.name }

// Type returns the backend type.
func (d *Database) Type() Type { return d.config.Type }

// Version returns the schema version the handle was opened with.
func (d *Database) Version() int { return d.schema.Version }

// Gorm returns the underlying *gorm.DB. All queries go through it.
func (d *Database) Gorm() *gorm.DB { return d.db }

// Config returns the configuration after defaults were applied.
func (d *Database) Config() Config { return d.config }

// OpenedAt returns when the handle finished opening.
func (d *Database) OpenedAt() time.Time { return d.openedAt }

// SQL returns the underlying connection pool.
func (d *Database) SQL() *sql.DB { return d.sqlDB }

// Stats returns connection pool statistics.
func (d *Database) Stats() sql.DBStats { return d.sqlDB.Stats() }

// Healthcheck verifies the database connection is healthy.
func (d *Database) Healthcheck(ctx context.Context) error {
	return d.sqlDB.PingContext(ctx)
}

// Reset drops and recreates every schema table. All rows are lost.
func (d *Database) Reset(ctx context.Context) error {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "reset", d.name, telemetry.DBVersion(d.schema.Version))
	defer span.End()

	identity, err := d.schema.Identity(d.db)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	if err := d.recreate(ctx, identity); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	logger.WarnCtx(ctx, "Database reset", logger.KeyDatabase, d.name, logger.KeyVersion, d.schema.Version)
	return nil
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.sqlDB.Close()
}

