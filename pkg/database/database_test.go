package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	schemaV1 = Schema{Version: 1, Entities: []any{&note{}}}
	schemaV2 = Schema{Version: 2, Entities: []any{&noteV2{}}}
)

func sqliteConfig(path string, policy DestructiveMigration) Config {
	return Config{
		Type:                 TypeSQLite,
		SQLite:               SQLiteConfig{Path: path},
		DestructiveMigration: policy,
	}
}

// openAndClose opens path with schema, runs fn, then closes the handle.
func openAndClose(t *testing.T, cfg Config, schema Schema, fn func(d *Database)) {
	t.Helper()
	d, err := Open(context.Background(), "test_db", cfg, schema)
	require.NoError(t, err)
	defer func() { require.NoError(t, d.Close()) }()
	if fn != nil {
		fn(d)
	}
}

func countNotes(t *testing.T, d *Database) int64 {
	t.Helper()
	var n int64
	require.NoError(t, d.Gorm().Table("notes").Count(&n).Error)
	return n
}

func TestOpen_CreatesSchema(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	openAndClose(t, sqliteConfig(path, ""), schemaV1, func(d *Database) {
		assert.Equal(t, "test_db", d.Name())
		assert.Equal(t, TypeSQLite, d.Type())
		assert.Equal(t, 1, d.Version())
		assert.Equal(t, DestructiveNever, d.Config().DestructiveMigration)
		assert.False(t, d.OpenedAt().IsZero())
		assert.True(t, d.Gorm().Migrator().HasTable(&note{}))
		assert.NoError(t, d.Healthcheck(context.Background()))

		var rec schemaRecord
		require.NoError(t, d.Gorm().Take(&rec, schemaRecordID).Error)
		assert.Equal(t, 1, rec.Version)
		assert.NotEmpty(t, rec.Identity)
	})
}

func TestOpen_ReopenKeepsRows(t *testing.T) {
	t.Parallel()
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), "")

	openAndClose(t, cfg, schemaV1, func(d *Database) {
		require.NoError(t, d.Gorm().Create(&note{Title: "first"}).Error)
	})
	openAndClose(t, cfg, schemaV1, func(d *Database) {
		assert.Equal(t, int64(1), countNotes(t, d))
	})
}

func TestOpen_ChangedEntitiesWithoutVersionBump(t *testing.T) {
	t.Parallel()
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), DestructiveAlways)

	openAndClose(t, cfg, schemaV1, nil)

	_, err := Open(context.Background(), "test_db", cfg, Schema{Version: 1, Entities: []any{&noteV2{}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))
}

func TestOpen_UpgradeMigratesInPlace(t *testing.T) {
	t.Parallel()
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), DestructiveNever)

	openAndClose(t, cfg, schemaV1, func(d *Database) {
		require.NoError(t, d.Gorm().Create(&note{Title: "kept"}).Error)
	})
	openAndClose(t, cfg, schemaV2, func(d *Database) {
		assert.Equal(t, 2, d.Version())
		assert.True(t, d.Gorm().Migrator().HasColumn(&noteV2{}, "body"))
		assert.Equal(t, int64(1), countNotes(t, d))
	})
}

func TestOpen_UpgradeWithAlwaysPolicyRecreates(t *testing.T) {
	t.Parallel()
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), DestructiveAlways)

	openAndClose(t, cfg, schemaV1, func(d *Database) {
		require.NoError(t, d.Gorm().Create(&note{Title: "dropped"}).Error)
	})
	openAndClose(t, cfg, schemaV2, func(d *Database) {
		assert.True(t, d.Gorm().Migrator().HasColumn(&noteV2{}, "body"))
		assert.Zero(t, countNotes(t, d))
	})
}

func TestOpen_Downgrade(t *testing.T) {
	t.Parallel()

	tests := []struct {
		policy  DestructiveMigration
		wantErr bool
	}{
		{DestructiveNever, true},
		{DestructiveOnDowngrade, false},
		{DestructiveAlways, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), tt.policy)

			openAndClose(t, cfg, schemaV2, func(d *Database) {
				require.NoError(t, d.Gorm().Create(&noteV2{Title: "t", Body: "b"}).Error)
			})

			d, err := Open(context.Background(), "test_db", cfg, schemaV1)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaMismatch))
				assert.Contains(t, err.Error(), "newer than requested")
				return
			}
			require.NoError(t, err)
			defer d.Close()

			assert.Equal(t, 1, d.Version())
			assert.False(t, d.Gorm().Migrator().HasColumn(&note{}, "body"))
			assert.Zero(t, countNotes(t, d))
		})
	}
}

func TestOpen_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "bad", Config{Type: TypeSQLite}, schemaV1)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Open(context.Background(), "bad", sqliteConfig(MemoryPath, ""), Schema{Version: 1})
	assert.True(t, errors.Is(err, ErrInvalidSchema))
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()

	openAndClose(t, sqliteConfig(MemoryPath, ""), schemaV1, func(d *Database) {
		require.NoError(t, d.Gorm().Create(&note{Title: "in memory"}).Error)
		assert.Equal(t, int64(1), countNotes(t, d))
		assert.Equal(t, 1, d.Stats().MaxOpenConnections)
	})
}

func TestDatabase_Reset(t *testing.T) {
	t.Parallel()
	cfg := sqliteConfig(filepath.Join(t.TempDir(), "app.db"), "")

	openAndClose(t, cfg, schemaV1, func(d *Database) {
		require.NoError(t, d.Gorm().Create(&note{Title: "a"}).Error)
		require.NoError(t, d.Gorm().Create(&note{Title: "b"}).Error)

		require.NoError(t, d.Reset(context.Background()))
		assert.Zero(t, countNotes(t, d))
		assert.True(t, d.Gorm().Migrator().HasTable(&note{}))
	})

	// The schema record survives a reset, so reopening is not a mismatch.
	openAndClose(t, cfg, schemaV1, nil)
}

func TestDatabase_Close(t *testing.T) {
	t.Parallel()

	d, err := Open(context.Background(), "test_db", sqliteConfig(MemoryPath, ""), schemaV1)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	assert.Error(t, d.Healthcheck(context.Background()))
}
