//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ormkit/pkg/api"
	"github.com/marmos91/ormkit/pkg/dao"
	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/models"
)

// newMixedManager configures user_db on SQLite and audit_db on PostgreSQL.
func newMixedManager(t *testing.T) (*database.Manager, *PostgresHelper) {
	t.Helper()
	pg := NewPostgresHelper(t)
	pg.DropTables(t)

	m := database.NewManager(map[string]database.Config{
		"user_db":  {SQLite: database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "user.db")}},
		"audit_db": pg.Config(database.DestructiveNever),
	})
	t.Cleanup(func() { _ = m.Close() })
	return m, pg
}

func TestMixedBackends_OneHandlePerName(t *testing.T) {
	m, _ := newMixedManager(t)
	ctx := context.Background()

	const callers = 16
	handles := make([][2]*database.Database, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j, name := range []string{"user_db", "audit_db"} {
				db, err := m.Get(ctx, name, models.AppSchema)
				if err != nil {
					t.Errorf("Get(%s): %v", name, err)
					return
				}
				handles[i][j] = db
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, handles[0][0], handles[i][0])
		assert.Same(t, handles[0][1], handles[i][1])
	}
	assert.NotSame(t, handles[0][0], handles[0][1])
	assert.Equal(t, database.TypeSQLite, handles[0][0].Type())
	assert.Equal(t, database.TypePostgres, handles[0][1].Type())
}

func TestPostgres_UserDAOConflicts(t *testing.T) {
	m, pg := newMixedManager(t)
	ctx := context.Background()

	db, err := m.Get(ctx, "audit_db", models.AppSchema)
	require.NoError(t, err)

	users := models.NewUserDAO(db.Gorm())
	alice := &models.User{Name: "Alice", Email: "alice@example.com", Age: 30}
	require.NoError(t, users.Insert(ctx, alice))

	dup := &models.User{Name: "Alice 2", Email: "ALICE@example.com"}
	err = users.Insert(ctx, dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dao.ErrConflict), "expected ErrConflict, got %v", err)

	ignoring := models.NewUserDAO(db.Gorm(), dao.WithConflictStrategy(dao.Ignore))
	require.NoError(t, ignoring.Insert(ctx, &models.User{Name: "Alice 3", Email: "alice@example.com"}))

	replacing := models.NewUserDAO(db.Gorm(), dao.WithConflictStrategy(dao.Replace))
	require.NoError(t, replacing.Insert(ctx, &models.User{ID: alice.ID, Name: "Alice Replaced", Email: "alice@example.com", Age: 31}))

	found, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice Replaced", found.Name)
	assert.Equal(t, 1, pg.CountRows(t, "users"))

	batch := make([]*models.User, 0, 250)
	for i := 0; i < 250; i++ {
		batch = append(batch, &models.User{Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("user%d@example.com", i)})
	}
	require.NoError(t, users.InsertAll(ctx, batch))
	assert.Equal(t, 251, pg.CountRows(t, "users"))

	all, err := users.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 251)
}

func TestPostgres_DowngradeNeedsPolicy(t *testing.T) {
	pg := NewPostgresHelper(t)
	pg.DropTables(t)
	ctx := context.Background()

	newer := database.Schema{Version: models.SchemaVersion + 1, Entities: models.AppSchema.Entities}
	db, err := database.Open(ctx, "audit_db", pg.Config(database.DestructiveNever), newer)
	require.NoError(t, err)
	require.NoError(t, models.NewUserDAO(db.Gorm()).Insert(ctx, &models.User{Name: "Bob", Email: "bob@example.com"}))
	require.NoError(t, db.Close())

	_, err = database.Open(ctx, "audit_db", pg.Config(database.DestructiveNever), models.AppSchema)
	assert.True(t, errors.Is(err, database.ErrSchemaMismatch), "expected ErrSchemaMismatch, got %v", err)

	db, err = database.Open(ctx, "audit_db", pg.Config(database.DestructiveOnDowngrade), models.AppSchema)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, 0, pg.CountRows(t, "users"))
}

func TestServe_DatabasesEndpoint(t *testing.T) {
	m, _ := newMixedManager(t)
	require.NoError(t, m.OpenAll(context.Background(), models.AppSchema))

	srv := httptest.NewServer(api.NewRouter(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health/databases")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string            `json:"status"`
		Data   []database.Status `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	require.Len(t, body.Data, 2)
	assert.Equal(t, "audit_db", body.Data[0].Name)
	assert.Equal(t, database.TypePostgres, body.Data[0].Type)
	assert.Equal(t, "user_db", body.Data[1].Name)

	ready, err := http.Get(srv.URL + "/health/ready")
	require.NoError(t, err)
	_ = ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}
