package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/ormkit/pkg/database"
	"github.com/marmos91/ormkit/pkg/metrics"
	"github.com/marmos91/ormkit/pkg/models"
)

func newManager(t *testing.T) *database.Manager {
	t.Helper()
	m := database.NewManager(map[string]database.Config{
		"user_db": {SQLite: database.SQLiteConfig{Path: filepath.Join(t.TempDir(), "user.db")}},
	})
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestRouter_Health(t *testing.T) {
	m := newManager(t)
	router := NewRouter(m)

	assert.Equal(t, http.StatusOK, get(t, router, "/health").Code)

	// Configured but not yet opened.
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/health/ready").Code)

	_, err := m.Get(context.Background(), "user_db", models.AppSchema)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(t, router, "/health/ready").Code)

	w := get(t, router, "/health/databases")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"user_db"`)
	assert.Contains(t, w.Body.String(), `"open":true`)
}

func TestRouter_RootRedirect(t *testing.T) {
	w := get(t, NewRouter(nil), "/")
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/health", w.Header().Get("Location"))
}

func TestRouter_Metrics(t *testing.T) {
	metrics.Reset()
	t.Cleanup(metrics.Reset)

	assert.Equal(t, http.StatusNotFound, get(t, NewRouter(nil), "/metrics").Code)

	metrics.InitRegistry()
	w := get(t, NewRouter(nil), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// listenPort returns the port a started server is bound to.
func listenPort(t *testing.T, s *Server) int {
	t.Helper()
	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	_, port, err := net.SplitHostPort(s.Addr())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	return n
}

func TestServer_Lifecycle(t *testing.T) {
	server := NewServer(APIConfig{Port: 0}, newManager(t))
	assert.Empty(t, server.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- server.Start(ctx) }()

	port := listenPort(t, server)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"healthy"`))

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Stop after shutdown is a no-op.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestServer_ReadyReportsBoundAddr(t *testing.T) {
	server := NewServer(APIConfig{Port: 0}, nil)

	select {
	case <-server.Ready():
		t.Fatal("ready before Start")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = server.Start(ctx) }()

	select {
	case <-server.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server never became ready")
	}

	_, port, err := net.SplitHostPort(server.Addr())
	require.NoError(t, err)
	n, err := strconv.Atoi(port)
	require.NoError(t, err)
	assert.NotZero(t, n)
}

func TestServer_PortInUse(t *testing.T) {
	first := NewServer(APIConfig{Port: 0}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = first.Start(ctx) }()
	second := NewServer(APIConfig{Port: listenPort(t, first)}, nil)
	err := second.Start(context.Background())
	assert.Error(t, err)
}

func TestAPIConfig_ApplyDefaults(t *testing.T) {
	cfg := APIConfig{ReadTimeout: time.Second}
	cfg.ApplyDefaults()

	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
}
