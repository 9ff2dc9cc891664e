package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/ormkit/internal/logger"
	"github.com/marmos91/ormkit/internal/telemetry"
	"github.com/marmos91/ormkit/pkg/registry"
)

// statusProbeTimeout bounds a single health probe in Status.
const statusProbeTimeout = 2 * time.Second

// statusConcurrency bounds how many databases are probed at once.
const statusConcurrency = 8

// Manager hands out one Database per configured name. Handles are built on
// first use and kept for the life of the process.
type Manager struct {
	configs map[string]Config
	handles *registry.Registry[*Database]
	metrics registry.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRegistry makes the Manager store handles in reg instead of a private registry.
func WithRegistry(reg *registry.Registry[*Database]) ManagerOption {
	return func(m *Manager) {
		m.handles = reg
	}
}

// WithMetrics attaches metrics to the private registry. Ignored with WithRegistry.
func WithMetrics(metrics registry.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a Manager for the given named configurations.
func NewManager(configs map[string]Config, opts ...ManagerOption) *Manager {
	m := &Manager{configs: make(map[string]Config, len(configs))}
	for name, cfg := range configs {
		m.configs[name] = cfg
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.handles == nil {
		m.handles = registry.New[*Database](registry.WithMetrics(m.metrics))
	}
	return m
}

// Get returns the handle for name, opening it with schema on first use.
// Once a name is open, later calls return the same handle and schema is ignored.
// Open failures are not remembered: the next call tries again.
func (m *Manager) Get(ctx context.Context, name string, schema Schema) (*Database, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "get", name)
	defer span.End()

	db, err := m.handles.GetOrCreate(name, func() (*Database, error) {
		cfg, ok := m.configs[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, name)
		}
		return Open(ctx, name, cfg, schema)
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return nil, err
	}
	return db, nil
}

// OpenAll opens every configured database with schema. It keeps going after a
// failure and returns all failures joined.
func (m *Manager) OpenAll(ctx context.Context, schema Schema) error {
	var errs []error
	for _, name := range m.Names() {
		if _, err := m.Get(ctx, name, schema); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Names returns the configured database names, sorted.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the configuration for name with defaults applied.
func (m *Manager) Config(name string) (Config, bool) {
	cfg, ok := m.configs[name]
	if ok {
		cfg.ApplyDefaults()
	}
	return cfg, ok
}

// Status describes one configured database.
type Status struct {
	Name            string `json:"name" yaml:"name"`
	Type            Type   `json:"type" yaml:"type"`
	Location        string `json:"location" yaml:"location"`
	Open            bool   `json:"open" yaml:"open"`
	Version         int    `json:"version,omitempty" yaml:"version,omitempty"`
	Healthy         bool   `json:"healthy" yaml:"healthy"`
	OpenConnections int    `json:"open_connections" yaml:"open_connections"`
	Error           string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Status reports every configured database. Open handles are probed
// concurrently; databases that were never opened are reported as closed.
func (m *Manager) Status(ctx context.Context) []Status {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanDatabaseStatus)
	defer span.End()

	names := m.Names()
	statuses := make([]Status, len(names))
	telemetry.SetAttributes(ctx, telemetry.DBCount(len(names)))

	var g errgroup.Group
	g.SetLimit(statusConcurrency)

	for i, name := range names {
		cfg, _ := m.Config(name)
		statuses[i] = Status{Name: name, Type: cfg.Type, Location: cfg.Location()}

		db, ok := m.handles.Lookup(name)
		if !ok {
			continue
		}

		st := &statuses[i]
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, statusProbeTimeout)
			defer cancel()

			st.Open = true
			st.Version = db.Version()
			st.OpenConnections = db.Stats().OpenConnections
			if err := db.Healthcheck(probeCtx); err != nil {
				st.Error = err.Error()
				return nil
			}
			st.Healthy = true
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}

// Close closes every open handle. Handles stay registered; using one after
// Close fails with the driver's closed-database error.
func (m *Manager) Close() error {
	var errs []error
	m.handles.Range(func(name string, db *Database) bool {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
			return true
		}
		logger.Debug("Database closed", logger.KeyDatabase, name)
		return true
	})
	return errors.Join(errs...)
}
