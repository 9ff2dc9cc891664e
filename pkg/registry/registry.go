// Package registry provides a name-keyed cache of lazily constructed handles.
//
// A Registry maps a logical storage name to the handle built for it the first
// time the name is requested. Construction happens at most once per name for
// the lifetime of the registry, even under concurrent callers, and a failed
// construction is never cached.
//
// Registries are plain values: construct one per process (or per test) and pass
// it to whoever needs it instead of reaching for a package-level singleton.
//
// Example usage:
//
//	reg := registry.New[*database.Database]()
//	db, err := reg.GetOrCreate("user_db", func() (*database.Database, error) {
//	    return database.Open(ctx, "user_db", cfg, models.AppSchema)
//	})
package registry

import (
	"sort"
	"sync"
	"time"
)

// BuildFunc constructs a new handle. It is invoked at most once per name.
type BuildFunc[H any] func() (H, error)

// Registry holds at most one handle per name.
//
// All get-or-create calls are serialized by a single lock. Handle construction
// is expected to be rare (once per name per process), so calls for different
// names may wait on each other while a build is in progress.
type Registry[H any] struct {
	mu      sync.RWMutex
	entries map[string]H
	metrics Metrics
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	metrics Metrics
}

// WithMetrics attaches a metrics sink. A nil Metrics disables collection.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates an empty registry.
func New[H any](opts ...Option) *Registry[H] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry[H]{
		entries: make(map[string]H),
		metrics: o.metrics,
	}
}

// GetOrCreate returns the handle registered under name, building it with build
// if no handle exists yet.
//
// The lookup and the build run under the registry lock, so concurrent callers
// for the same name never build twice and never see a partially built handle.
// When build fails the error is returned wrapped in a *ConstructionError and
// nothing is stored; the next call for name will invoke its build again.
func (r *Registry[H]) GetOrCreate(name string, build BuildFunc[H]) (H, error) {
	var zero H
	if name == "" {
		return zero, ErrEmptyName
	}
	if build == nil {
		return zero, ErrNilBuildFunc
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.entries[name]; ok {
		if r.metrics != nil {
			r.metrics.RecordHit(name)
		}
		return h, nil
	}

	start := time.Now()
	h, err := build()
	if r.metrics != nil {
		r.metrics.RecordBuild(name, time.Since(start), err)
	}
	if err != nil {
		return zero, &ConstructionError{Name: name, Err: err}
	}

	r.entries[name] = h
	if r.metrics != nil {
		r.metrics.SetEntries(len(r.entries))
	}
	return h, nil
}

// Lookup returns the handle registered under name without building one.
func (r *Registry[H]) Lookup(name string) (H, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.entries[name]
	return h, ok
}

// Names returns the registered names in sorted order.
func (r *Registry[H]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered handles.
func (r *Registry[H]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Range calls fn for every registered handle in name order until fn returns
// false. fn runs outside the registry lock and may call back into the registry.
func (r *Registry[H]) Range(fn func(name string, h H) bool) {
	r.mu.RLock()
	snapshot := make(map[string]H, len(r.entries))
	for name, h := range r.entries {
		snapshot[name] = h
	}
	r.mu.RUnlock()

	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !fn(name, snapshot[name]) {
			return
		}
	}
}
