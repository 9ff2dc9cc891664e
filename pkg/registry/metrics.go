package registry

import "time"

// Metrics receives registry events.
//
// Implementations must be safe for concurrent use. Pass nil (or omit
// WithMetrics) to disable collection entirely.
type Metrics interface {
	// RecordHit is called when GetOrCreate returns an existing handle.
	RecordHit(name string)

	// RecordBuild is called after every build attempt. err is nil on success.
	RecordBuild(name string, duration time.Duration, err error)

	// SetEntries reports the number of registered handles after an insert.
	SetEntries(n int)
}
