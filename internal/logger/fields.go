package logger

import (
	"log/slog"
	"time"
)

// Standard field keys. Use them consistently so log lines can be queried by key.
const (
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	KeyDatabase  = "database"  // Logical database name
	KeyType      = "type"      // Database type: sqlite, postgres
	KeyLocation  = "location"  // File path or host:port/dbname
	KeyVersion   = "version"   // Schema version
	KeyOperation = "operation" // open, insert, update, delete, reset

	KeySQL      = "sql"
	KeyRows     = "rows"
	KeyEntity   = "entity"
	KeyCount    = "count"
	KeyDuration = "duration"

	KeyDurationMs = "duration_ms"
	KeyError      = "error"
)

// Err returns an error attribute, or an empty attribute for a nil error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Database returns a database name attribute.
func Database(name string) slog.Attr {
	return slog.String(KeyDatabase, name)
}

// Operation returns an operation attribute.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Since returns a duration_ms attribute measured from start.
func Since(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}
