package database

import "errors"

var (
	// ErrInvalidConfig is returned when a database configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid database configuration")

	// ErrInvalidSchema is returned for a schema with no entities or a version below 1.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrUnknownDatabase is returned when a name has no configuration.
	ErrUnknownDatabase = errors.New("unknown database")

	// ErrSchemaMismatch is returned when the stored schema cannot be reconciled
	// with the requested one without losing data.
	ErrSchemaMismatch = errors.New("schema mismatch")
)
