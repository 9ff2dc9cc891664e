package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for database operations.
const (
	AttrDBName      = "db.name"      // Logical database name (user_db, ...)
	AttrDBSystem    = "db.system"    // sqlite, postgres
	AttrDBLocation  = "db.location"  // File path or host:port/dbname
	AttrDBOperation = "db.operation" // open, get, reset, insert, ...
	AttrDBVersion   = "db.schema_version"
	AttrDBEntity    = "db.entity" // Go entity type
	AttrDBRows      = "db.rows_affected"
	AttrDBCount     = "db.count" // Batch size or number of databases
)

// SpanDatabaseStatus covers one health sweep over every configured database.
const SpanDatabaseStatus = "database.status"

// DBName returns an attribute for the logical database name
func DBName(name string) attribute.KeyValue {
	return attribute.String(AttrDBName, name)
}

// DBSystem returns an attribute for the database backend
func DBSystem(system string) attribute.KeyValue {
	return attribute.String(AttrDBSystem, system)
}

// DBLocation returns an attribute for where the database lives
func DBLocation(location string) attribute.KeyValue {
	return attribute.String(AttrDBLocation, location)
}

// DBOperation returns an attribute for the operation name
func DBOperation(op string) attribute.KeyValue {
	return attribute.String(AttrDBOperation, op)
}

// DBVersion returns an attribute for the schema version
func DBVersion(v int) attribute.KeyValue {
	return attribute.Int(AttrDBVersion, v)
}

// DBEntity returns an attribute for the entity type name
func DBEntity(entity string) attribute.KeyValue {
	return attribute.String(AttrDBEntity, entity)
}

// DBRows returns an attribute for the number of rows affected
func DBRows(n int64) attribute.KeyValue {
	return attribute.Int64(AttrDBRows, n)
}

// DBCount returns an attribute for the number of entities in a batch
func DBCount(n int) attribute.KeyValue {
	return attribute.Int(AttrDBCount, n)
}

// StartDatabaseSpan starts a span named database.<operation> for the named database.
func StartDatabaseSpan(ctx context.Context, operation, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		DBName(name),
		DBOperation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "database."+operation, trace.WithAttributes(allAttrs...))
}

// StartDAOSpan starts a span named dao.<operation> for an entity type.
func StartDAOSpan(ctx context.Context, operation, entity string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		DBEntity(entity),
		DBOperation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "dao."+operation, trace.WithAttributes(allAttrs...))
}
