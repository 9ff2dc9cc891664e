// Package models holds the entities and DAOs the ormkit CLI ships with.
package models

import "github.com/marmos91/ormkit/pkg/database"

// SchemaVersion is bumped whenever an entity in AppSchema changes shape.
const SchemaVersion = 1

// AppSchema lists every entity stored in an application database.
var AppSchema = database.Schema{
	Version:  SchemaVersion,
	Entities: []any{&User{}},
}
