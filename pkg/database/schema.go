package database

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"gorm.io/gorm"
)

// Schema is the set of entity types a database holds, tagged with a version.
// Bump Version whenever an entity gains, loses or changes a column.
type Schema struct {
	Version  int
	Entities []any
}

// Validate checks that the schema can be applied.
func (s Schema) Validate() error {
	if s.Version < 1 {
		return fmt.Errorf("%w: version must be >= 1, got %d", ErrInvalidSchema, s.Version)
	}
	if len(s.Entities) == 0 {
		return fmt.Errorf("%w: no entities", ErrInvalidSchema)
	}
	for i, e := range s.Entities {
		if e == nil {
			return fmt.Errorf("%w: entity %d is nil", ErrInvalidSchema, i)
		}
	}
	return nil
}

// Identity returns a stable fingerprint of the tables and columns the entities
// map to. Two schemas with the same tables and columns have the same identity
// regardless of entity order.
func (s Schema) Identity(db *gorm.DB) (string, error) {
	tables := make([]string, 0, len(s.Entities))
	for _, e := range s.Entities {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(e); err != nil {
			return "", fmt.Errorf("%w: parse entity %T: %v", ErrInvalidSchema, e, err)
		}

		cols := make([]string, 0, len(stmt.Schema.Fields))
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" {
				continue
			}
			cols = append(cols, f.DBName+" "+string(f.DataType))
		}
		sort.Strings(cols)
		tables = append(tables, stmt.Schema.Table+"("+strings.Join(cols, ",")+")")
	}
	sort.Strings(tables)

	return fmt.Sprintf("%016x", xxh3.HashString(strings.Join(tables, ";"))), nil
}

// schemaRecordID is the primary key of the single bookkeeping row.
const schemaRecordID = 1

// schemaRecord stores the version and identity the database was last opened with.
type schemaRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false"`
	Version   int    `gorm:"not null"`
	Identity  string `gorm:"size:32;not null"`
	UpdatedAt time.Time
}

// TableName keeps bookkeeping separate from application tables.
func (schemaRecord) TableName() string {
	return "ormkit_schema"
}
