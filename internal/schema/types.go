package schema

import (
	"github.com/koustreak/rowcraft/internal/codec"
	"github.com/koustreak/rowcraft/internal/model"
)

// ForeignKeyTarget is the (schema, table, column) a foreign key references.
type ForeignKeyTarget = model.ForeignKeyTarget

// Table names one base table.
type Table struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
}

// Schema groups the base tables of one namespace.
type Schema struct {
	Name   string  `json:"name"`
	Tables []Table `json:"tables"`
}

// ColumnDefinition describes a single column in a table.
//
// Position is the 0-based display index within the ordered result. Ordinal
// keeps the server's ordinal_position, which has gaps after a column drop.
type ColumnDefinition struct {
	Name         string            `json:"name"`
	DataType     string            `json:"data_type"` // declared type: integer, character varying, ...
	UDTName      string            `json:"udt_name"`  // underlying type used for decoding: int4, varchar, ...
	Category     codec.Category    `json:"category"`
	Position     int               `json:"position"`
	Ordinal      int               `json:"ordinal"`
	IsNullable   bool              `json:"is_nullable"`
	Default      *string           `json:"default,omitempty"` // nil if no default
	MaxLength    *int              `json:"max_length,omitempty"`
	Precision    *int              `json:"precision,omitempty"`
	Scale        *int              `json:"scale,omitempty"`
	IsPrimaryKey bool              `json:"is_primary_key"`
	IsForeignKey bool              `json:"is_foreign_key"`
	ForeignKey   *ForeignKeyTarget `json:"foreign_key,omitempty"`
}

// IndexDefinition describes one index on a table.
type IndexDefinition struct {
	Name       string   `json:"name"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"` // expression indexes contribute no names
	IsUnique   bool     `json:"is_unique"`
	IsPrimary  bool     `json:"is_primary"`
	Method     string   `json:"method"` // btree, hash, gin, gist, ...
	Definition string   `json:"definition"`
}

// ConstraintKind is the kind of a table constraint, spelled as in DDL.
type ConstraintKind string

const (
	ConstraintPrimaryKey ConstraintKind = "PRIMARY KEY"
	ConstraintForeignKey ConstraintKind = "FOREIGN KEY"
	ConstraintUnique     ConstraintKind = "UNIQUE"
	ConstraintCheck      ConstraintKind = "CHECK"
	ConstraintExclusion  ConstraintKind = "EXCLUDE"
)

// ReferentialAction is the ON DELETE / ON UPDATE behaviour of a foreign key.
type ReferentialAction string

const (
	ActionNoAction   ReferentialAction = "NO ACTION"
	ActionRestrict   ReferentialAction = "RESTRICT"
	ActionCascade    ReferentialAction = "CASCADE"
	ActionSetNull    ReferentialAction = "SET NULL"
	ActionSetDefault ReferentialAction = "SET DEFAULT"
)

// Valid reports whether a is one of the known actions.
func (a ReferentialAction) Valid() bool {
	switch a {
	case ActionNoAction, ActionRestrict, ActionCascade, ActionSetNull, ActionSetDefault:
		return true
	}
	return false
}

// ConstraintDefinition describes one table constraint.
type ConstraintDefinition struct {
	Name            string             `json:"name"`
	Kind            ConstraintKind     `json:"kind"`
	Columns         []string           `json:"columns"`
	CheckExpression *string            `json:"check_expression,omitempty"`
	ForeignKey      *ForeignKeyTarget  `json:"foreign_key,omitempty"`
	ForeignColumns  []string           `json:"foreign_columns,omitempty"` // every referenced column, in key order
	OnDelete        *ReferentialAction `json:"on_delete,omitempty"`
	OnUpdate        *ReferentialAction `json:"on_update,omitempty"`
}

// TableStructure is everything the structure view shows for a table.
type TableStructure struct {
	Columns     []ColumnDefinition     `json:"columns"`
	Indexes     []IndexDefinition      `json:"indexes"`
	Constraints []ConstraintDefinition `json:"constraints"`
}
