// Package schema implements table discovery: listing tables and reading
// column metadata from the live database. The field catalog consumes the
// Discovery interface and never issues SQL of its own.
package schema

import (
	"context"
	"strings"

	"github.com/formmaster/pro/internal/database"
)

// Column describes a single column as seen by the form layer.
type Column struct {
	// Name is the column name as declared in the database.
	Name string

	// Type is the native type string, including length when the backend
	// exposes one (e.g. "varchar(255)").
	Type string

	// Nullable mirrors the column's NULL constraint.
	Nullable bool

	// PrimaryKey is true when the column is part of the primary key.
	PrimaryKey bool

	// ForeignKey is the "table.column" the column references, or "" when
	// the column is not a foreign key.
	ForeignKey string
}

// TableSchema describes one table and its columns, in ordinal position order.
type TableSchema struct {
	TableName   string
	DisplayName string
	Columns     []Column
}

// Discovery reads table structure from the live database.
type Discovery interface {
	// ListTables returns all user-defined table names.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableSchema returns the columns of a single table.
	// Returns an errs.ErrKindNotFound error when the table does not exist.
	GetTableSchema(ctx context.Context, table string) (*TableSchema, error)

	// TableExists reports whether a table with the given name exists.
	TableExists(ctx context.Context, table string) (bool, error)
}

// New returns the Discovery implementation matching the driver's dialect.
func New(db database.DB) Discovery {
	if db.Dialect() == database.DialectMySQL {
		return &mysqlDiscovery{db: db}
	}
	return &pgDiscovery{db: db}
}

// displayName renders a table name for the UI: underscore-split, title-cased.
// "personal_details" -> "Personal Details".
func displayName(table string) string {
	parts := strings.Split(table, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
