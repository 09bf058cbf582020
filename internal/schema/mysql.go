package schema

import (
	"context"
	"fmt"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
)

// mysqlDiscovery implements Discovery for MySQL using information_schema.
// In MySQL the "schema" is the current database, selected by the DSN.
type mysqlDiscovery struct {
	db database.DB
}

func (m *mysqlDiscovery) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := m.db.Query(ctx, q)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "scan table name", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (m *mysqlDiscovery) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT COUNT(*) > 0
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_name   = ?`

	row, err := m.db.QueryRow(ctx, q, table)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "table exists check", err)
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "table exists check", err)
	}
	return exists, nil
}

func (m *mysqlDiscovery) GetTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	// column_type already carries the length ("varchar(255)"), unlike
	// data_type, so no recomposition is needed here.
	const q = `
		SELECT
			c.column_name,
			c.column_type,
			c.is_nullable = 'YES'  AS is_nullable,
			c.column_key  = 'PRI'  AS is_primary_key
		FROM information_schema.columns c
		WHERE c.table_schema = DATABASE()
		  AND c.table_name   = ?
		ORDER BY c.ordinal_position`

	rows, err := m.db.Query(ctx, q, table)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("inspect table %s", table), err)
	}
	defer rows.Close()

	ts := &TableSchema{TableName: table, DisplayName: displayName(table)}
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.PrimaryKey); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "scan column", err)
		}
		ts.Columns = append(ts.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "iterate columns", err)
	}
	if len(ts.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}

	if err := m.attachForeignKeys(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func (m *mysqlDiscovery) attachForeignKeys(ctx context.Context, ts *TableSchema) error {
	const q = `
		SELECT column_name,
		       referenced_table_name,
		       referenced_column_name
		FROM information_schema.key_column_usage
		WHERE table_schema           = DATABASE()
		  AND table_name             = ?
		  AND referenced_table_name IS NOT NULL`

	rows, err := m.db.Query(ctx, q, ts.TableName)
	if err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "fetch foreign keys", err)
	}
	defer rows.Close()

	refs := make(map[string]string)
	for rows.Next() {
		var col, refTable, refColumn string
		if err := rows.Scan(&col, &refTable, &refColumn); err != nil {
			return errs.Wrap(errs.ErrKindQueryFailed, "scan foreign key", err)
		}
		refs[col] = refTable + "." + refColumn
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(errs.ErrKindQueryFailed, "iterate foreign keys", err)
	}

	for i := range ts.Columns {
		if ref, ok := refs[ts.Columns[i].Name]; ok {
			ts.Columns[i].ForeignKey = ref
		}
	}
	return nil
}
