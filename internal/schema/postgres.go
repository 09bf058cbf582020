package schema

import (
	"context"
	"fmt"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
)

// pgDiscovery implements Discovery for PostgreSQL using information_schema.
type pgDiscovery struct {
	db database.DB
}

// ListTables returns all user-defined table names in the public schema.
func (p *pgDiscovery) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type   = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := p.db.Query(ctx, q)
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

// TableExists checks whether a specific table exists in the public schema.
func (p *pgDiscovery) TableExists(ctx context.Context, table string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public'
			  AND table_type   = 'BASE TABLE'
			  AND table_name   = $1
		)`

	row, err := p.db.QueryRow(ctx, q, table)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "table exists check", err)
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, errs.Wrap(errs.ErrKindQueryFailed, "table exists check", err)
	}
	return exists, nil
}

// GetTableSchema returns column details for a single table.
func (p *pgDiscovery) GetTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	const q = `
		SELECT
			c.column_name,
			c.data_type,
			c.character_maximum_length,
			c.is_nullable = 'YES'         AS is_nullable,
			COALESCE(pk.is_pk, false)     AS is_primary_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema = 'public'
			  AND tc.table_name   = $1
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`

	rows, err := p.db.Query(ctx, q, table)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, fmt.Sprintf("inspect table %s", table), err)
	}
	defer rows.Close()

	ts := &TableSchema{TableName: table, DisplayName: displayName(table)}
	for rows.Next() {
		var col Column
		var dataType string
		var maxLen *int

		if err := rows.Scan(&col.Name, &dataType, &maxLen, &col.Nullable, &col.PrimaryKey); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "scan column", err)
		}

		// Fold the length back into the type string so downstream
		// constraint extraction sees "character varying(255)".
		if maxLen != nil {
			dataType = fmt.Sprintf("%s(%d)", dataType, *maxLen)
		}
		col.Type = dataType
		ts.Columns = append(ts.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrKindQueryFailed, "iterate columns", err)
	}
	if len(ts.Columns) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", table)
	}

	if err := p.attachForeignKeys(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// attachForeignKeys fills Column.ForeignKey for FK columns of the table.
func (p *pgDiscovery) attachForeignKeys(ctx context.Context, ts *TableSchema) error {
	const q = `
		SELECT kcu.column_name,
		       ccu.table_name  AS ref_table,
		       ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema    = 'public'
		  AND tc.table_name      = $1`

	rows, err := p.db.Query(ctx, q, ts.TableName)
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
