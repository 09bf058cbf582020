package database

import (
	"fmt"
	"strings"

	"github.com/formmaster/pro/internal/errs"
)

// Dialect controls which SQL placeholder style the builders emit.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders.
	DialectMySQL
)

// validOps is the allowlist of comparison operators for WHERE clauses.
// Any operator not in this list is rejected to prevent SQL injection
// through the operator position (which cannot be parameterized).
var validOps = map[string]bool{
	"=":     true,
	"!=":    true,
	"<>":    true,
	"<":     true,
	">":     true,
	"<=":    true,
	">=":    true,
	"LIKE":  true,
	"ILIKE": true,
}

// SelectBuilder constructs a parameterized SELECT query using a fluent API.
// Values are never interpolated into the SQL string — always passed as args.
//
// Usage (Postgres):
//
//	sql, args, err := Select("form_templates", DialectPostgres).
//	    Columns("id", "name", "layout").
//	    Where("client_id", "=", clientID).
//	    OrderBy("created_at", Desc).
//	    Limit(20).
//	    Build()
type SelectBuilder struct {
	table   string
	dialect Dialect
	columns []string
	where   []whereClause
	orderBy []orderClause
	limit   *int
	offset  *int
}

// SortDirection controls the ORDER BY direction.
type SortDirection bool

const (
	Asc  SortDirection = false
	Desc SortDirection = true
)

type whereClause struct {
	column string
	op     string
	value  any
}

type orderClause struct {
	column string
	dir    SortDirection
}

// Select starts a new SelectBuilder for the given table and dialect.
func Select(table string, d Dialect) *SelectBuilder {
	return &SelectBuilder{table: table, dialect: d}
}

// Columns restricts the SELECT to the specified columns.
// If not called, SELECT * is used.
func (b *SelectBuilder) Columns(cols ...string) *SelectBuilder {
	b.columns = cols
	return b
}

// Where adds a WHERE condition. op must be one of the allowed comparison
// operators (=, !=, <, >, <=, >=, LIKE, ILIKE).
// Multiple calls are combined with AND.
func (b *SelectBuilder) Where(column, op string, value any) *SelectBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// OrderBy appends an ORDER BY clause for the given column and direction.
func (b *SelectBuilder) OrderBy(column string, dir SortDirection) *SelectBuilder {
	b.orderBy = append(b.orderBy, orderClause{column, dir})
	return b
}

// Limit sets the maximum number of rows to return.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limit = &n
	return b
}

// Offset sets the number of rows to skip (for pagination).
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offset = &n
	return b
}

// Build produces the final SQL string and argument slice.
// Returns an error if any WHERE operator is not in the allowlist.
func (b *SelectBuilder) Build() (string, []any, error) {
	cols := "*"
	if len(b.columns) > 0 {
		quoted := make([]string, len(b.columns))
		for i, c := range b.columns {
			quoted[i] = quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(cols)
	sb.WriteString(" FROM ")
	sb.WriteString(quoteIdent(b.table))

	var args []any
	argIdx := 1

	if len(b.where) > 0 {
		parts := make([]string, 0, len(b.where))
		for _, w := range b.where {
			op := strings.ToUpper(w.op)
			if !validOps[op] {
				return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
			}
			parts = append(parts, fmt.Sprintf("%s %s %s", quoteIdent(w.column), op, placeholder(b.dialect, argIdx)))
			args = append(args, w.value)
			argIdx++
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(b.orderBy) > 0 {
		parts := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.dir == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", quoteIdent(o.column), dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	if b.limit != nil {
		sb.WriteString(fmt.Sprintf(" LIMIT %s", placeholder(b.dialect, argIdx)))
		args = append(args, *b.limit)
		argIdx++
	}

	if b.offset != nil {
		sb.WriteString(fmt.Sprintf(" OFFSET %s", placeholder(b.dialect, argIdx)))
		args = append(args, *b.offset)
	}

	return sb.String(), args, nil
}

// InsertBuilder constructs a parameterized INSERT statement.
//
// Usage:
//
//	sql, args, err := Insert("documents", DialectPostgres).
//	    Set("document_id", id).
//	    Set("client_id", clientID).
//	    Build()
type InsertBuilder struct {
	table   string
	dialect Dialect
	columns []string
	values  []any
}

// Insert starts a new InsertBuilder for the given table and dialect.
func Insert(table string, d Dialect) *InsertBuilder {
	return &InsertBuilder{table: table, dialect: d}
}

// Set adds a column/value pair. Call order determines column order.
func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Build produces the final SQL string and argument slice.
func (b *InsertBuilder) Build() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "insert requires at least one column")
	}

	cols := make([]string, len(b.columns))
	holes := make([]string, len(b.columns))
	for i, c := range b.columns {
		cols[i] = quoteIdent(c)
		holes[i] = placeholder(b.dialect, i+1)
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(b.table),
		strings.Join(cols, ", "),
		strings.Join(holes, ", "),
	)
	return sql, b.values, nil
}

// UpdateBuilder constructs a parameterized UPDATE statement.
type UpdateBuilder struct {
	table   string
	dialect Dialect
	columns []string
	values  []any
	where   []whereClause
}

// Update starts a new UpdateBuilder for the given table and dialect.
func Update(table string, d Dialect) *UpdateBuilder {
	return &UpdateBuilder{table: table, dialect: d}
}

// Set adds a column to the SET clause.
func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	b.columns = append(b.columns, column)
	b.values = append(b.values, value)
	return b
}

// Where adds a WHERE condition, combined with AND.
func (b *UpdateBuilder) Where(column, op string, value any) *UpdateBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// Build produces the final SQL string and argument slice.
// An UPDATE without a WHERE clause is rejected — a full-table update is
// never intentional in this codebase.
func (b *UpdateBuilder) Build() (string, []any, error) {
	if len(b.columns) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "update requires at least one column")
	}
	if len(b.where) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "update requires a WHERE clause")
	}

	var sb strings.Builder
	sb.WriteString("UPDATE ")
	sb.WriteString(quoteIdent(b.table))
	sb.WriteString(" SET ")

	var args []any
	argIdx := 1

	sets := make([]string, len(b.columns))
	for i, c := range b.columns {
		sets[i] = fmt.Sprintf("%s = %s", quoteIdent(c), placeholder(b.dialect, argIdx))
		args = append(args, b.values[i])
		argIdx++
	}
	sb.WriteString(strings.Join(sets, ", "))

	parts := make([]string, 0, len(b.where))
	for _, w := range b.where {
		op := strings.ToUpper(w.op)
		if !validOps[op] {
			return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", quoteIdent(w.column), op, placeholder(b.dialect, argIdx)))
		args = append(args, w.value)
		argIdx++
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(parts, " AND "))

	return sb.String(), args, nil
}

// DeleteBuilder constructs a parameterized DELETE statement.
type DeleteBuilder struct {
	table   string
	dialect Dialect
	where   []whereClause
}

// Delete starts a new DeleteBuilder for the given table and dialect.
func Delete(table string, d Dialect) *DeleteBuilder {
	return &DeleteBuilder{table: table, dialect: d}
}

// Where adds a WHERE condition, combined with AND.
func (b *DeleteBuilder) Where(column, op string, value any) *DeleteBuilder {
	b.where = append(b.where, whereClause{column, op, value})
	return b
}

// Build produces the final SQL string and argument slice.
// A DELETE without a WHERE clause is rejected, same as UPDATE.
func (b *DeleteBuilder) Build() (string, []any, error) {
	if len(b.where) == 0 {
		return "", nil, errs.New(errs.ErrKindInvalidInput, "delete requires a WHERE clause")
	}

	var sb strings.Builder
	sb.WriteString("DELETE FROM ")
	sb.WriteString(quoteIdent(b.table))

	var args []any
	argIdx := 1

	parts := make([]string, 0, len(b.where))
	for _, w := range b.where {
		op := strings.ToUpper(w.op)
		if !validOps[op] {
			return "", nil, errs.Newf(errs.ErrKindInvalidInput, "unsupported WHERE operator: %q", w.op)
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", quoteIdent(w.column), op, placeholder(b.dialect, argIdx)))
		args = append(args, w.value)
		argIdx++
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(parts, " AND "))

	return sb.String(), args, nil
}

// placeholder returns the parameter placeholder for the dialect.
// Postgres: $1, $2, …   MySQL: ? (index is ignored)
func placeholder(d Dialect, idx int) string {
	if d == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", idx)
}

// quoteIdent wraps a SQL identifier in double-quotes (ANSI standard).
// This safely handles reserved words and mixed-case names.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
