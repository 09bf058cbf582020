package profile

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/logger"
)

type fakeCatalog struct {
	groups []fields.TableGroup
}

func (f *fakeCatalog) ListAllFields(ctx context.Context) ([]fields.Field, error) {
	var all []fields.Field
	for _, g := range f.groups {
		all = append(all, g.Fields...)
	}
	return all, nil
}

func (f *fakeCatalog) GroupByTable(ctx context.Context) ([]fields.TableGroup, error) {
	return f.groups, nil
}

// fakeDB returns canned rows keyed by table name and records executed SQL.
type fakeDB struct {
	rowsByTable map[string][]map[string]any
	execSQL     []string
	execArgs    [][]any
}

func (f *fakeDB) Ping(ctx context.Context) error { return nil }
func (f *fakeDB) Close()                         {}
func (f *fakeDB) Dialect() database.Dialect      { return database.DialectPostgres }

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	for table, rows := range f.rowsByTable {
		if strings.Contains(sql, `FROM "`+table+`"`) {
			return &mapRows{rows: rows}, nil
		}
	}
	return &mapRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) (database.Row, error) {
	return nil, errs.New(errs.ErrKindQueryFailed, "unused in profile tests")
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	f.execSQL = append(f.execSQL, sql)
	f.execArgs = append(f.execArgs, args)
	return 1, nil
}

// mapRows serves rows already shaped as column->value maps.
type mapRows struct {
	rows []map[string]any
	cols []string
	idx  int
}

func (r *mapRows) Next() bool {
	return r.idx < len(r.rows)
}

func (r *mapRows) Columns() ([]string, error) {
	if r.cols == nil && len(r.rows) > 0 {
		for col := range r.rows[0] {
			r.cols = append(r.cols, col)
		}
	}
	return r.cols, nil
}

func (r *mapRows) Scan(dest ...any) error {
	cols, _ := r.Columns()
	row := r.rows[r.idx]
	r.idx++
	for i, col := range cols {
		*dest[i].(*any) = row[col]
	}
	return nil
}

func (r *mapRows) Close()     {}
func (r *mapRows) Err() error { return nil }

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "json", Output: io.Discard})
}

func field(table, column string) fields.Field {
	return fields.Field{
		ID:         table + "." + column,
		TableName:  table,
		ColumnName: column,
		DataType:   fields.TypeText,
	}
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		groups: []fields.TableGroup{
			{Table: "personal_details", Fields: []fields.Field{
				field("personal_details", "first_name"),
				field("personal_details", "email"),
			}},
			{Table: "education", Fields: []fields.Field{
				field("education", "school_name"),
			}},
		},
	}
}

func TestLoad_FlattensToTableColumnKeys(t *testing.T) {
	db := &fakeDB{rowsByTable: map[string][]map[string]any{
		"personal_details": {{"first_name": "Asha", "email": "asha@example.com"}},
		"education":        {{"school_name": nil}},
	}}
	svc := NewService(db, testCatalog(), testLogger())

	data, err := svc.Load(context.Background(), "client-1")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"personal_details.first_name": "Asha",
		"personal_details.email":      "asha@example.com",
		// nil school_name is omitted, not emitted as a null entry
	}, data)
}

func TestLoad_MissingRowContributesNothing(t *testing.T) {
	db := &fakeDB{rowsByTable: map[string][]map[string]any{
		"personal_details": {{"first_name": "Asha", "email": "a@b.co"}},
		// no education row for this client
	}}
	svc := NewService(db, testCatalog(), testLogger())

	data, err := svc.Load(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Len(t, data, 2)
}

func TestLoad_RequiresClientID(t *testing.T) {
	svc := NewService(&fakeDB{}, testCatalog(), testLogger())

	_, err := svc.Load(context.Background(), "  ")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestSave_WritesOneUpdatePerTable(t *testing.T) {
	db := &fakeDB{}
	svc := NewService(db, testCatalog(), testLogger())

	err := svc.Save(context.Background(), "client-1", map[string]any{
		"personal_details.first_name": "Asha",
		"personal_details.email":      "asha@example.com",
		"education.school_name":       "Central High",
	})
	require.NoError(t, err)
	require.Len(t, db.execSQL, 2)

	joined := strings.Join(db.execSQL, "\n")
	assert.Contains(t, joined, `UPDATE "personal_details"`)
	assert.Contains(t, joined, `UPDATE "education"`)
	for _, sql := range db.execSQL {
		assert.Contains(t, sql, `"client_id" =`)
	}
}

func TestSave_RejectsUndeclaredKeys(t *testing.T) {
	db := &fakeDB{}
	svc := NewService(db, testCatalog(), testLogger())

	err := svc.Save(context.Background(), "client-1", map[string]any{
		"personal_details.password_hash": "nope",
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Empty(t, db.execSQL, "validation must run before any write")
}

func TestSave_EmptyDataIsNoop(t *testing.T) {
	db := &fakeDB{}
	svc := NewService(db, testCatalog(), testLogger())

	require.NoError(t, svc.Save(context.Background(), "client-1", nil))
	assert.Empty(t, db.execSQL)
}
