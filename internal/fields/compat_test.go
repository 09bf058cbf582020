package fields

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formmaster/pro/internal/schema"
)

func storedField(table, column string, dt DataType) Field {
	return Field{
		ID:         table + "." + column,
		TableName:  table,
		ColumnName: column,
		DataType:   dt,
	}
}

func TestCheckField_DroppedTable(t *testing.T) {
	checker := NewChecker(testDiscovery(), quietLogger())

	res := checker.CheckField(context.Background(), storedField("archived_students", "email", TypeText))

	assert.False(t, res.IsCompatible)
	assert.Equal(t, []string{"Table 'archived_students' no longer exists"}, res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestCheckField_DroppedColumn(t *testing.T) {
	checker := NewChecker(testDiscovery(), quietLogger())

	res := checker.CheckField(context.Background(), storedField("personal_details", "nickname", TypeText))

	assert.False(t, res.IsCompatible)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Column 'nickname' no longer exists in table 'personal_details'", res.Errors[0])
}

func TestCheckField_NullabilityDriftIsWarning(t *testing.T) {
	checker := NewChecker(testDiscovery(), quietLogger())

	// Stored as NOT NULL; the live email column is nullable.
	stored := storedField("personal_details", "email", TypeText)
	stored.IsNullable = false

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible, "nullability drift must stay a warning")
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Nullable constraint changed from false to true", res.Warnings[0])
}

func TestCheckField_TypeDriftIsWarning(t *testing.T) {
	checker := NewChecker(testDiscovery(), quietLogger())

	stored := storedField("personal_details", "email", TypeInteger)
	stored.IsNullable = true

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "Data type changed from INTEGER to TEXT", res.Warnings[0])
}

func TestCheckField_KeyDriftIsWarning(t *testing.T) {
	d := testDiscovery()
	checker := NewChecker(d, quietLogger())

	stored := storedField("documents", "passport_photo", TypeText)
	stored.IsNullable = true
	stored.Constraints.IsPrimaryKey = true
	stored.Constraints.IsForeignKey = true

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible)
	assert.Contains(t, res.Warnings, "Primary key designation changed")
	assert.Contains(t, res.Warnings, "Foreign key designation changed")
}

func TestCheckField_SystemFieldWarning(t *testing.T) {
	d := testDiscovery()
	checker := NewChecker(d, quietLogger())

	stored := storedField("documents", "created_at", TypeText)
	stored.IsNullable = false

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible)
	assert.Contains(t, res.Warnings,
		"Field 'created_at' is a system field and may not be suitable for user input")
}

func TestCheckField_ClientIDExemptFromSystemWarning(t *testing.T) {
	d := testDiscovery()
	checker := NewChecker(d, quietLogger())

	stored := storedField("documents", "client_id", TypeInteger)
	stored.IsNullable = false
	stored.Constraints.IsForeignKey = true

	res := checker.CheckField(context.Background(), stored)

	for _, w := range res.Warnings {
		assert.NotContains(t, w, "system field")
	}
}

func TestCheckField_LongTextWarning(t *testing.T) {
	d := testDiscovery()
	d.schemas["documents"].Columns = append(d.schemas["documents"].Columns,
		schema.Column{Name: "remarks", Type: "varchar(5000)", Nullable: true},
	)
	checker := NewChecker(d, quietLogger())

	stored := storedField("documents", "remarks", TypeText)
	stored.IsNullable = true

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible)
	assert.Contains(t, res.Warnings,
		"Field 'remarks' allows very long text (5000 chars) and may need special form handling")
}

func TestCheckField_BlobWarning(t *testing.T) {
	d := testDiscovery()
	d.schemas["documents"].Columns = append(d.schemas["documents"].Columns,
		schema.Column{Name: "photo_blob", Type: "text", Nullable: true},
	)
	checker := NewChecker(d, quietLogger())

	stored := storedField("documents", "photo_blob", TypeText)
	stored.IsNullable = true

	res := checker.CheckField(context.Background(), stored)

	assert.Contains(t, res.Warnings,
		"Field 'photo_blob' appears to hold binary data and is not suitable for form input")
}

func TestCheckField_CleanFieldHasNoFindings(t *testing.T) {
	checker := NewChecker(testDiscovery(), quietLogger())

	stored := storedField("personal_details", "first_name", TypeText)
	stored.IsNullable = false

	res := checker.CheckField(context.Background(), stored)

	assert.True(t, res.IsCompatible)
	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
}
