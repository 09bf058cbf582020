package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/schema"
)

func TestClassifyDataType(t *testing.T) {
	tests := []struct {
		nativeType string
		want       DataType
	}{
		{"integer", TypeInteger},
		{"BIGINT", TypeInteger},
		{"smallint", TypeInteger},
		{"real", TypeReal},
		{"double precision", TypeReal},
		{"float8", TypeReal},
		{"numeric(10,2)", TypeNumeric},
		{"decimal", TypeNumeric},
		{"boolean", TypeBoolean},
		{"bool", TypeBoolean},
		{"date", TypeDate},
		{"timestamp with time zone", TypeDate},
		{"varchar(255)", TypeText},
		{"text", TypeText},
		{"something_unknown", TypeText},
		// "int" is checked first, so it wins over any later substring.
		{"interval_date", TypeInteger},
		{"point", TypeInteger},
	}

	for _, tt := range tests {
		t.Run(tt.nativeType, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDataType(tt.nativeType))
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		column string
		want   string
	}{
		{"date_of_birth", "Date Of Birth"},
		{"email", "Email"},
		{"aadhar_number", "Aadhar Number"},
		{"x", "X"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DisplayName(tt.column))
	}
}

func TestIsSystemField(t *testing.T) {
	assert.True(t, IsSystemField("id"))
	assert.True(t, IsSystemField("created_at"))
	assert.True(t, IsSystemField("CREATED_AT"))
	assert.True(t, IsSystemField("owner_id"))
	assert.True(t, IsSystemField("client_id"))
	assert.False(t, IsSystemField("first_name"))
	assert.False(t, IsSystemField("identity_document"))
}

func TestIsEligibleForFormBuilder(t *testing.T) {
	// Every "_id"-suffixed column is ineligible, client_id included
	// (it sits in the exact exclusion set).
	for _, name := range []string{"owner_id", "school_id", "document_id", "client_id"} {
		assert.False(t, IsEligibleForFormBuilder(name), name)
	}
	for _, name := range []string{"id", "created_at", "updated_at", "version", "assigned_by"} {
		assert.False(t, IsEligibleForFormBuilder(name), name)
	}
	for _, name := range []string{"first_name", "email", "passport_photo", "identity", "grid"} {
		assert.True(t, IsEligibleForFormBuilder(name), name)
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		column string
		native string
		table  string
		want   Category
	}{
		{"contact by exact name", "email", "varchar", "personal_details", CategoryContact},
		{"personal by exact name", "date_of_birth", "date", "students", CategoryPersonal},
		{"identity by exact name", "aadhar_number", "varchar(12)", "students", CategoryIdentity},
		{"system wins over table", "created_at", "timestamp", "personal_details", CategorySystem},
		{"educational substring", "school_name", "varchar", "students", CategoryEducational},
		{"degree substring", "highest_degree", "varchar", "students", CategoryEducational},
		{"personal_details table fallback", "passport_photo", "text", "personal_details", CategoryPersonal},
		{"documents table fallback", "passport_photo", "text", "documents", CategorySystem},
		{"default other", "notes", "text", "misc", CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.column, tt.native, tt.table))
		})
	}
}

func TestExtractConstraints(t *testing.T) {
	t.Run("max length from type string", func(t *testing.T) {
		c := ExtractConstraints("first_name", "varchar(100)")
		require.NotNil(t, c.MaxLength)
		assert.Equal(t, 100, *c.MaxLength)
	})

	t.Run("no length for bare types", func(t *testing.T) {
		c := ExtractConstraints("notes", "text")
		assert.Nil(t, c.MaxLength)
	})

	t.Run("gender enum", func(t *testing.T) {
		c := ExtractConstraints("gender", "varchar(10)")
		assert.Equal(t, []string{"Male", "Female", "Other"}, c.EnumValues)
	})

	t.Run("blood group enum", func(t *testing.T) {
		c := ExtractConstraints("blood_group", "varchar(3)")
		assert.Len(t, c.EnumValues, 8)
	})

	t.Run("status enum by substring", func(t *testing.T) {
		c := ExtractConstraints("verification_status", "varchar(20)")
		assert.Equal(t, []string{"pending", "verified", "rejected", "active", "inactive"}, c.EnumValues)
	})

	t.Run("email pattern", func(t *testing.T) {
		c := ExtractConstraints("alternate_email", "varchar(255)")
		assert.Equal(t, `^[^\s@]+@[^\s@]+\.[^\s@]+$`, c.Pattern)
	})

	t.Run("phone pattern", func(t *testing.T) {
		c := ExtractConstraints("mobile_number", "varchar(15)")
		assert.Equal(t, `^[+]?[0-9]{10,15}$`, c.Pattern)
	})

	t.Run("aadhar pattern", func(t *testing.T) {
		c := ExtractConstraints("aadhar_number", "varchar(12)")
		assert.Equal(t, `^[0-9]{12}$`, c.Pattern)
	})

	t.Run("pan pattern", func(t *testing.T) {
		c := ExtractConstraints("pan_number", "varchar(10)")
		assert.Equal(t, `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`, c.Pattern)
	})
}

func TestNormalize(t *testing.T) {
	table := &schema.TableSchema{
		TableName:   "personal_details",
		DisplayName: "Personal Details",
	}
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	t.Run("full descriptor", func(t *testing.T) {
		f, err := Normalize(schema.Column{
			Name:     "email",
			Type:     "varchar(255)",
			Nullable: false,
		}, table, now)
		require.NoError(t, err)

		assert.Equal(t, "personal_details.email", f.ID)
		assert.Equal(t, "Email", f.DisplayName)
		assert.Equal(t, TypeText, f.DataType)
		assert.False(t, f.IsNullable)
		assert.True(t, f.Constraints.IsRequired)
		assert.Equal(t, CategoryContact, f.Metadata.Category)
		assert.Equal(t, "Personal Details", f.Metadata.TableDisplayName)
		assert.Equal(t, now, f.Metadata.LastModified)
	})

	t.Run("required mirrors nullability", func(t *testing.T) {
		f, err := Normalize(schema.Column{Name: "notes", Type: "text", Nullable: true}, table, now)
		require.NoError(t, err)
		assert.True(t, f.IsNullable)
		assert.False(t, f.Constraints.IsRequired)
	})

	t.Run("foreign key reference", func(t *testing.T) {
		f, err := Normalize(schema.Column{
			Name:       "client_id",
			Type:       "integer",
			ForeignKey: "clients.id",
		}, table, now)
		require.NoError(t, err)
		assert.True(t, f.Constraints.IsForeignKey)
		assert.Equal(t, "clients.id", f.Constraints.ForeignKeyReference)
	})

	t.Run("rejects empty column name", func(t *testing.T) {
		_, err := Normalize(schema.Column{Type: "text"}, table, now)
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})

	t.Run("rejects missing type", func(t *testing.T) {
		_, err := Normalize(schema.Column{Name: "email"}, table, now)
		require.Error(t, err)
		assert.True(t, errs.IsInvalidInput(err))
	})
}
