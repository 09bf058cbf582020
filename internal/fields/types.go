// Package fields implements the field discovery and form-compatibility
// engine: it turns raw column metadata from schema discovery into typed,
// categorised, form-ready field descriptors, caches them, and checks
// previously captured descriptors against the live schema.
package fields

import "time"

// DataType is the normalized projection of a backend's native type string.
type DataType string

const (
	TypeText    DataType = "TEXT"
	TypeInteger DataType = "INTEGER"
	TypeDate    DataType = "DATE"
	TypeBoolean DataType = "BOOLEAN"
	TypeReal    DataType = "REAL"
	TypeNumeric DataType = "NUMERIC"
)

// Category is a coarse grouping label used for UI organisation and search.
type Category string

const (
	CategoryPersonal    Category = "Personal"
	CategoryContact     Category = "Contact"
	CategoryIdentity    Category = "Identity"
	CategoryEducational Category = "Educational"
	CategorySystem      Category = "System"
	CategoryOther       Category = "Other"
)

// categoryOrder is the fixed output order for grouped listings. Categories
// outside this list are appended after it in first-seen order.
var categoryOrder = []Category{
	CategoryPersonal,
	CategoryContact,
	CategoryIdentity,
	CategoryEducational,
	CategorySystem,
	CategoryOther,
}

// Constraints captures the validation rules derived for a field.
type Constraints struct {
	MaxLength           *int     `json:"maxLength,omitempty"`
	MinValue            *float64 `json:"minValue,omitempty"`
	MaxValue            *float64 `json:"maxValue,omitempty"`
	EnumValues          []string `json:"enumValues,omitempty"`
	Pattern             string   `json:"pattern,omitempty"`
	IsRequired          bool     `json:"isRequired"`
	IsPrimaryKey        bool     `json:"isPrimaryKey"`
	IsForeignKey        bool     `json:"isForeignKey"`
	ForeignKeyReference string   `json:"foreignKeyReference,omitempty"`
}

// Metadata carries descriptive, non-structural field attributes.
type Metadata struct {
	Description      string    `json:"description,omitempty"`
	Category         Category  `json:"category"`
	IsSystemField    bool      `json:"isSystemField"`
	LastModified     time.Time `json:"lastModified"`
	TableDisplayName string    `json:"tableDisplayName"`
}

// Field is a normalized, form-ready descriptor for one database column.
//
// Invariant: Constraints.IsRequired == !IsNullable.
type Field struct {
	// ID is "{table}.{column}" — unique and stable for a given schema.
	ID          string   `json:"id"`
	TableName   string   `json:"tableName"`
	ColumnName  string   `json:"columnName"`
	DisplayName string   `json:"displayName"`
	DataType    DataType `json:"dataType"`
	IsNullable  bool     `json:"isNullable"`

	Constraints Constraints `json:"constraints"`
	Metadata    Metadata    `json:"metadata"`
}

// TableGroup pairs a table with its fields, preserving discovery order.
type TableGroup struct {
	Table  string  `json:"table"`
	Fields []Field `json:"fields"`
}

// CategoryGroup pairs a category with its fields, sorted by display name.
type CategoryGroup struct {
	Category Category `json:"category"`
	Fields   []Field  `json:"fields"`
}

// CompatibilityResult reports the outcome of a compatibility check.
// Warnings flag drift the form can survive; errors mean the field is gone.
type CompatibilityResult struct {
	IsCompatible bool     `json:"isCompatible"`
	Warnings     []string `json:"warnings"`
	Errors       []string `json:"errors"`
}
