package fields

import (
	"regexp"
	"strings"
	"time"

	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/schema"
)

// Validation patterns attached to well-known column names. These must stay
// in sync with the client-side validators.
const (
	emailPattern  = `^[^\s@]+@[^\s@]+\.[^\s@]+$`
	phonePattern  = `^[+]?[0-9]{10,15}$`
	aadharPattern = `^[0-9]{12}$`
	panPattern    = `^[A-Z]{5}[0-9]{4}[A-Z]{1}$`
)

// Fixed enum value sets for columns rendered as dropdowns.
var (
	genderValues     = []string{"Male", "Female", "Other"}
	bloodGroupValues = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	statusValues     = []string{"pending", "verified", "rejected", "active", "inactive"}
)

// systemFieldSet tags bookkeeping columns for metadata purposes. Distinct
// from excludedFieldSet below: a column can be tagged "system" yet still be
// offered to the form builder, and vice versa.
var systemFieldSet = map[string]bool{
	"id":               true,
	"client_id":        true,
	"created_at":       true,
	"updated_at":       true,
	"version":          true,
	"document_id":      true,
	"form_template_id": true,
	"assigned_at":      true,
	"assigned_by":      true,
}

// excludedFieldSet governs inclusion in the field catalog. Columns in this
// set are never emitted as fields at all.
var excludedFieldSet = map[string]bool{
	"client_id":        true,
	"created_at":       true,
	"updated_at":       true,
	"version":          true,
	"document_id":      true,
	"form_template_id": true,
	"assigned_at":      true,
	"assigned_by":      true,
	"id":               true,
}

// Exact-name category membership, checked before substring heuristics.
var (
	personalFieldSet = map[string]bool{
		"first_name": true, "middle_name": true, "last_name": true,
		"full_name": true, "date_of_birth": true, "gender": true,
		"blood_group": true, "nationality": true, "marital_status": true,
	}
	contactFieldSet = map[string]bool{
		"email": true, "phone": true, "mobile": true, "phone_number": true,
		"mobile_number": true, "alternate_phone": true, "address": true,
		"city": true, "state": true, "district": true, "pincode": true,
		"postal_code": true,
	}
	identityFieldSet = map[string]bool{
		"aadhar_number": true, "pan_number": true, "passport_number": true,
		"driving_license": true, "ration_card_number": true,
	}
)

// educationalHints marks a column Educational when its name contains one.
var educationalHints = []string{"education", "school", "college", "degree"}

// maxLenRe pulls the declared length out of a native type string,
// e.g. "varchar(255)" or "character varying(100)".
var maxLenRe = regexp.MustCompile(`\((\d+)\)`)

// ClassifyDataType maps a native type string to a normalized DataType.
// Substring checks run in priority order; the first match wins. Order
// matters: a type containing both "date" and a text keyword must resolve
// to DATE only because nothing earlier matched.
func ClassifyDataType(nativeType string) DataType {
	t := strings.ToLower(nativeType)
	switch {
	case strings.Contains(t, "int"):
		return TypeInteger
	case strings.Contains(t, "real"), strings.Contains(t, "float"), strings.Contains(t, "double"):
		return TypeReal
	case strings.Contains(t, "numeric"), strings.Contains(t, "decimal"):
		return TypeNumeric
	case strings.Contains(t, "bool"):
		return TypeBoolean
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return TypeDate
	default:
		return TypeText
	}
}

// DisplayName renders a column name for the UI: underscore-split,
// title-cased, space-joined. "date_of_birth" -> "Date Of Birth".
func DisplayName(columnName string) string {
	parts := strings.Split(columnName, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// IsSystemField reports whether the column is internal bookkeeping
// (keys, timestamps) rather than user-facing data. Metadata only — it does
// not decide catalog inclusion.
func IsSystemField(columnName string) bool {
	name := strings.ToLower(columnName)
	return systemFieldSet[name] || strings.HasSuffix(name, "_id")
}

// IsEligibleForFormBuilder reports whether the column may appear in the
// field catalog at all. client_id is the one "_id" column kept eligible by
// name suffix, but it is still blocked by the exact exclusion set — the
// carve-out only matters for compatibility checks on captured fields.
func IsEligibleForFormBuilder(columnName string) bool {
	name := strings.ToLower(columnName)
	if excludedFieldSet[name] {
		return false
	}
	if strings.HasSuffix(name, "_id") && name != "client_id" {
		return false
	}
	return true
}

// Categorize assigns a Category via an ordered rule cascade. The first
// matching rule wins.
func Categorize(columnName, nativeType, tableName string) Category {
	name := strings.ToLower(columnName)

	switch {
	case systemFieldSet[name]:
		return CategorySystem
	case personalFieldSet[name]:
		return CategoryPersonal
	case contactFieldSet[name]:
		return CategoryContact
	case identityFieldSet[name]:
		return CategoryIdentity
	}

	for _, hint := range educationalHints {
		if strings.Contains(name, hint) {
			return CategoryEducational
		}
	}

	// Table-level fallbacks for columns no name rule caught.
	switch strings.ToLower(tableName) {
	case "personal_details":
		return CategoryPersonal
	case "documents":
		return CategorySystem
	}

	return CategoryOther
}

// ExtractConstraints derives validation rules from the column name and
// native type string. Structural flags (required, keys) are filled in by
// Normalize, not here.
func ExtractConstraints(columnName, nativeType string) Constraints {
	var c Constraints

	if m := maxLenRe.FindStringSubmatch(nativeType); m != nil {
		n := 0
		for _, d := range m[1] {
			n = n*10 + int(d-'0')
		}
		c.MaxLength = &n
	}

	name := strings.ToLower(columnName)
	switch {
	case name == "gender":
		c.EnumValues = genderValues
	case name == "blood_group":
		c.EnumValues = bloodGroupValues
	case strings.Contains(name, "status"):
		c.EnumValues = statusValues
	}

	switch {
	case strings.Contains(name, "email"):
		c.Pattern = emailPattern
	case strings.Contains(name, "phone"), strings.Contains(name, "mobile"):
		c.Pattern = phonePattern
	case name == "aadhar_number":
		c.Pattern = aadharPattern
	case name == "pan_number":
		c.Pattern = panPattern
	}

	return c
}

// Normalize maps one raw column to a Field descriptor.
//
// It does not apply eligibility filtering — callers decide which columns to
// normalize. A column with an empty name or type is rejected so one broken
// column cannot poison a whole table's discovery (callers log and skip).
func Normalize(col schema.Column, table *schema.TableSchema, now time.Time) (Field, error) {
	if col.Name == "" {
		return Field{}, errs.Newf(errs.ErrKindInvalidInput, "column in table %q has no name", table.TableName)
	}
	if col.Type == "" {
		return Field{}, errs.Newf(errs.ErrKindInvalidInput, "column %s.%s has no declared type", table.TableName, col.Name)
	}

	display := DisplayName(col.Name)

	constraints := ExtractConstraints(col.Name, col.Type)
	constraints.IsRequired = !col.Nullable
	constraints.IsPrimaryKey = col.PrimaryKey
	constraints.IsForeignKey = col.ForeignKey != ""
	constraints.ForeignKeyReference = col.ForeignKey

	return Field{
		ID:          table.TableName + "." + col.Name,
		TableName:   table.TableName,
		ColumnName:  col.Name,
		DisplayName: display,
		DataType:    ClassifyDataType(col.Type),
		IsNullable:  col.Nullable,
		Constraints: constraints,
		Metadata: Metadata{
			Description:      display + " field from " + table.DisplayName,
			Category:         Categorize(col.Name, col.Type, table.TableName),
			IsSystemField:    IsSystemField(col.Name),
			LastModified:     now,
			TableDisplayName: table.DisplayName,
		},
	}, nil
}
