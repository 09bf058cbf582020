package fields

import (
	"context"
	"fmt"
	"strings"

	"github.com/formmaster/pro/internal/logger"
	"github.com/formmaster/pro/internal/schema"
)

// longTextThreshold is the max length above which a text field gets a
// special-handling warning in compatibility checks.
const longTextThreshold = 1000

// Checker compares previously captured field descriptors against the live
// schema. It never mutates anything — every check is a pure read-and-report.
type Checker struct {
	discovery schema.Discovery
	log       *logger.Logger
}

// NewChecker creates a Checker over the given discovery service.
func NewChecker(d schema.Discovery, log *logger.Logger) *Checker {
	if log == nil {
		log = logger.New(nil)
	}
	return &Checker{discovery: d, log: log}
}

// CheckField verifies that a stored field descriptor still matches the live
// schema. A missing table or column is an error (the field cannot render);
// type, nullability, and key drift are warnings (the form still works, the
// data may need attention).
func (c *Checker) CheckField(ctx context.Context, stored Field) CompatibilityResult {
	result := CompatibilityResult{
		IsCompatible: true,
		Warnings:     []string{},
		Errors:       []string{},
	}

	exists, err := c.discovery.TableExists(ctx, stored.TableName)
	if err != nil {
		c.log.ErrorWith("compatibility check could not read schema", err, map[string]any{
			"field": stored.ID,
		})
		result.IsCompatible = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Unable to read schema for table '%s': %v", stored.TableName, err))
		return result
	}
	if !exists {
		result.IsCompatible = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Table '%s' no longer exists", stored.TableName))
		return result
	}

	ts, err := c.discovery.GetTableSchema(ctx, stored.TableName)
	if err != nil {
		result.IsCompatible = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Unable to read schema for table '%s': %v", stored.TableName, err))
		return result
	}

	var live *schema.Column
	for i := range ts.Columns {
		if ts.Columns[i].Name == stored.ColumnName {
			live = &ts.Columns[i]
			break
		}
	}
	if live == nil {
		result.IsCompatible = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("Column '%s' no longer exists in table '%s'", stored.ColumnName, stored.TableName))
		return result
	}

	// Structural drift — warnings only: the column is still there, the form
	// can still render it.
	if liveType := ClassifyDataType(live.Type); liveType != stored.DataType {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Data type changed from %s to %s", stored.DataType, liveType))
	}
	if live.Nullable != stored.IsNullable {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Nullable constraint changed from %t to %t", stored.IsNullable, live.Nullable))
	}
	if live.PrimaryKey != stored.Constraints.IsPrimaryKey {
		result.Warnings = append(result.Warnings,
			"Primary key designation changed")
	}
	if (live.ForeignKey != "") != stored.Constraints.IsForeignKey {
		result.Warnings = append(result.Warnings,
			"Foreign key designation changed")
	}

	result.Warnings = append(result.Warnings, suitabilityWarnings(stored, live)...)
	return result
}

// suitabilityWarnings evaluates form-suitability heuristics for a column
// that still exists.
func suitabilityWarnings(stored Field, live *schema.Column) []string {
	var warnings []string

	if IsSystemField(stored.ColumnName) && strings.ToLower(stored.ColumnName) != "client_id" {
		warnings = append(warnings,
			fmt.Sprintf("Field '%s' is a system field and may not be suitable for user input", stored.ColumnName))
	}

	if ClassifyDataType(live.Type) == TypeText {
		if c := ExtractConstraints(stored.ColumnName, live.Type); c.MaxLength != nil && *c.MaxLength > longTextThreshold {
			warnings = append(warnings,
				fmt.Sprintf("Field '%s' allows very long text (%d chars) and may need special form handling", stored.ColumnName, *c.MaxLength))
		}
		if strings.Contains(strings.ToLower(stored.ColumnName), "blob") {
			warnings = append(warnings,
				fmt.Sprintf("Field '%s' appears to hold binary data and is not suitable for form input", stored.ColumnName))
		}
	}

	return warnings
}
