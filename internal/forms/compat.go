package forms

import (
	"fmt"

	"github.com/formmaster/pro/internal/fields"
)

// CheckClientData verifies that a client's flat data map (keyed by
// "table.column") satisfies a template's required fields. Every required
// field missing from the data is recorded as an error and makes the result
// incompatible. Optional fields never affect the outcome.
func CheckClientData(tpl *Template, data map[string]any) fields.CompatibilityResult {
	result := fields.CompatibilityResult{
		IsCompatible: true,
		Warnings:     []string{},
		Errors:       []string{},
	}

	for _, ref := range tpl.FieldRefs() {
		if !ref.Required {
			continue
		}
		if _, ok := data[ref.FieldID]; !ok {
			result.IsCompatible = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("Required field '%s' is missing from client data", ref.FieldID))
		}
	}
	return result
}

// SwitchReport classifies the previous template's fields relative to a new
// template. The three sets partition the previous form's fields: each field
// lands in exactly one of them.
type SwitchReport struct {
	// Missing fields exist on the previous form but have no place on the
	// new one — their data becomes invisible after the switch.
	Missing []string `json:"missing"`

	// Incompatible fields exist on both forms but their descriptor changed
	// shape (type, requiredness, or validation), or the column is gone
	// from the live schema.
	Incompatible []string `json:"incompatible"`

	// Preserved fields carry over unchanged.
	Preserved []string `json:"preserved"`

	// IsCompatible is true when nothing is missing or incompatible.
	IsCompatible bool `json:"isCompatible"`
}

// CompareTemplates builds the switch indicator shown when a user moves a
// profile from prev to next. captured holds the field descriptors recorded
// when prev was built; live holds the catalog's current descriptors, keyed
// by field ID. A field absent from live is treated as incompatible — the
// column was dropped or renamed underneath the form.
func CompareTemplates(prev, next *Template, captured, live map[string]fields.Field) SwitchReport {
	report := SwitchReport{
		Missing:      []string{},
		Incompatible: []string{},
		Preserved:    []string{},
	}

	for _, ref := range prev.FieldRefs() {
		switch {
		case !next.HasField(ref.FieldID):
			report.Missing = append(report.Missing, ref.FieldID)
		case descriptorChanged(captured[ref.FieldID], live, ref.FieldID):
			report.Incompatible = append(report.Incompatible, ref.FieldID)
		default:
			report.Preserved = append(report.Preserved, ref.FieldID)
		}
	}

	report.IsCompatible = len(report.Missing) == 0 && len(report.Incompatible) == 0
	return report
}

// descriptorChanged reports whether a field's shape differs between the
// captured descriptor and the live catalog.
func descriptorChanged(captured fields.Field, live map[string]fields.Field, fieldID string) bool {
	current, ok := live[fieldID]
	if !ok {
		return true
	}
	if captured.DataType != current.DataType {
		return true
	}
	if captured.Constraints.IsRequired != current.Constraints.IsRequired {
		return true
	}
	if captured.Constraints.Pattern != current.Constraints.Pattern {
		return true
	}
	return false
}
