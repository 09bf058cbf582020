package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formmaster/pro/internal/fields"
)

func basicTemplate() *Template {
	return &Template{
		ID:   "tpl-1",
		Name: "Admission",
		Cards: []Card{
			{
				Title: "Identity",
				Fields: []FieldRef{
					{FieldID: "personal_details.first_name", Label: "First Name", Required: true},
					{FieldID: "personal_details.email", Label: "Email", Required: false},
				},
			},
			{
				Title: "Education",
				Fields: []FieldRef{
					{FieldID: "education.school_name", Label: "School", Required: true},
				},
			},
		},
	}
}

func TestCheckClientData(t *testing.T) {
	tpl := basicTemplate()

	t.Run("all required present", func(t *testing.T) {
		res := CheckClientData(tpl, map[string]any{
			"personal_details.first_name": "Asha",
			"education.school_name":       "Central High",
		})
		assert.True(t, res.IsCompatible)
		assert.Empty(t, res.Errors)
	})

	t.Run("missing required field", func(t *testing.T) {
		res := CheckClientData(tpl, map[string]any{
			"personal_details.first_name": "Asha",
		})
		assert.False(t, res.IsCompatible)
		assert.Equal(t,
			[]string{"Required field 'education.school_name' is missing from client data"},
			res.Errors)
	})

	t.Run("optional fields never block", func(t *testing.T) {
		// email is optional and absent; still compatible.
		res := CheckClientData(tpl, map[string]any{
			"personal_details.first_name": "Asha",
			"education.school_name":       "Central High",
		})
		assert.True(t, res.IsCompatible)
	})
}

func TestCompareTemplates_Partition(t *testing.T) {
	prev := basicTemplate()
	next := &Template{
		ID:   "tpl-2",
		Name: "Renewal",
		Cards: []Card{
			{
				Title: "Identity",
				Fields: []FieldRef{
					{FieldID: "personal_details.first_name", Required: true},
					{FieldID: "personal_details.email", Required: true},
				},
			},
		},
	}

	text := fields.Field{DataType: fields.TypeText}
	intField := fields.Field{DataType: fields.TypeInteger}

	captured := map[string]fields.Field{
		"personal_details.first_name": text,
		"personal_details.email":      text,
		"education.school_name":       text,
	}
	live := map[string]fields.Field{
		"personal_details.first_name": text,
		"personal_details.email":      intField, // type changed underneath
		"education.school_name":       text,
	}

	report := CompareTemplates(prev, next, captured, live)

	assert.Equal(t, []string{"education.school_name"}, report.Missing)
	assert.Equal(t, []string{"personal_details.email"}, report.Incompatible)
	assert.Equal(t, []string{"personal_details.first_name"}, report.Preserved)
	assert.False(t, report.IsCompatible)

	// The three sets must partition the previous form's fields.
	total := len(report.Missing) + len(report.Incompatible) + len(report.Preserved)
	require.Equal(t, len(prev.FieldRefs()), total)
}

func TestCompareTemplates_DroppedColumnIsIncompatible(t *testing.T) {
	prev := &Template{Cards: []Card{{Fields: []FieldRef{{FieldID: "documents.passport_photo"}}}}}
	next := &Template{Cards: []Card{{Fields: []FieldRef{{FieldID: "documents.passport_photo"}}}}}

	captured := map[string]fields.Field{
		"documents.passport_photo": {DataType: fields.TypeText},
	}

	report := CompareTemplates(prev, next, captured, map[string]fields.Field{})

	assert.Equal(t, []string{"documents.passport_photo"}, report.Incompatible)
	assert.False(t, report.IsCompatible)
}

func TestCompareTemplates_IdenticalTemplatesPreserveEverything(t *testing.T) {
	tpl := basicTemplate()
	text := fields.Field{DataType: fields.TypeText}
	descriptors := map[string]fields.Field{
		"personal_details.first_name": text,
		"personal_details.email":      text,
		"education.school_name":       text,
	}

	report := CompareTemplates(tpl, tpl, descriptors, descriptors)

	assert.True(t, report.IsCompatible)
	assert.Empty(t, report.Missing)
	assert.Empty(t, report.Incompatible)
	assert.Len(t, report.Preserved, 3)
}
