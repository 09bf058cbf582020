// Package forms manages form templates — the card/field layouts users build
// from the field catalog — and checks them against client data when a
// profile is rendered or switched to a different template.
package forms

import "time"

// FieldRef places one catalog field on a form. FieldID is the catalog's
// "{table}.{column}" identifier.
type FieldRef struct {
	FieldID  string `json:"fieldId"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// Card is one visual section of a form.
type Card struct {
	Title  string     `json:"title"`
	Fields []FieldRef `json:"fields"`
}

// Template is a complete form layout.
type Template struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Cards       []Card    `json:"cards"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// FieldRefs returns every field placed on the template, in card order.
func (t *Template) FieldRefs() []FieldRef {
	var refs []FieldRef
	for _, card := range t.Cards {
		refs = append(refs, card.Fields...)
	}
	return refs
}

// HasField reports whether the template places the given catalog field.
func (t *Template) HasField(fieldID string) bool {
	for _, card := range t.Cards {
		for _, ref := range card.Fields {
			if ref.FieldID == fieldID {
				return true
			}
		}
	}
	return false
}
