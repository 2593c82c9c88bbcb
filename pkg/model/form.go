package model

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
)

// IdentityFieldName is the hidden input carrying the script primary key so a
// submission identifies the script it belongs to.
const IdentityFieldName = "_script"

// IdentityField returns the hidden identity field pre-filled with pk.
func IdentityField(pk int64) Field {
	return Field{
		name:     IdentityFieldName,
		required: true,
		initial:  pk,
		widget:   Widget{name: WidgetHidden},
		options:  HiddenOptions{},
	}
}

// Form is an ordered, read-only set of fields keyed by name.
type Form struct {
	fields []Field
	index  map[string]int
}

// NewForm builds a form keeping the supplied order. Duplicate names are
// rejected.
func NewForm(fields ...Field) (Form, error) {
	form := Form{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, field := range fields {
		if field.name == "" {
			return Form{}, fmt.Errorf("model: form field without name")
		}
		if _, exists := form.index[field.name]; exists {
			return Form{}, fmt.Errorf("model: duplicate field %q", field.name)
		}
		form.index[field.name] = len(form.fields)
		form.fields = append(form.fields, field)
	}
	return form, nil
}

// Len returns the number of fields.
func (f Form) Len() int { return len(f.fields) }

// Fields returns the fields in order. The slice is a copy.
func (f Form) Fields() []Field { return slices.Clone(f.fields) }

// All iterates the fields in order.
func (f Form) All() iter.Seq[Field] {
	return func(yield func(Field) bool) {
		for _, field := range f.fields {
			if !yield(field) {
				return
			}
		}
	}
}

// Field looks up a field by name.
func (f Form) Field(name string) (Field, bool) {
	idx, ok := f.index[name]
	if !ok {
		return Field{}, false
	}
	return f.fields[idx], true
}

// Names returns the field names in order.
func (f Form) Names() []string {
	out := make([]string, len(f.fields))
	for idx, field := range f.fields {
		out[idx] = field.name
	}
	return out
}

// ScriptID returns the primary key carried by the identity field, if any.
func (f Form) ScriptID() (int64, bool) {
	field, ok := f.Field(IdentityFieldName)
	if !ok {
		return 0, false
	}
	pk, ok := field.initial.(int64)
	return pk, ok
}

// MarshalJSON encodes the form as its ordered field list.
func (f Form) MarshalJSON() ([]byte, error) {
	fields := f.fields
	if fields == nil {
		fields = []Field{}
	}
	return json.Marshal(struct {
		Fields []Field `json:"fields"`
	}{fields})
}

// GroupForm is the form of one layout group.
type GroupForm struct {
	Name string `json:"groupName"`
	Form Form   `json:"form"`
}

// GroupForms is the grouped rendition of a script: the submission action plus
// one form per group, the "Required" group first.
type GroupForms struct {
	action string
	groups []GroupForm
}

// NewGroupForms assembles the grouped structure.
func NewGroupForms(action string, groups ...GroupForm) GroupForms {
	return GroupForms{action: action, groups: slices.Clone(groups)}
}

// Action returns the submission URL.
func (g GroupForms) Action() string { return g.action }

// Len returns the number of groups.
func (g GroupForms) Len() int { return len(g.groups) }

// Groups returns the groups in display order. The slice is a copy.
func (g GroupForms) Groups() []GroupForm { return slices.Clone(g.groups) }

// Group returns the group at idx.
func (g GroupForms) Group(idx int) GroupForm { return g.groups[idx] }

// MarshalJSON encodes the grouped structure.
func (g GroupForms) MarshalJSON() ([]byte, error) {
	groups := g.groups
	if groups == nil {
		groups = []GroupForm{}
	}
	return json.Marshal(struct {
		Action string      `json:"action"`
		Groups []GroupForm `json:"groups"`
	}{g.action, groups})
}
