package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Widget names attached to fields. Renderers switch on these.
const (
	WidgetText           = "text"
	WidgetNumber         = "number"
	WidgetCheckbox       = "checkbox"
	WidgetHidden         = "hidden"
	WidgetSelect         = "select"
	WidgetSelectMultiple = "select-multiple"
	WidgetFile           = "file"
	WidgetClearableFile  = "clearable-file"
)

// AttrMultiple flags non-choice fields that accept several values so the
// front-end can repeat the input.
const AttrMultiple = "data-fg-multiple"

// BlankChoiceLabel is shown for the "nothing selected" choice.
const BlankChoiceLabel = "----"

// Choice is one selectable option. The blank choice carries no value.
type Choice struct {
	Value string
	Label string
	Blank bool
}

// BlankChoice returns the sentinel "nothing selected" option.
func BlankChoice() Choice {
	return Choice{Label: BlankChoiceLabel, Blank: true}
}

// MarshalJSON encodes the blank choice value as null.
func (c Choice) MarshalJSON() ([]byte, error) {
	var value *string
	if !c.Blank {
		v := c.Value
		value = &v
	}
	return json.Marshal(struct {
		Value *string `json:"value"`
		Label string  `json:"label"`
	}{value, c.Label})
}

// Options is the kind-specific part of a field. The set of implementations is
// closed; switch on the concrete type.
type Options interface {
	fieldKind() FieldKind
}

type TextOptions struct{}

type NumberOptions struct {
	Integer bool
}

type BooleanOptions struct{}

type HiddenOptions struct{}

type ChoiceOptions struct {
	Choices  []Choice
	Multiple bool
}

type FileOptions struct {
	Clearable bool
}

func (TextOptions) fieldKind() FieldKind    { return KindText }
func (BooleanOptions) fieldKind() FieldKind { return KindBoolean }
func (HiddenOptions) fieldKind() FieldKind  { return KindHidden }
func (FileOptions) fieldKind() FieldKind    { return KindFile }

func (o NumberOptions) fieldKind() FieldKind {
	if o.Integer {
		return KindInteger
	}
	return KindNumber
}

func (o ChoiceOptions) fieldKind() FieldKind {
	if o.Multiple {
		return KindMultipleChoice
	}
	return KindChoice
}

// Widget describes how a field is presented.
type Widget struct {
	name  string
	attrs map[string]string
}

// Name returns the widget identifier (see the Widget* constants).
func (w Widget) Name() string { return w.name }

// Attr returns a single widget attribute.
func (w Widget) Attr(key string) (string, bool) {
	value, ok := w.attrs[key]
	return value, ok
}

// Attrs returns a copy of the widget attributes.
func (w Widget) Attrs() map[string]string {
	if len(w.attrs) == 0 {
		return nil
	}
	return maps.Clone(w.attrs)
}

// FieldSpec collects the inputs NewField turns into a Field.
type FieldSpec struct {
	Name      string
	Kind      FieldKind
	Label     string
	Required  bool
	HelpText  string
	Initial   any
	Choices   []Choice
	Clearable bool
	Attrs     map[string]string
}

// Field is a read-only form field descriptor.
type Field struct {
	name     string
	label    string
	required bool
	helpText string
	initial  any
	widget   Widget
	options  Options
}

// NewField instantiates a field for spec.Kind. Each kind gets its options
// variant and default widget; unknown kinds are rejected.
func NewField(spec FieldSpec) (Field, error) {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return Field{}, fmt.Errorf("model: field name is required")
	}

	field := Field{
		name:     name,
		label:    spec.Label,
		required: spec.Required,
		helpText: spec.HelpText,
		initial:  spec.Initial,
	}

	switch spec.Kind {
	case KindText:
		field.options = TextOptions{}
		field.widget.name = WidgetText
	case KindInteger:
		field.options = NumberOptions{Integer: true}
		field.widget.name = WidgetNumber
	case KindNumber:
		field.options = NumberOptions{}
		field.widget.name = WidgetNumber
	case KindBoolean:
		field.options = BooleanOptions{}
		field.widget.name = WidgetCheckbox
	case KindHidden:
		field.options = HiddenOptions{}
		field.widget.name = WidgetHidden
	case KindChoice:
		field.options = ChoiceOptions{Choices: slices.Clone(spec.Choices)}
		field.widget.name = WidgetSelect
	case KindMultipleChoice:
		field.options = ChoiceOptions{Choices: slices.Clone(spec.Choices), Multiple: true}
		field.widget.name = WidgetSelectMultiple
	case KindFile:
		field.options = FileOptions{Clearable: spec.Clearable}
		field.widget.name = WidgetFile
		if spec.Clearable {
			field.widget.name = WidgetClearableFile
		}
	default:
		return Field{}, fmt.Errorf("%w: %q for field %q", ErrUnknownFieldKind, spec.Kind, name)
	}

	if len(spec.Attrs) > 0 {
		field.widget.attrs = maps.Clone(spec.Attrs)
	}
	return field, nil
}

func (f Field) Name() string     { return f.name }
func (f Field) Label() string    { return f.label }
func (f Field) Required() bool   { return f.required }
func (f Field) HelpText() string { return f.helpText }
func (f Field) Widget() Widget   { return f.widget }

// Kind reports the resolved field kind.
func (f Field) Kind() FieldKind {
	if f.options == nil {
		return ""
	}
	return f.options.fieldKind()
}

// Initial returns the initial value and whether one was set.
func (f Field) Initial() (any, bool) {
	return f.initial, f.initial != nil
}

// Options returns the kind-specific options. Choice lists are copied.
func (f Field) Options() Options {
	if opts, ok := f.options.(ChoiceOptions); ok {
		opts.Choices = slices.Clone(opts.Choices)
		return opts
	}
	return f.options
}

// Choices returns a copy of the selectable options, nil for non-choice kinds.
func (f Field) Choices() []Choice {
	if opts, ok := f.options.(ChoiceOptions); ok {
		return slices.Clone(opts.Choices)
	}
	return nil
}

// AcceptsMultiple reports whether the field takes several values, either as a
// multiple-choice field or through the AttrMultiple widget flag.
func (f Field) AcceptsMultiple() bool {
	if f.Kind() == KindMultipleChoice {
		return true
	}
	flag, ok := f.widget.Attr(AttrMultiple)
	return ok && flag == "true"
}

// WithInitial returns a copy of the field carrying value as its initial.
func (f Field) WithInitial(value any) Field {
	f.initial = value
	return f
}

type fieldJSON struct {
	Name      string            `json:"name"`
	Kind      FieldKind         `json:"kind"`
	Label     string            `json:"label,omitempty"`
	Required  bool              `json:"required"`
	HelpText  string            `json:"helpText,omitempty"`
	Initial   any               `json:"initial,omitempty"`
	Widget    string            `json:"widget"`
	Attrs     map[string]string `json:"attrs,omitempty"`
	Choices   []Choice          `json:"choices,omitempty"`
	Clearable bool              `json:"clearable,omitempty"`
	Multiple  bool              `json:"multiple,omitempty"`
}

// MarshalJSON exposes the field descriptor to API clients. Initial values that
// implement fmt.Stringer (stored files) are encoded by their string form.
func (f Field) MarshalJSON() ([]byte, error) {
	out := fieldJSON{
		Name:     f.name,
		Kind:     f.Kind(),
		Label:    f.label,
		Required: f.required,
		HelpText: f.helpText,
		Initial:  jsonInitial(f.initial),
		Widget:   f.widget.name,
		Attrs:    f.widget.attrs,
		Multiple: f.AcceptsMultiple(),
	}
	switch opts := f.options.(type) {
	case ChoiceOptions:
		out.Choices = opts.Choices
	case FileOptions:
		out.Clearable = opts.Clearable
	}
	return json.Marshal(out)
}

func jsonInitial(value any) any {
	if stringer, ok := value.(fmt.Stringer); ok {
		return stringer.String()
	}
	return value
}
