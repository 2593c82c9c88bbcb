package vanilla

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-scriptform/pkg/model"
	"github.com/goliatone/go-scriptform/pkg/render"
	"github.com/goliatone/go-scriptform/pkg/storage"
)

type formView struct {
	Action     string       `json:"action,omitempty"`
	Fragment   bool         `json:"fragment"`
	Multipart  bool         `json:"multipart"`
	Hidden     []hiddenView `json:"hidden,omitempty"`
	FormErrors []string     `json:"formErrors,omitempty"`
	Fields     []fieldView  `json:"fields"`
}

type hiddenView struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type fieldView struct {
	Name        string       `json:"name"`
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Widget      string       `json:"widget"`
	InputType   string       `json:"inputType,omitempty"`
	Step        string       `json:"step,omitempty"`
	Required    bool         `json:"required"`
	HelpHTML    string       `json:"helpHTML,omitempty"`
	Value       string       `json:"value,omitempty"`
	Values      []string     `json:"values,omitempty"`
	Checked     bool         `json:"checked"`
	Choices     []choiceView `json:"choices,omitempty"`
	CurrentFile *fileView    `json:"currentFile,omitempty"`
	Attrs       []attrView   `json:"attrs,omitempty"`
	Errors      []string     `json:"errors,omitempty"`
}

type choiceView struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type fileView struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type attrView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func buildFormView(form model.Form, options render.RenderOptions, policy *bluemonday.Policy) formView {
	view := formView{
		Action:     options.Action,
		Fragment:   options.Fragment,
		FormErrors: options.FormErrors,
	}

	own := make([]string, 0, form.Len())
	for field := range form.All() {
		own = append(own, field.Name())
		if field.Kind() == model.KindFile {
			view.Multipart = true
		}
		view.Fields = append(view.Fields, buildFieldView(field, options, policy))
	}
	for _, hidden := range render.SortedHiddenFields(options.Hidden, own...) {
		view.Hidden = append(view.Hidden, hiddenView{Name: hidden.Name, Value: hidden.Value})
	}
	return view
}

func buildFieldView(field model.Field, options render.RenderOptions, policy *bluemonday.Policy) fieldView {
	view := fieldView{
		Name:     field.Name(),
		ID:       controlID(field.Name()),
		Label:    field.Label(),
		Widget:   field.Widget().Name(),
		Required: field.Required(),
		Errors:   options.Errors[field.Name()],
	}
	if help := strings.TrimSpace(field.HelpText()); help != "" {
		view.HelpHTML = strings.TrimSpace(policy.Sanitize(help))
	}

	attrs := field.Widget().Attrs()
	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		view.Attrs = append(view.Attrs, attrView{Key: key, Value: attrs[key]})
	}

	value, hasValue := options.Values[field.Name()]
	if !hasValue {
		value, hasValue = field.Initial()
	}

	switch opts := field.Options().(type) {
	case model.NumberOptions:
		view.InputType = "number"
		view.Step = "any"
		if opts.Integer {
			view.Step = "1"
		}
	case model.BooleanOptions:
		view.Checked = hasValue && truthy(value)
	case model.ChoiceOptions:
		for _, choice := range opts.Choices {
			view.Choices = append(view.Choices, choiceView{Value: choice.Value, Label: choice.Label})
		}
		if hasValue {
			view.Values = stringValues(value)
		}
	case model.FileOptions:
		if file, ok := value.(storage.File); ok && hasValue {
			view.CurrentFile = &fileView{Name: file.Name(), Path: file.Path()}
		}
		return view
	default:
		view.InputType = "text"
	}

	if hasValue && view.Values == nil {
		view.Value = scalarString(value)
	}
	return view
}

func controlID(name string) string {
	return "fg-" + strings.TrimSpace(name)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if strings.EqualFold(trimmed, "on") {
			return true
		}
		parsed, err := strconv.ParseBool(trimmed)
		return err == nil && parsed
	default:
		return value != nil
	}
}

func stringValues(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, scalarString(item))
		}
		return out
	default:
		return []string{scalarString(v)}
	}
}

func scalarString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case storage.File:
		return v.Name()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
