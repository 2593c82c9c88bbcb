package validation

import (
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-scriptform/pkg/model"
)

// WidgetExtension names the schema extension carrying the field widget.
const WidgetExtension = "x-widget"

// SchemaFor derives the OpenAPI object schema describing a submission of
// form. The identity field is pinned to the form's script primary key.
func SchemaFor(form model.Form) *openapi3.Schema {
	root := openapi3.NewObjectSchema()
	for field := range form.All() {
		root.WithProperty(field.Name(), fieldSchema(field))
		if field.Required() {
			root.Required = append(root.Required, field.Name())
		}
	}
	return root
}

func fieldSchema(field model.Field) *openapi3.Schema {
	var schema *openapi3.Schema

	switch opts := field.Options().(type) {
	case model.HiddenOptions:
		schema = openapi3.NewStringSchema()
		if field.Name() == model.IdentityFieldName {
			schema = openapi3.NewIntegerSchema()
			if pk, ok := field.Initial(); ok {
				if id, ok := pk.(int64); ok {
					schema.WithEnum(float64(id))
				}
			}
		}
	case model.TextOptions:
		schema = openapi3.NewStringSchema()
	case model.NumberOptions:
		schema = openapi3.NewFloat64Schema()
		if opts.Integer {
			schema = openapi3.NewIntegerSchema()
		}
	case model.BooleanOptions:
		schema = openapi3.NewBoolSchema()
	case model.ChoiceOptions:
		schema = openapi3.NewStringSchema().WithEnum(choiceValues(opts.Choices)...)
		if opts.Multiple {
			schema = openapi3.NewArraySchema().WithItems(schema)
		}
	case model.FileOptions:
		schema = openapi3.NewStringSchema().WithFormat("binary")
	default:
		schema = openapi3.NewSchema()
	}

	if field.AcceptsMultiple() && schema.Items == nil {
		schema = openapi3.NewArraySchema().WithItems(schema)
	}
	if schema.Items != nil && field.Required() {
		schema.WithMinItems(1)
	}

	schema.Title = field.Label()
	schema.Description = field.HelpText()
	schema.Extensions = map[string]any{WidgetExtension: field.Widget().Name()}
	return schema
}

func choiceValues(choices []model.Choice) []any {
	values := make([]any, 0, len(choices))
	for _, choice := range choices {
		if choice.Blank {
			continue
		}
		values = append(values, choice.Value)
	}
	return values
}
