package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-scriptform/pkg/model"
)

// ClearSuffix marks the checkbox a clearable file input posts to drop the
// current file.
const ClearSuffix = "-clear"

// Issue is one validation failure. Field is empty for form-level problems.
type Issue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Result is the outcome of validating a submission.
type Result struct {
	Valid  bool           `json:"valid"`
	Values map[string]any `json:"values,omitempty"`
	Issues []Issue        `json:"issues,omitempty"`
	// Cleared lists clearable file fields whose clear box was ticked.
	Cleared []string `json:"cleared,omitempty"`
}

// ErrorMap groups issue messages by field, the shape render.MapErrors takes.
// Form-level issues are keyed "__all__".
func (r Result) ErrorMap() map[string][]string {
	if len(r.Issues) == 0 {
		return nil
	}
	out := make(map[string][]string, len(r.Issues))
	for _, issue := range r.Issues {
		key := issue.Field
		if key == "" {
			key = "__all__"
		}
		out[key] = append(out[key], issue.Message)
	}
	return out
}

// Coerce converts posted strings into typed values following each field's
// kind. Empty inputs are treated as absent, unchecked checkboxes as false.
// Conversion failures are reported as issues and leave the value out.
func Coerce(form model.Form, posted url.Values) (map[string]any, []Issue) {
	values := make(map[string]any, form.Len())
	var issues []Issue

	for field := range form.All() {
		name := field.Name()
		raw := nonEmpty(posted[name])

		if field.Kind() == model.KindBoolean {
			values[name] = len(raw) > 0 && truthy(raw[0])
			continue
		}
		if len(raw) == 0 {
			continue
		}

		value, err := coerceField(field, raw)
		if err != nil {
			issues = append(issues, Issue{Field: name, Message: err.Error()})
			continue
		}
		values[name] = value
	}
	return values, issues
}

func coerceField(field model.Field, raw []string) (any, error) {
	switch opts := field.Options().(type) {
	case model.HiddenOptions:
		if field.Name() == model.IdentityFieldName {
			id, err := strconv.ParseInt(raw[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid script identifier %q", raw[0])
			}
			return id, nil
		}
		return raw[0], nil
	case model.NumberOptions:
		out := make([]any, 0, len(raw))
		for _, item := range raw {
			if opts.Integer {
				parsed, err := strconv.ParseInt(item, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("%q is not an integer", item)
				}
				out = append(out, parsed)
				continue
			}
			parsed, err := strconv.ParseFloat(item, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", item)
			}
			out = append(out, parsed)
		}
		if field.AcceptsMultiple() {
			return out, nil
		}
		return out[0], nil
	case model.ChoiceOptions:
		if opts.Multiple {
			return raw, nil
		}
		return raw[0], nil
	default:
		if field.AcceptsMultiple() {
			return raw, nil
		}
		return raw[0], nil
	}
}

// Validate checks typed values against the schema derived from form.
func Validate(form model.Form, values map[string]any) Result {
	result := Result{Values: values}
	err := SchemaFor(form).VisitJSON(toJSONValue(values), openapi3.MultiErrors())
	result.Issues = append(result.Issues, schemaIssues(err)...)
	sortIssues(result.Issues)
	result.Valid = len(result.Issues) == 0
	return result
}

// ValidateSubmission coerces posted and validates the result. Fields that
// failed conversion are not reported a second time by the schema check.
func ValidateSubmission(form model.Form, posted url.Values) Result {
	values, coerceIssues := Coerce(form, posted)
	result := Validate(form, values)

	failed := make(map[string]struct{}, len(coerceIssues))
	for _, issue := range coerceIssues {
		failed[issue.Field] = struct{}{}
	}
	issues := coerceIssues
	for _, issue := range result.Issues {
		if _, skip := failed[issue.Field]; skip {
			continue
		}
		issues = append(issues, issue)
	}
	sortIssues(issues)

	for field := range form.All() {
		if field.Kind() != model.KindFile {
			continue
		}
		if opts, ok := field.Options().(model.FileOptions); ok && opts.Clearable {
			if raw := nonEmpty(posted[field.Name()+ClearSuffix]); len(raw) > 0 && truthy(raw[0]) {
				result.Cleared = append(result.Cleared, field.Name())
			}
		}
	}

	result.Issues = issues
	result.Valid = len(issues) == 0
	return result
}

var missingProperty = regexp.MustCompile(`property "([^"]+)" is missing`)

func schemaIssues(err error) []Issue {
	if err == nil {
		return nil
	}
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []Issue
		for _, inner := range multi {
			out = append(out, schemaIssues(inner)...)
		}
		return out
	}
	var schemaErr *openapi3.SchemaError
	if !errors.As(err, &schemaErr) {
		return []Issue{{Message: err.Error()}}
	}

	issue := Issue{Message: schemaErr.Reason}
	if pointer := schemaErr.JSONPointer(); len(pointer) > 0 {
		issue.Field = pointer[0]
	}
	if issue.Field == "" && schemaErr.SchemaField == "required" {
		if match := missingProperty.FindStringSubmatch(schemaErr.Reason); match != nil {
			issue.Field = match[1]
		}
	}
	if issue.Field == model.IdentityFieldName && schemaErr.SchemaField == "enum" {
		issue.Message = "submission does not belong to this script"
	}
	return []Issue{issue}
}

// toJSONValue reshapes Go values into what VisitJSON expects: float64 for
// numbers and []any for lists.
func toJSONValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = toJSONValue(item)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, toJSONValue(item))
		}
		return out
	case []string:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, item)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}

func sortIssues(issues []Issue) {
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
}
