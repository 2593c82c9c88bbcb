package render

import (
	"strings"

	"github.com/goliatone/go-scriptform/pkg/model"
)

// ErrorMapping splits an error payload into field-level and form-level
// messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates form-level messages, trimming whitespace and
// removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrors binds payload keys to fields of form. Keys may be plain field
// names, JSON pointers ("/iterations", "#/iterations") or dotted paths with a
// wrapper prefix ("body.iterations"). Keys that match no field become
// form-level messages so nothing is lost.
func MapErrors(form model.Form, payload map[string][]string) ErrorMapping {
	var mapping ErrorMapping
	for raw, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		name, ok := matchField(form, raw)
		if !ok {
			mapping.Form = append(mapping.Form, normalized...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[name] = append(mapping.Fields[name], normalized...)
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

func matchField(form model.Form, raw string) (string, bool) {
	if isFormLevelKey(raw) {
		return "", false
	}
	for _, segment := range pathSegments(raw) {
		if _, ok := form.Field(segment); ok {
			return segment, true
		}
		if !isWrapperSegment(segment) {
			return "", false
		}
	}
	return "", false
}

func pathSegments(path string) []string {
	clean := strings.TrimSpace(path)
	clean = strings.TrimLeft(clean, "#$./")
	clean = strings.NewReplacer("[", ".", "]", "").Replace(clean)

	parts := strings.FieldsFunc(clean, func(r rune) bool { return r == '.' || r == '/' })
	out := parts[:0]
	for _, part := range parts {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isWrapperSegment(segment string) bool {
	switch strings.ToLower(segment) {
	case "body", "request", "payload", "data", "values":
		return true
	default:
		return false
	}
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	default:
		return false
	}
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
