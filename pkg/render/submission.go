package render

import (
	"fmt"
	"sort"
	"strings"
)

// HiddenField is an extra hidden input emitted next to the form's own fields.
type HiddenField struct {
	Name  string
	Value string
}

// Hidden returns a HiddenField for an arbitrary name/value pair.
func Hidden(name string, value any) HiddenField {
	return HiddenField{Name: strings.TrimSpace(name), Value: fmt.Sprint(value)}
}

// CSRFToken builds the hidden field carrying a CSRF token under the name the
// backend expects ("_csrf", "csrfmiddlewaretoken", ...).
func CSRFToken(name, token string) HiddenField {
	return Hidden(name, token)
}

// MergeHiddenFields returns a copy of base with fields applied. Blank names
// are dropped and later fields win.
func MergeHiddenFields(base map[string]string, fields ...HiddenField) map[string]string {
	out := make(map[string]string, len(base)+len(fields))
	for key, value := range base {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			out[trimmed] = value
		}
	}
	for _, field := range fields {
		if field.Name == "" {
			continue
		}
		out[field.Name] = field.Value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SortedHiddenFields orders hidden inputs by name so output is deterministic.
// Names in skip (typically the form's own hidden fields) are left out.
func SortedHiddenFields(fields map[string]string, skip ...string) []HiddenField {
	if len(fields) == 0 {
		return nil
	}
	excluded := make(map[string]struct{}, len(skip))
	for _, name := range skip {
		excluded[name] = struct{}{}
	}

	result := make([]HiddenField, 0, len(fields))
	for name, value := range fields {
		key := strings.TrimSpace(name)
		if key == "" {
			continue
		}
		if _, ok := excluded[key]; ok {
			continue
		}
		result = append(result, HiddenField{Name: key, Value: value})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	if len(result) == 0 {
		return nil
	}
	return result
}
