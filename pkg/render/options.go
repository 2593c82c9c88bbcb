package render

import "net/url"

// RenderOptions carry per-request data. They never mutate the cached form;
// renderers overlay them at output time.
type RenderOptions struct {
	// Action overrides the form submission URL.
	Action string
	// Values pre-populates controls by field name. A value present here wins
	// over the field's initial value.
	Values map[string]any
	// Errors surfaces server-side validation feedback keyed by field name.
	Errors map[string][]string
	// FormErrors holds messages not bound to a single field.
	FormErrors []string
	// Hidden adds extra hidden inputs, for example a CSRF token.
	Hidden map[string]string
	// Fragment renders the controls only, without the enclosing form element,
	// so several group forms can share one page-level form.
	Fragment bool
}

// ValuesFromQuery flattens url.Values into RenderOptions.Values. Single values
// stay scalar; repeated keys become string slices.
func ValuesFromQuery(query url.Values) map[string]any {
	if len(query) == 0 {
		return nil
	}
	out := make(map[string]any, len(query))
	for key, values := range query {
		switch len(values) {
		case 0:
			continue
		case 1:
			out[key] = values[0]
		default:
			out[key] = append([]string(nil), values...)
		}
	}
	return out
}
