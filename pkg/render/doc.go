// Package render defines the renderer contract shared by the HTML and
// terminal renderers, a name-keyed registry, per-request render options and
// helpers for hidden inputs and server-side error mapping.
package render
