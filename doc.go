// Package scriptform builds HTML forms from script parameter definitions.
//
// The quickest path loads definitions and renders a script's master form:
//
//	store, err := scriptform.LoadDefinitions(os.DirFS("scripts"))
//	if err != nil {
//		return err
//	}
//	html, err := scriptform.GenerateHTML(ctx, store, 42, "")
//
// The packages under pkg/ expose each stage: scripts (definitions and
// stores), model (fields and forms), factory (cached form construction),
// render and renderers (output), and validation (submissions).
package scriptform
