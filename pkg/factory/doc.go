// Package factory turns script parameters into the two form renditions a
// script page needs: one form per layout group (the "Required" group first)
// and a master form holding every field. Both carry a hidden identity field
// so a submission names its script. Results are cached per script primary
// key in an injected cache.FormCache; Ensure builds both renditions from one
// parameter query and Invalidate drops them when definitions change.
package factory
