// Package orchestrator wires the catalog → form factory → renderer pipeline,
// providing dependency injection friendly helpers for consumers that prefer a
// single entry point.
package orchestrator
