// Package scripts models the script definitions forms are generated from:
// scripts, their ordered parameters and the layout groups those parameters
// belong to. The ParameterStore and Catalog interfaces are the only way the
// form factory reaches persisted definitions; MemoryStore and LoadFS provide
// a file-backed implementation for tooling and tests.
package scripts
