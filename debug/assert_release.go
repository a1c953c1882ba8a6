//go:build !debug

// Package debug provides assertions that panic when built with the debug
// build tag and compile to no-ops otherwise.
package debug

// Enabled tells if assertions are compiled in. Guard assertions that are
// expensive to evaluate with it.
const Enabled = false

// Assert panics with message if b is false. It does nothing in release
// builds.
func Assert(b bool, message string) {}
