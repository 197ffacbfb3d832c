// Package compilerr defines the small, fatal error taxonomy raised when a
// compiler stage finds its own invariants broken, as opposed to the
// diagnostics a stage collects for a malformed input program (those are
// returned as plain strings by pkg/parser's and pkg/sema's Errors()).
package compilerr

import "fmt"

// ErrMissingSpillSlot indicates the register allocator tried to reload a
// temp that was never bound to a register or a parameter and has no stack
// slot reserved for it — a bug in frame layout or liveness, not a program
// error.
var ErrMissingSpillSlot = fmt.Errorf("compilerr: missing spill slot")

// ErrInvariant indicates a stage observed a state its own construction
// should make impossible (an unhandled tagged-sum-type case, an unknown
// register, an inconsistent block graph).
var ErrInvariant = fmt.Errorf("compilerr: invariant violated")

// Fail panics with err wrapped together with a context string, for a core
// stage to call at the point an invariant breaks. cmd/rv32cc recovers this
// at the top level and reports it as a compiler-internal failure rather
// than letting it crash the process.
func Fail(err error, context string) {
	panic(fmt.Errorf("%w: %s", err, context))
}
