//go:build debug

// Package check holds invariant assertions that only fire in debug builds
// (go build -tags debug). Release builds compile them to no-ops.
package check

import "fmt"

// Assert panics with msg when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("invariant violated: " + msg)
	}
}

// Assertf is Assert with a formatted message.
func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("invariant violated: " + fmt.Sprintf(format, args...))
	}
}

// NonNegative panics when a counted quantity dropped below zero.
func NonNegative(what string, v int) {
	if v < 0 {
		panic(fmt.Sprintf("invariant violated: %s = %d, want >= 0", what, v))
	}
}
