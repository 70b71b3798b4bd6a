// Package assert provides a single panic-on-violation helper used to mark
// programmer-error preconditions throughout the buffer pool core.
package assert

import "fmt"

// Assert panics with a formatted message if cond is false. It is meant for
// invariants the caller is responsible for upholding (valid frame ids,
// non-negative pin counts, ...), never for disk I/O or other fallible
// operations.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
