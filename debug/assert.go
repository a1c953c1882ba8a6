//go:build debug

package debug

// Enabled tells if assertions are compiled in. Guard assertions that are
// expensive to evaluate with it.
const Enabled = true

// Assert panics with message if b is false.
func Assert(b bool, message string) {
	if !b {
		panic(message)
	}
}
