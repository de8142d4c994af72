// Package caller gives the fatal-error path (§7 kind 5) something to print
// before the kernel triple-faults: a formatted call chain, the same tool
// biscuit's caller package provides for tracking down invariant
// violations.
package caller

import (
	"fmt"
	"runtime"
	"strings"
)

// Dump formats the call stack starting start frames above Dump itself
// (start 1 is Dump's caller), one line per frame, innermost first.
func Dump(start int) string {
	var b strings.Builder
	i := start
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if i != start {
			b.WriteString("\t<-")
		}
		fmt.Fprintf(&b, "%s:%d\n", f, l)
		i++
	}
	return b.String()
}

// Panicf dumps the call chain and then panics with the formatted message —
// the idiom used at every kernel invariant violation (§7 kind 5), which is
// how ZenithOS "triple-faults": a panic with no recover, unwinding straight
// out of the process that is the whole kernel.
func Panicf(format string, args ...interface{}) {
	trace := Dump(2)
	panic(fmt.Sprintf(format, args...) + "\n" + trace)
}
