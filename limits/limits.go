// Package limits centralizes the system-wide resource caps that would
// otherwise be scattered magic numbers, mirroring biscuit's
// limits.Syslimit_t singleton. ZenithOS's caps come straight from the
// data model in spec §3 rather than biscuit's own (much larger) VM/Unix
// workload.
package limits

import "sync/atomic"

// Syslimit_t is the set of fixed table sizes and tunables the rest of the
// kernel reads at init.
type Syslimit_t struct {
	Processes      int
	Windows        int
	TCPConns       int
	WinEventCap    int
	MaxPixelPages  int
	MSS            int
	VFSHandles     int
	VFSWritableCap int
}

// Syslimit is the single global instance, built once.
var Syslimit = &Syslimit_t{
	Processes:      16,
	Windows:        8,
	TCPConns:       16,
	WinEventCap:    64,
	MaxPixelPages:  1024,
	MSS:            1460,
	VFSHandles:     32,
	VFSWritableCap: 256 * 1024,
}

// Atomic_t is a resource counter that can be atomically given to and
// taken from, for a pool whose remaining capacity must be checked and
// decremented without a surrounding mutex. No package in this tree
// uses it.
type Atomic_t int64

// Taken attempts to decrement the counter by n, refusing (and leaving it
// unchanged) if that would make it negative.
func (c *Atomic_t) Taken(n int64) bool {
	if atomic.AddInt64((*int64)(c), -n) >= 0 {
		return true
	}
	atomic.AddInt64((*int64)(c), n)
	return false
}

// Given increases the counter by n.
func (c *Atomic_t) Given(n int64) {
	atomic.AddInt64((*int64)(c), n)
}

// Value reads the counter.
func (c *Atomic_t) Value() int64 {
	return atomic.LoadInt64((*int64)(c))
}
