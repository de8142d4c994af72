// Package stats provides compile-time-toggleable counters, in the spirit
// of biscuit's stats package: the counters cost nothing when Enabled is
// false, since the increment is skipped entirely rather than merely
// unread.
package stats

import "sync/atomic"

// Enabled gates whether Counter_t.Inc does anything. Flip to true when
// chasing a testable-property failure (§8); left false normally so the
// hot paths (ring buffer copies, TRB ring scans) don't pay for it.
const Enabled = false

// Counter_t is a free-running statistical counter.
type Counter_t int64

// Inc increments the counter when stats are enabled.
func (c *Counter_t) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// Add adds n to the counter when stats are enabled.
func (c *Counter_t) Add(n int64) {
	if Enabled {
		atomic.AddInt64((*int64)(c), n)
	}
}

// Value reads the counter unconditionally (reads are always cheap).
func (c *Counter_t) Value() int64 {
	return atomic.LoadInt64((*int64)(c))
}
