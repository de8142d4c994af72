// Package accnt tracks per-process CPU-time accounting, feeding the
// UserNs/SysNs fields of defs.ProcInfo (§6.1 SYS_PROCLIST). It mirrors
// biscuit's accnt package.
package accnt

import (
	"sync"
	"sync/atomic"
)

// Accnt_t accumulates the nanoseconds of user and system time a single
// process has consumed. The mutex lets Fetch take a consistent snapshot.
type Accnt_t struct {
	UserNs int64
	SysNs  int64
	mu     sync.Mutex
}

// Utadd adds delta nanoseconds of user time.
func (a *Accnt_t) Utadd(delta int64) {
	atomic.AddInt64(&a.UserNs, delta)
}

// Systadd adds delta nanoseconds of system time.
func (a *Accnt_t) Systadd(delta int64) {
	atomic.AddInt64(&a.SysNs, delta)
}

// Add merges n's counters into a.
func (a *Accnt_t) Add(n *Accnt_t) {
	a.mu.Lock()
	a.UserNs += atomic.LoadInt64(&n.UserNs)
	a.SysNs += atomic.LoadInt64(&n.SysNs)
	a.mu.Unlock()
}

// Snapshot returns a consistent (userNs, sysNs) pair.
func (a *Accnt_t) Snapshot() (int64, int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.UserNs, a.SysNs
}
