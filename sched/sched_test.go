package sched

import (
	"testing"
	"unsafe"

	"zenithos/defs"
	"zenithos/mem"
	"zenithos/proc"
)

// initTestMem backs mem.Global with real addressable Go memory so
// proc.Table_t.Alloc's per-spawn kernel-stack allocation succeeds.
func initTestMem(t *testing.T, frames int) {
	t.Helper()
	backing := make([]byte, frames*mem.PGSIZE)
	mem.Global.Init(0, uint32(frames), uintptr(unsafe.Pointer(&backing[0])))
}

func TestRoundRobinRotation(t *testing.T) {
	initTestMem(t, 2*defs.StackPages)
	var tbl proc.Table_t
	tbl.Init()
	a := tbl.Alloc(-1, "a")
	b := tbl.Alloc(-1, "b")

	var s Sched_t
	s.Init(&tbl)

	first := s.Yield()
	if first != a {
		t.Fatalf("expected first rotation to pick %d, got %d", a, first)
	}
	second := s.Yield()
	if second != b {
		t.Fatalf("expected second rotation to pick %d, got %d", b, second)
	}
	third := s.Yield()
	if third != a {
		t.Fatalf("expected rotation to wrap to %d, got %d", a, third)
	}
}

func TestIdleWhenNoneReady(t *testing.T) {
	var tbl proc.Table_t
	tbl.Init()

	var s Sched_t
	s.Init(&tbl)

	if pid := s.Yield(); pid != -1 {
		t.Fatalf("expected idle (-1), got %d", pid)
	}
}

func TestTickExpiresSlice(t *testing.T) {
	initTestMem(t, 2*defs.StackPages)
	var tbl proc.Table_t
	tbl.Init()
	a := tbl.Alloc(-1, "a")
	b := tbl.Alloc(-1, "b")

	var s Sched_t
	s.Init(&tbl)
	s.Yield() // a running

	p := tbl.Get(a)
	p.SliceRemaining = 15
	if got := s.Tick(); got != a {
		t.Fatalf("slice should not have expired yet: got %d", got)
	}
	if got := s.Tick(); got != b {
		t.Fatalf("expected rotation to %d after slice expiry, got %d", b, got)
	}
}
