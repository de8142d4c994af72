package proc

import (
	"testing"
	"unsafe"

	"zenithos/defs"
	"zenithos/mem"
)

// initTestMem backs mem.Global with real addressable Go memory so
// Alloc's per-spawn kernel-stack allocation has frames to hand out,
// the same trick mem_test.go uses for Physmem_t directly.
func initTestMem(t *testing.T, frames int) {
	t.Helper()
	backing := make([]byte, frames*mem.PGSIZE)
	mem.Global.Init(0, uint32(frames), uintptr(unsafe.Pointer(&backing[0])))
}

func TestAllocReleaseCycle(t *testing.T) {
	initTestMem(t, 64)
	var tbl Table_t
	tbl.Init()

	pid := tbl.Alloc(-1, "init")
	if pid != 0 {
		t.Fatalf("expected first pid 0, got %d", pid)
	}
	if tbl.Get(pid).State != Ready {
		t.Fatalf("expected Ready after alloc")
	}
	tbl.Release(pid)
	if tbl.Get(pid) != nil {
		t.Fatalf("expected nil after release")
	}
}

func TestKillRefusesPidZeroAndSelf(t *testing.T) {
	initTestMem(t, 64)
	var tbl Table_t
	tbl.Init()
	tbl.Alloc(-1, "init")
	tbl.Alloc(0, "child")

	if err := tbl.Kill(1, 0); err == 0 {
		t.Fatalf("expected kill of pid 0 to fail")
	}
	if err := tbl.Kill(1, 1); err == 0 {
		t.Fatalf("expected self-kill to fail")
	}
	if err := tbl.Kill(0, 1); err != 0 {
		t.Fatalf("expected valid kill to succeed, got %d", err)
	}
	if tbl.Get(1).State != Terminated {
		t.Fatalf("expected target Terminated")
	}
}

func TestTableExhaustion(t *testing.T) {
	var tbl Table_t
	tbl.Init()
	n := len(tbl.Slots)
	initTestMem(t, n*defs.StackPages)
	for i := 0; i < n; i++ {
		if pid := tbl.Alloc(-1, "p"); pid < 0 {
			t.Fatalf("unexpected exhaustion at %d/%d", i, n)
		}
	}
	if pid := tbl.Alloc(-1, "overflow"); pid != -1 {
		t.Fatalf("expected -1 on full table, got %d", pid)
	}
}
