package ioredir

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

func TestInheritanceResolvesOneHop(t *testing.T) {
	initTestMem(t, 3*defs.StackPages)
	var tbl proc.Table_t
	tbl.Init()
	ownerPid := tbl.Alloc(-1, "term")
	childPid := tbl.Alloc(ownerPid, "shell")
	grandchildPid := tbl.Alloc(childPid, "editor")

	owner := tbl.Get(ownerPid)
	Create(owner, 80, 24)
	Inherit(tbl.Get(childPid), owner)
	Inherit(tbl.Get(grandchildPid), tbl.Get(childPid))

	if tbl.Get(grandchildPid).Redir.Parent != ownerPid {
		t.Fatalf("expected grandchild to resolve directly to owner %d, got %d",
			ownerPid, tbl.Get(grandchildPid).Redir.Parent)
	}

	if _, err := WriteOut(&tbl, grandchildPid, []byte("hi")); err != 0 {
		t.Fatalf("unexpected error writing out: %d", err)
	}
	out := make([]byte, 2)
	n := owner.Redir.Out.Read(out)
	if n != 2 || string(out) != "hi" {
		t.Fatalf("expected owner ring to receive grandchild's output, got %q", out[:n])
	}
}

func TestReadInEmptyYieldsEAGAIN(t *testing.T) {
	initTestMem(t, defs.StackPages)
	var tbl proc.Table_t
	tbl.Init()
	pid := tbl.Alloc(-1, "term")
	Create(tbl.Get(pid), 80, 24)

	_, err := ReadIn(&tbl, pid, make([]byte, 4))
	if err != -defs.EAGAIN {
		t.Fatalf("expected EAGAIN on empty ring, got %d", err)
	}
}

func TestKeyQueueDropsOnOverflow(t *testing.T) {
	initTestMem(t, defs.StackPages)
	var tbl proc.Table_t
	tbl.Init()
	pid := tbl.Alloc(-1, "term")
	owner := tbl.Get(pid)
	Create(owner, 80, 24)

	for i := 0; i < 100; i++ {
		PushKey(owner, defs.KeyEvent{})
	}
	count := 0
	for {
		if _, ok := PopKey(&tbl, pid); !ok {
			break
		}
		count++
	}
	if count != len(owner.Redir.Key)-1 {
		t.Fatalf("expected capacity-bounded queue of %d, got %d", len(owner.Redir.Key)-1, count)
	}
}
