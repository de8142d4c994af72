package vm

import (
	"testing"
	"unsafe"

	"zenithos/mem"
)

// newTestMem backs mem.Global with real addressable Go memory, the
// same trick elf_test.go uses, and also gives back a kernel PML4
// (frame 0) CreateUserPML4 copies its top half from.
func newTestMem(t *testing.T, frames uint32) mem.Pa_t {
	t.Helper()
	backing := make([]byte, int(frames)*mem.PGSIZE)
	mem.Global.Init(0, frames, uintptr(unsafe.Pointer(&backing[0])))
	kernelPml4, ok := mem.Global.Alloc()
	if !ok {
		t.Fatal("setup: expected to allocate a kernel PML4 frame")
	}
	return kernelPml4
}

func TestFreeUserHalfIsFrameBalanced(t *testing.T) {
	const totalFrames = 64
	kernelPml4 := newTestMem(t, totalFrames)

	as := CreateUserPML4(kernelPml4)

	// Map enough widely spaced user pages that walkInsert is forced to
	// allocate fresh PDPT/PD/PT frames for each, not just reuse one:
	// va=0 and va=0x40000000 share a PML4 entry but land in different
	// PDPT entries; va=0x8000000000 sits exactly one PML4 entry over
	// (each PML4 entry spans 512 GiB), still within the user half.
	vas := []uintptr{
		0x0,
		0x40000000,
		0x8000000000,
	}
	for _, va := range vas {
		pa, ok := mem.Global.Alloc()
		if !ok {
			t.Fatalf("setup: expected a free frame to map %#x", va)
		}
		as.MapUser(va, pa, mem.PTE_W)
	}

	before := countFreeFrames(t, totalFrames)
	as.FreeUserHalf()
	after := countFreeFrames(t, totalFrames)

	if after <= before {
		t.Fatalf("expected FreeUserHalf to return frames: before=%d after=%d", before, after)
	}
	if after != totalFrames-1 /* -1 for the kernel PML4 this test allocated up front */ {
		t.Fatalf("expected every allocated frame back except the kernel PML4: got %d free of %d", after, totalFrames)
	}
}

// countFreeFrames drains mem.Global via repeated Alloc calls to count
// how many frames are currently free, then returns every frame it
// borrowed so the allocator is left exactly as found.
func countFreeFrames(t *testing.T, totalFrames uint32) int {
	t.Helper()
	var borrowed []mem.Pa_t
	for {
		pa, ok := mem.Global.Alloc()
		if !ok {
			break
		}
		borrowed = append(borrowed, pa)
	}
	for _, pa := range borrowed {
		mem.Global.Free(pa)
	}
	return len(borrowed)
}

func TestCreateUserPML4CopiesKernelUpperHalf(t *testing.T) {
	kernelPml4 := newTestMem(t, 8)

	kdst := mem.Dmap(kernelPml4)
	kdst[256] = 0xdeadbeef | uintptr(mem.PTE_P)

	as := CreateUserPML4(kernelPml4)
	pg := mem.Dmap(as.Pml4)
	if pg[256] != kdst[256] {
		t.Fatalf("expected kernel upper half entry copied, got %#x want %#x", pg[256], kdst[256])
	}
	for i := 0; i < 256; i++ {
		if pg[i] != 0 {
			t.Fatalf("expected user half entry %d to start empty, got %#x", i, pg[i])
		}
	}
}
