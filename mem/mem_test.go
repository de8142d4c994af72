package mem

import (
	"testing"
	"unsafe"
)

// newTestPhysmem backs the direct map with real addressable Go memory,
// the same trick elf_test.go uses, so Alloc/Dmap don't crash a test
// process where Vdirect would otherwise point at nothing.
func newTestPhysmem(t *testing.T, frames int) *Physmem_t {
	t.Helper()
	backing := make([]byte, frames*PGSIZE)
	var p Physmem_t
	p.Init(0, uint32(frames), uintptr(unsafe.Pointer(&backing[0])))
	return &p
}

func TestAllocContigFindsConsecutiveRun(t *testing.T) {
	p := newTestPhysmem(t, 16)

	base, ok := p.AllocContig(4)
	if !ok {
		t.Fatal("expected a run of 4 free frames")
	}
	for i := 0; i < 4; i++ {
		pg := Dmap(base + Pa_t(i*PGSIZE))
		for _, w := range pg {
			if w != 0 {
				t.Fatalf("frame %d not zeroed", i)
			}
		}
	}
}

func TestAllocContigSkipsReservedFrames(t *testing.T) {
	p := newTestPhysmem(t, 8)

	// Reserve frame 0 (Alloc hands out the lowest free frame) so no run
	// of 4 starting at 0 exists; a run of 4 should still be found
	// starting at frame 1.
	reserved, ok := p.Alloc()
	if !ok {
		t.Fatal("setup: expected to allocate a single frame")
	}
	_ = reserved

	base, ok := p.AllocContig(4)
	if !ok {
		t.Fatal("expected AllocContig to find a run past the reserved frame")
	}
	if base == 0 {
		t.Fatal("run must not overlap the reserved frame at index 0")
	}
}

func TestAllocContigFailsWhenNoRunFits(t *testing.T) {
	p := newTestPhysmem(t, 4)

	// Fragment the bitmap: alloc every frame, then free every other one
	// so no run of 2 consecutive free frames remains.
	var pas [4]Pa_t
	for i := 0; i < 4; i++ {
		pa, ok := p.Alloc()
		if !ok {
			t.Fatalf("setup: expected frame %d to allocate", i)
		}
		pas[i] = pa
	}
	for i := 0; i < 4; i += 2 {
		p.Free(pas[i])
	}
	if _, ok := p.AllocContig(2); ok {
		t.Fatal("expected no run of 2 to be available")
	}
}

func TestFreeCountRoundTripsWithAllocContig(t *testing.T) {
	p := newTestPhysmem(t, 8)

	base, ok := p.AllocContig(4)
	if !ok {
		t.Fatal("expected AllocContig to succeed")
	}
	p.FreeCount(base, 4)

	// The whole range should be available again as one run.
	again, ok := p.AllocContig(8)
	if !ok {
		t.Fatal("expected all 8 frames free after FreeCount")
	}
	_ = again
}

func TestAllocContigOfOneMatchesAlloc(t *testing.T) {
	p := newTestPhysmem(t, 4)

	pa, ok := p.AllocContig(1)
	if !ok {
		t.Fatal("expected AllocContig(1) to succeed")
	}
	if pa != Pa_t(0) {
		t.Fatalf("expected the first frame, got %#x", pa)
	}
}
