// Heap allocation and the minimal framebuffer contract (spec §6.1's
// alloc/free/fb_info/fb_map). Framebuffer rendering itself is out of
// scope (spec's Non-goals list the SVG rasterizer, font rendering,
// etc. as external collaborators) — only the syscall contract is
// specified, so this keeps a single fixed-mode framebuffer behind it:
// one physical page run, mapped into whichever process asks for it via
// vm.AS_t.MapUserWC (§4.1's map_user_write_combining, backed by
// PTE_PCD since mem only exposes PCD/PWT bits, not a real PAT entry).
package sysapi

import (
	"zenithos/defs"
	"zenithos/mem"
	"zenithos/util"
)

const (
	fbWidth  = 1024
	fbHeight = 768
	fbBpp    = 4
	fbPitch  = fbWidth * fbBpp
)

var (
	fbPages []mem.Pa_t
	fbMapVA uintptr = 0x20000000
)

// InitFramebuffer allocates the backing pages for the shared
// framebuffer once at boot. Called from cmd/kernel.
func InitFramebuffer() {
	npages := util.DivRoundup(fbHeight*fbPitch, mem.PGSIZE)
	fbPages = make([]mem.Pa_t, npages)
	for i := range fbPages {
		pa, ok := mem.Global.Alloc()
		if !ok {
			panic("sysapi: out of memory reserving framebuffer")
		}
		fbPages[i] = pa
	}
}

func sysFbInfo(pid int, a Args) int64 {
	p := curProc(pid)
	buf := make([]byte, 40)
	putLE64 := func(off int, v uint64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	putLE64(0, fbWidth)
	putLE64(8, fbHeight)
	putLE64(16, fbPitch)
	putLE64(24, fbBpp*8)
	putLE64(32, uint64(fbMapVA))
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysFbMap(pid int, a Args) int64 {
	p := curProc(pid)
	if p == nil || p.AS == nil {
		return int64(-defs.ESRCH)
	}
	for i, pa := range fbPages {
		p.AS.MapUserWC(fbMapVA+uintptr(i*mem.PGSIZE), pa)
	}
	return int64(fbMapVA)
}

func sysAlloc(pid int, a Args) int64 {
	p := curProc(pid)
	if p == nil || p.AS == nil {
		return 0
	}
	size := int(a.A0)
	if size <= 0 {
		return 0
	}
	npages := util.DivRoundup(size, mem.PGSIZE)
	base := p.HeapNext
	for i := 0; i < npages; i++ {
		pa, ok := mem.Global.Alloc()
		if !ok {
			return 0
		}
		p.AS.MapUser(p.HeapNext, pa, mem.PTE_W)
		p.HeapNext += uintptr(mem.PGSIZE)
	}
	return int64(base)
}

func sysFree(pid int, a Args) int64 {
	// The reference implementation never reclaims heap pages mid-run
	// (§6.1: "no-op in reference impl") — address space teardown at
	// exit is the only reclaim path.
	return 0
}
