// Package vm manages per-process address spaces: building and tearing
// down a PML4 page table and mapping/unmapping user pages into it.
// Grounded on biscuit/src/vm/as.go's Vm_t, but spec §2 excludes SMP,
// demand paging, and swap as Non-goals, so this version has no
// page-fault handler, no copy-on-write, and no VMA list — every user
// page is mapped eagerly when the process asks for it (at exec, at
// Sys_mmap-equivalent, and the fixed-size stack at spawn) and physical pages are read
// through mem's direct map exactly as kernel pages are, since nothing
// here is ever demand-paged in lazily.
package vm

import (
	"zenithos/mem"
)

// AS_t is one process's address space: the physical address of its
// PML4 table plus the set of user pages it owns, so FreeUserHalf can
// release them all without walking the table.
type AS_t struct {
	Pml4  mem.Pa_t
	pages map[uintptr]mem.Pa_t // user VA -> backing physical page
}

// CreateUserPML4 allocates a fresh PML4 whose upper half (kernel space)
// is copied from the kernel's own page table and whose lower half
// (user space) starts empty.
func CreateUserPML4(kernelPml4 mem.Pa_t) *AS_t {
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("vm: out of memory creating PML4")
	}
	dst := mem.Dmap(pa)
	src := mem.Dmap(kernelPml4)
	// copy only the top half (entries 256-511): kernel mappings are
	// shared across every address space.
	for i := 256; i < 512; i++ {
		dst[i] = src[i]
	}
	return &AS_t{Pml4: pa, pages: make(map[uintptr]mem.Pa_t)}
}

// MapUser maps a single page at user virtual address va to physical
// page pa with the given PTE permission bits (mem.PTE_P and mem.PTE_U
// are always set; callers pass mem.PTE_W for a writable page and extra
// bits like mem.PTE_PCD).
func (as *AS_t) MapUser(va uintptr, pa mem.Pa_t, perms mem.Pa_t) {
	if va%uintptr(mem.PGSIZE) != 0 {
		panic("vm: unaligned user va")
	}
	walkInsert(as.Pml4, va, pa, perms|mem.PTE_P|mem.PTE_U)
	as.pages[va] = pa
}

// MapUserWC maps a single page at va with write-combining semantics,
// §4.1's map_user_write_combining — callers that want a device/
// framebuffer-style combining buffer call this instead of reaching for
// a raw cache-control bit themselves. This kernel never programs a PAT
// entry for a true WC type (§4.1's Non-goals exclude PAT setup), so
// PTE_PCD (cache-disable) stands in as the closest two-bit encoding
// reaches; the primitive is still named and exposed on its own so a
// future PAT-aware caller has one call site to change.
func (as *AS_t) MapUserWC(va uintptr, pa mem.Pa_t) {
	as.MapUser(va, pa, mem.PTE_W|mem.PTE_PCD)
}

// UnmapUser removes the mapping at va, returning the physical page that
// was backing it so the caller can free it.
func (as *AS_t) UnmapUser(va uintptr) (mem.Pa_t, bool) {
	pa, ok := as.pages[va]
	if !ok {
		return 0, false
	}
	walkClear(as.Pml4, va)
	delete(as.pages, va)
	return pa, true
}

// FreeUserHalf releases every user page the address space owns, then
// walks the user half of the table tree (PML4 entries 0-255) freeing
// every interior PDPT/PD/PT frame walkInsert allocated on demand, then
// frees the PML4 page itself. §8 requires create_user_pml4 followed by
// free_user_half to be frame-balanced; leaving interior table frames
// behind would leak one frame per PDPT/PD/PT level ever touched.
func (as *AS_t) FreeUserHalf() {
	for va := range as.pages {
		if pa, ok := as.UnmapUser(va); ok {
			mem.Global.Free(pa)
		}
	}
	freeUserTables(as.Pml4)
	mem.Global.Free(as.Pml4)
}

// freeUserTables frees every interior PDPT/PD/PT frame reachable from
// the user half (entries 0-255) of pml4. Leaf data pages are not
// touched here — they are owned by AS_t.pages and already freed by the
// caller.
func freeUserTables(pml4 mem.Pa_t) {
	top := mem.Dmap(pml4)
	for i := 0; i < 256; i++ {
		e := mem.Pa_t(top[i])
		if e&mem.PTE_P == 0 {
			continue
		}
		pdpt := e & mem.PTE_ADDR
		freeInteriorChildren(pdpt, 2)
		mem.Global.Free(pdpt)
	}
}

// freeInteriorChildren recursively frees every present interior frame
// reachable from table's entries at the given depth: 2 means table is a
// PDPT whose entries point to PD frames, 1 means table is a PD whose
// entries point to PT frames, 0 means table is a PT whose entries point
// to leaf data pages (left alone; not interior frames).
func freeInteriorChildren(table mem.Pa_t, depth int) {
	if depth == 0 {
		return
	}
	pg := mem.Dmap(table)
	for i := 0; i < 512; i++ {
		e := mem.Pa_t(pg[i])
		if e&mem.PTE_P == 0 {
			continue
		}
		child := e & mem.PTE_ADDR
		freeInteriorChildren(child, depth-1)
		mem.Global.Free(child)
	}
}

// Translate resolves a user virtual address to its physical address
// (the backing page plus va's offset within the page), used by the syscall layer to turn a user pointer into a
// kernel-accessible slice via mem.Dmap.
func (as *AS_t) Translate(va uintptr) (mem.Pa_t, bool) {
	page := va &^ uintptr(mem.PGOFFSET)
	pa, ok := as.pages[page]
	if !ok {
		return 0, false
	}
	return pa + mem.Pa_t(va&uintptr(mem.PGOFFSET)), true
}

func pml4idx(va uintptr, level int) int {
	return int((va >> (12 + 9*level)) & 0x1ff)
}

func walkInsert(pml4 mem.Pa_t, va uintptr, pa mem.Pa_t, perms mem.Pa_t) {
	table := pml4
	for level := 3; level > 0; level-- {
		pg := mem.Dmap(table)
		idx := pml4idx(va, level)
		entry := mem.Pa_t(pg[idx])
		if entry&mem.PTE_P == 0 {
			next, ok := mem.Global.Alloc()
			if !ok {
				panic("vm: out of memory walking page table")
			}
			entry = next | mem.PTE_P | mem.PTE_W | mem.PTE_U
			pg[idx] = uintptr(entry)
		}
		table = entry & mem.PTE_ADDR
	}
	pg := mem.Dmap(table)
	pg[pml4idx(va, 0)] = uintptr(pa&mem.PTE_ADDR | perms)
}

func walkClear(pml4 mem.Pa_t, va uintptr) {
	table := pml4
	for level := 3; level > 0; level-- {
		pg := mem.Dmap(table)
		entry := mem.Pa_t(pg[pml4idx(va, level)])
		if entry&mem.PTE_P == 0 {
			return
		}
		table = entry & mem.PTE_ADDR
	}
	pg := mem.Dmap(table)
	pg[pml4idx(va, 0)] = 0
}
