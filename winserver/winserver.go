// Package winserver implements the kernel-resident compositor back-end
// of spec §4.5: a fixed-size window slot table, physical pixel pages
// shared between an owner and (at most) one compositor mapping, and a
// bounded per-window event queue. Like proc and sched, biscuit never
// shipped anything resembling a window server (it is a textbook Unix
// kernel), so this package is built directly from §3/§4.5's data model,
// reusing vm.AS_t for the page-mapping half of the job and mem.Physmem_t
// for page allocation, the same way proc composes them for process
// address spaces.
package winserver

import (
	"zenithos/defs"
	"zenithos/mem"
	"zenithos/vm"
)

// Slot_t is one window table entry.
type Slot_t struct {
	InUse      bool
	OwnerPid   int
	Title      string
	W, H       uint32
	Pages      []mem.Pa_t
	OwnerVA    uintptr
	CompVA     uintptr // 0 if not mapped into a compositor
	CompPid    int
	Dirty      bool
	EventQ     [64]defs.WinEvent
	EventHead  int
	EventTail  int
}

// Table_t is the fixed-size window table, M = limits.Syslimit.Windows slots.
type Table_t struct {
	Slots []Slot_t
}

// Global is the kernel-wide window table.
var Global Table_t

// Init allocates the slot array.
func (t *Table_t) Init(n int) {
	t.Slots = make([]Slot_t, n)
}

// Create reserves a slot, allocates ceil(w*h*4/4096) physical pages
// (subject to maxPixelPages), and maps them consecutively into the
// owner's address space starting at heapBase. Returns the window id and
// the owner-space virtual address of the first pixel page, or (-1, 0)
// on any failure mode listed in §4.5.
func (t *Table_t) Create(ownerPid int, as *vm.AS_t, heapBase uintptr, w, h uint32, maxPixelPages int) (int, uintptr) {
	if w == 0 || h == 0 {
		return -1, 0
	}
	npages := int((uint64(w)*uint64(h)*4 + uint64(mem.PGSIZE) - 1) / uint64(mem.PGSIZE))
	if npages > maxPixelPages {
		return -1, 0
	}
	id := -1
	for i := range t.Slots {
		if !t.Slots[i].InUse {
			id = i
			break
		}
	}
	if id < 0 {
		return -1, 0
	}

	pages := make([]mem.Pa_t, 0, npages)
	for i := 0; i < npages; i++ {
		pa, ok := mem.Global.Alloc()
		if !ok {
			for _, p := range pages {
				mem.Global.Free(p)
			}
			return -1, 0
		}
		pages = append(pages, pa)
	}
	for i, pa := range pages {
		as.MapUser(heapBase+uintptr(i*mem.PGSIZE), pa, mem.PTE_W)
	}

	t.Slots[id] = Slot_t{
		InUse:    true,
		OwnerPid: ownerPid,
		W:        w,
		H:        h,
		Pages:    pages,
		OwnerVA:  heapBase,
	}
	return id, heapBase
}

// Present marks a window dirty; it is the owner's side of presenting a
// frame. Compositor discovers it via Enumerate.
func (t *Table_t) Present(id, callerPid int) defs.Err_t {
	s := t.get(id)
	if s == nil || s.OwnerPid != callerPid {
		return -defs.EINVAL
	}
	s.Dirty = true
	return 0
}

// Enumerate returns a metadata snapshot of every active window and
// atomically clears their dirty bits, as the compositor's poll loop
// requires.
func (t *Table_t) Enumerate() []defs.WinInfo {
	var out []defs.WinInfo
	for i := range t.Slots {
		s := &t.Slots[i]
		if !s.InUse {
			continue
		}
		info := defs.WinInfo{
			ID:       int32(i),
			OwnerPid: int32(s.OwnerPid),
			W:        s.W,
			H:        s.H,
		}
		if s.Dirty {
			info.Dirty = 1
		}
		copy(info.Title[:], s.Title)
		out = append(out, info)
		s.Dirty = false
	}
	return out
}

// Map lets the compositor process map a window's existing physical
// pages into its own address space. At most one compositor mapping per
// window is permitted.
func (t *Table_t) Map(id, compPid int, as *vm.AS_t, heapBase uintptr) (uintptr, defs.Err_t) {
	s := t.get(id)
	if s == nil {
		return 0, -defs.EINVAL
	}
	if s.CompVA != 0 {
		return 0, -defs.EINVAL
	}
	for i, pa := range s.Pages {
		as.MapUser(heapBase+uintptr(i*mem.PGSIZE), pa, 0)
	}
	s.CompVA = heapBase
	s.CompPid = compPid
	return heapBase, 0
}

// SendEvent is the compositor's side of the event queue: inject an
// event for the owner to consume via Poll. Overflow drops silently.
func (t *Table_t) SendEvent(id int, ev defs.WinEvent) defs.Err_t {
	s := t.get(id)
	if s == nil {
		return -defs.EINVAL
	}
	next := (s.EventHead + 1) % len(s.EventQ)
	if next == s.EventTail {
		return 0 // full, drop
	}
	s.EventQ[s.EventHead] = ev
	s.EventHead = next
	return 0
}

// Poll is the owner's side of the event queue.
func (t *Table_t) Poll(id, callerPid int) (defs.WinEvent, bool) {
	s := t.get(id)
	if s == nil || s.OwnerPid != callerPid {
		return defs.WinEvent{}, false
	}
	if s.EventTail == s.EventHead {
		return defs.WinEvent{}, false
	}
	ev := s.EventQ[s.EventTail]
	s.EventTail = (s.EventTail + 1) % len(s.EventQ)
	return ev, true
}

// Destroy marks a window unused explicitly (owner-initiated).
func (t *Table_t) Destroy(id, callerPid int) defs.Err_t {
	s := t.get(id)
	if s == nil || s.OwnerPid != callerPid {
		return -defs.EINVAL
	}
	t.Slots[id] = Slot_t{}
	return 0
}

// CleanupExit implements the owner-exit path of §4.5: every window
// owned by pid is unmapped from any compositor that has it mapped
// (eliminating dangling access), then marked unused. The caller (proc's
// exit/kill path) is responsible for freeing the physical pages
// afterward, matching "physical pages are returned by the parent exit
// path".
func (t *Table_t) CleanupExit(pid int, compAS func(compPid int) *vm.AS_t) []mem.Pa_t {
	var freed []mem.Pa_t
	for i := range t.Slots {
		s := &t.Slots[i]
		if !s.InUse || s.OwnerPid != pid {
			continue
		}
		if s.CompVA != 0 {
			if as := compAS(s.CompPid); as != nil {
				for j := range s.Pages {
					as.UnmapUser(s.CompVA + uintptr(j*mem.PGSIZE))
				}
			}
		}
		freed = append(freed, s.Pages...)
		t.Slots[i] = Slot_t{}
	}
	return freed
}

func (t *Table_t) get(id int) *Slot_t {
	if id < 0 || id >= len(t.Slots) || !t.Slots[id].InUse {
		return nil
	}
	return &t.Slots[id]
}
