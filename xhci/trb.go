// TRB ring mechanics shared by the command ring, event ring, and every
// endpoint transfer ring: a circular array of 16-byte Transfer Request
// Blocks with a trailing Link TRB and a cycle bit that tells the
// consumer which entries are valid. Grounded directly on spec §4.6's
// "Ring mechanics" paragraph; no pack repo implements xHCI, so there is
// no teacher source to adapt here beyond the general fixed-size-ring-
// plus-cycle-bit shape biscuit's own circbuf/hashtable show for other
// kinds of ring/table state.
package xhci

import (
	"unsafe"

	"zenithos/mem"
)

// TRBSize is the fixed size of a Transfer Request Block in bytes.
const TRBSize = 16

// trbsPerPage is how many 16-byte TRBs fit in one 4 KiB page.
const trbsPerPage = mem.PGSIZE / TRBSize

// TRB is one 16-byte ring entry: two 32-bit parameter words (usually
// combined as a 64-bit pointer/data field), a status word, and a
// control word whose low bits carry the TRB type and cycle bit.
type TRB struct {
	Param  uint64
	Status uint32
	Ctrl   uint32
}

// TRB type field values used by this driver (subset of the full xHCI
// enumeration).
const (
	TRBNormal           = 1
	TRBSetupStage       = 2
	TRBDataStage        = 3
	TRBStatusStage      = 4
	TRBLink             = 6
	TRBEnableSlot       = 9
	TRBAddressDevice    = 11
	TRBConfigureEndpoint = 12
	TRBEvaluateContext  = 13
	TRBTransferEvent    = 32
	TRBCommandCompletion = 33
	TRBPortStatusChange = 34
)

// dmapAsTRBs reinterprets a direct-mapped page as a fixed-size TRB
// array; every ring (command, event, transfer) is exactly one page.
func dmapAsTRBs(pg *mem.Pg_t) *[trbsPerPage]TRB {
	return (*[trbsPerPage]TRB)(unsafe.Pointer(pg))
}

const cycleBit uint32 = 1 << 0

func trbType(ctrl uint32) uint32 { return (ctrl >> 10) & 0x3f }
func mkCtrl(trbType uint32, cycle bool) uint32 {
	c := trbType << 10
	if cycle {
		c |= cycleBit
	}
	return c
}

// Ring is a producer-driven TRB ring backed by one physical page, with
// the last slot reserved as a Link TRB pointing back to the ring base.
type Ring struct {
	phys    mem.Pa_t
	trbs    []TRB // view over the page via mem.Dmap, length trbsPerPage
	enqueue int
	ccs     bool // producer cycle-state
}

// NewRing allocates a fresh ring page and plants the Link TRB at the
// last slot, per §4.6 step 6/7 (also used for transfer rings).
func NewRing() *Ring {
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("xhci: out of memory allocating TRB ring")
	}
	r := &Ring{phys: pa, ccs: true}
	r.attach()
	last := trbsPerPage - 1
	r.trbs[last] = TRB{
		Param: uint64(pa),
		Ctrl:  mkCtrl(TRBLink, true) | 1<<1, // toggle-cycle bit
	}
	return r
}

func (r *Ring) attach() {
	pg := mem.Dmap(r.phys)
	r.trbs = dmapAsTRBs(pg)[:]
}

// PhysAddr returns the ring's base physical address (for CRCR/ERSTBA).
func (r *Ring) PhysAddr() mem.Pa_t { return r.phys }

// CCS returns the ring's current cycle-state.
func (r *Ring) CCS() bool { return r.ccs }

// Enqueue writes a TRB at the current producer position with the
// current CCS, advancing past the Link TRB (updating its cycle and
// toggling CCS) whenever the ring wraps.
func (r *Ring) Enqueue(param uint64, status uint32, trbType uint32) {
	r.EnqueueRaw(param, status, mkCtrl(trbType, r.ccs))
}

// EnqueueRaw writes a TRB whose control word the caller has already
// built (still missing only the cycle bit, which EnqueueRaw sets here) —
// used by the control-transfer state machine, which needs TRT/DIR/IOC
// bits Enqueue's plain (type, cycle) form can't express.
func (r *Ring) EnqueueRaw(param uint64, status uint32, ctrl uint32) {
	if r.ccs {
		ctrl |= cycleBit
	} else {
		ctrl &^= cycleBit
	}
	r.trbs[r.enqueue] = TRB{Param: param, Status: status, Ctrl: ctrl}
	r.enqueue++
	if r.enqueue == trbsPerPage-1 {
		link := &r.trbs[trbsPerPage-1]
		link.Ctrl = mkCtrl(TRBLink, r.ccs) | 1<<1
		r.enqueue = 0
		r.ccs = !r.ccs
	}
}

// EventRing tracks a consumer-side ring (the single event ring): the
// dequeue pointer and consumer cycle-state.
type EventRing struct {
	phys    mem.Pa_t
	trbs    []TRB
	dequeue int
	ccs     bool
}

// NewEventRing allocates the event ring page used with a 1-entry ERST.
func NewEventRing() *EventRing {
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("xhci: out of memory allocating event ring")
	}
	er := &EventRing{phys: pa, ccs: true}
	pg := mem.Dmap(pa)
	er.trbs = dmapAsTRBs(pg)[:]
	return er
}

func (er *EventRing) PhysAddr() mem.Pa_t { return er.phys }

// Poll returns the next valid event TRB (cycle matches consumer CCS)
// and advances the dequeue pointer, or ok=false if none is pending.
func (er *EventRing) Poll() (TRB, bool) {
	t := er.trbs[er.dequeue]
	if (t.Ctrl&cycleBit != 0) != er.ccs {
		return TRB{}, false
	}
	er.dequeue++
	if er.dequeue == trbsPerPage {
		er.dequeue = 0
		er.ccs = !er.ccs
	}
	return t, true
}

// DequeuePhysAddr returns the physical address the controller should be
// told (via ERDP) is the next entry to process.
func (er *EventRing) DequeuePhysAddr() mem.Pa_t {
	return er.phys + mem.Pa_t(er.dequeue*TRBSize)
}
