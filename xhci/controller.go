// Package xhci drives an xHCI USB 3.x host controller through
// enumeration and interrupt-IN transfers for HID keyboards and mice.
// It is the hardest module in this kernel (spec §4.6) and has no
// analog anywhere in the retrieval pack — usbarmory-tamago's USB code
// is device/gadget-side (the opposite role), and github.com/google/
// gousb talks to a host controller from userspace through libusb,
// not in-kernel register programming. The bring-up sequence, TRB ring
// mechanics, and 13-step enumeration procedure below are built
// directly from spec §4.6, in the mutex-guarded-struct-with-explicit-
// Init idiom the rest of this kernel's singleton modules (proc, sched,
// winserver, tcp) all use.
package xhci

import (
	"sync"

	"zenithos/hashtable"
	"zenithos/mem"
	"zenithos/msi"
	"zenithos/pci"
)

const (
	MaxSlots = 32
	MaxPorts = 16
)

// SlotInfo is the per-device-slot record of spec §3: active flag, port
// id, negotiated speed, VID/PID/class, device context, EP0 ring, and
// an optional interrupt-IN endpoint.
type SlotInfo struct {
	Active   bool
	Port     uint8
	Speed    uint8
	VID, PID uint16
	Class    uint8

	DeviceCtx mem.Pa_t
	EP0       *Ring

	IntrEP       uint8 // DCI of the interrupt-IN endpoint, 0 if none
	IntrRing     *Ring
	IntrBuf      mem.Pa_t
	MaxPacket    uint16
	Kind         DeviceKind
}

// DeviceKind tags which HID handler a slot's interrupt-IN reports are
// dispatched to — the "small tagged-union... not open-ended virtual
// dispatch" rule of spec §6.
type DeviceKind int

const (
	KindUnknown DeviceKind = iota
	KindKeyboard
	KindMouse
)

// pendingCompletion is the single in-flight command-ring slot: the
// command submitter polls the event ring for the next Command
// Completion TRB rather than maintaining a queue of outstanding
// commands (the driver only ever issues one command at a time).
type pendingCompletion struct {
	waiting bool
	code    uint8
	slotID  uint8
	cmdTRB  uint64 // physical address of the command TRB; not set or compared by the poller
}

// Controller owns one xHCI host controller instance: its mapped
// register windows, command/event rings, DCBAA, and slot table.
// Exposed as a struct (not a bare global) per spec §6's instruction
// that singletons still support fresh per-test instantiation; Global
// holds the kernel's one real instance.
type Controller struct {
	mu sync.Mutex

	dev  pci.Device
	bar0 mem.Pa_t

	cap mmio
	op  mmio
	rt  mmio
	db  mmio

	opBase uint32
	rtBase uint32
	dbBase uint32

	maxSlots uint8
	maxPorts uint8

	dcbaaPhys mem.Pa_t
	dcbaa     []uint64

	scratchpadArray mem.Pa_t
	scratchpads     []mem.Pa_t

	cmdRing *Ring
	evtRing *EventRing
	erst    mem.Pa_t

	msiVec msi.Vec_t

	slots [MaxSlots + 1]SlotInfo

	pending pendingCompletion

	portPending [MaxPorts]bool
	portScanned bool
	hotplugBusy bool

	// quirks maps a packed VID:PID to a forced DeviceKind, for
	// devices whose descriptors don't carry a standard HID boot
	// interface/protocol but are known keyboards or mice anyway.
	quirks *hashtable.Table_t[uint32, DeviceKind]
}

// SlotState returns a snapshot of slot n's device info, or nil if out
// of range. Used by sysapi's devlist syscall to report attached USB
// devices without exposing the controller's internal slot array.
func (c *Controller) SlotState(n int) *SlotInfo {
	if n < 0 || n >= len(c.slots) {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slots[n]
	return &s
}

func vidPidKey(vid, pid uint16) uint32 { return uint32(vid)<<16 | uint32(pid) }

// AddQuirk registers a forced device kind for a specific VID:PID pair,
// consulted during enumeration step 7 when the standard boot-
// interface walk doesn't classify the device.
func (c *Controller) AddQuirk(vid, pid uint16, kind DeviceKind) {
	c.quirks.Set(vidPidKey(vid, pid), kind)
}

// Global is the kernel's one real xHCI controller, set up by Init.
var Global *Controller

// Init discovers the xHCI controller via PCI class/subclass/prog-if,
// maps its BAR0, and runs the full bring-up sequence (spec §4.6 steps
// 1-11). It returns false if no controller is present.
func Init() (*Controller, bool) {
	dev, ok := pci.FindByClass(0x0c, 0x03, 0x30)
	if !ok {
		return nil, false
	}
	c := &Controller{dev: dev}
	c.bar0 = mem.Pa_t(dev.BAR(0))
	dev.EnableMemoryAndBusMaster()

	c.cap = newMMIO(c.bar0, 64*1024)
	capLen := uint32(c.cap.r8(capLength))
	c.opBase = capLen
	c.op = newMMIO(c.bar0+mem.Pa_t(capLen), 64*1024-int(capLen))

	hcs1 := c.cap.r32(capHCSPARAMS1)
	hcs2 := c.cap.r32(capHCSPARAMS2)
	c.maxSlots = clampU8(uint8(hcs1), MaxSlots)
	c.maxPorts = clampU8(uint8(hcs1>>24), MaxPorts)
	spbufHi := (hcs2 >> 21) & 0x1f
	spbufLo := (hcs2 >> 27) & 0x1f
	scratchpadCount := int(spbufHi<<5 | spbufLo)

	c.dbBase = c.cap.r32(capDBOFF) &^ 0x3
	c.rtBase = c.cap.r32(capRTSOFF) &^ 0x1f
	c.db = newMMIO(c.bar0+mem.Pa_t(c.dbBase), 4*1024)
	c.rt = newMMIO(c.bar0+mem.Pa_t(c.rtBase), 4*1024)

	c.quirks = hashtable.New[uint32, DeviceKind](16, func(k uint32) uint32 { return k })

	c.bringUp(scratchpadCount)
	Global = c
	return c, true
}

func clampU8(v, max uint8) uint8 {
	if v == 0 || v > max {
		return max
	}
	return v
}

// spinBound is the bounded spin-count used in place of a real timeout
// clock for HCH/CNR/HCRST polling (step 1, 2, 10) — "bounded spin" per
// spec §4.6, not an infinite wait.
const spinBound = 100000

func (c *Controller) bringUp(scratchpadCount int) {
	// 1. Halt.
	c.op.w32(opUSBCMD, c.op.r32(opUSBCMD) &^ cmdRS)
	for i := 0; i < spinBound && c.op.r32(opUSBSTS)&stsHCH == 0; i++ {
	}

	// 2. Reset.
	c.op.w32(opUSBCMD, c.op.r32(opUSBCMD)|cmdHCRST)
	for i := 0; i < spinBound && c.op.r32(opUSBCMD)&cmdHCRST != 0; i++ {
	}
	for i := 0; i < spinBound && c.op.r32(opUSBSTS)&stsCNR != 0; i++ {
	}

	// 3. CONFIG.MaxSlotsEn.
	c.op.w32(opCONFIG, uint32(c.maxSlots))

	// 4. DCBAA.
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("xhci: out of memory allocating DCBAA")
	}
	c.dcbaaPhys = pa
	c.dcbaa = dmapAsU64(pa)
	c.op.w64(opDCBAAP, uint64(pa))

	// 5. Scratchpad buffers.
	if scratchpadCount > 0 {
		arr, ok := mem.Global.Alloc()
		if !ok {
			panic("xhci: out of memory allocating scratchpad array")
		}
		c.scratchpadArray = arr
		entries := dmapAsU64(arr)
		c.scratchpads = make([]mem.Pa_t, scratchpadCount)
		for i := 0; i < scratchpadCount; i++ {
			sp, ok := mem.Global.Alloc()
			if !ok {
				panic("xhci: out of memory allocating scratchpad buffer")
			}
			c.scratchpads[i] = sp
			entries[i] = uint64(sp)
		}
		c.dcbaa[0] = uint64(arr)
	}

	// 6. Command ring.
	c.cmdRing = NewRing()
	c.op.w64(opCRCR, uint64(c.cmdRing.PhysAddr())|crcrCS)

	// 7. Event ring + ERST.
	c.evtRing = NewEventRing()
	erstPa, ok := mem.Global.Alloc()
	if !ok {
		panic("xhci: out of memory allocating ERST")
	}
	c.erst = erstPa
	erst := dmapAsU64(erstPa)
	erst[0] = uint64(c.evtRing.PhysAddr())
	erst[1] = uint64(trbsPerPage)
	c.rt.w32(rtIR0+irERSTSZ, 1)
	c.rt.w64(rtIR0+irERDP, uint64(c.evtRing.DequeuePhysAddr()))
	c.rt.w64(rtIR0+irERSTBA, uint64(erstPa)) // triggers HW to read the ERST

	// 8. MSI.
	vec, ok := msi.Alloc()
	if !ok {
		panic("xhci: no MSI vectors available")
	}
	c.msiVec = vec
	if capOff := c.dev.FindCapability(0x05); capOff != 0 {
		c.dev.Write32(capOff+4, msi.Address())
		c.dev.Write32(capOff+8, msi.Data(vec))
		ctrl := c.dev.Read32(capOff)
		c.dev.Write32(capOff, ctrl|0x00010000) // MSI enable bit
	}

	// 9. Enable interrupter 0.
	c.rt.w32(rtIR0+irIMAN, c.rt.r32(rtIR0+irIMAN)|imanIE)
	c.rt.w32(rtIR0+irIMOD, 0)

	// 10. Start.
	c.op.w32(opUSBCMD, c.op.r32(opUSBCMD)|cmdRS|cmdINTE|cmdHSEE)
	for i := 0; i < spinBound && c.op.r32(opUSBSTS)&stsHCH != 0; i++ {
	}

	// 11. Power on all ports.
	for p := uint8(0); p < c.maxPorts; p++ {
		off := uint32(opPORTSC0) + uint32(p)*0x10
		c.op.w32(off, c.op.r32(off)|portscPP)
	}
	// The ≈20 ms settle and the initial connect-status scan are driven
	// by the caller (cmd/kernel) after boot schedules its first tick;
	// ScanPorts performs the scan itself.
}

func portscOffset(port uint8) uint32 { return uint32(opPORTSC0) + uint32(port)*0x10 }

func dmapAsU64(pa mem.Pa_t) []uint64 {
	pg := mem.Dmap(pa)
	return (*pg)[:]
}

// ScanPorts performs the initial (post-bring-up) connect-status scan
// of spec §4.6 step 11, enumerating any already-connected device on
// each port. Call once after the ≈20 ms power-on settle.
func (c *Controller) ScanPorts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for p := uint8(0); p < c.maxPorts; p++ {
		v := c.op.r32(portscOffset(p))
		if v&portscCCS != 0 {
			speed := portscSpeed(v)
			c.enumerate(p, speed)
		}
	}
	c.portScanned = true
}

// ringDoorbell rings doorbell n (0 = command ring, slot id = device).
func (c *Controller) ringDoorbell(n uint32, target uint32) {
	c.db.w32(doorbellOffset(n), target)
}

// submitCommand enqueues a TRB on the command ring, rings doorbell 0,
// and polls the event ring for the matching Command Completion event
// (spec §4.6 "Command submission"). Bounded by spinBound iterations.
// trbType is a plain TRB type constant with no extra control bits; use
// submitCommandRaw when a command needs bits beyond type (e.g. BSR).
func (c *Controller) submitCommand(param uint64, status uint32, trbType uint32) (code uint8, slotID uint8, ok bool) {
	c.cmdRing.Enqueue(param, status, trbType)
	c.ringDoorbell(0, 0)
	return c.pollCommandCompletion()
}

// submitCommandRaw is submitCommand for a command whose control word
// needs bits beyond the bare TRB type (the Address Device command's
// BSR bit, bit 9).
func (c *Controller) submitCommandRaw(param uint64, status uint32, ctrl uint32) (code uint8, slotID uint8, ok bool) {
	c.cmdRing.EnqueueRaw(param, status, ctrl)
	c.ringDoorbell(0, 0)
	return c.pollCommandCompletion()
}

func (c *Controller) pollCommandCompletion() (code uint8, slotID uint8, ok bool) {
	for i := 0; i < spinBound; i++ {
		t, has := c.evtRing.Poll()
		if !has {
			continue
		}
		switch trbType(t.Ctrl) {
		case TRBCommandCompletion:
			completionEHB(c)
			return uint8(t.Status >> 24), uint8(t.Ctrl >> 24), true
		case TRBPortStatusChange:
			c.onPortStatusChange(t)
		case TRBTransferEvent:
			c.onTransferEvent(t)
		}
	}
	return 0, 0, false
}

func completionEHB(c *Controller) {
	c.rt.w64(rtIR0+irERDP, uint64(c.evtRing.DequeuePhysAddr())|erdpEHB)
}

// onPortStatusChange records a pending port for deferred hot-plug
// work (spec §4.6 "Hot-plug") unless the initial scan is still
// running, in which case the caller handles it inline.
func (c *Controller) onPortStatusChange(t TRB) {
	port := uint8((t.Param>>24)&0xff) - 1
	if int(port) >= MaxPorts {
		return
	}
	// Clear PRC/CSC (write-1-to-clear) so the port stops signalling.
	off := portscOffset(port)
	c.op.w32(off, c.op.r32(off)|portscPRC|portscCSC)
	if c.portScanned {
		c.portPending[port] = true
	}
}

// onTransferEvent dispatches a completed transfer. DCI=1 (EP0) events
// are not acted on here; any other DCI is an interrupt-IN report,
// forwarded to the slot's HID handler and immediately re-queued.
func (c *Controller) onTransferEvent(t TRB) {
	slotID := uint8(t.Ctrl >> 24)
	dci := uint8((t.Ctrl >> 16) & 0x1f)
	if int(slotID) >= len(c.slots) {
		return
	}
	s := &c.slots[slotID]
	if !s.Active {
		return
	}
	if dci == 1 {
		return // EP0 completions are consumed by the control-transfer poller
	}
	if s.IntrRing == nil || s.IntrBuf == 0 {
		return
	}
	dispatchReport(s, mem.DmapBytes(s.IntrBuf, int(s.MaxPacket)))
	s.IntrRing.Enqueue(uint64(s.IntrBuf), uint32(s.MaxPacket), TRBNormal)
	c.ringDoorbell(uint32(slotID), uint32(dci))
}
