package xhci

import "zenithos/mem"

// Input/device/slot/endpoint context layout, xHCI 1.x §6.2: a 32-byte
// Input Control Context, a 32-byte Slot Context, then up to 31
// 32-byte Endpoint Contexts (DCI 1..31), all in one contiguous page —
// exactly the "Build input context" shape of spec §4.6 step 3.
const (
	icDropFlags = 0x00
	icAddFlags  = 0x04
	slotCtxOff  = 0x20
)

func epCtxOff(dci uint8) uint32 { return 0x20 * (1 + uint32(dci)) }

// EP types (xHCI EP Type field, endpoint context dword1 bits 3:5).
const (
	epTypeControl    = 4
	epTypeInterruptIn = 7
)

func newContextPage() (mem.Pa_t, []byte) {
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("xhci: out of memory allocating context page")
	}
	return pa, mem.DmapBytes(pa, mem.PGSIZE)
}

func putSlotContext(buf []byte, speed uint8, rootPort uint8, contextEntries uint8) {
	off := slotCtxOff
	w0 := uint32(contextEntries)<<27 | uint32(speed)<<20
	w1 := uint32(rootPort) << 16
	putLE32(buf, off, w0)
	putLE32(buf, off+4, w1)
}

func putEndpointContext(buf []byte, dci uint8, epType uint8, maxPacket uint16, cerr uint8, ring *Ring) {
	off := epCtxOff(dci)
	w1 := uint32(cerr&0x3)<<1 | uint32(epType&0x7)<<3 | uint32(maxPacket)<<16
	putLE32(buf, off+4, w1)
	trDeq := uint64(ring.PhysAddr())
	dcs := uint64(0)
	if ring.CCS() {
		dcs = 1
	}
	putLE64(buf, off+8, trDeq|dcs)
}

func putLE32(buf []byte, off uint32, v uint32) {
	buf[off] = byte(v)
	buf[off+1] = byte(v >> 8)
	buf[off+2] = byte(v >> 16)
	buf[off+3] = byte(v >> 24)
}

func putLE64(buf []byte, off uint32, v uint64) {
	putLE32(buf, off, uint32(v))
	putLE32(buf, off+4, uint32(v>>32))
}

// speedHeuristic returns the default max-packet-size guess for EP0
// before the real value is read from the device descriptor (spec
// §4.6 step 3/4b): Low/Full speed devices use 8, High speed 64,
// Super speed 512.
func speedHeuristic(speed uint8) uint16 {
	switch speed {
	case 1, 2: // Full, Low speed
		return 8
	case 3: // High speed
		return 64
	default: // Super speed and up
		return 512
	}
}

// intervalFromBInterval computes the endpoint context Interval field
// for an interrupt-IN endpoint (spec §4.6 step 9): HS/SS speeds use
// bInterval directly (already a log2 of 125us units minus one
// convention the device reports in practice is taken as-is here since
// this driver does not need microsecond-accurate polling); FS/LS
// convert a frame-based bInterval into the equivalent 125us-unit
// exponent.
func intervalFromBInterval(speed uint8, bInterval uint8) uint8 {
	if speed == 3 || speed >= 4 { // High speed or Super speed+
		return bInterval
	}
	microframes := uint32(bInterval) * 8
	return log2Floor(microframes)
}

func log2Floor(v uint32) uint8 {
	var n uint8
	for v > 1 {
		v >>= 1
		n++
	}
	return n
}
