package xhci

import "zenithos/mem"

// mmio is a little-endian register window over a physical range,
// viewed through the direct map the same way every other DMA-visible
// structure in this kernel is (mem.DmapBytes) — there is no separate
// "uncacheable MMIO mapping" step in this single-core build since the
// HHDM already covers the whole physical address space the bootloader
// hands the kernel; see DESIGN.md for the documented simplification.
type mmio struct {
	b []byte
}

func newMMIO(pa mem.Pa_t, size int) mmio {
	return mmio{b: mem.DmapBytes(pa, size)}
}

func (m mmio) r8(off uint32) uint8 { return m.b[off] }

func (m mmio) r32(off uint32) uint32 {
	b := m.b[off : off+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func (m mmio) w32(off uint32, v uint32) {
	b := m.b[off : off+4]
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func (m mmio) r64(off uint32) uint64 {
	return uint64(m.r32(off)) | uint64(m.r32(off+4))<<32
}

func (m mmio) w64(off uint32, v uint64) {
	m.w32(off, uint32(v))
	m.w32(off+4, uint32(v>>32))
}

// Capability register offsets (fixed, relative to BAR0).
const (
	capLength   = 0x00 // byte 0: CAPLENGTH
	capHCSPARAMS1 = 0x04
	capHCSPARAMS2 = 0x08
	capDBOFF    = 0x14
	capRTSOFF   = 0x18
)

// Operational register offsets (relative to capLength).
const (
	opUSBCMD  = 0x00
	opUSBSTS  = 0x04
	opCONFIG  = 0x38
	opDCBAAP  = 0x30
	opCRCR    = 0x18
	opPORTSC0 = 0x400 // PORTSC for port n is opPORTSC0 + n*0x10
)

// USBCMD bits.
const (
	cmdRS    = 1 << 0
	cmdHCRST = 1 << 1
	cmdINTE  = 1 << 2
	cmdHSEE  = 1 << 3
)

// USBSTS bits.
const (
	stsHCH = 1 << 0
	stsCNR = 1 << 11
)

// CRCR bits.
const crcrCS uint64 = 1 << 0 // cycle state, bit 0 of CRCR low dword

// PORTSC bits.
const (
	portscCCS = 1 << 0 // current connect status
	portscPED = 1 << 1 // port enabled/disabled
	portscPR  = 1 << 4 // port reset
	portscPP  = 1 << 9 // port power
	portscPRC = 1 << 21
	portscCSC = 1 << 17
)

func portscSpeed(v uint32) uint8 { return uint8((v >> 10) & 0xf) }

// Runtime register offsets (relative to RTSOFF).
const (
	rtIR0         = 0x20 // interrupter register set 0
	irIMAN        = 0x00
	irIMOD        = 0x04
	irERSTSZ      = 0x08
	irERSTBA      = 0x10
	irERDP        = 0x18
)

const imanIE = 1 << 1
const erdpEHB = 1 << 3

// Doorbell array: doorbell n is at DBOFF + n*4.
func doorbellOffset(slot uint32) uint32 { return slot * 4 }
