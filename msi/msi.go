// Package msi manages the pool of Message-Signalled Interrupt vectors
// available to PCI devices and builds the MSI address/data pair xHCI's
// bring-up step 8 writes into the controller's MSI capability. Adapted
// directly from biscuit/src/msi/msi.go, whose fixed vector pool and
// alloc/free shape carries over unchanged; this version adds the
// address/data encoding biscuit's single-device (AHCI) use never
// needed, since xHCI configuration (§4.6 step 8) must actually compute
// those fields itself.
package msi

import "sync"

// Vec_t is an allocated MSI interrupt vector number.
type Vec_t uint

type pool_t struct {
	sync.Mutex
	avail map[Vec_t]bool
}

var vecs = pool_t{
	avail: map[Vec_t]bool{56: true, 57: true, 58: true, 59: true, 60: true,
		61: true, 62: true, 63: true},
}

// Alloc reserves an available MSI vector, or false if the pool is
// exhausted.
func Alloc() (Vec_t, bool) {
	vecs.Lock()
	defer vecs.Unlock()
	for v := range vecs.avail {
		delete(vecs.avail, v)
		return v, true
	}
	return 0, false
}

// Free releases a previously allocated vector back to the pool.
func Free(v Vec_t) {
	vecs.Lock()
	defer vecs.Unlock()
	if vecs.avail[v] {
		panic("msi: double free")
	}
	vecs.avail[v] = true
}

// localAPICBase is the fixed physical base of the local APIC's MMIO
// region in the memory map ZenithOS boots with.
const localAPICBase = 0xfee00000

// Address returns the 32-bit MSI address field for delivering the
// interrupt to the bootstrap processor with fixed delivery mode and
// physical destination, per §4.6 step 8.
func Address() uint32 {
	return localAPICBase
}

// Data returns the 32-bit MSI data field selecting the given vector
// with edge-triggered, fixed-delivery semantics.
func Data(v Vec_t) uint32 {
	return uint32(v)
}
