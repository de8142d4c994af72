package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
	"unsafe"

	"zenithos/mem"
	"zenithos/vm"
)

// buildMiniELF constructs the smallest valid ET_EXEC/EM_X86_64/64-bit
// little-endian ELF with one PT_LOAD segment whose p_filesz is smaller
// than its p_memsz, so the BSS-clipping path in loadSegment is
// exercised alongside the data-copy path.
func buildMiniELF(entry uint64, vaddr uint64, fileData []byte, memsz uint64) []byte {
	const ehsize = 64
	const phsize = 56

	fileOff := uint64(ehsize + phsize)
	var buf bytes.Buffer

	// e_ident
	buf.Write([]byte{0x7f, 'E', 'L', 'F', 2 /* ELFCLASS64 */, 1, /* ELFDATA2LSB */
		1, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	write16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }
	write32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	write64 := func(v uint64) { binary.Write(&buf, binary.LittleEndian, v) }

	write16(uint16(elf.ET_EXEC))
	write16(uint16(elf.EM_X86_64))
	write32(1) // e_version
	write64(entry)
	write64(ehsize) // e_phoff
	write64(0)      // e_shoff
	write32(0)      // e_flags
	write16(ehsize) // e_ehsize
	write16(phsize) // e_phentsize
	write16(1)      // e_phnum
	write16(0)      // e_shentsize
	write16(0)      // e_shnum
	write16(0)      // e_shstrndx

	// program header: PT_LOAD
	write32(uint32(elf.PT_LOAD))
	write32(uint32(elf.PF_R | elf.PF_W | elf.PF_X))
	write64(fileOff)
	write64(vaddr)
	write64(vaddr)
	write64(uint64(len(fileData)))
	write64(memsz)
	write64(uint64(mem.PGSIZE))

	buf.Write(fileData)
	return buf.Bytes()
}

// newTestAS stands up mem's direct map over a real Go-allocated backing
// array (rather than physical memory, which doesn't exist in a test
// binary) so Dmap/DmapBytes resolve to addressable memory, then builds
// a fresh user address space on top of it, exactly as cmd/kernel would
// after Physmem_t.Init runs against the bootloader's memory map.
func newTestAS() *vm.AS_t {
	const frames = 64
	backing := make([]byte, frames*mem.PGSIZE)
	mem.Global.Init(0, frames, uintptr(unsafe.Pointer(&backing[0])))
	kernelPml4, _ := mem.Global.Alloc()
	return vm.CreateUserPML4(kernelPml4)
}

func TestLoadBytesMapsSegmentAndReturnsEntry(t *testing.T) {
	as := newTestAS()
	vaddr := uint64(0x400000)
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	img := buildMiniELF(vaddr+0x10, vaddr, data, 0x2000) // memsz spans 2 pages, BSS beyond filesz

	entry := LoadBytes(img, as)
	if entry != uintptr(vaddr+0x10) {
		t.Fatalf("expected entry 0x%x, got 0x%x", vaddr+0x10, entry)
	}

	pa, ok := as.Translate(uintptr(vaddr))
	if !ok {
		t.Fatalf("expected vaddr to be mapped")
	}
	got := mem.DmapBytes(pa&^mem.Pa_t(mem.PGOFFSET), mem.PGSIZE)
	if !bytes.Equal(got[:len(data)], data) {
		t.Fatalf("expected segment data at start of page, got %v", got[:len(data)])
	}

	// Second page (pure BSS within memsz but beyond filesz) must be mapped
	// and zeroed.
	pa2, ok := as.Translate(uintptr(vaddr) + uintptr(mem.PGSIZE))
	if !ok {
		t.Fatalf("expected the BSS page to be mapped too")
	}
	bss := mem.DmapBytes(pa2&^mem.Pa_t(mem.PGOFFSET), mem.PGSIZE)
	for i, b := range bss {
		if b != 0 {
			t.Fatalf("expected BSS page to be zeroed, byte %d = %d", i, b)
		}
	}
}

func TestLoadBytesRejectsBadMagic(t *testing.T) {
	as := newTestAS()
	bad := []byte("not an elf at all, padding to be long enough for a header check")
	if entry := LoadBytes(bad, as); entry != 0 {
		t.Fatalf("expected 0 for a malformed image, got 0x%x", entry)
	}
}

func TestLoadBytesRejectsNon64BitClass(t *testing.T) {
	as := newTestAS()
	img := buildMiniELF(0x401000, 0x400000, []byte{1, 2, 3}, 0x1000)
	img[4] = 1 // ELFCLASS32
	if entry := LoadBytes(img, as); entry != 0 {
		t.Fatalf("expected 0 for a non-64-bit class, got 0x%x", entry)
	}
}
