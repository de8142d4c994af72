// Package elf implements the ELF program loader of spec §4.8: read a
// binary out of the VFS, validate its header, and map its PT_LOAD
// segments into a fresh user address space.
//
// chentry.go (kept near-verbatim as cmd/chentry) already shows this
// codebase's idiom for ELF header validation with the standard
// library's debug/elf — same magic/endianness/type/machine checks
// (this package adds an ELFCLASS64 check chentry does not make), same
// "log.Fatal on anything unexpected" posture translated
// here into a returned defs.Err_t since this runs in kernel context,
// not a host build tool.
package elf

import (
	"bytes"
	"debug/elf"

	"zenithos/defs"
	"zenithos/mem"
	"zenithos/ustr"
	"zenithos/vfs"
	"zenithos/vm"
)

// readWholeFile reads path in full via the VFS into a kernel heap
// buffer, per spec §4.8 ("reads the whole file into a kernel heap
// buffer").
func readWholeFile(path ustr.Ustr) ([]byte, defs.Err_t) {
	h, err := vfs.Global.Open(path)
	if err != 0 {
		return nil, err
	}
	defer vfs.Global.Close(h)

	size, err := vfs.Global.GetSize(h)
	if err != 0 {
		return nil, err
	}
	buf := make([]byte, size)
	n, err := vfs.Global.Read(h, buf, 0, size)
	if err != 0 {
		return nil, err
	}
	return buf[:n], 0
}

// chkHeader validates magic, ELFCLASS64, little-endian, ET_EXEC, and
// EM_X86_64, mirroring chentry.go's chkELF but returning rather than
// exiting the process.
func chkHeader(fh *elf.FileHeader, raw []byte) bool {
	if len(raw) < 20 || raw[0] != 0x7f || string(raw[1:4]) != "ELF" {
		return false
	}
	if fh.Class != elf.ELFCLASS64 {
		return false
	}
	if fh.Data != elf.ELFDATA2LSB {
		return false
	}
	if fh.Type != elf.ET_EXEC {
		return false
	}
	if fh.Machine != elf.EM_X86_64 {
		return false
	}
	return true
}

// Load opens path on the VFS, validates it as a ZenithOS-compatible
// ELF binary, maps every PT_LOAD segment into as with zeroed,
// user-accessible pages, and returns the entry point, or 0 on any
// failure (bad header, VFS error, out of memory).
func Load(path ustr.Ustr, as *vm.AS_t) uintptr {
	raw, err := readWholeFile(path)
	if err != 0 {
		return 0
	}
	return LoadBytes(raw, as)
}

// LoadBytes is Load's core, taking an already-read ELF image; split
// out so tests can exercise it without a VFS instance.
func LoadBytes(raw []byte, as *vm.AS_t) uintptr {
	ef, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return 0
	}
	if !chkHeader(&ef.FileHeader, raw) {
		return 0
	}

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if !loadSegment(raw, prog, as) {
			return 0
		}
	}
	return uintptr(ef.Entry)
}

// loadSegment maps one PT_LOAD program header: round its virtual
// range to page boundaries, allocate and map a zeroed page for each,
// and copy p_filesz bytes from the file into the appropriate offset
// of each page, clipping at both page and segment boundaries exactly
// as spec §4.8 describes.
func loadSegment(raw []byte, prog *elf.Prog, as *vm.AS_t) bool {
	pgsize := uintptr(mem.PGSIZE)
	vaddr := uintptr(prog.Vaddr)
	start := vaddr &^ (pgsize - 1)
	end := (vaddr + uintptr(prog.Memsz) + pgsize - 1) &^ (pgsize - 1)

	fileOff := int64(prog.Off)
	fileSize := int64(prog.Filesz)
	if fileOff < 0 || fileSize < 0 || fileOff+fileSize > int64(len(raw)) {
		return false
	}

	for va := start; va < end; va += pgsize {
		pa, ok := mem.Global.Alloc()
		if !ok {
			return false
		}
		as.MapUser(va, pa, mem.PTE_W)

		// Offset of this page within the segment's virtual range, and
		// the corresponding byte range to copy from the file, clipped
		// to both the page and the segment's on-disk extent.
		segOff := int64(va) - int64(vaddr)
		if segOff < 0 {
			segOff = 0
		}
		if segOff >= fileSize {
			continue // this page is pure BSS (already zeroed by Alloc)
		}
		n := fileSize - segOff
		if n > int64(pgsize) {
			n = int64(pgsize)
		}
		// Further clip for the first page, where the segment may not
		// start at the page boundary.
		pageStart := int64(vaddr) - int64(va)
		if pageStart < 0 {
			pageStart = 0
		}
		if n > int64(pgsize)-pageStart {
			n = int64(pgsize) - pageStart
		}

		dst := mem.DmapBytes(pa, mem.PGSIZE)
		copy(dst[pageStart:pageStart+n], raw[fileOff+segOff:fileOff+segOff+n])
	}
	return true
}
