// Package vfs implements the thin collaborator VFS of spec §4.8: a
// read-only root unpacked from an embedded ramdisk image plus a
// limited writable region for files created at runtime. Paths are
// drive-qualified ("0:/...") per zenithos/ustr.IsAbsolute.
//
// biscuit/src/fs/super.go and fs/blk.go implement a full journaling
// filesystem (write-ahead log, orphan-inode list, inode and free-block
// bitmaps, a block cache with eviction) built around Bdev_block_t and
// Superblock_t's fieldr/fieldw-style accessors. Spec §4.8 asks for
// something much thinner — open/read/write/getsize/close/readdir/
// create over an in-memory image — so none of that machinery is
// ported; this package keeps only the accessor-method naming
// convention and the fixed-slot-table idiom already used by
// proc.Table_t, tcp.Table_t, and winserver.Table_t for its own open-
// file handle table.
package vfs

import (
	"encoding/binary"
	"sync"

	"zenithos/defs"
	"zenithos/ustr"
)

// nameFieldLen is the fixed width of an image entry's name field, and
// entryRecordSize the fixed width of one directory-entry record:
// 1 (name length) + nameFieldLen (name bytes) + 4 (data offset) + 4
// (data size).
const (
	nameFieldLen    = 55
	entryRecordSize = 1 + nameFieldLen + 4 + 4
	headerSize      = 4 + 4 + 4 // magic + version + count

	// ImageMagic identifies a ZenithOS ramdisk image; ImageVersion is
	// bumped if the on-disk layout ever changes.
	ImageMagic   = "ZVF1"
	ImageVersion = 1
)

// entry_t is one file known to the filesystem, either unpacked
// read-only from the embedded image or created at runtime in the
// writable region.
type entry_t struct {
	name     ustr.Ustr
	data     []byte
	writable bool
}

// openFile_t is one slot in the handle table.
type openFile_t struct {
	used bool
	e    *entry_t
}

// FS_t is the filesystem: the read-only entries unpacked from the
// boot image, any writable entries created at runtime, and the fixed
// table of open handles.
type FS_t struct {
	mu             sync.Mutex
	entries        []*entry_t
	handles        []openFile_t
	writableUsed   int
	writableBudget int
}

// Global is the kernel-wide filesystem instance.
var Global FS_t

// Init unpacks image (see EncodeImage) into the read-only entry set,
// sizes the handle table to maxHandles, and caps the writable region
// at writableBudget bytes total across every created file.
func (f *FS_t) Init(image []byte, maxHandles, writableBudget int) defs.Err_t {
	entries, ok := decodeImage(image)
	if !ok {
		return -defs.EINVAL
	}
	f.entries = entries
	f.handles = make([]openFile_t, maxHandles)
	f.writableBudget = writableBudget
	f.writableUsed = 0
	return 0
}

// stripDrive removes the "0:/" drive qualifier, returning the
// remainder (e.g. "0:/bin/ls" -> "bin/ls"). Returns false if path
// isn't drive-qualified.
func stripDrive(path ustr.Ustr) (ustr.Ustr, bool) {
	if !path.IsAbsolute() {
		return nil, false
	}
	for i, c := range path {
		if c == ':' {
			return path[i+2:], true
		}
	}
	return nil, false
}

func (f *FS_t) find(rel ustr.Ustr) (*entry_t, bool) {
	for _, e := range f.entries {
		if e.name.Eq(rel) {
			return e, true
		}
	}
	return nil, false
}

func (f *FS_t) allocHandle(e *entry_t) (int, defs.Err_t) {
	for i := range f.handles {
		if !f.handles[i].used {
			f.handles[i] = openFile_t{used: true, e: e}
			return i, 0
		}
	}
	return -1, -defs.ENOMEM
}

func (f *FS_t) at(handle int) (*entry_t, defs.Err_t) {
	if handle < 0 || handle >= len(f.handles) || !f.handles[handle].used {
		return nil, -defs.EBADF
	}
	return f.handles[handle].e, 0
}

// Open resolves path to an existing entry and returns a fresh handle.
func (f *FS_t) Open(path ustr.Ustr) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := stripDrive(path)
	if !ok {
		return -1, -defs.EINVAL
	}
	e, ok := f.find(rel)
	if !ok {
		return -1, -defs.ENOENT
	}
	return f.allocHandle(e)
}

// Create makes a new, empty, writable entry at path and returns
// success; it does not open it (callers follow with Open, matching
// the syscall table's separate open(6)/fcreate(42)-equivalent split in
// spec §6.1, where create precedes a subsequent open).
func (f *FS_t) Create(path ustr.Ustr) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := stripDrive(path)
	if !ok {
		return -defs.EINVAL
	}
	if _, exists := f.find(rel); exists {
		return -defs.EEXIST
	}
	f.entries = append(f.entries, &entry_t{
		name:     append(ustr.Ustr{}, rel...),
		writable: true,
	})
	return 0
}

// GetSize returns the current byte length of the file behind handle.
func (f *FS_t) GetSize(handle int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := f.at(handle)
	if err != 0 {
		return 0, err
	}
	return len(e.data), 0
}

// Close releases handle.
func (f *FS_t) Close(handle int) defs.Err_t {
	f.mu.Lock()
	defer f.mu.Unlock()
	if handle < 0 || handle >= len(f.handles) || !f.handles[handle].used {
		return -defs.EBADF
	}
	f.handles[handle] = openFile_t{}
	return 0
}

// Read copies up to size bytes starting at offset into dst, returning
// the number of bytes actually copied (0 at or past end-of-file).
func (f *FS_t) Read(handle int, dst []byte, offset, size int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := f.at(handle)
	if err != 0 {
		return 0, err
	}
	if offset < 0 || size < 0 {
		return 0, -defs.EINVAL
	}
	if offset >= len(e.data) {
		return 0, 0
	}
	end := offset + size
	if end > len(e.data) {
		end = len(e.data)
	}
	n := copy(dst, e.data[offset:end])
	return n, 0
}

// Write copies up to size bytes from src into the file behind handle
// at offset, growing it as needed, and fails with ENOSPC if doing so
// would exceed the filesystem's writable budget. Read-only (image)
// entries reject every write with EPERM.
func (f *FS_t) Write(handle int, src []byte, offset, size int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, err := f.at(handle)
	if err != 0 {
		return 0, err
	}
	if !e.writable {
		return 0, -defs.EPERM
	}
	if offset < 0 || size < 0 {
		return 0, -defs.EINVAL
	}
	if size > len(src) {
		size = len(src)
	}
	need := offset + size
	grow := need - len(e.data)
	if grow > 0 && f.writableUsed+grow > f.writableBudget {
		return 0, -defs.ENOSPC
	}
	if need > len(e.data) {
		grown := make([]byte, need)
		copy(grown, e.data)
		e.data = grown
		f.writableUsed += grow
	}
	n := copy(e.data[offset:need], src[:size])
	return n, 0
}

// Readdir lists the immediate children of the directory named by
// path (itself drive-qualified, e.g. "0:/" or "0:/bin/"), derived from
// the flat set of file paths rather than any real directory entries,
// and writes up to max names into names, returning the count or a
// negative Err_t.
func (f *FS_t) Readdir(path ustr.Ustr, names []ustr.Ustr, max int) (int, defs.Err_t) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rel, ok := stripDrive(path)
	if !ok {
		return -1, -defs.EINVAL
	}
	prefix := string(rel)
	if len(prefix) > 0 && prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	seen := make(map[string]bool)
	count := 0
	for _, e := range f.entries {
		full := e.name.String()
		if len(full) <= len(prefix) || full[:len(prefix)] != prefix {
			continue
		}
		rest := full[len(prefix):]
		seg := rest
		for i := 0; i < len(rest); i++ {
			if rest[i] == '/' {
				seg = rest[:i]
				break
			}
		}
		if seg == "" || seen[seg] {
			continue
		}
		seen[seg] = true
		if count < max && count < len(names) {
			names[count] = ustr.Ustr(seg)
		}
		count++
	}
	return count, 0
}

// EncodeImage serializes a set of (name, data) pairs into the flat
// ramdisk image format Init decodes, for use by cmd/mkfs.
func EncodeImage(files map[string][]byte) []byte {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	var total int
	for _, n := range names {
		total += len(files[n])
	}
	buf := make([]byte, headerSize+len(names)*entryRecordSize+total)
	copy(buf[0:4], ImageMagic)
	binary.LittleEndian.PutUint32(buf[4:8], ImageVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(names)))

	recOff := headerSize
	dataOff := headerSize + len(names)*entryRecordSize
	for _, n := range names {
		data := files[n]
		nb := []byte(n)
		if len(nb) > nameFieldLen {
			nb = nb[:nameFieldLen]
		}
		rec := buf[recOff : recOff+entryRecordSize]
		rec[0] = byte(len(nb))
		copy(rec[1:1+nameFieldLen], nb)
		binary.LittleEndian.PutUint32(rec[1+nameFieldLen:5+nameFieldLen], uint32(dataOff))
		binary.LittleEndian.PutUint32(rec[5+nameFieldLen:9+nameFieldLen], uint32(len(data)))
		copy(buf[dataOff:dataOff+len(data)], data)
		dataOff += len(data)
		recOff += entryRecordSize
	}
	return buf
}

func decodeImage(img []byte) ([]*entry_t, bool) {
	if len(img) < headerSize || string(img[0:4]) != ImageMagic {
		return nil, false
	}
	version := binary.LittleEndian.Uint32(img[4:8])
	if version != ImageVersion {
		return nil, false
	}
	count := int(binary.LittleEndian.Uint32(img[8:12]))
	recOff := headerSize
	entries := make([]*entry_t, 0, count)
	for i := 0; i < count; i++ {
		if recOff+entryRecordSize > len(img) {
			return nil, false
		}
		rec := img[recOff : recOff+entryRecordSize]
		nameLen := int(rec[0])
		if nameLen > nameFieldLen {
			return nil, false
		}
		name := append(ustr.Ustr{}, rec[1:1+nameLen]...)
		off := binary.LittleEndian.Uint32(rec[1+nameFieldLen : 5+nameFieldLen])
		size := binary.LittleEndian.Uint32(rec[5+nameFieldLen : 9+nameFieldLen])
		if int(off+size) > len(img) {
			return nil, false
		}
		entries = append(entries, &entry_t{
			name: name,
			data: img[off : off+size],
		})
		recOff += entryRecordSize
	}
	return entries, true
}
