// VFS-backed syscalls: open/read/getsize/close/readdir/write/create.
package sysapi

import (
	"zenithos/ustr"
	"zenithos/vfs"
)

func sysOpen(pid int, a Args) int64 {
	p := curProc(pid)
	path, err := userCString(p, a.A0, 256)
	if err != 0 {
		return int64(err)
	}
	h, err := vfs.Global.Open(ustr.Ustr(path))
	if err != 0 {
		return int64(err)
	}
	return int64(h)
}

func sysRead(pid int, a Args) int64 {
	p := curProc(pid)
	handle, offset, size := int(a.A0), int(a.A2), int(a.A3)
	buf := make([]byte, size)
	n, err := vfs.Global.Read(handle, buf, offset, size)
	if err != 0 {
		return int64(err)
	}
	if err := userPut(p, a.A1, buf[:n]); err != 0 {
		return int64(err)
	}
	return int64(n)
}

func sysGetsize(pid int, a Args) int64 {
	size, err := vfs.Global.GetSize(int(a.A0))
	if err != 0 {
		return int64(err)
	}
	return int64(size)
}

func sysClose(pid int, a Args) int64 {
	return int64(vfs.Global.Close(int(a.A0)))
}

func sysReaddir(pid int, a Args) int64 {
	p := curProc(pid)
	path, err := userCString(p, a.A0, 256)
	if err != 0 {
		return int64(err)
	}
	max := int(a.A2)
	names := make([]ustr.Ustr, max)
	count, err := vfs.Global.Readdir(ustr.Ustr(path), names, max)
	if err != 0 {
		return int64(err)
	}
	// Pack as NUL-terminated strings back to back, matching get_args'
	// wire format, into the caller's *names buffer.
	var packed []byte
	for i := 0; i < count && i < max; i++ {
		packed = append(packed, []byte(names[i])...)
		packed = append(packed, 0)
	}
	if err := userPut(p, a.A1, packed); err != 0 {
		return int64(err)
	}
	return int64(count)
}

func sysFcreate(pid int, a Args) int64 {
	p := curProc(pid)
	path, err := userCString(p, a.A0, 256)
	if err != 0 {
		return int64(err)
	}
	return int64(vfs.Global.Create(ustr.Ustr(path)))
}

func sysFwrite(pid int, a Args) int64 {
	p := curProc(pid)
	handle, offset, size := int(a.A0), int(a.A2), int(a.A3)
	src, err := userBytes(p, a.A1, size)
	if err != 0 {
		return int64(err)
	}
	n, err := vfs.Global.Write(handle, src, offset, size)
	if err != 0 {
		return int64(err)
	}
	return int64(n)
}
