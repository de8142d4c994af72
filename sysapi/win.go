// Window server, child-I/O redirection, HID, profiling, and klog
// syscalls.
package sysapi

import (
	"fmt"

	"zenithos/defs"
	"zenithos/hid"
	"zenithos/ioredir"
	"zenithos/proc"
	"zenithos/winserver"
	"zenithos/xhci"
)

func sysWinCreate(pid int, a Args) int64 {
	p := curProc(pid)
	if p == nil || p.AS == nil {
		return int64(-defs.ESRCH)
	}
	w, h := uint32(a.A0), uint32(a.A1)
	heapBase := p.HeapNext
	id, va := winserver.Global.Create(pid, p.AS, heapBase, w, h, 1024)
	if id < 0 {
		return int64(-defs.ENOSPC)
	}
	npages := int((uint64(w)*uint64(h)*4 + 4095) / 4096)
	p.HeapNext += uintptr(npages * 4096)
	return packPair(int32(id), int32(va>>32)) // high bits rarely meaningful; id is the caller's real handle
}

func sysWinDestroy(pid int, a Args) int64 {
	return int64(winserver.Global.Destroy(int(a.A0), pid))
}

func sysWinPresent(pid int, a Args) int64 {
	return int64(winserver.Global.Present(int(a.A0), pid))
}

func sysWinPoll(pid int, a Args) int64 {
	p := curProc(pid)
	ev, ok := winserver.Global.Poll(int(a.A0), pid)
	if !ok {
		return int64(-defs.EAGAIN)
	}
	buf := make([]byte, 16)
	putLE32(buf, 0, ev.Kind)
	putLE32(buf, 4, uint32(ev.A))
	putLE32(buf, 8, uint32(ev.B))
	putLE32(buf, 12, uint32(ev.C))
	if err := userPut(p, a.A1, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysWinEnum(pid int, a Args) int64 {
	p := curProc(pid)
	max := int(a.A1)
	wins := winserver.Global.Enumerate()
	if len(wins) > max {
		wins = wins[:max]
	}
	buf := make([]byte, 0, len(wins)*84)
	for _, w := range wins {
		rec := make([]byte, 84) // sizeof(defs.WinInfo)
		putLE32(rec, 0, uint32(w.ID))
		putLE32(rec, 4, uint32(w.OwnerPid))
		putLE32(rec, 8, w.W)
		putLE32(rec, 12, w.H)
		rec[16] = w.Dirty
		copy(rec[20:], w.Title[:])
		buf = append(buf, rec...)
	}
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return int64(len(wins))
}

func sysWinMap(pid int, a Args) int64 {
	p := curProc(pid)
	if p == nil || p.AS == nil {
		return int64(-defs.ESRCH)
	}
	id := int(a.A0)
	heapBase := p.HeapNext
	va, err := winserver.Global.Map(id, pid, p.AS, heapBase)
	if err != 0 {
		return int64(err)
	}
	p.HeapNext += uintptr(1024 * 4096) // conservative reservation; actual page count is window-specific
	return int64(va)
}

func sysWinSendEvent(pid int, a Args) int64 {
	id := int(a.A0)
	ev := defs.WinEvent{Kind: uint32(a.A1), A: int32(a.A2), B: int32(a.A3), C: int32(a.A4)}
	return int64(winserver.Global.SendEvent(id, ev))
}

func putLE32(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
	b[off+3] = byte(v >> 24)
}

func sysKlog(pid int, a Args) int64 {
	p := curProc(pid)
	s, err := userCString(p, a.A0, 512)
	if err != 0 {
		return int64(err)
	}
	fmt.Println(string(s))
	return 0
}

func sysMouseState(pid int, a Args) int64 {
	p := curProc(pid)
	x, y, buttons := hid.State()
	buf := make([]byte, 12)
	putLE32(buf, 0, uint32(x))
	putLE32(buf, 4, uint32(y))
	buf[8] = buttons
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysSetMouseBounds(pid int, a Args) int64 {
	hid.SetBounds(int32(a.A0), int32(a.A1))
	return 0
}

func sysSpawnRedir(pid int, a Args) int64 {
	p := curProc(pid)
	path, err := userCString(p, a.A0, 256)
	if err != 0 {
		return int64(err)
	}
	cols, rows := int(a.A1), int(a.A2)
	child := proc.Global.Alloc(pid, string(path))
	if child < 0 {
		return int64(-defs.ENOMEM)
	}
	cp := proc.Global.Get(child)
	ioredir.Create(cp, cols, rows)
	return int64(child)
}

func sysChildioRead(pid int, a Args) int64 {
	p := curProc(pid)
	target, size := int(a.A0), int(a.A2)
	owner := proc.Global.Get(target)
	if owner == nil {
		return int64(-defs.ESRCH)
	}
	dst := make([]byte, size)
	n := owner.Redir.Out.Read(dst)
	if err := userPut(p, a.A1, dst[:n]); err != 0 {
		return int64(err)
	}
	return int64(n)
}

func sysChildioWrite(pid int, a Args) int64 {
	p := curProc(pid)
	target, size := int(a.A0), int(a.A2)
	owner := proc.Global.Get(target)
	if owner == nil {
		return int64(-defs.ESRCH)
	}
	src, err := userBytes(p, a.A1, size)
	if err != 0 {
		return int64(err)
	}
	return int64(owner.Redir.In.Write(src))
}

func sysChildioWritekey(pid int, a Args) int64 {
	target := int(a.A0)
	owner := proc.Global.Get(target)
	if owner == nil {
		return int64(-defs.ESRCH)
	}
	ev := defs.KeyEvent{
		Scancode: uint32(a.A1),
		Ascii:    uint8(a.A2),
		Pressed:  uint8(a.A3),
	}
	ioredir.PushKey(owner, ev)
	return 0
}

func sysChildioSetTermsz(pid int, a Args) int64 {
	target := int(a.A0)
	owner := proc.Global.Get(target)
	if owner == nil {
		return int64(-defs.ESRCH)
	}
	owner.Redir.Cols = int(a.A1)
	owner.Redir.Rows = int(a.A2)
	return 0
}

func sysDevlist(pid int, a Args) int64 {
	p := curProc(pid)
	max := int(a.A1)
	var recs []byte
	count := 0
	if xhci.Global != nil {
		for i := 1; i <= xhci.MaxSlots && count < max; i++ {
			s := xhci.Global.SlotState(i)
			if s == nil || !s.Active {
				continue
			}
			rec := make([]byte, 12)
			rec[0] = byte(i)
			rec[1] = s.Port
			rec[2] = s.Speed
			rec[3] = 1
			putLE32(rec, 4, uint32(s.VID)|uint32(s.PID)<<16)
			rec[8] = s.Class
			recs = append(recs, rec...)
			count++
		}
	}
	if err := userPut(p, a.A0, recs); err != 0 {
		return int64(err)
	}
	return int64(count)
}
