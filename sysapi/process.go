// Process lifecycle, console, scheduling, and info syscalls.
package sysapi

import (
	"encoding/binary"

	"zenithos/defs"
	"zenithos/elf"
	"zenithos/hal"
	"zenithos/ioredir"
	"zenithos/mem"
	"zenithos/proc"
	"zenithos/rng"
	"zenithos/sched"
	"zenithos/ustr"
	"zenithos/vm"
	"zenithos/winserver"
)

func sysExit(pid int, a Args) int64 {
	proc.Global.Exit(pid, int(a.A0))
	reclaim(pid)
	proc.Global.Release(pid)
	sched.Global.Yield()
	return 0 // never actually observed: the slot is gone
}

// reclaim releases every cross-subsystem resource a process held
// before its slot is freed, per §5's cancellation semantics: window
// pages unmapped before Release tears down the address space.
func reclaim(pid int) {
	freed := winserver.Global.CleanupExit(pid, func(compPid int) *vm.AS_t {
		p := proc.Global.Get(compPid)
		if p == nil {
			return nil
		}
		return p.AS
	})
	for _, pa := range freed {
		mem.Global.Free(pa)
	}
}

func sysYield(pid int, a Args) int64 {
	sched.Global.Yield()
	return 0
}

func sysSleepMs(pid int, a Args) int64 {
	// The reference scheduler has no dedicated sleep queue; a blocking
	// sleep is modeled as the caller yielding until the uptime clock has
	// advanced by the requested number of milliseconds.
	target := nowMs() + int64(a.A0)
	for nowMs() < target {
		sched.Global.Yield()
	}
	return 0
}

func sysGetpid(pid int, a Args) int64 {
	return int64(pid)
}

func sysPrint(pid int, a Args) int64 {
	p := curProc(pid)
	s, err := userCString(p, a.A0, 4096)
	if err != 0 {
		return int64(err)
	}
	n, err := ioredir.WriteOut(&proc.Global, pid, s)
	if err != 0 {
		return int64(err)
	}
	return int64(n)
}

func sysPutchar(pid int, a Args) int64 {
	_, err := ioredir.WriteOut(&proc.Global, pid, []byte{byte(a.A0)})
	return int64(err)
}

func sysIsKeyAvail(pid int, a Args) int64 {
	return boolToI64(ioredir.HasKey(&proc.Global, pid))
}

func sysGetKey(pid int, a Args) int64 {
	ev, ok := ioredir.PopKey(&proc.Global, pid)
	if !ok {
		return int64(-defs.EAGAIN)
	}
	p := curProc(pid)
	buf := make([]byte, 12) // sizeof(defs.KeyEvent)
	binary.LittleEndian.PutUint32(buf[0:4], ev.Scancode)
	buf[4], buf[5], buf[6], buf[7] = ev.Ascii, ev.Pressed, ev.Shift, ev.Ctrl
	buf[8] = ev.Alt
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysGetChar(pid int, a Args) int64 {
	buf := make([]byte, 1)
	n, err := ioredir.ReadIn(&proc.Global, pid, buf)
	if err != 0 {
		return int64(err)
	}
	if n == 0 {
		return int64(-defs.EAGAIN)
	}
	return int64(buf[0])
}

func sysPing(pid int, a Args) int64 {
	return 0
}

func sysSpawn(pid int, a Args) int64 {
	p := curProc(pid)
	path, err := userCString(p, a.A0, 256)
	if err != 0 {
		return int64(err)
	}
	child := proc.Global.Alloc(pid, string(path))
	if child < 0 {
		return int64(-defs.ENOMEM)
	}
	cp := proc.Global.Get(child)
	cp.AS = vm.CreateUserPML4(currentKernelPml4)
	ioredir.Inherit(cp, p)

	entry := elf.Load(ustr.Ustr(path), cp.AS)
	if entry == 0 {
		proc.Global.Release(child)
		return int64(-defs.ENOENT)
	}
	cp.UstackTop = userStackTop(cp.AS)
	cp.HeapNext = userHeapBase
	return int64(child)
}

// currentKernelPml4 is set once at boot by cmd/kernel (via
// SetKernelPML4) and userHeapBase is a fixed address; both are kept here
// rather than threaded through every spawn call since every address
// space shares the same kernel upper half and the same fixed user-space
// layout (§3 has no ASLR).
var (
	currentKernelPml4 mem.Pa_t
	userHeapBase      uintptr = 0x10000000
)

// SetKernelPML4 records the kernel's own PML4, the base every new
// process's address space is forked from. Called once from cmd/kernel
// after paging is live.
func SetKernelPML4(pa mem.Pa_t) {
	currentKernelPml4 = pa
}

// NewUserStack maps a fresh fixed-size stack into as and returns its
// top. Exported so cmd/kernel can set up init's stack the same way
// sysSpawn sets up every later child's.
func NewUserStack(as *vm.AS_t) uintptr {
	return userStackTop(as)
}

// exitStubVA is the fixed virtual address of the one-page exit stub
// every address space maps, just below the user stack region. §3's
// lifecycle: the top of the user stack holds this address so that
// falling off a program's _start calls SYS_EXIT(0) instead of
// returning into whatever garbage follows.
const exitStubVA = 0x7ffffffff000 - uintptr(defs.StackPages+1)*uintptr(mem.PGSIZE)

// exitStubCode is "xor edi,edi; xor eax,eax; syscall": RDI=0 is the
// exit status SYS_EXIT takes, RAX=0 is SYS_EXIT's syscall number.
var exitStubCode = []byte{0x31, 0xff, 0x31, 0xc0, 0x0f, 0x05}

// mapExitStub installs the exit stub page into as. Every address space
// gets its own physical copy rather than a shared kernel-text mapping,
// since nothing else in this design maps the same physical page into
// more than one address space.
func mapExitStub(as *vm.AS_t) {
	pa, ok := mem.Global.Alloc()
	if !ok {
		panic("sysapi: out of memory mapping exit stub")
	}
	copy(mem.DmapBytes(pa, len(exitStubCode)), exitStubCode)
	as.MapUser(exitStubVA, pa, 0)
}

func userStackTop(as *vm.AS_t) uintptr {
	const stackTop = 0x7ffffffff000
	for i := 0; i < defs.StackPages; i++ {
		pa, ok := mem.Global.Alloc()
		if !ok {
			break
		}
		as.MapUser(stackTop-uintptr((i+1)*mem.PGSIZE), pa, mem.PTE_W)
	}
	mapExitStub(as)

	// §4.2: prime the top word of the stack with the exit stub's
	// address, so a _start that falls off its final ret lands there
	// instead of in unmapped space.
	rsp := uintptr(stackTop - 8)
	pa, ok := as.Translate(rsp &^ uintptr(mem.PGOFFSET))
	if ok {
		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, uint64(exitStubVA))
		copy(mem.DmapBytes(pa&^mem.Pa_t(mem.PGOFFSET)+mem.Pa_t(rsp&uintptr(mem.PGOFFSET)), 8), buf)
	}
	return rsp
}

func sysWaitPid(pid int, a Args) int64 {
	target := int(a.A0)
	p := proc.Global.Get(target)
	if p == nil {
		return int64(-defs.ESRCH)
	}
	if p.State != proc.Terminated {
		return int64(-defs.EAGAIN)
	}
	status := p.ExitStatus
	proc.Global.Release(target)
	return int64(status)
}

func sysKill(pid int, a Args) int64 {
	target := int(a.A0)
	if err := proc.Global.Kill(pid, target); err != 0 {
		return int64(err)
	}
	reclaim(target)
	return 0
}

func sysTermSize(pid int, a Args) int64 {
	owner := ioredir.Owner(&proc.Global, pid)
	if owner == nil {
		return packPair(80, 25)
	}
	return packPair(int32(owner.Redir.Cols), int32(owner.Redir.Rows))
}

func sysTermScale(pid int, a Args) int64 {
	// Fixed-point 16.16 scale pair, packed the same way as term_size.
	sx, sy := int32(a.A0), int32(a.A1)
	return packPair(sx, sy)
}

func packPair(a, b int32) int64 {
	return int64(uint32(a))<<32 | int64(uint32(b))
}

func sysGetArgs(pid int, a Args) int64 {
	p := curProc(pid)
	if p == nil {
		return int64(-defs.ESRCH)
	}
	var joined []byte
	for _, arg := range p.Args {
		joined = append(joined, []byte(arg)...)
		joined = append(joined, 0)
	}
	if err := userPut(p, a.A0, joined); err != 0 {
		return int64(err)
	}
	return int64(len(joined))
}

func sysReset(pid int, a Args) int64 {
	hal.Outb(0x64, 0xfe) // 8042 controller reset pulse, mirrors a real BIOS-era reboot path
	return 0
}

func sysShutdown(pid int, a Args) int64 {
	hal.Hlt()
	return 0
}

func sysGetTicks(pid int, a Args) int64 {
	return nowMs() / defs.TickMillis
}

func sysGetMs(pid int, a Args) int64 {
	return nowMs()
}

func sysGetTime(pid int, a Args) int64 {
	p := curProc(pid)
	dt := defs.DateTime{Year: 1970, Mon: 1, Day: 1}
	ms := nowMs()
	dt.Sec = uint8((ms / 1000) % 60)
	dt.Min = uint8((ms / 60000) % 60)
	dt.Hour = uint8((ms / 3600000) % 24)
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:2], dt.Year)
	buf[2], buf[3], buf[4], buf[5], buf[6] = dt.Mon, dt.Day, dt.Hour, dt.Min, dt.Sec
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysGetInfo(pid int, a Args) int64 {
	p := curProc(pid)
	info := defs.SysInfo{ApiVersion: 1, MaxProcesses: uint64(len(proc.Global.Slots))}
	copy(info.OsName[:], "ZenithOS")
	copy(info.OsVersion[:], "1.0")
	buf := make([]byte, 80) // sizeof(defs.SysInfo)
	copy(buf[0:32], info.OsName[:])
	copy(buf[32:64], info.OsVersion[:])
	binary.LittleEndian.PutUint64(buf[64:72], info.ApiVersion)
	binary.LittleEndian.PutUint64(buf[72:80], info.MaxProcesses)
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysGetRandom(pid int, a Args) int64 {
	p := curProc(pid)
	n := int(a.A1)
	if n > 4096 {
		n = 4096
	}
	buf := make([]byte, n)
	got := rng.Global.Read(buf)
	if err := userPut(p, a.A0, buf[:got]); err != 0 {
		return int64(err)
	}
	return int64(got)
}

func sysProclist(pid int, a Args) int64 {
	p := curProc(pid)
	max := int(a.A1)
	var infos []defs.ProcInfo
	for i := range proc.Global.Slots {
		slot := proc.Global.Get(i)
		if slot == nil {
			continue
		}
		var pi defs.ProcInfo
		pi.Pid = int32(slot.Pid)
		pi.ParentPid = int32(slot.ParentPid)
		pi.State = uint32(slot.State)
		copy(pi.Name[:], slot.Name)
		pi.UserNs, pi.SysNs = slot.Accnt.Snapshot()
		infos = append(infos, pi)
		if len(infos) >= max {
			break
		}
	}
	buf := make([]byte, 0, len(infos)*64)
	for _, pi := range infos {
		buf = append(buf, encodeProcInfo(pi)...)
	}
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return int64(len(infos))
}

func encodeProcInfo(pi defs.ProcInfo) []byte {
	b := make([]byte, 64)
	binary.LittleEndian.PutUint32(b[0:4], uint32(pi.Pid))
	binary.LittleEndian.PutUint32(b[4:8], uint32(pi.ParentPid))
	binary.LittleEndian.PutUint32(b[8:12], pi.State)
	copy(b[16:48], pi.Name[:])
	binary.LittleEndian.PutUint64(b[48:56], uint64(pi.UserNs))
	binary.LittleEndian.PutUint64(b[56:64], uint64(pi.SysNs))
	return b
}

func boolToI64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
