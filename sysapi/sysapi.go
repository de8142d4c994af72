// Package sysapi is the syscall dispatch table of spec §6.1: a flat
// array of handlers indexed by the numbers defs declares, each taking
// the calling pid and five raw argument words and returning a single
// signed result (a negative value is a defs.Err_t, mirroring every
// other inter-package call convention in this kernel). biscuit's own
// syscall layer was filtered out of the retrieval pack, so the shape
// here follows what the rest of this codebase already does for a
// fixed-size dispatch surface — sched.Sched_t's single mutex-guarded
// struct, proc.Table_t's slot model — generalized to a table of
// function pointers instead of a switch, so cmd/kernel's trap handler
// has one call site (`sysapi.Dispatch`) regardless of how many entries
// the table grows to.
package sysapi

import (
	"sync/atomic"

	"zenithos/defs"
	"zenithos/mem"
	"zenithos/proc"
)

// Args is the raw argument vector a trap delivers: up to five machine
// words, interpreted per syscall per the table in spec §6.1. Pointer
// arguments are user virtual addresses, resolved via userBytes/
// userPut before use.
type Args struct {
	A0, A1, A2, A3, A4 uintptr
}

// Handler is one syscall's implementation.
type Handler func(pid int, a Args) int64

// table is indexed by syscall number; a nil entry means ENOSYS.
var table [64]Handler

func init() {
	table[defs.SYS_EXIT] = sysExit
	table[defs.SYS_YIELD] = sysYield
	table[defs.SYS_SLEEP_MS] = sysSleepMs
	table[defs.SYS_GETPID] = sysGetpid
	table[defs.SYS_PRINT] = sysPrint
	table[defs.SYS_PUTCHAR] = sysPutchar
	table[defs.SYS_OPEN] = sysOpen
	table[defs.SYS_READ] = sysRead
	table[defs.SYS_GETSIZE] = sysGetsize
	table[defs.SYS_CLOSE] = sysClose
	table[defs.SYS_READDIR] = sysReaddir
	table[defs.SYS_ALLOC] = sysAlloc
	table[defs.SYS_FREE] = sysFree
	table[defs.SYS_GET_TICKS] = sysGetTicks
	table[defs.SYS_GET_MS] = sysGetMs
	table[defs.SYS_GET_INFO] = sysGetInfo
	table[defs.SYS_IS_KEY_AVAIL] = sysIsKeyAvail
	table[defs.SYS_GET_KEY] = sysGetKey
	table[defs.SYS_GET_CHAR] = sysGetChar
	table[defs.SYS_PING] = sysPing
	table[defs.SYS_SPAWN] = sysSpawn
	table[defs.SYS_FB_INFO] = sysFbInfo
	table[defs.SYS_FB_MAP] = sysFbMap
	table[defs.SYS_WAIT_PID] = sysWaitPid
	table[defs.SYS_TERM_SIZE] = sysTermSize
	table[defs.SYS_GET_ARGS] = sysGetArgs
	table[defs.SYS_RESET] = sysReset
	table[defs.SYS_SHUTDOWN] = sysShutdown
	table[defs.SYS_GET_TIME] = sysGetTime

	table[defs.SYS_SOCKET] = sysSocket
	table[defs.SYS_CONNECT] = sysConnect
	table[defs.SYS_BIND] = sysBind
	table[defs.SYS_LISTEN] = sysListen
	table[defs.SYS_ACCEPT] = sysAccept
	table[defs.SYS_SEND] = sysSend
	table[defs.SYS_RECV] = sysRecv
	table[defs.SYS_CLOSE_SOCK] = sysCloseSock
	table[defs.SYS_GET_NETCFG] = sysGetNetcfg
	table[defs.SYS_SET_NETCFG] = sysSetNetcfg
	table[defs.SYS_SENDTO] = sysSend
	table[defs.SYS_RECVFROM] = sysRecv

	table[defs.SYS_FWRITE] = sysFwrite
	table[defs.SYS_FCREATE] = sysFcreate

	table[defs.SYS_TERM_SCALE] = sysTermScale
	table[defs.SYS_RESOLVE] = sysResolve
	table[defs.SYS_GET_RANDOM] = sysGetRandom

	table[defs.SYS_KLOG] = sysKlog
	table[defs.SYS_MOUSE_STATE] = sysMouseState
	table[defs.SYS_SET_MOUSE_BOUNDS] = sysSetMouseBounds
	table[defs.SYS_SPAWN_REDIR] = sysSpawnRedir
	table[defs.SYS_CHILDIO_READ] = sysChildioRead
	table[defs.SYS_CHILDIO_WRITE] = sysChildioWrite
	table[defs.SYS_CHILDIO_WRITEKEY] = sysChildioWritekey
	table[defs.SYS_CHILDIO_SETTERMSZ] = sysChildioSetTermsz
	table[defs.SYS_WIN_CREATE] = sysWinCreate
	table[defs.SYS_WIN_DESTROY] = sysWinDestroy
	table[defs.SYS_WIN_PRESENT] = sysWinPresent
	table[defs.SYS_WIN_POLL] = sysWinPoll
	table[defs.SYS_WIN_ENUM] = sysWinEnum
	table[defs.SYS_WIN_MAP] = sysWinMap
	table[defs.SYS_WIN_SEND_EVENT] = sysWinSendEvent
	table[defs.SYS_PROCLIST] = sysProclist
	table[defs.SYS_KILL] = sysKill
	table[defs.SYS_DEVLIST] = sysDevlist
}

// Dispatch is cmd/kernel's single syscall trap entry point.
func Dispatch(pid int, num int, a Args) int64 {
	if num < 0 || num >= len(table) || table[num] == nil {
		return int64(-defs.ENOSYS)
	}
	return table[num](pid, a)
}

// ticksMs is the kernel-wide millisecond uptime counter, advanced by
// cmd/kernel's timer ISR alongside sched.Global.Tick — kept here
// rather than in sched since get_ticks/get_ms/get_time are syscall-
// surface concerns, not scheduling ones.
var ticksMs int64

// Tick advances the uptime counter by one tick period. Called from
// the same timer interrupt that drives sched.Global.Tick.
func Tick() {
	atomic.AddInt64(&ticksMs, defs.TickMillis)
}

func nowMs() int64 {
	return atomic.LoadInt64(&ticksMs)
}

// curProc resolves pid to its table slot, or nil.
func curProc(pid int) *proc.Proc_t {
	return proc.Global.Get(pid)
}

// userBytes copies n bytes starting at user virtual address va out of
// p's address space into a fresh kernel buffer, walking page by page
// since physical pages backing consecutive user pages need not be
// contiguous.
func userBytes(p *proc.Proc_t, va uintptr, n int) ([]byte, defs.Err_t) {
	if p == nil || p.AS == nil {
		return nil, -defs.EFAULT
	}
	if n < 0 {
		return nil, -defs.EINVAL
	}
	out := make([]byte, n)
	for off := 0; off < n; {
		page := (va + uintptr(off)) &^ uintptr(mem.PGOFFSET)
		inPage := int((va + uintptr(off)) & uintptr(mem.PGOFFSET))
		pa, ok := p.AS.Translate(page)
		if !ok {
			return nil, -defs.EFAULT
		}
		chunk := mem.PGSIZE - inPage
		if chunk > n-off {
			chunk = n - off
		}
		src := mem.DmapBytes(pa&^mem.Pa_t(mem.PGOFFSET)+mem.Pa_t(inPage), chunk)
		copy(out[off:off+chunk], src)
		off += chunk
	}
	return out, 0
}

// userPut is userBytes's inverse: copies src into p's address space at
// user virtual address va.
func userPut(p *proc.Proc_t, va uintptr, src []byte) defs.Err_t {
	if p == nil || p.AS == nil {
		return -defs.EFAULT
	}
	for off := 0; off < len(src); {
		page := (va + uintptr(off)) &^ uintptr(mem.PGOFFSET)
		inPage := int((va + uintptr(off)) & uintptr(mem.PGOFFSET))
		pa, ok := p.AS.Translate(page)
		if !ok {
			return -defs.EFAULT
		}
		chunk := mem.PGSIZE - inPage
		if chunk > len(src)-off {
			chunk = len(src) - off
		}
		dst := mem.DmapBytes(pa&^mem.Pa_t(mem.PGOFFSET)+mem.Pa_t(inPage), chunk)
		copy(dst, src[off:off+chunk])
		off += chunk
	}
	return 0
}

// userCString reads a NUL-terminated string from user memory one page
// at a time, capped at maxLen bytes.
func userCString(p *proc.Proc_t, va uintptr, maxLen int) ([]byte, defs.Err_t) {
	if p == nil || p.AS == nil {
		return nil, -defs.EFAULT
	}
	var out []byte
	for len(out) < maxLen {
		page := (va + uintptr(len(out))) &^ uintptr(mem.PGOFFSET)
		inPage := int((va + uintptr(len(out))) & uintptr(mem.PGOFFSET))
		pa, ok := p.AS.Translate(page)
		if !ok {
			return nil, -defs.EFAULT
		}
		chunk := mem.PGSIZE - inPage
		buf := mem.DmapBytes(pa&^mem.Pa_t(mem.PGOFFSET)+mem.Pa_t(inPage), chunk)
		for _, b := range buf {
			if b == 0 {
				return out, 0
			}
			out = append(out, b)
			if len(out) >= maxLen {
				return out, 0
			}
		}
	}
	return out, 0
}

