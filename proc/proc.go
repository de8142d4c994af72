// Package proc implements the fixed-size process table. Grounded on the
// conventions visible across the teacher's surviving per-subsystem
// state structs (accnt.Accnt_t's mutex-guarded fields, tinfo.Tnote_t's
// Alive/Killed flags) generalized into the single process record spec
// §3 describes — biscuit's own proc package was not retrieved intact
// in the pack (only its go.mod survived filtering), so the struct shape
// here is built straight from §3's data model rather than adapted line
// by line from a teacher source file.
package proc

import (
	"sync"

	"zenithos/accnt"
	"zenithos/circbuf"
	"zenithos/defs"
	"zenithos/limits"
	"zenithos/mem"
	"zenithos/vm"
)

// State_t is a process table slot's lifecycle state.
type State_t int

const (
	Free State_t = iota
	Ready
	Running
	Terminated
)

// Redir_t is the optional I/O-redirection bundle a process carries when
// it (or an ancestor) called spawn_redir. Grounded on spec §4.4.
type Redir_t struct {
	Active bool
	// Out/In/Key are non-nil only on the bundle owner; a redirected
	// descendant with no bundle of its own follows Parent instead.
	Out, In  *circbuf.Circbuf_t
	Key      [64]defs.KeyEvent
	KeyHead  int
	KeyTail  int
	Parent   int // pid of the bundle owner, resolved at most one hop
	Cols     int
	Rows     int
}

// Proc_t is one process table slot.
type Proc_t struct {
	mu sync.Mutex

	Pid       int
	ParentPid int
	State     State_t
	Name      string
	Args      []string

	AS *vm.AS_t

	KstackBase mem.Pa_t
	KstackTop  uintptr
	UstackTop  uintptr
	HeapNext   uintptr

	SavedRSP uintptr
	FPUArea  [512]byte

	Accnt accnt.Accnt_t

	Redir Redir_t

	SliceRemaining int
	ExitStatus     int
}

// Table_t is the fixed-size process table: N slots, N = limits.Syslimit.Processes.
type Table_t struct {
	mu    sync.Mutex
	Slots []Proc_t
}

// Global is the kernel-wide process table, sized once at init.
var Global Table_t

// Init allocates the fixed-size slot array.
func (t *Table_t) Init() {
	t.Slots = make([]Proc_t, limits.Syslimit.Processes)
	for i := range t.Slots {
		t.Slots[i].Pid = -1
		t.Slots[i].State = Free
	}
}

// Alloc finds a free slot, gives it a fresh physically-contiguous
// kernel stack (§3's StackPages-frame stack every process owns for its
// syscall/interrupt entry), and marks it Ready with the given parent
// and name, returning its pid, or -1 if the table is full or no
// contiguous run of kernel-stack frames remains (spawn's OOM failure
// mode per §4.2 also routes through here when Alloc succeeds but a
// later allocation fails — the caller is responsible for calling
// Release in that case).
func (t *Table_t) Alloc(parentPid int, name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.Slots {
		if t.Slots[i].State != Free {
			continue
		}
		base, ok := mem.Global.AllocContig(defs.StackPages)
		if !ok {
			return -1
		}
		top := mem.Vdirect + uintptr(base) + uintptr(defs.StackPages*mem.PGSIZE)
		p := &t.Slots[i]
		*p = Proc_t{
			Pid:            i,
			ParentPid:      parentPid,
			State:          Ready,
			Name:           name,
			SliceRemaining: defs.TimeSliceMillis,
			KstackBase:     base,
			KstackTop:      top,
			SavedRSP:       top,
		}
		return i
	}
	return -1
}

// Get returns the slot for pid, or nil if out of range or Free.
func (t *Table_t) Get(pid int) *Proc_t {
	if pid < 0 || pid >= len(t.Slots) {
		return nil
	}
	p := &t.Slots[pid]
	if p.State == Free {
		return nil
	}
	return p
}

// Release tears down a slot's owned resources and marks it Free. It
// implements the exit/kill reclaim path of §3's lifecycle: window
// pages and ring buffers are released by their owning subsystems before
// Release is called; Release itself frees the address space and the
// kernel stack Alloc gave the slot, then marks it available for reuse.
func (t *Table_t) Release(pid int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := &t.Slots[pid]
	if p.AS != nil {
		p.AS.FreeUserHalf()
	}
	mem.Global.FreeCount(p.KstackBase, defs.StackPages)
	*p = Proc_t{Pid: -1, State: Free}
}

// Exit marks pid Terminated with the given status. The scheduler picks
// a new runnable slot immediately after; Exit itself does not switch.
func (t *Table_t) Exit(pid int, status int) {
	p := t.Get(pid)
	if p == nil {
		return
	}
	p.mu.Lock()
	p.State = Terminated
	p.ExitStatus = status
	p.mu.Unlock()
}

// Kill marks pid Terminated on behalf of another process. It refuses
// pid 0 (the first spawned process / init-equivalent) and refuses self-
// targeting, matching §4.2's cancellation rules; callers perform the
// resource reclaim (window/ring cleanup) after Kill succeeds, as
// sysapi's SYS_KILL handler does.
func (t *Table_t) Kill(caller, target int) defs.Err_t {
	if target == 0 || target == caller {
		return -defs.EINVAL
	}
	p := t.Get(target)
	if p == nil {
		return -defs.ESRCH
	}
	p.mu.Lock()
	p.State = Terminated
	p.mu.Unlock()
	return 0
}

// RedirOwner resolves which slot's Redir bundle a process should use:
// itself if it owns a bundle, otherwise its parent (the inheritance
// chain is at most one hop per §4.4's invariant).
func (t *Table_t) RedirOwner(pid int) *Proc_t {
	p := t.Get(pid)
	if p == nil {
		return nil
	}
	if p.Redir.Active && p.Redir.Out != nil {
		return p
	}
	if p.Redir.Active {
		return t.Get(p.Redir.Parent)
	}
	return nil
}
