// Package ioredir implements the parent-captures-child console pattern
// of spec §4.4: three rings per redirected subtree (out, in, key),
// owned by the ancestor that called spawn_redir, with descendants
// resolving "where do I read/write" by following parentPid at most one
// hop. Grounded on circbuf.Circbuf_t (itself adapted from
// biscuit/src/circbuf/circbuf.go) plus proc.Redir_t's field layout.
package ioredir

import (
	"zenithos/circbuf"
	"zenithos/defs"
	"zenithos/proc"
)

// OutRingSize and InRingSize are the fixed 4 KiB ring sizes per §4.4.
const (
	OutRingSize = 4096
	InRingSize  = 4096
)

// Create installs a fresh redirection bundle on p, making it the
// owner; descendants spawned from p (or from other owned descendants)
// inherit by recording p's pid, never allocating their own buffers.
func Create(p *proc.Proc_t, cols, rows int) {
	p.Redir.Active = true
	p.Redir.Out = &circbuf.Circbuf_t{}
	p.Redir.Out.Init(make([]uint8, OutRingSize))
	p.Redir.In = &circbuf.Circbuf_t{}
	p.Redir.In.Init(make([]uint8, InRingSize))
	p.Redir.Parent = p.Pid
	p.Redir.Cols = cols
	p.Redir.Rows = rows
}

// Inherit marks child as a redirected descendant of parent without
// allocating buffers of its own.
func Inherit(child, parent *proc.Proc_t) {
	if !parent.Redir.Active {
		return
	}
	child.Redir.Active = true
	if parent.Redir.Out != nil {
		child.Redir.Parent = parent.Pid
	} else {
		child.Redir.Parent = parent.Redir.Parent
	}
	child.Redir.Cols = parent.Redir.Cols
	child.Redir.Rows = parent.Redir.Rows
}

// Owner finds the slot whose rings should be used for pid's I/O,
// following the at-most-one-hop chain described in §4.4.
func Owner(t *proc.Table_t, pid int) *proc.Proc_t {
	return t.RedirOwner(pid)
}

// WriteOut is the child side of console output (print/putchar): bytes
// go into the owner's out ring for the parent to drain.
func WriteOut(t *proc.Table_t, pid int, data []byte) (int, defs.Err_t) {
	owner := Owner(t, pid)
	if owner == nil {
		return 0, -defs.EINVAL
	}
	return owner.Redir.Out.Write(data), 0
}

// ReadIn is the child side of getchar: bytes come from the owner's in
// ring, which the parent fills. Returns (0, EAGAIN) on an empty ring so
// callers can cooperatively yield (§5) rather than spin in the kernel.
func ReadIn(t *proc.Table_t, pid int, dst []byte) (int, defs.Err_t) {
	owner := Owner(t, pid)
	if owner == nil {
		return 0, -defs.EINVAL
	}
	if owner.Redir.In.Empty() {
		return 0, -defs.EAGAIN
	}
	return owner.Redir.In.Read(dst), 0
}

// PushKey is the parent side: injects a structured key event for a
// redirected child's getkey/iskeyavailable, dropping silently on
// overflow of the 64-entry bounded array per §4.4.
func PushKey(owner *proc.Proc_t, ev defs.KeyEvent) {
	next := (owner.Redir.KeyHead + 1) % len(owner.Redir.Key)
	if next == owner.Redir.KeyTail {
		return // full, drop
	}
	owner.Redir.Key[owner.Redir.KeyHead] = ev
	owner.Redir.KeyHead = next
}

// HasKey reports whether pid's key queue has an event waiting, without
// consuming it — the backing call for is_key_available.
func HasKey(t *proc.Table_t, pid int) bool {
	owner := Owner(t, pid)
	if owner == nil {
		return false
	}
	return owner.Redir.KeyTail != owner.Redir.KeyHead
}

// PopKey is the child side of getkey; ok is false (iskeyavailable would
// report false) when the queue is empty.
func PopKey(t *proc.Table_t, pid int) (defs.KeyEvent, bool) {
	owner := Owner(t, pid)
	if owner == nil {
		return defs.KeyEvent{}, false
	}
	if owner.Redir.KeyTail == owner.Redir.KeyHead {
		return defs.KeyEvent{}, false
	}
	ev := owner.Redir.Key[owner.Redir.KeyTail]
	owner.Redir.KeyTail = (owner.Redir.KeyTail + 1) % len(owner.Redir.Key)
	return ev, true
}
