// Package tcp implements the user-mode-accessible TCP engine of spec
// §4.7: a fixed 16-slot connection table, the standard 10-state
// diagram, and the specification's deliberately minimal data path (one
// segment tracked for retransmission, a fixed advertised window, no
// congestion control). biscuit's own bnet/unet/inet packages were
// filtered to bare go.mod stubs in the retrieval pack, so the state
// machine here is grounded directly on original_source's
// Net/Tcp.hpp/Tcp.cpp (header layout, flag bits, state names, and the
// Listen/Accept/Connect/Send/Receive/Close entry points) re-expressed
// in the teacher's struct-table-plus-spinlock idiom (the same shape
// proc.Table_t and winserver.Table_t use). RSTs sent in reply to
// unmatched segments are rate-limited with golang.org/x/time/rate —
// already in the pack's dependency graph as the third-party library
// usbarmory-tamago reaches for whenever a bare-metal driver needs to
// bound how often it reacts to untrusted external input. Malformed
// segments are dropped without a reply and do not touch the limiter.
package tcp

import (
	"sync"

	"golang.org/x/time/rate"

	"zenithos/circbuf"
	"zenithos/defs"
	"zenithos/hashtable"
	"zenithos/inet"
	"zenithos/util"
)

// Segment flag bits, matching original_source's Net::Tcp::Header flags.
const (
	FlagFIN uint8 = 0x01
	FlagSYN uint8 = 0x02
	FlagRST uint8 = 0x04
	FlagPSH uint8 = 0x08
	FlagACK uint8 = 0x10
)

// HeaderLen is the fixed (no options) TCP header length.
const HeaderLen = 20

// State_t is one of the ten states in the standard TCP diagram.
type State_t int

const (
	Closed State_t = iota
	Listen
	SynSent
	SynReceived
	Established
	FinWait1
	FinWait2
	CloseWait
	LastAck
	TimeWait
)

// Retrans_t holds the single tracked in-flight segment per §4.7's
// "keeps only the most recent segment" rule.
type Retrans_t struct {
	Data    []byte
	SeqBase uint32
	SentMs  int64
	Retries int
}

// Conn_t is one connection-table slot.
type Conn_t struct {
	mu sync.Mutex

	State State_t

	LocalIP, RemoteIP     uint32
	LocalPort, RemotePort uint16

	SendNext  uint32
	SendUnack uint32
	RecvNext  uint32

	Recv circbuf.Circbuf_t

	Retrans Retrans_t

	// pending accept fields, valid only while State == Listen
	PendingIP   uint32
	PendingPort uint16
	PendingSeq  uint32
	HasPending  bool
}

// Table_t is the fixed K=16 slot connection table.
type Table_t struct {
	mu    sync.Mutex
	Slots []Conn_t
	byKey *hashtable.Table_t[fourTuple, int]
	rst   *rate.Limiter
}

type fourTuple struct {
	remoteIP   uint32
	remotePort uint16
	localPort  uint16
}

func hashTuple(k fourTuple) uint32 {
	return k.remoteIP ^ uint32(k.remotePort)<<16 ^ uint32(k.localPort)
}

// Global is the kernel-wide connection table.
var Global Table_t

// Init sizes the table and its lookup index.
func (t *Table_t) Init(n int) {
	t.Slots = make([]Conn_t, n)
	t.byKey = hashtable.New[fourTuple, int](n*2, hashTuple)
	t.rst = rate.NewLimiter(rate.Limit(20), 20) // at most 20 RST replies/sec
}

// isnSeed derives the initial sequence number per §4.7's formula:
// (ms_clock * 2654435761) mod 2^32.
func isnSeed(msClock uint64) uint32 {
	return uint32(msClock * 2654435761)
}

// allocSlot finds a Closed slot, or -1 if the table is full.
func (t *Table_t) allocSlot() int {
	for i := range t.Slots {
		if t.Slots[i].State == Closed {
			return i
		}
	}
	return -1
}

// ListenOn reserves a slot in Listen state bound to localPort. A Listen
// slot has no peer (§3's invariant).
func (t *Table_t) ListenOn(localPort uint16) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.allocSlot()
	if id < 0 {
		return -1
	}
	t.Slots[id] = Conn_t{State: Listen, LocalPort: localPort}
	t.Slots[id].Recv.Init(make([]byte, defs.TCPRecvWin))
	return id
}

// Connect begins an active open: allocates a slot, derives the ISN,
// and transitions to SynSent, returning the SYN segment it builds for
// the caller to transmit. sysapi's SYS_CONNECT handler transmits it
// once and returns the slot id; nothing in this tree resends the SYN or
// waits for the connection to reach Established.
func (t *Table_t) Connect(localIP, remoteIP uint32, localPort, remotePort uint16, msClock uint64) (int, []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.allocSlot()
	if id < 0 {
		return -1, nil
	}
	isn := isnSeed(msClock)
	c := &t.Slots[id]
	*c = Conn_t{
		State:      SynSent,
		LocalIP:    localIP,
		RemoteIP:   remoteIP,
		LocalPort:  localPort,
		RemotePort: remotePort,
		SendNext:   isn + 1,
		SendUnack:  isn,
	}
	c.Recv.Init(make([]byte, defs.TCPRecvWin))
	t.byKey.Set(fourTuple{remoteIP, remotePort, localPort}, id)
	seg := t.buildSegment(c, FlagSYN, isn, 0, nil)
	c.Retrans = Retrans_t{Data: seg, SeqBase: isn, Retries: 0}
	return id, seg
}

// Accept polls a listener's pending-accept field (set by OnPacket when
// a SYN arrives) and, if set, allocates a child connection and returns
// the SYN|ACK segment to transmit.
func (t *Table_t) Accept(listenerID int, localIP uint32, msClock uint64) (int, []byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	l := &t.Slots[listenerID]
	if l.State != Listen || !l.HasPending {
		return -1, nil, false
	}
	remoteIP, remotePort, peerSeq := l.PendingIP, l.PendingPort, l.PendingSeq
	l.HasPending = false

	id := t.allocSlot()
	if id < 0 {
		return -1, nil, false
	}
	isn := isnSeed(msClock)
	c := &t.Slots[id]
	*c = Conn_t{
		State:      SynReceived,
		LocalIP:    localIP,
		RemoteIP:   remoteIP,
		LocalPort:  l.LocalPort,
		RemotePort: remotePort,
		SendNext:   isn + 1,
		SendUnack:  isn,
		RecvNext:   peerSeq + 1,
	}
	c.Recv.Init(make([]byte, defs.TCPRecvWin))
	t.byKey.Set(fourTuple{remoteIP, remotePort, l.LocalPort}, id)
	seg := t.buildSegment(c, FlagSYN|FlagACK, isn, c.RecvNext, nil)
	c.Retrans = Retrans_t{Data: seg, SeqBase: isn}
	return id, seg, true
}

// buildSegment assembles a TCP segment with the fixed 4096-byte
// advertised window per §4.7's "no window management" limitation.
func (t *Table_t) buildSegment(c *Conn_t, flags uint8, seq, ack uint32, payload []byte) []byte {
	seg := make([]byte, HeaderLen+len(payload))
	util.PutBE16(seg[0:2], c.LocalPort)
	util.PutBE16(seg[2:4], c.RemotePort)
	util.PutBE32(seg[4:8], seq)
	util.PutBE32(seg[8:12], ack)
	seg[12] = (HeaderLen / 4) << 4
	seg[13] = flags
	util.PutBE16(seg[14:16], defs.TCPRecvWin)
	util.PutBE16(seg[18:20], 0)
	copy(seg[HeaderLen:], payload)
	cksum := inet.TCPChecksum(c.LocalIP, c.RemoteIP, seg)
	util.PutBE16(seg[16:18], cksum)
	return seg
}

// parseSegment reads the fixed TCP header fields out of seg.
func parseSegment(seg []byte) (srcPort, dstPort uint16, seq, ack uint32, flags uint8, payload []byte, ok bool) {
	if len(seg) < HeaderLen {
		return 0, 0, 0, 0, 0, nil, false
	}
	srcPort = util.BE16(seg[0:2])
	dstPort = util.BE16(seg[2:4])
	seq = util.BE32(seg[4:8])
	ack = util.BE32(seg[8:12])
	dataOff := int(seg[12]>>4) * 4
	flags = seg[13]
	if dataOff < HeaderLen || dataOff > len(seg) {
		return 0, 0, 0, 0, 0, nil, false
	}
	return srcPort, dstPort, seq, ack, flags, seg[dataOff:], true
}

// OnPacket dispatches an incoming segment per §4.7: checksum via the
// IPv4 pseudo-header, match the 4-tuple, else match a listener on
// local port, else emit RST (rate-limited) for an unknown non-RST
// segment. Returns a reply segment to transmit, or nil if none is
// needed.
func (t *Table_t) OnPacket(srcIP, dstIP uint32, seg []byte) []byte {
	srcPort, dstPort, seq, ack, flags, payload, ok := parseSegment(seg)
	if !ok {
		return nil
	}
	if inet.TCPChecksum(srcIP, dstIP, seg) != 0 {
		return nil
	}

	t.mu.Lock()
	id, found := t.byKey.Get(fourTuple{srcIP, srcPort, dstPort})
	t.mu.Unlock()

	if found {
		return t.onConnPacket(&t.Slots[id], srcIP, seq, ack, flags, payload)
	}

	// try a listener
	t.mu.Lock()
	var listener *Conn_t
	for i := range t.Slots {
		if t.Slots[i].State == Listen && t.Slots[i].LocalPort == dstPort {
			listener = &t.Slots[i]
			break
		}
	}
	t.mu.Unlock()

	if listener != nil && flags&FlagSYN != 0 {
		listener.mu.Lock()
		listener.PendingIP = srcIP
		listener.PendingPort = srcPort
		listener.PendingSeq = seq
		listener.HasPending = true
		listener.mu.Unlock()
		return nil
	}

	if flags&FlagRST != 0 {
		return nil
	}
	if !t.rst.Allow() {
		return nil
	}
	rst := &Conn_t{LocalIP: dstIP, RemoteIP: srcIP, LocalPort: dstPort, RemotePort: srcPort}
	return t.buildSegment(rst, FlagRST|FlagACK, ack, seq+uint32(len(payload))+1, nil)
}

func (t *Table_t) onConnPacket(c *Conn_t, srcIP uint32, seq, ack uint32, flags uint8, payload []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State {
	case SynSent:
		if flags&FlagSYN != 0 && flags&FlagACK != 0 && ack == c.SendNext {
			c.State = Established
			c.RecvNext = seq + 1
			c.SendUnack = ack
			return t.buildSegment(c, FlagACK, c.SendNext, c.RecvNext, nil)
		}
	case SynReceived:
		if flags&FlagACK != 0 && ack == c.SendNext {
			c.State = Established
			c.SendUnack = ack
		}
	case Established:
		if flags&FlagFIN != 0 {
			c.State = CloseWait
			c.RecvNext = seq + 1
			return t.buildSegment(c, FlagACK, c.SendNext, c.RecvNext, nil)
		}
		if len(payload) > 0 && seq == c.RecvNext {
			c.Recv.Write(payload)
			c.RecvNext = seq + uint32(len(payload))
			return t.buildSegment(c, FlagACK, c.SendNext, c.RecvNext, nil)
		}
		if flags&FlagACK != 0 {
			c.SendUnack = ack
		}
	case FinWait1:
		if flags&FlagACK != 0 && ack == c.SendNext {
			c.State = FinWait2
		}
		if flags&FlagFIN != 0 {
			c.RecvNext = seq + 1
			c.State = TimeWait
			return t.buildSegment(c, FlagACK, c.SendNext, c.RecvNext, nil)
		}
	case FinWait2:
		if flags&FlagFIN != 0 {
			c.RecvNext = seq + 1
			c.State = TimeWait
			return t.buildSegment(c, FlagACK, c.SendNext, c.RecvNext, nil)
		}
	case LastAck:
		if flags&FlagACK != 0 && ack == c.SendNext {
			c.State = Closed
		}
	}
	return nil
}

// Send segments data in <=MSS chunks, replacing the single tracked
// retransmit buffer with the newest chunk each time per §4.7.
func (t *Table_t) Send(connID int, data []byte) ([][]byte, defs.Err_t) {
	c := &t.Slots[connID]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State != Established {
		return nil, -defs.ECONN
	}
	var out [][]byte
	for off := 0; off < len(data); off += defs.TCPMSS {
		end := off + defs.TCPMSS
		if end > len(data) {
			end = len(data)
		}
		chunk := data[off:end]
		seg := t.buildSegment(c, FlagPSH|FlagACK, c.SendNext, c.RecvNext, chunk)
		base := c.SendNext
		c.SendNext += uint32(len(chunk))
		segData := seg
		if len(segData) > defs.TCPRetransBytes {
			segData = segData[:defs.TCPRetransBytes]
		}
		c.Retrans = Retrans_t{Data: segData, SeqBase: base}
		out = append(out, seg)
	}
	return out, 0
}

// Receive drains up to len(dst) bytes of already-ordered data.
func (t *Table_t) Receive(connID int, dst []byte) (int, defs.Err_t) {
	c := &t.Slots[connID]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Recv.Empty() {
		if c.State != Established && c.State != FinWait1 && c.State != FinWait2 {
			return 0, -defs.ECONN
		}
		return 0, -defs.EAGAIN
	}
	return c.Recv.Read(dst), 0
}

// CheckRetransmit decides whether the tracked segment needs resending:
// §4.7's "retransmit if send_next-send_unack != 0 after RTO". Returns
// the segment to resend, or nil, and whether the connection should be
// abandoned (MaxRetransmits exceeded). Only the tests call it; no
// syscall or timer path in this tree does, so tracked segments are
// never resent at run time.
func (t *Table_t) CheckRetransmit(connID int, nowMs, rtoMs int64) (seg []byte, giveUp bool) {
	c := &t.Slots[connID]
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendNext == c.SendUnack {
		return nil, false
	}
	if nowMs-c.Retrans.SentMs < rtoMs {
		return nil, false
	}
	if c.Retrans.Retries >= defs.MaxRetransmits {
		return nil, true
	}
	c.Retrans.Retries++
	c.Retrans.SentMs = nowMs
	return c.Retrans.Data, false
}

// CloseGraceful implements §4.7's graceful close from Established or
// CloseWait, returning the FIN|ACK segment to transmit.
func (t *Table_t) CloseGraceful(connID int) ([]byte, defs.Err_t) {
	c := &t.Slots[connID]
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.State {
	case Established:
		seg := t.buildSegment(c, FlagFIN|FlagACK, c.SendNext, c.RecvNext, nil)
		c.SendNext++
		c.State = FinWait1
		return seg, 0
	case CloseWait:
		seg := t.buildSegment(c, FlagFIN|FlagACK, c.SendNext, c.RecvNext, nil)
		c.SendNext++
		c.State = LastAck
		return seg, 0
	default:
		return nil, -defs.ECONN
	}
}

// RecycleTimeWait frees a slot back to Closed and drops its 4-tuple
// from the lookup index. It does not check the slot's state or how
// long it has been in TimeWait, and nothing in this tree calls it, so
// TimeWait slots are not recycled at run time.
func (t *Table_t) RecycleTimeWait(connID int) {
	c := &t.Slots[connID]
	c.mu.Lock()
	wasKey := fourTuple{c.RemoteIP, c.RemotePort, c.LocalPort}
	c.State = Closed
	c.mu.Unlock()
	t.mu.Lock()
	t.byKey.Del(wasKey)
	t.mu.Unlock()
}
