// Package inet implements the wire formats TCP sits above: the IPv4
// header, the Internet checksum, and the TCP pseudo-header checksum.
// It has no Ethernet or ARP handling. biscuit's own inet/unet/bnet
// packages were filtered down to bare go.mod stubs in the pack, so this
// is grounded on the header layout in original_source's
// Net/Tcp.hpp/.cpp (field names and sizes) re-expressed the way a Go
// kernel would: fixed-size structs read with util.BE16/BE32 rather than
// C++ __attribute__((packed)) structs.
package inet

import "zenithos/util"

// IPv4HeaderLen is the fixed (no options) IPv4 header length in bytes.
const IPv4HeaderLen = 20

// IPv4Header is the parsed form of an incoming IPv4 header.
type IPv4Header struct {
	Version    uint8
	IHL        uint8
	TotalLen   uint16
	Identity   uint16
	FlagsFrag  uint16
	TTL        uint8
	Proto      uint8
	Checksum   uint16
	SrcIP      uint32
	DstIP      uint32
}

const ProtoTCP = 6
const ProtoUDP = 17
const ProtoICMP = 1

// ParseIPv4 parses the fixed 20-byte IPv4 header from pkt, returning the
// header and the byte offset where the payload starts.
func ParseIPv4(pkt []byte) (IPv4Header, int, bool) {
	if len(pkt) < IPv4HeaderLen {
		return IPv4Header{}, 0, false
	}
	h := IPv4Header{
		Version:   pkt[0] >> 4,
		IHL:       pkt[0] & 0x0f,
		TotalLen:  util.BE16(pkt[2:4]),
		Identity:  util.BE16(pkt[4:6]),
		FlagsFrag: util.BE16(pkt[6:8]),
		TTL:       pkt[8],
		Proto:     pkt[9],
		Checksum:  util.BE16(pkt[10:12]),
		SrcIP:     util.BE32(pkt[12:16]),
		DstIP:     util.BE32(pkt[16:20]),
	}
	off := int(h.IHL) * 4
	if off < IPv4HeaderLen || off > len(pkt) {
		return IPv4Header{}, 0, false
	}
	return h, off, true
}

// BuildIPv4 writes a minimal 20-byte IPv4 header for an outgoing
// segment of the given protocol and payload length.
func BuildIPv4(src, dst uint32, proto uint8, payloadLen int) []byte {
	buf := make([]byte, IPv4HeaderLen)
	buf[0] = 0x45 // version 4, IHL 5
	buf[1] = 0
	util.PutBE16(buf[2:4], uint16(IPv4HeaderLen+payloadLen))
	util.PutBE16(buf[4:6], 0)
	util.PutBE16(buf[6:8], 0x4000) // don't-fragment
	buf[8] = 64                    // TTL
	buf[9] = proto
	util.PutBE32(buf[12:16], src)
	util.PutBE32(buf[16:20], dst)
	cksum := Checksum16(buf)
	util.PutBE16(buf[10:12], cksum)
	return buf
}

// Checksum16 computes the Internet checksum (RFC 1071) over data.
func Checksum16(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(util.BE16(data[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}

// PseudoHeaderChecksum computes the IPv4 pseudo-header partial sum that
// TCP/UDP checksums are seeded with: src+dst+zero+proto+length.
func PseudoHeaderChecksum(srcIP, dstIP uint32, proto uint8, length int) uint32 {
	var sum uint32
	sum += srcIP >> 16
	sum += srcIP & 0xffff
	sum += dstIP >> 16
	sum += dstIP & 0xffff
	sum += uint32(proto)
	sum += uint32(length)
	return sum
}

// TCPChecksum computes the TCP checksum over the pseudo-header plus the
// TCP segment (header+payload already concatenated in seg).
func TCPChecksum(srcIP, dstIP uint32, seg []byte) uint16 {
	sum := PseudoHeaderChecksum(srcIP, dstIP, ProtoTCP, len(seg))
	n := len(seg)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(util.BE16(seg[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(seg[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
