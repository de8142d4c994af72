package inet

import "testing"

func TestChecksum16ZeroWhenIncluded(t *testing.T) {
	buf := BuildIPv4(0x0a000001, 0x0a000002, ProtoTCP, 0)
	if Checksum16(buf) != 0 {
		t.Fatalf("a header with its own checksum field filled in should sum to 0, got %x", Checksum16(buf))
	}
}

func TestParseIPv4RoundTrip(t *testing.T) {
	buf := BuildIPv4(0x0a000001, 0x0a000002, ProtoTCP, 10)
	buf = append(buf, make([]byte, 10)...)
	h, off, ok := ParseIPv4(buf)
	if !ok {
		t.Fatalf("expected successful parse")
	}
	if off != IPv4HeaderLen {
		t.Fatalf("expected payload offset %d, got %d", IPv4HeaderLen, off)
	}
	if h.SrcIP != 0x0a000001 || h.DstIP != 0x0a000002 {
		t.Fatalf("address mismatch: %+v", h)
	}
	if h.Proto != ProtoTCP {
		t.Fatalf("expected proto TCP, got %d", h.Proto)
	}
}

func TestParseIPv4RejectsShortPacket(t *testing.T) {
	if _, _, ok := ParseIPv4(make([]byte, 4)); ok {
		t.Fatalf("expected failure on truncated header")
	}
}
