package circbuf

import (
	"bytes"
	"testing"
)

func TestRoundTripFIFO(t *testing.T) {
	var cb Circbuf_t
	cb.Init(make([]uint8, 16))

	in := []byte("hello world")
	n := cb.Write(in)
	if n != len(in) {
		t.Fatalf("short write: %d/%d", n, len(in))
	}
	out := make([]byte, len(in))
	n = cb.Read(out)
	if n != len(in) || !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch: got %q want %q", out[:n], in)
	}
	if !cb.Empty() {
		t.Fatalf("expected empty after full drain")
	}
}

func TestWraparound(t *testing.T) {
	var cb Circbuf_t
	cb.Init(make([]uint8, 8))

	cb.Write([]byte("abcdef"))
	out := make([]byte, 4)
	cb.Read(out)
	cb.Write([]byte("ghij"))

	rest := make([]byte, cb.Used())
	cb.Read(rest)
	if string(rest) != "efghij" {
		t.Fatalf("got %q want efghij", rest)
	}
}

func TestFullRefusesOverflow(t *testing.T) {
	var cb Circbuf_t
	cb.Init(make([]uint8, 4))
	n := cb.Write([]byte("abcdefgh"))
	if n != 4 {
		t.Fatalf("expected capacity-bounded write of 4, got %d", n)
	}
	if !cb.Full() {
		t.Fatalf("expected full")
	}
}

func TestPeekAdvance(t *testing.T) {
	var cb Circbuf_t
	cb.Init(make([]uint8, 16))
	cb.Write([]byte("segment-data"))

	p := cb.Peek(0, 7)
	if string(p) != "segment" {
		t.Fatalf("peek got %q", p)
	}
	if cb.Used() != 12 {
		t.Fatalf("peek must not consume: used=%d", cb.Used())
	}
	cb.Advance(7)
	if cb.Used() != 5 {
		t.Fatalf("advance left used=%d", cb.Used())
	}
}
