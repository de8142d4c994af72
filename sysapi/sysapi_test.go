package sysapi

import (
	"testing"

	"zenithos/defs"
)

func TestDispatchRejectsOutOfRangeSyscallNumber(t *testing.T) {
	if got := Dispatch(0, -1, Args{}); got != int64(-defs.ENOSYS) {
		t.Fatalf("expected ENOSYS for negative syscall number, got %d", got)
	}
	if got := Dispatch(0, len(table), Args{}); got != int64(-defs.ENOSYS) {
		t.Fatalf("expected ENOSYS past the table end, got %d", got)
	}
}

func TestDispatchRejectsUnassignedSlot(t *testing.T) {
	// Syscall numbers between the highest assigned constant and the
	// table's fixed capacity are intentionally unassigned.
	if table[len(table)-1] != nil {
		return // table happens to be full; nothing to assert
	}
	if got := Dispatch(0, len(table)-1, Args{}); got != int64(-defs.ENOSYS) {
		t.Fatalf("expected ENOSYS for an unassigned slot, got %d", got)
	}
}

func TestPackPairRoundTrips(t *testing.T) {
	packed := packPair(-1, 42)
	hi := int32(packed >> 32)
	lo := int32(packed)
	if hi != -1 || lo != 42 {
		t.Fatalf("expected (-1, 42), got (%d, %d)", hi, lo)
	}
}

func TestPutLE32EncodesLittleEndian(t *testing.T) {
	buf := make([]byte, 4)
	putLE32(buf, 0, 0x01020304)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("byte %d: got 0x%02x want 0x%02x", i, buf[i], want[i])
		}
	}
}

func TestBoolToI64(t *testing.T) {
	if boolToI64(true) != 1 || boolToI64(false) != 0 {
		t.Fatalf("unexpected boolToI64 mapping")
	}
}

func TestTickAdvancesUptime(t *testing.T) {
	before := nowMs()
	Tick()
	after := nowMs()
	if after-before != defs.TickMillis {
		t.Fatalf("expected uptime to advance by %d, got %d", defs.TickMillis, after-before)
	}
}
