package winserver

import (
	"testing"

	"zenithos/defs"
)

func TestEventQueueRoundTrip(t *testing.T) {
	var tbl Table_t
	tbl.Init(8)
	tbl.Slots[0] = Slot_t{InUse: true, OwnerPid: 3}

	if err := tbl.SendEvent(0, defs.WinEvent{Kind: 1, A: 42}); err != 0 {
		t.Fatalf("unexpected error: %d", err)
	}
	ev, ok := tbl.Poll(0, 3)
	if !ok || ev.A != 42 {
		t.Fatalf("expected event with A=42, got %+v ok=%v", ev, ok)
	}
	if _, ok := tbl.Poll(0, 3); ok {
		t.Fatalf("expected empty queue after drain")
	}
}

func TestEventQueueOverflowDrops(t *testing.T) {
	var tbl Table_t
	tbl.Init(8)
	tbl.Slots[0] = Slot_t{InUse: true, OwnerPid: 1}

	for i := 0; i < 1000; i++ {
		tbl.SendEvent(0, defs.WinEvent{Kind: uint32(i)})
	}
	count := 0
	for {
		if _, ok := tbl.Poll(0, 1); !ok {
			break
		}
		count++
	}
	if count != len(tbl.Slots[0].EventQ)-1 {
		t.Fatalf("expected capacity-bounded %d events, got %d", len(tbl.Slots[0].EventQ)-1, count)
	}
}

func TestEnumerateClearsDirty(t *testing.T) {
	var tbl Table_t
	tbl.Init(4)
	tbl.Slots[0] = Slot_t{InUse: true, OwnerPid: 2, W: 100, H: 50, Dirty: true}

	snap := tbl.Enumerate()
	if len(snap) != 1 || snap[0].Dirty != 1 {
		t.Fatalf("expected one dirty window in snapshot, got %+v", snap)
	}
	if tbl.Slots[0].Dirty {
		t.Fatalf("expected dirty bit cleared after enumerate")
	}
	snap2 := tbl.Enumerate()
	if snap2[0].Dirty != 0 {
		t.Fatalf("expected dirty cleared on second enumerate")
	}
}

func TestPollRefusesNonOwner(t *testing.T) {
	var tbl Table_t
	tbl.Init(4)
	tbl.Slots[0] = Slot_t{InUse: true, OwnerPid: 5}
	tbl.SendEvent(0, defs.WinEvent{Kind: 9})

	if _, ok := tbl.Poll(0, 6); ok {
		t.Fatalf("expected poll from non-owner to fail")
	}
}
