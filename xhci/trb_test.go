package xhci

import "testing"

func newTestRing() *Ring {
	return &Ring{trbs: make([]TRB, trbsPerPage), ccs: true}
}

func newTestEventRing() *EventRing {
	return &EventRing{trbs: make([]TRB, trbsPerPage), ccs: true}
}

func TestRingEnqueueSetsCycleBit(t *testing.T) {
	r := newTestRing()
	r.Enqueue(0x1234, 8, TRBSetupStage)
	if r.trbs[0].Param != 0x1234 {
		t.Fatalf("param not written")
	}
	if r.trbs[0].Ctrl&cycleBit == 0 {
		t.Fatalf("expected cycle bit set on first enqueue (CCS starts true)")
	}
	if trbType(r.trbs[0].Ctrl) != TRBSetupStage {
		t.Fatalf("expected trb type %d, got %d", TRBSetupStage, trbType(r.trbs[0].Ctrl))
	}
}

func TestRingWrapTogglesCycleAndLinkTRB(t *testing.T) {
	r := newTestRing()
	for i := 0; i < trbsPerPage-1; i++ {
		r.Enqueue(uint64(i), 0, TRBNormal)
	}
	if r.enqueue != 0 {
		t.Fatalf("expected enqueue index to wrap to 0, got %d", r.enqueue)
	}
	if r.ccs {
		t.Fatalf("expected CCS to toggle to false after one full wrap")
	}
	link := r.trbs[trbsPerPage-1]
	if trbType(link.Ctrl) != TRBLink {
		t.Fatalf("expected link TRB at last slot")
	}
	if link.Ctrl&cycleBit == 0 {
		t.Fatalf("expected link TRB cycle bit to match producer CCS before toggle")
	}
}

func TestRingEnqueueRawLeavesCallerBitsIntact(t *testing.T) {
	r := newTestRing()
	r.EnqueueRaw(0, 0, setupCtrl(trtInData))
	ctrl := r.trbs[0].Ctrl
	if trbType(ctrl) != TRBSetupStage {
		t.Fatalf("expected setup stage type")
	}
	if ctrl&ctrlIDT == 0 {
		t.Fatalf("expected IDT bit preserved")
	}
	if (ctrl>>16)&0x3 != trtInData {
		t.Fatalf("expected TRT field preserved")
	}
}

func TestEventRingPollAdvancesAndRespectsCycle(t *testing.T) {
	er := newTestEventRing()
	if _, ok := er.Poll(); ok {
		t.Fatalf("expected no events on a freshly allocated (zeroed) ring")
	}
	er.trbs[0] = TRB{Param: 42, Ctrl: mkCtrl(TRBCommandCompletion, true)}
	tr, ok := er.Poll()
	if !ok || tr.Param != 42 {
		t.Fatalf("expected to poll the planted event")
	}
	if er.dequeue != 1 {
		t.Fatalf("expected dequeue to advance to 1, got %d", er.dequeue)
	}
}
