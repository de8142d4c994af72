package hid

import "testing"

func TestDiffReportsDetectsPressAndRelease(t *testing.T) {
	var prev [6]byte
	cur := [6]byte{0x04} // 'a' pressed

	events := diffReports(prev, cur, false, false, false)
	if len(events) != 1 || events[0].Pressed != 1 || events[0].Ascii != 'a' {
		t.Fatalf("expected one press event for 'a', got %+v", events)
	}

	released := diffReports(cur, prev, false, false, false)
	if len(released) != 1 || released[0].Pressed != 0 || released[0].Ascii != 'a' {
		t.Fatalf("expected one release event for 'a', got %+v", released)
	}
}

func TestDiffReportsIgnoresUnchangedKeys(t *testing.T) {
	held := [6]byte{0x04, 0x05}
	events := diffReports(held, held, false, false, false)
	if len(events) != 0 {
		t.Fatalf("expected no events for an unchanged report, got %d", len(events))
	}
}

func TestAsciiForShiftedLetters(t *testing.T) {
	if got := asciiFor(0x04, false); got != 'a' {
		t.Fatalf("expected 'a', got %q", got)
	}
	if got := asciiFor(0x04, true); got != 'A' {
		t.Fatalf("expected 'A', got %q", got)
	}
}

func TestAsciiForDigitsAndShiftedSymbols(t *testing.T) {
	if got := asciiFor(0x1e, false); got != '1' {
		t.Fatalf("expected '1', got %q", got)
	}
	if got := asciiFor(0x1e, true); got != '!' {
		t.Fatalf("expected '!', got %q", got)
	}
}

func TestContainsFindsNonZeroUsageOnly(t *testing.T) {
	keys := [6]byte{0, 0x04, 0}
	if !contains(keys, 0x04) {
		t.Fatalf("expected to find usage 0x04")
	}
	if contains(keys, 0) {
		t.Fatalf("zero usage (no key) must never match")
	}
}

func resetMouseForTest() {
	mouse.mu.Lock()
	mouse.x, mouse.y, mouse.buttons = 0, 0, 0
	mouse.mu.Unlock()
}

func TestMouseReportAccumulatesAndClamps(t *testing.T) {
	resetMouseForTest()
	SetBounds(100, 100)
	onMouseReport(nil, []byte{0x01, 10, 10})
	x, y, buttons := State()
	if x != 10 || y != 10 || buttons != 1 {
		t.Fatalf("unexpected state after first report: x=%d y=%d buttons=%d", x, y, buttons)
	}

	onMouseReport(nil, []byte{0x00, 127, 127}) // 127 as int8 is +127, large jump
	x, y, _ = State()
	if x != 100 || y != 100 {
		t.Fatalf("expected clamp to bounds, got x=%d y=%d", x, y)
	}
}

func TestMouseReportNegativeDelta(t *testing.T) {
	resetMouseForTest()
	SetBounds(100, 100)
	onMouseReport(nil, []byte{0, 0xf6 /* -10 */, 0xf6})
	x, y, _ := State()
	if x != 0 || y != 0 {
		t.Fatalf("expected clamp to zero floor, got x=%d y=%d", x, y)
	}
}
