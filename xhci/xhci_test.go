package xhci

import "testing"

func TestWalkConfigurationFindsKeyboardInterruptIn(t *testing.T) {
	buf := make([]byte, 0, 64)
	// Configuration descriptor (9 bytes): length, type, wTotalLength, ...
	buf = append(buf, 9, descConfiguration, 0, 0, 1, 1, 0, 0, 50)
	// Interface descriptor: HID, Boot, Keyboard.
	buf = append(buf, 9, descInterface, 0, 0, 1, classHID, subclassBoot, protoKeyboard, 0)
	// Endpoint descriptor: IN, interrupt, maxpacket=8, bInterval=10.
	buf = append(buf, 7, descEndpoint, 0x81, 0x03, 8, 0, 10)

	cand := walkConfiguration(buf)
	if !cand.found {
		t.Fatalf("expected to find an interrupt-IN endpoint")
	}
	if cand.protocol != protoKeyboard {
		t.Fatalf("expected keyboard protocol, got %d", cand.protocol)
	}
	if cand.maxPacket != 8 {
		t.Fatalf("expected maxPacket=8, got %d", cand.maxPacket)
	}
	if cand.dci != 3 { // epNum=1, IN -> dci = 1*2+1 = 3
		t.Fatalf("expected dci=3, got %d", cand.dci)
	}
}

func TestWalkConfigurationIgnoresNonBootInterface(t *testing.T) {
	buf := make([]byte, 0, 32)
	buf = append(buf, 9, descConfiguration, 0, 0, 1, 1, 0, 0, 50)
	buf = append(buf, 9, descInterface, 0, 0, 1, 0x08 /* mass storage */, 0, 0, 0)
	buf = append(buf, 7, descEndpoint, 0x81, 0x03, 64, 0, 4)

	cand := walkConfiguration(buf)
	if cand.found {
		t.Fatalf("expected no HID endpoint to be found behind a non-HID interface")
	}
}

func TestDeviceVIDPIDParsing(t *testing.T) {
	desc := make([]byte, 18)
	desc[4] = 0x03 // class
	desc[8] = 0xad
	desc[9] = 0xde
	desc[10] = 0xef
	desc[11] = 0xbe
	vid, pid, class := deviceVIDPID(desc)
	if vid != 0xdead || pid != 0xbeef || class != 0x03 {
		t.Fatalf("unexpected parse: vid=%#x pid=%#x class=%#x", vid, pid, class)
	}
}

func TestSpeedHeuristic(t *testing.T) {
	cases := map[uint8]uint16{1: 8, 2: 8, 3: 64, 4: 512}
	for speed, want := range cases {
		if got := speedHeuristic(speed); got != want {
			t.Fatalf("speed %d: want %d got %d", speed, want, got)
		}
	}
}

func TestIntervalFromBIntervalHighSpeedPassesThrough(t *testing.T) {
	if got := intervalFromBInterval(3, 6); got != 6 {
		t.Fatalf("expected HS bInterval to pass through, got %d", got)
	}
}

func TestIntervalFromBIntervalFullSpeedConverts(t *testing.T) {
	// FS bInterval is in frames (1ms); 8 microframes per ms, so
	// bInterval=1 -> 8 microframes -> log2(8) = 3.
	if got := intervalFromBInterval(1, 1); got != 3 {
		t.Fatalf("expected log2(8)=3, got %d", got)
	}
}

func TestPackSetupLittleEndianLayout(t *testing.T) {
	v := packSetup(0x80, 6, 0x0100, 0, 18)
	if uint8(v) != 0x80 {
		t.Fatalf("bmRequestType mismatch")
	}
	if uint8(v>>8) != 6 {
		t.Fatalf("bRequest mismatch")
	}
	if uint16(v>>16) != 0x0100 {
		t.Fatalf("wValue mismatch")
	}
	if uint16(v>>48) != 18 {
		t.Fatalf("wLength mismatch")
	}
}

func TestVidPidKeyRoundTrip(t *testing.T) {
	k := vidPidKey(0xdead, 0xbeef)
	if k != 0xdeadbeef {
		t.Fatalf("expected packed key 0xdeadbeef, got %#x", k)
	}
}
