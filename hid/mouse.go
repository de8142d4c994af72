// Mouse report processing and the mouse_state/set_mouse_bounds
// supplemented syscalls (SPEC_FULL.md "SUPPLEMENTED FEATURES"):
// original_source/kernel/src/Drivers/PS2/Mouse.cpp keeps one global
// cursor position clamped to a programmable screen bound on every
// report, regardless of whether the report came from the PS/2 port or
// a USB HID mouse; this package is that shared piece of state for the
// USB side, read by two HID-format handlers so PS/2 and USB can feed
// the same cursor if ZenithOS ever gains a PS/2 driver too.
//
// A fetched HID Report Descriptor (step 10b) would let a device-
// specific report layout be parsed, but the three-byte layout handled
// here — buttons, signed dX, signed dY; any further bytes, such as a
// scroll-wheel byte, are ignored — covers the near-universal
// boot-compatible mouse report shape; full report-descriptor-driven field parsing is left
// to userland, per spec §4.6 step 10b ("so userland can parse the
// report layout").
package hid

import (
	"sync"

	"zenithos/xhci"
)

type mouseState struct {
	mu             sync.Mutex
	x, y           int32
	buttons        uint8
	maxX, maxY     int32
}

var mouse = mouseState{maxX: 1024, maxY: 768}

// SetBounds implements set_mouse_bounds: clamps future (and the
// current) position to [0, maxX] x [0, maxY].
func SetBounds(maxX, maxY int32) {
	mouse.mu.Lock()
	defer mouse.mu.Unlock()
	mouse.maxX = maxX
	mouse.maxY = maxY
	mouse.x = clamp32(mouse.x, 0, maxX)
	mouse.y = clamp32(mouse.y, 0, maxY)
}

// State implements mouse_state: returns the current cursor position
// and button mask.
func State() (x, y int32, buttons uint8) {
	mouse.mu.Lock()
	defer mouse.mu.Unlock()
	return mouse.x, mouse.y, mouse.buttons
}

func clamp32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// onMouseReport is registered with xhci as the mouse ReportHandler.
func onMouseReport(_ *xhci.SlotInfo, report []byte) {
	if len(report) < 3 {
		return
	}
	buttons := report[0] & 0x07
	dx := int32(int8(report[1]))
	dy := int32(int8(report[2]))

	mouse.mu.Lock()
	mouse.buttons = buttons
	mouse.x = clamp32(mouse.x+dx, 0, mouse.maxX)
	mouse.y = clamp32(mouse.y+dy, 0, mouse.maxY)
	mouse.mu.Unlock()
}
