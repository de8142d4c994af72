// Package hid dispatches xHCI interrupt-IN reports to a keyboard or
// mouse processor — spec §6's "small tagged-union or two registered
// handlers indexed by interface protocol" — and holds the shared
// input-device state (the keyboard delivery target, the mouse cursor)
// that §9's supplemented syscalls read.
package hid

import "zenithos/xhci"

// Init registers this package's keyboard and mouse report handlers
// with the xHCI driver. Call once during boot, after xhci.Init.
func Init() {
	xhci.RegisterKeyboardHandler(onKeyboardReport)
	xhci.RegisterMouseHandler(onMouseReport)
}
