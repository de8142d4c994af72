// Keyboard boot-report processing: decodes the fixed 8-byte USB HID
// boot keyboard report (modifier byte, reserved byte, 6 simultaneous
// keycodes), detects press/release transitions against the previous
// report, and turns each into a defs.KeyEvent delivered to whichever
// process is currently scheduled to run in the foreground — "a single
// keyboard queue... first arrival wins" per spec §9. Grounded on
// original_source/kernel/src/Drivers/PS2/Keyboard.cpp's modifier-state
// tracking and scancode-to-ASCII table shape, re-expressed for USB HID
// usage codes (Keyboard/Keypad usage page) instead of PS/2 Scancode
// Set 1, since that's what a USB boot keyboard actually reports.
package hid

import (
	"sync"

	"zenithos/defs"
	"zenithos/ioredir"
	"zenithos/proc"
	"zenithos/sched"
	"zenithos/xhci"
)

// Modifier byte bits (report byte 0).
const (
	modLeftCtrl = 1 << iota
	modLeftShift
	modLeftAlt
	modLeftGUI
	modRightCtrl
	modRightShift
	modRightAlt
	modRightGUI
)

// usageToAscii maps HID Keyboard/Keypad usage IDs 0x04-0x38 to their
// unshifted ASCII value (0 if the key has no printable ASCII form).
var usageToAscii = [0x39]byte{
	0x04: 'a', 0x05: 'b', 0x06: 'c', 0x07: 'd', 0x08: 'e', 0x09: 'f',
	0x0a: 'g', 0x0b: 'h', 0x0c: 'i', 0x0d: 'j', 0x0e: 'k', 0x0f: 'l',
	0x10: 'm', 0x11: 'n', 0x12: 'o', 0x13: 'p', 0x14: 'q', 0x15: 'r',
	0x16: 's', 0x17: 't', 0x18: 'u', 0x19: 'v', 0x1a: 'w', 0x1b: 'x',
	0x1c: 'y', 0x1d: 'z',
	0x1e: '1', 0x1f: '2', 0x20: '3', 0x21: '4', 0x22: '5', 0x23: '6',
	0x24: '7', 0x25: '8', 0x26: '9', 0x27: '0',
	0x28: '\n', 0x29: 0x1b, 0x2a: '\b', 0x2b: '\t', 0x2c: ' ',
	0x2d: '-', 0x2e: '=', 0x2f: '[', 0x30: ']', 0x31: '\\',
	0x33: ';', 0x34: '\'', 0x35: '`', 0x36: ',', 0x37: '.', 0x38: '/',
}

// usageToAsciiShifted mirrors usageToAscii for the Shift-held case.
var usageToAsciiShifted = [0x39]byte{
	0x04: 'A', 0x05: 'B', 0x06: 'C', 0x07: 'D', 0x08: 'E', 0x09: 'F',
	0x0a: 'G', 0x0b: 'H', 0x0c: 'I', 0x0d: 'J', 0x0e: 'K', 0x0f: 'L',
	0x10: 'M', 0x11: 'N', 0x12: 'O', 0x13: 'P', 0x14: 'Q', 0x15: 'R',
	0x16: 'S', 0x17: 'T', 0x18: 'U', 0x19: 'V', 0x1a: 'W', 0x1b: 'X',
	0x1c: 'Y', 0x1d: 'Z',
	0x1e: '!', 0x1f: '@', 0x20: '#', 0x21: '$', 0x22: '%', 0x23: '^',
	0x24: '&', 0x25: '*', 0x26: '(', 0x27: ')',
	0x28: '\n', 0x29: 0x1b, 0x2a: '\b', 0x2b: '\t', 0x2c: ' ',
	0x2d: '_', 0x2e: '+', 0x2f: '{', 0x30: '}', 0x31: '|',
	0x33: ':', 0x34: '"', 0x35: '~', 0x36: '<', 0x37: '>', 0x38: '?',
}

type keyboardState struct {
	mu   sync.Mutex
	prev [6]byte
}

var kbState keyboardState

func asciiFor(usage uint8, shift bool) uint8 {
	if int(usage) >= len(usageToAscii) {
		return 0
	}
	if shift {
		return usageToAsciiShifted[usage]
	}
	return usageToAscii[usage]
}

func contains(keys [6]byte, usage byte) bool {
	for _, k := range keys {
		if k != 0 && k == usage {
			return true
		}
	}
	return false
}

// onKeyboardReport is registered with xhci as the keyboard ReportHandler.
func onKeyboardReport(slot *xhci.SlotInfo, report []byte) {
	if len(report) < 8 {
		return
	}
	modifiers := report[0]
	var cur [6]byte
	copy(cur[:], report[2:8])

	shift := modifiers&(modLeftShift|modRightShift) != 0
	ctrl := modifiers&(modLeftCtrl|modRightCtrl) != 0
	alt := modifiers&(modLeftAlt|modRightAlt) != 0

	kbState.mu.Lock()
	prev := kbState.prev
	kbState.prev = cur
	kbState.mu.Unlock()

	for _, ev := range diffReports(prev, cur, shift, ctrl, alt) {
		deliver(ev)
	}
}

// diffReports compares the previous and current set of 6 simultaneous
// keycodes and returns one KeyEvent per press (newly present usage) or
// release (usage that dropped out), in that order.
func diffReports(prev, cur [6]byte, shift, ctrl, alt bool) []defs.KeyEvent {
	var events []defs.KeyEvent
	for _, usage := range cur {
		if usage == 0 || contains(prev, usage) {
			continue
		}
		events = append(events, defs.KeyEvent{
			Scancode: uint32(usage),
			Ascii:    asciiFor(usage, shift),
			Pressed:  1,
			Shift:    boolToU8(shift),
			Ctrl:     boolToU8(ctrl),
			Alt:      boolToU8(alt),
		})
	}
	for _, usage := range prev {
		if usage == 0 || contains(cur, usage) {
			continue
		}
		events = append(events, defs.KeyEvent{
			Scancode: uint32(usage),
			Ascii:    asciiFor(usage, shift),
			Pressed:  0,
			Shift:    boolToU8(shift),
			Ctrl:     boolToU8(ctrl),
			Alt:      boolToU8(alt),
		})
	}
	return events
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// deliver pushes a key event to whichever process the scheduler is
// currently running — the closest thing this single-core, single-
// foreground-process kernel has to a focused input target.
func deliver(ev defs.KeyEvent) {
	pid := sched.Global.Current()
	owner := ioredir.Owner(&proc.Global, pid)
	if owner == nil {
		return
	}
	ioredir.PushKey(owner, ev)
}
