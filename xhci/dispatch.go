package xhci

// ReportHandler receives one interrupt-IN report for a given slot.
type ReportHandler func(slot *SlotInfo, report []byte)

var (
	keyboardHandler ReportHandler
	mouseHandler    ReportHandler
)

// RegisterKeyboardHandler installs the HID keyboard report processor.
// Called once by the hid package at init; xhci never imports hid
// (hid imports xhci) so this registration, not a type switch or an
// interface, is the tagged-dispatch point spec §6 calls for.
func RegisterKeyboardHandler(h ReportHandler) { keyboardHandler = h }

// RegisterMouseHandler installs the HID mouse report processor.
func RegisterMouseHandler(h ReportHandler) { mouseHandler = h }

func dispatchReport(s *SlotInfo, report []byte) {
	switch s.Kind {
	case KindKeyboard:
		if keyboardHandler != nil {
			keyboardHandler(s, report)
		}
	case KindMouse:
		if mouseHandler != nil {
			mouseHandler(s, report)
		}
	}
}
