package xhci

// USB standard descriptor field offsets and types, used only for the
// handful of requests spec §4.6 issues during enumeration (device,
// configuration, interface, endpoint, HID report).
const (
	descDevice        = 1
	descConfiguration = 2
	descInterface     = 4
	descEndpoint      = 5
	descHIDReport     = 0x22
)

const (
	classHID     = 0x03
	subclassBoot = 0x01
	protoKeyboard = 0x01
	protoMouse    = 0x02
)

// deviceMaxPacket0 reads bMaxPacketSize0 out of an (at least 8-byte)
// device descriptor prefix (spec §4.6 step 4b).
func deviceMaxPacket0(buf []byte) uint16 { return uint16(buf[7]) }

// deviceVIDPID reads idVendor/idProduct/bDeviceClass out of a full
// 18-byte device descriptor (spec §4.6 step 5).
func deviceVIDPID(buf []byte) (vid, pid uint16, class uint8) {
	vid = uint16(buf[8]) | uint16(buf[9])<<8
	pid = uint16(buf[10]) | uint16(buf[11])<<8
	class = buf[4]
	return
}

// candidateEndpoint is an interrupt-IN endpoint found while walking a
// configuration descriptor behind a HID boot interface (spec §4.6
// step 7).
type candidateEndpoint struct {
	found        bool
	epNum        uint8
	dci          uint8
	maxPacket    uint16
	bInterval    uint8
	protocol     uint8
	bConfigValue uint8
}

// walkConfiguration scans a (possibly truncated, up to 256 bytes)
// configuration descriptor blob for the first HID/Boot interface and
// the first interrupt-IN endpoint that follows it.
func walkConfiguration(buf []byte) candidateEndpoint {
	var result candidateEndpoint
	if len(buf) < 6 {
		return result
	}
	result.bConfigValue = buf[5]
	inHIDBoot := false
	i := 0
	for i+1 < len(buf) {
		length := int(buf[i])
		if length == 0 || i+length > len(buf) {
			break
		}
		descType := buf[i+1]
		switch descType {
		case descInterface:
			if length >= 9 {
				class := buf[i+5]
				subclass := buf[i+6]
				proto := buf[i+7]
				inHIDBoot = class == classHID && subclass == subclassBoot
				if inHIDBoot {
					result.protocol = proto
				}
			}
		case descEndpoint:
			if inHIDBoot && !result.found && length >= 7 {
				addr := buf[i+2]
				attrs := buf[i+3]
				isIN := addr&0x80 != 0
				isInterrupt := attrs&0x3 == 0x3
				if isIN && isInterrupt {
					epNum := addr & 0x0f
					result.found = true
					result.epNum = epNum
					result.dci = epNum*2 + 1
					result.maxPacket = uint16(buf[i+4]) | uint16(buf[i+5])<<8
					result.bInterval = buf[i+6]
				}
			}
		}
		i += length
	}
	return result
}
