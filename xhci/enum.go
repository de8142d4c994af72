package xhci

import "zenithos/mem"

// Control transfer direction/type fields (Setup Stage TRB TRT, Data/
// Status Stage TRB DIR), xHCI 1.x §6.4.1.2.
const (
	trtNoData  = 0
	trtOutData = 2
	trtInData  = 3

	dirOut = 0
	dirIn  = 1
)

const ctrlIDT = 1 << 6 // Setup Stage TRB Immediate Data bit
const ctrlIOC = 1 << 5
const ctrlDirShift = 16

func setupCtrl(trt uint32) uint32 { return mkCtrlFields(TRBSetupStage) | ctrlIDT | trt<<16 }
func dataCtrl(dir uint32) uint32  { return mkCtrlFields(TRBDataStage) | dir<<ctrlDirShift }
func statusCtrl(dir uint32) uint32 {
	return mkCtrlFields(TRBStatusStage) | dir<<ctrlDirShift | ctrlIOC
}
func mkCtrlFields(t uint32) uint32 { return t << 10 }

// packSetup builds the little-endian 8-byte USB SETUP packet as a
// uint64, suitable for a Setup Stage TRB's Immediate Data parameter.
func packSetup(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) uint64 {
	return uint64(bmRequestType) |
		uint64(bRequest)<<8 |
		uint64(wValue)<<16 |
		uint64(wIndex)<<32 |
		uint64(wLength)<<48
}

// controlTransfer runs the three-TRB control-transfer state machine of
// spec §4.6 ("Control transfer state machine") on a slot's EP0 ring
// and waits (bounded) for the Status Stage's completion event.
func (c *Controller) controlTransfer(slotID uint8, bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16, buf mem.Pa_t, deviceToHost bool) bool {
	s := &c.slots[slotID]
	ring := s.EP0

	if wLength == 0 {
		ring.EnqueueRaw(packSetup(bmRequestType, bRequest, wValue, wIndex, wLength), 8, setupCtrl(trtNoData))
		ring.EnqueueRaw(0, 0, statusCtrl(dirIn))
	} else {
		dataDir := uint32(dirOut)
		statusDir := uint32(dirIn)
		trt := uint32(trtOutData)
		if deviceToHost {
			dataDir = dirIn
			statusDir = dirOut
			trt = trtInData
		}
		ring.EnqueueRaw(packSetup(bmRequestType, bRequest, wValue, wIndex, wLength), 8, setupCtrl(trt))
		ring.EnqueueRaw(uint64(buf), uint32(wLength), dataCtrl(dataDir))
		ring.EnqueueRaw(0, 0, statusCtrl(statusDir))
	}

	c.ringDoorbell(uint32(slotID), 1) // DCI 1 = EP0
	for i := 0; i < spinBound; i++ {
		t, has := c.evtRing.Poll()
		if !has {
			continue
		}
		switch trbType(t.Ctrl) {
		case TRBTransferEvent:
			if uint8(t.Ctrl>>24) == slotID && uint8((t.Ctrl>>16)&0x1f) == 1 {
				completionEHB(c)
				return uint8(t.Status>>24) == 1 // COMP_SUCCESS
			}
		case TRBCommandCompletion:
			c.pending.code = uint8(t.Status >> 24)
			c.pending.slotID = uint8(t.Ctrl >> 24)
			c.pending.waiting = true
		case TRBPortStatusChange:
			c.onPortStatusChange(t)
		}
	}
	return false
}

// enumerate runs the 13-step device enumeration procedure of spec
// §4.6 for a freshly connected or reset port of known speed.
func (c *Controller) enumerate(port uint8, speed uint8) {
	// 1. Enable Slot.
	code, slotID, ok := c.submitCommand(0, 0, TRBEnableSlot)
	if !ok || code != 1 {
		return
	}
	if int(slotID) >= len(c.slots) {
		return
	}
	s := &c.slots[slotID]
	*s = SlotInfo{Port: port, Speed: speed}

	// 2. Output device context.
	devCtxPa, ok := mem.Global.Alloc()
	if !ok {
		c.releaseSlotSoft(slotID)
		return
	}
	s.DeviceCtx = devCtxPa
	c.dcbaa[slotID] = uint64(devCtxPa)

	// 3. Input context: slot + EP0.
	inputPa, inputBuf := newContextPage()
	putLE32(inputBuf, icAddFlags, 0x3) // slot + EP0
	putSlotContext(inputBuf, speed, port+1, 1)
	s.EP0 = NewRing()
	mp0 := speedHeuristic(speed)
	putEndpointContext(inputBuf, 1, epTypeControl, mp0, 3, s.EP0)
	s.MaxPacket = mp0

	// 4a. Address Device, BSR=1.
	const bsrBit = 1 << 9
	code, _, ok = c.submitCommandRaw(uint64(inputPa), 0, mkCtrlFields(TRBAddressDevice)|bsrBit)
	if !ok || code != 1 {
		c.releaseSlotSoft(slotID)
		return
	}

	// 4b. GET_DESCRIPTOR(Device, 8 bytes).
	descPa, descBuf := newContextPage()
	if !c.controlTransfer(slotID, 0x80, 6, uint16(descDevice)<<8, 0, 8, descPa, true) {
		c.releaseSlotSoft(slotID)
		return
	}
	realMP0 := deviceMaxPacket0(descBuf)

	// 4c. Evaluate Context if it differs.
	if realMP0 != 0 && realMP0 != mp0 {
		evalPa, evalBuf := newContextPage()
		putLE32(evalBuf, icAddFlags, 0x2) // EP0 only
		putEndpointContext(evalBuf, 1, epTypeControl, realMP0, 3, s.EP0)
		c.submitCommand(uint64(evalPa), 0, TRBEvaluateContext)
		s.MaxPacket = realMP0
	}

	// 4d. Address Device, BSR=0.
	code, _, ok = c.submitCommand(uint64(inputPa), 0, TRBAddressDevice)
	if !ok || code != 1 {
		c.releaseSlotSoft(slotID)
		return
	}
	sleepMs(10)

	// 5. Full device descriptor.
	if !c.controlTransfer(slotID, 0x80, 6, uint16(descDevice)<<8, 0, 18, descPa, true) {
		c.releaseSlotSoft(slotID)
		return
	}
	s.VID, s.PID, s.Class = deviceVIDPID(descBuf)

	// 6. Configuration descriptor: header first, then full length.
	cfgPa, cfgBuf := newContextPage()
	if !c.controlTransfer(slotID, 0x80, 6, uint16(descConfiguration)<<8, 0, 9, cfgPa, true) {
		c.releaseSlotSoft(slotID)
		return
	}
	totalLen := int(cfgBuf[2]) | int(cfgBuf[3])<<8
	if totalLen > 256 {
		totalLen = 256
	}
	if totalLen > 9 {
		if !c.controlTransfer(slotID, 0x80, 6, uint16(descConfiguration)<<8, 0, uint16(totalLen), cfgPa, true) {
			c.releaseSlotSoft(slotID)
			return
		}
	}

	// 7. Walk the configuration blob for a HID/Boot interface + its
	// first interrupt-IN endpoint.
	cand := walkConfiguration(cfgBuf[:totalLen])

	// 8. SET_CONFIGURATION.
	if !c.controlTransfer(slotID, 0x00, 9, uint16(cand.bConfigValue), 0, 0, 0, false) {
		c.releaseSlotSoft(slotID)
		return
	}

	s.Kind = KindUnknown
	switch {
	case cand.found && cand.protocol == protoKeyboard:
		s.Kind = KindKeyboard
	case cand.found && cand.protocol == protoMouse:
		s.Kind = KindMouse
	default:
		if kind, ok := c.quirks.Get(vidPidKey(s.VID, s.PID)); ok {
			s.Kind = kind
		}
	}

	// 9. Configure Endpoint for the interrupt-IN pipe, if any.
	if cand.found {
		cfgInputPa, cfgInputBuf := newContextPage()
		putLE32(cfgInputBuf, icAddFlags, 1<<uint32(cand.dci))
		putSlotContext(cfgInputBuf, speed, port+1, cand.dci+1)
		s.IntrRing = NewRing()
		interval := intervalFromBInterval(speed, cand.bInterval)
		putEndpointContext(cfgInputBuf, cand.dci, epTypeInterruptIn, cand.maxPacket, 3, s.IntrRing)
		putLE32(cfgInputBuf, epCtxOff(cand.dci), uint32(interval)<<16)
		s.IntrEP = cand.dci
		s.MaxPacket = cand.maxPacket
		c.submitCommand(uint64(cfgInputPa), 0, TRBConfigureEndpoint)
	}

	// 10. SET_PROTOCOL(Boot) for keyboards.
	if s.Kind == KindKeyboard {
		c.controlTransfer(slotID, 0x21, 0x0b, 0 /* Boot Protocol */, 0, 0, 0, false)
	}
	// 10b. GET_DESCRIPTOR(HID Report) for mice.
	if s.Kind == KindMouse {
		repPa, _ := newContextPage()
		c.controlTransfer(slotID, 0x81, 6, uint16(descHIDReport)<<8, 0, 256, repPa, true)
	}

	// 11. SET_IDLE(4) for keyboards (16 ms).
	if s.Kind == KindKeyboard {
		c.controlTransfer(slotID, 0x21, 0x0a, 4<<8, 0, 0, 0, false)
	}

	// 12. Queue the first interrupt-IN Normal TRB.
	if cand.found {
		bufPa, ok := mem.Global.Alloc()
		if ok {
			s.IntrBuf = bufPa
			s.IntrRing.Enqueue(uint64(bufPa), uint32(cand.maxPacket), TRBNormal)
			c.ringDoorbell(uint32(slotID), uint32(cand.dci))
		}
	}

	// 13. Register with the HID driver (dispatch.go's per-kind
	// handler table — the slot now carries s.Kind for dispatchReport).
	s.Active = true
}

// releaseSlotSoft marks a slot inactive on enumeration failure. Its
// device context, transfer rings, and DCBAA reservation are not freed
// — a documented leak (spec §9 "Known limitations").
func (c *Controller) releaseSlotSoft(slotID uint8) {
	if int(slotID) < len(c.slots) {
		c.slots[slotID].Active = false
	}
}

// sleepMs is a placeholder for the scheduler-integrated delay the
// real kernel uses during enumeration (the 10 ms SET_ADDRESS recovery
// wait); cmd/kernel wires this to the scheduler's sleep primitive via
// SetSleeper.
var sleepMs = func(ms int) {}

// SetSleeper installs the busy-wait/scheduler-integrated delay function
// enumeration uses for its mandated recovery waits. Called once from
// cmd/kernel after the timer tick source is live.
func SetSleeper(f func(ms int)) {
	sleepMs = f
}
