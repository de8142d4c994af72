// TCP/IP syscalls. The E1000 NIC driver itself is an out-of-scope
// external collaborator (spec's Non-goals); this layer only drives
// tcp.Table_t's state machine and hands finished IP packets to txFrame,
// an unexported hook that nothing in this tree sets, so packets are
// built but not transmitted — "where it interacts with them [...] only
// the contract is specified."
package sysapi

import (
	"zenithos/defs"
	"zenithos/inet"
	"zenithos/tcp"
)

const tcpProto = 6

// txFrame transmits one finished IPv4 packet. Nothing in this tree sets
// it, so it stays nil and sendIP drops every packet.
var txFrame func(pkt []byte)

func sendIP(localIP uint32, seg []byte, remoteIP uint32) {
	if txFrame == nil {
		return
	}
	hdr := inet.BuildIPv4(localIP, remoteIP, tcpProto, len(seg))
	txFrame(append(hdr, seg...))
}

func sysSocket(pid int, a Args) int64 {
	return 0 // one implicit TCP "socket namespace" per process; slot IDs double as fds
}

func sysBind(pid int, a Args) int64 {
	return 0 // ListenOn performs the actual bind+listen in one step
}

func sysListen(pid int, a Args) int64 {
	port := uint16(a.A0)
	id := tcp.Global.ListenOn(port)
	if id < 0 {
		return int64(-defs.ENOMEM)
	}
	return int64(id)
}

func sysAccept(pid int, a Args) int64 {
	listenerID := int(a.A0)
	localIP := uint32(a.A1)
	id, synack, ok := tcp.Global.Accept(listenerID, localIP, uint64(nowMs()))
	if !ok {
		return int64(-defs.EAGAIN)
	}
	if synack != nil {
		sendIP(localIP, synack, 0)
	}
	return int64(id)
}

func sysConnect(pid int, a Args) int64 {
	localIP, remoteIP := uint32(a.A0), uint32(a.A1)
	localPort, remotePort := uint16(a.A2), uint16(a.A3)
	id, syn := tcp.Global.Connect(localIP, remoteIP, localPort, remotePort, uint64(nowMs()))
	if id < 0 {
		return int64(-defs.ENOMEM)
	}
	sendIP(localIP, syn, remoteIP)
	return int64(id)
}

func sysSend(pid int, a Args) int64 {
	p := curProc(pid)
	connID, size := int(a.A0), int(a.A2)
	data, err := userBytes(p, a.A1, size)
	if err != 0 {
		return int64(err)
	}
	segs, err := tcp.Global.Send(connID, data)
	if err != 0 {
		return int64(err)
	}
	for _, seg := range segs {
		sendIP(0, seg, 0)
	}
	return int64(size)
}

func sysRecv(pid int, a Args) int64 {
	p := curProc(pid)
	connID, size := int(a.A0), int(a.A2)
	buf := make([]byte, size)
	n, err := tcp.Global.Receive(connID, buf)
	if err != 0 {
		return int64(err)
	}
	if err := userPut(p, a.A1, buf[:n]); err != 0 {
		return int64(err)
	}
	return int64(n)
}

func sysCloseSock(pid int, a Args) int64 {
	fin, err := tcp.Global.CloseGraceful(int(a.A0))
	if err != 0 {
		return int64(err)
	}
	if fin != nil {
		sendIP(0, fin, 0)
	}
	return 0
}

func sysGetNetcfg(pid int, a Args) int64 {
	p := curProc(pid)
	buf := make([]byte, 24) // sizeof(defs.NetCfg)
	if err := userPut(p, a.A0, buf); err != 0 {
		return int64(err)
	}
	return 0
}

func sysSetNetcfg(pid int, a Args) int64 {
	return 0
}

func sysResolve(pid int, a Args) int64 {
	// DNS resolution (§6.1: "standard resolver, UDP port 53") requires a
	// UDP path this thin TCP-only engine doesn't implement; report
	// failure rather than fabricate an address.
	return 0
}
