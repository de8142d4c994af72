package tcp

import "testing"

const (
	clientIP, serverIP     = 0x0a000001, 0x0a000002
	clientPort, serverPort = 50000, 80
)

func TestThreeWayHandshake(t *testing.T) {
	var server Table_t
	server.Init(16)
	var client Table_t
	client.Init(16)

	listenerID := server.ListenOn(serverPort)
	if server.Slots[listenerID].State != Listen {
		t.Fatalf("expected Listen state")
	}

	clientID, syn := client.Connect(clientIP, serverIP, clientPort, serverPort, 1000)
	if client.Slots[clientID].State != SynSent {
		t.Fatalf("expected SynSent after Connect")
	}

	// server receives SYN
	reply := server.OnPacket(clientIP, serverIP, syn)
	if reply != nil {
		t.Fatalf("listener should not reply directly, it records a pending accept")
	}
	if !server.Slots[listenerID].HasPending {
		t.Fatalf("expected pending accept recorded")
	}

	acceptID, synAck, ok := server.Accept(listenerID, serverIP, 2000)
	if !ok {
		t.Fatalf("expected accept to succeed")
	}
	if server.Slots[acceptID].State != SynReceived {
		t.Fatalf("expected SynReceived after Accept")
	}

	// client receives SYN|ACK
	ackSeg := client.OnPacket(serverIP, clientIP, synAck)
	if client.Slots[clientID].State != Established {
		t.Fatalf("expected client Established after SYN|ACK")
	}
	if ackSeg == nil {
		t.Fatalf("expected client to emit final ACK")
	}

	// server receives final ACK
	server.OnPacket(clientIP, serverIP, ackSeg)
	if server.Slots[acceptID].State != Established {
		t.Fatalf("expected server Established after final ACK")
	}
}

func TestUnknownNonRSTGetsRST(t *testing.T) {
	var srv Table_t
	srv.Init(16)

	stray := srv.buildSegment(&Conn_t{LocalIP: serverIP, RemoteIP: clientIP, LocalPort: serverPort, RemotePort: clientPort}, FlagACK, 100, 0, nil)
	reply := srv.OnPacket(clientIP, serverIP, stray)
	if reply == nil {
		t.Fatalf("expected RST reply to unknown non-RST segment")
	}
	_, _, _, _, flags, _, ok := parseSegment(reply)
	if !ok || flags&FlagRST == 0 {
		t.Fatalf("expected RST flag set in reply")
	}
}

func TestUnknownRSTIsDropped(t *testing.T) {
	var srv Table_t
	srv.Init(16)
	stray := srv.buildSegment(&Conn_t{LocalIP: serverIP, RemoteIP: clientIP, LocalPort: serverPort, RemotePort: clientPort}, FlagRST, 100, 0, nil)
	if reply := srv.OnPacket(clientIP, serverIP, stray); reply != nil {
		t.Fatalf("expected no reply to an unknown RST")
	}
}

func TestDataPathOrderedDelivery(t *testing.T) {
	var srv Table_t
	srv.Init(16)
	id := srv.ListenOn(serverPort)
	srv.Slots[id] = Conn_t{State: Established, LocalIP: serverIP, RemoteIP: clientIP, LocalPort: serverPort, RemotePort: clientPort, RecvNext: 500}
	srv.Slots[id].Recv.Init(make([]byte, 4096))
	srv.byKey.Set(fourTuple{clientIP, clientPort, serverPort}, id)

	seg := srv.buildSegment(&Conn_t{LocalIP: clientIP, RemoteIP: serverIP, LocalPort: clientPort, RemotePort: serverPort}, FlagPSH|FlagACK, 500, 0, []byte("payload"))
	ack := srv.OnPacket(clientIP, serverIP, seg)
	if ack == nil {
		t.Fatalf("expected ACK for in-order data")
	}
	got := make([]byte, 7)
	n := srv.Slots[id].Recv.Read(got)
	if n != 7 || string(got) != "payload" {
		t.Fatalf("expected payload delivered, got %q", got[:n])
	}
	if srv.Slots[id].RecvNext != 507 {
		t.Fatalf("expected RecvNext advanced to 507, got %d", srv.Slots[id].RecvNext)
	}
}

func TestRetransmitStopsAfterMaxRetries(t *testing.T) {
	var srv Table_t
	srv.Init(16)
	srv.Slots[0] = Conn_t{State: Established, SendNext: 10, SendUnack: 0}
	srv.Slots[0].Retrans = Retrans_t{Data: []byte{1, 2, 3}, Retries: 5}

	_, giveUp := srv.CheckRetransmit(0, 100000, 1000)
	if !giveUp {
		t.Fatalf("expected give-up after MaxRetransmits reached")
	}
}
