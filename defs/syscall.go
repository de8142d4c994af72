package defs

// Syscall numbers (§6.1). The dispatcher in sysapi indexes its handler
// table by these; they are kept here, not in sysapi, so that other
// packages can reference a syscall number without importing the
// dispatcher.
const (
	SYS_EXIT        = 0
	SYS_YIELD       = 1
	SYS_SLEEP_MS    = 2
	SYS_GETPID      = 3
	SYS_PRINT       = 4
	SYS_PUTCHAR     = 5
	SYS_OPEN        = 6
	SYS_READ        = 7
	SYS_GETSIZE     = 8
	SYS_CLOSE       = 9
	SYS_READDIR     = 10
	SYS_ALLOC       = 11
	SYS_FREE        = 12
	SYS_GET_TICKS   = 13
	SYS_GET_MS      = 14
	SYS_GET_INFO    = 15
	SYS_IS_KEY_AVAIL = 16
	SYS_GET_KEY     = 17
	SYS_GET_CHAR    = 18
	SYS_PING        = 19
	SYS_SPAWN       = 20
	SYS_FB_INFO     = 21
	SYS_FB_MAP      = 22
	SYS_WAIT_PID    = 23
	SYS_TERM_SIZE   = 24
	SYS_GET_ARGS    = 25
	SYS_RESET       = 26
	SYS_SHUTDOWN    = 27
	SYS_GET_TIME    = 28

	SYS_SOCKET      = 29
	SYS_CONNECT     = 30
	SYS_BIND        = 31
	SYS_LISTEN      = 32
	SYS_ACCEPT      = 33
	SYS_SEND        = 34
	SYS_RECV        = 35
	SYS_CLOSE_SOCK  = 36
	SYS_GET_NETCFG  = 37
	SYS_SET_NETCFG  = 38
	SYS_SENDTO      = 39
	SYS_RECVFROM    = 40

	SYS_FWRITE  = 41
	SYS_FCREATE = 42

	SYS_TERM_SCALE = 43
	SYS_RESOLVE    = 44
	SYS_GET_RANDOM = 45

	SYS_KLOG              = 46
	SYS_MOUSE_STATE       = 47
	SYS_SET_MOUSE_BOUNDS  = 48
	SYS_SPAWN_REDIR       = 49
	SYS_CHILDIO_READ      = 50
	SYS_CHILDIO_WRITE     = 51
	SYS_CHILDIO_WRITEKEY  = 52
	SYS_CHILDIO_SETTERMSZ = 53
	SYS_WIN_CREATE        = 54
	SYS_WIN_DESTROY       = 55
	SYS_WIN_PRESENT       = 56
	SYS_WIN_POLL          = 57
	SYS_WIN_ENUM          = 58
	SYS_WIN_MAP           = 59
	SYS_WIN_SEND_EVENT    = 60
	SYS_PROCLIST          = 61
	SYS_KILL              = 62
	SYS_DEVLIST           = 63
)

// KeyEvent mirrors the packed, little-endian wire struct shared with
// userland (§6.1).
type KeyEvent struct {
	Scancode uint32
	Ascii    uint8
	Pressed  uint8
	Shift    uint8
	Ctrl     uint8
	Alt      uint8
	_        [3]uint8 // pad to 4-byte alignment, mirrors the packed C layout
}

// SysInfo answers SYS_GET_INFO.
type SysInfo struct {
	OsName       [32]byte
	OsVersion    [32]byte
	ApiVersion   uint64
	MaxProcesses uint64
}

// FbInfo answers SYS_FB_INFO.
type FbInfo struct {
	W        uint64
	H        uint64
	Pitch    uint64
	Bpp      uint64
	UserAddr uint64
}

// NetCfg is read/written by SYS_GET_NETCFG / SYS_SET_NETCFG. Fields holding
// an IPv4 address are stored in network byte order, as on the wire.
type NetCfg struct {
	IPAddress  uint32
	SubnetMask uint32
	Gateway    uint32
	Mac        [6]byte
	_          [2]byte
	DNSServer  uint32
}

// DateTime answers SYS_GET_TIME.
type DateTime struct {
	Year       uint16
	Mon        uint8
	Day        uint8
	Hour       uint8
	Min        uint8
	Sec        uint8
	_          uint8
}

// WinInfo is one element of the SYS_WIN_ENUM snapshot array.
type WinInfo struct {
	ID       int32
	OwnerPid int32
	W        uint32
	H        uint32
	Dirty    uint8
	_        [3]uint8
	Title    [64]byte
}

// WinEvent is the payload of SYS_WIN_SEND_EVENT / SYS_WIN_POLL.
type WinEvent struct {
	Kind  uint32
	A     int32
	B     int32
	C     int32
}

// ProcInfo is one element of the SYS_PROCLIST snapshot array.
type ProcInfo struct {
	Pid       int32
	ParentPid int32
	State     uint32
	_         uint32
	Name      [32]byte
	UserNs    int64
	SysNs     int64
}

// DevInfo is one element of the SYS_DEVLIST snapshot array (xHCI devices).
type DevInfo struct {
	SlotID    uint8
	PortID    uint8
	Speed     uint8
	Active    uint8
	VID       uint16
	PID       uint16
	Class     uint8
	_         [3]uint8
}

// MouseState answers SYS_MOUSE_STATE.
type MouseState struct {
	X       int32
	Y       int32
	Buttons uint8
	_       [3]uint8
}
