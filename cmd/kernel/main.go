// Command kernel is the boot entry point. It brings up every subsystem
// in the dependency order spec §2 lays out (leaves first): PFA and the
// HHDM, the process/scheduler pair, the entropy source, the VFS, the
// net stack, then the window server, framebuffer, xHCI and HID, and
// finally the init userland program with its I/O redirection bundle. biscuit's own kernel main() was not
// retrieved intact in the pack (only chentry.go and the fs/mem sources
// survived filtering), so this entry point is assembled from the
// package Init functions each subsystem already exposes, in the order
// §2's dependency table gives, rather than adapted line-by-line from a
// teacher main.go.
package main

import (
	"fmt"

	"zenithos/defs"
	"zenithos/elf"
	"zenithos/hal"
	"zenithos/hid"
	"zenithos/ioredir"
	"zenithos/limits"
	"zenithos/mem"
	"zenithos/proc"
	"zenithos/rng"
	"zenithos/sched"
	"zenithos/sysapi"
	"zenithos/tcp"
	"zenithos/ustr"
	"zenithos/vfs"
	"zenithos/vm"
	"zenithos/winserver"
	"zenithos/xhci"
)

// multibootInfo is filled in by the assembly stub that hands off from
// the bootloader; fields are physical addresses/sizes, not Go pointers,
// since they describe memory the Go runtime does not yet own.
type multibootInfo struct {
	freeStart  uint32 // first physical frame after the kernel image
	freeFrames uint32 // total usable frames starting there
	hhdmBase   uintptr
	ramdiskPA  mem.Pa_t
	ramdiskLen uint32
	initPath   string
}

// bootInfo is filled in by the loader's handoff stub before main runs.
var bootInfo multibootInfo

func main() {
	initMemory()
	initProcessesAndScheduler()
	initConsoleAndEntropy()
	// Interrupts go live here, once the IDT/scheduler/tick counter they
	// drive are ready — xHCI enumeration's mandated recovery waits
	// (busySleepMs, below) need ticks actually advancing.
	hal.Sti()
	initFilesystem()
	initNetworking()
	initWindowServerAndInput()
	spawnInit()
	runScheduler()
}

// initMemory brings up the physical frame allocator over the free-frame
// run the loader reported, the HHDM, and the kernel's own PML4.
func initMemory() {
	mem.Global.Init(bootInfo.freeStart, bootInfo.freeFrames, bootInfo.hhdmBase)
	sysapi.SetKernelPML4(mem.Pa_t(hal.ReadCR3()))
	fmt.Printf("kernel: %d frames available via HHDM at %#x\n", bootInfo.freeFrames, bootInfo.hhdmBase)
}

// initProcessesAndScheduler allocates the fixed process table and
// wires the round-robin scheduler to it.
func initProcessesAndScheduler() {
	proc.Global.Init()
	sched.Global.Init(&proc.Global)
}

// initConsoleAndEntropy seeds the CSPRNG from the cycle counter
// observed so far, the only source of boot-time entropy available
// before any device driver has run.
func initConsoleAndEntropy() {
	rng.SeedFromTicks(hal.Rdtsc())
}

// initFilesystem maps the ramdisk image the loader placed in memory and
// hands it to the flat VFS.
func initFilesystem() {
	img := mem.DmapBytes(bootInfo.ramdiskPA, int(bootInfo.ramdiskLen))
	if err := vfs.Global.Init(img, limits.Syslimit.VFSHandles, limits.Syslimit.VFSWritableCap); err != 0 {
		panic(fmt.Sprintf("kernel: ramdisk image rejected: %d", err))
	}
}

// initNetworking brings up the TCP connection table. The NIC driver
// itself is an external collaborator (spec's Non-goals); sysapi.txFrame
// is unexported and left nil, so SYS_SEND/SYS_CONNECT build segments
// but do not transmit them.
func initNetworking() {
	tcp.Global.Init(limits.Syslimit.TCPConns)
}

// initWindowServerAndInput brings up the compositor's slot table, then
// the xHCI host controller and its HID dispatch, and the framebuffer
// syscall surface's backing pages. A system with no xHCI controller
// (e.g. running under a hypervisor without USB passthrough) boots with
// no input devices rather than failing.
func initWindowServerAndInput() {
	winserver.Global.Init(defs.NWIN)
	sysapi.InitFramebuffer()
	xhci.SetSleeper(busySleepMs)

	if _, ok := xhci.Init(); ok {
		hid.Init()
		xhci.Global.ScanPorts()
	} else {
		fmt.Println("kernel: no xHCI controller found, input disabled")
	}
}

// uptimeTicks counts completed timer ticks; onTick is its only writer.
var uptimeTicks int64

// busySleepMs blocks the calling context for roughly ms milliseconds by
// yielding once per tick until uptimeTicks has advanced enough — the
// scheduler-integrated delay xHCI enumeration's mandated recovery
// waits need, in place of a bare CPU spin loop.
func busySleepMs(ms int) {
	target := uptimeTicks + int64(ms)/defs.TickMillis + 1
	for uptimeTicks < target {
		sched.Global.Yield()
	}
}

// spawnInit loads the init program named by the bootloader/ramdisk
// convention and starts it in the first free process-table slot (pid 0
// on a fresh table).
func spawnInit() {
	path := bootInfo.initPath
	if path == "" {
		path = "0:/bin/init"
	}
	pid := proc.Global.Alloc(-1, path)
	if pid < 0 {
		panic("kernel: could not allocate init's process slot")
	}
	p := proc.Global.Get(pid)
	p.AS = vm.CreateUserPML4(mem.Pa_t(hal.ReadCR3()))
	entry := elf.Load(ustr.Ustr(path), p.AS)
	if entry == 0 {
		panic("kernel: failed to load init program " + path)
	}
	p.UstackTop = sysapi.NewUserStack(p.AS)
	ioredir.Create(p, 80, 25)
	p.SliceRemaining = defs.TimeSliceMillis
	fmt.Printf("kernel: init (pid %d) entry %#x\n", pid, entry)
}

// runScheduler parks the boot context in a halt loop; every real unit
// of work from here on happens in onTick or a ring-3 process, never
// returns on a healthy boot.
func runScheduler() {
	for {
		hal.Hlt()
	}
}

// onTick is the timer interrupt handler. The IDT stub that vectors the
// timer IRQ to it is outside this package's scope (it is hand-written
// assembly specific to the boot image, not portable Go); onTick is the
// Go-side half of that contract, parallel to how hal's bodyless
// functions are the Go-side half of their own assembly counterparts.
func onTick() {
	uptimeTicks++
	switchTo(sched.Global.Tick())
	sysapi.Tick()
	if xhci.Global != nil {
		xhci.Global.ProcessDeferredWork()
	}
}

// runningPid is the pid hal.KernelTSS/hal.KernelRSP currently belong
// to, -1 when nothing has run yet.
var runningPid = -1

// switchTo drives the actual ring-3 entry for the pid the scheduler
// picked: §4.2/§9's context switch loads the incoming process's CR3
// and kernel stack and records where the outgoing context's stack
// pointer ended up so it resumes from the same point on its next turn.
// A nil AS (the idle return value, or a slot with no address space
// yet) leaves the running context alone.
func switchTo(next int) {
	if next < 0 || next == runningPid {
		return
	}
	p := proc.Global.Get(next)
	if p == nil || p.AS == nil {
		return
	}
	saved := hal.SwitchContext(uintptr(p.AS.Pml4), p.SavedRSP, p.KstackTop)
	if prev := proc.Global.Get(runningPid); prev != nil {
		prev.SavedRSP = saved
	}
	runningPid = next
}
