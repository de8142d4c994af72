// Package hal is the hardware abstraction layer: the handful of
// operations no Go function body can express (port I/O, the
// interrupt flag, loading control/segment registers, reading the
// cycle counter). Every function in this file is bodyless; each has a
// matching TEXT symbol in hal_amd64.s. This is gopher-os's convention
// (kernel/cpu/cpu_amd64.go declares EnableInterrupts/DisableInterrupts/
// Halt/SwitchPDT/ActivePDT with no body, backed by hand-written Plan 9
// assembly) generalized to the fuller instruction set spec §4.1/§4.6
// need: port I/O for legacy PC devices, GDT/IDT/TSS loading for the
// segment and interrupt setup in §4.2, and MSR access for the APIC
// and xHCI MSI-X configuration in §4.6.
package hal

// Outb writes a byte to an I/O port.
func Outb(port uint16, val uint8)

// Inb reads a byte from an I/O port.
func Inb(port uint16) uint8

// Outw writes a word to an I/O port.
func Outw(port uint16, val uint16)

// Inw reads a word from an I/O port.
func Inw(port uint16) uint16

// Outl writes a doubleword to an I/O port.
func Outl(port uint16, val uint32)

// Inl reads a doubleword from an I/O port.
func Inl(port uint16) uint32

// Cli clears the interrupt flag.
func Cli()

// Sti sets the interrupt flag.
func Sti()

// Hlt halts the CPU until the next interrupt.
func Hlt()

// LoadCR3 sets the root page table (PML4) physical address.
func LoadCR3(pml4 uintptr)

// ReadCR3 returns the current PML4 physical address.
func ReadCR3() uintptr

// Lgdt loads the global descriptor table from a packed
// limit:base descriptor at ptr.
func Lgdt(ptr uintptr)

// Lidt loads the interrupt descriptor table from a packed
// limit:base descriptor at ptr.
func Lidt(ptr uintptr)

// Ltr loads the task register with the given GDT selector.
func Ltr(selector uint16)

// Wrmsr writes a model-specific register.
func Wrmsr(msr uint32, val uint64)

// Rdmsr reads a model-specific register.
func Rdmsr(msr uint32) uint64

// Rdtsc returns the CPU's free-running timestamp counter, the only
// tick source available before the APIC timer is programmed.
func Rdtsc() uint64

// Invlpg invalidates a single TLB entry for the given virtual address.
func Invlpg(addr uintptr)

// Tss_t is the x86_64 Task State Segment, trimmed to the one field
// this kernel's ring-3 transitions need: Rsp0, the stack pointer the
// CPU loads into RSP when a syscall or interrupt lifts a running
// user-mode process into ring 0.
type Tss_t struct {
	_    uint32
	Rsp0 uint64
	_    [88]byte
}

// KernelTSS is the kernel's single task state segment (spec §2 rules
// out SMP, so one TSS covers the one core), installed once at boot via
// Ltr and kept current by SwitchContext on every context switch so the
// next trap from ring 3 lands on the incoming process's kernel stack.
var KernelTSS Tss_t

// KernelRSP mirrors KernelTSS.Rsp0 in a plain word the syscall-entry
// trampoline can load directly, the "kernel_rsp" scratch cell §4.2/§9
// name alongside TSS.rsp0.
var KernelRSP uintptr

// SwitchContext swaps the running context's callee-saved registers and
// stack pointer for the incoming process's saved rsp, loads cr3 (the
// incoming process's address space), and rewrites KernelTSS.Rsp0 and
// KernelRSP to kstackTop so the next trap into ring 0 lands there. It
// returns the outgoing context's stack pointer at the point of the
// swap; the caller records that as the outgoing process's SavedRSP for
// its next turn. Grounded on the same register-load convention as
// LoadCR3 above, generalized from a single register to a full context
// swap per §4.2/§9's context-switch contract.
func SwitchContext(cr3 uintptr, rsp uintptr, kstackTop uintptr) (savedRSP uintptr)

// SyscallEntry is an entry stub for the `syscall` instruction: it
// switches onto KernelRSP before anything else touches the stack. hal
// does not install it; no code in this tree writes IA32_LSTAR,
// IA32_STAR, IA32_FMASK, or the GDT selectors SYSCALL/SYSRET expect.
func SyscallEntry()
