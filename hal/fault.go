// Diagnostics for the §7 kind-5 fatal-fault path: when a page fault or
// general-protection fault lands somewhere the fault handler can't
// attribute to a known user-mode access pattern, it hands the faulting
// instruction bytes here for disassembly so the panic message names the
// actual instruction instead of a bare address. golang.org/x/arch's
// x86asm decoder is already in the pack's dependency graph (biscuit's
// cmd/compile toolchain fork uses it for its own disassembler); this is
// the only place in ZenithOS that needs an x86 instruction decoder.
package hal

import "golang.org/x/arch/x86/x86asm"

// DecodeFault disassembles the single instruction at the start of code,
// returning a human-readable mnemonic form for the fatal-fault panic
// message caller.Panicf prints. code should be the bytes read from the
// faulting RIP; mode is 64 for long mode, the only mode ZenithOS runs in.
func DecodeFault(code []byte) string {
	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return "<undecodable instruction>"
	}
	return inst.String()
}
