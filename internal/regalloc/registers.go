// Package regalloc builds the interference graph over a function's
// SSA live ranges, coalesces across non-interfering copies, colors it
// with the System V x86-64 general-purpose register file, spills what
// does not fit to the function's local stack data area, and finally
// substitutes the physical register (or stack operand) into the
// placeholder SrcReg/DstReg strings internal/iselect left on each
// instruction.
package regalloc

// GPRegisters is the allocatable general-purpose register file, in
// color-assignment preference order. RSP and RBP are reserved for the
// stack/frame pointer and never enter the interference graph; RAX and
// RDX are last in preference because the instruction selector already
// pins them for DIV/MUL's implicit RDX:RAX pair and a
// late-colored live range is less likely to need one of them anyway.
var GPRegisters = []string{
	"rbx", "rcx", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
	"rax", "rdx",
}

// K is the number of allocatable colors: Chaitin/Briggs coloring and
// the conservative coalescing test are both parameterized on this.
var K = len(GPRegisters)

// ParamRegisters is the System V AMD64 ABI's integer parameter-passing
// order: the first 6 integer/pointer parameters arrive in these
// registers; the 7th and beyond are passed on the parameter-passing
// stack data area (internal/stackdata).
var ParamRegisters = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// ParamRegister returns the ABI register for a 1-based parameter
// order, or "" if order is 0 or beyond the 6-register quota.
func ParamRegister(order int) string {
	if order < 1 || order > len(ParamRegisters) {
		return ""
	}
	return ParamRegisters[order-1]
}
