package target

// Reg names one physical x86-64 register in its 64-bit (or full XMM)
// spelling. Sub-register selection happens downstream in pkg/asmgen; the
// backend otherwise passes these names around opaquely.
type Reg string

// x86-64 System V:
// - callee-saved: RBX, R12-R15, RSP, RBP
// - caller-saved: RAX, RCX, RDX, RDI, RSI, R8-R11, XMM0-XMM15

const (
	RAX Reg = "rax"
	RBX Reg = "rbx"
	RCX Reg = "rcx"
	RDX Reg = "rdx"
	RSI Reg = "rsi"
	RDI Reg = "rdi"
	RBP Reg = "rbp"
	RSP Reg = "rsp"
	R8  Reg = "r8"
	R9  Reg = "r9"
	R10 Reg = "r10"
	R11 Reg = "r11"
	R12 Reg = "r12"
	R13 Reg = "r13"
	R14 Reg = "r14"
	R15 Reg = "r15"

	XMM0  Reg = "xmm0"
	XMM1  Reg = "xmm1"
	XMM2  Reg = "xmm2"
	XMM3  Reg = "xmm3"
	XMM4  Reg = "xmm4"
	XMM5  Reg = "xmm5"
	XMM6  Reg = "xmm6"
	XMM7  Reg = "xmm7"
	XMM8  Reg = "xmm8"
	XMM9  Reg = "xmm9"
	XMM10 Reg = "xmm10"
	XMM11 Reg = "xmm11"
	XMM12 Reg = "xmm12"
	XMM13 Reg = "xmm13"
	XMM14 Reg = "xmm14"
	XMM15 Reg = "xmm15"
)

// AllGeneralPurpose is the integer allocation pool, in preference order.
// Callee-saved registers come first so that short functions lean on
// registers that calls cannot clobber; the fixed-role scratch registers
// the selector claims by name (RAX/RDX for division, RCX for shifts, the
// six argument registers) come last. RBP and RSP are the frame and stack
// pointers and are never handed to a virtual register.
var AllGeneralPurpose = []Reg{
	RBX, R12, R13, R14, R15,
	R10, R11,
	R9, R8, RSI, RDI, RDX, RCX, RAX,
}

// AllFloatingPoint is the SSE allocation pool. The argument registers
// XMM0-XMM5 sit last for the same reason the integer argument registers do.
var AllFloatingPoint = []Reg{
	XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15,
	XMM6, XMM7,
	XMM5, XMM4, XMM3, XMM2, XMM1, XMM0,
}

// IntArgRegs is the System V integer/pointer argument register sequence.
var IntArgRegs = []Reg{RDI, RSI, RDX, RCX, R8, R9}

// FloatArgRegs is the System V floating-point argument register sequence.
var FloatArgRegs = []Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5}

// IsCalleeSaved returns true if the register is callee-saved
func IsCalleeSaved(reg Reg) bool {
	switch reg {
	case RBX, R12, R13, R14, R15, RSP, RBP:
		return true
	}
	return false
}

// IsCallerSaved returns true if the register may be clobbered by a call
func IsCallerSaved(reg Reg) bool {
	switch reg {
	case RAX, RCX, RDX, RDI, RSI, R8, R9, R10, R11:
		return true
	}
	// Every XMM register is caller-saved under System V.
	return len(reg) >= 3 && reg[:3] == "xmm"
}
