// Package asmgen builds a pkg/asm.File from an allocated machir.Segment:
// the last step of codegen. It walks the segment's functions in order,
// materializing each one's constant pool before its instructions, and
// renders GNU AT&T x86-64 syntax, including physical register naming with
// '%'-prefixing and width-based sub-register selection.
package asmgen

import (
	"fmt"

	"github.com/bpetrakis/lacec/pkg/asm"
	"github.com/bpetrakis/lacec/pkg/machir"
	"github.com/bpetrakis/lacec/pkg/target"
)

// TransformSegment builds the full assembly file for seg. file is the
// source path emitted in the leading .file directive.
func TransformSegment(seg *machir.Segment, file string) *asm.File {
	f := &asm.File{}
	f.Directive(".file", quote(file))

	transformGlobals(f, seg.Globals)

	for _, fn := range seg.Functions {
		transformFunction(f, fn)
	}
	return f
}

func quote(s string) string { return fmt.Sprintf("%q", s) }

func transformGlobals(f *asm.File, globals []*machir.MachineGlobal) {
	for _, g := range globals {
		f.Blank()
		if g.Init.Zero || g.Init.Bytes == nil {
			f.Directive(".bss")
			f.Directive(".align", itoa(maxu(g.Init.Align, 1)))
			f.Directive(".type", g.Name+",@object")
			f.Directive(".size", g.Name, itoa(g.Size))
			f.Label(g.Name)
			f.Directive(".zero", itoa(maxu(g.Size, 1)))
			continue
		}
		f.Directive(".data")
		f.Directive(".align", itoa(maxu(g.Init.Align, 1)))
		f.Directive(".type", g.Name+",@object")
		f.Directive(".size", g.Name, itoa(g.Size))
		f.Label(g.Name)
		emitBytes(f, g.Init.Bytes)
	}
}

func emitBytes(f *asm.File, bytes []byte) {
	for _, b := range bytes {
		f.Directive(".byte", itoa(uint64(b)))
	}
}

func itoa(n uint64) string { return fmt.Sprintf("%d", n) }

func maxu(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

// transformFunction emits a function's constant pool, prologue, body
// labels, and epilogue. Prologue/epilogue are the same
// fixed three-line shape for every function; RET is rewritten in place to
// the epilogue each time it appears so multiple return points each get a
// correct stack teardown.
func transformFunction(f *asm.File, fn *machir.MachineFunction) {
	if len(fn.ConstPool) > 0 {
		f.Blank()
		poolSize := fn.ConstPool[0].Align
		f.Directive(".section", fmt.Sprintf(".rodata.cst%d,\"aM\",@progbits,%d", poolSize, poolSize))
		for _, c := range fn.ConstPool {
			f.Directive(".p2align", itoa(log2(c.Align)), "0x0")
			f.Label(c.Label)
			emitBytes(f, c.Bytes)
		}
	}

	f.Blank()
	f.Directive(".text")
	if fn.External {
		f.Directive(".global", fn.Name)
	}
	f.Directive(".type", fn.Name+",@function")
	f.Label(fn.Name)

	f.Instr("pushq", "%rbp")
	f.Instr("movq", "%rsp", "%rbp")
	if fn.FrameSize > 0 {
		f.Instr("subq", "$"+itoa(fn.FrameSize), "%rsp")
	}

	names := physRegNames(fn)
	for _, label := range fn.Labels {
		f.Label(blockLabel(fn.Name, label.Name))
		for _, inst := range label.Insts {
			emitInstruction(f, fn, names, inst)
		}
	}
}

func blockLabel(fn, block string) string { return fmt.Sprintf(".L%s_%s", fn, block) }

func log2(n uint64) uint64 {
	var l uint64
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}

// physRegNames maps every RegID (physical or resolved-virtual) appearing
// in fn to its AT&T register name, resolving virtual ids through the
// function's VReg table's Alloc field (set by pkg/regalloc).
func physRegNames(fn *machir.MachineFunction) map[machir.RegID]target.Reg {
	names := make(map[machir.RegID]target.Reg)
	var id machir.RegID = 1
	for _, r := range target.AllGeneralPurpose {
		names[id] = r
		id++
	}
	for _, r := range target.AllFloatingPoint {
		names[id] = r
		id++
	}
	names[id] = target.RBP
	id++
	names[id] = target.RSP

	for _, vr := range fn.VRegs {
		if vr.Alloc != 0 {
			names[vr.ID] = names[vr.Alloc]
		}
	}
	return names
}

// emitInstruction renders one machine instruction as an asm.Instr, eliding
// a register-to-itself MOV and rewriting "ret" into the three-line epilogue
// it stands for.
func emitInstruction(f *asm.File, fn *machir.MachineFunction, names map[machir.RegID]target.Reg, inst machir.MachineInstruction) {
	if inst.Mnemonic == "ret" {
		if fn.FrameSize > 0 {
			f.Instr("addq", "$"+itoa(fn.FrameSize), "%rsp")
		}
		f.Instr("popq", "%rbp")
		f.Instr("ret")
		return
	}
	if isRedundantMov(names, inst) {
		return
	}
	mnem := mnemonicFor(inst, names)
	ops := make([]string, len(inst.Operands))
	for i, op := range inst.Operands {
		ops[i] = operandString(op, names)
	}
	f.Instr(mnem, ops...)
}

// isRedundantMov reports whether inst is a "mov"/"movs{s,d}" of a register
// to the same physical register, once virtual ids are resolved.
func isRedundantMov(names map[machir.RegID]target.Reg, inst machir.MachineInstruction) bool {
	if len(inst.Operands) != 2 {
		return false
	}
	switch inst.Mnemonic {
	case "mov", "movss", "movsd":
	default:
		return false
	}
	src, dst := inst.Operands[0], inst.Operands[1]
	if src.Kind != machir.OperandReg || dst.Kind != machir.OperandReg {
		return false
	}
	return names[src.Reg] != "" && names[src.Reg] == names[dst.Reg]
}

// mnemonicFor appends the AT&T size suffix to bare mnemonics that need one
// ("mov" -> "movq"/"movl"/"movw"/"movb") based on the destination operand's
// size tag; mnemonics that already carry an explicit suffix (addss, setcc
// variants, cvt*, ud2, call, push/pop, jmp/jne) pass through unchanged.
func mnemonicFor(inst machir.MachineInstruction, names map[machir.RegID]target.Reg) string {
	switch inst.Mnemonic {
	case "mov", "add", "sub", "and", "or", "xor", "imul", "idiv", "div", "neg", "not", "cmp",
		"shl", "shr", "sar":
		sz := machir.Size8
		if len(inst.Operands) > 0 {
			sz = inst.Operands[len(inst.Operands)-1].Size
		}
		return inst.Mnemonic + sizeSuffix(sz)
	case "lea":
		return "leaq"
	case "movs":
		// float move: size distinguishes single from double precision.
		sz := machir.Size8
		if len(inst.Operands) > 0 {
			sz = inst.Operands[len(inst.Operands)-1].Size
		}
		if sz == machir.Size4 {
			return "movss"
		}
		return "movsd"
	case "ucomis":
		sz := machir.Size8
		if len(inst.Operands) > 0 {
			sz = inst.Operands[0].Size
		}
		if sz == machir.Size4 {
			return "ucomiss"
		}
		return "ucomisd"
	}
	return inst.Mnemonic
}

func sizeSuffix(sz machir.Size) string {
	switch sz {
	case machir.Size1:
		return "b"
	case machir.Size2:
		return "w"
	case machir.Size4:
		return "l"
	default:
		return "q"
	}
}

func operandString(op machir.Operand, names map[machir.RegID]target.Reg) string {
	switch op.Kind {
	case machir.OperandReg:
		return "%" + subRegName(names[op.Reg], op.Size)
	case machir.OperandImm:
		return fmt.Sprintf("$%d", op.Imm)
	case machir.OperandMem:
		return memString(op.Mem, names)
	case machir.OperandLabel:
		if op.Label != nil {
			return op.Label.Name
		}
		return ""
	case machir.OperandConstPool:
		if op.Const != nil {
			return op.Const.Label + "(%rip)"
		}
		return ""
	case machir.OperandGlobal, machir.OperandFunc:
		return op.Name
	}
	return ""
}

func memString(m machir.Mem, names map[machir.RegID]target.Reg) string {
	if m.Symbol != "" {
		return m.Symbol + "(%rip)"
	}
	base := "%rbp"
	if m.Base != 0 {
		base = "%" + string(names[m.Base])
	}
	if m.Index == 0 {
		return fmt.Sprintf("%d(%s)", m.Disp, base)
	}
	index := "%" + string(names[m.Index])
	if m.Scale == 0 {
		return fmt.Sprintf("%d(%s,%s)", m.Disp, base, index)
	}
	return fmt.Sprintf("%d(%s,%s,%d)", m.Disp, base, index, m.Scale)
}

// subRegName returns the AT&T sub-register spelling of reg at the given
// width (e.g. rax/eax/ax/al), following the fixed x86-64 naming table; XMM
// registers have no sub-register aliasing and are returned unchanged.
func subRegName(reg target.Reg, sz machir.Size) string {
	table, ok := subRegs[reg]
	if !ok {
		return string(reg)
	}
	switch sz {
	case machir.Size1:
		return table[0]
	case machir.Size2:
		return table[1]
	case machir.Size4:
		return table[2]
	default:
		return table[3]
	}
}

// subRegs maps each 64-bit GP register name to its {8,16,32,64}-bit
// spellings, in that order.
var subRegs = map[target.Reg][4]string{
	target.RAX: {"al", "ax", "eax", "rax"},
	target.RBX: {"bl", "bx", "ebx", "rbx"},
	target.RCX: {"cl", "cx", "ecx", "rcx"},
	target.RDX: {"dl", "dx", "edx", "rdx"},
	target.RSI: {"sil", "si", "esi", "rsi"},
	target.RDI: {"dil", "di", "edi", "rdi"},
	target.RBP: {"bpl", "bp", "ebp", "rbp"},
	target.RSP: {"spl", "sp", "esp", "rsp"},
	target.R8:  {"r8b", "r8w", "r8d", "r8"},
	target.R9:  {"r9b", "r9w", "r9d", "r9"},
	target.R10: {"r10b", "r10w", "r10d", "r10"},
	target.R11: {"r11b", "r11w", "r11d", "r11"},
	target.R12: {"r12b", "r12w", "r12d", "r12"},
	target.R13: {"r13b", "r13w", "r13d", "r13"},
	target.R14: {"r14b", "r14w", "r14d", "r14"},
	target.R15: {"r15b", "r15w", "r15d", "r15"},
}
