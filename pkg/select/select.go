// Package select implements instruction selection: it lowers one pkg/mir
// function at a time into pkg/machir, choosing concrete x86-64 mnemonics
// for each MIR opcode and allocating a fresh virtual register per MIR
// value. One Selector is used per function.
package select_

import (
	"fmt"
	"math"

	"github.com/bpetrakis/lacec/pkg/machir"
	"github.com/bpetrakis/lacec/pkg/mir"
	"github.com/bpetrakis/lacec/pkg/target"
	"github.com/bpetrakis/lacec/pkg/types"
)

// Selector holds the per-function state threaded through selection: the
// current insertion label and the maps from MIR values to MachIR operands.
type Selector struct {
	cfg *mir.CFG
	mf  *mir.Function
	out *machir.MachineFunction

	labels   map[*mir.Block]*machir.Label
	cur      *machir.Label
	defRegs  map[mir.DefID]*machir.VReg
	locals   map[*mir.Local]machir.FrameSlot
	fnIdx    int
	constSeq int
}

// Select lowers every function in cfg to a machir.Segment.
func Select(cfg *mir.CFG) *machir.Segment {
	seg := machir.NewSegment()
	for _, g := range cfg.Globals {
		seg.AddGlobal(lowerGlobal(g))
	}
	for i, fn := range cfg.Functions {
		if len(fn.Blocks()) == 0 {
			continue // prototype with no body
		}
		seg.AddFunction(selectFunction(cfg, fn, i))
	}
	return seg
}

func lowerGlobal(g *mir.Global) *machir.MachineGlobal {
	mg := &machir.MachineGlobal{Name: g.Name, Size: target.SizeOf(g.Type.Type)}
	if g.Init == nil {
		mg.Init = machir.GlobalInit{Zero: true}
		return mg
	}
	mg.Init = machir.GlobalInit{Bytes: constBytes(g.Init), Align: target.AlignOf(g.Type.Type)}
	return mg
}

// constBytes renders a pooled constant's little-endian byte representation
// for direct placement in a data-segment initializer.
func constBytes(c *mir.Const) []byte {
	switch c.Kind {
	case mir.ConstInt:
		return leBytes(uint64(c.IntVal), int(target.SizeOf(c.Type.Type)))
	case mir.ConstFloat:
		if target.SizeOf(c.Type.Type) == 4 {
			return leBytes(uint64(math.Float32bits(float32(c.FloatVal))), 4)
		}
		return leBytes(math.Float64bits(c.FloatVal), 8)
	case mir.ConstNull:
		return leBytes(0, 8)
	case mir.ConstString:
		return append([]byte(c.StringVal), 0)
	}
	return nil
}

func leBytes(v uint64, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func selectFunction(cfg *mir.CFG, fn *mir.Function, fnIdx int) *machir.MachineFunction {
	s := &Selector{
		cfg: cfg, mf: fn,
		out:     machir.NewMachineFunction(fn.Name, fn.External),
		labels:  make(map[*mir.Block]*machir.Label),
		defRegs: make(map[mir.DefID]*machir.VReg),
		locals:  make(map[*mir.Local]machir.FrameSlot),
		fnIdx:   fnIdx,
	}

	for _, l := range fn.Locals {
		s.locals[l] = s.out.AddFrameSlot(target.SizeOf(l.Type.Type), target.AlignOf(l.Type.Type), l.Name)
	}
	for _, b := range fn.Blocks() {
		s.labels[b] = s.out.AppendLabel(b.Name)
	}
	for _, b := range fn.Blocks() {
		s.cur = s.labels[b]
		for _, p := range b.Params {
			vr := s.out.NewVReg(classOf(p.Type.Type))
			s.defRegs[p.ID] = vr
		}
		for _, inst := range b.Instructions() {
			s.selectInst(inst)
		}
	}
	s.out.FrameSize = roundUp16(s.out.FrameSize)
	return s.out
}

func roundUp16(n uint64) uint64 {
	if r := n % 16; r != 0 {
		n += 16 - r
	}
	return n
}

func classOf(t types.Type) machir.RegClass {
	if types.IsFloat(t) {
		return machir.FloatingPoint
	}
	return machir.GeneralPurpose
}

func sizeTag(t types.Type) machir.Size {
	switch target.SizeOf(t) {
	case 1:
		return machir.Size1
	case 2:
		return machir.Size2
	case 4:
		return machir.Size4
	default:
		return machir.Size8
	}
}

// vregFor returns the (possibly newly allocated) virtual register holding
// inst's result.
func (s *Selector) vregFor(id mir.DefID, t types.Type) *machir.VReg {
	if vr, ok := s.defRegs[id]; ok {
		return vr
	}
	vr := s.out.NewVReg(classOf(t))
	s.defRegs[id] = vr
	return vr
}

// regOperand converts a mir.Operand into a machir.Operand, materializing
// virtual registers, frame-slot addresses, or immediate/const-pool operands
// as needed. A local or global used as a value is its address, so those
// cases LEA the address into a fresh vreg.
func (s *Selector) regOperand(op mir.Operand) machir.Operand {
	sz := sizeTag(op.Type.Type)
	switch op.Kind {
	case mir.ValConst:
		return s.constOperand(op.Const, sz)
	case mir.ValInst, mir.ValBlockArg:
		vr := s.vregFor(op.Inst, op.Type.Type)
		return machir.Operand{Kind: machir.OperandReg, Size: sz, Reg: vr.ID}
	case mir.ValLocal:
		slot := s.locals[op.Local]
		vr := s.out.NewVReg(machir.GeneralPurpose)
		dst := machir.Operand{Kind: machir.OperandReg, Size: machir.Size8, Reg: vr.ID}
		s.emit("lea", machir.Operand{Kind: machir.OperandMem, Size: machir.Size8, Mem: machir.Mem{Disp: frameDisp(slot)}}, dst)
		return dst
	case mir.ValGlobal:
		vr := s.out.NewVReg(machir.GeneralPurpose)
		dst := machir.Operand{Kind: machir.OperandReg, Size: machir.Size8, Reg: vr.ID}
		s.emit("lea", machir.Operand{Kind: machir.OperandMem, Size: machir.Size8, Mem: machir.Mem{Symbol: op.Global}}, dst)
		return dst
	case mir.ValFunction:
		return machir.Operand{Kind: machir.OperandFunc, Name: op.Func}
	case mir.ValParam:
		return s.paramOperand(op.Param, sz)
	case mir.ValBlockAddr:
		return machir.Operand{Kind: machir.OperandLabel, Label: s.labels[op.Block]}
	}
	return machir.Operand{}
}

// paramOperand maps the function's idx-th incoming parameter to the ABI
// register holding it on entry: the n-th integer/pointer parameter lives in
// IntArgRegs[n], the n-th float parameter in FloatArgRegs[n].
func (s *Selector) paramOperand(idx int, sz machir.Size) machir.Operand {
	intIdx, floatIdx := 0, 0
	for i := 0; i < idx && i < len(s.mf.Params); i++ {
		if types.IsFloat(s.mf.Params[i].Type) {
			floatIdx++
		} else {
			intIdx++
		}
	}
	if idx < len(s.mf.Params) && types.IsFloat(s.mf.Params[idx].Type) && floatIdx < len(target.FloatArgRegs) {
		return machir.Operand{Kind: machir.OperandReg, Size: sz, Reg: regID(string(target.FloatArgRegs[floatIdx]))}
	}
	if intIdx < len(target.IntArgRegs) {
		return machir.Operand{Kind: machir.OperandReg, Size: sz, Reg: regID(string(target.IntArgRegs[intIdx]))}
	}
	return machir.Operand{Kind: machir.OperandReg, Size: sz}
}

// frameDisp converts a frame slot's running offset into its RBP-relative
// displacement: slots grow downward from the saved frame pointer.
func frameDisp(slot machir.FrameSlot) int64 {
	return -(slot.Offset + int64(slot.Size))
}

func (s *Selector) constOperand(c *mir.Const, sz machir.Size) machir.Operand {
	switch c.Kind {
	case mir.ConstInt:
		return machir.Operand{Kind: machir.OperandImm, Size: sz, Imm: c.IntVal}
	case mir.ConstNull:
		return machir.Operand{Kind: machir.OperandImm, Size: machir.Size8, Imm: 0}
	case mir.ConstFloat:
		entry := s.out.InternConst(fmt.Sprintf(".LCPI%d_%d", s.fnIdx, s.constSeq), uint64(sz), constBytes(c))
		s.constSeq++
		return machir.Operand{Kind: machir.OperandConstPool, Size: sz, Const: entry}
	case mir.ConstString:
		entry := s.out.InternConst(fmt.Sprintf(".LCPI%d_%d", s.fnIdx, s.constSeq), 1, constBytes(c))
		s.constSeq++
		return machir.Operand{Kind: machir.OperandConstPool, Size: 8, Const: entry}
	}
	return machir.Operand{}
}

// materialize forces op into a fresh register when the consuming
// instruction cannot take an immediate or memory operand in that position.
func (s *Selector) materialize(op machir.Operand, class machir.RegClass) machir.Operand {
	if op.Kind == machir.OperandReg {
		return op
	}
	vr := s.out.NewVReg(class)
	dst := machir.Operand{Kind: machir.OperandReg, Size: op.Size, Reg: vr.ID}
	if class == machir.FloatingPoint {
		s.emit("movs", op, dst)
	} else {
		s.emit("mov", op, dst)
	}
	return dst
}

// emit appends one machine instruction to the current label.
func (s *Selector) emit(mnemonic string, ops ...machir.Operand) {
	s.cur.Append(machir.MachineInstruction{Mnemonic: mnemonic, Operands: ops})
}

// defOperand returns a register operand for inst's own result, allocating
// its vreg if this is the first reference.
func (s *Selector) defOperand(inst *mir.Instruction) machir.Operand {
	vr := s.vregFor(inst.Def, inst.Type.Type)
	return machir.Operand{Kind: machir.OperandReg, Size: sizeTag(inst.Type.Type), Reg: vr.ID}
}

func (s *Selector) selectInst(inst *mir.Instruction) {
	switch inst.Op {
	case mir.OpIntAdd, mir.OpIntSub, mir.OpIntMul, mir.OpAnd, mir.OpOr, mir.OpXor:
		s.selectIntBinary(inst)
	case mir.OpSDiv, mir.OpUDiv, mir.OpSMod, mir.OpUMod:
		s.selectDivMod(inst)
	case mir.OpShl, mir.OpShr, mir.OpSar:
		s.selectShift(inst)
	case mir.OpIntNeg:
		s.selectUnary(inst, "neg")
	case mir.OpNot:
		s.selectUnary(inst, "not")
	case mir.OpFAdd:
		s.selectFloatBinary(inst, "addss", "addsd")
	case mir.OpFSub:
		s.selectFloatBinary(inst, "subss", "subsd")
	case mir.OpFMul:
		s.selectFloatBinary(inst, "mulss", "mulsd")
	case mir.OpFDiv:
		s.selectFloatBinary(inst, "divss", "divsd")
	case mir.OpFNeg:
		s.selectFloatNeg(inst)
	case mir.OpCmpIEQ, mir.OpCmpINE, mir.OpCmpSLT, mir.OpCmpSLE, mir.OpCmpSGT, mir.OpCmpSGE,
		mir.OpCmpULT, mir.OpCmpULE, mir.OpCmpUGT, mir.OpCmpUGE,
		mir.OpCmpOEQ, mir.OpCmpONE, mir.OpCmpOLT, mir.OpCmpOLE, mir.OpCmpOGT, mir.OpCmpOGE:
		s.selectCompare(inst)
	case mir.OpLoad:
		s.selectLoad(inst)
	case mir.OpStore:
		s.selectStore(inst)
	case mir.OpPointerWalk:
		s.selectPointerWalk(inst)
	case mir.OpAccess:
		s.selectAccess(inst)
	case mir.OpIndex, mir.OpExtract:
		s.selectLoad(inst) // aggregate value-extract collapses to a load of the computed address
	case mir.OpCall:
		s.selectCall(inst)
	case mir.OpJump:
		s.selectJump(inst)
	case mir.OpConditionalJump:
		s.selectCondJump(inst)
	case mir.OpReturn:
		s.selectReturn(inst)
	case mir.OpAbort, mir.OpUnreachable:
		s.emit("ud2")
	case mir.OpSExt, mir.OpZExt:
		s.selectIntExt(inst)
	case mir.OpITrunc:
		s.selectTrunc(inst)
	case mir.OpFExt:
		s.selectFloatConv(inst, "cvtss2sd")
	case mir.OpFTrunc:
		s.selectFloatConv(inst, "cvtsd2ss")
	case mir.OpS2F:
		s.selectIntToFloat(inst, true)
	case mir.OpU2F:
		s.selectIntToFloat(inst, false)
	case mir.OpF2S:
		s.selectFloatToInt(inst, true)
	case mir.OpF2U:
		s.selectFloatToInt(inst, false)
	case mir.OpP2I, mir.OpI2P, mir.OpReint:
		s.selectReint(inst)
	case mir.OpString:
		s.selectStringConst(inst)
	}
}

func (s *Selector) selectIntBinary(inst *mir.Instruction) {
	mnem := map[mir.Opcode]string{mir.OpIntAdd: "add", mir.OpIntSub: "sub", mir.OpIntMul: "imul",
		mir.OpAnd: "and", mir.OpOr: "or", mir.OpXor: "xor"}[inst.Op]
	dst := s.defOperand(inst)
	l, r := s.regOperand(inst.Operands[0]), s.regOperand(inst.Operands[1])
	s.emit("mov", l, dst)
	s.emit(mnem, r, dst)
}

func (s *Selector) selectDivMod(inst *mir.Instruction) {
	// System V integer division: dividend in RAX (sign/zero extended into
	// RDX), divisor may be a register or memory operand, quotient in RAX,
	// remainder in RDX.
	l, r := s.regOperand(inst.Operands[0]), s.regOperand(inst.Operands[1])
	r = s.materialize(r, machir.GeneralPurpose) // IDIV/DIV take no immediate divisor
	rax := machir.Operand{Kind: machir.OperandReg, Size: l.Size, Reg: regID("rax")}
	rdx := machir.Operand{Kind: machir.OperandReg, Size: l.Size, Reg: regID("rdx")}
	s.emit("mov", l, rax)
	signed := inst.Op == mir.OpSDiv || inst.Op == mir.OpSMod
	if signed {
		s.emit(cqtoForSize(l.Size))
	} else {
		s.emit("xor", rdx, rdx)
	}
	if signed {
		s.emit("idiv", r)
	} else {
		s.emit("div", r)
	}
	dst := s.defOperand(inst)
	if inst.Op == mir.OpSDiv || inst.Op == mir.OpUDiv {
		s.emit("mov", rax, dst)
	} else {
		s.emit("mov", rdx, dst)
	}
}

func cqtoForSize(sz machir.Size) string {
	if sz == machir.Size8 {
		return "cqto"
	}
	return "cdq"
}

func (s *Selector) selectShift(inst *mir.Instruction) {
	mnem := map[mir.Opcode]string{mir.OpShl: "shl", mir.OpShr: "shr", mir.OpSar: "sar"}[inst.Op]
	dst := s.defOperand(inst)
	l, r := s.regOperand(inst.Operands[0]), s.regOperand(inst.Operands[1])
	rcx := machir.Operand{Kind: machir.OperandReg, Size: r.Size, Reg: regID("rcx")}
	cl := machir.Operand{Kind: machir.OperandReg, Size: machir.Size1, Reg: regID("rcx")}
	s.emit("mov", l, dst)
	s.emit("mov", r, rcx)
	s.emit(mnem, cl, dst)
}

func (s *Selector) selectUnary(inst *mir.Instruction, mnem string) {
	dst := s.defOperand(inst)
	v := s.regOperand(inst.Operands[0])
	s.emit("mov", v, dst)
	s.emit(mnem, dst)
}

func (s *Selector) selectFloatBinary(inst *mir.Instruction, ssMnem, sdMnem string) {
	mnem := ssMnem
	if target.SizeOf(inst.Type.Type) == 8 {
		mnem = sdMnem
	}
	dst := s.defOperand(inst)
	l, r := s.regOperand(inst.Operands[0]), s.regOperand(inst.Operands[1])
	s.emit("movs", l, dst)
	s.emit(mnem, r, dst)
}

// selectFloatNeg flips the sign bit with an XORPS against a pooled
// 16-byte sign mask; SSE has no dedicated float-negate instruction.
func (s *Selector) selectFloatNeg(inst *mir.Instruction) {
	dst := s.defOperand(inst)
	v := s.regOperand(inst.Operands[0])
	s.emit("movs", v, dst)
	var mask []byte
	if target.SizeOf(inst.Type.Type) == 4 {
		for i := 0; i < 4; i++ {
			mask = append(mask, leBytes(1<<31, 4)...)
		}
	} else {
		for i := 0; i < 2; i++ {
			mask = append(mask, leBytes(1<<63, 8)...)
		}
	}
	entry := s.out.InternConst(fmt.Sprintf(".LCPI%d_%d", s.fnIdx, s.constSeq), 16, mask)
	s.constSeq++
	s.emit("xorps", machir.Operand{Kind: machir.OperandConstPool, Size: machir.Size8, Const: entry}, dst)
}

func (s *Selector) selectCompare(inst *mir.Instruction) {
	l, r := s.regOperand(inst.Operands[0]), s.regOperand(inst.Operands[1])
	isFloat := inst.Op >= mir.OpCmpOEQ && inst.Op <= mir.OpCmpOGE
	if isFloat {
		// UCOMIS computes dst - src, so the left operand is the AT&T
		// destination and must be a register; the flags it sets are
		// CF/ZF-shaped, hence the unsigned setcc variants below.
		l = s.materialize(l, machir.FloatingPoint)
		s.emit("ucomis", r, l)
	} else {
		l = s.materialize(l, machir.GeneralPurpose)
		s.emit("cmp", r, l)
	}
	dst := s.defOperand(inst)
	s.emit(setccFor(inst.Op), dst)
}

func setccFor(op mir.Opcode) string {
	switch op {
	case mir.OpCmpIEQ, mir.OpCmpOEQ:
		return "sete"
	case mir.OpCmpINE, mir.OpCmpONE:
		return "setne"
	case mir.OpCmpSLT:
		return "setl"
	case mir.OpCmpSLE:
		return "setle"
	case mir.OpCmpSGT:
		return "setg"
	case mir.OpCmpSGE:
		return "setge"
	case mir.OpCmpULT, mir.OpCmpOLT:
		return "setb"
	case mir.OpCmpULE, mir.OpCmpOLE:
		return "setbe"
	case mir.OpCmpUGT, mir.OpCmpOGT:
		return "seta"
	case mir.OpCmpUGE, mir.OpCmpOGE:
		return "setae"
	}
	return "sete"
}

func (s *Selector) selectLoad(inst *mir.Instruction) {
	addr := s.addrOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	s.emit(movFor(inst.Type.Type), addr, dst)
}

func (s *Selector) selectStore(inst *mir.Instruction) {
	addr := s.addrOperand(inst.Operands[0])
	val := s.regOperand(inst.Operands[1])
	s.emit(movFor(inst.Operands[1].Type.Type), val, addr)
}

func movFor(t types.Type) string {
	if types.IsFloat(t) {
		return "movs"
	}
	return "mov"
}

// addrOperand resolves an address-typed mir.Operand to a memory or register
// operand: locals/globals become [RBP+disp]/RIP-relative memory operands,
// anything else (a computed pointer value) is a register holding the
// address, dereferenced with a zero-displacement memory operand.
func (s *Selector) addrOperand(op mir.Operand) machir.Operand {
	switch op.Kind {
	case mir.ValLocal:
		slot := s.locals[op.Local]
		return machir.Operand{Kind: machir.OperandMem, Size: sizeTag(derefType(op.Type)), Mem: machir.Mem{Disp: frameDisp(slot)}}
	case mir.ValGlobal:
		return machir.Operand{Kind: machir.OperandMem, Size: sizeTag(derefType(op.Type)), Mem: machir.Mem{Symbol: op.Global}}
	default:
		base := s.regOperand(op)
		return machir.Operand{Kind: machir.OperandMem, Size: sizeTag(derefType(op.Type)), Mem: machir.Mem{Base: base.Reg}}
	}
}

func derefType(qt types.QualType) types.Type {
	if p, ok := types.Underlying(qt.Type).(types.Pointer); ok {
		return p.Pointee.Type
	}
	return qt.Type
}

// selectPointerWalk computes base + index*scale: a base move (regOperand
// already LEAs locals and globals into a register), a constant index folded
// into a single ADD of the accumulated offset, and a dynamic index scaled
// with IMUL (elided when the scale is 1) then added.
func (s *Selector) selectPointerWalk(inst *mir.Instruction) {
	base := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	elemSize := target.SizeOf(derefType(inst.Operands[0].Type))
	s.emit("mov", base, dst)
	if len(inst.Operands) < 2 {
		return
	}
	idx := s.regOperand(inst.Operands[1])
	if idx.Kind == machir.OperandImm {
		if off := idx.Imm * int64(elemSize); off != 0 {
			s.emit("add", machir.Operand{Kind: machir.OperandImm, Size: machir.Size8, Imm: off}, dst)
		}
		return
	}
	tmp := s.out.NewVReg(machir.GeneralPurpose)
	t := machir.Operand{Kind: machir.OperandReg, Size: idx.Size, Reg: tmp.ID}
	s.emit("mov", idx, t)
	t.Size = machir.Size8
	if elemSize > 1 {
		s.emit("imul", machir.Operand{Kind: machir.OperandImm, Size: machir.Size8, Imm: int64(elemSize)}, t)
	}
	s.emit("add", t, dst)
}

func (s *Selector) selectAccess(inst *mir.Instruction) {
	base := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	structType, _ := types.Underlying(derefType(inst.Operands[0].Type)).(*types.Struct)
	var offset uint64
	if structType != nil {
		offset = target.FieldOffset(structType, inst.FieldIndex)
	}
	mem := machir.Mem{Base: base.Reg, Disp: int64(offset)}
	s.emit("lea", machir.Operand{Kind: machir.OperandMem, Size: machir.Size8, Mem: mem}, dst)
}

func (s *Selector) selectCall(inst *mir.Instruction) {
	callee := s.regOperand(inst.Operands[0])
	args := inst.Operands[1:]
	intIdx, floatIdx := 0, 0
	for _, a := range args {
		v := s.regOperand(a)
		if types.IsFloat(a.Type.Type) {
			dst := machir.Operand{Kind: machir.OperandReg, Size: v.Size, Reg: regID(string(target.FloatArgRegs[floatIdx]))}
			s.emit("movs", v, dst)
			floatIdx++
		} else {
			dst := machir.Operand{Kind: machir.OperandReg, Size: v.Size, Reg: regID(string(target.IntArgRegs[intIdx]))}
			s.emit("mov", v, dst)
			intIdx++
		}
	}
	s.emit("call", callee)
	if inst.Def != 0 {
		dst := s.defOperand(inst)
		if types.IsFloat(inst.Type.Type) {
			s.emit("movs", machir.Operand{Kind: machir.OperandReg, Size: dst.Size, Reg: regID("xmm0")}, dst)
		} else {
			s.emit("mov", machir.Operand{Kind: machir.OperandReg, Size: dst.Size, Reg: regID("rax")}, dst)
		}
	}
}

func (s *Selector) selectJump(inst *mir.Instruction) {
	s.emitBlockArgs(inst.TrueDest, inst.TrueArgs)
	s.emit("jmp", machir.Operand{Kind: machir.OperandLabel, Label: s.labels[inst.TrueDest]})
}

func (s *Selector) selectCondJump(inst *mir.Instruction) {
	cond := s.materialize(s.regOperand(inst.Operands[0]), machir.GeneralPurpose)
	zero := machir.Operand{Kind: machir.OperandImm, Size: cond.Size, Imm: 0}
	s.emit("cmp", zero, cond)
	// True edge taken when cond != 0: emit block-arg copies for whichever
	// edge is about to execute, guarded by the branch itself, so carry both
	// sets of copies split across the two branch targets.
	s.emitBlockArgs(inst.TrueDest, inst.TrueArgs)
	s.emit("jne", machir.Operand{Kind: machir.OperandLabel, Label: s.labels[inst.TrueDest]})
	s.emitBlockArgs(inst.FalseDest, inst.FalseArgs)
	s.emit("jmp", machir.Operand{Kind: machir.OperandLabel, Label: s.labels[inst.FalseDest]})
}

// emitBlockArgs realizes block-argument passing as MOV copies into the
// vregs the target block's parameters were allocated to, eliminating phi
// nodes by copy insertion at the predecessor.
func (s *Selector) emitBlockArgs(dest *mir.Block, args []mir.Operand) {
	for i, a := range args {
		if i >= len(dest.Params) {
			break
		}
		param := dest.Params[i]
		vr := s.vregFor(param.ID, param.Type.Type)
		src := s.regOperand(a)
		dst := machir.Operand{Kind: machir.OperandReg, Size: src.Size, Reg: vr.ID}
		mnem := "mov"
		if types.IsFloat(param.Type.Type) {
			mnem = "movs"
		}
		if src.Kind == machir.OperandReg && src.Reg == dst.Reg {
			continue // elide redundant same-register move
		}
		s.emit(mnem, src, dst)
	}
}

func (s *Selector) selectReturn(inst *mir.Instruction) {
	if len(inst.Operands) == 0 {
		s.emit("ret")
		return
	}
	v := s.regOperand(inst.Operands[0])
	if types.IsFloat(inst.Operands[0].Type.Type) {
		s.emit("movs", v, machir.Operand{Kind: machir.OperandReg, Size: v.Size, Reg: regID("xmm0")})
	} else {
		s.emit("mov", v, machir.Operand{Kind: machir.OperandReg, Size: v.Size, Reg: regID("rax")})
	}
	s.emit("ret")
}

func (s *Selector) selectIntExt(inst *mir.Instruction) {
	src := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	if src.Kind == machir.OperandImm {
		// A full-width immediate move subsumes either extension.
		s.emit("mov", machir.Operand{Kind: machir.OperandImm, Size: dst.Size, Imm: src.Imm}, dst)
		return
	}
	if inst.Op == mir.OpSExt {
		if dst.Size == machir.Size8 && src.Size == machir.Size4 {
			s.emit("movsxd", src, dst)
			return
		}
		s.emit("movsx", src, dst)
		return
	}
	if src.Size == machir.Size4 && dst.Size == machir.Size8 {
		// Writing a 32-bit register already zero-extends the top half on
		// x86-64; no movzx encoding exists for 4->8.
		s.emit("mov", src, dst)
		return
	}
	s.emit("movzx", src, dst)
}

func (s *Selector) selectTrunc(inst *mir.Instruction) {
	src := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	dst.Size = sizeTag(inst.Type.Type) // narrowed sub-register tag on the same vreg
	s.emit("mov", src, dst)
}

func (s *Selector) selectFloatConv(inst *mir.Instruction, mnem string) {
	src := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	s.emit(mnem, src, dst)
}

// selectIntToFloat lowers both S2F and U2F through CVTSI2S{S,D}. No
// unsigned int->float instruction exists below AVX512; since every Lace
// integer width fits under 2^63, the signed conversion is exact for the
// unsigned case too.
func (s *Selector) selectIntToFloat(inst *mir.Instruction, signed bool) {
	src := s.materialize(s.regOperand(inst.Operands[0]), machir.GeneralPurpose)
	dst := s.defOperand(inst)
	mnem := "cvtsi2ss"
	if target.SizeOf(inst.Type.Type) == 8 {
		mnem = "cvtsi2sd"
	}
	s.emit(mnem, src, dst)
}

func (s *Selector) selectFloatToInt(inst *mir.Instruction, signed bool) {
	src := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	mnem := "cvttss2si"
	if target.SizeOf(inst.Operands[0].Type.Type) == 8 {
		mnem = "cvttsd2si"
	}
	s.emit(mnem, src, dst)
}

func (s *Selector) selectReint(inst *mir.Instruction) {
	src := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	if src.Kind == machir.OperandMem {
		s.emit("lea", src, dst)
		return
	}
	s.emit("mov", src, dst)
}

func (s *Selector) selectStringConst(inst *mir.Instruction) {
	entry := s.regOperand(inst.Operands[0])
	dst := s.defOperand(inst)
	s.emit("lea", entry, dst)
}

// regID maps a register name to its fixed physical RegID in the unified
// id space (physical ids occupy [1, 2^31)).
func regID(name string) machir.RegID {
	if id, ok := physRegIDs[name]; ok {
		return id
	}
	return 0
}

var physRegIDs = buildPhysRegIDs()

func buildPhysRegIDs() map[string]machir.RegID {
	m := make(map[string]machir.RegID)
	var id machir.RegID = 1
	for _, r := range target.AllGeneralPurpose {
		m[string(r)] = id
		id++
	}
	for _, r := range target.AllFloatingPoint {
		m[string(r)] = id
		id++
	}
	m["rbp"] = id
	id++
	m["rsp"] = id
	return m
}
