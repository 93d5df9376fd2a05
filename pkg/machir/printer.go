package machir

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders a Segment as readable pre-assembly text for the
// --dmachir debug flag, one level below pkg/asmgen's AT&T rendering:
// operands print their RegID/slot/label directly rather than a resolved
// physical register name, since allocation may not have run yet.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new MachIR printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintSegment prints every global and function in seg.
func (p *Printer) PrintSegment(seg *Segment) {
	for _, g := range seg.Globals {
		fmt.Fprintf(p.w, "global %s [%d]\n", g.Name, g.Size)
	}
	if len(seg.Globals) > 0 {
		fmt.Fprintln(p.w)
	}
	for i, fn := range seg.Functions {
		p.PrintFunction(fn)
		if i < len(seg.Functions)-1 {
			fmt.Fprintln(p.w)
		}
	}
}

// PrintFunction prints one function's frame, constant pool, and labels.
func (p *Printer) PrintFunction(fn *MachineFunction) {
	fmt.Fprintf(p.w, "%s frame=%d {\n", fn.Name, fn.FrameSize)
	for i, slot := range fn.Frame {
		fmt.Fprintf(p.w, "  slot%d: off=%d size=%d align=%d\n", i, slot.Offset, slot.Size, slot.Align)
	}
	for _, c := range fn.ConstPool {
		fmt.Fprintf(p.w, "  %s: %d bytes, align %d\n", c.Label, len(c.Bytes), c.Align)
	}
	for _, vr := range fn.VRegs {
		fmt.Fprintf(p.w, "  v%d: class=%v alloc=%d\n", vr.ID, vr.Class, vr.Alloc)
	}
	for _, label := range fn.Labels {
		fmt.Fprintf(p.w, "%s:\n", label.Name)
		for _, inst := range label.Insts {
			fmt.Fprint(p.w, "    ")
			p.printInstruction(inst)
			fmt.Fprintln(p.w)
		}
	}
	fmt.Fprintln(p.w, "}")
}

func (p *Printer) printInstruction(inst MachineInstruction) {
	fmt.Fprint(p.w, inst.Mnemonic)
	for i, op := range inst.Operands {
		if i == 0 {
			fmt.Fprint(p.w, " ")
		} else {
			fmt.Fprint(p.w, ", ")
		}
		p.printOperand(op)
	}
}

func (p *Printer) printOperand(op Operand) {
	switch op.Kind {
	case OperandReg:
		if op.Reg.IsVirtual() {
			fmt.Fprintf(p.w, "v%d", op.Reg)
		} else {
			fmt.Fprintf(p.w, "r%d", op.Reg)
		}
	case OperandImm:
		fmt.Fprintf(p.w, "$%d", op.Imm)
	case OperandMem:
		p.printMem(op.Mem)
	case OperandLabel:
		if op.Label != nil {
			fmt.Fprint(p.w, op.Label.Name)
		}
	case OperandConstPool:
		if op.Const != nil {
			fmt.Fprint(p.w, op.Const.Label)
		}
	case OperandGlobal, OperandFunc:
		fmt.Fprint(p.w, op.Name)
	}
}

func (p *Printer) printMem(m Mem) {
	if m.Symbol != "" {
		fmt.Fprintf(p.w, "%s(rip)", m.Symbol)
		return
	}
	fmt.Fprintf(p.w, "%d(r%d", m.Disp, m.Base)
	if m.Index != 0 {
		fmt.Fprintf(p.w, ",r%d,%d", m.Index, m.Scale)
	}
	fmt.Fprint(p.w, ")")
}

// Dump renders seg's full text form, for callers that just want a string
// (the --dmachir flag's handler, and tests).
func Dump(seg *Segment) string {
	var b strings.Builder
	NewPrinter(&b).PrintSegment(seg)
	return b.String()
}
