package asmgen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bpetrakis/lacec/pkg/asm"
	"github.com/bpetrakis/lacec/pkg/machir"
)

func render(t *testing.T, seg *machir.Segment) string {
	t.Helper()
	f := TransformSegment(seg, "test.lc")
	var buf bytes.Buffer
	if err := asm.NewPrinter(&buf).Print(f); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	return buf.String()
}

func TestTransformEmitsFileDirective(t *testing.T) {
	out := render(t, machir.NewSegment())
	if !strings.Contains(out, `.file "test.lc"`) {
		t.Errorf("expected a .file directive, got:\n%s", out)
	}
}

func TestTransformFunctionPrologueAndEpilogue(t *testing.T) {
	seg := machir.NewSegment()
	fn := machir.NewMachineFunction("main", true)
	fn.FrameSize = 16
	l := fn.AppendLabel("entry")
	l.Append(machir.MachineInstruction{Mnemonic: "ret"})
	seg.AddFunction(fn)

	out := render(t, seg)
	for _, want := range []string{
		".global main",
		".type main,@function",
		"main:",
		"pushq %rbp",
		"movq %rsp, %rbp",
		"subq $16, %rsp",
		"addq $16, %rsp",
		"popq %rbp",
		"ret",
		".L" + "main_entry:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTransformElidesRedundantMov(t *testing.T) {
	seg := machir.NewSegment()
	fn := machir.NewMachineFunction("f", false)
	v := fn.NewVReg(machir.GeneralPurpose)
	v.Alloc = 1 // first pool register
	l := fn.AppendLabel("entry")
	l.Append(machir.MachineInstruction{Mnemonic: "mov", Operands: []machir.Operand{
		{Kind: machir.OperandReg, Size: machir.Size8, Reg: 1},
		{Kind: machir.OperandReg, Size: machir.Size8, Reg: v.ID},
	}})
	l.Append(machir.MachineInstruction{Mnemonic: "ret"})
	seg.AddFunction(fn)

	out := render(t, seg)
	if strings.Contains(out, "movq %rbx, %rbx") {
		t.Errorf("redundant same-register mov not elided:\n%s", out)
	}
}

func TestTransformSubRegisterNames(t *testing.T) {
	seg := machir.NewSegment()
	fn := machir.NewMachineFunction("f", false)
	l := fn.AppendLabel("entry")
	// Physical id 1 is the first GP pool register (rbx); render it at every
	// width.
	for _, sz := range []machir.Size{machir.Size1, machir.Size2, machir.Size4, machir.Size8} {
		l.Append(machir.MachineInstruction{Mnemonic: "mov", Operands: []machir.Operand{
			{Kind: machir.OperandImm, Size: sz, Imm: 0},
			{Kind: machir.OperandReg, Size: sz, Reg: 1},
		}})
	}
	l.Append(machir.MachineInstruction{Mnemonic: "ret"})
	seg.AddFunction(fn)

	out := render(t, seg)
	for _, want := range []string{"movb $0, %bl", "movw $0, %bx", "movl $0, %ebx", "movq $0, %rbx"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTransformConstPoolSection(t *testing.T) {
	seg := machir.NewSegment()
	fn := machir.NewMachineFunction("f", false)
	fn.InternConst(".LCPI0_0", 8, []byte{0, 0, 0, 0, 0, 0, 0xf8, 0x3f})
	l := fn.AppendLabel("entry")
	l.Append(machir.MachineInstruction{Mnemonic: "ret"})
	seg.AddFunction(fn)

	out := render(t, seg)
	if !strings.Contains(out, `.rodata.cst8,"aM",@progbits,8`) {
		t.Errorf("missing merged rodata section directive in:\n%s", out)
	}
	if !strings.Contains(out, ".LCPI0_0:") {
		t.Errorf("missing pool entry label in:\n%s", out)
	}
	if !strings.Contains(out, ".p2align 3, 0x0") {
		t.Errorf("missing .p2align for an 8-byte constant in:\n%s", out)
	}
}

func TestTransformGlobals(t *testing.T) {
	seg := machir.NewSegment()
	seg.AddGlobal(&machir.MachineGlobal{Name: "counter", Size: 8, Init: machir.GlobalInit{Zero: true}})
	seg.AddGlobal(&machir.MachineGlobal{Name: "answer", Size: 8, Init: machir.GlobalInit{Bytes: []byte{42, 0, 0, 0, 0, 0, 0, 0}, Align: 8}})

	out := render(t, seg)
	for _, want := range []string{
		".bss",
		"counter:",
		".zero 8",
		".data",
		".type answer,@object",
		"answer:",
		".byte 42",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestTransformMemOperands(t *testing.T) {
	seg := machir.NewSegment()
	fn := machir.NewMachineFunction("f", false)
	l := fn.AppendLabel("entry")
	l.Append(machir.MachineInstruction{Mnemonic: "mov", Operands: []machir.Operand{
		{Kind: machir.OperandMem, Size: machir.Size8, Mem: machir.Mem{Disp: -8}},
		{Kind: machir.OperandReg, Size: machir.Size8, Reg: 1},
	}})
	l.Append(machir.MachineInstruction{Mnemonic: "lea", Operands: []machir.Operand{
		{Kind: machir.OperandMem, Size: machir.Size8, Mem: machir.Mem{Symbol: "g"}},
		{Kind: machir.OperandReg, Size: machir.Size8, Reg: 1},
	}})
	l.Append(machir.MachineInstruction{Mnemonic: "ret"})
	seg.AddFunction(fn)

	out := render(t, seg)
	if !strings.Contains(out, "movq -8(%rbp), %rbx") {
		t.Errorf("missing rbp-relative load in:\n%s", out)
	}
	if !strings.Contains(out, "leaq g(%rip), %rbx") {
		t.Errorf("missing rip-relative lea in:\n%s", out)
	}
}
