package select_

import (
	"strings"
	"testing"

	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/machir"
	"github.com/bpetrakis/lacec/pkg/mir"
	"github.com/bpetrakis/lacec/pkg/mirgen"
	"github.com/bpetrakis/lacec/pkg/parser"
	"github.com/bpetrakis/lacec/pkg/sema"
	"github.com/bpetrakis/lacec/pkg/types"
)

func selectSource(t *testing.T, src string) *machir.Segment {
	t.Helper()
	diags := diag.New()
	tctx := types.NewContext()
	p := parser.New("test.lc", src, diags, tctx)
	prog := p.ParseProgram()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	if err := sema.Resolve(prog, diags); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := sema.Check(prog, diags); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	cfg, err := mirgen.Build(prog, diags)
	if err != nil {
		t.Fatalf("mirgen failed: %v", err)
	}
	return Select(cfg)
}

func findFunction(seg *machir.Segment, name string) *machir.MachineFunction {
	for _, fn := range seg.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func mnemonics(fn *machir.MachineFunction) []string {
	var out []string
	for _, l := range fn.Labels {
		for _, inst := range l.Insts {
			out = append(out, inst.Mnemonic)
		}
	}
	return out
}

func TestSelectReturnConst(t *testing.T) {
	seg := selectSource(t, `main :: () -> s64 { ret 0; }`)
	fn := findFunction(seg, "main")
	if fn == nil {
		t.Fatal("expected a selected main function")
	}
	ms := mnemonics(fn)
	if len(ms) == 0 || ms[len(ms)-1] != "ret" {
		t.Fatalf("expected the function to end in ret, got %v", ms)
	}
	// The return value must land in rax before the ret.
	var sawRaxMove bool
	for _, l := range fn.Labels {
		for _, inst := range l.Insts {
			if inst.Mnemonic == "mov" && len(inst.Operands) == 2 &&
				inst.Operands[1].Kind == machir.OperandReg && !inst.Operands[1].Reg.IsVirtual() {
				sawRaxMove = true
			}
		}
	}
	if !sawRaxMove {
		t.Error("expected a mov into a physical register for the return value")
	}
}

func TestSelectPrototypeSkipped(t *testing.T) {
	seg := selectSource(t, `
ext :: (x: s64) -> s64;
main :: () -> s64 { ret ext(1); }
`)
	if findFunction(seg, "ext") != nil {
		t.Error("a bodyless prototype must not be selected")
	}
	if findFunction(seg, "main") == nil {
		t.Error("expected main to be selected")
	}
}

func TestSelectFrameSlots(t *testing.T) {
	seg := selectSource(t, `main :: () -> s64 { let x: mut s64 = 1; let y: mut s64 = 2; ret x; }`)
	fn := findFunction(seg, "main")
	if len(fn.Frame) != 2 {
		t.Fatalf("expected 2 frame slots, got %d", len(fn.Frame))
	}
	if fn.Frame[0].FromLocal != "x" || fn.Frame[1].FromLocal != "y" {
		t.Errorf("frame slots out of definition order: %+v", fn.Frame)
	}
	if fn.FrameSize%16 != 0 {
		t.Errorf("frame size %d not 16-byte aligned", fn.FrameSize)
	}
}

func TestSelectParamSpillUsesABIRegisters(t *testing.T) {
	seg := selectSource(t, `add :: (a: s64, b: s64) -> s64 { ret a + b; }`)
	fn := findFunction(seg, "add")
	// The first two instructions spill the incoming rdi/rsi into the
	// parameters' stack slots.
	insts := fn.Labels[0].Insts
	if len(insts) < 2 {
		t.Fatalf("expected at least 2 spill instructions, got %d", len(insts))
	}
	for i := 0; i < 2; i++ {
		inst := insts[i]
		if inst.Mnemonic != "mov" {
			t.Errorf("spill %d: expected mov, got %s", i, inst.Mnemonic)
			continue
		}
		src, dst := inst.Operands[0], inst.Operands[1]
		if src.Kind != machir.OperandReg || src.Reg.IsVirtual() {
			t.Errorf("spill %d: source must be a physical argument register, got %+v", i, src)
		}
		if dst.Kind != machir.OperandMem || dst.Mem.Disp >= 0 {
			t.Errorf("spill %d: destination must be a negative rbp-relative slot, got %+v", i, dst)
		}
	}
}

func TestSelectCallMovesArgsIntoABIRegisters(t *testing.T) {
	seg := selectSource(t, `
f :: (a: s64, b: s64) -> s64;
main :: () -> s64 { ret f(1, 2); }
`)
	fn := findFunction(seg, "main")
	var callIdx int = -1
	var insts []machir.MachineInstruction
	for _, l := range fn.Labels {
		insts = append(insts, l.Insts...)
	}
	for i, inst := range insts {
		if inst.Mnemonic == "call" {
			callIdx = i
		}
	}
	if callIdx < 2 {
		t.Fatalf("expected a call preceded by argument moves, got %v", mnemonics(fn))
	}
	for _, inst := range insts[callIdx-2 : callIdx] {
		if inst.Mnemonic != "mov" {
			t.Errorf("expected mov before call, got %s", inst.Mnemonic)
			continue
		}
		dst := inst.Operands[1]
		if dst.Kind != machir.OperandReg || dst.Reg.IsVirtual() {
			t.Errorf("argument must move into a physical register, got %+v", dst)
		}
	}
}

func TestSelectDivisionUsesRaxRdx(t *testing.T) {
	seg := selectSource(t, `d :: (a: s64, b: s64) -> s64 { ret a / b; }`)
	fn := findFunction(seg, "d")
	ms := mnemonics(fn)
	var sawCqto, sawIdiv bool
	for _, m := range ms {
		if m == "cqto" {
			sawCqto = true
		}
		if m == "idiv" {
			sawIdiv = true
		}
	}
	if !sawCqto || !sawIdiv {
		t.Errorf("expected cqto and idiv in %v", ms)
	}
}

func TestSelectFloatConstGoesToPool(t *testing.T) {
	seg := selectSource(t, `f :: () -> f64 { ret 1.5; }`)
	fn := findFunction(seg, "f")
	if len(fn.ConstPool) != 1 {
		t.Fatalf("expected one pooled float constant, got %d", len(fn.ConstPool))
	}
	if !strings.HasPrefix(fn.ConstPool[0].Label, ".LCPI") {
		t.Errorf("unexpected pool label %q", fn.ConstPool[0].Label)
	}
	if len(fn.ConstPool[0].Bytes) != 8 {
		t.Errorf("expected 8 bytes for an f64 constant, got %d", len(fn.ConstPool[0].Bytes))
	}
}

func TestSelectPoolLabelsDistinctAcrossFunctions(t *testing.T) {
	seg := selectSource(t, `
f :: () -> f64 { ret 1.5; }
g :: () -> f64 { ret 2.5; }
`)
	labels := make(map[string]bool)
	for _, fn := range seg.Functions {
		for _, c := range fn.ConstPool {
			if labels[c.Label] {
				t.Errorf("duplicate constant-pool label %q across functions", c.Label)
			}
			labels[c.Label] = true
		}
	}
}

func TestSelectCondJumpShape(t *testing.T) {
	seg := selectSource(t, `f :: (a: s64) -> s64 { if a { ret 1; } ret 0; }`)
	fn := findFunction(seg, "f")
	ms := mnemonics(fn)
	var sawJne, sawJmp bool
	for _, m := range ms {
		if m == "jne" {
			sawJne = true
		}
		if m == "jmp" {
			sawJmp = true
		}
	}
	if !sawJne || !sawJmp {
		t.Errorf("expected jne + jmp for the conditional jump, got %v", ms)
	}
}

func TestSelectAggregateCopyCallsIntrinsic(t *testing.T) {
	seg := selectSource(t, `
Box :: struct { x: s32, y: s32 }
copyit :: (src: *Box, dst: *mut Box) -> void { *dst = *src; }
`)
	fn := findFunction(seg, "copyit")
	var sawCopyCall bool
	for _, l := range fn.Labels {
		for _, inst := range l.Insts {
			if inst.Mnemonic == "call" && len(inst.Operands) == 1 &&
				inst.Operands[0].Kind == machir.OperandFunc && inst.Operands[0].Name == "__copy" {
				sawCopyCall = true
			}
		}
	}
	if !sawCopyCall {
		t.Error("expected an aggregate store to lower to a __copy call")
	}
}

func TestSelectUnreachableIsUD2(t *testing.T) {
	cfg := mir.NewCFG(types.NewContext())
	fn := mir.NewFunction("f", nil, types.QualType{Type: types.Void{}}, true)
	b := fn.AppendBlock("entry")
	b.PushBack(&mir.Instruction{Op: mir.OpUnreachable})
	cfg.DeclareFunction(fn)
	seg := Select(cfg)
	mfn := findFunction(seg, "f")
	if len(mfn.Labels[0].Insts) != 1 || mfn.Labels[0].Insts[0].Mnemonic != "ud2" {
		t.Errorf("expected a lone ud2, got %+v", mfn.Labels[0].Insts)
	}
}
