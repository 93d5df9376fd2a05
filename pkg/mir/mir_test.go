package mir

import (
	"testing"

	"github.com/bpetrakis/lacec/pkg/types"
)

func TestIntConstInternedByWidthAndValue(t *testing.T) {
	tctx := types.NewContext()
	cfg := NewCFG(tctx)
	s64 := types.QualType{Type: tctx.Int(types.W64)}

	a := cfg.IntConst(s64, 42)
	b := cfg.IntConst(s64, 42)
	if a != b {
		t.Error("same (width, value) must intern to the same constant")
	}
	if cfg.IntConst(s64, 43) == a {
		t.Error("different values must not intern together")
	}
	s32 := types.QualType{Type: tctx.Int(types.W32)}
	if cfg.IntConst(s32, 42) == a {
		t.Error("different widths must not intern together")
	}
}

func TestFloatAndStringConstInterning(t *testing.T) {
	tctx := types.NewContext()
	cfg := NewCFG(tctx)
	f64 := types.QualType{Type: tctx.Float(types.FW64)}

	if cfg.FloatConst(f64, 1.5) != cfg.FloatConst(f64, 1.5) {
		t.Error("equal float constants must intern together")
	}
	str := types.QualType{Type: tctx.Pointer(types.QualType{Type: tctx.Char()})}
	if cfg.StringConst(str, "hi") != cfg.StringConst(str, "hi") {
		t.Error("equal string constants must intern together")
	}
	if cfg.StringConst(str, "hi") == cfg.StringConst(str, "ho") {
		t.Error("distinct string contents must not intern together")
	}
}

func TestNullConstInternedPerType(t *testing.T) {
	tctx := types.NewContext()
	cfg := NewCFG(tctx)
	pChar := types.QualType{Type: tctx.Pointer(types.QualType{Type: tctx.Char()})}
	pVoid := types.QualType{Type: tctx.Pointer(types.QualType{Type: tctx.Void()})}

	if cfg.NullConst(pChar) != cfg.NullConst(pChar) {
		t.Error("null of one type must intern to one constant")
	}
	if cfg.NullConst(pChar) == cfg.NullConst(pVoid) {
		t.Error("nulls of different pointer types must stay distinct")
	}
}

func TestDefIDsUniqueWithinFunction(t *testing.T) {
	tctx := types.NewContext()
	fn := NewFunction("f", nil, types.QualType{Type: tctx.Int(types.W64)}, true)
	seen := make(map[DefID]bool)
	for i := 0; i < 100; i++ {
		id := fn.NewDef()
		if id == 0 {
			t.Fatal("def ids must never be 0")
		}
		if seen[id] {
			t.Fatalf("def id %d handed out twice", id)
		}
		seen[id] = true
	}
}

func TestBlockTerminator(t *testing.T) {
	tctx := types.NewContext()
	fn := NewFunction("f", nil, types.QualType{Type: tctx.Int(types.W64)}, true)
	b := fn.AppendBlock("entry")
	if b.Terminator() != nil {
		t.Error("an empty block has no terminator")
	}
	b.PushBack(&Instruction{Op: OpIntAdd, Def: fn.NewDef()})
	if b.Terminator() != nil {
		t.Error("a block ending in a non-terminator has no terminator")
	}
	b.PushBack(&Instruction{Op: OpReturn})
	term := b.Terminator()
	if term == nil || term.Op != OpReturn {
		t.Errorf("expected the return to terminate the block, got %+v", term)
	}
}

func TestIsTerminatorCoversControlOpcodes(t *testing.T) {
	for _, op := range []Opcode{OpJump, OpConditionalJump, OpReturn, OpAbort, OpUnreachable} {
		if !op.IsTerminator() {
			t.Errorf("%s must be a terminator", op)
		}
	}
	for _, op := range []Opcode{OpLoad, OpStore, OpIntAdd, OpCall, OpString} {
		if op.IsTerminator() {
			t.Errorf("%s must not be a terminator", op)
		}
	}
}

func TestFunctionBlockAndLocalOrder(t *testing.T) {
	tctx := types.NewContext()
	fn := NewFunction("f", nil, types.QualType{Type: tctx.Void()}, false)
	fn.AppendBlock("entry")
	fn.AppendBlock("loop.cond")
	fn.AppendBlock("loop.merge")
	blocks := fn.Blocks()
	want := []string{"entry", "loop.cond", "loop.merge"}
	for i, b := range blocks {
		if b.Name != want[i] {
			t.Errorf("block %d = %q, want %q", i, b.Name, want[i])
		}
	}

	s64 := types.QualType{Type: tctx.Int(types.W64)}
	fn.DeclareLocal("x", s64)
	fn.DeclareLocal("y", s64)
	if l, ok := fn.Local("x"); !ok || l.Name != "x" {
		t.Error("expected to look up local x by name")
	}
	if len(fn.Locals) != 2 || fn.Locals[0].Name != "x" || fn.Locals[1].Name != "y" {
		t.Errorf("locals out of definition order: %+v", fn.Locals)
	}
}
