package mirgen

import (
	"testing"

	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/mir"
	"github.com/bpetrakis/lacec/pkg/parser"
	"github.com/bpetrakis/lacec/pkg/sema"
	"github.com/bpetrakis/lacec/pkg/types"
)

func buildCFG(t *testing.T, src string) *mir.CFG {
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
	cfg, err := Build(prog, diags)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return cfg
}

func findFunc(cfg *mir.CFG, name string) *mir.Function {
	for _, fn := range cfg.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

func TestBuildReturnConst(t *testing.T) {
	cfg := buildCFG(t, `main :: () -> s64 { ret 0; }`)
	fn := findFunc(cfg, "main")
	if fn == nil {
		t.Fatal("expected a main function")
	}
	blocks := fn.Blocks()
	if len(blocks) != 1 {
		t.Fatalf("expected a single block, got %d", len(blocks))
	}
	term := blocks[0].Terminator()
	if term == nil || term.Op != mir.OpReturn {
		t.Fatalf("expected a return terminator, got %+v", term)
	}
}

func TestBuildUntilLoopCreatesThreeBlocks(t *testing.T) {
	cfg := buildCFG(t, `foo :: () -> s64 { until 1 { ret 0; } ret 1; }`)
	fn := findFunc(cfg, "foo")
	names := map[string]bool{}
	for _, b := range fn.Blocks() {
		names[b.Name] = true
	}
	for _, want := range []string{"loop.cond", "loop.body", "loop.merge"} {
		if !names[want] {
			t.Errorf("expected a block named %q, got blocks %v", want, names)
		}
	}
}

func TestBuildShortCircuitAndCreatesMergeBlocks(t *testing.T) {
	cfg := buildCFG(t, `foo :: (a: s64, b: s64) -> bool { ret a && b; }`)
	fn := findFunc(cfg, "foo")
	names := map[string]bool{}
	for _, b := range fn.Blocks() {
		names[b.Name] = true
	}
	if !names["sc.rhs"] || !names["sc.merge"] {
		t.Errorf("expected sc.rhs and sc.merge blocks, got %v", names)
	}
}

func TestBuildMutateAndReturn(t *testing.T) {
	cfg := buildCFG(t, `main :: () -> s64 { let x: mut s64 = 5; x = x + 3; ret x; }`)
	fn := findFunc(cfg, "main")
	var haveStore, haveAdd bool
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions() {
			if inst.Op == mir.OpStore {
				haveStore = true
			}
			if inst.Op == mir.OpIntAdd {
				haveAdd = true
			}
		}
	}
	if !haveStore {
		t.Error("expected a store instruction for the mutation")
	}
	if !haveAdd {
		t.Error("expected an integer add instruction")
	}
}

func TestBuildIfStmtBranches(t *testing.T) {
	cfg := buildCFG(t, `foo :: (a: s64) -> s64 { if a { ret 1; } ret 0; }`)
	fn := findFunc(cfg, "foo")
	var sawCondJump bool
	for _, b := range fn.Blocks() {
		if term := b.Terminator(); term != nil && term.Op == mir.OpConditionalJump {
			sawCondJump = true
		}
	}
	if !sawCondJump {
		t.Error("expected a conditional jump terminator for the if statement")
	}
}

func TestBuildFunctionParamsAndReturnType(t *testing.T) {
	cfg := buildCFG(t, `add :: (a: s64, b: s64) -> s64 { ret a + b; }`)
	fn := findFunc(cfg, "add")
	if fn == nil {
		t.Fatal("expected an add function")
	}
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if _, ok := types.Underlying(fn.Return.Type).(types.Int); !ok {
		t.Errorf("expected integer return type, got %s", fn.Return)
	}
}

func TestEveryBlockEndsWithOneTerminator(t *testing.T) {
	cfg := buildCFG(t, `
foo :: (a: s64, b: s64) -> bool {
	let acc: mut s64 = 0;
	until a {
		if b { acc = acc + 1; } else { acc = acc - 1; }
	}
	ret acc && b;
}`)
	fn := findFunc(cfg, "foo")
	for _, b := range fn.Blocks() {
		insts := b.Instructions()
		if len(insts) == 0 {
			t.Errorf("block %s is empty", b.Name)
			continue
		}
		for i, inst := range insts {
			isLast := i == len(insts)-1
			if inst.Op.IsTerminator() != isLast {
				t.Errorf("block %s: terminator placement wrong at %d (%s)", b.Name, i, inst.Op)
			}
		}
	}
}

func TestJumpArgsMatchTargetParams(t *testing.T) {
	cfg := buildCFG(t, `foo :: (a: s64, b: s64) -> bool { ret a || b; }`)
	fn := findFunc(cfg, "foo")
	checkEdge := func(dest *mir.Block, args []mir.Operand) {
		if dest == nil {
			return
		}
		if len(args) > 0 && len(args) != len(dest.Params) {
			t.Errorf("edge into %s carries %d args for %d params", dest.Name, len(args), len(dest.Params))
			return
		}
		for i := range args {
			if i < len(dest.Params) && !types.Equal(args[i].Type, dest.Params[i].Type) {
				t.Errorf("edge into %s: arg %d type %s != param type %s", dest.Name, i, args[i].Type, dest.Params[i].Type)
			}
		}
	}
	for _, b := range fn.Blocks() {
		term := b.Terminator()
		if term == nil {
			t.Fatalf("block %s unterminated", b.Name)
		}
		checkEdge(term.TrueDest, term.TrueArgs)
		checkEdge(term.FalseDest, term.FalseArgs)
	}
}

func TestAggregateAssignLowersToCopyIntrinsic(t *testing.T) {
	cfg := buildCFG(t, `
Box :: struct { x: s32, y: s32 }
clone :: (src: *Box, dst: *mut Box) -> void { *dst = *src; }`)
	fn := findFunc(cfg, "clone")
	var sawCopy bool
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions() {
			if inst.Op == mir.OpCall && len(inst.Operands) == 4 &&
				inst.Operands[0].Kind == mir.ValFunction && inst.Operands[0].Func == "__copy" {
				sawCopy = true
			}
		}
	}
	if !sawCopy {
		t.Error("expected an aggregate assignment to call __copy(dst, src, size)")
	}
}

func TestFieldAccessCarriesFieldIndex(t *testing.T) {
	cfg := buildCFG(t, `
Point :: struct { x: s64, y: s64 }
gety :: (p: *Point) -> s64 { ret p.y; }`)
	fn := findFunc(cfg, "gety")
	var sawAccess bool
	for _, b := range fn.Blocks() {
		for _, inst := range b.Instructions() {
			if inst.Op == mir.OpAccess {
				sawAccess = true
				if inst.FieldIndex != 1 {
					t.Errorf("expected field index 1 for y, got %d", inst.FieldIndex)
				}
			}
		}
	}
	if !sawAccess {
		t.Error("expected an access instruction for the field read")
	}
}
