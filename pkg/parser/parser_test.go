package parser

import (
	"testing"

	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/types"
)

func parse(t *testing.T, src string) (*ast.Program, *diag.Context) {
	t.Helper()
	diags := diag.New()
	tctx := types.NewContext()
	p := New("test.lc", src, diags, tctx)
	prog := p.ParseProgram()
	return prog, diags
}

func TestParseSimpleFunction(t *testing.T) {
	prog, diags := parse(t, `main :: () -> s64 { ret 0; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if len(prog.Defs) != 1 {
		t.Fatalf("expected 1 definition, got %d", len(prog.Defs))
	}
	fn, ok := prog.Defs[0].(*ast.FuncDef)
	if !ok {
		t.Fatalf("expected *ast.FuncDef, got %T", prog.Defs[0])
	}
	if fn.Name != "main" {
		t.Errorf("expected name 'main', got %q", fn.Name)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(fn.Body.Stmts))
	}
	if _, ok := fn.Body.Stmts[0].(*ast.RetStmt); !ok {
		t.Errorf("expected a ret statement, got %T", fn.Body.Stmts[0])
	}
}

func TestParseFunctionWithParams(t *testing.T) {
	prog, diags := parse(t, `add :: (a: s64, b: s64) -> s64 { ret a + b; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := prog.Defs[0].(*ast.FuncDef)
	if len(fn.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fn.Params))
	}
	if fn.Params[0].Name != "a" || fn.Params[1].Name != "b" {
		t.Errorf("unexpected param names: %+v", fn.Params)
	}
}

func TestParseStructDef(t *testing.T) {
	prog, diags := parse(t, `Point :: struct { x: s64, y: s64 }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	def, ok := prog.Defs[0].(*ast.StructDef)
	if !ok {
		t.Fatalf("expected *ast.StructDef, got %T", prog.Defs[0])
	}
	if def.Name != "Point" || len(def.Fields) != 2 {
		t.Errorf("unexpected struct def: %+v", def)
	}
}

func TestParseEnumDefWithExplicitValues(t *testing.T) {
	prog, diags := parse(t, `Color :: enum { Red = 1, Green, Blue = 5 }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	def := prog.Defs[0].(*ast.EnumDef)
	want := map[string]int64{"Red": 1, "Green": 2, "Blue": 5}
	if len(def.Variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(def.Variants))
	}
	for _, v := range def.Variants {
		if want[v.Name] != v.Value {
			t.Errorf("variant %s = %d, want %d", v.Name, v.Value, want[v.Name])
		}
	}
}

func TestParseUntilAndStop(t *testing.T) {
	prog, diags := parse(t, `foo :: () -> s64 { until 1 { stop; } ret 0; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := prog.Defs[0].(*ast.FuncDef)
	until, ok := fn.Body.Stmts[0].(*ast.UntilStmt)
	if !ok {
		t.Fatalf("expected an until statement, got %T", fn.Body.Stmts[0])
	}
	body := until.Body.(*ast.Block)
	if _, ok := body.Stmts[0].(*ast.StopStmt); !ok {
		t.Errorf("expected a stop statement inside the loop body, got %T", body.Stmts[0])
	}
}

func TestParseDuplicateTopLevelNameErrors(t *testing.T) {
	_, diags := parse(t, `foo :: () -> s64 { ret 0; } foo :: () -> s64 { ret 1; }`)
	if !diags.HasErrors() {
		t.Fatal("expected a duplicate-definition error")
	}
}

func TestParsePointerAndArrayTypes(t *testing.T) {
	prog, diags := parse(t, `g :: *s64;
arr :: [s32; 4];`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	g := prog.Defs[0].(*ast.GlobalDef)
	if _, ok := g.Declared.Type.(types.Pointer); !ok {
		t.Errorf("expected a pointer type, got %T", g.Declared.Type)
	}
	arr := prog.Defs[1].(*ast.GlobalDef)
	if _, ok := arr.Declared.Type.(types.Array); !ok {
		t.Errorf("expected an array type, got %T", arr.Declared.Type)
	}
}

func TestParseMutQualifier(t *testing.T) {
	prog, diags := parse(t, `main :: () -> s64 { let x: mut s64 = 5; ret x; }`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := prog.Defs[0].(*ast.FuncDef)
	let := fn.Body.Stmts[0].(*ast.LetStmt)
	if !let.Declared.IsMut() {
		t.Error("expected let binding to be declared mut")
	}
}

func TestParseLoadDirective(t *testing.T) {
	prog, diags := parse(t, `load "lib.lc";`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	load, ok := prog.Defs[0].(*ast.LoadDef)
	if !ok {
		t.Fatalf("expected *ast.LoadDef, got %T", prog.Defs[0])
	}
	if load.Path != "lib.lc" {
		t.Errorf("expected path 'lib.lc', got %q", load.Path)
	}
}

func TestParseMissingSemicolonReportsError(t *testing.T) {
	_, diags := parse(t, `main :: () -> s64 { ret 0 }`)
	if !diags.HasErrors() {
		t.Fatal("expected a missing-semicolon error")
	}
}
