package target

import (
	"testing"

	"github.com/bpetrakis/lacec/pkg/types"
)

func TestSizeOfScalars(t *testing.T) {
	tctx := types.NewContext()
	tests := []struct {
		name string
		typ  types.Type
		want uint64
	}{
		{"void", tctx.Void(), 0},
		{"bool", tctx.Bool(), 1},
		{"char", tctx.Char(), 1},
		{"s8", tctx.Int(types.W8), 1},
		{"s16", tctx.Int(types.W16), 2},
		{"s32", tctx.Int(types.W32), 4},
		{"s64", tctx.Int(types.W64), 8},
		{"u32", tctx.UInt(types.W32), 4},
		{"f32", tctx.Float(types.FW32), 4},
		{"f64", tctx.Float(types.FW64), 8},
		{"pointer", tctx.Pointer(types.QualType{Type: tctx.Char()}), 8},
	}
	for _, tt := range tests {
		if got := SizeOf(tt.typ); got != tt.want {
			t.Errorf("SizeOf(%s) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSizeOfArray(t *testing.T) {
	tctx := types.NewContext()
	arr := tctx.Array(types.QualType{Type: tctx.Int(types.W32)}, 10)
	if got := SizeOf(arr); got != 40 {
		t.Errorf("SizeOf([s32; 10]) = %d, want 40", got)
	}
}

func TestStructLayout(t *testing.T) {
	tctx := types.NewContext()
	s, err := tctx.DeclareStruct("Mixed")
	if err != nil {
		t.Fatalf("DeclareStruct failed: %v", err)
	}
	s.Fields = []types.Field{
		{Name: "a", Type: types.QualType{Type: tctx.Char()}},
		{Name: "b", Type: types.QualType{Type: tctx.Int(types.W64)}},
		{Name: "c", Type: types.QualType{Type: tctx.Int(types.W32)}},
	}

	// char at 0, s64 aligned up to 8, s32 at 16; total 20 rounded to 24.
	if got := FieldOffset(s, 0); got != 0 {
		t.Errorf("FieldOffset(a) = %d, want 0", got)
	}
	if got := FieldOffset(s, 1); got != 8 {
		t.Errorf("FieldOffset(b) = %d, want 8", got)
	}
	if got := FieldOffset(s, 2); got != 16 {
		t.Errorf("FieldOffset(c) = %d, want 16", got)
	}
	if got := SizeOf(s); got != 24 {
		t.Errorf("SizeOf(Mixed) = %d, want 24", got)
	}
	if got := AlignOf(s); got != 8 {
		t.Errorf("AlignOf(Mixed) = %d, want 8", got)
	}
}

func TestAliasTransparentInSizing(t *testing.T) {
	tctx := types.NewContext()
	a, err := tctx.DeclareAlias("word", types.QualType{Type: tctx.Int(types.W64)})
	if err != nil {
		t.Fatalf("DeclareAlias failed: %v", err)
	}
	if got := SizeOf(a); got != 8 {
		t.Errorf("SizeOf(alias word) = %d, want 8", got)
	}
}

func TestCalleeSavedClassification(t *testing.T) {
	for _, r := range []Reg{RBX, R12, R13, R14, R15, RSP, RBP} {
		if !IsCalleeSaved(r) {
			t.Errorf("expected %s to be callee-saved", r)
		}
		if IsCallerSaved(r) {
			t.Errorf("expected %s not to be caller-saved", r)
		}
	}
	for _, r := range []Reg{RAX, RCX, RDX, RDI, RSI, R8, R9, R10, R11, XMM0, XMM7, XMM15} {
		if !IsCallerSaved(r) {
			t.Errorf("expected %s to be caller-saved", r)
		}
		if IsCalleeSaved(r) {
			t.Errorf("expected %s not to be callee-saved", r)
		}
	}
}

func TestAllocationPoolsExcludeFramePointers(t *testing.T) {
	for _, r := range AllGeneralPurpose {
		if r == RBP || r == RSP {
			t.Errorf("allocation pool must not contain %s", r)
		}
	}
	if len(AllGeneralPurpose) != 14 {
		t.Errorf("expected 14 general-purpose pool registers, got %d", len(AllGeneralPurpose))
	}
	if len(AllFloatingPoint) != 16 {
		t.Errorf("expected 16 floating-point pool registers, got %d", len(AllFloatingPoint))
	}
}

func TestArgRegSequences(t *testing.T) {
	wantInt := []Reg{RDI, RSI, RDX, RCX, R8, R9}
	for i, r := range IntArgRegs {
		if r != wantInt[i] {
			t.Errorf("IntArgRegs[%d] = %s, want %s", i, r, wantInt[i])
		}
	}
	wantFloat := []Reg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5}
	for i, r := range FloatArgRegs {
		if r != wantFloat[i] {
			t.Errorf("FloatArgRegs[%d] = %s, want %s", i, r, wantFloat[i])
		}
	}
}
