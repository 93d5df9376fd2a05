package sema

import (
	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/types"
)

// Mode selects how permissive a type check is.
type Mode int

const (
	Explicit Mode = iota
	Loose
	AllowImplicit
)

// Verdict is the result of a type check.
type Verdict int

const (
	MatchV Verdict = iota
	CastV
	MismatchV
)

// CheckTypes decides whether actual can stand where expected is
// required: structurally equal
// types Match; otherwise a mode that permits implicit casts tries the
// implicit-cast predicate; Loose additionally treats any pointer/integer
// pair as a Match (pointer arithmetic, not a conversion). Anything else is a
// Mismatch.
func CheckTypes(actual, expected types.QualType, mode Mode) Verdict {
	if types.TypeEqual(actual.Type, expected.Type) {
		return MatchV
	}
	switch mode {
	case AllowImplicit:
		if canImplicitCast(actual.Type, expected.Type) {
			return CastV
		}
	case Loose:
		if canImplicitCast(actual.Type, expected.Type) {
			return CastV
		}
		if (types.IsInteger(actual.Type) && types.IsPointer(expected.Type)) ||
			(types.IsPointer(actual.Type) && types.IsInteger(expected.Type)) {
			return MatchV
		}
	}
	return MismatchV
}

func intWidthSign(t types.Type) (types.IntWidth, bool, bool) {
	switch v := t.(type) {
	case types.Bool:
		return types.W8, false, true
	case types.Char:
		return types.W8, true, true
	case types.Int:
		return v.Width, true, true
	case types.UInt:
		return v.Width, false, true
	}
	return 0, false, false
}

func isVoidPointee(p types.Pointer) bool {
	_, ok := types.Underlying(p.Pointee.Type).(types.Void)
	return ok
}

// canImplicitCast reports whether actual silently converts to expected.
func canImplicitCast(actual, expected types.Type) bool {
	a, e := types.Underlying(actual), types.Underlying(expected)
	if _, ok := e.(types.Void); ok {
		return true // any value to void, discarded
	}
	if types.IsInteger(a) && types.IsInteger(e) {
		aw, asig, _ := intWidthSign(a)
		ew, esig, _ := intWidthSign(e)
		if asig == esig {
			return aw <= ew
		}
		return aw == ew
	}
	if types.IsInteger(a) {
		if _, ok := e.(types.Float); ok {
			return true
		}
	}
	if af, ok := a.(types.Float); ok {
		if ef, ok2 := e.(types.Float); ok2 {
			return af.Width <= ef.Width
		}
	}
	if arr, ok := a.(types.Array); ok {
		if ptr, ok2 := e.(types.Pointer); ok2 {
			return types.TypeEqual(arr.Elem.Type, ptr.Pointee.Type)
		}
	}
	if ap, ok := a.(types.Pointer); ok {
		if ep, ok2 := e.(types.Pointer); ok2 {
			return isVoidPointee(ap) || isVoidPointee(ep)
		}
	}
	return false
}

// canExplicitCast is a superset of the implicit predicate: it additionally
// allows narrowing,
// float/integer conversion in either direction, pointer/integer conversion
// in either direction, and pointer-to-pointer reinterpretation.
func canExplicitCast(actual, expected types.Type) bool {
	if canImplicitCast(actual, expected) {
		return true
	}
	a, e := types.Underlying(actual), types.Underlying(expected)
	if types.IsInteger(a) && types.IsInteger(e) {
		return true
	}
	if types.IsFloat(a) && types.IsFloat(e) {
		return true
	}
	if (types.IsFloat(a) && types.IsInteger(e)) || (types.IsInteger(a) && types.IsFloat(e)) {
		return true
	}
	if (types.IsInteger(a) && types.IsPointer(e)) || (types.IsPointer(a) && types.IsInteger(e)) {
		return true
	}
	if types.IsPointer(a) && types.IsPointer(e) {
		return true
	}
	return false
}

func isBooleanEvaluable(t types.Type) bool {
	return types.IsInteger(t) || types.IsFloat(t) || types.IsPointer(t)
}

func isLValue(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.Ref:
		return true
	case *ast.FieldAccess:
		return true
	case *ast.Subscript:
		return true
	case *ast.Unary:
		return v.Op == ast.UDeref
	}
	return false
}

// isConstantExpr recognizes the constant-expression subset allowed in a
// global's initializer: literals, sizeof, enum variant
// references, and arithmetic over other constant expressions.
func isConstantExpr(e ast.Expr) bool {
	switch v := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.CharLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit,
		*ast.SizeofType, *ast.SizeofExpr:
		return true
	case *ast.Ref:
		return v.VariantOf != nil
	case *ast.Unary:
		return isConstantExpr(v.Operand)
	case *ast.Binary:
		return v.Op != ast.BAssign && isConstantExpr(v.Left) && isConstantExpr(v.Right)
	case *ast.Cast:
		return isConstantExpr(v.Operand)
	}
	return false
}
