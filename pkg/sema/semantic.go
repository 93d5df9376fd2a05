package sema

import (
	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/types"
)

// Checker is the semantic-analysis visitor: the second pass over a
// symbol-resolved AST, tracking the current function and loop depth as it
// walks.
type Checker struct {
	diags     *diag.Context
	curFunc   *ast.FuncDef
	loopDepth int
}

// Check runs semantic analysis over prog, validating types and rewriting
// the AST to insert explicit Cast nodes wherever CheckTypes downgrades a
// Match to a Cast. Returns the first fatal error, if any.
func Check(prog *ast.Program, diags *diag.Context) error {
	c := &Checker{diags: diags}
	for _, def := range prog.Defs {
		if err := c.checkDef(def); err != nil {
			return err
		}
	}
	return nil
}

// adoptLiteralType retypes a bare numeric literal to the type its context
// expects, so `let x: s32 = 1` reads as an s32 initializer rather than a
// narrowing of the literal's default s64.
func adoptLiteralType(e ast.Expr, want types.QualType) {
	switch e.(type) {
	case *ast.IntLit:
		if types.IsInteger(want.Type) {
			e.SetType(types.QualType{Type: want.Type})
		}
	case *ast.FloatLit:
		if types.IsFloat(want.Type) {
			e.SetType(types.QualType{Type: want.Type})
		}
	}
}

func (c *Checker) checkDef(def ast.Definition) error {
	switch d := def.(type) {
	case *ast.LoadDef, *ast.StructDef, *ast.EnumDef:
		return nil

	case *ast.FuncDef:
		if d.Name == "main" {
			if !d.External {
				return c.diags.Fatalf(d.Span(), "main must have external linkage")
			}
			if i, ok := types.Underlying(d.Return.Type).(types.Int); !ok || i.Width != types.W64 {
				return c.diags.Fatalf(d.Span(), "main must return s64")
			}
		}
		if d.Body == nil {
			return nil
		}
		outer := c.curFunc
		c.curFunc = d
		err := c.checkStmt(d.Body)
		c.curFunc = outer
		if err != nil {
			return err
		}
		if _, isVoid := types.Underlying(d.Return.Type).(types.Void); !isVoid && !stmtAlwaysReturns(d.Body) {
			c.diags.Warnf(d.Span(), "function %q does not always return", d.Name)
		}
		return nil

	case *ast.GlobalDef:
		if d.Init == nil {
			return nil
		}
		if err := c.checkExpr(d.Init); err != nil {
			return err
		}
		if !isConstantExpr(d.Init) {
			return c.diags.Fatalf(d.Span(), "global initializer must be a constant expression")
		}
		adoptLiteralType(d.Init, d.Declared)
		switch CheckTypes(d.Init.Type(), d.Declared, AllowImplicit) {
		case MismatchV:
			return c.diags.Fatalf(d.Span(), "cannot initialize %s with %s", d.Declared, d.Init.Type())
		case CastV:
			d.Init = ast.NewCast(d.Init.Span(), ast.CastImplicit, d.Declared, d.Init)
		}
		return nil
	}
	return nil
}

// stmtAlwaysReturns conservatively reports whether every path through s
// ends in a ret. Loops never count: an `until` condition may hold on entry.
func stmtAlwaysReturns(s ast.Stmt) bool {
	switch st := s.(type) {
	case *ast.RetStmt:
		return true
	case *ast.Block:
		for _, inner := range st.Stmts {
			if stmtAlwaysReturns(inner) {
				return true
			}
		}
		return false
	case *ast.IfStmt:
		return st.Else != nil && stmtAlwaysReturns(st.Then) && stmtAlwaysReturns(st.Else)
	}
	return false
}

func (c *Checker) checkStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		for _, inner := range st.Stmts {
			if err := c.checkStmt(inner); err != nil {
				return err
			}
		}
		return nil

	case *ast.LetStmt:
		if st.Init == nil {
			return nil
		}
		if err := c.checkExpr(st.Init); err != nil {
			return err
		}
		adoptLiteralType(st.Init, st.Declared)
		switch CheckTypes(st.Init.Type(), st.Declared, AllowImplicit) {
		case MismatchV:
			return c.diags.Fatalf(st.Span(), "cannot initialize %s with %s", st.Declared, st.Init.Type())
		case CastV:
			st.Init = ast.NewCast(st.Init.Span(), ast.CastImplicit, st.Declared, st.Init)
		}
		return nil

	case *ast.RetStmt:
		if c.curFunc == nil {
			return c.diags.Fatalf(st.Span(), "ret outside of a function")
		}
		retT := c.curFunc.Return
		if _, isVoid := types.Underlying(retT.Type).(types.Void); isVoid {
			if st.Value != nil {
				return c.diags.Fatalf(st.Span(), "a void function must not return a value")
			}
			return nil
		}
		if st.Value == nil {
			return c.diags.Fatalf(st.Span(), "missing return value")
		}
		if err := c.checkExpr(st.Value); err != nil {
			return err
		}
		adoptLiteralType(st.Value, retT)
		switch CheckTypes(st.Value.Type(), retT, AllowImplicit) {
		case MismatchV:
			return c.diags.Fatalf(st.Span(), "cannot return %s from a function returning %s", st.Value.Type(), retT)
		case CastV:
			st.Value = ast.NewCast(st.Value.Span(), ast.CastImplicit, retT, st.Value)
		}
		return nil

	case *ast.IfStmt:
		if err := c.checkExpr(st.Cond); err != nil {
			return err
		}
		if !isBooleanEvaluable(st.Cond.Type().Type) {
			return c.diags.Fatalf(st.Span(), "if condition must be boolean-evaluable, got %s", st.Cond.Type())
		}
		if err := c.checkStmt(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return c.checkStmt(st.Else)
		}
		return nil

	case *ast.UntilStmt:
		if err := c.checkExpr(st.Cond); err != nil {
			return err
		}
		if !isBooleanEvaluable(st.Cond.Type().Type) {
			return c.diags.Fatalf(st.Span(), "until condition must be boolean-evaluable, got %s", st.Cond.Type())
		}
		if st.Body == nil {
			return nil
		}
		c.loopDepth++
		err := c.checkStmt(st.Body)
		c.loopDepth--
		return err

	case *ast.StopStmt:
		if c.loopDepth == 0 {
			return c.diags.Fatalf(st.Span(), "stop outside of a loop")
		}
		return nil

	case *ast.RestartStmt:
		if c.loopDepth == 0 {
			return c.diags.Fatalf(st.Span(), "restart outside of a loop")
		}
		return nil

	case *ast.ExprStmt:
		return c.checkExpr(st.Expr)
	}
	return nil
}

func (c *Checker) checkExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.CharLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit:
		return nil

	case *ast.Ref:
		return nil // named and typed by symbol analysis; nothing further to check

	case *ast.Unary:
		if err := c.checkExpr(ex.Operand); err != nil {
			return err
		}
		return c.checkUnary(ex)

	case *ast.Binary:
		if err := c.checkExpr(ex.Left); err != nil {
			return err
		}
		if err := c.checkExpr(ex.Right); err != nil {
			return err
		}
		return c.checkBinary(ex)

	case *ast.Call:
		if err := c.checkExpr(ex.Callee); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := c.checkExpr(a); err != nil {
				return err
			}
		}
		return c.checkCall(ex)

	case *ast.Subscript:
		if err := c.checkExpr(ex.Base); err != nil {
			return err
		}
		if err := c.checkExpr(ex.Index); err != nil {
			return err
		}
		switch types.Underlying(ex.Base.Type().Type).(type) {
		case types.Array, types.Pointer:
			return nil
		default:
			return c.diags.Fatalf(ex.Span(), "cannot subscript non-array/pointer type %s", ex.Base.Type())
		}

	case *ast.FieldAccess:
		return c.checkExpr(ex.Base) // base kind was already validated while resolving the field

	case *ast.Cast:
		if err := c.checkExpr(ex.Operand); err != nil {
			return err
		}
		if !canExplicitCast(ex.Operand.Type().Type, ex.Type().Type) {
			return c.diags.Fatalf(ex.Span(), "invalid cast from %s to %s", ex.Operand.Type(), ex.Type())
		}
		return nil

	case *ast.SizeofType, *ast.SizeofExpr:
		return nil
	}
	return nil
}

func (c *Checker) checkUnary(u *ast.Unary) error {
	t := u.Operand.Type().Type
	switch u.Op {
	case ast.UNeg:
		if !types.IsInteger(t) && !types.IsFloat(t) {
			return c.diags.Fatalf(u.Span(), "'-' requires an integer or float operand, got %s", u.Operand.Type())
		}
	case ast.UBitNot:
		if !types.IsInteger(t) {
			return c.diags.Fatalf(u.Span(), "'~' requires an integer operand, got %s", u.Operand.Type())
		}
	case ast.UNot:
		if !types.IsScalar(t) {
			return c.diags.Fatalf(u.Span(), "'!' requires a scalar operand, got %s", u.Operand.Type())
		}
	case ast.UAddrOf:
		if !isLValue(u.Operand) {
			return c.diags.Fatalf(u.Span(), "'&' requires an l-value operand")
		}
	case ast.UDeref:
		if !types.IsPointer(t) {
			return c.diags.Fatalf(u.Span(), "'*' requires a pointer operand, got %s", u.Operand.Type())
		}
	}
	return nil
}

func (c *Checker) checkBinary(b *ast.Binary) error {
	if b.Op == ast.BAssign {
		if !isLValue(b.Left) {
			return c.diags.Fatalf(b.Span(), "assignment target must be an l-value")
		}
		if !b.Left.Type().IsMut() {
			return c.diags.Fatalf(b.Span(), "assignment target is not mutable")
		}
		adoptLiteralType(b.Right, b.Left.Type())
		switch CheckTypes(b.Right.Type(), b.Left.Type(), AllowImplicit) {
		case MismatchV:
			return c.diags.Fatalf(b.Span(), "cannot assign %s to %s", b.Right.Type(), b.Left.Type())
		case CastV:
			b.Right = ast.NewCast(b.Right.Span(), ast.CastImplicit, b.Left.Type(), b.Right)
		}
		return nil
	}

	if b.Op == ast.BAnd || b.Op == ast.BOr {
		if !isBooleanEvaluable(b.Left.Type().Type) || !isBooleanEvaluable(b.Right.Type().Type) {
			return c.diags.Fatalf(b.Span(), "'%s' requires boolean-evaluable operands", b.Op)
		}
		return nil
	}

	mode := AllowImplicit
	if b.Op == ast.BAdd || b.Op == ast.BSub {
		mode = Loose
	}
	adoptLiteralType(b.Right, b.Left.Type())
	adoptLiteralType(b.Left, b.Right.Type())
	switch CheckTypes(b.Right.Type(), b.Left.Type(), mode) {
	case MismatchV:
		return c.diags.Fatalf(b.Span(), "incompatible operand types %s and %s", b.Left.Type(), b.Right.Type())
	case CastV:
		b.Right = ast.NewCast(b.Right.Span(), ast.CastImplicit, b.Left.Type(), b.Right)
	}
	if !b.Op.IsComparison() {
		// Literal adoption may have retyped the left operand; keep the node's
		// own type in step with it.
		b.SetType(types.QualType{Type: b.Left.Type().Type})
	}
	return nil
}

func (c *Checker) checkCall(call *ast.Call) error {
	fn, ok := types.Underlying(call.Callee.Type().Type).(types.Function)
	if !ok {
		return c.diags.Fatalf(call.Span(), "called expression is not a function")
	}
	if len(call.Args) != len(fn.Params) {
		return c.diags.Fatalf(call.Span(), "expected %d argument(s), got %d", len(fn.Params), len(call.Args))
	}
	for i, want := range fn.Params {
		adoptLiteralType(call.Args[i], want)
		switch CheckTypes(call.Args[i].Type(), want, AllowImplicit) {
		case MismatchV:
			return c.diags.Fatalf(call.Args[i].Span(), "argument %d: cannot use %s as %s", i+1, call.Args[i].Type(), want)
		case CastV:
			call.Args[i] = ast.NewCast(call.Args[i].Span(), ast.CastImplicit, want, call.Args[i])
		}
	}
	return nil
}
