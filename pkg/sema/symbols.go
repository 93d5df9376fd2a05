// Package sema implements the two analysis passes that run over a parsed
// ast.Program before MIR generation: symbol analysis (Deferred-type and
// reference resolution, this file) and semantic analysis (type-checking and
// cast insertion, semantic.go).
package sema

import (
	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/types"
)

// Resolver is the symbol-analysis visitor. Its current scope tracks the
// lexical-scope tree built by the parser; it moves into a function's own
// scope (and back out) while walking that function's body, same as the
// parser did while building it.
type Resolver struct {
	tctx  *types.Context
	diags *diag.Context
	scope *ast.Scope
}

// Resolve runs symbol analysis over prog. It mutates the AST in place:
// Deferred type slots are replaced with the resolved interned type, Ref
// nodes get their defining node attached, and FieldAccess nodes get their
// resolved field index. Returns the first fatal error encountered, if any
// (no error recovery within one translation unit).
func Resolve(prog *ast.Program, diags *diag.Context) error {
	r := &Resolver{tctx: prog.Types, diags: diags, scope: prog.Root}
	if err := r.declareTypes(prog); err != nil {
		return err
	}
	for _, def := range prog.Defs {
		if err := r.visitDef(def); err != nil {
			return err
		}
	}
	return nil
}

// declareTypes creates the backing *types.Struct/*types.Enum for every
// struct/enum definition and repoints their scope bindings at it, before any
// Deferred type is resolved. This is what makes forward references (a
// struct field naming a struct defined later in the file) safe: every
// Deferred resolution after this point observes the same pointer that will
// later be filled in, not a stale copy (see pkg/types, Struct/Enum doc).
func (r *Resolver) declareTypes(prog *ast.Program) error {
	for _, def := range prog.Defs {
		switch d := def.(type) {
		case *ast.StructDef:
			s, err := r.tctx.DeclareStruct(d.Name)
			if err != nil {
				return r.diags.Fatalf(d.Span(), "%v", err)
			}
			d.Type = s
			if b, ok := prog.Root.Lookup(d.Name); ok {
				b.Type = s
			}
		case *ast.EnumDef:
			e, err := r.tctx.DeclareEnum(d.Name, d.Underlying.Type)
			if err != nil {
				return r.diags.Fatalf(d.Span(), "%v", err)
			}
			e.Variants = make([]types.Variant, len(d.Variants))
			for i, v := range d.Variants {
				e.Variants[i] = types.Variant{Name: v.Name, Value: v.Value}
			}
			d.Type = e
			if b, ok := prog.Root.Lookup(d.Name); ok {
				b.Type = e
			}
		}
	}
	return nil
}

func (r *Resolver) visitDef(def ast.Definition) error {
	switch d := def.(type) {
	case *ast.LoadDef:
		// Already resolved and flattened into prog.Defs by the driver.
		return nil

	case *ast.StructDef:
		fields := make([]types.Field, len(d.Fields))
		for i := range d.Fields {
			rt, ok := r.resolveQualType(r.scope, d.Fields[i].Type)
			if !ok {
				return r.diags.Fatalf(d.Span(), "unresolved type: %s", d.Fields[i].Type)
			}
			d.Fields[i].Type = rt
			fields[i] = types.Field{Name: d.Fields[i].Name, Type: rt}
		}
		d.Type.Fields = fields
		return nil

	case *ast.EnumDef:
		return nil // underlying is always a concrete builtin; nothing to resolve

	case *ast.FuncDef:
		ret, ok := r.resolveQualType(r.scope, d.Return)
		if !ok {
			return r.diags.Fatalf(d.Span(), "unresolved type: %s", d.Return)
		}
		d.Return = ret
		for i := range d.Params {
			pt, ok := r.resolveQualType(r.scope, d.Params[i].Type)
			if !ok {
				return r.diags.Fatalf(d.Span(), "unresolved type: %s", d.Params[i].Type)
			}
			d.Params[i].Type = pt
		}
		if d.Body == nil {
			return nil
		}
		outer := r.scope
		r.scope = d.Scope
		err := r.visitStmt(d.Body)
		r.scope = outer
		return err

	case *ast.GlobalDef:
		dt, ok := r.resolveQualType(r.scope, d.Declared)
		if !ok {
			return r.diags.Fatalf(d.Span(), "unresolved type: %s", d.Declared)
		}
		d.Declared = dt
		if d.Init != nil {
			return r.visitExpr(d.Init)
		}
		return nil
	}
	return nil
}

func (r *Resolver) visitStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		outer := r.scope
		r.scope = st.Scope
		for _, inner := range st.Stmts {
			if err := r.visitStmt(inner); err != nil {
				r.scope = outer
				return err
			}
		}
		r.scope = outer
		return nil

	case *ast.LetStmt:
		dt, ok := r.resolveQualType(r.scope, st.Declared)
		if !ok {
			return r.diags.Fatalf(st.Span(), "unresolved type: %s", st.Declared)
		}
		st.Declared = dt
		if st.Init != nil {
			return r.visitExpr(st.Init)
		}
		return nil

	case *ast.RetStmt:
		if st.Value != nil {
			return r.visitExpr(st.Value)
		}
		return nil

	case *ast.IfStmt:
		if err := r.visitExpr(st.Cond); err != nil {
			return err
		}
		if err := r.visitStmt(st.Then); err != nil {
			return err
		}
		if st.Else != nil {
			return r.visitStmt(st.Else)
		}
		return nil

	case *ast.UntilStmt:
		if err := r.visitExpr(st.Cond); err != nil {
			return err
		}
		if st.Body != nil {
			return r.visitStmt(st.Body)
		}
		return nil

	case *ast.StopStmt, *ast.RestartStmt:
		return nil

	case *ast.ExprStmt:
		return r.visitExpr(st.Expr)
	}
	return nil
}

func (r *Resolver) visitExpr(e ast.Expr) error {
	switch ex := e.(type) {
	case *ast.IntLit:
		ex.SetType(types.QualType{Type: r.tctx.Int(types.W64)})
	case *ast.FloatLit:
		ex.SetType(types.QualType{Type: r.tctx.Float(types.FW64)})
	case *ast.CharLit:
		ex.SetType(types.QualType{Type: r.tctx.Char()})
	case *ast.StringLit:
		ex.SetType(types.QualType{Type: r.tctx.Pointer(types.QualType{Type: r.tctx.Char()})})
	case *ast.BoolLit:
		ex.SetType(types.QualType{Type: r.tctx.Bool()})
	case *ast.NullLit:
		ex.SetType(types.QualType{Type: r.tctx.Pointer(types.QualType{Type: r.tctx.Void()})})

	case *ast.Ref:
		return r.resolveRef(ex)

	case *ast.Unary:
		if err := r.visitExpr(ex.Operand); err != nil {
			return err
		}
		return r.inferUnaryType(ex)

	case *ast.Binary:
		if err := r.visitExpr(ex.Left); err != nil {
			return err
		}
		if err := r.visitExpr(ex.Right); err != nil {
			return err
		}
		r.inferBinaryType(ex)

	case *ast.Call:
		if err := r.visitExpr(ex.Callee); err != nil {
			return err
		}
		for _, a := range ex.Args {
			if err := r.visitExpr(a); err != nil {
				return err
			}
		}
		// A function's return type may still be indeterminate here only if
		// the callee failed to resolve to a Function type; semantic
		// analysis reports that case with better context, so this pass
		// just leaves the call untyped (zero QualType) rather than fatal.
		if fn, ok := types.Underlying(ex.Callee.Type().Type).(types.Function); ok {
			ex.SetType(fn.Return)
		}

	case *ast.Subscript:
		if err := r.visitExpr(ex.Base); err != nil {
			return err
		}
		if err := r.visitExpr(ex.Index); err != nil {
			return err
		}
		r.inferSubscriptType(ex)

	case *ast.FieldAccess:
		if err := r.visitExpr(ex.Base); err != nil {
			return err
		}
		return r.resolveFieldAccess(ex)

	case *ast.Cast:
		return r.visitExpr(ex.Operand)

	case *ast.SizeofType:
		rt, ok := r.resolveQualType(r.scope, ex.Arg)
		if !ok {
			return r.diags.Fatalf(ex.Span(), "unresolved type: %s", ex.Arg)
		}
		ex.Arg = rt
		ex.SetType(types.QualType{Type: r.tctx.UInt(types.W64)})

	case *ast.SizeofExpr:
		if err := r.visitExpr(ex.Arg); err != nil {
			return err
		}
		ex.SetType(types.QualType{Type: r.tctx.UInt(types.W64)})
	}
	return nil
}

func (r *Resolver) resolveRef(ref *ast.Ref) error {
	b, ok := r.scope.Lookup(ref.Name)
	if !ok {
		return r.diags.Fatalf(ref.Span(), "unresolved reference: %s", ref.Name)
	}
	switch b.Kind {
	case ast.BindType:
		return r.diags.Fatalf(ref.Span(), "invalid reference: %q is a type", ref.Name)

	case ast.BindVariant:
		ref.VariantOf = b.Enum
		ref.VariantName = b.VariantName
		ref.SetType(types.QualType{Type: b.Enum.Type})
		return nil
	}

	ref.Def = b.Def
	if b.Param != nil {
		ref.SetType(b.Param.Type)
		return nil
	}
	switch d := b.Def.(type) {
	case *ast.FuncDef:
		params := make([]types.QualType, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.Type
		}
		ref.SetType(types.QualType{Type: r.tctx.Function(d.Return, params)})
	case *ast.GlobalDef:
		ref.SetType(d.Declared)
	case *ast.LetStmt:
		ref.SetType(d.Declared)
	}
	return nil
}

func (r *Resolver) inferUnaryType(u *ast.Unary) error {
	opT := u.Operand.Type()
	switch u.Op {
	case ast.UDeref:
		p, ok := types.Underlying(opT.Type).(types.Pointer)
		if !ok {
			return r.diags.Fatalf(u.Span(), "cannot dereference non-pointer type %s", opT)
		}
		u.SetType(p.Pointee)
	case ast.UAddrOf:
		u.SetType(types.QualType{Type: r.tctx.Pointer(opT)})
	case ast.UNot:
		u.SetType(types.QualType{Type: r.tctx.Bool()})
	default: // UNeg, UBitNot
		u.SetType(opT)
	}
	return nil
}

func (r *Resolver) inferBinaryType(b *ast.Binary) {
	if b.Op.IsComparison() || b.Op == ast.BAnd || b.Op == ast.BOr {
		b.SetType(types.QualType{Type: r.tctx.Bool()})
		return
	}
	b.SetType(b.Left.Type())
}

func (r *Resolver) inferSubscriptType(s *ast.Subscript) {
	switch t := types.Underlying(s.Base.Type().Type).(type) {
	case types.Array:
		s.SetType(t.Elem)
	case types.Pointer:
		s.SetType(t.Pointee)
	default:
		r.diags.Errorf(s.Span(), "cannot subscript non-array/pointer type %s", s.Base.Type())
	}
}

func (r *Resolver) resolveFieldAccess(fa *ast.FieldAccess) error {
	t := types.Underlying(fa.Base.Type().Type)
	if p, ok := t.(types.Pointer); ok {
		t = types.Underlying(p.Pointee.Type)
	}
	sd, ok := t.(*types.Struct)
	if !ok {
		return r.diags.Fatalf(fa.Span(), "'.' base must be a struct or a pointer to one")
	}
	for i, f := range sd.Fields {
		if f.Name == fa.Name {
			fa.ResolvedIndex = i
			fa.SetType(f.Type)
			return nil
		}
	}
	return r.diags.Fatalf(fa.Span(), "field %q does not exist on %s", fa.Name, sd.Name)
}

// resolveQualType resolves any Deferred type reachable from qt, recursing
// through Pointer/Array/Function element types. Returns ok=false if a name
// is unbound or not a type.
func (r *Resolver) resolveQualType(scope *ast.Scope, qt types.QualType) (types.QualType, bool) {
	switch t := qt.Type.(type) {
	case types.Deferred:
		b, ok := scope.Lookup(t.Name)
		if !ok || b.Kind != ast.BindType {
			return qt, false
		}
		return types.QualType{Type: b.Type, Quals: qt.Quals}, true

	case types.Pointer:
		pointee, ok := r.resolveQualType(scope, t.Pointee)
		return types.QualType{Type: r.tctx.Pointer(pointee), Quals: qt.Quals}, ok

	case types.Array:
		elem, ok := r.resolveQualType(scope, t.Elem)
		return types.QualType{Type: r.tctx.Array(elem, t.Length), Quals: qt.Quals}, ok

	case types.Function:
		ret, ok := r.resolveQualType(scope, t.Return)
		params := make([]types.QualType, len(t.Params))
		for i, p := range t.Params {
			pt, pok := r.resolveQualType(scope, p)
			params[i] = pt
			ok = ok && pok
		}
		return types.QualType{Type: r.tctx.Function(ret, params), Quals: qt.Quals}, ok

	default:
		return qt, true
	}
}
