// Package mirgen lowers a type-checked ast.Program into pkg/mir. It runs
// in two passes, Declare then Define, so forward references among
// top-level definitions resolve within one translation unit: Declare
// creates every function and global shell, Define lowers each function
// body in turn.
package mirgen

import (
	"fmt"

	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/mir"
	"github.com/bpetrakis/lacec/pkg/target"
	"github.com/bpetrakis/lacec/pkg/types"
)

// Build lowers prog to a fresh mir.CFG.
func Build(prog *ast.Program, diags *diag.Context) (*mir.CFG, error) {
	cfg := mir.NewCFG(prog.Types)
	b := &builder{cfg: cfg, tctx: prog.Types, diags: diags}

	for _, def := range prog.Defs {
		if fd, ok := def.(*ast.FuncDef); ok {
			params := make([]types.QualType, len(fd.Params))
			for i, p := range fd.Params {
				params[i] = p.Type
			}
			cfg.DeclareFunction(mir.NewFunction(fd.Name, params, fd.Return, fd.External))
		}
	}
	for _, def := range prog.Defs {
		if gd, ok := def.(*ast.GlobalDef); ok {
			g := &mir.Global{Name: gd.Name, Type: gd.Declared}
			if gd.Init != nil {
				c, err := b.evalConst(gd.Init)
				if err != nil {
					return nil, err
				}
				g.Init = c
			}
			cfg.DeclareGlobal(g)
		}
	}

	for _, def := range prog.Defs {
		fd, ok := def.(*ast.FuncDef)
		if !ok || fd.Body == nil {
			continue
		}
		fn, _ := cfg.Function(fd.Name)
		if err := b.defineFunction(fd, fn); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// builder lowers one translation unit; fnState lowers one function body.
type builder struct {
	cfg   *mir.CFG
	tctx  *types.Context
	diags *diag.Context
}

// evalConst folds a global initializer to a pooled constant. Semantic
// analysis already rejected non-constant global initializers, so every
// shape reaching here is one of the literal/sizeof/variant/unary/cast forms
// isConstantExpr allows.
func (b *builder) evalConst(e ast.Expr) (*mir.Const, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return b.cfg.IntConst(e.Type(), ex.Value), nil
	case *ast.FloatLit:
		return b.cfg.FloatConst(e.Type(), ex.Value), nil
	case *ast.BoolLit:
		v := int64(0)
		if ex.Value {
			v = 1
		}
		return b.cfg.IntConst(e.Type(), v), nil
	case *ast.CharLit:
		return b.cfg.IntConst(e.Type(), int64(ex.Value)), nil
	case *ast.StringLit:
		return b.cfg.StringConst(e.Type(), ex.Value), nil
	case *ast.NullLit:
		return b.cfg.NullConst(e.Type()), nil
	case *ast.Ref:
		if ex.VariantOf != nil {
			for _, v := range ex.VariantOf.Type.Variants {
				if v.Name == ex.VariantName {
					return b.cfg.IntConst(e.Type(), v.Value), nil
				}
			}
		}
	case *ast.SizeofType:
		return b.cfg.IntConst(e.Type(), int64(target.SizeOf(ex.Arg.Type))), nil
	case *ast.SizeofExpr:
		return b.cfg.IntConst(e.Type(), int64(target.SizeOf(ex.Arg.Type().Type))), nil
	case *ast.Unary:
		inner, err := b.evalConst(ex.Operand)
		if err != nil {
			return nil, err
		}
		switch ex.Op {
		case ast.UNeg:
			if inner.Kind == mir.ConstFloat {
				return b.cfg.FloatConst(e.Type(), -inner.FloatVal), nil
			}
			return b.cfg.IntConst(e.Type(), -inner.IntVal), nil
		case ast.UBitNot:
			return b.cfg.IntConst(e.Type(), ^inner.IntVal), nil
		case ast.UNot:
			if inner.IntVal == 0 {
				return b.cfg.IntConst(e.Type(), 1), nil
			}
			return b.cfg.IntConst(e.Type(), 0), nil
		}
	case *ast.Cast:
		return b.evalConst(ex.Operand)
	}
	return nil, b.diags.Fatalf(e.Span(), "unsupported constant initializer")
}

// --- function lowering ---

type scope struct {
	parent *scope
	vars   map[string]mir.Operand
}

func newScope(parent *scope) *scope { return &scope{parent: parent, vars: make(map[string]mir.Operand)} }

func (s *scope) lookup(name string) (mir.Operand, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if op, ok := cur.vars[name]; ok {
			return op, true
		}
	}
	return mir.Operand{}, false
}

type loopCtx struct {
	cond, merge *mir.Block
}

type fnState struct {
	*builder
	fn    *mir.Function
	cur   *mir.Block
	env   *scope
	loops []loopCtx
}

func (b *builder) defineFunction(fd *ast.FuncDef, fn *mir.Function) error {
	fs := &fnState{builder: b, fn: fn, env: newScope(nil)}
	fs.cur = fn.AppendBlock("entry")
	for i, p := range fd.Params {
		local := fn.DeclareLocal(p.Name, p.Type)
		fs.env.vars[p.Name] = mir.Operand{Kind: mir.ValLocal, Local: local, Type: pointerTo(b.tctx, p.Type)}
		// Spill the incoming argument to its stack slot immediately; the
		// selector maps the ValParam operand to its ABI argument register,
		// so here params are just addressable locals like any `let`.
		fs.emitStore(fs.env.vars[p.Name], mir.Operand{Kind: mir.ValParam, Param: i, Type: p.Type})
	}
	if err := fs.lowerStmt(fd.Body); err != nil {
		return err
	}
	if fs.cur.Terminator() == nil {
		fs.cur.PushBack(&mir.Instruction{Op: mir.OpReturn})
	}
	return nil
}

func pointerTo(tctx *types.Context, t types.QualType) types.QualType {
	return types.QualType{Type: tctx.Pointer(t)}
}

func (fs *fnState) emit(op mir.Opcode, typ types.QualType, operands ...mir.Operand) mir.Operand {
	def := fs.fn.NewDef()
	fs.cur.PushBack(&mir.Instruction{Op: op, Def: def, Type: typ, Operands: operands})
	return mir.Operand{Kind: mir.ValInst, Inst: def, Type: typ}
}

func (fs *fnState) emitVoid(op mir.Opcode, operands ...mir.Operand) {
	fs.cur.PushBack(&mir.Instruction{Op: op, Operands: operands})
}

func (fs *fnState) emitLoad(addr mir.Operand, typ types.QualType) mir.Operand {
	return fs.emit(mir.OpLoad, typ, addr)
}

func (fs *fnState) emitStore(addr, val mir.Operand) {
	fs.emitVoid(mir.OpStore, addr, val)
}

// --- statements ---

func (fs *fnState) lowerStmt(s ast.Stmt) error {
	switch st := s.(type) {
	case *ast.Block:
		outer := fs.env
		fs.env = newScope(outer)
		for _, inner := range st.Stmts {
			if err := fs.lowerStmt(inner); err != nil {
				fs.env = outer
				return err
			}
			if fs.cur.Terminator() != nil {
				break
			}
		}
		fs.env = outer
		return nil

	case *ast.LetStmt:
		local := fs.fn.DeclareLocal(st.Name, st.Declared)
		addr := mir.Operand{Kind: mir.ValLocal, Local: local, Type: pointerTo(fs.tctx, st.Declared)}
		fs.env.vars[st.Name] = addr
		if st.Init != nil {
			val, err := fs.lowerAssignSource(st.Init)
			if err != nil {
				return err
			}
			fs.lowerAssignInto(addr, st.Declared, val)
		}
		return nil

	case *ast.RetStmt:
		if st.Value == nil {
			fs.emitVoid(mir.OpReturn)
			return nil
		}
		val, err := fs.lowerExpr(st.Value)
		if err != nil {
			return err
		}
		fs.emitVoid(mir.OpReturn, val)
		return nil

	case *ast.IfStmt:
		return fs.lowerIf(st)

	case *ast.UntilStmt:
		return fs.lowerUntil(st)

	case *ast.StopStmt:
		if len(fs.loops) == 0 {
			return fs.diags.Fatalf(st.Span(), "stop outside loop")
		}
		l := fs.loops[len(fs.loops)-1]
		fs.cur.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: l.merge})
		return nil

	case *ast.RestartStmt:
		if len(fs.loops) == 0 {
			return fs.diags.Fatalf(st.Span(), "restart outside loop")
		}
		l := fs.loops[len(fs.loops)-1]
		fs.cur.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: l.cond})
		return nil

	case *ast.ExprStmt:
		_, err := fs.lowerExpr(st.Expr)
		return err
	}
	return nil
}

func (fs *fnState) lowerIf(st *ast.IfStmt) error {
	cond, err := fs.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	thenB := fs.fn.AppendBlock("if.then")
	var elseB *mir.Block
	if st.Else != nil {
		elseB = fs.fn.AppendBlock("if.else")
	}
	condJump := &mir.Instruction{Op: mir.OpConditionalJump, Operands: []mir.Operand{cond}, TrueDest: thenB}
	if elseB != nil {
		condJump.FalseDest = elseB
	}
	fs.cur.PushBack(condJump)

	fs.cur = thenB
	if err := fs.lowerStmt(st.Then); err != nil {
		return err
	}
	thenFellThrough := fs.cur.Terminator() == nil
	thenEnd := fs.cur

	elseFellThrough := elseB == nil
	elseEnd := fs.cur
	if elseB != nil {
		fs.cur = elseB
		if err := fs.lowerStmt(st.Else); err != nil {
			return err
		}
		elseFellThrough = fs.cur.Terminator() == nil
		elseEnd = fs.cur
	}

	if !thenFellThrough && !elseFellThrough {
		// both branches terminate (e.g. ret in each arm); nothing falls
		// through to a merge block.
		if elseB != nil {
			fs.cur = elseEnd
		} else {
			fs.cur = thenEnd
		}
		return nil
	}

	mergeB := fs.fn.AppendBlock("if.merge")
	if elseB == nil {
		condJump.FalseDest = mergeB
	}
	if thenFellThrough {
		thenEnd.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: mergeB})
	}
	if elseFellThrough && elseB != nil {
		elseEnd.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: mergeB})
	}
	fs.cur = mergeB
	return nil
}

func (fs *fnState) lowerUntil(st *ast.UntilStmt) error {
	condB := fs.fn.AppendBlock("loop.cond")
	bodyB := fs.fn.AppendBlock("loop.body")
	mergeB := fs.fn.AppendBlock("loop.merge")

	fs.cur.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: condB})

	fs.cur = condB
	cond, err := fs.lowerExpr(st.Cond)
	if err != nil {
		return err
	}
	condJump := &mir.Instruction{Op: mir.OpConditionalJump, Operands: []mir.Operand{cond}, TrueDest: bodyB, FalseDest: mergeB}
	fs.cur.PushBack(condJump)

	fs.loops = append(fs.loops, loopCtx{cond: condB, merge: mergeB})
	fs.cur = bodyB
	if st.Body != nil {
		if err := fs.lowerStmt(st.Body); err != nil {
			fs.loops = fs.loops[:len(fs.loops)-1]
			return err
		}
	}
	fs.loops = fs.loops[:len(fs.loops)-1]
	if fs.cur.Terminator() == nil {
		fs.cur.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: condB})
	}

	fs.cur = mergeB
	return nil
}

// --- lvalues ---

func (fs *fnState) lowerAddr(e ast.Expr) (mir.Operand, error) {
	switch ex := e.(type) {
	case *ast.Ref:
		if op, ok := fs.env.lookup(ex.Name); ok {
			return op, nil
		}
		if gd, ok := ex.Def.(*ast.GlobalDef); ok {
			return mir.Operand{Kind: mir.ValGlobal, Global: gd.Name, Type: pointerTo(fs.tctx, gd.Declared)}, nil
		}
		return mir.Operand{}, fs.diags.Fatalf(e.Span(), "cannot take address of %s", ex.Name)

	case *ast.Unary:
		if ex.Op == ast.UDeref {
			return fs.lowerExpr(ex.Operand)
		}

	case *ast.FieldAccess:
		baseAddr, structType, err := fs.lowerFieldBase(ex.Base)
		if err != nil {
			return mir.Operand{}, err
		}
		fieldTy := structType.Fields[ex.ResolvedIndex].Type
		resultTy := pointerTo(fs.tctx, fieldTy)
		def := fs.fn.NewDef()
		fs.cur.PushBack(&mir.Instruction{Op: mir.OpAccess, Def: def, Type: resultTy,
			Operands: []mir.Operand{baseAddr}, FieldIndex: ex.ResolvedIndex})
		return mir.Operand{Kind: mir.ValInst, Inst: def, Type: resultTy}, nil

	case *ast.Subscript:
		baseAddr, elemTy, err := fs.lowerSubscriptBase(ex.Base)
		if err != nil {
			return mir.Operand{}, err
		}
		idx, err := fs.lowerExpr(ex.Index)
		if err != nil {
			return mir.Operand{}, err
		}
		return fs.emit(mir.OpPointerWalk, pointerTo(fs.tctx, elemTy), baseAddr, idx), nil
	}
	return mir.Operand{}, fs.diags.Fatalf(e.Span(), "expression is not addressable")
}

// lowerFieldBase returns the address of the struct aggregate that a.name
// indexes into, unwrapping one level of pointer indirection for `p.field`.
func (fs *fnState) lowerFieldBase(base ast.Expr) (mir.Operand, *types.Struct, error) {
	bt := types.Underlying(base.Type().Type)
	if _, isPtr := bt.(types.Pointer); isPtr {
		addr, err := fs.lowerExpr(base)
		if err != nil {
			return mir.Operand{}, nil, err
		}
		sd := types.Underlying(bt.(types.Pointer).Pointee.Type).(*types.Struct)
		return addr, sd, nil
	}
	addr, err := fs.lowerAddr(base)
	if err != nil {
		return mir.Operand{}, nil, err
	}
	return addr, bt.(*types.Struct), nil
}

func (fs *fnState) lowerSubscriptBase(base ast.Expr) (mir.Operand, types.QualType, error) {
	bt := types.Underlying(base.Type().Type)
	if p, isPtr := bt.(types.Pointer); isPtr {
		addr, err := fs.lowerExpr(base)
		return addr, p.Pointee, err
	}
	addr, err := fs.lowerAddr(base)
	return addr, bt.(types.Array).Elem, err
}

// --- rvalues ---

func (fs *fnState) lowerExpr(e ast.Expr) (mir.Operand, error) {
	switch ex := e.(type) {
	case *ast.IntLit:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), ex.Value), Type: e.Type()}, nil
	case *ast.FloatLit:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.FloatConst(e.Type(), ex.Value), Type: e.Type()}, nil
	case *ast.CharLit:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), int64(ex.Value)), Type: e.Type()}, nil
	case *ast.BoolLit:
		v := int64(0)
		if ex.Value {
			v = 1
		}
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), v), Type: e.Type()}, nil
	case *ast.StringLit:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.StringConst(e.Type(), ex.Value), Type: e.Type()}, nil
	case *ast.NullLit:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.NullConst(e.Type()), Type: e.Type()}, nil

	case *ast.Ref:
		if ex.VariantOf != nil {
			for _, v := range ex.VariantOf.Type.Variants {
				if v.Name == ex.VariantName {
					return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), v.Value), Type: e.Type()}, nil
				}
			}
		}
		if fd, ok := ex.Def.(*ast.FuncDef); ok {
			return mir.Operand{Kind: mir.ValFunction, Func: fd.Name, Type: e.Type()}, nil
		}
		addr, err := fs.lowerAddr(ex)
		if err != nil {
			return mir.Operand{}, err
		}
		return fs.emitLoad(addr, e.Type()), nil

	case *ast.Unary:
		return fs.lowerUnary(ex)

	case *ast.Binary:
		return fs.lowerBinary(ex)

	case *ast.Call:
		return fs.lowerCall(ex)

	case *ast.Subscript, *ast.FieldAccess:
		addr, err := fs.lowerAddr(e)
		if err != nil {
			return mir.Operand{}, err
		}
		return fs.emitLoad(addr, e.Type()), nil

	case *ast.Cast:
		return fs.lowerCast(ex)

	case *ast.SizeofType:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), int64(target.SizeOf(ex.Arg.Type))), Type: e.Type()}, nil

	case *ast.SizeofExpr:
		return mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(e.Type(), int64(target.SizeOf(ex.Arg.Type().Type))), Type: e.Type()}, nil
	}
	return mir.Operand{}, fs.diags.Fatalf(e.Span(), "mirgen: unhandled expression")
}

func (fs *fnState) lowerUnary(ex *ast.Unary) (mir.Operand, error) {
	if ex.Op == ast.UAddrOf {
		return fs.lowerAddr(ex.Operand)
	}
	if ex.Op == ast.UDeref {
		addr, err := fs.lowerExpr(ex.Operand)
		if err != nil {
			return mir.Operand{}, err
		}
		return fs.emitLoad(addr, ex.Type()), nil
	}
	val, err := fs.lowerExpr(ex.Operand)
	if err != nil {
		return mir.Operand{}, err
	}
	var op mir.Opcode
	switch ex.Op {
	case ast.UNeg:
		if types.IsFloat(ex.Type().Type) {
			op = mir.OpFNeg
		} else {
			op = mir.OpIntNeg
		}
	case ast.UBitNot:
		op = mir.OpNot
	case ast.UNot:
		if types.IsFloat(ex.Operand.Type().Type) {
			zero := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.FloatConst(ex.Operand.Type(), 0), Type: ex.Operand.Type()}
			return fs.emit(mir.OpCmpOEQ, ex.Type(), val, zero), nil
		}
		zero := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(ex.Operand.Type(), 0), Type: ex.Operand.Type()}
		return fs.emit(mir.OpCmpIEQ, ex.Type(), val, zero), nil
	}
	return fs.emit(op, ex.Type(), val), nil
}

func (fs *fnState) lowerBinary(ex *ast.Binary) (mir.Operand, error) {
	if ex.Op == ast.BAssign {
		addr, err := fs.lowerAddr(ex.Left)
		if err != nil {
			return mir.Operand{}, err
		}
		val, err := fs.lowerAssignSource(ex.Right)
		if err != nil {
			return mir.Operand{}, err
		}
		fs.lowerAssignInto(addr, ex.Left.Type(), val)
		return val, nil
	}
	if ex.Op == ast.BAnd || ex.Op == ast.BOr {
		return fs.lowerShortCircuit(ex)
	}

	lt := types.Underlying(ex.Left.Type().Type)
	if _, isPtr := lt.(types.Pointer); isPtr && (ex.Op == ast.BAdd || ex.Op == ast.BSub) {
		return fs.lowerPointerArith(ex, lt.(types.Pointer))
	}

	l, err := fs.lowerExpr(ex.Left)
	if err != nil {
		return mir.Operand{}, err
	}
	r, err := fs.lowerExpr(ex.Right)
	if err != nil {
		return mir.Operand{}, err
	}
	op, err := binOpcode(ex.Op, ex.Left.Type().Type)
	if err != nil {
		return mir.Operand{}, fs.diags.Fatalf(ex.Span(), "%v", err)
	}
	return fs.emit(op, ex.Type(), l, r), nil
}

func (fs *fnState) lowerPointerArith(ex *ast.Binary, p types.Pointer) (mir.Operand, error) {
	base, err := fs.lowerExpr(ex.Left)
	if err != nil {
		return mir.Operand{}, err
	}
	idx, err := fs.lowerExpr(ex.Right)
	if err != nil {
		return mir.Operand{}, err
	}
	if ex.Op == ast.BSub {
		idx = fs.emit(mir.OpIntNeg, ex.Right.Type(), idx)
	}
	return fs.emit(mir.OpPointerWalk, ex.Type(), base, idx), nil
}

func binOpcode(op ast.BinaryOp, operandType types.Type) (mir.Opcode, error) {
	isFloat := types.IsFloat(operandType)
	signed := types.IsInteger(operandType) && types.IsSigned(operandType)
	switch op {
	case ast.BAdd:
		if isFloat {
			return mir.OpFAdd, nil
		}
		return mir.OpIntAdd, nil
	case ast.BSub:
		if isFloat {
			return mir.OpFSub, nil
		}
		return mir.OpIntSub, nil
	case ast.BMul:
		if isFloat {
			return mir.OpFMul, nil
		}
		return mir.OpIntMul, nil
	case ast.BDiv:
		if isFloat {
			return mir.OpFDiv, nil
		}
		if signed {
			return mir.OpSDiv, nil
		}
		return mir.OpUDiv, nil
	case ast.BMod:
		if signed {
			return mir.OpSMod, nil
		}
		return mir.OpUMod, nil
	case ast.BBitAnd:
		return mir.OpAnd, nil
	case ast.BBitOr:
		return mir.OpOr, nil
	case ast.BBitXor:
		return mir.OpXor, nil
	case ast.BShl:
		return mir.OpShl, nil
	case ast.BShr:
		if signed {
			return mir.OpSar, nil
		}
		return mir.OpShr, nil
	case ast.BLt, ast.BLe, ast.BGt, ast.BGe, ast.BEq, ast.BNe:
		return cmpOpcode(op, operandType), nil
	}
	return 0, fmt.Errorf("no opcode for binary operator %s", op)
}

func cmpOpcode(op ast.BinaryOp, t types.Type) mir.Opcode {
	if types.IsFloat(t) {
		switch op {
		case ast.BLt:
			return mir.OpCmpOLT
		case ast.BLe:
			return mir.OpCmpOLE
		case ast.BGt:
			return mir.OpCmpOGT
		case ast.BGe:
			return mir.OpCmpOGE
		case ast.BEq:
			return mir.OpCmpOEQ
		default:
			return mir.OpCmpONE
		}
	}
	signed := types.IsInteger(t) && types.IsSigned(t)
	switch op {
	case ast.BLt:
		if signed {
			return mir.OpCmpSLT
		}
		return mir.OpCmpULT
	case ast.BLe:
		if signed {
			return mir.OpCmpSLE
		}
		return mir.OpCmpULE
	case ast.BGt:
		if signed {
			return mir.OpCmpSGT
		}
		return mir.OpCmpUGT
	case ast.BGe:
		if signed {
			return mir.OpCmpSGE
		}
		return mir.OpCmpUGE
	case ast.BEq:
		return mir.OpCmpIEQ
	default:
		return mir.OpCmpINE
	}
}

// injectBoolComparison projects a scalar onto the 1-bit domain: a value
// already of Bool type passes through unchanged; integers and pointers
// compare against zero; floats against an ordered 0.0.
func (fs *fnState) injectBoolComparison(e ast.Expr, val mir.Operand) (mir.Operand, error) {
	boolT := types.QualType{Type: fs.tctx.Bool()}
	srcType := val.Type
	t := types.Underlying(srcType.Type)
	switch {
	case types.TypeEqual(t, types.Bool{}):
		return val, nil
	case types.IsInteger(t) || types.IsPointer(t):
		zero := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(srcType, 0), Type: srcType}
		return fs.emit(mir.OpCmpINE, boolT, val, zero), nil
	case types.IsFloat(t):
		zero := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.FloatConst(srcType, 0), Type: srcType}
		return fs.emit(mir.OpCmpONE, boolT, val, zero), nil
	}
	return mir.Operand{}, fs.diags.Fatalf(e.Span(), "cannot evaluate %s as a boolean", srcType)
}

// lowerShortCircuit lowers && / || through a merge block carrying the
// result as a 1-bit block argument, in place of a phi node. Both sides are
// boolean-projected so the merge argument is always 1-bit.
func (fs *fnState) lowerShortCircuit(ex *ast.Binary) (mir.Operand, error) {
	l, err := fs.lowerExpr(ex.Left)
	if err != nil {
		return mir.Operand{}, err
	}
	l, err = fs.injectBoolComparison(ex.Left, l)
	if err != nil {
		return mir.Operand{}, err
	}
	rhsB := fs.fn.AppendBlock("sc.rhs")
	mergeB := fs.fn.AppendBlock("sc.merge")
	argID := fs.fn.NewDef()
	mergeB.Params = []mir.BlockParam{{ID: argID, Type: ex.Type()}}

	shortVal := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(ex.Type(), boolConstFor(ex.Op)), Type: ex.Type()}
	cj := &mir.Instruction{Op: mir.OpConditionalJump, Operands: []mir.Operand{l}}
	if ex.Op == ast.BOr {
		cj.TrueDest, cj.TrueArgs = mergeB, []mir.Operand{shortVal}
		cj.FalseDest = rhsB
	} else {
		cj.TrueDest = rhsB
		cj.FalseDest, cj.FalseArgs = mergeB, []mir.Operand{shortVal}
	}
	fs.cur.PushBack(cj)

	fs.cur = rhsB
	r, err := fs.lowerExpr(ex.Right)
	if err != nil {
		return mir.Operand{}, err
	}
	r, err = fs.injectBoolComparison(ex.Right, r)
	if err != nil {
		return mir.Operand{}, err
	}
	fs.cur.PushBack(&mir.Instruction{Op: mir.OpJump, TrueDest: mergeB, TrueArgs: []mir.Operand{r}})

	fs.cur = mergeB
	return mir.Operand{Kind: mir.ValBlockArg, Inst: argID, Type: ex.Type()}, nil
}

func boolConstFor(op ast.BinaryOp) int64 {
	if op == ast.BOr {
		return 1
	}
	return 0
}

func (fs *fnState) lowerCall(ex *ast.Call) (mir.Operand, error) {
	callee, err := fs.lowerExpr(ex.Callee)
	if err != nil {
		return mir.Operand{}, err
	}
	operands := []mir.Operand{callee}
	for _, a := range ex.Args {
		v, err := fs.lowerExpr(a)
		if err != nil {
			return mir.Operand{}, err
		}
		operands = append(operands, v)
	}
	if _, void := ex.Type().Type.(types.Void); void {
		fs.emitVoid(mir.OpCall, operands...)
		return mir.Operand{Type: ex.Type()}, nil
	}
	return fs.emit(mir.OpCall, ex.Type(), operands...), nil
}

func (fs *fnState) lowerCast(ex *ast.Cast) (mir.Operand, error) {
	val, err := fs.lowerExpr(ex.Operand)
	if err != nil {
		return mir.Operand{}, err
	}
	from, to := ex.Operand.Type().Type, ex.Type().Type
	if types.TypeEqual(from, to) {
		return val, nil
	}
	op := chooseCastOp(from, to)
	return fs.emit(op, ex.Type(), val), nil
}

// chooseCastOp maps a (from, to) type pair to the single MIR cast opcode
// that performs it.
func chooseCastOp(from, to types.Type) mir.Opcode {
	fu, tu := types.Underlying(from), types.Underlying(to)
	switch {
	case types.IsPointer(fu) && types.IsInteger(tu):
		return mir.OpP2I
	case types.IsInteger(fu) && types.IsPointer(tu):
		return mir.OpI2P
	case types.IsPointer(fu) && types.IsPointer(tu):
		return mir.OpReint
	case types.IsFloat(fu) && types.IsInteger(tu):
		if types.IsSigned(tu) {
			return mir.OpF2S
		}
		return mir.OpF2U
	case types.IsInteger(fu) && types.IsFloat(tu):
		if types.IsSigned(fu) {
			return mir.OpS2F
		}
		return mir.OpU2F
	case types.IsFloat(fu) && types.IsFloat(tu):
		fw, tw := fu.(types.Float).Width, tu.(types.Float).Width
		if tw > fw {
			return mir.OpFExt
		}
		return mir.OpFTrunc
	case types.IsInteger(fu) && types.IsInteger(tu):
		fw, _, _ := widthOf(fu)
		tw, _, _ := widthOf(tu)
		switch {
		case tw > fw:
			if types.IsSigned(fu) {
				return mir.OpSExt
			}
			return mir.OpZExt
		case tw < fw:
			return mir.OpITrunc
		default:
			return mir.OpReint
		}
	}
	return mir.OpReint
}

func widthOf(t types.Type) (width int, signed, ok bool) {
	switch v := t.(type) {
	case types.Bool:
		return 8, false, true
	case types.Char:
		return 8, true, true
	case types.Int:
		return int(v.Width), true, true
	case types.UInt:
		return int(v.Width), false, true
	}
	return 0, false, false
}

// lowerAssignSource lowers the right-hand side of an assignment or
// initializer. An addressable aggregate source lowers to its address so the
// __copy intrinsic receives a source pointer; everything else (scalars, and
// aggregate-returning calls, whose ABI is deliberately left to instruction
// selection) lowers as an ordinary rvalue.
func (fs *fnState) lowerAssignSource(e ast.Expr) (mir.Operand, error) {
	switch types.Underlying(e.Type().Type).(type) {
	case *types.Struct, types.Array:
		switch ex := e.(type) {
		case *ast.Ref, *ast.FieldAccess, *ast.Subscript:
			return fs.lowerAddr(e)
		case *ast.Unary:
			if ex.Op == ast.UDeref {
				return fs.lowerAddr(e)
			}
		}
	}
	return fs.lowerExpr(e)
}

// lowerAssignInto stores val at addr, expanding to the __copy intrinsic
// instead of a single Store when typ is an aggregate (struct or array):
// those are moved byte-for-byte, not held in a register.
func (fs *fnState) lowerAssignInto(addr mir.Operand, typ types.QualType, val mir.Operand) {
	switch types.Underlying(typ.Type).(type) {
	case *types.Struct, types.Array:
		size := mir.Operand{Kind: mir.ValConst, Const: fs.cfg.IntConst(types.QualType{Type: fs.tctx.UInt(types.W64)}, int64(target.SizeOf(typ.Type))), Type: types.QualType{Type: fs.tctx.UInt(types.W64)}}
		fs.emitVoid(mir.OpCall, mir.Operand{Kind: mir.ValFunction, Func: "__copy"}, addr, val, size)
	default:
		fs.emitStore(addr, val)
	}
}
