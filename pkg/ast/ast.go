// Package ast defines the Lace abstract syntax tree. Node shapes are fixed
// once parsed; symbol and semantic analysis annotate nodes in place (filling
// Deferred type slots, attaching resolved references, inserting Cast nodes)
// rather than producing a second typed tree.
package ast

import "github.com/bpetrakis/lacec/pkg/types"

// Span is a single source location: (file, line, column), as produced by
// the lexer.
type Span struct {
	File   string
	Line   int
	Column int
}

func (s Span) String() string {
	if s.File == "" {
		return "?"
	}
	return s.File + ":" + itoa(s.Line) + ":" + itoa(s.Column)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Node is implemented by every AST node.
type Node interface {
	Span() Span
	implNode()
}

// Expr is implemented by every expression node. Type returns the zero
// QualType before semantic analysis runs, and the resolved type after.
type Expr interface {
	Node
	implExpr()
	Type() types.QualType
	SetType(types.QualType)
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	implStmt()
}

// Definition is implemented by every top-level definition.
type Definition interface {
	Node
	implDefinition()
	DefName() string
}

// exprBase factors the span+type bookkeeping every Expr needs.
type exprBase struct {
	span Span
	typ  types.QualType
}

func (e *exprBase) Span() Span              { return e.span }
func (e *exprBase) Type() types.QualType     { return e.typ }
func (e *exprBase) SetType(t types.QualType) { e.typ = t }
func (*exprBase) implExpr()                  {}
func (*exprBase) implNode()                  {}

type stmtBase struct{ span Span }

func (s *stmtBase) Span() Span { return s.span }
func (*stmtBase) implStmt()    {}
func (*stmtBase) implNode()    {}

type defBase struct{ span Span }

func (d *defBase) Span() Span    { return d.span }
func (*defBase) implDefinition() {}
func (*defBase) implNode()       {}

// NewSpan is a constructor so other packages don't need exprBase/stmtBase
// field names, matching the closed-struct convention of pkg/types.
func NewSpan(file string, line, col int) Span { return Span{File: file, Line: line, Column: col} }

// --- Expressions ---

type IntLit struct {
	exprBase
	Value int64
}

type FloatLit struct {
	exprBase
	Value float64
}

type CharLit struct {
	exprBase
	Value byte
}

type StringLit struct {
	exprBase
	Value string
}

type BoolLit struct {
	exprBase
	Value bool
}

type NullLit struct {
	exprBase
}

// Ref is a reference to a name: a variable, function, global, or enum
// variant. Symbol analysis attaches Def.
type Ref struct {
	exprBase
	Name string
	Def  Definition // resolved defining node (nil until symbol analysis)
	// VariantOf/VariantName are set when Name resolves to an enum variant
	// rather than a value definition.
	VariantOf   *EnumDef
	VariantName string
}

type UnaryOp int

const (
	UNeg UnaryOp = iota
	UNot
	UBitNot
	UAddrOf
	UDeref
)

func (op UnaryOp) String() string {
	return [...]string{"-", "!", "~", "&", "*"}[op]
}

type Unary struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

type BinaryOp int

const (
	BAdd BinaryOp = iota
	BSub
	BMul
	BDiv
	BMod
	BLt
	BLe
	BGt
	BGe
	BEq
	BNe
	BAnd // &&
	BOr  // ||
	BBitAnd
	BBitOr
	BBitXor
	BShl
	BShr
	BAssign
)

func (op BinaryOp) String() string {
	return [...]string{"+", "-", "*", "/", "%", "<", "<=", ">", ">=", "==", "!=",
		"&&", "||", "&", "|", "^", "<<", ">>", "="}[op]
}

func (op BinaryOp) IsComparison() bool {
	return op >= BLt && op <= BNe
}

type Binary struct {
	exprBase
	Op          BinaryOp
	Left, Right Expr
}

type Call struct {
	exprBase
	Callee Expr
	Args   []Expr
}

type Subscript struct {
	exprBase
	Base, Index Expr
}

// FieldAccess is `base.name`; ResolvedIndex is attached by symbol analysis.
type FieldAccess struct {
	exprBase
	Base          Expr
	Name          string
	ResolvedIndex int // index into the Struct's Fields
}

type CastKind int

const (
	CastImplicit CastKind = iota
	CastExplicit
)

func (k CastKind) String() string {
	if k == CastExplicit {
		return "explicit"
	}
	return "implicit"
}

// Cast is inserted by semantic analysis (implicit) or written by the
// programmer (explicit cast syntax); the target type is the node's own
// Type, and Operand keeps its original static type.
type Cast struct {
	exprBase
	Kind    CastKind
	Operand Expr
}

// SizeofType is `sizeof(T)` — a constant-foldable type query.
type SizeofType struct {
	exprBase
	Arg types.QualType
}

// SizeofExpr is `sizeof(expr)` — folded to the same constant as
// SizeofType(expr.Type) during lowering.
type SizeofExpr struct {
	exprBase
	Arg Expr
}

func (*IntLit) implExpr()      {}
func (*FloatLit) implExpr()    {}
func (*CharLit) implExpr()     {}
func (*StringLit) implExpr()   {}
func (*BoolLit) implExpr()     {}
func (*NullLit) implExpr()     {}
func (*Ref) implExpr()         {}
func (*Unary) implExpr()       {}
func (*Binary) implExpr()      {}
func (*Call) implExpr()        {}
func (*Subscript) implExpr()   {}
func (*FieldAccess) implExpr() {}
func (*Cast) implExpr()        {}
func (*SizeofType) implExpr()  {}
func (*SizeofExpr) implExpr()  {}

// --- Statements ---

type Block struct {
	stmtBase
	Stmts []Stmt
	Scope *Scope
}

// LetStmt declares a local. Declared may contain a Deferred type until
// symbol analysis resolves it.
type LetStmt struct {
	stmtBase
	Name     string
	Declared types.QualType
	Init     Expr // nil if no initializer
}

// RetStmt's Value is nil for a bare `ret;` in a void function.
type RetStmt struct {
	stmtBase
	Value Expr
}

type IfStmt struct {
	stmtBase
	Cond       Expr
	Then, Else Stmt // Else is nil if absent
}

type UntilStmt struct {
	stmtBase
	Cond Expr
	Body Stmt // nil if the loop has no body (`until e;`)
}

type StopStmt struct{ stmtBase }

type RestartStmt struct{ stmtBase }

type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (*Block) implStmt()       {}
func (*LetStmt) implStmt()     {}

// LetStmt also satisfies Definition so a Scope.Binding can point straight at
// it, the same way it points at a *FuncDef/*GlobalDef for other value kinds.
func (*LetStmt) implDefinition()   {}
func (s *LetStmt) DefName() string { return s.Name }
func (*RetStmt) implStmt()     {}
func (*IfStmt) implStmt()      {}
func (*UntilStmt) implStmt()   {}
func (*StopStmt) implStmt()    {}
func (*RestartStmt) implStmt() {}
func (*ExprStmt) implStmt()    {}

// --- Definitions ---

type Param struct {
	Name string
	Type types.QualType
}

type FuncDef struct {
	defBase
	Name     string
	Params   []Param
	Return   types.QualType
	Body     *Block // nil for a declaration-only prototype (`f :: () -> T;`)
	External bool   // visible for external linkage (every top-level func is)
	Scope    *Scope // the function's own scope, containing its parameters
}

func (d *FuncDef) DefName() string { return d.Name }

type FieldDecl struct {
	Name string
	Type types.QualType
}

type StructDef struct {
	defBase
	Name   string
	Fields []FieldDecl
	Type   *types.Struct // backing interned type, filled at Declare time
}

func (d *StructDef) DefName() string { return d.Name }

type VariantDecl struct {
	Name  string
	Value int64
}

type EnumDef struct {
	defBase
	Name       string
	Underlying types.QualType
	Variants   []VariantDecl
	Type       *types.Enum
}

func (d *EnumDef) DefName() string { return d.Name }

// GlobalDef is a top-level `name :: T [= init];` binding.
type GlobalDef struct {
	defBase
	Name     string
	Declared types.QualType
	Init     Expr
}

func (d *GlobalDef) DefName() string { return d.Name }

// LoadDef is a `load "path";` import; the driver resolves and folds the
// loaded file's definitions into the enclosing Program.
type LoadDef struct {
	defBase
	Path string
}

func (d *LoadDef) DefName() string { return "load " + d.Path }

func (*FuncDef) implDefinition()   {}
func (*StructDef) implDefinition() {}
func (*EnumDef) implDefinition()   {}
func (*GlobalDef) implDefinition() {}
func (*LoadDef) implDefinition()   {}

// Program is the translation unit: an ordered list of top-level
// definitions and the root of the lexical-scope tree.
type Program struct {
	Defs  []Definition
	Root  *Scope
	Types *types.Context
}

// NewExpr constructors let other packages build nodes without poking at
// exprBase/stmtBase/defBase field names directly.

func NewIntLit(span Span, v int64) *IntLit       { return &IntLit{exprBase: exprBase{span: span}, Value: v} }
func NewFloatLit(span Span, v float64) *FloatLit { return &FloatLit{exprBase: exprBase{span: span}, Value: v} }
func NewCharLit(span Span, v byte) *CharLit      { return &CharLit{exprBase: exprBase{span: span}, Value: v} }
func NewStringLit(span Span, v string) *StringLit {
	return &StringLit{exprBase: exprBase{span: span}, Value: v}
}
func NewBoolLit(span Span, v bool) *BoolLit { return &BoolLit{exprBase: exprBase{span: span}, Value: v} }
func NewNullLit(span Span) *NullLit         { return &NullLit{exprBase: exprBase{span: span}} }
func NewRef(span Span, name string) *Ref    { return &Ref{exprBase: exprBase{span: span}, Name: name} }

func NewUnary(span Span, op UnaryOp, operand Expr) *Unary {
	return &Unary{exprBase: exprBase{span: span}, Op: op, Operand: operand}
}

func NewBinary(span Span, op BinaryOp, l, r Expr) *Binary {
	return &Binary{exprBase: exprBase{span: span}, Op: op, Left: l, Right: r}
}

func NewCall(span Span, callee Expr, args []Expr) *Call {
	return &Call{exprBase: exprBase{span: span}, Callee: callee, Args: args}
}

func NewSubscript(span Span, base, idx Expr) *Subscript {
	return &Subscript{exprBase: exprBase{span: span}, Base: base, Index: idx}
}

func NewFieldAccess(span Span, base Expr, name string) *FieldAccess {
	return &FieldAccess{exprBase: exprBase{span: span}, Base: base, Name: name, ResolvedIndex: -1}
}

func NewCast(span Span, kind CastKind, target types.QualType, operand Expr) *Cast {
	c := &Cast{exprBase: exprBase{span: span}, Kind: kind, Operand: operand}
	c.SetType(target)
	return c
}

func NewSizeofType(span Span, arg types.QualType) *SizeofType {
	return &SizeofType{exprBase: exprBase{span: span}, Arg: arg}
}

func NewSizeofExpr(span Span, arg Expr) *SizeofExpr {
	return &SizeofExpr{exprBase: exprBase{span: span}, Arg: arg}
}

func NewBlock(span Span, scope *Scope, stmts []Stmt) *Block {
	return &Block{stmtBase: stmtBase{span: span}, Stmts: stmts, Scope: scope}
}

func NewLetStmt(span Span, name string, declared types.QualType, init Expr) *LetStmt {
	return &LetStmt{stmtBase: stmtBase{span: span}, Name: name, Declared: declared, Init: init}
}

func NewRetStmt(span Span, value Expr) *RetStmt {
	return &RetStmt{stmtBase: stmtBase{span: span}, Value: value}
}

func NewIfStmt(span Span, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{stmtBase: stmtBase{span: span}, Cond: cond, Then: then, Else: els}
}

func NewUntilStmt(span Span, cond Expr, body Stmt) *UntilStmt {
	return &UntilStmt{stmtBase: stmtBase{span: span}, Cond: cond, Body: body}
}

func NewStopStmt(span Span) *StopStmt       { return &StopStmt{stmtBase{span}} }
func NewRestartStmt(span Span) *RestartStmt { return &RestartStmt{stmtBase{span}} }

func NewExprStmt(span Span, e Expr) *ExprStmt {
	return &ExprStmt{stmtBase: stmtBase{span: span}, Expr: e}
}

func NewFuncDef(span Span, name string, params []Param, ret types.QualType, body *Block, scope *Scope) *FuncDef {
	return &FuncDef{defBase: defBase{span: span}, Name: name, Params: params, Return: ret, Body: body, External: true, Scope: scope}
}

func NewStructDef(span Span, name string, fields []FieldDecl) *StructDef {
	return &StructDef{defBase: defBase{span: span}, Name: name, Fields: fields}
}

func NewEnumDef(span Span, name string, underlying types.QualType, variants []VariantDecl) *EnumDef {
	return &EnumDef{defBase: defBase{span: span}, Name: name, Underlying: underlying, Variants: variants}
}

func NewGlobalDef(span Span, name string, declared types.QualType, init Expr) *GlobalDef {
	return &GlobalDef{defBase: defBase{span: span}, Name: name, Declared: declared, Init: init}
}

func NewLoadDef(span Span, path string) *LoadDef {
	return &LoadDef{defBase: defBase{span: span}, Path: path}
}
