// Package mir defines the mid-level IR: a typed, block-argument-form SSA
// produced from the AST by pkg/mirgen and consumed by pkg/select. A CFG owns
// every function, global, and pooled constant in one translation unit.
package mir

import "github.com/bpetrakis/lacec/pkg/types"

// Opcode is the closed set of MIR operations.
type Opcode int

const (
	// Memory
	OpLoad Opcode = iota
	OpStore
	OpPointerWalk
	OpAccess
	OpExtract
	OpIndex

	// Control (terminators)
	OpJump
	OpConditionalJump
	OpReturn
	OpAbort
	OpUnreachable

	// Arithmetic (integer)
	OpIntAdd
	OpIntSub
	OpIntMul
	OpSDiv
	OpUDiv
	OpSMod
	OpUMod
	OpIntNeg

	// Arithmetic (float)
	OpFAdd
	OpFSub
	OpFMul
	OpFDiv
	OpFNeg

	// Bitwise
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpSar
	OpNot

	// Compare
	OpCmpIEQ
	OpCmpINE
	OpCmpSLT
	OpCmpSLE
	OpCmpSGT
	OpCmpSGE
	OpCmpULT
	OpCmpULE
	OpCmpUGT
	OpCmpUGE
	OpCmpOEQ
	OpCmpONE
	OpCmpOLT
	OpCmpOLE
	OpCmpOGT
	OpCmpOGE

	// Cast
	OpSExt
	OpZExt
	OpFExt
	OpITrunc
	OpFTrunc
	OpS2F
	OpU2F
	OpF2S
	OpF2U
	OpP2I
	OpI2P
	OpReint

	// Call
	OpCall

	// Constant materialization
	OpString
)

var opcodeNames = map[Opcode]string{
	OpLoad: "load", OpStore: "store", OpPointerWalk: "pointer_walk",
	OpAccess: "access", OpExtract: "extract", OpIndex: "index",
	OpJump: "jump", OpConditionalJump: "cond_jump", OpReturn: "return",
	OpAbort: "abort", OpUnreachable: "unreachable",
	OpIntAdd: "iadd", OpIntSub: "isub", OpIntMul: "imul",
	OpSDiv: "sdiv", OpUDiv: "udiv", OpSMod: "smod", OpUMod: "umod", OpIntNeg: "ineg",
	OpFAdd: "fadd", OpFSub: "fsub", OpFMul: "fmul", OpFDiv: "fdiv", OpFNeg: "fneg",
	OpAnd: "and", OpOr: "or", OpXor: "xor", OpShl: "shl", OpShr: "shr", OpSar: "sar", OpNot: "not",
	OpCmpIEQ: "cmp.ieq", OpCmpINE: "cmp.ine", OpCmpSLT: "cmp.slt", OpCmpSLE: "cmp.sle",
	OpCmpSGT: "cmp.sgt", OpCmpSGE: "cmp.sge", OpCmpULT: "cmp.ult", OpCmpULE: "cmp.ule",
	OpCmpUGT: "cmp.ugt", OpCmpUGE: "cmp.uge", OpCmpOEQ: "cmp.oeq", OpCmpONE: "cmp.one",
	OpCmpOLT: "cmp.olt", OpCmpOLE: "cmp.ole", OpCmpOGT: "cmp.ogt", OpCmpOGE: "cmp.oge",
	OpSExt: "sext", OpZExt: "zext", OpFExt: "fext", OpITrunc: "itrunc",
	OpS2F: "s2f", OpU2F: "u2f", OpF2S: "f2s", OpF2U: "f2u",
	OpP2I: "p2i", OpI2P: "i2p", OpReint: "reint", OpFTrunc: "ftrunc",
	OpCall: "call", OpString: "string",
}

func (o Opcode) String() string {
	if n, ok := opcodeNames[o]; ok {
		return n
	}
	return "unknown"
}

// IsTerminator reports whether o ends a basic block.
func (o Opcode) IsTerminator() bool {
	switch o {
	case OpJump, OpConditionalJump, OpReturn, OpAbort, OpUnreachable:
		return true
	}
	return false
}

// DefID identifies an SSA-defined value within one function. 0 means "no
// def": an instruction is a def iff its def id != 0.
type DefID uint32

// ValueKind distinguishes what an Operand refers to.
type ValueKind int

const (
	ValConst ValueKind = iota
	ValParam
	ValBlockArg
	ValInst
	ValLocal
	ValGlobal
	ValFunction
	ValBlockAddr
)

// Operand is a reference to a value consumed by an instruction.
type Operand struct {
	Kind ValueKind

	Const  *Const  // ValConst
	Param  int     // ValParam: index into the function's parameter list
	Inst   DefID   // ValInst / ValBlockArg (block-arg ids share the DefID space)
	Local  *Local  // ValLocal
	Global string  // ValGlobal: global name
	Func   string  // ValFunction: function symbol name
	Block  *Block  // ValBlockAddr

	Type types.QualType
}

// ConstKind is the closed set of pooled constant shapes.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstNull
	ConstString
)

// Const is a pooled, interned constant value.
type Const struct {
	Kind ConstKind
	Type types.QualType

	IntVal    int64
	FloatVal  float64
	StringVal string
}

// Local is a named stack-allocated storage slot declared by `let` or a
// function parameter that pkg/mirgen spills to the stack on entry.
type Local struct {
	Name string
	Type types.QualType
}

// BlockParam is one entry in a basic block's parameter list — the
// block-argument-form replacement for a phi node.
type BlockParam struct {
	ID   DefID
	Type types.QualType
}

// Instruction is one MIR operation.
type Instruction struct {
	Op       Opcode
	Def      DefID // 0 if this instruction produces no value
	Type     types.QualType
	Operands []Operand

	// ConditionalJump / Jump only: destinations and the block-args carried
	// to each, stored structurally here rather than as a flattened
	// cond, true-dest, true-args, false-dest, false-args operand list.
	TrueDest   *Block
	TrueArgs   []Operand
	FalseDest  *Block
	FalseArgs  []Operand

	// Access only: constant field index into a struct operand.
	FieldIndex int

	prev, next *Instruction
}

// Block is a basic block: an ordered parameter list and a doubly linked
// instruction list, terminated by exactly one terminator.
type Block struct {
	Name   string
	Params []BlockParam

	head, tail *Instruction
	prev, next *Block
}

// PushBack appends inst to the end of b's instruction list.
func (b *Block) PushBack(inst *Instruction) {
	if b.tail == nil {
		b.head, b.tail = inst, inst
		return
	}
	inst.prev = b.tail
	b.tail.next = inst
	b.tail = inst
}

// Instructions returns b's instructions in order.
func (b *Block) Instructions() []*Instruction {
	var out []*Instruction
	for i := b.head; i != nil; i = i.next {
		out = append(out, i)
	}
	return out
}

// Terminator returns b's terminating instruction, or nil if b is not yet
// terminated.
func (b *Block) Terminator() *Instruction {
	if b.tail == nil || !b.tail.Op.IsTerminator() {
		return nil
	}
	return b.tail
}

// Function owns a doubly linked list of basic blocks and a name→local table.
type Function struct {
	Name     string
	Params   []types.QualType
	Return   types.QualType
	External bool

	Locals   []*Local
	localIdx map[string]*Local

	head, tail *Block
	nextDef    DefID
}

// NewFunction creates an empty function shell (the Declare phase of MIR
// building).
func NewFunction(name string, params []types.QualType, ret types.QualType, external bool) *Function {
	return &Function{Name: name, Params: params, Return: ret, External: external, localIdx: make(map[string]*Local), nextDef: 1}
}

// NewDef allocates a fresh def id, unique within the function.
func (f *Function) NewDef() DefID {
	id := f.nextDef
	f.nextDef++
	return id
}

// DeclareLocal adds a named local in definition order and returns it.
func (f *Function) DeclareLocal(name string, typ types.QualType) *Local {
	l := &Local{Name: name, Type: typ}
	f.Locals = append(f.Locals, l)
	f.localIdx[name] = l
	return l
}

// Local looks up a previously declared local by name.
func (f *Function) Local(name string) (*Local, bool) {
	l, ok := f.localIdx[name]
	return l, ok
}

// AppendBlock appends a new empty block named name and returns it.
func (f *Function) AppendBlock(name string) *Block {
	b := &Block{Name: name}
	if f.tail == nil {
		f.head, f.tail = b, b
	} else {
		b.prev = f.tail
		f.tail.next = b
		f.tail = b
	}
	return b
}

// Blocks returns f's basic blocks in emission order.
func (f *Function) Blocks() []*Block {
	var out []*Block
	for b := f.head; b != nil; b = b.next {
		out = append(out, b)
	}
	return out
}

// Global is a top-level storage location with an optional constant
// initializer (nil means zero-initialized).
type Global struct {
	Name string
	Type types.QualType
	Init *Const
}

// CFG is the translation unit's MIR: every global, function, and pooled
// constant.
type CFG struct {
	Types *types.Context

	Globals   []*Global
	globalIdx map[string]*Global

	Functions []*Function
	funcIdx   map[string]*Function

	ints    map[intKey]*Const
	floats  map[floatKey]*Const
	nulls   map[string]*Const
	strings map[string]*Const
}

type intKey struct {
	width int64
	value int64
}

type floatKey struct {
	width int64
	value float64
}

// NewCFG creates an empty CFG backed by tctx's type-interning context.
func NewCFG(tctx *types.Context) *CFG {
	return &CFG{
		Types:     tctx,
		globalIdx: make(map[string]*Global),
		funcIdx:   make(map[string]*Function),
		ints:      make(map[intKey]*Const),
		floats:    make(map[floatKey]*Const),
		nulls:     make(map[string]*Const),
		strings:   make(map[string]*Const),
	}
}

// DeclareFunction registers fn's shell. It does not check for duplicates:
// a second function with the same name is appended as well and replaces
// the first in the name index (the parser already rejects duplicate
// top-level names).
func (c *CFG) DeclareFunction(fn *Function) {
	c.Functions = append(c.Functions, fn)
	c.funcIdx[fn.Name] = fn
}

func (c *CFG) Function(name string) (*Function, bool) {
	f, ok := c.funcIdx[name]
	return f, ok
}

func (c *CFG) DeclareGlobal(g *Global) {
	c.Globals = append(c.Globals, g)
	c.globalIdx[g.Name] = g
}

func (c *CFG) Global(name string) (*Global, bool) {
	g, ok := c.globalIdx[name]
	return g, ok
}

// IntConst interns an integer constant by (width, value).
func (c *CFG) IntConst(typ types.QualType, value int64) *Const {
	width, _, _ := widthOf(typ.Type)
	key := intKey{width: int64(width), value: value}
	if k, ok := c.ints[key]; ok {
		return k
	}
	k := &Const{Kind: ConstInt, Type: typ, IntVal: value}
	c.ints[key] = k
	return k
}

// FloatConst interns a float constant by (width, value).
func (c *CFG) FloatConst(typ types.QualType, value float64) *Const {
	width, _, _ := widthOf(typ.Type)
	key := floatKey{width: int64(width), value: value}
	if k, ok := c.floats[key]; ok {
		return k
	}
	k := &Const{Kind: ConstFloat, Type: typ, FloatVal: value}
	c.floats[key] = k
	return k
}

// NullConst interns a typed null pointer constant.
func (c *CFG) NullConst(typ types.QualType) *Const {
	key := typ.Type.String()
	if k, ok := c.nulls[key]; ok {
		return k
	}
	k := &Const{Kind: ConstNull, Type: typ}
	c.nulls[key] = k
	return k
}

// StringConst interns a string literal by byte content.
func (c *CFG) StringConst(typ types.QualType, s string) *Const {
	if k, ok := c.strings[s]; ok {
		return k
	}
	k := &Const{Kind: ConstString, Type: typ, StringVal: s}
	c.strings[s] = k
	return k
}

func widthOf(t types.Type) (width int, signed, ok bool) {
	switch v := types.Underlying(t).(type) {
	case types.Bool:
		return 8, false, true
	case types.Char:
		return 8, false, true
	case types.Int:
		return int(v.Width), true, true
	case types.UInt:
		return int(v.Width), false, true
	case types.Float:
		return int(v.Width), true, true
	case types.Pointer:
		return 64, false, true
	}
	return 0, false, false
}
