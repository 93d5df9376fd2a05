// Package parser implements a single-pass recursive-descent parser for
// Lace with a precedence-climbing sub-routine for binary operators.
// It consumes one token of lookahead from the lexer and
// maintains a mutable current scope mirroring lexical nesting.
package parser

import (
	"fmt"
	"strconv"

	"github.com/bpetrakis/lacec/pkg/ast"
	"github.com/bpetrakis/lacec/pkg/diag"
	"github.com/bpetrakis/lacec/pkg/lexer"
	"github.com/bpetrakis/lacec/pkg/types"
)

// precedence levels, lowest to highest.
const (
	precLowest = iota
	precAssign
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

var binPrecedence = map[lexer.TokenType]int{
	lexer.TokenEq:     precAssign,
	lexer.TokenOrOr:   precOr,
	lexer.TokenAndAnd: precAnd,
	lexer.TokenPipe:   precBitOr,
	lexer.TokenCaret:  precBitXor,
	lexer.TokenAmp:    precBitAnd,
	lexer.TokenEqEq:   precEquality,
	lexer.TokenNe:     precEquality,
	lexer.TokenLt:     precRelational,
	lexer.TokenLe:     precRelational,
	lexer.TokenGt:     precRelational,
	lexer.TokenGe:     precRelational,
	lexer.TokenShl:    precShift,
	lexer.TokenShr:    precShift,
	lexer.TokenPlus:   precAdditive,
	lexer.TokenMinus:  precAdditive,
	lexer.TokenStar:   precMultiplicative,
	lexer.TokenSlash:  precMultiplicative,
	lexer.TokenPercent: precMultiplicative,
}

var binOpFor = map[lexer.TokenType]ast.BinaryOp{
	lexer.TokenEq:     ast.BAssign,
	lexer.TokenOrOr:   ast.BOr,
	lexer.TokenAndAnd: ast.BAnd,
	lexer.TokenPipe:   ast.BBitOr,
	lexer.TokenCaret:  ast.BBitXor,
	lexer.TokenAmp:    ast.BBitAnd,
	lexer.TokenEqEq:   ast.BEq,
	lexer.TokenNe:     ast.BNe,
	lexer.TokenLt:     ast.BLt,
	lexer.TokenLe:     ast.BLe,
	lexer.TokenGt:     ast.BGt,
	lexer.TokenGe:     ast.BGe,
	lexer.TokenShl:    ast.BShl,
	lexer.TokenShr:    ast.BShr,
	lexer.TokenPlus:   ast.BAdd,
	lexer.TokenMinus:  ast.BSub,
	lexer.TokenStar:   ast.BMul,
	lexer.TokenSlash:  ast.BDiv,
	lexer.TokenPercent: ast.BMod,
}

// Parser is a single-pass recursive-descent parser with one token of
// lookahead.
type Parser struct {
	lex   *lexer.Lexer
	diags *diag.Context
	tctx  *types.Context

	cur, peek lexer.Token
	scope     *ast.Scope
	errors    []string
}

// New creates a Parser over src, attributed to file for diagnostics, with a
// fresh root scope.
func New(file, src string, diags *diag.Context, tctx *types.Context) *Parser {
	return NewWithScope(file, src, diags, tctx, ast.NewScope(nil))
}

// NewWithScope creates a Parser whose top-level definitions are declared
// into root rather than a fresh scope, so a driver resolving `load`
// statements can fold several files' top-level bindings into one shared
// scope before symbol analysis runs.
func NewWithScope(file, src string, diags *diag.Context, tctx *types.Context, root *ast.Scope) *Parser {
	p := &Parser{lex: lexer.New(file, src), diags: diags, tctx: tctx}
	p.scope = root
	p.advance()
	p.advance()
	return p
}

// Errors returns every parse error message collected so far.
func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) span() ast.Span {
	return ast.NewSpan(p.cur.File, p.cur.Line, p.cur.Column)
}

func (p *Parser) advance() {
	p.cur = p.peek
	p.peek = p.lex.NextToken()
}

func (p *Parser) errorf(format string, args ...any) {
	span := p.span()
	p.diags.Errorf(span, format, args...)
	p.errors = append(p.errors, span.String()+": "+fmt.Sprintf(format, args...))
}

func (p *Parser) expect(t lexer.TokenType) lexer.Token {
	tok := p.cur
	if p.cur.Type != t {
		p.errorf("expected %s, got %s %q", t, p.cur.Type, p.cur.Literal)
		return tok
	}
	p.advance()
	return tok
}

// ParseProgram parses a full translation unit.
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{Root: p.scope, Types: p.tctx}
	for p.cur.Type != lexer.TokenEOF {
		def := p.parseTopLevel()
		if def != nil {
			prog.Defs = append(prog.Defs, def)
		}
		if p.cur.Type == lexer.TokenIllegal {
			p.advance()
		}
	}
	return prog
}

func (p *Parser) parseTopLevel() ast.Definition {
	if p.cur.Type == lexer.TokenLoad {
		return p.parseLoad()
	}
	span := p.span()
	name := p.expect(lexer.TokenIdentifier).Literal
	p.expect(lexer.TokenDoubleColon)

	switch p.cur.Type {
	case lexer.TokenOpenParen:
		return p.parseFuncDef(span, name)
	case lexer.TokenStruct:
		return p.parseStructDef(span, name)
	case lexer.TokenEnum:
		return p.parseEnumDef(span, name)
	default:
		return p.parseGlobalDef(span, name)
	}
}

func (p *Parser) declareTop(name string, b *ast.Binding) {
	if !p.scope.Declare(b) {
		p.errorf("duplicate definition of %q", name)
	}
}

func (p *Parser) parseLoad() ast.Definition {
	span := p.span()
	p.advance() // 'load'
	path := p.expect(lexer.TokenPath).Literal
	p.expect(lexer.TokenSemicolon)
	return ast.NewLoadDef(span, path)
}

func (p *Parser) parseFuncDef(span ast.Span, name string) ast.Definition {
	p.expect(lexer.TokenOpenParen)
	fnScope := ast.NewScope(p.scope)
	var params []ast.Param
	for p.cur.Type != lexer.TokenCloseParen {
		pname := p.expect(lexer.TokenIdentifier).Literal
		p.expect(lexer.TokenColon)
		ptyp := p.parseType()
		params = append(params, ast.Param{Name: pname, Type: ptyp})
		if p.cur.Type == lexer.TokenComma {
			p.advance()
		}
	}
	for i := range params {
		fnScope.Declare(&ast.Binding{Kind: ast.BindValue, Name: params[i].Name, Param: &params[i]})
	}
	p.expect(lexer.TokenCloseParen)
	p.expect(lexer.TokenArrow)
	ret := p.parseType()

	fn := ast.NewFuncDef(span, name, params, ret, nil, fnScope)
	p.declareTop(name, &ast.Binding{Kind: ast.BindValue, Name: name, Def: fn})

	if p.cur.Type == lexer.TokenSemicolon {
		p.advance()
		return fn
	}

	outer := p.scope
	p.scope = fnScope
	fn.Body = p.parseBlock()
	p.scope = outer
	return fn
}

func (p *Parser) parseStructDef(span ast.Span, name string) ast.Definition {
	p.advance() // 'struct'
	p.expect(lexer.TokenOpenBrace)
	var fields []ast.FieldDecl
	for p.cur.Type != lexer.TokenCloseBrace && p.cur.Type != lexer.TokenEOF {
		fname := p.expect(lexer.TokenIdentifier).Literal
		p.expect(lexer.TokenColon)
		ftyp := p.parseType()
		fields = append(fields, ast.FieldDecl{Name: fname, Type: ftyp})
		if p.cur.Type == lexer.TokenComma {
			p.advance()
		}
	}
	p.expect(lexer.TokenCloseBrace)

	def := ast.NewStructDef(span, name, fields)
	p.declareTop(name, &ast.Binding{Kind: ast.BindType, Name: name, Type: types.Deferred{Name: name}})
	return def
}

func (p *Parser) parseEnumDef(span ast.Span, name string) ast.Definition {
	p.advance() // 'enum'
	underlying := types.QualType{Type: p.tctx.Int(types.W64)}
	if p.cur.Type == lexer.TokenOpenBrack {
		p.advance()
		underlying = p.parseType()
		p.expect(lexer.TokenCloseBrack)
	}
	p.expect(lexer.TokenOpenBrace)
	var variants []ast.VariantDecl
	next := int64(0)
	for p.cur.Type != lexer.TokenCloseBrace && p.cur.Type != lexer.TokenEOF {
		vname := p.expect(lexer.TokenIdentifier).Literal
		val := next
		if p.cur.Type == lexer.TokenEq {
			p.advance()
			lit := p.expect(lexer.TokenInteger)
			val, _ = strconv.ParseInt(lit.Literal, 10, 64)
		}
		variants = append(variants, ast.VariantDecl{Name: vname, Value: val})
		next = val + 1
		if p.cur.Type == lexer.TokenComma {
			p.advance()
		}
	}
	p.expect(lexer.TokenCloseBrace)

	def := ast.NewEnumDef(span, name, underlying, variants)
	p.declareTop(name, &ast.Binding{Kind: ast.BindType, Name: name, Type: types.Deferred{Name: name}})
	// Each variant is its own value binding in the enclosing scope, not
	// namespaced under the enum name: `Red` resolves directly, the same way
	// a VariantDefn is a ValueDefn declared alongside any other value.
	for _, v := range variants {
		p.declareTop(v.Name, &ast.Binding{Kind: ast.BindVariant, Name: v.Name, Enum: def, VariantName: v.Name})
	}
	return def
}

func (p *Parser) parseGlobalDef(span ast.Span, name string) ast.Definition {
	typ := p.parseType()
	var init ast.Expr
	if p.cur.Type == lexer.TokenEq {
		p.advance()
		init = p.parseExpr(precLowest)
	}
	p.expect(lexer.TokenSemicolon)

	def := ast.NewGlobalDef(span, name, typ, init)
	p.declareTop(name, &ast.Binding{Kind: ast.BindValue, Name: name, Def: def})
	return def
}

// parseType parses a QualType: an optional `mut`, then a base type, with
// `*T` pointer and `[T; N]` array postfix/prefix forms.
func (p *Parser) parseType() types.QualType {
	var q types.Qualifier
	for p.cur.Type == lexer.TokenMut {
		if q&types.Mut != 0 {
			p.diags.Warnf(p.span(), "duplicate 'mut' qualifier")
		}
		q |= types.Mut
		p.advance()
	}

	if p.cur.Type == lexer.TokenStar {
		p.advance()
		inner := p.parseType()
		return types.QualType{Type: p.tctx.Pointer(inner), Quals: q}
	}

	if p.cur.Type == lexer.TokenOpenBrack {
		p.advance()
		elem := p.parseType()
		p.expect(lexer.TokenSemicolon)
		lenTok := p.expect(lexer.TokenInteger)
		n, _ := strconv.ParseUint(lenTok.Literal, 10, 32)
		p.expect(lexer.TokenCloseBrack)
		return types.QualType{Type: p.tctx.Array(elem, uint32(n)), Quals: q}
	}

	var base types.Type
	switch p.cur.Type {
	case lexer.TokenVoid:
		base = p.tctx.Void()
	case lexer.TokenBool:
		base = p.tctx.Bool()
	case lexer.TokenCharKw:
		base = p.tctx.Char()
	case lexer.TokenS8:
		base = p.tctx.Int(types.W8)
	case lexer.TokenS16:
		base = p.tctx.Int(types.W16)
	case lexer.TokenS32:
		base = p.tctx.Int(types.W32)
	case lexer.TokenS64:
		base = p.tctx.Int(types.W64)
	case lexer.TokenU8:
		base = p.tctx.UInt(types.W8)
	case lexer.TokenU16:
		base = p.tctx.UInt(types.W16)
	case lexer.TokenU32:
		base = p.tctx.UInt(types.W32)
	case lexer.TokenU64:
		base = p.tctx.UInt(types.W64)
	case lexer.TokenF32:
		base = p.tctx.Float(types.FW32)
	case lexer.TokenF64:
		base = p.tctx.Float(types.FW64)
	case lexer.TokenIdentifier:
		base = types.Deferred{Name: p.cur.Literal}
	default:
		p.errorf("expected a type, got %s %q", p.cur.Type, p.cur.Literal)
		base = types.Void{}
		return types.QualType{Type: base, Quals: q}
	}
	p.advance()
	return types.QualType{Type: base, Quals: q}
}

// --- Statements ---

func (p *Parser) parseBlock() *ast.Block {
	span := p.span()
	p.expect(lexer.TokenOpenBrace)
	blockScope := ast.NewScope(p.scope)
	outer := p.scope
	p.scope = blockScope
	var stmts []ast.Stmt
	for p.cur.Type != lexer.TokenCloseBrace && p.cur.Type != lexer.TokenEOF {
		stmts = append(stmts, p.parseStmt())
	}
	p.expect(lexer.TokenCloseBrace)
	p.scope = outer
	return ast.NewBlock(span, blockScope, stmts)
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.cur.Type {
	case lexer.TokenOpenBrace:
		return p.parseBlock()
	case lexer.TokenLet:
		return p.parseLetStmt()
	case lexer.TokenRet:
		return p.parseRetStmt()
	case lexer.TokenIf:
		return p.parseIfStmt()
	case lexer.TokenUntil:
		return p.parseUntilStmt()
	case lexer.TokenStop:
		span := p.span()
		p.advance()
		p.expect(lexer.TokenSemicolon)
		return ast.NewStopStmt(span)
	case lexer.TokenRestart:
		span := p.span()
		p.advance()
		p.expect(lexer.TokenSemicolon)
		return ast.NewRestartStmt(span)
	default:
		span := p.span()
		e := p.parseExpr(precLowest)
		p.expect(lexer.TokenSemicolon)
		return ast.NewExprStmt(span, e)
	}
}

func (p *Parser) parseLetStmt() ast.Stmt {
	span := p.span()
	p.advance() // 'let'
	name := p.expect(lexer.TokenIdentifier).Literal
	p.expect(lexer.TokenColon)
	typ := p.parseType()
	var init ast.Expr
	if p.cur.Type == lexer.TokenEq {
		p.advance()
		init = p.parseExpr(precLowest)
	}
	p.expect(lexer.TokenSemicolon)
	stmt := ast.NewLetStmt(span, name, typ, init)
	if !p.scope.Declare(&ast.Binding{Kind: ast.BindValue, Name: name, Def: stmt}) {
		p.errorf("duplicate definition of %q", name)
	}
	return stmt
}

func (p *Parser) parseRetStmt() ast.Stmt {
	span := p.span()
	p.advance() // 'ret'
	var val ast.Expr
	if p.cur.Type != lexer.TokenSemicolon {
		val = p.parseExpr(precLowest)
	}
	p.expect(lexer.TokenSemicolon)
	return ast.NewRetStmt(span, val)
}

func (p *Parser) parseIfStmt() ast.Stmt {
	span := p.span()
	p.advance() // 'if'
	cond := p.parseExpr(precLowest)
	then := p.parseStmt()
	var els ast.Stmt
	if p.cur.Type == lexer.TokenElse {
		p.advance()
		els = p.parseStmt()
	}
	return ast.NewIfStmt(span, cond, then, els)
}

func (p *Parser) parseUntilStmt() ast.Stmt {
	span := p.span()
	p.advance() // 'until'
	cond := p.parseExpr(precLowest)
	var body ast.Stmt
	if p.cur.Type == lexer.TokenSemicolon {
		p.advance()
	} else {
		body = p.parseStmt()
	}
	return ast.NewUntilStmt(span, cond, body)
}

// --- Expressions (Pratt) ---

func (p *Parser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		prec, ok := binPrecedence[p.cur.Type]
		if !ok || prec < minPrec {
			return left
		}
		op := binOpFor[p.cur.Type]
		span := p.span()
		p.advance()
		nextMin := prec + 1
		if op == ast.BAssign {
			nextMin = prec // right-associative
		}
		right := p.parseExpr(nextMin)
		left = ast.NewBinary(span, op, left, right)
	}
}

func (p *Parser) parseUnary() ast.Expr {
	span := p.span()
	switch p.cur.Type {
	case lexer.TokenMinus:
		p.advance()
		return ast.NewUnary(span, ast.UNeg, p.parseUnary())
	case lexer.TokenNot:
		p.advance()
		return ast.NewUnary(span, ast.UNot, p.parseUnary())
	case lexer.TokenTilde:
		p.advance()
		return ast.NewUnary(span, ast.UBitNot, p.parseUnary())
	case lexer.TokenAmp:
		p.advance()
		return ast.NewUnary(span, ast.UAddrOf, p.parseUnary())
	case lexer.TokenStar:
		p.advance()
		return ast.NewUnary(span, ast.UDeref, p.parseUnary())
	case lexer.TokenSizeof:
		return p.parseSizeof()
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *Parser) parseSizeof() ast.Expr {
	span := p.span()
	p.advance() // 'sizeof'
	p.expect(lexer.TokenOpenParen)
	if isTypeStart(p.cur.Type) {
		typ := p.parseType()
		p.expect(lexer.TokenCloseParen)
		return ast.NewSizeofType(span, typ)
	}
	e := p.parseExpr(precLowest)
	p.expect(lexer.TokenCloseParen)
	return ast.NewSizeofExpr(span, e)
}

func isTypeStart(t lexer.TokenType) bool {
	switch t {
	case lexer.TokenVoid, lexer.TokenBool, lexer.TokenCharKw,
		lexer.TokenS8, lexer.TokenS16, lexer.TokenS32, lexer.TokenS64,
		lexer.TokenU8, lexer.TokenU16, lexer.TokenU32, lexer.TokenU64,
		lexer.TokenF32, lexer.TokenF64, lexer.TokenMut:
		return true
	}
	return false
}

func (p *Parser) parsePostfix(e ast.Expr) ast.Expr {
	for {
		span := p.span()
		switch p.cur.Type {
		case lexer.TokenOpenParen:
			p.advance()
			var args []ast.Expr
			for p.cur.Type != lexer.TokenCloseParen {
				args = append(args, p.parseExpr(precAssign+1))
				if p.cur.Type == lexer.TokenComma {
					p.advance()
				}
			}
			p.expect(lexer.TokenCloseParen)
			e = ast.NewCall(span, e, args)
		case lexer.TokenOpenBrack:
			p.advance()
			idx := p.parseExpr(precLowest)
			p.expect(lexer.TokenCloseBrack)
			e = ast.NewSubscript(span, e, idx)
		case lexer.TokenDot:
			p.advance()
			name := p.expect(lexer.TokenIdentifier).Literal
			e = ast.NewFieldAccess(span, e, name)
		case lexer.TokenArrow:
			// `p->field` sugar for `(*p).field`, desugared eagerly.
			p.advance()
			name := p.expect(lexer.TokenIdentifier).Literal
			deref := ast.NewUnary(span, ast.UDeref, e)
			e = ast.NewFieldAccess(span, deref, name)
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	span := p.span()
	switch p.cur.Type {
	case lexer.TokenInteger:
		lit := p.cur.Literal
		p.advance()
		v, _ := strconv.ParseInt(lit, 10, 64)
		return ast.NewIntLit(span, v)
	case lexer.TokenFloat:
		lit := p.cur.Literal
		p.advance()
		v, _ := strconv.ParseFloat(lit, 64)
		return ast.NewFloatLit(span, v)
	case lexer.TokenChar:
		lit := p.cur.Literal
		p.advance()
		return ast.NewCharLit(span, decodeCharLiteral(lit))
	case lexer.TokenString:
		lit := p.cur.Literal
		p.advance()
		return ast.NewStringLit(span, lit)
	case lexer.TokenTrue:
		p.advance()
		return ast.NewBoolLit(span, true)
	case lexer.TokenFalse:
		p.advance()
		return ast.NewBoolLit(span, false)
	case lexer.TokenNull:
		p.advance()
		return ast.NewNullLit(span)
	case lexer.TokenIdentifier:
		name := p.cur.Literal
		p.advance()
		return ast.NewRef(span, name)
	case lexer.TokenOpenParen:
		p.advance()
		e := p.parseExpr(precLowest)
		p.expect(lexer.TokenCloseParen)
		return e
	default:
		p.errorf("unexpected token %s %q in expression", p.cur.Type, p.cur.Literal)
		p.advance()
		return ast.NewNullLit(span)
	}
}

func decodeCharLiteral(lit string) byte {
	if len(lit) == 0 {
		return 0
	}
	if lit[0] == '\\' && len(lit) > 1 {
		switch lit[1] {
		case 'n':
			return '\n'
		case 't':
			return '\t'
		case '0':
			return 0
		case '\\':
			return '\\'
		case '\'':
			return '\''
		}
	}
	return lit[0]
}
