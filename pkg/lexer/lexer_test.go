package lexer

import "testing"

func TestNextTokenBasic(t *testing.T) {
	input := `main :: () -> s64 { ret 0; }`

	tests := []struct {
		typ TokenType
		lit string
	}{
		{TokenIdentifier, "main"},
		{TokenDoubleColon, "::"},
		{TokenOpenParen, "("},
		{TokenCloseParen, ")"},
		{TokenArrow, "->"},
		{TokenS64, "s64"},
		{TokenOpenBrace, "{"},
		{TokenRet, "ret"},
		{TokenInteger, "0"},
		{TokenSemicolon, ";"},
		{TokenCloseBrace, "}"},
		{TokenEOF, ""},
	}

	l := New("test.lc", input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.typ {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s", i, tt.typ, tok.Type)
		}
		if tok.Literal != tt.lit {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.lit, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~ << >>`

	tests := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenEq, TokenEqEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenAndAnd, TokenOrOr, TokenNot, TokenAmp, TokenPipe, TokenCaret,
		TokenTilde, TokenShl, TokenShr, TokenEOF,
	}

	l := New("test.lc", input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s (%q)", i, want, tok.Type, tok.Literal)
		}
	}
}

func TestComments(t *testing.T) {
	input := `s64 // line comment
x /* block
comment */ ;`

	tests := []TokenType{TokenS64, TokenIdentifier, TokenSemicolon, TokenEOF}

	l := New("test.lc", input)
	for i, want := range tests {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - type wrong. expected=%s, got=%s", i, want, tok.Type)
		}
	}
}

func TestStringAndCharLiterals(t *testing.T) {
	input := `"hello" 'a'`
	l := New("test.lc", input)

	str := l.NextToken()
	if str.Type != TokenString || str.Literal != "hello" {
		t.Fatalf("string literal wrong: %+v", str)
	}
	ch := l.NextToken()
	if ch.Type != TokenChar || ch.Literal != "a" {
		t.Fatalf("char literal wrong: %+v", ch)
	}
}

func TestLoadDirectiveReadsPath(t *testing.T) {
	input := `load "lib.lc";`
	l := New("test.lc", input)

	load := l.NextToken()
	if load.Type != TokenLoad {
		t.Fatalf("expected load keyword, got %s", load.Type)
	}
	path := l.NextToken()
	if path.Type != TokenPath || path.Literal != "lib.lc" {
		t.Fatalf("expected path token %q, got %+v", "lib.lc", path)
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	input := "x\ny"
	l := New("test.lc", input)

	first := l.NextToken()
	if first.Line != 1 {
		t.Errorf("expected first token on line 1, got %d", first.Line)
	}
	second := l.NextToken()
	if second.Line != 2 {
		t.Errorf("expected second token on line 2, got %d", second.Line)
	}
}

func TestKeywordsLookUpCorrectly(t *testing.T) {
	tests := map[string]TokenType{
		"mut": TokenMut, "struct": TokenStruct, "enum": TokenEnum,
		"until": TokenUntil, "stop": TokenStop, "restart": TokenRestart,
		"sizeof": TokenSizeof, "true": TokenTrue, "false": TokenFalse,
		"null": TokenNull, "notakeyword": TokenIdentifier,
	}
	for lit, want := range tests {
		if got := LookupIdent(lit); got != want {
			t.Errorf("LookupIdent(%q) = %s, want %s", lit, got, want)
		}
	}
}
