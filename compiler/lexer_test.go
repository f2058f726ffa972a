package compiler

import (
	"testing"
)

func TestLexerPunctuation(t *testing.T) {
	input := `( ) [ ] { } , . ; : ? => ~ ** **`
	expected := []TokenType{
		TokenLeftParen, TokenRightParen,
		TokenLeftBracket, TokenRightBracket,
		TokenLeftBrace, TokenRightBrace,
		TokenComma, TokenDot, TokenSemicolon, TokenColon, TokenQuestion,
		TokenArrow, TokenTilde, TokenStarStar, TokenStarStar,
		TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerOperators(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"-", TokenMinus},
		{"-=", TokenMinusEqual},
		{"+=", TokenPlusEqual},
		{"/=", TokenSlashEqual},
		{"*=", TokenStarEqual},
		{"%=", TokenPercentEqual},
		{"&=", TokenAmpEqual},
		{"|=", TokenPipeEqual},
		{"^=", TokenCaretEqual},
		{"!=", TokenBangEqual},
		{"==", TokenEqualEqual},
		{"=", TokenEqual},
		{"<=", TokenLessEqual},
		{">=", TokenGreaterEqual},
		{"<", TokenLess},
		{">", TokenGreater},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q) = %v, want %v", tc.input, tok.Type, tc.want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"42", "42"},
		{"3.25", "3.25"},
		{"1_000_000", "1000000"},
		{"0xFF", "0xFF"},
		{"0b1010", "0b1010"},
		{"1e3", "1e3"},
		{"2.5E-2", "2.5E-2"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenNumber {
			t.Errorf("Lexer(%q): type = %v, want NUMBER", tc.input, tok.Type)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerNumberFollowedByMethod(t *testing.T) {
	toks := Tokenize("1.toString")
	want := []TokenType{TokenNumber, TokenDot, TokenIdentifier, TokenEOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Type != w {
			t.Errorf("token[%d] = %v, want %v", i, toks[i].Type, w)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"quote\"d"`, `quote"d`},
		{`"\x41\x42"`, "AB"},
		{`"keep\q"`, `keep\q`},
		{`r"raw\n"`, `raw\n`},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenString {
			t.Errorf("Lexer(%s): type = %v, want STRING", tc.input, tok.Type)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%s): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"open`, "Unterminated string."},
		{"@", "Unexpected character."},
		{"0x", "Invalid number literal."},
		{`"\xZZ"`, "Invalid hex escape sequence."},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != TokenError {
			t.Errorf("Lexer(%q): type = %v, want ERROR", tc.input, tok.Type)
			continue
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): message = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerKeywordsAndAliases(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{"class", TokenClass},
		{"trait", TokenTrait},
		{"abstract", TokenAbstract},
		{"with", TokenWith},
		{"def", TokenDef},
		{"fn", TokenDef},
		{"nil", TokenNil},
		{"null", TokenNil},
		{"this", TokenThis},
		{"self", TokenThis},
		{"not", TokenBang},
		{"classy", TokenIdentifier},
		{"_private", TokenIdentifier},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q) = %v, want %v", tc.input, tok.Type, tc.want)
		}
		if tok.Lexeme != tc.input {
			t.Errorf("Lexer(%q) lexeme = %q, source text must be kept", tc.input, tok.Lexeme)
		}
	}
}

func TestLexerCommentsAndLines(t *testing.T) {
	input := "// line comment\nvar /* block\ncomment */ x\n;"
	toks := Tokenize(input)

	want := []struct {
		typ  TokenType
		line int
	}{
		{TokenVar, 2},
		{TokenIdentifier, 3},
		{TokenSemicolon, 4},
		{TokenEOF, 4},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(want))
	}
	for i, w := range want {
		if toks[i].Type != w.typ || toks[i].Line != w.line {
			t.Errorf("token[%d] = %v line %d, want %v line %d", i, toks[i].Type, toks[i].Line, w.typ, w.line)
		}
	}
}
