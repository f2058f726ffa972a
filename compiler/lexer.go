package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: on-demand tokenizer
// ---------------------------------------------------------------------------

// Lexer produces tokens lazily; the parser pulls one token at a time.
type Lexer struct {
	input   string
	start   int // start of the token being scanned
	current int // next byte to read
	line    int // current line (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.input)
}

func (l *Lexer) advance() byte {
	c := l.input[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.input[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.input) {
		return 0
	}
	return l.input[l.current+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.input[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) make(t TokenType) Token {
	lexeme := l.input[l.start:l.current]
	return Token{Type: t, Lexeme: lexeme, Literal: lexeme, Line: l.line}
}

func (l *Lexer) errorToken(msg string) Token {
	return Token{Type: TokenError, Lexeme: l.input[l.start:l.current], Literal: msg, Line: l.line}
}

// skipWhitespace skips blanks, newlines and both comment forms.
func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			switch l.peekNext() {
			case '/':
				for l.peek() != '\n' && !l.atEnd() {
					l.advance()
				}
			case '*':
				l.advance()
				l.advance()
				for !l.atEnd() && !(l.peek() == '*' && l.peekNext() == '/') {
					if l.advance() == '\n' {
						l.line++
					}
				}
				if !l.atEnd() {
					l.advance()
					l.advance()
				}
			default:
				return
			}
		default:
			return
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()
	l.start = l.current

	if l.atEnd() {
		return Token{Type: TokenEOF, Line: l.line}
	}

	c := l.advance()

	if c == 'r' && (l.peek() == '"' || l.peek() == '\'') {
		return l.string(l.advance(), true)
	}
	if isAlpha(c) {
		return l.identifier()
	}
	if isDigit(c) {
		return l.number(c)
	}

	switch c {
	case '(':
		return l.make(TokenLeftParen)
	case ')':
		return l.make(TokenRightParen)
	case '{':
		return l.make(TokenLeftBrace)
	case '}':
		return l.make(TokenRightBrace)
	case '[':
		return l.make(TokenLeftBracket)
	case ']':
		return l.make(TokenRightBracket)
	case ',':
		return l.make(TokenComma)
	case '.':
		return l.make(TokenDot)
	case ';':
		return l.make(TokenSemicolon)
	case ':':
		return l.make(TokenColon)
	case '?':
		return l.make(TokenQuestion)
	case '~':
		return l.make(TokenTilde)
	case '-':
		return l.either('=', TokenMinusEqual, TokenMinus)
	case '+':
		return l.either('=', TokenPlusEqual, TokenPlus)
	case '/':
		return l.either('=', TokenSlashEqual, TokenSlash)
	case '%':
		return l.either('=', TokenPercentEqual, TokenPercent)
	case '&':
		return l.either('=', TokenAmpEqual, TokenAmp)
	case '|':
		return l.either('=', TokenPipeEqual, TokenPipe)
	case '^':
		return l.either('=', TokenCaretEqual, TokenCaret)
	case '!':
		return l.either('=', TokenBangEqual, TokenBang)
	case '<':
		return l.either('=', TokenLessEqual, TokenLess)
	case '>':
		return l.either('=', TokenGreaterEqual, TokenGreater)
	case '*':
		if l.match('*') {
			return l.make(TokenStarStar)
		}
		return l.either('=', TokenStarEqual, TokenStar)
	case '=':
		if l.match('>') {
			return l.make(TokenArrow)
		}
		return l.either('=', TokenEqualEqual, TokenEqual)
	case '"', '\'':
		return l.string(c, false)
	}

	return l.errorToken("Unexpected character.")
}

// either returns yes if the next byte is next, consuming it, and no
// otherwise.
func (l *Lexer) either(next byte, yes, no TokenType) Token {
	if l.match(next) {
		return l.make(yes)
	}
	return l.make(no)
}

func (l *Lexer) identifier() Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	return l.make(lookupIdentifier(l.input[l.start:l.current]))
}

// number scans decimal, hex (0x) and binary (0b) literals. Underscores
// may separate digits and are dropped from the literal.
func (l *Lexer) number(first byte) Token {
	if first == '0' && (l.peek() == 'x' || l.peek() == 'X') {
		l.advance()
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		return l.numberToken(2)
	}
	if first == '0' && (l.peek() == 'b' || l.peek() == 'B') {
		l.advance()
		for l.peek() == '0' || l.peek() == '1' || l.peek() == '_' {
			l.advance()
		}
		return l.numberToken(2)
	}

	for isDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		save := l.current
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !isDigit(l.peek()) {
			l.current = save
		} else {
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	return l.numberToken(0)
}

// numberToken builds a number token; prefix is the length of a radix
// prefix that must be followed by at least one digit.
func (l *Lexer) numberToken(prefix int) Token {
	tok := l.make(TokenNumber)
	tok.Literal = strings.ReplaceAll(tok.Lexeme, "_", "")
	if prefix > 0 && len(tok.Literal) == prefix {
		return l.errorToken("Invalid number literal.")
	}
	return tok
}

// string scans a literal delimited by quote. Raw strings keep
// backslashes as written.
func (l *Lexer) string(quote byte, raw bool) Token {
	var sb strings.Builder
	for !l.atEnd() && l.peek() != quote {
		c := l.advance()
		if c == '\n' {
			l.line++
		}
		if c != '\\' || raw {
			sb.WriteByte(c)
			continue
		}
		if l.atEnd() {
			break
		}
		esc := l.advance()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case '\\', '"', '\'':
			sb.WriteByte(esc)
		case 'x':
			if !isHexDigit(l.peek()) || !isHexDigit(l.peekNext()) {
				return l.errorToken("Invalid hex escape sequence.")
			}
			hi := hexValue(l.advance())
			lo := hexValue(l.advance())
			sb.WriteByte(hi<<4 | lo)
		case '\n':
			l.line++
		default:
			sb.WriteByte('\\')
			sb.WriteByte(esc)
		}
	}

	if l.atEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance()

	tok := l.make(TokenString)
	tok.Literal = sb.String()
	return tok
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	}
	return c - '0'
}

// Tokenize scans all of input. Used by tests and tooling.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}
