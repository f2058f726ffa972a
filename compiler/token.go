package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Delimiters
	TokenLeftParen    // (
	TokenRightParen   // )
	TokenLeftBrace    // {
	TokenRightBrace   // }
	TokenLeftBracket  // [
	TokenRightBracket // ]
	TokenComma        // ,
	TokenDot          // .
	TokenSemicolon    // ;
	TokenColon        // :
	TokenQuestion     // ?
	TokenArrow        // =>

	// Operators
	TokenMinus        // -
	TokenMinusEqual   // -=
	TokenPlus         // +
	TokenPlusEqual    // +=
	TokenSlash        // /
	TokenSlashEqual   // /=
	TokenStar         // *
	TokenStarEqual    // *=
	TokenStarStar     // **
	TokenPercent      // %
	TokenPercentEqual // %=
	TokenAmp          // &
	TokenAmpEqual     // &=
	TokenPipe         // |
	TokenPipeEqual    // |=
	TokenCaret        // ^
	TokenCaretEqual   // ^=
	TokenTilde        // ~
	TokenBang         // ! (also `not`)
	TokenBangEqual    // !=
	TokenEqual        // =
	TokenEqualEqual   // ==
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenLess         // <
	TokenLessEqual    // <=

	// Literals
	TokenIdentifier
	TokenString
	TokenNumber

	// Keywords
	TokenAbstract
	TokenAnd
	TokenAs
	TokenBreak
	TokenClass
	TokenConst
	TokenContinue
	TokenDef
	TokenElse
	TokenFalse
	TokenFor
	TokenFrom
	TokenIf
	TokenImport
	TokenNil
	TokenOr
	TokenReturn
	TokenStatic
	TokenSuper
	TokenThis
	TokenTrait
	TokenTrue
	TokenUse
	TokenVar
	TokenWhile
	TokenWith
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "EOF",
	TokenError:        "ERROR",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenLeftBrace:    "{",
	TokenRightBrace:   "}",
	TokenLeftBracket:  "[",
	TokenRightBracket: "]",
	TokenComma:        ",",
	TokenDot:          ".",
	TokenSemicolon:    ";",
	TokenColon:        ":",
	TokenQuestion:     "?",
	TokenArrow:        "=>",
	TokenMinus:        "-",
	TokenMinusEqual:   "-=",
	TokenPlus:         "+",
	TokenPlusEqual:    "+=",
	TokenSlash:        "/",
	TokenSlashEqual:   "/=",
	TokenStar:         "*",
	TokenStarEqual:    "*=",
	TokenStarStar:     "**",
	TokenPercent:      "%",
	TokenPercentEqual: "%=",
	TokenAmp:          "&",
	TokenAmpEqual:     "&=",
	TokenPipe:         "|",
	TokenPipeEqual:    "|=",
	TokenCaret:        "^",
	TokenCaretEqual:   "^=",
	TokenTilde:        "~",
	TokenBang:         "!",
	TokenBangEqual:    "!=",
	TokenEqual:        "=",
	TokenEqualEqual:   "==",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenIdentifier:   "IDENTIFIER",
	TokenString:       "STRING",
	TokenNumber:       "NUMBER",
	TokenAbstract:     "abstract",
	TokenAnd:          "and",
	TokenAs:           "as",
	TokenBreak:        "break",
	TokenClass:        "class",
	TokenConst:        "const",
	TokenContinue:     "continue",
	TokenDef:          "def",
	TokenElse:         "else",
	TokenFalse:        "false",
	TokenFor:          "for",
	TokenFrom:         "from",
	TokenIf:           "if",
	TokenImport:       "import",
	TokenNil:          "nil",
	TokenOr:           "or",
	TokenReturn:       "return",
	TokenStatic:       "static",
	TokenSuper:        "super",
	TokenThis:         "this",
	TokenTrait:        "trait",
	TokenTrue:         "true",
	TokenUse:          "use",
	TokenVar:          "var",
	TokenWhile:        "while",
	TokenWith:         "with",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Lexeme  string // the raw source text
	Literal string // decoded value of string and number literals
	Line    int
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Lexeme) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Lexeme[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Lexeme)
}

// Reserved words mapped to their token types.
var keywords = map[string]TokenType{
	"abstract": TokenAbstract,
	"and":      TokenAnd,
	"as":       TokenAs,
	"break":    TokenBreak,
	"class":    TokenClass,
	"const":    TokenConst,
	"continue": TokenContinue,
	"def":      TokenDef,
	"else":     TokenElse,
	"false":    TokenFalse,
	"for":      TokenFor,
	"from":     TokenFrom,
	"if":       TokenIf,
	"import":   TokenImport,
	"nil":      TokenNil,
	"or":       TokenOr,
	"return":   TokenReturn,
	"static":   TokenStatic,
	"super":    TokenSuper,
	"this":     TokenThis,
	"trait":    TokenTrait,
	"true":     TokenTrue,
	"use":      TokenUse,
	"var":      TokenVar,
	"while":    TokenWhile,
	"with":     TokenWith,
}

// aliases maps alternate spellings onto canonical tokens. The scanner
// consults it after the keyword table; the source text is never rewritten.
var aliases = map[string]TokenType{
	"null": TokenNil,
	"fn":   TokenDef,
	"self": TokenThis,
	"not":  TokenBang,
}

// lookupIdentifier classifies an identifier-shaped lexeme.
func lookupIdentifier(text string) TokenType {
	if t, ok := keywords[text]; ok {
		return t
	}
	if t, ok := aliases[text]; ok {
		return t
	}
	return TokenIdentifier
}
