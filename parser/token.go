package parser

import "github.com/bitbox-lang/bitbox/instr"

// Span is a source position range: byte offsets plus the row/column pairs a diagnostic
// needs to print a caret underline. Every token and every IR node carries one.
type Span struct {
	ByteStart int
	ByteEnd   int
	RowStart  int
	RowEnd    int
	ColStart  int
	ColEnd    int
}

// TokenKind enumerates every token the lexer can produce.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenDelimiter       // newline
	TokenOpcode          // a reserved mnemonic (load, store, add, ...)
	TokenNumber
	TokenIdentifier
	TokenColon
	TokenComma
	TokenPeriod
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenPercent
	TokenAmpersand
	TokenEqual
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "EOF"
	case TokenDelimiter:
		return "newline"
	case TokenOpcode:
		return "opcode"
	case TokenNumber:
		return "number"
	case TokenIdentifier:
		return "identifier"
	case TokenColon:
		return "':'"
	case TokenComma:
		return "','"
	case TokenPeriod:
		return "'.'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenPercent:
		return "'%'"
	case TokenAmpersand:
		return "'&'"
	case TokenEqual:
		return "'='"
	default:
		return "unknown"
	}
}

// Token is a lexical unit: a kind, its literal text, a decoded opcode/number when relevant,
// and the span it occupies.
type Token struct {
	Kind    TokenKind
	Literal string
	Opcode  instr.Opcode // valid when Kind == TokenOpcode
	Number  uint64       // valid when Kind == TokenNumber
	Span    Span
}
