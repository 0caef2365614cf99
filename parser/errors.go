package parser

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes a diagnostic raised anywhere in the lex/parse/assemble pipeline.
type ErrorKind int

const (
	ErrUnexpectedChar ErrorKind = iota
	ErrUnknownDirective
	ErrMissingEntry
	ErrExpectedIdentifier
	ErrExpectedNumber
	ErrExpectedDelimiter
	ErrExpectedPercent
	ErrExpectedColon
	ErrExpectedLBracket
	ErrExpectedRBracket
	ErrExpectedSign
	ErrInvalidImmediateType
	ErrRegisterOutOfBounds
	ErrUnexpectedEOF
	ErrUnknownLabel
	ErrDuplicateEntry
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnexpectedChar:
		return "unexpected character"
	case ErrUnknownDirective:
		return "unknown directive"
	case ErrMissingEntry:
		return "missing entry point"
	case ErrExpectedIdentifier:
		return "expected identifier"
	case ErrExpectedNumber:
		return "expected number"
	case ErrExpectedDelimiter:
		return "expected end of line"
	case ErrExpectedPercent:
		return "expected '%'"
	case ErrExpectedColon:
		return "expected ':'"
	case ErrExpectedLBracket:
		return "expected '['"
	case ErrExpectedRBracket:
		return "expected ']'"
	case ErrExpectedSign:
		return "expected a sign"
	case ErrInvalidImmediateType:
		return "invalid type for immediate"
	case ErrRegisterOutOfBounds:
		return "register index out of bounds"
	case ErrUnexpectedEOF:
		return "unexpected end of input"
	case ErrUnknownLabel:
		return "unknown label"
	case ErrDuplicateEntry:
		return "duplicate entry directive"
	default:
		return "error"
	}
}

// Error is a single diagnostic with an optional source span. Lexer errors are fail-fast;
// parser errors are collected into an ErrorList and reported together.
type Error struct {
	Kind     ErrorKind
	Message  string
	Span     Span
	Source   string // full source text, used to render the offending line
	Filename string
}

func (e *Error) Error() string {
	var sb strings.Builder
	row := e.Span.RowStart + 1
	col := e.Span.ColStart + 1
	fmt.Fprintf(&sb, "%d:%d %s --> %s\n", row, col, e.Filename, e.Message)
	if line := sourceLine(e.Source, e.Span.RowStart); line != "" {
		sb.WriteString(line)
		sb.WriteByte('\n')
		sb.WriteString(caretUnderline(line, e.Span))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func sourceLine(source string, row int) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if row < 0 || row >= len(lines) {
		return ""
	}
	return lines[row]
}

// caretUnderline renders a line of spaces followed by '^' characters spanning the
// offending columns (at least one caret).
func caretUnderline(line string, span Span) string {
	width := span.ColEnd - span.ColStart
	if width < 1 {
		width = 1
	}
	start := span.ColStart
	if start > len(line) {
		start = len(line)
	}
	return strings.Repeat(" ", start) + strings.Repeat("^", width)
}

// NewError builds a diagnostic without source context.
func NewError(kind ErrorKind, span Span, message string) *Error {
	return &Error{Kind: kind, Message: message, Span: span}
}

// ErrorList collects every parse error seen during a single pass: the parser never stops at
// the first failure.
type ErrorList struct {
	Errors   []*Error
	Filename string
	Source   string
}

func (el *ErrorList) Add(kind ErrorKind, span Span, message string) {
	el.Errors = append(el.Errors, &Error{
		Kind:     kind,
		Message:  message,
		Span:     span,
		Source:   el.Source,
		Filename: el.Filename,
	})
}

func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Error implements the error interface by concatenating every collected diagnostic.
func (el *ErrorList) Error() string {
	var sb strings.Builder
	for _, e := range el.Errors {
		sb.WriteString(e.Error())
	}
	return sb.String()
}
