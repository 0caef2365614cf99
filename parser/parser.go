package parser

import (
	"encoding/binary"
	"fmt"

	"github.com/bitbox-lang/bitbox/instr"
)

// Parser turns a token stream into a Program. It tokenizes everything up front, then walks
// the token list building text items, collecting every error it finds instead of stopping at
// the first one.
type Parser struct {
	tokens             []Token
	pos                int
	errors             *ErrorList
	pendingLabel       *LabelDef
	program            Program
	duplicateEntryMode string
}

// NewParser tokenizes source and primes a Parser ready to run Parse. A second .entry
// directive overrides the first by default; call SetDuplicateEntryMode to make it an error
// instead.
func NewParser(source, filename string) (*Parser, *Error) {
	lexer := NewLexer(source, filename)
	tokens, lexErr := lexer.TokenizeAll()
	if lexErr != nil {
		return nil, lexErr
	}
	return &Parser{
		tokens:             tokens,
		errors:             &ErrorList{Filename: filename, Source: source},
		duplicateEntryMode: "override",
	}, nil
}

// SetDuplicateEntryMode controls how a second .entry directive in the same source is
// handled: "override" (default) replaces the earlier entry point silently, "error" raises
// ErrDuplicateEntry instead.
func (p *Parser) SetDuplicateEntryMode(mode string) {
	if mode == "" {
		mode = "override"
	}
	p.duplicateEntryMode = mode
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipDelimiters() {
	for p.cur().Kind == TokenDelimiter {
		p.advance()
	}
}

// syncToNextLine recovers from an error by skipping to just past the next delimiter (or
// EOF), so one bad instruction does not prevent later ones from being checked.
func (p *Parser) syncToNextLine() {
	for p.cur().Kind != TokenDelimiter && p.cur().Kind != TokenEOF {
		p.advance()
	}
	if p.cur().Kind == TokenDelimiter {
		p.advance()
	}
}

func (p *Parser) errorf(kind ErrorKind, span Span, format string, args ...any) {
	p.errors.Add(kind, span, fmt.Sprintf(format, args...))
}

// Parse runs the full top-level grammar and returns the accumulated Program. Failure
// (non-empty error list, or no entry point seen) is signaled by a non-nil *ErrorList as the
// second return value, with a nil Program.
func (p *Parser) Parse() (*Program, *ErrorList) {
	for p.cur().Kind != TokenEOF {
		if p.cur().Kind == TokenDelimiter {
			p.advance()
			continue
		}
		if p.cur().Kind == TokenPeriod {
			p.parseDirective()
			continue
		}
		if p.cur().Kind == TokenIdentifier && p.peek().Kind == TokenColon {
			p.parseLabelDef()
			continue
		}
		if p.cur().Kind == TokenOpcode {
			p.parseInstruction()
			continue
		}
		p.errorf(ErrExpectedIdentifier, p.cur().Span, "unexpected token %s", p.cur().Kind)
		p.syncToNextLine()
	}

	if !p.program.HasEntry {
		p.errorf(ErrMissingEntry, Span{}, "no .entry directive found")
	}

	if p.errors.HasErrors() {
		return nil, p.errors
	}
	return &p.program, nil
}

func (p *Parser) parseDirective() {
	dotSpan := p.advance().Span
	if p.cur().Kind != TokenIdentifier || p.cur().Literal != "entry" {
		p.errorf(ErrUnknownDirective, dotSpan, "unknown directive")
		p.syncToNextLine()
		return
	}
	p.advance() // "entry"
	if p.cur().Kind != TokenIdentifier {
		p.errorf(ErrExpectedIdentifier, p.cur().Span, "expected entry symbol name")
		p.syncToNextLine()
		return
	}
	nameTok := p.advance()
	if p.program.HasEntry && p.duplicateEntryMode == "error" {
		p.errorf(ErrDuplicateEntry, nameTok.Span, "duplicate .entry directive (first was %q)", p.program.EntryName)
		p.expectDelimiter()
		return
	}
	p.program.EntryName = nameTok.Literal
	p.program.EntrySpan = nameTok.Span
	p.program.HasEntry = true
	p.expectDelimiter()
}

func (p *Parser) parseLabelDef() {
	nameTok := p.advance() // identifier
	p.advance()            // ':'
	p.pendingLabel = &LabelDef{Name: nameTok.Literal, Span: nameTok.Span}
}

func (p *Parser) expectDelimiter() {
	if p.cur().Kind == TokenDelimiter || p.cur().Kind == TokenEOF {
		if p.cur().Kind == TokenDelimiter {
			p.advance()
		}
		return
	}
	p.errorf(ErrExpectedDelimiter, p.cur().Span, "expected end of line, found %s", p.cur().Kind)
	p.syncToNextLine()
}

func (p *Parser) expect(kind TokenKind, errKind ErrorKind) (Token, bool) {
	if p.cur().Kind != kind {
		p.errorf(errKind, p.cur().Span, "expected %s, found %s", kind, p.cur().Kind)
		return Token{}, false
	}
	return p.advance(), true
}

// parseType parses the '[' IDENT ']' bracket and resolves it to an instr.Type.
func (p *Parser) parseType() (instr.Type, bool) {
	if _, ok := p.expect(TokenLBracket, ErrExpectedLBracket); !ok {
		return 0, false
	}
	nameTok, ok := p.expect(TokenIdentifier, ErrExpectedIdentifier)
	if !ok {
		return 0, false
	}
	t, ok := instr.LookupType(nameTok.Literal)
	if !ok {
		p.errorf(ErrInvalidImmediateType, nameTok.Span, "unknown type %q", nameTok.Literal)
		return 0, false
	}
	if _, ok := p.expect(TokenRBracket, ErrExpectedRBracket); !ok {
		return 0, false
	}
	return t, true
}

// parseRegister parses '%' NUM and validates the register bound (< 32).
func (p *Parser) parseRegister() (uint8, bool) {
	if _, ok := p.expect(TokenPercent, ErrExpectedPercent); !ok {
		return 0, false
	}
	numTok, ok := p.expect(TokenNumber, ErrExpectedNumber)
	if !ok {
		return 0, false
	}
	if numTok.Number >= instr.NumRegisters {
		p.errorf(ErrRegisterOutOfBounds, numTok.Span, "register %d out of bounds (must be < %d)", numTok.Number, instr.NumRegisters)
		return 0, false
	}
	return uint8(numTok.Number), true
}

func (p *Parser) parseInstruction() {
	opTok := p.advance()
	op := opTok.Opcode
	label := p.pendingLabel
	p.pendingLabel = nil

	inst := Instruction{Op: op, Span: opTok.Span}
	ok := true

	switch op.Form() {
	case instr.FormNoArgs:
		inst.Type = instr.TypeVoid
	case instr.FormReg1:
		inst.Type, ok = p.parseType()
		if ok {
			inst.Regs[0], ok = p.parseRegister()
		}
	case instr.FormReg2:
		inst.Type, ok = p.parseType()
		if ok {
			inst.Regs[0], ok = p.parseRegister()
		}
		if ok {
			inst.Regs[1], ok = p.parseRegister()
		}
	case instr.FormReg3:
		inst.Type, ok = p.parseType()
		if ok {
			inst.Regs[0], ok = p.parseRegister()
		}
		if ok {
			inst.Regs[1], ok = p.parseRegister()
		}
		if ok {
			inst.Regs[2], ok = p.parseRegister()
		}
	case instr.FormImm:
		inst.Type, ok = p.parseType()
		if ok {
			inst.Regs[0], ok = p.parseRegister()
		}
		if ok {
			inst.Imm, ok = p.parseImmediate(inst.Type)
		}
	case instr.FormLabel:
		inst.Type = instr.TypeVoid
		nameTok, got := p.expect(TokenIdentifier, ErrExpectedIdentifier)
		ok = got
		if ok {
			inst.Label = nameTok.Literal
		}
	case instr.FormReg2Label:
		inst.Type = instr.TypeVoid
		inst.Regs[0], ok = p.parseRegister()
		if ok {
			inst.Regs[1], ok = p.parseRegister()
		}
		if ok {
			nameTok, got := p.expect(TokenIdentifier, ErrExpectedIdentifier)
			ok = got
			if ok {
				inst.Label = nameTok.Literal
			}
		}
	}

	if !ok {
		p.syncToNextLine()
		return
	}
	p.expectDelimiter()

	p.program.Items = append(p.program.Items, Text{Label: label, Instr: inst})
}

// parseImmediate parses a bare number literal and encodes it to t's byte width, little-endian.
func (p *Parser) parseImmediate(t instr.Type) ([]byte, bool) {
	numTok, ok := p.expect(TokenNumber, ErrExpectedNumber)
	if !ok {
		return nil, false
	}
	width := t.ByteWidth()
	if width > 8 {
		// 128-bit immediates: low 8 bytes hold the literal, the rest are zero. BitBox
		// literals are parsed as a 64-bit value; wider types simply zero-extend.
		buf := make([]byte, width)
		binary.LittleEndian.PutUint64(buf, numTok.Number)
		return buf, true
	}
	if width < 8 && numTok.Number >= (uint64(1)<<(uint(width)*8)) {
		p.errorf(ErrInvalidImmediateType, numTok.Span, "immediate %d does not fit in %s", numTok.Number, t)
		return nil, false
	}
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, numTok.Number)
	return buf[:width], true
}
