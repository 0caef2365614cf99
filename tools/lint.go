package tools

import (
	"fmt"
	"sort"

	"github.com/bitbox-lang/bitbox/instr"
	"github.com/bitbox-lang/bitbox/parser"
)

// LintLevel is the severity of a lint finding.
type LintLevel int

const (
	LintError LintLevel = iota
	LintWarning
	LintInfo
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	case LintInfo:
		return "info"
	default:
		return "unknown"
	}
}

// LintIssue is a single finding, with a stable code so tooling can filter by kind.
type LintIssue struct {
	Level   LintLevel
	Row     int
	Col     int
	Message string
	Code    string
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("%d:%d: %s: %s [%s]", i.Row+1, i.Col+1, i.Level, i.Message, i.Code)
}

// LintOptions controls which checks run.
type LintOptions struct {
	Strict      bool // treat warnings as errors
	CheckUnused bool // flag labels defined but never referenced by call/jne
	CheckUnreachable bool // flag instructions after hult/return with no intervening label
}

// DefaultLintOptions enables every non-strict check.
func DefaultLintOptions() *LintOptions {
	return &LintOptions{Strict: false, CheckUnused: true, CheckUnreachable: true}
}

// Linter analyzes a parsed BitBox program for issues beyond what the parser itself rejects.
// BitBox's assembler, not the parser, is what actually resolves labels, so "undefined label"
// here is a second, earlier opinion offered before assembly — useful for an
// editor-integration use case that wants diagnostics without a full assemble.
type Linter struct {
	options *LintOptions
	issues  []*LintIssue
}

func NewLinter(options *LintOptions) *Linter {
	if options == nil {
		options = DefaultLintOptions()
	}
	return &Linter{options: options}
}

// Lint parses input and returns every issue found, sorted by source position.
func (l *Linter) Lint(input, filename string) []*LintIssue {
	l.issues = nil

	p, lexErr := parser.NewParser(input, filename)
	if lexErr != nil {
		l.issues = append(l.issues, &LintIssue{Level: LintError, Row: lexErr.Span.RowStart, Col: lexErr.Span.ColStart, Message: lexErr.Message, Code: "LEX_ERROR"})
		return l.issues
	}

	program, errs := p.Parse()
	if errs != nil {
		for _, perr := range errs.Errors {
			l.issues = append(l.issues, &LintIssue{Level: LintError, Row: perr.Span.RowStart, Col: perr.Span.ColStart, Message: perr.Message, Code: "PARSE_ERROR"})
		}
		return l.issues
	}

	defined, referenced := l.collectLabels(program)
	l.checkUndefinedLabels(defined, referenced)
	if l.options.CheckUnused {
		l.checkUnusedLabels(program, referenced)
	}
	if l.options.CheckUnreachable {
		l.checkUnreachableCode(program)
	}

	sort.Slice(l.issues, func(i, j int) bool {
		if l.issues[i].Row == l.issues[j].Row {
			return l.issues[i].Col < l.issues[j].Col
		}
		return l.issues[i].Row < l.issues[j].Row
	})
	return l.issues
}

func (l *Linter) collectLabels(program *parser.Program) (defined map[string]parser.Span, referenced map[string][]parser.Span) {
	defined = make(map[string]parser.Span)
	referenced = make(map[string][]parser.Span)

	for _, item := range program.Items {
		if item.Label != nil {
			defined[item.Label.Name] = item.Label.Span
		}
		switch item.Instr.Op.Form() {
		case instr.FormLabel, instr.FormReg2Label:
			referenced[item.Instr.Label] = append(referenced[item.Instr.Label], item.Instr.Span)
		}
	}
	if program.HasEntry {
		referenced[program.EntryName] = append(referenced[program.EntryName], program.EntrySpan)
	}
	return defined, referenced
}

func (l *Linter) checkUndefinedLabels(defined map[string]parser.Span, referenced map[string][]parser.Span) {
	for name, spans := range referenced {
		if _, ok := defined[name]; ok {
			continue
		}
		for _, span := range spans {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintError,
				Row:     span.RowStart,
				Col:     span.ColStart,
				Message: fmt.Sprintf("label %q is never defined", name),
				Code:    "UNDEF_LABEL",
			})
		}
	}
}

func (l *Linter) checkUnusedLabels(program *parser.Program, referenced map[string][]parser.Span) {
	for _, item := range program.Items {
		if item.Label == nil {
			continue
		}
		if item.Label.Name == program.EntryName {
			continue
		}
		if len(referenced[item.Label.Name]) == 0 {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintWarning,
				Row:     item.Label.Span.RowStart,
				Col:     item.Label.Span.ColStart,
				Message: fmt.Sprintf("label %q is defined but never referenced", item.Label.Name),
				Code:    "UNUSED_LABEL",
			})
		}
	}
}

// checkUnreachableCode flags an instruction that immediately follows a hult or return with
// no label in between — nothing can branch into it, so it can never execute.
func (l *Linter) checkUnreachableCode(program *parser.Program) {
	terminated := false
	for _, item := range program.Items {
		if item.Label != nil {
			terminated = false
		}
		if terminated {
			l.issues = append(l.issues, &LintIssue{
				Level:   LintWarning,
				Row:     item.Instr.Span.RowStart,
				Col:     item.Instr.Span.ColStart,
				Message: "unreachable code: no label precedes this instruction",
				Code:    "UNREACHABLE_CODE",
			})
		}
		if item.Instr.Op == instr.Hult || item.Instr.Op == instr.Return {
			terminated = true
		}
	}
}

// HasErrors reports whether any issue is (or, in strict mode, would be treated as) an error.
func (l *Linter) HasErrors() bool {
	for _, issue := range l.issues {
		if issue.Level == LintError || (l.options.Strict && issue.Level == LintWarning) {
			return true
		}
	}
	return false
}
