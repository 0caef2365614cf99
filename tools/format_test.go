package tools

import (
	"strings"
	"testing"
)

const sampleSource = `.entry main
main:
  load[u64] %0 10
  push[u64] %0
  pop[u64] %1
  hult
`

func TestFormat_BasicInstruction(t *testing.T) {
	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if !strings.Contains(result, ".entry main") {
		t.Errorf("expected entry directive in output, got: %s", result)
	}
	if !strings.Contains(result, "load[u64] %0 10") {
		t.Errorf("expected formatted load instruction, got: %s", result)
	}
}

func TestFormat_WithLabel(t *testing.T) {
	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) < 2 || lines[1] != "main:" {
		t.Errorf("expected second line to be the label, got lines: %v", lines)
	}
}

func TestFormat_IndentsInstructions(t *testing.T) {
	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	for _, line := range strings.Split(result, "\n") {
		if strings.HasPrefix(line, "load") || strings.HasPrefix(line, "hult") {
			if !strings.HasPrefix(line, "  ") {
				t.Errorf("expected instruction line to be indented, got %q", line)
			}
		}
	}
}

func TestFormat_CompactStyleHasNoIndentation(t *testing.T) {
	formatter := NewFormatter(CompactFormatOptions())
	result, err := formatter.Format(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	for _, line := range strings.Split(result, "\n") {
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, " ") {
			t.Errorf("expected no leading whitespace in compact mode, got %q", line)
		}
	}
}

func TestFormat_NoArgsInstructionHasNoTypeBracket(t *testing.T) {
	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}

	if strings.Contains(result, "hult[") {
		t.Errorf("hult takes no type, should have no bracket, got: %s", result)
	}
}

func TestFormat_LabelTargetsRenderWithoutRegisterSigil(t *testing.T) {
	source := ".entry main\nmain:\n  call loop\nloop:\n  hult\n"
	formatter := NewFormatter(DefaultFormatOptions())
	result, err := formatter.Format(source, "test.bb")
	if err != nil {
		t.Fatalf("Format error: %v", err)
	}
	if !strings.Contains(result, "call loop") {
		t.Errorf("expected call target rendered as bare label name, got: %s", result)
	}
}

func TestFormat_InvalidSourceReturnsError(t *testing.T) {
	formatter := NewFormatter(DefaultFormatOptions())
	_, err := formatter.Format("add %0 %1 %2\n", "test.bb")
	if err == nil {
		t.Fatal("expected error for a program with no .entry directive")
	}
}

func TestFormatString_UsesDefaultOptions(t *testing.T) {
	result, err := FormatString(sampleSource, "test.bb")
	if err != nil {
		t.Fatalf("FormatString error: %v", err)
	}
	if !strings.Contains(result, ".entry main") {
		t.Errorf("expected entry directive, got: %s", result)
	}
}

func TestFormatStringWithStyle_Expanded(t *testing.T) {
	result, err := FormatStringWithStyle(sampleSource, "test.bb", FormatExpanded)
	if err != nil {
		t.Fatalf("FormatStringWithStyle error: %v", err)
	}
	if !strings.Contains(result, "    load") {
		t.Errorf("expected 4-space indent in expanded style, got: %s", result)
	}
}
