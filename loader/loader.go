// Package loader turns raw image bytes (or assembly source) into a ready-to-run VM: it
// validates the image header and seeds the VM's heap/registers from argv.
package loader

import (
	"fmt"
	"os"
	"strings"

	"github.com/bitbox-lang/bitbox/assembler"
	"github.com/bitbox-lang/bitbox/image"
	"github.com/bitbox-lang/bitbox/parser"
	"github.com/bitbox-lang/bitbox/vm"
)

// AssembleSource lexes, parses, and assembles a BitBox source file into image bytes. A
// second .entry directive overrides the first, the same as NewParser's default.
func AssembleSource(source, filename string) ([]byte, error) {
	return AssembleSourceWithMode(source, filename, "override")
}

// AssembleSourceWithMode is AssembleSource with an explicit duplicateEntryMode ("override" or
// "error"), as configured by bbconfig.Config.Assembler.DuplicateEntry.
func AssembleSourceWithMode(source, filename, duplicateEntryMode string) ([]byte, error) {
	p, lexErr := parser.NewParser(source, filename)
	if lexErr != nil {
		return nil, lexErr
	}
	p.SetDuplicateEntryMode(duplicateEntryMode)
	program, errs := p.Parse()
	if errs != nil {
		return nil, errs
	}
	return assembler.New(program).Assemble()
}

// DebugInfo bundles the symbol table and a pc->source-line map produced alongside an
// assembled image, for consumers (the CLI debugger, the session service) that need to map
// a running VM's pc back to the source that produced it.
type DebugInfo struct {
	Symbols   map[string]uint32
	SourceMap map[uint32]string
}

// AssembleSourceWithDebugInfo assembles source exactly as AssembleSource does, additionally
// returning the label table and a source map built from the assembler's first-pass offsets.
func AssembleSourceWithDebugInfo(source, filename string) ([]byte, *DebugInfo, error) {
	return AssembleSourceWithDebugInfoAndMode(source, filename, "override")
}

// AssembleSourceWithDebugInfoAndMode is AssembleSourceWithDebugInfo with an explicit
// duplicateEntryMode ("override" or "error").
func AssembleSourceWithDebugInfoAndMode(source, filename, duplicateEntryMode string) ([]byte, *DebugInfo, error) {
	p, lexErr := parser.NewParser(source, filename)
	if lexErr != nil {
		return nil, nil, lexErr
	}
	p.SetDuplicateEntryMode(duplicateEntryMode)
	program, errs := p.Parse()
	if errs != nil {
		return nil, nil, errs
	}

	asm := assembler.New(program)
	img, err := asm.Assemble()
	if err != nil {
		return nil, nil, err
	}

	lines := strings.Split(source, "\n")
	info := &DebugInfo{
		Symbols:   asm.Symbols().All(),
		SourceMap: make(map[uint32]string, len(program.Items)),
	}

	offsets := asm.InstructionOffsets()
	for i, item := range program.Items {
		row := item.Instr.Span.RowStart
		if row < 0 || row >= len(lines) {
			continue
		}
		info.SourceMap[offsets[i]] = strings.TrimSpace(lines[row])
	}

	return img, info, nil
}

// AssembleFileWithDebugInfo reads and assembles a source file from disk, returning debug
// info alongside the image.
func AssembleFileWithDebugInfo(path string) ([]byte, *DebugInfo, error) {
	return AssembleFileWithDebugInfoAndMode(path, "override")
}

// AssembleFileWithDebugInfoAndMode is AssembleFileWithDebugInfo with an explicit
// duplicateEntryMode ("override" or "error").
func AssembleFileWithDebugInfoAndMode(path, duplicateEntryMode string) ([]byte, *DebugInfo, error) {
	src, err := os.ReadFile(path) // #nosec G304 -- user-supplied source path from the CLI
	if err != nil {
		return nil, nil, fmt.Errorf("reading source file: %w", err)
	}
	return AssembleSourceWithDebugInfoAndMode(string(src), path, duplicateEntryMode)
}

// AssembleFile reads and assembles a source file from disk.
func AssembleFile(path string) ([]byte, error) {
	return AssembleFileWithMode(path, "override")
}

// AssembleFileWithMode is AssembleFile with an explicit duplicateEntryMode ("override" or
// "error").
func AssembleFileWithMode(path, duplicateEntryMode string) ([]byte, error) {
	src, err := os.ReadFile(path) // #nosec G304 -- user-supplied source path from the CLI
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	return AssembleSourceWithMode(string(src), path, duplicateEntryMode)
}

// LoadImage validates an image's header and returns a VM positioned at its entry point,
// ready to Run. argv, if non-empty, is seeded onto the stack before the entry point runs.
func LoadImage(img []byte, argv []string) (*vm.VM, error) {
	header, err := image.Decode(img)
	if err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	machine := vm.New(img, header.EntryOffset)
	if len(argv) > 0 {
		machine.SeedArgv(argv)
	}
	return machine, nil
}

// LoadImageFile reads an image from disk and loads it.
func LoadImageFile(path string, argv []string) (*vm.VM, error) {
	img, err := os.ReadFile(path) // #nosec G304 -- user-supplied image path from the CLI
	if err != nil {
		return nil, fmt.Errorf("reading image file: %w", err)
	}
	return LoadImage(img, argv)
}
