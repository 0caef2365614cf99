package debugger

import (
	"fmt"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/bitbox-lang/bitbox/vm"
)

// GUI is the fyne-based graphical debugger front end, with register/heap/stack panels built
// around BitBox's 32-register file, byte-addressable heap, and shared value stack.
type GUI struct {
	Debugger *Debugger
	App      fyne.App
	Window   fyne.Window

	SourceView      *widget.TextGrid
	RegisterView    *widget.TextGrid
	HeapView        *widget.TextGrid
	StackView       *widget.TextGrid
	BreakpointsList *widget.List
	ConsoleOutput   *widget.TextGrid
	StatusLabel     *widget.Label

	Toolbar *widget.Toolbar

	HeapAddress uint64
	Running     bool

	SourceLines []string
	SourceFile  string

	breakpoints []string

	consoleBuffer strings.Builder
	consoleMutex  sync.Mutex
}

// guiWriter redirects VM stdout to the GUI console panel.
type guiWriter struct {
	gui *GUI
}

func (w *guiWriter) Write(p []byte) (n int, err error) {
	w.gui.consoleMutex.Lock()
	defer w.gui.consoleMutex.Unlock()

	w.gui.consoleBuffer.Write(p)
	w.gui.updateConsole()
	return len(p), nil
}

// RunGUI runs the graphical debugger until the window is closed.
func RunGUI(dbg *Debugger) error {
	gui := newGUI(dbg)
	gui.Window.ShowAndRun()
	return nil
}

func newGUI(debugger *Debugger) *GUI {
	myApp := app.New()
	myWindow := myApp.NewWindow("BitBox Debugger")

	gui := &GUI{
		Debugger:    debugger,
		App:         myApp,
		Window:      myWindow,
		HeapAddress: 0,
		Running:     false,
		breakpoints: []string{},
	}

	gui.initializeViews()
	gui.buildLayout()
	gui.setupToolbar()

	debugger.VM.Stdout = &guiWriter{gui: gui}

	myWindow.Resize(fyne.NewSize(1400, 900))

	return gui
}

func (g *GUI) initializeViews() {
	g.SourceView = widget.NewTextGrid()
	g.SourceView.SetText("No source file loaded")

	g.RegisterView = widget.NewTextGrid()
	g.updateRegisters()

	g.HeapView = widget.NewTextGrid()
	g.updateHeap()

	g.StackView = widget.NewTextGrid()
	g.updateStack()

	g.breakpoints = []string{}
	g.BreakpointsList = widget.NewList(
		func() int {
			return len(g.breakpoints)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			obj.(*widget.Label).SetText(g.breakpoints[id])
		},
	)

	g.ConsoleOutput = widget.NewTextGrid()
	g.ConsoleOutput.SetText("")

	g.StatusLabel = widget.NewLabel("Ready")
}

func (g *GUI) buildLayout() {
	sourcePanel := container.NewBorder(
		widget.NewLabel("Source"),
		nil, nil, nil,
		container.NewScroll(g.SourceView),
	)

	registerPanel := container.NewBorder(
		widget.NewLabel("Registers"),
		nil, nil, nil,
		container.NewScroll(g.RegisterView),
	)

	heapPanel := container.NewBorder(
		widget.NewLabel("Heap"),
		nil, nil, nil,
		container.NewScroll(g.HeapView),
	)

	stackPanel := container.NewBorder(
		widget.NewLabel("Value Stack"),
		nil, nil, nil,
		container.NewScroll(g.StackView),
	)

	breakpointsPanel := container.NewBorder(
		widget.NewLabel("Breakpoints"),
		nil, nil, nil,
		container.NewScroll(g.BreakpointsList),
	)

	consolePanel := container.NewBorder(
		widget.NewLabel("Console Output"),
		nil, nil, nil,
		container.NewScroll(g.ConsoleOutput),
	)

	leftPanel := container.NewMax(sourcePanel)

	rightTop := container.NewVSplit(registerPanel, breakpointsPanel)
	rightTop.SetOffset(0.6)

	bottomTabs := container.NewAppTabs(
		container.NewTabItem("Heap", heapPanel),
		container.NewTabItem("Stack", stackPanel),
		container.NewTabItem("Console", consolePanel),
	)

	rightPanel := container.NewVSplit(rightTop, bottomTabs)
	rightPanel.SetOffset(0.5)

	mainSplit := container.NewHSplit(leftPanel, rightPanel)
	mainSplit.SetOffset(0.55)

	statusBar := container.NewBorder(nil, nil, nil, nil, g.StatusLabel)

	content := container.NewBorder(
		g.Toolbar,
		statusBar,
		nil,
		nil,
		mainSplit,
	)

	g.Window.SetContent(content)
}

func (g *GUI) setupToolbar() {
	g.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), func() {
			g.runProgram()
		}),
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), func() {
			g.stepProgram()
		}),
		widget.NewToolbarAction(theme.MediaFastForwardIcon(), func() {
			g.continueProgram()
		}),
		widget.NewToolbarAction(theme.MediaStopIcon(), func() {
			g.stopProgram()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentAddIcon(), func() {
			g.addBreakpoint()
		}),
		widget.NewToolbarAction(theme.ContentClearIcon(), func() {
			g.clearBreakpoints()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			g.refreshViews()
		}),
	)
}

func (g *GUI) updateViews() {
	g.updateSource()
	g.updateRegisters()
	g.updateHeap()
	g.updateStack()
	g.updateBreakpoints()
	g.updateConsole()
}

func (g *GUI) updateSource() {
	currentPC := g.Debugger.VM.PC()

	if len(g.SourceLines) > 0 {
		var sb strings.Builder

		currentSourceLine := ""
		if g.Debugger.SourceMap != nil {
			if line, ok := g.Debugger.SourceMap[currentPC]; ok {
				currentSourceLine = line
			}
		}

		for i, line := range g.SourceLines {
			prefix := "  "
			if line == currentSourceLine {
				prefix = "> "
			}
			sb.WriteString(fmt.Sprintf("%s%4d: %s\n", prefix, i+1, line))
		}
		g.SourceView.SetText(sb.String())
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Current pc: 0x%08X\n\n", currentPC))
	if source, ok := g.Debugger.SourceMap[currentPC]; ok {
		sb.WriteString(fmt.Sprintf("> %s\n", source))
	} else {
		sb.WriteString("No source mapping available\n")
	}
	g.SourceView.SetText(sb.String())
}

func (g *GUI) updateRegisters() {
	var sb strings.Builder

	regs := g.Debugger.VM.Registers

	sb.WriteString("Registers:\n")
	sb.WriteString("----------\n")
	for i := 0; i < RegisterViewRows*RegisterGroupSize && i < 32; i++ {
		v := regs.Get(uint8(i))
		sb.WriteString(fmt.Sprintf("%%%d: 0x%016X  (%d)\n", i, v, v))
	}
	sb.WriteString(fmt.Sprintf("\npc:  0x%08X\n", g.Debugger.VM.PC()))

	g.RegisterView.SetText(sb.String())
}

func (g *GUI) updateHeap() {
	var sb strings.Builder

	addr := g.HeapAddress
	addr &^= uint64(HeapDisplayColumns - 1)

	sb.WriteString(fmt.Sprintf("Heap at 0x%08X  (length %d):\n", addr, g.Debugger.VM.Heap.Len()))
	sb.WriteString("--------------------------------------------------\n")

	for i := 0; i < HeapDisplayRows; i++ {
		lineAddr := addr + uint64(i*HeapDisplayColumns)
		sb.WriteString(fmt.Sprintf("%08X: ", lineAddr))

		var ascii strings.Builder
		for j := 0; j < HeapDisplayColumns; j++ {
			byteAddr := lineAddr + uint64(j)
			b, err := g.Debugger.VM.Heap.LoadWidth(byteAddr, 1)
			if err == nil {
				sb.WriteString(fmt.Sprintf("%02X ", byte(b)))
				if b >= 32 && b < 127 {
					ascii.WriteByte(byte(b))
				} else {
					ascii.WriteByte('.')
				}
			} else {
				sb.WriteString("?? ")
				ascii.WriteByte('?')
			}
		}

		sb.WriteString(" " + ascii.String() + "\n")
	}

	g.HeapView.SetText(sb.String())
}

func (g *GUI) updateStack() {
	var sb strings.Builder

	stack := g.Debugger.VM.Stack

	sb.WriteString(fmt.Sprintf("Value stack (depth %d):\n", len(stack)))
	sb.WriteString("-------------------------------\n")

	shown := 0
	for i := len(stack) - 1; i >= 0 && shown < StackDisplayCells; i-- {
		prefix := "  "
		if i == len(stack)-1 {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s[%d]: 0x%016X  (%d)\n", prefix, len(stack)-1-i, stack[i], stack[i]))
		shown++
	}

	g.StackView.SetText(sb.String())
}

func (g *GUI) updateBreakpoints() {
	breakpoints := g.Debugger.Breakpoints.GetAllBreakpoints()
	g.breakpoints = make([]string, 0, len(breakpoints))

	for _, bp := range breakpoints {
		symbol := ""
		if g.Debugger.Symbols != nil {
			for name, addr := range g.Debugger.Symbols {
				if addr == bp.Address {
					symbol = fmt.Sprintf(" [%s]", name)
					break
				}
			}
		}

		status := "enabled"
		if !bp.Enabled {
			status = "disabled"
		}

		g.breakpoints = append(g.breakpoints, fmt.Sprintf("0x%08X%s (%s)", bp.Address, symbol, status))
	}

	g.BreakpointsList.Refresh()
}

func (g *GUI) updateConsole() {
	g.consoleMutex.Lock()
	defer g.consoleMutex.Unlock()

	g.ConsoleOutput.SetText(g.consoleBuffer.String())
}

// runProgram starts execution in a background goroutine so the UI stays responsive,
// stopping at the first breakpoint/watchpoint hit, halt, or runtime error.
func (g *GUI) runProgram() {
	g.StatusLabel.SetText("Running...")
	g.Running = true

	go func() {
		for g.Running && g.Debugger.VM.State == vm.StateRunning {
			if err := g.Debugger.VM.Step(); err != nil {
				g.Running = false
				g.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
				g.updateViews()
				break
			}

			if shouldBreak, reason := g.Debugger.ShouldBreak(); shouldBreak {
				g.Running = false
				g.StatusLabel.SetText(fmt.Sprintf("Stopped: %s at pc=0x%08X", reason, g.Debugger.VM.PC()))
				g.updateViews()
				break
			}

			if g.Debugger.VM.State == vm.StateHalted {
				g.Running = false
				g.StatusLabel.SetText("Program halted")
				g.updateViews()
				break
			}
		}
	}()
}

func (g *GUI) stepProgram() {
	if g.Debugger.VM.State == vm.StateHalted {
		g.StatusLabel.SetText("Program has halted")
		return
	}

	if err := g.Debugger.VM.Step(); err != nil {
		g.StatusLabel.SetText(fmt.Sprintf("Error: %v", err))
		g.updateViews()
		return
	}

	if g.Debugger.VM.State == vm.StateHalted {
		g.StatusLabel.SetText("Program halted")
	} else {
		g.StatusLabel.SetText(fmt.Sprintf("Stepped to pc=0x%08X", g.Debugger.VM.PC()))
	}

	g.updateViews()
}

func (g *GUI) continueProgram() {
	g.runProgram()
}

func (g *GUI) stopProgram() {
	g.Running = false
	g.StatusLabel.SetText("Stopped")
	g.updateViews()
}

func (g *GUI) addBreakpoint() {
	pc := g.Debugger.VM.PC()
	g.Debugger.Breakpoints.AddBreakpoint(pc, false, "")
	g.updateBreakpoints()
	g.StatusLabel.SetText(fmt.Sprintf("Breakpoint added at 0x%08X", pc))
}

func (g *GUI) clearBreakpoints() {
	g.Debugger.Breakpoints.Clear()
	g.updateBreakpoints()
	g.StatusLabel.SetText("All breakpoints cleared")
}

func (g *GUI) refreshViews() {
	g.updateViews()
	g.StatusLabel.SetText("Views refreshed")
}
