package debugger

import (
	"strings"
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/bitbox-lang/bitbox/loader"
)

func loadTestVM(t *testing.T, src string) *Debugger {
	t.Helper()

	img, err := loader.AssembleSource(src, "test.bb")
	if err != nil {
		t.Fatalf("failed to assemble test program: %v", err)
	}
	machine, err := loader.LoadImage(img, nil)
	if err != nil {
		t.Fatalf("failed to load image: %v", err)
	}

	return NewDebugger(machine)
}

func TestGUICreation(t *testing.T) {
	dbg := loadTestVM(t, ".entry main\nmain:\n  load[u32] %0 42\n  hult\n")

	gui := newGUI(dbg)
	if gui == nil {
		t.Fatal("GUI creation returned nil")
	}

	if gui.SourceView == nil {
		t.Error("SourceView not initialized")
	}
	if gui.RegisterView == nil {
		t.Error("RegisterView not initialized")
	}
	if gui.HeapView == nil {
		t.Error("HeapView not initialized")
	}
	if gui.StackView == nil {
		t.Error("StackView not initialized")
	}
	if gui.BreakpointsList == nil {
		t.Error("BreakpointsList not initialized")
	}
	if gui.ConsoleOutput == nil {
		t.Error("ConsoleOutput not initialized")
	}
	if gui.Toolbar == nil {
		t.Error("Toolbar not initialized")
	}

	if gui.App != nil {
		gui.App.Quit()
	}
}

func TestGUIViewUpdates(t *testing.T) {
	dbg := loadTestVM(t, ".entry main\nmain:\n  load[u32] %0 5\n  load[u32] %1 10\n  add[u32] %2 %0 %1\n  hult\n")

	gui := newGUI(dbg)
	defer gui.App.Quit()

	gui.updateRegisters()
	gui.updateHeap()
	gui.updateStack()
	gui.updateBreakpoints()
	gui.updateSource()

	registerText := gui.RegisterView.Text()
	if len(registerText) == 0 {
		t.Error("Register view is empty")
	}

	heapText := gui.HeapView.Text()
	if len(heapText) == 0 {
		t.Error("Heap view is empty")
	}

	stackText := gui.StackView.Text()
	if len(stackText) == 0 {
		t.Error("Stack view is empty")
	}
}

func TestGUIBreakpointManagement(t *testing.T) {
	dbg := loadTestVM(t, ".entry main\nmain:\n  load[u32] %0 1\n  load[u32] %1 2\n  load[u32] %2 3\n  hult\n")

	gui := newGUI(dbg)
	defer gui.App.Quit()

	if len(gui.breakpoints) != 0 {
		t.Errorf("Expected 0 breakpoints, got %d", len(gui.breakpoints))
	}

	gui.addBreakpoint()
	gui.updateBreakpoints()

	if len(gui.breakpoints) != 1 {
		t.Errorf("Expected 1 breakpoint after adding, got %d", len(gui.breakpoints))
	}

	gui.clearBreakpoints()

	if len(gui.breakpoints) != 0 {
		t.Errorf("Expected 0 breakpoints after clearing, got %d", len(gui.breakpoints))
	}
}

func TestGUIStepExecution(t *testing.T) {
	dbg := loadTestVM(t, ".entry main\nmain:\n  load[u32] %0 42\n  load[u32] %1 100\n  hult\n")

	gui := newGUI(dbg)
	defer gui.App.Quit()

	initialPC := dbg.VM.PC()

	gui.stepProgram()

	if dbg.VM.PC() == initialPC {
		t.Error("pc did not advance after step")
	}

	if dbg.VM.Registers.Get(0) != 42 {
		t.Errorf("Expected %%0=42, got %%0=%d", dbg.VM.Registers.Get(0))
	}
}

func TestGUIWithTestDriver(t *testing.T) {
	dbg := loadTestVM(t, ".entry main\nmain:\n  load[u32] %0 1\n  hult\n")

	testApp := test.NewApp()
	defer testApp.Quit()

	gui := &GUI{
		Debugger:    dbg,
		App:         testApp,
		breakpoints: []string{},
	}

	gui.initializeViews()

	if gui.SourceView == nil {
		t.Error("SourceView not created")
	}
	if gui.RegisterView == nil {
		t.Error("RegisterView not created")
	}

	gui.updateRegisters()
	text := gui.RegisterView.Text()
	if len(text) == 0 {
		t.Error("Register view has no content")
	}

	if !strings.Contains(text, "%0:") {
		t.Error("Register view does not contain %0")
	}
}
