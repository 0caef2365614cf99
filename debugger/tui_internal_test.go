package debugger

import (
	"testing"
	"time"

	"github.com/bitbox-lang/bitbox/vm"
	"github.com/gdamore/tcell/v2"
)

// executeCommand and handleCommand run synchronously here (unlike a UI framework that
// defers work to a redraw loop), so these tests just confirm they return promptly instead
// of ever blocking on VM or command-history state.
func TestExecuteCommandAsync(t *testing.T) {
	machine := vm.New(nil, 0)
	dbg := NewDebugger(machine)
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init simulation screen: %v", err)
	}
	defer screen.Fini()

	tui := NewTUIWithScreen(dbg, screen)

	done := make(chan bool, 1)
	go func() {
		tui.executeCommand("help")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second * 2):
		t.Fatal("executeCommand blocked for more than 2 seconds - deadlock detected")
	}
}

func TestHandleCommandAsync(t *testing.T) {
	machine := vm.New(nil, 0)
	dbg := NewDebugger(machine)
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("failed to init simulation screen: %v", err)
	}
	defer screen.Fini()

	tui := NewTUIWithScreen(dbg, screen)

	tui.CommandInput.SetText("help")

	done := make(chan bool, 1)
	go func() {
		tui.handleCommand(tcell.KeyEnter)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Millisecond * 500):
		t.Fatal("handleCommand blocked for more than 500ms")
	}
}
