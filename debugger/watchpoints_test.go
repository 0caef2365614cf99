package debugger

import (
	"testing"

	"github.com/bitbox-lang/bitbox/vm"
)

func TestWatchpointManager_AddRegisterWatch(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.AddRegisterWatch("%0", 0)

	if wp == nil {
		t.Fatal("AddRegisterWatch returned nil")
	}
	if wp.ID != 1 {
		t.Errorf("Expected ID 1, got %d", wp.ID)
	}
	if wp.Kind != WatchRegister {
		t.Errorf("Wrong watchpoint kind: got %d, want %d", wp.Kind, WatchRegister)
	}
	if wp.Expression != "%0" {
		t.Errorf("Expression = %s, want %%0", wp.Expression)
	}
	if !wp.Enabled {
		t.Error("Watchpoint should be enabled by default")
	}
	if wp.HitCount != 0 {
		t.Errorf("Initial hit count should be 0, got %d", wp.HitCount)
	}
}

func TestWatchpointManager_AddMultiple(t *testing.T) {
	wm := NewWatchpointManager()

	wp1 := wm.AddRegisterWatch("%0", 0)
	wp2 := wm.AddHeapWatch("[0x1000]", 0x1000, 8)

	if wp1.ID == wp2.ID {
		t.Error("Watchpoint IDs should be unique")
	}
	if wm.Count() != 2 {
		t.Errorf("Expected 2 watchpoints, got %d", wm.Count())
	}
}

func TestWatchpointManager_DeleteWatchpoint(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.AddRegisterWatch("%0", 0)

	if err := wm.DeleteWatchpoint(wp.ID); err != nil {
		t.Fatalf("DeleteWatchpoint failed: %v", err)
	}
	if wm.GetWatchpoint(wp.ID) != nil {
		t.Error("Watchpoint not deleted")
	}
	if err := wm.DeleteWatchpoint(999); err == nil {
		t.Error("Expected error when deleting non-existent watchpoint")
	}
}

func TestWatchpointManager_EnableDisable(t *testing.T) {
	wm := NewWatchpointManager()

	wp := wm.AddRegisterWatch("%0", 0)

	if err := wm.DisableWatchpoint(wp.ID); err != nil {
		t.Fatalf("DisableWatchpoint failed: %v", err)
	}
	if wp.Enabled {
		t.Error("Watchpoint not disabled")
	}

	if err := wm.EnableWatchpoint(wp.ID); err != nil {
		t.Fatalf("EnableWatchpoint failed: %v", err)
	}
	if !wp.Enabled {
		t.Error("Watchpoint not enabled")
	}
}

func TestWatchpointManager_CheckWatchpoints_Register(t *testing.T) {
	wm := NewWatchpointManager()
	machine := vm.New(nil, 0)

	wp := wm.AddRegisterWatch("%0", 0)

	machine.Registers.Set(0, 100)
	if err := wm.InitializeWatchpoint(wp.ID, machine); err != nil {
		t.Fatalf("InitializeWatchpoint failed: %v", err)
	}
	if wp.LastValue != 100 {
		t.Errorf("LastValue = %d, want 100", wp.LastValue)
	}

	triggered, changed := wm.CheckWatchpoints(machine)
	if triggered != nil || changed {
		t.Error("Should not trigger when value hasn't changed")
	}

	machine.Registers.Set(0, 200)
	triggered, changed = wm.CheckWatchpoints(machine)
	if triggered == nil || !changed {
		t.Fatal("Should trigger when value changes")
	}
	if triggered.ID != wp.ID {
		t.Errorf("Wrong watchpoint triggered: got %d, want %d", triggered.ID, wp.ID)
	}
	if wp.HitCount != 1 {
		t.Errorf("Hit count = %d, want 1", wp.HitCount)
	}
	if wp.LastValue != 200 {
		t.Errorf("LastValue not updated: got %d, want 200", wp.LastValue)
	}
}

func TestWatchpointManager_CheckWatchpoints_Heap(t *testing.T) {
	wm := NewWatchpointManager()
	machine := vm.New(nil, 0)
	machine.Heap.Grow(16)

	addr := uint64(8)
	wp := wm.AddHeapWatch("[8:4]", addr, 4)

	if err := machine.Heap.StoreWidth(addr, 4, 0x12345678); err != nil {
		t.Fatalf("StoreWidth failed: %v", err)
	}
	if err := wm.InitializeWatchpoint(wp.ID, machine); err != nil {
		t.Fatalf("InitializeWatchpoint failed: %v", err)
	}

	triggered, changed := wm.CheckWatchpoints(machine)
	if triggered != nil || changed {
		t.Error("Should not trigger when value hasn't changed")
	}

	if err := machine.Heap.StoreWidth(addr, 4, 0xABCDEF00); err != nil {
		t.Fatalf("StoreWidth failed: %v", err)
	}
	triggered, changed = wm.CheckWatchpoints(machine)
	if triggered == nil || !changed {
		t.Fatal("Should trigger when value changes")
	}
	if triggered.ID != wp.ID {
		t.Errorf("Wrong watchpoint triggered: got %d, want %d", triggered.ID, wp.ID)
	}
}

func TestWatchpointManager_Disabled(t *testing.T) {
	wm := NewWatchpointManager()
	machine := vm.New(nil, 0)

	wp := wm.AddRegisterWatch("%0", 0)
	_ = wm.InitializeWatchpoint(wp.ID, machine)
	_ = wm.DisableWatchpoint(wp.ID)

	machine.Registers.Set(0, 100)

	triggered, _ := wm.CheckWatchpoints(machine)
	if triggered != nil {
		t.Error("Disabled watchpoint should not trigger")
	}
}

func TestWatchpointManager_GetAllWatchpoints(t *testing.T) {
	wm := NewWatchpointManager()

	wm.AddRegisterWatch("%0", 0)
	wm.AddRegisterWatch("%1", 1)
	wm.AddHeapWatch("[0x1000]", 0x1000, 8)

	all := wm.GetAllWatchpoints()
	if len(all) != 3 {
		t.Errorf("Expected 3 watchpoints, got %d", len(all))
	}
}

func TestWatchpointManager_Clear(t *testing.T) {
	wm := NewWatchpointManager()

	wm.AddRegisterWatch("%0", 0)
	wm.AddRegisterWatch("%1", 1)

	wm.Clear()
	if wm.Count() != 0 {
		t.Errorf("Expected 0 watchpoints after clear, got %d", wm.Count())
	}
}

func TestWatchpoint_Kinds(t *testing.T) {
	wm := NewWatchpointManager()

	wpReg := wm.AddRegisterWatch("%0", 0)
	wpHeap := wm.AddHeapWatch("[0x10]", 0x10, 8)

	if wpReg.Kind != WatchRegister {
		t.Error("Wrong kind for register watchpoint")
	}
	if wpHeap.Kind != WatchHeap {
		t.Error("Wrong kind for heap watchpoint")
	}
}

func TestWatchpointManager_HeapReadOutOfBounds(t *testing.T) {
	wm := NewWatchpointManager()
	machine := vm.New(nil, 0)

	wp := wm.AddHeapWatch("[0x1000]", 0x1000, 8)

	if err := wm.InitializeWatchpoint(wp.ID, machine); err == nil {
		t.Error("InitializeWatchpoint should fail reading an ungrown heap address")
	}
}
