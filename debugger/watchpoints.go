package debugger

import (
	"fmt"
	"sync"

	"github.com/bitbox-lang/bitbox/vm"
)

// WatchKind is the value source a watchpoint polls: a register, or a heap address with an
// explicit byte width.
type WatchKind int

const (
	WatchRegister WatchKind = iota
	WatchHeap
)

// Watchpoint pauses execution whenever its monitored value changes between VM steps.
type Watchpoint struct {
	ID         int
	Kind       WatchKind
	Expression string // original text, e.g. "%3" or "heap[0x10:4]"
	Register   uint8  // meaningful when Kind == WatchRegister
	Address    uint64 // meaningful when Kind == WatchHeap
	Width      int    // heap read width in bytes; meaningful when Kind == WatchHeap
	Enabled    bool
	LastValue  uint64
	HitCount   int
}

// WatchpointManager manages all watchpoints.
type WatchpointManager struct {
	mu          sync.RWMutex
	watchpoints map[int]*Watchpoint
	nextID      int
}

func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{watchpoints: make(map[int]*Watchpoint), nextID: 1}
}

// AddRegisterWatch watches a register for value changes.
func (wm *WatchpointManager) AddRegisterWatch(expression string, reg uint8) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wp := &Watchpoint{ID: wm.nextID, Kind: WatchRegister, Expression: expression, Register: reg, Enabled: true}
	wm.watchpoints[wp.ID] = wp
	wm.nextID++
	return wp
}

// AddHeapWatch watches width bytes of heap starting at address for value changes.
func (wm *WatchpointManager) AddHeapWatch(expression string, address uint64, width int) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wp := &Watchpoint{ID: wm.nextID, Kind: WatchHeap, Expression: expression, Address: address, Width: width, Enabled: true}
	wm.watchpoints[wp.ID] = wp
	wm.nextID++
	return wp
}

func (wm *WatchpointManager) DeleteWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	if _, exists := wm.watchpoints[id]; !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	delete(wm.watchpoints, id)
	return nil
}

func (wm *WatchpointManager) EnableWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.Enabled = true
	return nil
}

func (wm *WatchpointManager) DisableWatchpoint(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.Enabled = false
	return nil
}

func (wm *WatchpointManager) GetWatchpoint(id int) *Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.watchpoints[id]
}

func (wm *WatchpointManager) GetAllWatchpoints() []*Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	result := make([]*Watchpoint, 0, len(wm.watchpoints))
	for _, wp := range wm.watchpoints {
		result = append(result, wp)
	}
	return result
}

func (wm *WatchpointManager) readValue(wp *Watchpoint, machine *vm.VM) (uint64, error) {
	if wp.Kind == WatchRegister {
		return machine.Registers.Get(wp.Register), nil
	}
	return machine.Heap.LoadWidth(wp.Address, wp.Width)
}

// CheckWatchpoints polls every enabled watchpoint and returns the first whose value changed
// since the last check. Heap reads that fail (address not yet allocated) are skipped rather
// than treated as a trigger.
func (wm *WatchpointManager) CheckWatchpoints(machine *vm.VM) (*Watchpoint, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, wp := range wm.watchpoints {
		if !wp.Enabled {
			continue
		}
		current, err := wm.readValue(wp, machine)
		if err != nil {
			continue
		}
		if current != wp.LastValue {
			wp.HitCount++
			wp.LastValue = current
			return wp, true
		}
	}
	return nil, false
}

// InitializeWatchpoint primes LastValue so the first CheckWatchpoints call after creation
// doesn't spuriously fire on the gap between zero-value and the register/heap's actual value.
func (wm *WatchpointManager) InitializeWatchpoint(id int, machine *vm.VM) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	value, err := wm.readValue(wp, machine)
	if err != nil {
		return fmt.Errorf("failed to initialize watchpoint: %w", err)
	}
	wp.LastValue = value
	return nil
}

func (wm *WatchpointManager) Clear() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.watchpoints = make(map[int]*Watchpoint)
}

func (wm *WatchpointManager) Count() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.watchpoints)
}
