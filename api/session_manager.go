package api

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitbox-lang/bitbox/loader"
	"github.com/bitbox-lang/bitbox/service"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyExists is returned when trying to create a session with an existing ID
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Session represents an active VM session
type Session struct {
	ID        string
	Service   *service.DebuggerService
	CreatedAt time.Time
	Output    *EventWriter // nil when the server has no broadcaster
}

// ErrTooManySessions is returned by CreateSession once the configured session cap is reached.
var ErrTooManySessions = errors.New("maximum session count reached")

// SessionManager manages multiple VM sessions behind a single RWMutex, keyed by
// crypto/rand-derived session IDs. BitBox's VM has no filesystem syscall, so a session has
// no root directory to sandbox.
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	maxSessions int // 0 means unbounded
	mu          sync.RWMutex
}

// NewSessionManager creates a session manager with no session cap.
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return NewSessionManagerWithLimit(broadcaster, 0)
}

// NewSessionManagerWithLimit creates a session manager that refuses new sessions past
// maxSessions (bbconfig.Config.Server.MaxSessions); 0 or negative means unbounded.
func NewSessionManagerWithLimit(broadcaster *Broadcaster, maxSessions int) *SessionManager {
	if maxSessions < 0 {
		maxSessions = 0
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
		maxSessions: maxSessions,
	}
}

// CreateSession assembles opts.Source or decodes opts.Image, loads the result into a fresh
// VM, and registers a session wrapping it. Exactly one of Source/Image must be set.
func (sm *SessionManager) CreateSession(opts SessionCreateRequest) (*Session, error) {
	if sm.maxSessions > 0 && sm.Count() >= sm.maxSessions {
		return nil, ErrTooManySessions
	}

	img, symbols, sourceMap, entryOffset, err := sm.buildImage(opts)
	if err != nil {
		return nil, err
	}

	machine, err := loader.LoadImage(img, opts.Argv)
	if err != nil {
		return nil, err
	}

	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	var output *EventWriter
	if sm.broadcaster != nil {
		output = NewEventWriter(sm.broadcaster, sessionID, "stdout")
		machine.Stdout = output
	}

	debugService := service.NewDebuggerService(machine)
	debugService.LoadDebugInfo(symbols, sourceMap, entryOffset)

	session := &Session{
		ID:        sessionID,
		Service:   debugService,
		CreatedAt: time.Now(),
		Output:    output,
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, ErrSessionAlreadyExists
	}
	sm.sessions[sessionID] = session
	return session, nil
}

func (sm *SessionManager) buildImage(opts SessionCreateRequest) (img []byte, symbols map[string]uint32, sourceMap map[uint32]string, entryOffset uint32, err error) {
	switch {
	case opts.Source != "":
		var info *loader.DebugInfo
		img, info, err = loader.AssembleSourceWithDebugInfo(opts.Source, "session")
		if err != nil {
			return nil, nil, nil, 0, err
		}
		symbols, sourceMap = info.Symbols, info.SourceMap
		return img, symbols, sourceMap, entryOffsetOf(symbols), nil
	case opts.Image != "":
		img, err = base64.StdEncoding.DecodeString(opts.Image)
		if err != nil {
			return nil, nil, nil, 0, fmt.Errorf("decoding image: %w", err)
		}
		return img, nil, nil, 0, nil
	default:
		return nil, nil, nil, 0, errors.New("session requires either source or image")
	}
}

// entryOffsetOf looks up the conventional "main" entry label so the debugger's reset command
// can rewind to it; sessions built from a pre-built image have no debug info to draw this
// from and reset to offset 0 instead.
func entryOffsetOf(symbols map[string]uint32) uint32 {
	return symbols["main"]
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession removes a session by ID
func (sm *SessionManager) DestroySession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; !exists {
		return ErrSessionNotFound
	}
	delete(sm.sessions, sessionID)
	return nil
}

// ListSessions returns a list of all session IDs
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// generateSessionID generates a unique session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
