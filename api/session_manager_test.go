package api

import (
	"encoding/base64"
	"testing"

	"github.com/bitbox-lang/bitbox/loader"
)

const sessionTestSrc = `.entry main
main:
  load[u64] %0 1
  load[u64] %1 2
  add[u64] %0 %0 %1
  hult
`

func TestSessionManager_CreateFromSource(t *testing.T) {
	sm := NewSessionManager(nil)

	session, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Error("expected a non-empty session ID")
	}
	if session.Output != nil {
		t.Error("expected nil Output when no broadcaster is configured")
	}
	if _, ok := session.Service.GetSymbols()["main"]; !ok {
		t.Error("expected session symbols to include main")
	}
}

func TestSessionManager_CreateFromImage(t *testing.T) {
	img, err := loader.AssembleSource(sessionTestSrc, "image-test")
	if err != nil {
		t.Fatalf("AssembleSource failed: %v", err)
	}
	encoded := base64.StdEncoding.EncodeToString(img)

	sm := NewSessionManager(nil)
	session, err := sm.CreateSession(SessionCreateRequest{Image: encoded})
	if err != nil {
		t.Fatalf("CreateSession(image) failed: %v", err)
	}
	if session.ID == "" {
		t.Error("expected a non-empty session ID")
	}
	if err := session.Service.Step(); err != nil {
		t.Errorf("expected to step the image-loaded session, got error: %v", err)
	}
}

func TestSessionManager_CreateFromInvalidImage(t *testing.T) {
	sm := NewSessionManager(nil)
	if _, err := sm.CreateSession(SessionCreateRequest{Image: "not-valid-base64!!"}); err == nil {
		t.Error("expected an error for invalid base64 image data")
	}
}

func TestSessionManager_CreateRequiresSourceOrImage(t *testing.T) {
	sm := NewSessionManager(nil)

	if _, err := sm.CreateSession(SessionCreateRequest{}); err == nil {
		t.Error("expected an error when neither source nor image is set")
	}
}

func TestSessionManager_GetAndDestroy(t *testing.T) {
	sm := NewSessionManager(nil)

	session, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := sm.GetSession(session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.ID != session.ID {
		t.Errorf("expected session %s, got %s", session.ID, got.ID)
	}

	if err := sm.DestroySession(session.ID); err != nil {
		t.Fatalf("DestroySession failed: %v", err)
	}
	if _, err := sm.GetSession(session.ID); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after destroy, got %v", err)
	}
}

func TestSessionManager_DestroyUnknownSession(t *testing.T) {
	sm := NewSessionManager(nil)

	if err := sm.DestroySession("nonexistent"); err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionManager_ListAndCount(t *testing.T) {
	sm := NewSessionManager(nil)

	if sm.Count() != 0 {
		t.Fatalf("expected 0 sessions initially, got %d", sm.Count())
	}

	a, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	b, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if sm.Count() != 2 {
		t.Errorf("expected 2 sessions, got %d", sm.Count())
	}

	ids := sm.ListSessions()
	if len(ids) != 2 {
		t.Fatalf("expected 2 session ids, got %d", len(ids))
	}
	seen := map[string]bool{a.ID: false, b.ID: false}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			seen[id] = true
		}
	}
	for id, found := range seen {
		if !found {
			t.Errorf("expected session id %s in list", id)
		}
	}
}

func TestSessionManager_EnforcesMaxSessions(t *testing.T) {
	sm := NewSessionManagerWithLimit(nil, 1)

	if _, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc}); err != ErrTooManySessions {
		t.Errorf("expected ErrTooManySessions once the cap is reached, got %v", err)
	}
}

func TestSessionManager_OutputWiredWhenBroadcasterPresent(t *testing.T) {
	broadcaster := NewBroadcaster()
	defer broadcaster.Close()

	sm := NewSessionManager(broadcaster)
	session, err := sm.CreateSession(SessionCreateRequest{Source: sessionTestSrc})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.Output == nil {
		t.Error("expected a non-nil Output when a broadcaster is configured")
	}
}
