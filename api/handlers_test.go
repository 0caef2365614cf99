package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bitbox-lang/bitbox/service"
)

const handlersTestSrc = `.entry main
main:
  load[u64] %0 0
  load[u64] %1 3
loop:
  inc[u64] %0
  jne %0 %1 loop
  hult
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(0)
}

func createTestSession(t *testing.T, s *Server, src string) string {
	t.Helper()
	body, _ := json.Marshal(SessionCreateRequest{Source: src})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp SessionCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return resp.SessionID
}

func TestHandleCreateAndGetSession(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/"+sessionID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var status SessionStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if status.SessionID != sessionID {
		t.Errorf("expected session id %s, got %s", sessionID, status.SessionID)
	}
	if status.State != string(stateOf(t, s, sessionID)) {
		t.Errorf("unexpected state %s", status.State)
	}
}

func stateOf(t *testing.T, s *Server, sessionID string) string {
	t.Helper()
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	return string(session.Service.GetExecutionState())
}

func TestHandleGetSessionNotFound(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleStepAndRegisters(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	// Three steps: load %0 0, load %1 3, then the first inc %0.
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/session/"+sessionID+"/step", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session/"+sessionID+"/registers", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var regs RegistersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &regs); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if regs.Registers[0] != 1 {
		t.Errorf("expected register 0 to be 1 after three steps, got %d", regs.Registers[0])
	}
}

func TestHandleRunToCompletion(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/"+sessionID+"/run", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	deadline := time.Now().Add(1 * time.Second)
	for session.Service.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if session.Service.IsRunning() {
		t.Fatal("timed out waiting for run to complete")
	}
	if session.Service.GetExecutionState() != service.StateHalted {
		t.Errorf("expected halted state, got %s", session.Service.GetExecutionState())
	}
}

func TestHandleBreakpointLifecycle(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	body, _ := json.Marshal(BreakpointRequest{Address: "loop"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/"+sessionID+"/breakpoint", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var bp BreakpointResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if bp.Address == 0 {
		t.Error("expected a non-zero breakpoint address")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/session/"+sessionID+"/breakpoints", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	var list BreakpointsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(list.Breakpoints) != 1 {
		t.Fatalf("expected 1 breakpoint, got %d", len(list.Breakpoints))
	}
}

func TestHandleCommand(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	body, _ := json.Marshal(CommandRequest{Command: "regs"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session/"+sessionID+"/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Output == "" {
		t.Error("expected non-empty command output")
	}
}

func TestHandleDestroySession(t *testing.T) {
	s := newTestServer(t)
	sessionID := createTestSession(t, s, handlersTestSrc)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/session/"+sessionID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/session/"+sessionID, nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after destroy, got %d", rec.Code)
	}
}

func TestHandleConfig(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var cfg ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if cfg.Debugger.SourceContext == 0 {
		t.Error("expected a non-zero default source context")
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
