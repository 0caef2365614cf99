package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitbox-lang/bitbox/bbconfig"
)

func TestServer_GetConfigReflectsConstructorConfig(t *testing.T) {
	cfg := bbconfig.DefaultConfig()
	cfg.VM.MaxSteps = 12345
	cfg.Debugger.HistorySize = 42
	cfg.Trace.MaxEntries = 7
	cfg.Statistics.Format = "csv"

	s := NewServerWithConfig(0, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp ConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Execution.MaxSteps != 12345 {
		t.Errorf("expected MaxSteps 12345, got %d", resp.Execution.MaxSteps)
	}
	if resp.Debugger.HistorySize != 42 {
		t.Errorf("expected HistorySize 42, got %d", resp.Debugger.HistorySize)
	}
	if resp.Trace.MaxEntries != 7 {
		t.Errorf("expected MaxEntries 7, got %d", resp.Trace.MaxEntries)
	}
	if resp.Statistics.Format != "csv" {
		t.Errorf("expected Format csv, got %q", resp.Statistics.Format)
	}
}

func TestServer_EnforcesConfiguredMaxSessions(t *testing.T) {
	cfg := bbconfig.DefaultConfig()
	cfg.Server.MaxSessions = 1

	s := NewServerWithConfig(0, cfg)

	createTestSession(t, s, handlersTestSrc)

	body, _ := json.Marshal(SessionCreateRequest{Source: handlersTestSrc})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 once MaxSessions is reached, got %d: %s", rec.Code, rec.Body.String())
	}
}
