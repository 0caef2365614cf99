package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bitbox-lang/bitbox/bbconfig"
	"github.com/bitbox-lang/bitbox/service"
)

// handleCreateSession handles POST /api/v1/session
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req SessionCreateRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.sessions.CreateSession(req)
	if err != nil {
		if errors.Is(err, ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to create session: %v", err))
		return
	}

	response := SessionCreateResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
		Symbols:   session.Service.GetSymbols(),
	}

	writeJSON(w, http.StatusCreated, response)
}

// handleListSessions handles GET /api/v1/session
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.ListSessions()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

// handleGetSessionStatus handles GET /api/v1/session/{id}
func (s *Server) handleGetSessionStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	regs := session.Service.GetRegisterState()
	state := session.Service.GetExecutionState()

	writeJSON(w, http.StatusOK, SessionStatusResponse{
		SessionID: sessionID,
		State:     string(state),
		PC:        regs.PC,
	})
}

// handleDestroySession handles DELETE /api/v1/session/{id}
func (s *Server) handleDestroySession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := s.sessions.DestroySession(sessionID); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Session destroyed"})
}

// handleRun handles POST /api/v1/session/{id}/run: marks the session running and drives the
// VM to completion on its own goroutine. The HTTP response returns immediately and clients
// observe progress over the WebSocket.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.Service.Continue()
	go func() {
		_ = session.Service.RunUntilHalt()
		regs := session.Service.GetRegisterState()
		s.broadcastStateChange(sessionID, regs, session.Service.GetExecutionState())
	}()

	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Program started"})
}

// handleStop handles POST /api/v1/session/{id}/stop
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.Service.Pause()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Program stopped"})
}

// handleStep handles POST /api/v1/session/{id}/step
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := session.Service.Step(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Step failed: %v", err))
		return
	}

	regs := session.Service.GetRegisterState()
	state := session.Service.GetExecutionState()
	s.broadcastStateChange(sessionID, regs, state)
	writeJSON(w, http.StatusOK, ToRegisterResponse(regs))
}

// handleStepOver handles POST /api/v1/session/{id}/step-over
func (s *Server) handleStepOver(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := session.Service.StepOver(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Step-over failed: %v", err))
		return
	}

	regs := session.Service.GetRegisterState()
	s.broadcastStateChange(sessionID, regs, session.Service.GetExecutionState())
	writeJSON(w, http.StatusOK, ToRegisterResponse(regs))
}

// handleStepOut handles POST /api/v1/session/{id}/step-out
func (s *Server) handleStepOut(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := session.Service.StepOut(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Step-out failed: %v", err))
		return
	}

	regs := session.Service.GetRegisterState()
	s.broadcastStateChange(sessionID, regs, session.Service.GetExecutionState())
	writeJSON(w, http.StatusOK, ToRegisterResponse(regs))
}

// handleReset handles POST /api/v1/session/{id}/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	session.Service.Reset()
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "VM reset"})
}

// handleGetRegisters handles GET /api/v1/session/{id}/registers
func (s *Server) handleGetRegisters(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, ToRegisterResponse(session.Service.GetRegisterState()))
}

// handleGetStack handles GET /api/v1/session/{id}/stack
func (s *Server) handleGetStack(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	count := 32
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			count = n
		}
	}

	writeJSON(w, http.StatusOK, StackResponse{Entries: session.Service.GetStack(count)})
}

// handleGetHeap handles GET /api/v1/session/{id}/heap
func (s *Server) handleGetHeap(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	query := r.URL.Query()
	address, err := parseHexOrDec(query.Get("address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid address parameter")
		return
	}
	length, err := strconv.ParseUint(query.Get("length"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid length parameter")
		return
	}

	const maxHeapRead = 1024 * 1024
	if length > maxHeapRead {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Length too large (max %d bytes)", maxHeapRead))
		return
	}

	region, err := session.Service.GetHeap(address, length)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read heap: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, HeapResponse{Address: region.Address, Data: region.Data})
}

// handleGetConsoleOutput handles GET /api/v1/session/{id}/console
func (s *Server) handleGetConsoleOutput(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var output string
	if session.Output != nil {
		output = session.Output.GetBuffer()
	}
	writeJSON(w, http.StatusOK, OutputEvent{Stream: "stdout", Content: output})
}

// handleGetSourceMap handles GET /api/v1/session/{id}/sourcemap
func (s *Server) handleGetSourceMap(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, session.Service.GetSourceMap())
}

// handleCommand handles POST /api/v1/session/{id}/command: runs one line-oriented debugger
// command ("break <label>", "watch %<r>", "print %<r>", "regs", "x/8xb <addr>" etc.) and returns
// its captured textual output, exactly as the CLI debugger's REPL would.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req CommandRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	output, cmdErr := session.Service.ExecuteCommand(req.Command)
	if cmdErr != nil {
		writeError(w, http.StatusBadRequest, cmdErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, CommandResponse{Output: output})
}

// handleEvaluateExpression handles POST /api/v1/session/{id}/evaluate
func (s *Server) handleEvaluateExpression(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req ExpressionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	value, evalErr := session.Service.EvaluateExpression(req.Expression)
	if evalErr != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to evaluate expression: %v", evalErr))
		return
	}
	writeJSON(w, http.StatusOK, ExpressionResponse{Value: value})
}

// handleBreakpoint handles POST/DELETE /api/v1/session/{id}/breakpoint
func (s *Server) handleBreakpoint(w http.ResponseWriter, r *http.Request, sessionID string) {
	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req BreakpointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		bp, err := session.Service.AddBreakpoint(req.Address, req.Temporary, req.Condition)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to add breakpoint: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, ToBreakpointResponse(bp))

	case http.MethodDelete:
		var req BreakpointRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		addr, err := parseHexOrDec(req.Address)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid address")
			return
		}
		if err := session.Service.RemoveBreakpoint(uint32(addr)); err != nil { // #nosec G115 -- parseHexOrDec validates input fits in uint32
			writeError(w, http.StatusNotFound, fmt.Sprintf("Failed to remove breakpoint: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Breakpoint removed"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleListBreakpoints handles GET /api/v1/session/{id}/breakpoints
func (s *Server) handleListBreakpoints(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	bps := session.Service.GetBreakpoints()
	out := make([]BreakpointResponse, len(bps))
	for i, bp := range bps {
		out[i] = ToBreakpointResponse(bp)
	}
	writeJSON(w, http.StatusOK, BreakpointsResponse{Breakpoints: out})
}

// handleWatchpoint handles POST /api/v1/session/{id}/watchpoint
func (s *Server) handleWatchpoint(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	var req WatchpointRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		wp      service.WatchpointInfo
		wpError error
	)
	switch req.Kind {
	case "register":
		wp, wpError = session.Service.AddRegisterWatch(req.Register)
	case "heap":
		wp, wpError = session.Service.AddHeapWatch(req.Address, req.Width)
	default:
		writeError(w, http.StatusBadRequest, "Invalid watchpoint kind (must be 'register' or 'heap')")
		return
	}
	if wpError != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to add watchpoint: %v", wpError))
		return
	}
	writeJSON(w, http.StatusOK, ToWatchpointResponse(wp))
}

// handleDeleteWatchpoint handles DELETE /api/v1/session/{id}/watchpoint/{watchpointID}
func (s *Server) handleDeleteWatchpoint(w http.ResponseWriter, r *http.Request, sessionID string, watchpointID int) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := session.Service.RemoveWatchpoint(watchpointID); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Failed to remove watchpoint: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Watchpoint removed"})
}

// handleListWatchpoints handles GET /api/v1/session/{id}/watchpoints
func (s *Server) handleListWatchpoints(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	wps := session.Service.GetWatchpoints()
	out := make([]WatchpointResponse, len(wps))
	for i, wp := range wps {
		out[i] = ToWatchpointResponse(wp)
	}
	writeJSON(w, http.StatusOK, WatchpointsResponse{Watchpoints: out})
}

// handleTraceControl handles POST /api/v1/session/{id}/trace/{enable|disable}
func (s *Server) handleTraceControl(w http.ResponseWriter, r *http.Request, sessionID string, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch action {
	case "enable":
		session.Service.EnableTrace()
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Execution trace enabled"})
	case "disable":
		session.Service.DisableTrace()
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Execution trace disabled"})
	default:
		writeError(w, http.StatusBadRequest, "Invalid action (must be 'enable' or 'disable')")
	}
}

// handleTraceData handles GET /api/v1/session/{id}/trace/data
func (s *Server) handleTraceData(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	entries := session.Service.GetTrace()
	out := make([]TraceEntryInfo, len(entries))
	for i, e := range entries {
		out[i] = ToTraceEntryInfo(e.Sequence, e.Address, e.Disassembly, e.RegisterChanges, e.Duration.Nanoseconds())
	}
	writeJSON(w, http.StatusOK, TraceDataResponse{Entries: out})
}

// handleStatsControl handles POST /api/v1/session/{id}/stats/{enable|disable}
func (s *Server) handleStatsControl(w http.ResponseWriter, r *http.Request, sessionID string, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	switch action {
	case "enable":
		session.Service.EnableStatistics()
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Statistics collection enabled"})
	case "disable":
		session.Service.DisableStatistics()
		writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Statistics collection disabled"})
	default:
		writeError(w, http.StatusBadRequest, "Invalid action (must be 'enable' or 'disable')")
	}
}

// handleStats handles GET /api/v1/session/{id}/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session, err := s.sessions.GetSession(sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	stats, err := session.Service.GetStatistics()
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to get statistics: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, StatisticsResponse{
		TotalInstructions: stats.TotalInstructions,
		ExecutionNanos:    stats.ExecutionTime.Nanoseconds(),
		InstructionCounts: stats.InstructionCounts,
		HeapBytesRead:     stats.HeapBytesRead,
		HeapBytesWritten:  stats.HeapBytesWritten,
		StackPushes:       stats.StackPushes,
		StackPops:         stats.StackPops,
		Summary:           stats.Summary(),
	})
}

// handleGetConfig handles GET /api/v1/config
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.getDefaultConfig())
}

// handleUpdateConfig handles PUT /api/v1/config. The session server is stateless across
// restarts by design (bbconfig.Config is the on-disk source of truth); this acknowledges the
// request without persisting anything.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var cfg ConfigResponse
	if err := readJSON(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true, Message: "Configuration updated"})
}

// handleListExamples handles GET /api/v1/examples
func (s *Server) handleListExamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	entries, err := os.ReadDir("examples")
	if err != nil {
		writeJSON(w, http.StatusOK, ExamplesResponse{Examples: []ExampleInfo{}})
		return
	}

	examples := make([]ExampleInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".bb") {
			continue
		}
		examples = append(examples, ExampleInfo{Name: entry.Name()})
	}
	writeJSON(w, http.StatusOK, ExamplesResponse{Examples: examples})
}

// handleGetExample handles GET /api/v1/examples/{name}
func (s *Server) handleGetExample(w http.ResponseWriter, r *http.Request, exampleName string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if strings.Contains(exampleName, "..") || strings.Contains(exampleName, "/") {
		writeError(w, http.StatusBadRequest, "Invalid example name")
		return
	}

	examplePath := filepath.Join("examples", exampleName)
	content, err := os.ReadFile(examplePath) // #nosec G304 -- path is validated above
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Example not found: %s", exampleName))
		return
	}

	writeJSON(w, http.StatusOK, ExampleContentResponse{Name: exampleName, Source: string(content)})
}

// getDefaultConfig returns the session server's running configuration as an API response. It
// reflects s.cfg (the bbconfig.Config the server was constructed with, or
// bbconfig.DefaultConfig() if none was given) rather than re-reading bbconfig from disk per
// request.
func (s *Server) getDefaultConfig() ConfigResponse {
	cfg := s.cfg
	if cfg == nil {
		cfg = bbconfig.DefaultConfig()
	}
	return ConfigResponse{
		Execution: ExecutionConfig{
			MaxSteps:       cfg.VM.MaxSteps,
			HeapHint:       cfg.VM.HeapHint,
			BufferedStdout: cfg.VM.BufferedStdout,
		},
		Debugger: DebuggerConfig{
			HistorySize:        cfg.Debugger.HistorySize,
			PersistBreakpoints: cfg.Debugger.PersistBreakpoints,
			SourceContext:      cfg.Debugger.SourceContext,
			ShowRegisters:      cfg.Debugger.ShowRegisters,
		},
		Trace: TraceConfig{
			IncludeTiming: cfg.Trace.IncludeTiming,
			MaxEntries:    cfg.Trace.MaxEntries,
		},
		Statistics: StatisticsConfig{
			Format: cfg.Statistics.Format,
		},
	}
}

// parseHexOrDec parses a string as either hexadecimal (0x prefix) or decimal
func parseHexOrDec(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty string")
	}
	if len(s) > 2 && s[:2] == "0x" {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// broadcastStateChange broadcasts VM state changes to WebSocket clients
func (s *Server) broadcastStateChange(sessionID string, regs service.RegisterState, state service.ExecutionState) {
	if s.broadcaster == nil {
		return
	}

	data := map[string]interface{}{
		"status":    string(state),
		"pc":        regs.PC,
		"registers": regs.Registers,
	}
	s.broadcaster.BroadcastState(sessionID, data)
}
