package mcp

import (
	"context"
	"fmt"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"playtest/adapters/catalog"
	"playtest/internal/engine"
	"playtest/internal/logging"
	"playtest/internal/report"
	"playtest/internal/store"
)

// Server wraps the MCP SDK server and manages orchestration sessions.
// One session runs at a time; a finished session is replaced on the next
// start_run call.
type Server struct {
	MCPServer *sdkmcp.Server

	store store.Store

	mu      sync.Mutex
	session *Session
}

// NewServer creates an MCP server exposing the orchestration tools.
// Reports from completed runs are persisted to st when non-nil.
func NewServer(st store.Store) *Server {
	s := &Server{store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "playtest", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_suites",
		Description: "List the embedded test suites available for orchestration.",
	}, s.handleListSuites)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "start_run",
		Description: "Start an orchestration run against a suite. Spawns the run goroutine and returns a session ID.",
	}, s.handleStartRun)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_status",
		Description: "Get the session state and the orchestrator's current phase.",
	}, s.handleGetStatus)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_events",
		Description: "Read orchestration events. Returns all events, or events since a given index.",
	}, s.handleGetEvents)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_report",
		Description: "Get the final report with verdicts, summary and triage notes. Blocks until the run completes.",
	}, s.handleGetReport)
}

// --- Tool input/output types ---

type listSuitesInput struct{}

type listSuitesOutput struct {
	Suites []string `json:"suites"`
}

type startRunInput struct {
	Suite                string `json:"suite" jsonschema:"suite name from list_suites"`
	Driver               string `json:"driver,omitempty" jsonschema:"execution driver (replay, browser); default replay"`
	TopK                 int    `json:"top_k,omitempty" jsonschema:"number of candidates to select (default 10)"`
	MaxConcurrency       int    `json:"max_concurrency,omitempty" jsonschema:"parallel execution slots (default 3)"`
	MaxAttempts          int    `json:"max_attempts,omitempty" jsonschema:"attempt budget per candidate (default 3)"`
	StopEarlyOnSuccess   int    `json:"stop_early_on_success,omitempty" jsonschema:"consecutive successes that end a candidate early (default 1)"`
	PerAttemptTimeoutSec int    `json:"per_attempt_timeout_sec,omitempty" jsonschema:"per-attempt timeout in seconds (default 30)"`
	OrchestrationSec     int    `json:"orchestration_timeout_sec,omitempty" jsonschema:"whole-run timeout in seconds (default 600)"`
	Force                bool   `json:"force,omitempty" jsonschema:"cancel any existing session and start fresh"`
}

type startRunOutput struct {
	SessionID string `json:"session_id"`
	Suite     string `json:"suite"`
	TargetURL string `json:"target_url"`
	Status    string `json:"status"`
}

type getStatusInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_run"`
}

type getStatusOutput struct {
	Status string `json:"status"`
	Phase  string `json:"phase"`
	Suite  string `json:"suite"`
}

type getEventsInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_run"`
	Since     int    `json:"since,omitempty" jsonschema:"return events from this index onward (0-based)"`
}

type getEventsOutput struct {
	Events []engine.Event `json:"events"`
	Total  int            `json:"total"`
}

type getReportInput struct {
	SessionID string `json:"session_id" jsonschema:"session ID from start_run"`
}

type getReportOutput struct {
	Status      string              `json:"status"`
	Report      *report.Report      `json:"report,omitempty"`
	Summary     *report.Summary     `json:"summary,omitempty"`
	TriageNotes []report.TriageNote `json:"triage_notes,omitempty"`
	Analysis    *report.Analysis    `json:"analysis,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleListSuites(ctx context.Context, _ *sdkmcp.CallToolRequest, _ listSuitesInput) (*sdkmcp.CallToolResult, listSuitesOutput, error) {
	return nil, listSuitesOutput{Suites: catalog.ListSuites()}, nil
}

func (s *Server) handleStartRun(ctx context.Context, _ *sdkmcp.CallToolRequest, input startRunInput) (*sdkmcp.CallToolResult, startRunOutput, error) {
	logger := logging.New("mcp-server")
	s.mu.Lock()
	if s.session != nil {
		select {
		case <-s.session.Done():
			logger.Info("replacing finished session", "old_id", s.session.ID)
			s.session.Cancel()
		default:
			if input.Force {
				logger.Warn("force-replacing active session", "old_id", s.session.ID)
				s.session.Cancel()
			} else {
				s.mu.Unlock()
				return nil, startRunOutput{}, fmt.Errorf("a run is already in progress (id=%s)", s.session.ID)
			}
		}
	}
	s.session = nil
	s.mu.Unlock()

	sess, err := NewSession(StartRunInput{
		Suite:                input.Suite,
		Driver:               input.Driver,
		TopK:                 input.TopK,
		MaxConcurrency:       input.MaxConcurrency,
		MaxAttempts:          input.MaxAttempts,
		StopEarlyOnSuccess:   input.StopEarlyOnSuccess,
		PerAttemptTimeoutSec: input.PerAttemptTimeoutSec,
		OrchestrationSec:     input.OrchestrationSec,
	}, s.store)
	if err != nil {
		return nil, startRunOutput{}, fmt.Errorf("start run: %w", err)
	}

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()

	return nil, startRunOutput{
		SessionID: sess.ID,
		Suite:     sess.Suite,
		TargetURL: sess.orch.Config().TargetURL,
		Status:    string(StateRunning),
	}, nil
}

func (s *Server) handleGetStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, input getStatusInput) (*sdkmcp.CallToolResult, getStatusOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getStatusOutput{}, err
	}
	return nil, getStatusOutput{
		Status: string(sess.State()),
		Phase:  string(sess.EngineState()),
		Suite:  sess.Suite,
	}, nil
}

func (s *Server) handleGetEvents(ctx context.Context, _ *sdkmcp.CallToolRequest, input getEventsInput) (*sdkmcp.CallToolResult, getEventsOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getEventsOutput{}, err
	}
	return nil, getEventsOutput{
		Events: sess.Events().Since(input.Since),
		Total:  sess.Events().Len(),
	}, nil
}

func (s *Server) handleGetReport(ctx context.Context, _ *sdkmcp.CallToolRequest, input getReportInput) (*sdkmcp.CallToolResult, getReportOutput, error) {
	sess, err := s.getSession(input.SessionID)
	if err != nil {
		return nil, getReportOutput{}, err
	}

	select {
	case <-sess.Done():
	case <-ctx.Done():
		return nil, getReportOutput{}, ctx.Err()
	}

	rep, runErr := sess.Report()
	if runErr != nil {
		out := getReportOutput{
			Status: string(StateError),
			Error:  runErr.Error(),
		}
		// An aborted run still produces an empty report shell.
		out.Report = rep
		return nil, out, nil
	}
	if rep == nil {
		return nil, getReportOutput{Status: "no_report"}, nil
	}

	return nil, getReportOutput{
		Status:      string(StateDone),
		Report:      rep,
		Summary:     &rep.Summary,
		TriageNotes: rep.TriageNotes,
		Analysis:    report.Analyze(rep),
	}, nil
}

// SessionID returns the current session's ID, or empty string if none.
func (s *Server) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session.ID
	}
	return ""
}

// Shutdown cancels any active session, releasing the run goroutine.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		s.session.Cancel()
		s.session = nil
	}
}

func (s *Server) getSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("no active session (call start_run first)")
	}
	if s.session.ID != id {
		return nil, fmt.Errorf("session_id mismatch: have %s, got %s", s.session.ID, id)
	}
	return s.session, nil
}
