package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"playtest/adapters/browser"
	"playtest/adapters/catalog"
	"playtest/adapters/replay"
	"playtest/internal/engine"
	"playtest/internal/logging"
	"playtest/internal/plan"
	"playtest/internal/report"
	"playtest/internal/run"
	"playtest/internal/store"
)

// SessionState tracks the lifecycle of one orchestration session.
type SessionState string

const (
	StateRunning SessionState = "running"
	StateDone    SessionState = "done"
	StateError   SessionState = "error"
)

// StartRunInput configures a new session.
type StartRunInput struct {
	Suite                string
	Driver               string // "replay" or "browser"
	TopK                 int
	MaxConcurrency       int
	MaxAttempts          int
	StopEarlyOnSuccess   int
	PerAttemptTimeoutSec int
	OrchestrationSec     int
}

// Session owns one orchestration run from start to report.
type Session struct {
	ID    string
	Suite string

	orch   *engine.Orchestrator
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	state  SessionState
	report *report.Report
	err    error
}

// NewSession builds the driver and orchestrator, then starts the run in a
// background goroutine. The finished report is saved to st when non-nil.
func NewSession(in StartRunInput, st store.Store) (*Session, error) {
	suite, err := catalog.LoadSuite(in.Suite)
	if err != nil {
		return nil, err
	}
	pool, err := suite.Pool()
	if err != nil {
		return nil, err
	}

	var driver run.Driver
	switch in.Driver {
	case "", "replay":
		driver = replay.New()
	case "browser":
		cfg := browser.DefaultConfig()
		cfg.TargetURL = suite.TargetURL
		driver = browser.New(cfg)
	default:
		return nil, fmt.Errorf("mcp: unknown driver %q", in.Driver)
	}

	cfg := engine.DefaultConfig()
	cfg.TargetURL = suite.TargetURL
	if in.TopK > 0 {
		cfg.TopK = in.TopK
	}
	if in.MaxConcurrency > 0 {
		cfg.MaxConcurrency = in.MaxConcurrency
	}
	if in.MaxAttempts > 0 {
		cfg.MaxAttempts = in.MaxAttempts
	}
	if in.StopEarlyOnSuccess > 0 {
		cfg.StopEarlyOnSuccessCount = in.StopEarlyOnSuccess
	}
	if in.PerAttemptTimeoutSec > 0 {
		cfg.PerAttemptTimeout = time.Duration(in.PerAttemptTimeoutSec) * time.Second
	}
	if in.OrchestrationSec > 0 {
		cfg.OrchestrationTimeout = time.Duration(in.OrchestrationSec) * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:     uuid.NewString(),
		Suite:  suite.Name,
		orch:   engine.New(driver, cfg),
		cancel: cancel,
		done:   make(chan struct{}),
		state:  StateRunning,
	}

	go sess.run(ctx, pool, st)
	return sess, nil
}

func (s *Session) run(ctx context.Context, pool *plan.Pool, st store.Store) {
	defer close(s.done)
	logger := logging.New("mcp-session").With("session_id", s.ID)

	rep, err := s.orch.Run(ctx, pool)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.err = err
		s.report = rep // may still carry the empty aborted report
		logger.Error("run failed", "error", err)
		return
	}
	s.state = StateDone
	s.report = rep
	if st != nil {
		if saveErr := st.SaveReport(rep); saveErr != nil {
			logger.Warn("report not persisted", "error", saveErr)
		}
	}
	logger.Info("run complete", "report_id", rep.ID)
}

// State returns the session lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Report returns the finished report and error, if any.
func (s *Session) Report() (*report.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.err
}

// Events exposes the engine's event log.
func (s *Session) Events() *engine.Bus { return s.orch.Events() }

// EngineState reports the orchestrator's state machine position.
func (s *Session) EngineState() engine.State { return s.orch.State() }

// Done is closed when the run goroutine has finished.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel aborts the run cooperatively.
func (s *Session) Cancel() { s.cancel() }
