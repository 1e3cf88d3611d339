// Package engine sequences one orchestration run: select candidates, dispatch
// them concurrently under the slot limit, await their attempts, validate, and
// assemble the report. Partial results always beat no results: only an empty
// pool aborts a run.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"playtest/internal/logging"
	"playtest/internal/plan"
	"playtest/internal/report"
	"playtest/internal/run"
	"playtest/internal/slots"
	"playtest/internal/verdict"
)

// State is the orchestrator's position in its lifecycle.
type State string

// gracePeriod bounds the post-timeout drain: cancelled coordinators return
// promptly, but a driver that ignores its context must not stall finalization.
const gracePeriod = 500 * time.Millisecond

const (
	StateIdle        State = "idle"
	StatePlanning    State = "planning"
	StateDispatching State = "dispatching"
	StateAwaiting    State = "awaiting"
	StateFinalizing  State = "finalizing"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

// Config is the orchestrator's full configuration surface.
type Config struct {
	TargetURL               string        // target application, recorded in the report
	TopK                    int           // execution plan size
	MaxConcurrency          int           // global live-run slot count
	MaxAttempts             int           // attempt budget per candidate
	StopEarlyOnSuccessCount int           // consecutive successes to accept a candidate
	PerAttemptTimeout       time.Duration // deadline per driver invocation
	OrchestrationTimeout    time.Duration // deadline for the whole run
}

// DefaultConfig mirrors the defaults of the interactive workflow: ten cases,
// three browsers, accept the first success.
func DefaultConfig() Config {
	return Config{
		TopK:                    10,
		MaxConcurrency:          3,
		MaxAttempts:             3,
		StopEarlyOnSuccessCount: 1,
		PerAttemptTimeout:       30 * time.Second,
		OrchestrationTimeout:    10 * time.Minute,
	}
}

func (c *Config) sanitize() {
	d := DefaultConfig()
	if c.TopK < 1 {
		c.TopK = d.TopK
	}
	if c.MaxConcurrency < 1 {
		c.MaxConcurrency = d.MaxConcurrency
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.StopEarlyOnSuccessCount < 1 {
		c.StopEarlyOnSuccessCount = d.StopEarlyOnSuccessCount
	}
	if c.PerAttemptTimeout <= 0 {
		c.PerAttemptTimeout = d.PerAttemptTimeout
	}
	if c.OrchestrationTimeout <= 0 {
		c.OrchestrationTimeout = d.OrchestrationTimeout
	}
}

// Orchestrator runs the full pipeline once per Run call. It is safe to call
// Run repeatedly; each run gets its own slot manager and assembler.
type Orchestrator struct {
	cfg    Config
	driver run.Driver
	bus    *Bus

	mu    sync.Mutex
	state State
}

// New creates an orchestrator for the given driver and configuration.
func New(driver run.Driver, cfg Config) *Orchestrator {
	cfg.sanitize()
	return &Orchestrator{
		cfg:    cfg,
		driver: driver,
		bus:    &Bus{},
		state:  StateIdle,
	}
}

// State reports the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Events exposes the append-only run event log.
func (o *Orchestrator) Events() *Bus { return o.bus }

// Config returns the sanitized configuration in effect.
func (o *Orchestrator) Config() Config { return o.cfg }

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.bus.Emit("state", "", string(s))
}

// caseOutcome carries one candidate's attempts from its goroutine to the
// single aggregation point. No other path shares attempt data.
type caseOutcome struct {
	candidateID string
	attempts    []run.Attempt
}

// Run executes one orchestration cycle over the pool and returns the report.
// An empty pool aborts with an empty report and an error wrapping
// plan.ErrEmptyPool; every other failure mode is recorded inside the report.
func (o *Orchestrator) Run(ctx context.Context, pool *plan.Pool) (*report.Report, error) {
	logger := logging.New("engine")

	o.setState(StatePlanning)
	ep, err := plan.Select(pool, o.cfg.TopK)
	if err != nil {
		o.setState(StateAborted)
		empty, _ := report.NewAssembler(&plan.ExecutionPlan{}, o.cfg.TargetURL).Finalize()
		return empty, fmt.Errorf("planning: %w", err)
	}
	logger.Info("plan ready", "pool_size", pool.Len(), "planned", ep.Size(), "top_k", o.cfg.TopK)

	// sanitize() forces MaxConcurrency >= 1, so construction cannot fail.
	sm, err := slots.NewManager(o.cfg.MaxConcurrency)
	if err != nil {
		return nil, fmt.Errorf("slot manager: %w", err)
	}
	coordinator := run.NewCoordinator(sm, o.driver, run.CoordinatorConfig{
		MaxAttempts:             o.cfg.MaxAttempts,
		StopEarlyOnSuccessCount: o.cfg.StopEarlyOnSuccessCount,
		PerAttemptTimeout:       o.cfg.PerAttemptTimeout,
	})

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.OrchestrationTimeout)
	defer cancel()

	// One goroutine per planned candidate; the slot manager bounds the live
	// driver invocations. The buffered channel lets stragglers deliver (and
	// be discarded) after the collector has moved on.
	o.setState(StateDispatching)
	results := make(chan caseOutcome, ep.Size())
	g := &errgroup.Group{}
	for _, spec := range ep.Candidates {
		spec := spec
		o.bus.Emit("dispatched", spec.ID, fmt.Sprintf("rank %d score %.2f", spec.Rank, spec.Score))
		g.Go(func() error {
			attempts := coordinator.RunCase(runCtx, spec)
			results <- caseOutcome{candidateID: spec.ID, attempts: attempts}
			return nil
		})
	}

	o.setState(StateAwaiting)
	collected := make(map[string][]run.Attempt, ep.Size())
	pending := ep.Size()
	timedOut := false
collect:
	for pending > 0 {
		select {
		case out := <-results:
			collected[out.candidateID] = out.attempts
			pending--
			o.bus.Emit("case_finished", out.candidateID, fmt.Sprintf("%d attempts", len(out.attempts)))
		case <-runCtx.Done():
			timedOut = true
			break collect
		}
	}
	// Stop in-flight coordinators. A cancelled coordinator abandons only the
	// current driver call; attempts that already reached a terminal status
	// still come back on the buffered channel.
	cancel()
	if timedOut {
		grace := time.NewTimer(gracePeriod)
		defer grace.Stop()
	drain:
		for pending > 0 {
			select {
			case out := <-results:
				collected[out.candidateID] = out.attempts
				pending--
				o.bus.Emit("case_finished", out.candidateID, fmt.Sprintf("%d attempts", len(out.attempts)))
			case <-grace.C:
				break drain
			}
		}
		logger.Warn("orchestration timeout, unfinished candidates downgraded to inconclusive",
			"collected", len(collected), "planned", ep.Size())
	}
	go func() { _ = g.Wait() }()

	o.setState(StateFinalizing)
	assembler := report.NewAssembler(ep, o.cfg.TargetURL)
	for _, spec := range ep.Candidates {
		v := verdict.Finalize(spec.ID, collected[spec.ID])
		if err := assembler.Add(v); err != nil {
			// Plan and collection are both keyed by the plan; this is a bug,
			// not a runtime condition.
			return nil, fmt.Errorf("assemble verdict for %s: %w", spec.ID, err)
		}
		o.bus.Emit("verdict", spec.ID, string(v.Kind))
		logger.Info("verdict finalized",
			"candidate_id", spec.ID, "kind", string(v.Kind),
			"attempts", len(v.Attempts), "reproducibility", v.Reproducibility)
	}

	rep, err := assembler.Finalize()
	if err != nil {
		return nil, fmt.Errorf("finalize report: %w", err)
	}

	o.setState(StateDone)
	logger.Info("run complete",
		"report_id", rep.ID, "passed", rep.Summary.Passed, "failed", rep.Summary.Failed,
		"flaky", rep.Summary.Flaky, "inconclusive", rep.Summary.Inconclusive)
	return rep, nil
}
