// Package replay is a scripted automation driver. It plays back configured
// per-candidate outcome sequences without touching a browser, for offline
// runs and engine tests.
package replay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"playtest/internal/plan"
	"playtest/internal/run"
)

// Outcome names accepted by Script.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeCrash   = "crash"
	OutcomeHang    = "hang" // blocks until the attempt deadline
)

// Driver replays scripted outcomes. Unscripted candidates succeed. The last
// scripted outcome repeats once the script is exhausted.
type Driver struct {
	// Latency is simulated work per invocation, interruptible by ctx.
	Latency time.Duration

	mu      sync.Mutex
	scripts map[string][]string
	calls   map[string]int
}

// New returns a driver with no scripts: every candidate succeeds.
func New() *Driver {
	return &Driver{
		scripts: make(map[string][]string),
		calls:   make(map[string]int),
	}
}

// Script sets the per-attempt outcome sequence for one candidate.
func (d *Driver) Script(candidateID string, outcomes ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripts[candidateID] = outcomes
}

// Calls reports how many times the candidate was invoked.
func (d *Driver) Calls(candidateID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[candidateID]
}

func (d *Driver) next(candidateID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.calls[candidateID]
	d.calls[candidateID] = n + 1
	script := d.scripts[candidateID]
	if len(script) == 0 {
		return OutcomeSuccess
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	return script[n]
}

// Run implements run.Driver.
func (d *Driver) Run(ctx context.Context, spec plan.CandidateSpec) (*run.Result, error) {
	if d.Latency > 0 {
		select {
		case <-time.After(d.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch outcome := d.next(spec.ID); outcome {
	case OutcomeSuccess:
		return &run.Result{
			Status:    run.ResultSuccess,
			Artifacts: mockArtifacts(spec),
		}, nil
	case OutcomeFailure:
		return &run.Result{
			Status:    run.ResultFailure,
			Artifacts: mockArtifacts(spec),
			Message:   "scripted validation failure",
		}, nil
	case OutcomeCrash:
		return nil, errors.New("replay: scripted crash")
	case OutcomeHang:
		<-ctx.Done()
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("replay: unknown scripted outcome %q", outcome)
	}
}

func mockArtifacts(spec plan.CandidateSpec) run.ArtifactBundle {
	return run.ArtifactBundle{
		Screenshots: []string{"replay_screenshot.png"},
		DOMSnapshot: "<html><body>replay</body></html>",
		ConsoleLog: []string{
			"replay execution started",
			fmt.Sprintf("testing: %s", spec.Name),
		},
	}
}
