package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playtest/internal/logging"
	"playtest/internal/plan"
	"playtest/internal/slots"
)

// CoordinatorConfig bounds the attempt loop for one candidate.
type CoordinatorConfig struct {
	MaxAttempts             int           // attempt budget per candidate
	StopEarlyOnSuccessCount int           // consecutive successes needed to stop early
	PerAttemptTimeout       time.Duration // deadline for a single driver invocation
}

// DefaultCoordinatorConfig returns the attempt policy used when the caller
// does not override it: accept the first success, retry up to three times.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxAttempts:             3,
		StopEarlyOnSuccessCount: 1,
		PerAttemptTimeout:       30 * time.Second,
	}
}

func (c *CoordinatorConfig) sanitize() {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.StopEarlyOnSuccessCount < 1 {
		c.StopEarlyOnSuccessCount = 1
	}
	if c.PerAttemptTimeout <= 0 {
		c.PerAttemptTimeout = 30 * time.Second
	}
}

// Coordinator runs candidates through the driver under the slot limit.
// Attempts for one candidate are strictly sequential; attempts for different
// candidates overlap freely up to the slot manager's capacity.
type Coordinator struct {
	slots  *slots.Manager
	driver Driver
	cfg    CoordinatorConfig
}

// NewCoordinator wires a coordinator to its slot manager and driver.
func NewCoordinator(sm *slots.Manager, driver Driver, cfg CoordinatorConfig) *Coordinator {
	cfg.sanitize()
	return &Coordinator{slots: sm, driver: driver, cfg: cfg}
}

// RunCase executes the attempt loop for one candidate and returns every
// attempt that reached a terminal status, in order. A cancelled ctx stops
// the loop between attempts; attempts already recorded are returned as-is.
func (c *Coordinator) RunCase(ctx context.Context, spec plan.CandidateSpec) []Attempt {
	logger := logging.New("run").With("candidate_id", spec.ID)

	var attempts []Attempt
	consecutive := 0

	for n := 1; n <= c.cfg.MaxAttempts; n++ {
		if ctx.Err() != nil {
			break
		}

		attempt := c.runAttempt(ctx, spec, n)
		if attempt == nil {
			// Slot acquisition was abandoned: the run is being torn down.
			break
		}
		attempts = append(attempts, *attempt)

		logger.Info("attempt finished",
			"attempt", n, "status", string(attempt.Status),
			"duration", attempt.Duration(), "reason", attempt.FailureReason)

		if attempt.Status == StatusSucceeded {
			consecutive++
			if consecutive >= c.cfg.StopEarlyOnSuccessCount {
				break
			}
		} else {
			consecutive = 0
		}
	}

	return attempts
}

// runAttempt performs one slot-scoped driver invocation. Returns nil only
// when the slot acquire itself was cancelled; every started attempt comes
// back with a terminal status.
func (c *Coordinator) runAttempt(ctx context.Context, spec plan.CandidateSpec, number int) *Attempt {
	release, err := c.slots.Acquire(ctx)
	if err != nil {
		return nil
	}
	defer release()

	attempt := &Attempt{
		CandidateID: spec.ID,
		Number:      number,
		Status:      StatusRunning,
		StartedAt:   time.Now().UTC(),
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.PerAttemptTimeout)
	defer cancel()

	result, err := c.invoke(attemptCtx, spec)
	attempt.EndedAt = time.Now().UTC()

	// Keep whatever partial evidence the driver produced on any outcome.
	if result != nil {
		attempt.Artifacts = result.Artifacts
	}

	switch {
	case err == nil && result != nil && result.Status == ResultSuccess:
		attempt.Status = StatusSucceeded
	case err == nil && result != nil && result.Status == ResultFailure:
		attempt.Status = StatusFailed
		attempt.FailureReason = result.Message
		if attempt.FailureReason == "" {
			attempt.FailureReason = "driver reported failure"
		}
	case errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded:
		attempt.Status = StatusTimedOut
		attempt.FailureReason = "deadline exceeded"
	case errors.Is(err, ErrDriverUnavailable):
		attempt.Status = StatusCrashed
		attempt.FailureReason = err.Error()
	case err != nil:
		attempt.Status = StatusCrashed
		attempt.FailureReason = err.Error()
	default:
		// Driver returned status "error" or a nil result without an error.
		attempt.Status = StatusCrashed
		if result != nil && result.Message != "" {
			attempt.FailureReason = result.Message
		} else {
			attempt.FailureReason = "driver returned no result"
		}
	}

	return attempt
}

// invoke calls the driver with panic containment. A panicking driver is an
// infrastructure fault, not a test verdict.
func (c *Coordinator) invoke(ctx context.Context, spec plan.CandidateSpec) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("driver panic: %v", r)
		}
	}()
	if c.driver == nil {
		return nil, ErrDriverUnavailable
	}
	return c.driver.Run(ctx, spec)
}
