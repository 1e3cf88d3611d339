package run

import (
	"context"
	"errors"

	"playtest/internal/plan"
)

// ErrDriverUnavailable signals that the automation driver could not be
// reached at all for an attempt. Treated as a crash: counted toward the
// attempt budget, never fatal to the orchestration.
var ErrDriverUnavailable = errors.New("run: automation driver unavailable")

// ResultStatus is the driver's own judgement of one invocation.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailure ResultStatus = "failure" // assertion mismatch or explicit test failure
	ResultError   ResultStatus = "error"   // driver-internal fault, retryable
)

// Result is what a driver returns from one invocation. Artifacts may be
// partially populated on failure or error.
type Result struct {
	Status    ResultStatus
	Artifacts ArtifactBundle
	Message   string
}

// Driver executes one candidate against the live target. Implementations
// must be safe to invoke repeatedly for the same candidate with no residual
// state between invocations, and must honor ctx cancellation by returning
// early with ctx.Err(). The engine treats the driver as opaque: a returned
// error or a panic is recorded as a crashed attempt, never propagated.
type Driver interface {
	Run(ctx context.Context, spec plan.CandidateSpec) (*Result, error)
}
