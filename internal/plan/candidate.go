// Package plan holds the candidate pool and the selection logic that turns
// a pool of scored test-case specifications into an ordered execution plan.
package plan

import (
	"errors"
	"fmt"
	"iter"
	"sync"
)

var (
	// ErrDuplicateCandidate is returned when a candidate ID is admitted twice.
	ErrDuplicateCandidate = errors.New("plan: duplicate candidate")

	// ErrEmptyPool is returned when selection runs against a pool with no candidates.
	ErrEmptyPool = errors.New("plan: empty candidate pool")
)

// CandidateSpec is one proposed test case. The content (steps, expectations)
// and the score are produced upstream; the engine only consumes them.
// A spec is immutable once admitted to a pool.
type CandidateSpec struct {
	ID          string
	Name        string
	Description string
	Steps       []string // action script executed by the automation driver
	Expected    []string // expected observations, checked by the driver
	Priority    string   // high|medium|low, informational once scored
	Score       float64  // opaque quality score from the ranking collaborator
	Rank        int      // position in the execution plan, assigned by Select
}

// Pool holds admitted candidates in insertion order. Write-once per
// orchestration cycle: candidates can be admitted but never removed.
type Pool struct {
	mu    sync.Mutex
	specs []CandidateSpec
	byID  map[string]int
}

// NewPool returns an empty candidate pool.
func NewPool() *Pool {
	return &Pool{byID: make(map[string]int)}
}

// Admit adds a candidate to the pool. The spec is copied; later mutation of
// the caller's value does not affect the pool.
func (p *Pool) Admit(spec CandidateSpec) error {
	if spec.ID == "" {
		return fmt.Errorf("plan: candidate has empty ID")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.byID[spec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCandidate, spec.ID)
	}
	p.byID[spec.ID] = len(p.specs)
	p.specs = append(p.specs, spec)
	return nil
}

// Len reports the number of admitted candidates.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.specs)
}

// All returns a restartable sequence of admitted candidates in insertion
// order. The sequence iterates over a snapshot taken at call time.
func (p *Pool) All() iter.Seq[CandidateSpec] {
	p.mu.Lock()
	snapshot := make([]CandidateSpec, len(p.specs))
	copy(snapshot, p.specs)
	p.mu.Unlock()

	return func(yield func(CandidateSpec) bool) {
		for _, s := range snapshot {
			if !yield(s) {
				return
			}
		}
	}
}
