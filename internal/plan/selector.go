package plan

import "sort"

// ExecutionPlan is the ordered subset of the pool chosen for execution.
// Created once per orchestration run and never modified afterwards.
type ExecutionPlan struct {
	Candidates []CandidateSpec
}

// Size reports the number of planned candidates.
func (ep *ExecutionPlan) Size() int { return len(ep.Candidates) }

// Contains reports whether the plan includes the given candidate ID.
func (ep *ExecutionPlan) Contains(id string) bool {
	for _, c := range ep.Candidates {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Select picks the top k candidates by descending score. Ties break by
// ascending insertion order, so selecting the same pool twice yields the
// same plan. The pool itself is not modified; ranks are assigned on the
// plan's copies.
func Select(pool *Pool, k int) (*ExecutionPlan, error) {
	var specs []CandidateSpec
	for s := range pool.All() {
		specs = append(specs, s)
	}
	if len(specs) == 0 {
		return nil, ErrEmptyPool
	}
	if k < 0 {
		k = 0
	}

	// Insertion index rides along for the tie-break.
	idx := make(map[string]int, len(specs))
	for i, s := range specs {
		idx[s.ID] = i
	}
	sort.SliceStable(specs, func(a, b int) bool {
		if specs[a].Score != specs[b].Score {
			return specs[a].Score > specs[b].Score
		}
		return idx[specs[a].ID] < idx[specs[b].ID]
	})

	if k > len(specs) {
		k = len(specs)
	}
	selected := make([]CandidateSpec, k)
	copy(selected, specs[:k])
	for i := range selected {
		selected[i].Rank = i + 1
	}
	return &ExecutionPlan{Candidates: selected}, nil
}
