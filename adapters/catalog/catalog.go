// Package catalog supplies candidate test cases to the engine. Suites are
// embedded YAML files; scoring combines an authored base score with a
// priority weight, so the engine only ever sees one opaque number.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"playtest/internal/plan"
)

//go:embed *.yaml
var suiteFS embed.FS

// DefaultTargetURL is the puzzle deployment the built-in suites target.
const DefaultTargetURL = "https://play.ezygamers.com/"

// priorityWeights mirrors the ranking collaborator's contract: higher
// priority cases get a larger share of the final score.
var priorityWeights = map[string]float64{
	"high":   1.0,
	"medium": 0.7,
	"low":    0.4,
}

// Case is one authored test case before scoring.
type Case struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Priority    string   `yaml:"priority"`
	BaseScore   float64  `yaml:"base_score"`
	Steps       []string `yaml:"steps"`
	Expected    []string `yaml:"expected"`
}

// Suite is a named collection of cases for one target.
type Suite struct {
	Name      string `yaml:"name"`
	TargetURL string `yaml:"target_url"`
	Cases     []Case `yaml:"cases"`
}

// LoadSuite reads a suite by name from the embedded YAML files.
func LoadSuite(name string) (*Suite, error) {
	data, err := suiteFS.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("suite %q not found (available: %s): %w",
			name, strings.Join(ListSuites(), ", "), err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite %q: %w", name, err)
	}
	if s.TargetURL == "" {
		s.TargetURL = DefaultTargetURL
	}
	return &s, nil
}

// ListSuites returns the names of all embedded suites, sorted.
func ListSuites() []string {
	entries, _ := suiteFS.ReadDir(".")
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
		}
	}
	sort.Strings(names)
	return names
}

// Score computes the final candidate score: 0.7 * base + 0.3 * priority
// weight. Unknown priorities weigh 0.5.
func Score(c Case) float64 {
	w, ok := priorityWeights[strings.ToLower(c.Priority)]
	if !ok {
		w = 0.5
	}
	return c.BaseScore*0.7 + w*0.3
}

// Pool admits every case of the suite, scored, into a fresh candidate pool.
func (s *Suite) Pool() (*plan.Pool, error) {
	pool := plan.NewPool()
	for _, c := range s.Cases {
		spec := plan.CandidateSpec{
			ID:          c.ID,
			Name:        c.Name,
			Description: c.Description,
			Steps:       c.Steps,
			Expected:    c.Expected,
			Priority:    c.Priority,
			Score:       Score(c),
		}
		if err := pool.Admit(spec); err != nil {
			return nil, fmt.Errorf("suite %q: %w", s.Name, err)
		}
	}
	return pool, nil
}
