package catalog

import (
	"math"
	"testing"
)

func TestListSuites(t *testing.T) {
	names := ListSuites()
	found := false
	for _, n := range names {
		if n == "sumlink" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sumlink suite not embedded, got %v", names)
	}
}

func TestLoadSuite(t *testing.T) {
	s, err := LoadSuite("sumlink")
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	if s.Name != "sumlink" {
		t.Errorf("name: %q", s.Name)
	}
	if s.TargetURL != DefaultTargetURL {
		t.Errorf("target url: %q", s.TargetURL)
	}
	if len(s.Cases) != 8 {
		t.Errorf("cases: got %d want 8", len(s.Cases))
	}
	for _, c := range s.Cases {
		if c.ID == "" || c.Name == "" || len(c.Steps) == 0 {
			t.Errorf("incomplete case: %+v", c)
		}
	}
}

func TestLoadSuite_Unknown(t *testing.T) {
	if _, err := LoadSuite("nope"); err == nil {
		t.Fatal("expected error for unknown suite")
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		priority string
		base     float64
		want     float64
	}{
		{"high", 1.0, 1.0},
		{"medium", 0.5, 0.56},
		{"low", 0.0, 0.12},
		{"HIGH", 1.0, 1.0}, // case-insensitive
		{"unknown", 1.0, 0.85},
	}
	for _, tt := range tests {
		got := Score(Case{Priority: tt.priority, BaseScore: tt.base})
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Score(%s, %v): got %v want %v", tt.priority, tt.base, got, tt.want)
		}
	}
}

func TestSuitePool_ScoredAndOrdered(t *testing.T) {
	s, err := LoadSuite("sumlink")
	if err != nil {
		t.Fatal(err)
	}
	pool, err := s.Pool()
	if err != nil {
		t.Fatalf("Pool: %v", err)
	}
	if pool.Len() != len(s.Cases) {
		t.Errorf("pool size: got %d want %d", pool.Len(), len(s.Cases))
	}

	i := 0
	for spec := range pool.All() {
		c := s.Cases[i]
		if spec.ID != c.ID {
			t.Errorf("insertion order broken at %d: got %s want %s", i, spec.ID, c.ID)
		}
		if spec.Score != Score(c) {
			t.Errorf("case %s score: got %v want %v", spec.ID, spec.Score, Score(c))
		}
		i++
	}
}
