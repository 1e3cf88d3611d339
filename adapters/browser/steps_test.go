package browser

import (
	"strings"
	"testing"
)

func TestCompileSteps_KnownVerbs(t *testing.T) {
	steps := []string{
		"navigate",
		"navigate https://example.com/",
		"wait body",
		"fill input 42",
		"fill input hello world",
		"click button",
		"sleep 2s",
		"viewport 390 844",
		"key Tab",
		"key x",
		"eval document.title",
	}
	actions, err := compileSteps("https://play.ezygamers.com/", steps)
	if err != nil {
		t.Fatalf("compileSteps: %v", err)
	}
	if len(actions) != len(steps) {
		t.Errorf("actions: got %d want %d", len(actions), len(steps))
	}
}

func TestCompileSteps_Errors(t *testing.T) {
	tests := []struct {
		step string
		want string
	}{
		{"", "empty step"},
		{"warp 9", "unknown verb"},
		{"wait", "selector"},
		{"fill input", "value"},
		{"click", "selector"},
		{"sleep banana", "bad duration"},
		{"viewport 390", "width and height"},
		{"viewport a b", "bad width"},
		{"key", "key name"},
		{"eval", "expression"},
	}
	for _, tt := range tests {
		_, err := compileSteps("https://example.com/", []string{tt.step})
		if err == nil {
			t.Errorf("step %q: expected error", tt.step)
			continue
		}
		if !strings.Contains(err.Error(), tt.want) {
			t.Errorf("step %q: error %q does not mention %q", tt.step, err, tt.want)
		}
	}
}

func TestCompileStep_NavigateWithoutTarget(t *testing.T) {
	if _, err := compileSteps("", []string{"navigate"}); err == nil {
		t.Fatal("navigate with no target url must fail")
	}
}
