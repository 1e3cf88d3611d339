// Package browser drives a headless Chrome against the live target through
// chromedp, capturing a screenshot, DOM snapshot, console log, and network
// trace for every invocation. Each invocation gets a fresh browser context,
// so no state leaks between attempts.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"playtest/internal/logging"
	"playtest/internal/plan"
	"playtest/internal/run"
)

// Config controls browser startup and artifact placement.
type Config struct {
	TargetURL    string
	ArtifactsDir string // root for per-candidate artifact dirs; empty = keep in memory only
	Headless     bool
	NoSandbox    bool // needed in containers and CI
}

// DefaultConfig is a headless configuration for the default target.
func DefaultConfig() Config {
	return Config{
		TargetURL:    "https://play.ezygamers.com/",
		ArtifactsDir: "artifacts",
		Headless:     true,
		NoSandbox:    true,
	}
}

// Driver implements run.Driver on top of chromedp.
type Driver struct {
	cfg Config
}

// New creates a browser driver.
func New(cfg Config) *Driver {
	return &Driver{cfg: cfg}
}

// Run executes one candidate in a fresh headless browser. The driver's own
// judgement (success vs. failure) comes from post-run page validation; any
// browser-level error is returned as-is for the coordinator to classify.
func (d *Driver) Run(ctx context.Context, spec plan.CandidateSpec) (*run.Result, error) {
	logger := logging.New("browser").With("candidate_id", spec.ID)

	actions, err := compileSteps(d.cfg.TargetURL, spec.Steps)
	if err != nil {
		return nil, fmt.Errorf("compile steps: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", d.cfg.NoSandbox),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	// Console and network capture run concurrently with the step script.
	var capMu sync.Mutex
	var consoleLines []string
	var netTrace []run.NetworkEntry
	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			capMu.Lock()
			line := string(e.Type)
			for _, arg := range e.Args {
				line += " " + string(arg.Value)
			}
			consoleLines = append(consoleLines, line)
			capMu.Unlock()
		case *network.EventResponseReceived:
			capMu.Lock()
			netTrace = append(netTrace, run.NetworkEntry{
				URL:      e.Response.URL,
				Status:   int(e.Response.Status),
				MimeType: e.Response.MimeType,
			})
			capMu.Unlock()
		}
	})

	all := []chromedp.Action{network.Enable()}
	all = append(all, actions...)

	var shot []byte
	var dom, title string
	all = append(all,
		chromedp.CaptureScreenshot(&shot),
		chromedp.OuterHTML("html", &dom, chromedp.ByQuery),
		chromedp.Title(&title),
	)

	runErr := chromedp.Run(browserCtx, all...)

	capMu.Lock()
	bundle := run.ArtifactBundle{
		DOMSnapshot:  dom,
		ConsoleLog:   append([]string(nil), consoleLines...),
		NetworkTrace: append([]run.NetworkEntry(nil), netTrace...),
	}
	capMu.Unlock()

	if d.cfg.ArtifactsDir != "" && (len(shot) > 0 || dom != "") {
		refs, err := d.writeArtifacts(spec.ID, shot, bundle)
		if err != nil {
			logger.Warn("artifact write failed", "error", err)
		} else {
			bundle.Screenshots = refs
		}
	}

	if runErr != nil {
		// Partial evidence still travels with the error outcome.
		return &run.Result{Status: run.ResultError, Artifacts: bundle, Message: runErr.Error()}, runErr
	}

	// Validation mirrors the minimal sanity contract of the original
	// workflow: a rendered page has a title and a body.
	if title == "" {
		return &run.Result{
			Status:    run.ResultFailure,
			Artifacts: bundle,
			Message:   "validation failed: empty page title",
		}, nil
	}
	if dom == "" {
		return &run.Result{
			Status:    run.ResultFailure,
			Artifacts: bundle,
			Message:   "validation failed: empty DOM",
		}, nil
	}

	return &run.Result{Status: run.ResultSuccess, Artifacts: bundle}, nil
}

// writeArtifacts persists the captured evidence under
// <ArtifactsDir>/<candidate>/<timestamp>/ and returns screenshot refs.
func (d *Driver) writeArtifacts(candidateID string, shot []byte, bundle run.ArtifactBundle) ([]string, error) {
	dir := filepath.Join(d.cfg.ArtifactsDir, candidateID, time.Now().UTC().Format("20060102-150405.000"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	var refs []string
	if len(shot) > 0 {
		path := filepath.Join(dir, "final.png")
		if err := os.WriteFile(path, shot, 0o644); err != nil {
			return nil, fmt.Errorf("write screenshot: %w", err)
		}
		refs = append(refs, path)
	}
	if bundle.DOMSnapshot != "" {
		if err := os.WriteFile(filepath.Join(dir, "dom.html"), []byte(bundle.DOMSnapshot), 0o644); err != nil {
			return nil, fmt.Errorf("write dom: %w", err)
		}
	}
	if len(bundle.ConsoleLog) > 0 {
		data, _ := json.MarshalIndent(bundle.ConsoleLog, "", "  ")
		if err := os.WriteFile(filepath.Join(dir, "console.json"), data, 0o644); err != nil {
			return nil, fmt.Errorf("write console log: %w", err)
		}
	}
	if len(bundle.NetworkTrace) > 0 {
		data, _ := json.MarshalIndent(bundle.NetworkTrace, "", "  ")
		if err := os.WriteFile(filepath.Join(dir, "network.json"), data, 0o644); err != nil {
			return nil, fmt.Errorf("write network trace: %w", err)
		}
	}
	return refs, nil
}
