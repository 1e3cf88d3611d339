package mcp_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	mcpserver "playtest/internal/mcp"
	"playtest/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*mcpserver.Server, *store.MemStore) {
	t.Helper()
	st := store.NewMemStore()
	srv := mcpserver.NewServer(st)
	t.Cleanup(srv.Shutdown)
	return srv, st
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				t.Fatalf("CallTool(%s) returned error: %s", name, tc.Text)
			}
		}
		t.Fatalf("CallTool(%s) returned error", name)
	}
	result := make(map[string]any)
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
			}
			return result
		}
	}
	t.Fatalf("no text content in tool result")
	return nil
}

func startRun(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, extra map[string]any) string {
	t.Helper()
	args := map[string]any{
		"suite":  "sumlink",
		"driver": "replay",
	}
	for k, v := range extra {
		args[k] = v
	}
	res := callTool(t, ctx, session, "start_run", args)
	id, ok := res["session_id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected non-empty session_id, got %v", res["session_id"])
	}
	return id
}

func TestServer_ToolDiscovery(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	want := map[string]bool{
		"list_suites": false,
		"start_run":   false,
		"get_status":  false,
		"get_events":  false,
		"get_report":  false,
	}
	for _, tool := range tools.Tools {
		if _, ok := want[tool.Name]; ok {
			want[tool.Name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("tool %q not found in ListTools", name)
		}
	}
}

func TestServer_ListSuites(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	res := callTool(t, ctx, session, "list_suites", map[string]any{})
	suites, ok := res["suites"].([]any)
	if !ok || len(suites) == 0 {
		t.Fatalf("expected non-empty suites, got %v", res)
	}
	found := false
	for _, s := range suites {
		if s == "sumlink" {
			found = true
		}
	}
	if !found {
		t.Errorf("sumlink suite not listed: %v", suites)
	}
}

func TestServer_ReplayRun_FullFlow(t *testing.T) {
	srv, st := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	sessionID := startRun(t, ctx, session, nil)

	// get_report blocks until the run goroutine finishes.
	reportResult := callTool(t, ctx, session, "get_report", map[string]any{
		"session_id": sessionID,
	})
	if status, _ := reportResult["status"].(string); status != "done" {
		t.Fatalf("expected status=done, got %v", reportResult["status"])
	}

	summary, ok := reportResult["summary"].(map[string]any)
	if !ok {
		t.Fatalf("expected summary in report result: %v", reportResult)
	}
	planned, _ := summary["planned"].(float64)
	passed, _ := summary["passed"].(float64)
	if planned != 8 || passed != 8 {
		t.Errorf("expected 8 planned / 8 passed, got %v/%v", planned, passed)
	}

	analysis, ok := reportResult["analysis"].(map[string]any)
	if !ok {
		t.Fatalf("expected analysis in report result: %v", reportResult)
	}
	if _, ok := analysis["durations"].(map[string]any); !ok {
		t.Errorf("expected duration stats in analysis: %v", analysis)
	}

	// Completed run is persisted.
	rep, err := st.LatestReport()
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if rep.Summary.Passed != 8 {
		t.Errorf("stored report passed = %d, want 8", rep.Summary.Passed)
	}

	statusResult := callTool(t, ctx, session, "get_status", map[string]any{
		"session_id": sessionID,
	})
	if got, _ := statusResult["status"].(string); got != "done" {
		t.Errorf("expected session status done, got %v", got)
	}
	if got, _ := statusResult["phase"].(string); got != "done" {
		t.Errorf("expected engine phase done, got %v", got)
	}
}

func TestServer_GetEvents_SinceFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	sessionID := startRun(t, ctx, session, nil)

	// Block until done so the event log is final.
	callTool(t, ctx, session, "get_report", map[string]any{"session_id": sessionID})

	all := callTool(t, ctx, session, "get_events", map[string]any{
		"session_id": sessionID,
	})
	total, _ := all["total"].(float64)
	if total < 1 {
		t.Fatalf("expected at least 1 event, got %v", total)
	}
	events, _ := all["events"].([]any)
	if len(events) != int(total) {
		t.Errorf("events length %d != total %v", len(events), total)
	}

	types := make(map[string]bool)
	for _, e := range events {
		ev, _ := e.(map[string]any)
		typ, _ := ev["type"].(string)
		types[typ] = true
	}
	for _, want := range []string{"state", "dispatched", "verdict"} {
		if !types[want] {
			t.Errorf("expected %q event in log, got types %v", want, types)
		}
	}

	since := callTool(t, ctx, session, "get_events", map[string]any{
		"session_id": sessionID,
		"since":      total,
	})
	sinceEvents, _ := since["events"].([]any)
	if len(sinceEvents) != 0 {
		t.Errorf("since=total should return 0 events, got %d", len(sinceEvents))
	}
}

func TestServer_NoSession(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "get_status",
		Arguments: map[string]any{"session_id": "nonexistent"},
	})
	if err != nil {
		t.Fatalf("expected tool error, got transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError=true for missing session")
	}
}

func TestServer_SessionIDMismatch(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	startRun(t, ctx, session, nil)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "get_events",
		Arguments: map[string]any{"session_id": "wrong-id"},
	})
	if err != nil {
		t.Fatalf("expected tool error, got transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError=true for mismatched session_id")
	}
}

func TestServer_UnknownSuite(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx := context.Background()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "start_run",
		Arguments: map[string]any{"suite": "no-such-suite"},
	})
	if err != nil {
		t.Fatalf("expected tool error, got transport error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected IsError=true for unknown suite")
	}
}

func TestServer_StartAfterDone(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	first := startRun(t, ctx, session, nil)
	callTool(t, ctx, session, "get_report", map[string]any{"session_id": first})

	second := startRun(t, ctx, session, nil)
	if second == first {
		t.Fatal("expected a fresh session_id after the first run finished")
	}
}

func TestServer_DoubleStart_ForceReplaces(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	session := connectInMemory(t, ctx, srv)
	defer session.Close()

	first := startRun(t, ctx, session, nil)

	second := startRun(t, ctx, session, map[string]any{"force": true})
	if second == first {
		t.Fatal("force start should replace the session")
	}
	if got := srv.SessionID(); got != second {
		t.Errorf("server tracks session %s, want %s", got, second)
	}
}
