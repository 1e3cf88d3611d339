package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"playtest/internal/logging"
	mcpserver "playtest/internal/mcp"
	"playtest/internal/store"
)

var serveFlags struct {
	dbPath    string
	memory    bool
	logLevel  string
	logFormat string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing list_suites, start_run,
get_status, get_events and get_report as tools, so an agent can drive
orchestration runs and poll their progress.

The server monitors for parent process death and self-terminates when the
client disconnects, preventing zombie processes.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.dbPath, "db", store.DefaultDBPath, "Store DB path for finished reports")
	f.BoolVar(&serveFlags.memory, "memory", false, "Keep reports in memory only")
	f.StringVar(&serveFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&serveFlags.logFormat, "log-format", "text", "Log format (text, json)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	logging.Init(logging.ParseLevel(serveFlags.logLevel), serveFlags.logFormat)

	var st store.Store
	if serveFlags.memory {
		st = store.NewMemStore()
	} else {
		s, err := store.Open(serveFlags.dbPath)
		if err != nil {
			return err
		}
		st = s
	}
	defer st.Close()

	srv := mcpserver.NewServer(st)
	defer srv.Shutdown()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting playtest MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
