package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/api"
	"github.com/zjrosen/canvasflow/internal/flags"
	"github.com/zjrosen/canvasflow/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the workflow HTTP API so canvases and other tools can execute
graphs, browse run history and stream run events.

The server listens on server.addr (default: 127.0.0.1:8080).

Example:
  canvasflow serve                    # Start on the configured address
  canvasflow serve --addr :9090       # Start on port 9090
  canvasflow serve --addr 127.0.0.1:0 # Let the OS pick a port`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cfg, appOptions{store: true})
	if err != nil {
		return err
	}

	// Priority: --addr flag > config server.addr
	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	handlerCfg := api.HandlerConfig{
		Orchestrator: a.orchestrator,
		Catalog:      a.catalog,
		Registry:     a.registry,
		Runs:         a.runs,
		Events:       a.events,
		Version:      version,
	}
	if features.Enabled(flags.FlagSequenceAPI) {
		handlerCfg.Sequencer = a.sequencer
	}

	server, err := api.NewServer(api.ServerConfig{
		Addr:    addr,
		Tracer:  a.requestTracer(),
		Handler: handlerCfg,
	})
	if err != nil {
		closeApp(a)
		return fmt.Errorf("creating API server: %w", err)
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "canvasflow API listening on port %d\n", server.Port())
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")
	log.Info(log.CatAPI, "API server started", "addr", addr, "port", server.Port(), "providers", a.registry.Names())

	// Wait for shutdown signal or error
	var serveErr error
	select {
	case sig := <-sigCh:
		_, _ = fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
	case <-cmd.Context().Done():
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Ends open event streams so Stop does not wait on them.
	a.events.Close()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error(log.CatAPI, "Error stopping API server", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Error(log.CatAPI, "Error closing run store", "error", err)
	}

	_, _ = fmt.Fprintln(out, "Server stopped")
	return serveErr
}
