package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/presentation"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// errRunFailed makes the process exit non-zero after the result has
// been printed.
var errRunFailed = errors.New("workflow run failed")

var (
	runNoStore  bool
	runProgress bool
)

var runCmd = &cobra.Command{
	Use:   "run <graph.json>",
	Short: "Execute a canvas graph",
	Long: `Execute every node of a canvas graph in dependency order and print
the execution result as JSON.

The graph file holds {"nodes": [...], "edges": [...]} as saved by the
canvas. Use "-" to read it from stdin. The run is recorded in the run
history unless --no-store is given.

Examples:
  canvasflow run story.json
  canvasflow run story.json --progress
  cat story.json | canvasflow run - | jq '.results[].output'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := newApp(cfg, appOptions{store: !runNoStore})
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var onProgress workflow.ProgressFunc
		if runProgress {
			onProgress = func(id canvas.NodeID, status workflow.ProgressStatus) {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%-8s %s\n", status, id)
			}
		}

		res := a.orchestrator.Execute(ctx, g.Nodes, g.Edges, onProgress)
		a.record(context.WithoutCancel(ctx), g, res, args[0])

		if err := presentation.NewFormatter(cmd.OutOrStdout()).FormatResult(res); err != nil {
			return err
		}
		if !res.Success {
			return errRunFailed
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "do not record the run in history")
	runCmd.Flags().BoolVarP(&runProgress, "progress", "p", false, "print node progress to stderr")
	rootCmd.AddCommand(runCmd)
}

// closeApp shuts an app down with a bounded deadline, logging failures.
func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "warning: shutdown: %v\n", err)
	}
}
