package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/presentation"
	"github.com/zjrosen/canvasflow/internal/sequencer"
)

var sequenceCmd = &cobra.Command{
	Use:   "sequence <graph.json>",
	Short: "Run a canvas through the sequential generation queue",
	Long: `Run the image and video nodes of a canvas one at a time, in the
order they appear, the way the canvas "run all" button does: the first
generator is queued, each completion queues the next idle generator,
and an error stops the chain.

Status transitions are printed to stderr as they happen; the final node
states and results are printed to stdout as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		a, err := newApp(cfg, appOptions{})
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := a.sequencer.Run(ctx, g.Nodes, g.Edges, func(t sequencer.Transition) {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s -> %s\n", t.NodeID, t.From, t.To)
		})
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatResult(out)
	},
}

func init() {
	rootCmd.AddCommand(sequenceCmd)
}
