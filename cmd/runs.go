package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/presentation"
	"github.com/zjrosen/canvasflow/internal/store"
	"github.com/zjrosen/canvasflow/internal/store/sqlite"
)

var (
	runsLimit int
	runsGraph string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Long: `List recorded runs as JSON, newest first.

Examples:
  canvasflow runs list
  canvasflow runs list --limit 5

  # Every run of one graph (hash from "canvasflow runs get")
  canvasflow runs list --graph 3f9a1c...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, closeFn, err := openRuns()
		if err != nil {
			return err
		}
		defer closeFn()

		runs, err := repo.List(cmd.Context(), store.ListOptions{Limit: runsLimit, GraphHash: runsGraph})
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatRuns(presentation.FromRuns(runs))
	},
}

var runsGetCmd = &cobra.Command{
	Use:   "get <run-id>",
	Short: "Print a recorded run with its graph and results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openRuns()
		if err != nil {
			return err
		}
		defer closeFn()

		run, err := repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatResult(run)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openRuns()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := repo.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
		return nil
	},
}

func init() {
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", store.DefaultListLimit, "maximum number of runs")
	runsListCmd.Flags().StringVar(&runsGraph, "graph", "", "only runs of the graph with this hash")

	runsCmd.AddCommand(runsListCmd, runsGetCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// openRuns opens the run store without building the execution stack.
func openRuns() (store.RunRepository, func(), error) {
	if !cfg.Store.Enabled {
		return nil, nil, fmt.Errorf("run history is disabled (store.enabled: false)")
	}
	db, err := sqlite.NewDB(cfg.Store.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening run store: %w", err)
	}
	return db.RunRepository(), func() { _ = db.Close() }, nil
}
