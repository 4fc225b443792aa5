package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/canvas"
	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/presentation"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

var errInvalidGraph = errors.New("graph is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate <graph.json>",
	Short: "Check a canvas graph without executing it",
	Long: `Check a canvas graph for cycles and dangling edges and print the
validation report as JSON. Exits non-zero when the graph is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		report := workflow.Validate(g.Nodes, g.Edges)
		if err := presentation.NewFormatter(cmd.OutOrStdout()).FormatResult(report); err != nil {
			return err
		}
		if !report.Valid {
			return errInvalidGraph
		}
		return nil
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate <graph.json>",
	Short: "Estimate the credits a graph would spend",
	Long: `Sum the catalog credit cost of every image and video node. Nodes
without a model are priced at the configured default model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := readGraph(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		cat, err := catalog.Load(cfg.Catalog.File)
		if err != nil {
			return err
		}

		credits := cat.EstimateCredits(g.Nodes, map[canvas.NodeType]string{
			canvas.TypeImage: cfg.Workflow.ImageModel,
			canvas.TypeVideo: cfg.Workflow.VideoModel,
		})
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatResult(struct {
			Credits int `json:"credits"`
		}{credits})
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(estimateCmd)
}
