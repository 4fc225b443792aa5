package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/presentation"
)

var (
	modelsType     string
	modelsProvider string
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List catalog models",
	Long: `List the models in the catalog as JSON.

"available" is true when the model's provider is configured.

Examples:
  # List every model
  canvasflow models

  # Filter by type
  canvasflow models --type image
  canvasflow models -t video

  # Filter by provider
  canvasflow models --provider gemini

  # Parse specific fields with jq
  canvasflow models | jq '.[] | select(.available) | .id'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cat, err := catalog.Load(cfg.Catalog.File)
		if err != nil {
			return err
		}

		var models []catalog.ModelConfig
		if cmd.Flags().Changed("type") {
			m := catalog.Modality(modelsType)
			if !m.Valid() {
				return fmt.Errorf("invalid model type %q: must be image, video, text or audio", modelsType)
			}
			models = cat.ByType(m)
		} else {
			models = cat.Models()
		}
		if modelsProvider != "" {
			models = filterByProvider(models, modelsProvider)
		}

		providers, err := cfg.BuildProviders()
		if err != nil {
			return err
		}
		configured := make([]string, len(providers))
		for i, p := range providers {
			configured[i] = p.Name()
		}

		return presentation.NewFormatter(cmd.OutOrStdout()).FormatModels(
			presentation.FromCatalogModels(models, configured))
	},
}

func init() {
	modelsCmd.Flags().StringVarP(&modelsType, "type", "t", "", "Filter by model type (image, video, text, audio)")
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "Filter by provider name")
	rootCmd.AddCommand(modelsCmd)
}

// filterByProvider keeps the models served by name
func filterByProvider(models []catalog.ModelConfig, name string) []catalog.ModelConfig {
	result := make([]catalog.ModelConfig, 0)
	for _, m := range models {
		if m.Provider == name {
			result = append(result, m)
		}
	}
	return result
}
