package presentation

import (
	"time"

	"github.com/zjrosen/canvasflow/internal/catalog"
	"github.com/zjrosen/canvasflow/internal/store"
)

// ModelDTO represents a catalog entry for presentation
type ModelDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Provider   string `json:"provider"`
	Type       string `json:"type"`
	CreditCost int    `json:"creditCost"`
	Available  bool   `json:"available"` // provider is configured
}

// RunSummaryDTO represents one row of run history
type RunSummaryDTO struct {
	RunID       string    `json:"runId"`
	GraphHash   string    `json:"graphHash"`
	Source      string    `json:"source,omitempty"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	CreditsUsed int       `json:"creditsUsed"`
	NodeCount   int       `json:"nodeCount"`
	TotalTimeMS int64     `json:"totalTimeMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FromCatalogModels converts catalog entries, marking those whose provider
// appears in configured.
func FromCatalogModels(models []catalog.ModelConfig, configured []string) []ModelDTO {
	have := make(map[string]bool, len(configured))
	for _, name := range configured {
		have[name] = true
	}

	dtos := make([]ModelDTO, 0, len(models))
	for _, m := range models {
		dtos = append(dtos, ModelDTO{
			ID:         m.ID,
			Name:       m.Name,
			Provider:   m.Provider,
			Type:       string(m.Type),
			CreditCost: m.CreditCost,
			Available:  have[m.Provider],
		})
	}
	return dtos
}

// FromRuns converts history records to summaries. The graph hash is
// shortened to 12 characters.
func FromRuns(runs []*store.Run) []RunSummaryDTO {
	dtos := make([]RunSummaryDTO, 0, len(runs))
	for _, r := range runs {
		hash := r.GraphHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		dtos = append(dtos, RunSummaryDTO{
			RunID:       r.ID,
			GraphHash:   hash,
			Source:      r.Source,
			Success:     r.Success,
			Error:       r.Error,
			CreditsUsed: r.CreditsUsed,
			NodeCount:   r.NodeCount,
			TotalTimeMS: r.TotalTime.Milliseconds(),
			CreatedAt:   r.CreatedAt,
		})
	}
	return dtos
}
