// Package catalog maps user-facing model identifiers to the provider that
// serves them, their modality and their credit cost.
//
// Entries are static data: the built-in table is embedded from
// models/builtin.yaml and an optional user file can add or override
// entries. A Catalog is immutable once built.
package catalog

import (
	"fmt"
	"sort"

	"github.com/zjrosen/canvasflow/internal/canvas"
)

// Modality is the kind of content a model generates.
type Modality string

const (
	ModalityImage Modality = "image"
	ModalityVideo Modality = "video"
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityImage, ModalityVideo, ModalityText, ModalityAudio:
		return true
	}
	return false
}

// ModelConfig is one immutable catalog entry.
type ModelConfig struct {
	ID         string   `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Provider   string   `yaml:"provider" json:"provider"`
	Type       Modality `yaml:"type" json:"type"`
	CreditCost int      `yaml:"credit_cost" json:"creditCost"`

	// VendorModel is the identifier sent to the provider's API.
	// Empty means the provider picks its own default.
	VendorModel string `yaml:"vendor_model,omitempty" json:"vendorModel,omitempty"`
}

func (m ModelConfig) validate() error {
	if m.ID == "" {
		return fmt.Errorf("model is missing an id")
	}
	if m.Provider == "" {
		return fmt.Errorf("model %s: provider is required", m.ID)
	}
	if !m.Type.Valid() {
		return fmt.Errorf("model %s: invalid type %q", m.ID, m.Type)
	}
	if m.CreditCost < 0 {
		return fmt.Errorf("model %s: credit_cost must not be negative", m.ID)
	}
	return nil
}

// Catalog is a lookup table of models keyed by id.
type Catalog struct {
	models []ModelConfig
	byID   map[string]int
}

// New builds a catalog. Duplicate or invalid entries are rejected.
func New(models ...ModelConfig) (*Catalog, error) {
	c := &Catalog{
		models: make([]ModelConfig, 0, len(models)),
		byID:   make(map[string]int, len(models)),
	}
	for _, m := range models {
		if err := m.validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		c.byID[m.ID] = len(c.models)
		c.models = append(c.models, m)
	}
	return c, nil
}

// MustNew is New for static tables in tests and wiring code.
func MustNew(models ...ModelConfig) *Catalog {
	c, err := New(models...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the entry for id.
func (c *Catalog) Lookup(id string) (ModelConfig, bool) {
	i, ok := c.byID[id]
	if !ok {
		return ModelConfig{}, false
	}
	return c.models[i], true
}

// Models returns all entries in declaration order.
func (c *Catalog) Models() []ModelConfig {
	out := make([]ModelConfig, len(c.models))
	copy(out, c.models)
	return out
}

// ByType returns the entries of one modality in declaration order.
func (c *Catalog) ByType(m Modality) []ModelConfig {
	var out []ModelConfig
	for _, model := range c.models {
		if model.Type == m {
			out = append(out, model)
		}
	}
	return out
}

// Providers returns the distinct provider names referenced by the catalog.
func (c *Catalog) Providers() []string {
	seen := make(map[string]struct{})
	for _, m := range c.models {
		seen[m.Provider] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Merge returns a new catalog with overrides applied on top of c.
// An override with an existing id replaces that entry in place; new ids
// are appended.
func (c *Catalog) Merge(overrides []ModelConfig) (*Catalog, error) {
	merged := c.Models()
	idx := make(map[string]int, len(merged))
	for i, m := range merged {
		idx[m.ID] = i
	}
	for _, o := range overrides {
		if i, ok := idx[o.ID]; ok {
			merged[i] = o
			continue
		}
		idx[o.ID] = len(merged)
		merged = append(merged, o)
	}
	return New(merged...)
}

// Cost returns the credit cost of a model, or 0 for unknown ids.
func (c *Catalog) Cost(id string) int {
	m, ok := c.Lookup(id)
	if !ok {
		return 0
	}
	return m.CreditCost
}

// EstimateCredits sums the cost of every generator node in nodes, using
// defaults for nodes that do not name a model. Unknown models cost nothing.
func (c *Catalog) EstimateCredits(nodes []canvas.Node, defaults map[canvas.NodeType]string) int {
	total := 0
	for _, n := range nodes {
		if !n.Type.IsGenerator() {
			continue
		}
		model := canvas.ModelOf(n.Data)
		if model == "" {
			model = defaults[n.Type]
		}
		total += c.Cost(model)
	}
	return total
}
