package catalog

import (
	"bytes"
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/canvasflow/internal/log"
)

//go:embed models/builtin.yaml
var builtinModels embed.FS

// file is the on-disk shape of a catalog file.
type file struct {
	Models []ModelConfig `yaml:"models"`
}

// LoadBuiltin returns the catalog embedded in the binary.
func LoadBuiltin() (*Catalog, error) {
	data, err := builtinModels.ReadFile("models/builtin.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading builtin catalog: %w", err)
	}
	models, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing builtin catalog: %w", err)
	}
	return New(models...)
}

// Parse decodes catalog YAML. Unknown fields are rejected so typos in a
// user catalog surface instead of silently dropping a setting.
func Parse(data []byte) ([]ModelConfig, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	for _, m := range f.Models {
		if err := m.validate(); err != nil {
			return nil, err
		}
	}
	return f.Models, nil
}

// Load returns the builtin catalog with the entries of userFile merged on
// top. An empty userFile or a missing file yields the builtin catalog.
func Load(userFile string) (*Catalog, error) {
	c, err := LoadBuiltin()
	if err != nil {
		return nil, err
	}
	if userFile == "" {
		return c, nil
	}

	data, err := os.ReadFile(userFile) //nolint:gosec // G304: path comes from user config
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn(log.CatCatalog, "User catalog not found, using builtin", "path", userFile)
			return c, nil
		}
		return nil, fmt.Errorf("reading catalog %s: %w", userFile, err)
	}

	extra, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", userFile, err)
	}
	merged, err := c.Merge(extra)
	if err != nil {
		return nil, err
	}
	log.Info(log.CatCatalog, "Loaded user catalog", "path", userFile, "models", len(extra))
	return merged, nil
}
