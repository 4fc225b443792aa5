package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/canvasflow/internal/log"
)

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# canvasflow configuration

# Vendor credentials. A vendor without an api key is not registered.
# GEMINI_API_KEY and OPENAI_API_KEY are read when these are empty.
providers:
  gemini:
    api_key: ""
    # base_url: https://generativelanguage.googleapis.com/v1beta
  openai:
    api_key: ""
    # base_url: https://api.openai.com/v1
  mock:
    enabled: false   # deterministic offline provider for the mock-* models

# Defaults applied to nodes that leave a field empty
workflow:
  image_model: gemini-imagen
  video_model: veo-2
  aspect_ratio: "1:1"
  prompt: A beautiful landscape
  video_duration: 5      # seconds
  poll_interval: 10s     # video operation polling
  max_poll_attempts: 60
  poll_timeout: 10m

# Extra models merged over the built-in catalog
# catalog:
#   file: ~/.canvasflow/models.yaml

# Reuse generation results for identical requests. While enabled, re-running
# a node with the same model, prompt and options returns the cached asset
# instead of generating a new one.
cache:
  enabled: false
  ttl: 10m

store:
  enabled: true
  # path: ~/.canvasflow/runs.db

server:
  addr: 127.0.0.1:8080

watch:
  pattern: "**/*.json"
  debounce: 300ms

# stderr log threshold: debug, info, warn, error (--debug logs everything
# to debug.log instead)
log_level: warn

# Features still being rolled out (also: --feature name[=bool])
# flags:
#   sequence-api: true       # serve POST /sequence
#   watch-sequential: true   # watch runs graphs through the sequential queue

# Tracing configuration
# Uncomment to enable distributed tracing of workflow runs
# tracing:
#   enabled: true
#   exporter: file          # "none", "file", "stdout", or "otlp"
#   file_path: ~/.canvasflow/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
