// Package config provides configuration types and defaults for canvasflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zjrosen/canvasflow/internal/log"
	"github.com/zjrosen/canvasflow/internal/provider"
	"github.com/zjrosen/canvasflow/internal/provider/gemini"
	"github.com/zjrosen/canvasflow/internal/provider/mock"
	"github.com/zjrosen/canvasflow/internal/provider/openai"
	"github.com/zjrosen/canvasflow/internal/tracing"
	"github.com/zjrosen/canvasflow/internal/workflow"
)

// Config holds all configuration options for canvasflow.
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Store     StoreConfig     `mapstructure:"store"`
	Tracing   tracing.Config  `mapstructure:"tracing"`
	Server    ServerConfig    `mapstructure:"server"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Debug     bool            `mapstructure:"debug"`
	// LogLevel is the stderr threshold when debug logging is off:
	// debug, info, warn or error.
	LogLevel string `mapstructure:"log_level"`

	// Flags turns on features still being rolled out, keyed by flag name
	// (see package flags).
	Flags map[string]bool `mapstructure:"flags"`
}

// ProvidersConfig holds vendor credentials. A vendor without an api key is
// not registered.
type ProvidersConfig struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Mock   MockConfig   `mapstructure:"mock"`
}

// GeminiConfig holds Gemini (Imagen, Veo, text) settings.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // default: public v1beta endpoint
}

// OpenAIConfig holds OpenAI settings.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// MockConfig enables the deterministic offline provider.
type MockConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WorkflowConfig holds node defaults and video polling bounds.
type WorkflowConfig struct {
	workflow.Settings `mapstructure:",squash"`

	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts int           `mapstructure:"max_poll_attempts"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout"`
}

// CatalogConfig points at an optional user catalog merged over the
// embedded one.
type CatalogConfig struct {
	File string `mapstructure:"file"`
}

// CacheConfig controls the generation result cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// StoreConfig controls run history persistence.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // default: ~/.canvasflow/runs.db
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig holds graph watcher settings.
type WatchConfig struct {
	Pattern  string        `mapstructure:"pattern"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// DefaultStorePath returns ~/.canvasflow/runs.db, or a relative path when
// the home directory is unavailable.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".canvasflow", "runs.db")
	}
	return filepath.Join(home, ".canvasflow", "runs.db")
}

// DefaultTracesFilePath returns ~/.canvasflow/traces/traces.jsonl or empty
// string if the home directory is unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".canvasflow", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	tr := tracing.DefaultConfig()
	tr.FilePath = DefaultTracesFilePath()
	return Config{
		Providers: ProvidersConfig{
			Gemini: GeminiConfig{BaseURL: gemini.DefaultBaseURL},
		},
		Workflow: WorkflowConfig{
			Settings:        workflow.DefaultSettings(),
			PollInterval:    gemini.DefaultPollInterval,
			MaxPollAttempts: gemini.DefaultMaxPollAttempts,
			PollTimeout:     gemini.DefaultPollTimeout,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     10 * time.Minute,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    DefaultStorePath(),
		},
		Tracing: tr,
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Watch: WatchConfig{
			Pattern:  "**/*.json",
			Debounce: 300 * time.Millisecond,
		},
		LogLevel: "warn",
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := ValidateWorkflow(c.Workflow); err != nil {
		return err
	}
	if err := ValidateCache(c.Cache); err != nil {
		return err
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when the store is enabled")
	}
	if err := ValidateTracing(c.Tracing); err != nil {
		return err
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", c.Watch.Debounce)
	}
	return nil
}

// ValidateWorkflow checks node defaults and polling bounds.
func ValidateWorkflow(w WorkflowConfig) error {
	if w.VideoDuration < 0 {
		return fmt.Errorf("workflow.video_duration must not be negative, got %d", w.VideoDuration)
	}
	if w.PollInterval < 0 {
		return fmt.Errorf("workflow.poll_interval must not be negative, got %v", w.PollInterval)
	}
	if w.MaxPollAttempts < 0 {
		return fmt.Errorf("workflow.max_poll_attempts must not be negative, got %d", w.MaxPollAttempts)
	}
	if w.PollTimeout < 0 {
		return fmt.Errorf("workflow.poll_timeout must not be negative, got %v", w.PollTimeout)
	}
	return nil
}

// ValidateCache checks cache settings.
func ValidateCache(c CacheConfig) error {
	if c.Enabled && c.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when the cache is enabled, got %v", c.TTL)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tr tracing.Config) error {
	if tr.SampleRate < 0.0 || tr.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tr.SampleRate)
	}

	if tr.Exporter != "" {
		switch tr.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tr.Exporter)
		}
	}

	// Path requirements only matter when tracing is on.
	if tr.Enabled {
		if tr.Exporter == "file" && tr.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tr.Exporter == "otlp" && tr.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}
	return nil
}

// BuildProviders constructs every provider the configuration enables.
// Gemini and OpenAI are registered when they have an api key; the mock
// provider when enabled.
func (c Config) BuildProviders() ([]provider.Provider, error) {
	var out []provider.Provider

	if c.Providers.Gemini.APIKey != "" {
		g, err := gemini.New(gemini.Config{
			APIKey:          c.Providers.Gemini.APIKey,
			BaseURL:         c.Providers.Gemini.BaseURL,
			PollInterval:    c.Workflow.PollInterval,
			MaxPollAttempts: c.Workflow.MaxPollAttempts,
			PollTimeout:     c.Workflow.PollTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring gemini: %w", err)
		}
		out = append(out, g)
	}

	if c.Providers.OpenAI.APIKey != "" {
		o, err := openai.New(openai.Config{
			APIKey:  c.Providers.OpenAI.APIKey,
			BaseURL: c.Providers.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring openai: %w", err)
		}
		out = append(out, o)
	}

	if c.Providers.Mock.Enabled {
		out = append(out, mock.New())
	}

	names := make([]string, len(out))
	for i, p := range out {
		names[i] = p.Name()
	}
	log.Debug(log.CatConfig, "providers configured", "providers", names)
	return out, nil
}
