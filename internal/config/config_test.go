package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/canvasflow/internal/provider/gemini"
	"github.com/zjrosen/canvasflow/internal/provider/mock"
	"github.com/zjrosen/canvasflow/internal/tracing"
)

func TestDefaults_Valid(t *testing.T) {
	d := Defaults()

	require.NoError(t, d.Validate())
	require.Equal(t, "gemini-imagen", d.Workflow.ImageModel)
	require.Equal(t, "veo-2", d.Workflow.VideoModel)
	require.Equal(t, 5, d.Workflow.VideoDuration)
	require.Equal(t, gemini.DefaultPollTimeout, d.Workflow.PollTimeout)
	require.False(t, d.Cache.Enabled)
	require.False(t, d.Providers.Mock.Enabled)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative duration", func(c *Config) { c.Workflow.VideoDuration = -1 }, "workflow.video_duration"},
		{"negative poll interval", func(c *Config) { c.Workflow.PollInterval = -time.Second }, "workflow.poll_interval"},
		{"negative attempts", func(c *Config) { c.Workflow.MaxPollAttempts = -2 }, "workflow.max_poll_attempts"},
		{"negative poll timeout", func(c *Config) { c.Workflow.PollTimeout = -time.Second }, "workflow.poll_timeout"},
		{"cache ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache.ttl"},
		{"store path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"sample rate", func(c *Config) { c.Tracing.SampleRate = 1.5 }, "sample_rate"},
		{"exporter", func(c *Config) { c.Tracing.Exporter = "jaeger" }, "tracing.exporter"},
		{"server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Defaults()
			tt.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledSectionsSkipChecks(t *testing.T) {
	c := Defaults()
	c.Cache = CacheConfig{Enabled: false}
	c.Store = StoreConfig{Enabled: false}
	require.NoError(t, c.Validate())
}

func TestValidateTracing(t *testing.T) {
	require.NoError(t, ValidateTracing(tracing.Config{}))
	require.NoError(t, ValidateTracing(tracing.Config{Exporter: "file"}), "disabled tracing needs no path")

	err := ValidateTracing(tracing.Config{Enabled: true, Exporter: "file"})
	require.ErrorContains(t, err, "file_path")

	err = ValidateTracing(tracing.Config{Enabled: true, Exporter: "otlp"})
	require.ErrorContains(t, err, "otlp_endpoint")
}

func TestBuildProviders(t *testing.T) {
	c := Defaults()
	ps, err := c.BuildProviders()
	require.NoError(t, err)
	require.Empty(t, ps, "no keys and no mock means no providers")

	c.Providers.Gemini.APIKey = "g"
	c.Providers.OpenAI.APIKey = "o"
	c.Providers.Mock.Enabled = true
	ps, err = c.BuildProviders()
	require.NoError(t, err)

	names := make([]string, len(ps))
	for i, p := range ps {
		names[i] = p.Name()
	}
	require.Equal(t, []string{"gemini", "openai", mock.Name}, names)
}

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func TestLoad_DefaultsOnly(t *testing.T) {
	c, err := Load(newViper(t))
	require.NoError(t, err)

	want := Defaults()
	require.Equal(t, want.Workflow, c.Workflow)
	require.Equal(t, want.Server, c.Server)
	require.Equal(t, want.Watch, c.Watch)
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
providers:
  mock:
    enabled: true
workflow:
  image_model: mock-image
  poll_interval: 2s
cache:
  ttl: 1h
server:
  addr: ":9090"
log_level: info
flags:
  sequence-api: true
`), 0o600))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	c, err := Load(v)
	require.NoError(t, err)

	require.True(t, c.Providers.Mock.Enabled)
	require.Equal(t, "mock-image", c.Workflow.ImageModel)
	require.Equal(t, "veo-2", c.Workflow.VideoModel, "unset keys keep defaults")
	require.Equal(t, 2*time.Second, c.Workflow.PollInterval)
	require.Equal(t, time.Hour, c.Cache.TTL)
	require.Equal(t, ":9090", c.Server.Addr)
	require.Equal(t, "info", c.LogLevel)
	require.Equal(t, map[string]bool{"sequence-api": true}, c.Flags)
}

func TestLoad_EnvFallbackKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-gemini-env")
	t.Setenv("CANVASFLOW_PROVIDERS_OPENAI_API_KEY", "prefixed")
	t.Setenv("OPENAI_API_KEY", "ignored")
	t.Setenv("CANVASFLOW_SERVER_ADDR", ":7000")

	c, err := Load(newViper(t))
	require.NoError(t, err)

	require.Equal(t, "from-gemini-env", c.Providers.Gemini.APIKey)
	require.Equal(t, "prefixed", c.Providers.OpenAI.APIKey, "prefixed variable wins")
	require.Equal(t, ":7000", c.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	v := newViper(t)
	v.Set("tracing.sample_rate", 3.0)

	_, err := Load(v)
	require.ErrorContains(t, err, "invalid config")
}

func TestWriteDefaultConfig_LoadsToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	c, err := Load(v)
	require.NoError(t, err)

	want := Defaults()
	require.Equal(t, want.Workflow, c.Workflow)
	require.Equal(t, want.Cache, c.Cache)
	require.Equal(t, want.Watch, c.Watch)
	require.Equal(t, want.Server, c.Server)
	require.Equal(t, want.LogLevel, c.LogLevel)
	require.Empty(t, c.Flags, "flags are commented out")
}

func TestSaveValue_PreservesComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	require.NoError(t, SaveValue(path, "providers.gemini.api_key", "secret"))
	require.NoError(t, SaveValue(path, "catalog.file", "/tmp/models.yaml"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	require.Contains(t, text, "# Vendor credentials")
	require.True(t, strings.Contains(text, "api_key: secret"), text)

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	c, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "secret", c.Providers.Gemini.APIKey)
	require.Equal(t, "/tmp/models.yaml", c.Catalog.File)
	require.Equal(t, "veo-2", c.Workflow.VideoModel)
}

func TestSaveValue_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SaveValue(path, "server.addr", "localhost:1234"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "server:\n  addr: localhost:1234\n", string(data))
}

func TestSaveValue_InvalidKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SaveValue(path, "server..addr", "x"))
	require.Error(t, SaveValue(path, "", "x"))
}
