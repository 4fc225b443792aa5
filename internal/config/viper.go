package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g.
// CANVASFLOW_SERVER_ADDR.
const EnvPrefix = "CANVASFLOW"

// SetDefaults registers every default with v so that environment
// overrides resolve for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("providers.gemini.api_key", "")
	v.SetDefault("providers.gemini.base_url", d.Providers.Gemini.BaseURL)
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.base_url", "")
	v.SetDefault("providers.mock.enabled", d.Providers.Mock.Enabled)

	v.SetDefault("workflow.image_model", d.Workflow.ImageModel)
	v.SetDefault("workflow.video_model", d.Workflow.VideoModel)
	v.SetDefault("workflow.aspect_ratio", d.Workflow.AspectRatio)
	v.SetDefault("workflow.prompt", d.Workflow.Prompt)
	v.SetDefault("workflow.video_duration", d.Workflow.VideoDuration)
	v.SetDefault("workflow.poll_interval", d.Workflow.PollInterval)
	v.SetDefault("workflow.max_poll_attempts", d.Workflow.MaxPollAttempts)
	v.SetDefault("workflow.poll_timeout", d.Workflow.PollTimeout)

	v.SetDefault("catalog.file", d.Catalog.File)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("store.enabled", d.Store.Enabled)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("watch.pattern", d.Watch.Pattern)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_level", d.LogLevel)
}

// BindEnv enables CANVASFLOW_* overrides. Vendor keys also fall back to
// the conventional GEMINI_API_KEY and OPENAI_API_KEY variables.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("providers.gemini.api_key", EnvPrefix+"_PROVIDERS_GEMINI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return err
	}
	return v.BindEnv("providers.openai.api_key", EnvPrefix+"_PROVIDERS_OPENAI_API_KEY", "OPENAI_API_KEY")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return c, nil
}
