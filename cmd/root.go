package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/canvasflow/internal/config"
	"github.com/zjrosen/canvasflow/internal/flags"
	"github.com/zjrosen/canvasflow/internal/log"
)

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
	cfgErr    error

	// configPath is the file the configuration was read from, or where
	// "config set" writes when none was found.
	configPath string

	logCleanup func()

	featureSpecs []string
	features     *flags.Registry
)

// defaultConfigPath is created on first use when no config file exists.
var defaultConfigPath = filepath.Join(".canvasflow", "config.yaml")

var rootCmd = &cobra.Command{
	Use:   "canvasflow",
	Short: "Run AI canvas workflows",
	Long: `canvasflow executes node-and-edge canvas graphs: text, image, video
and chat nodes wired together, each generator calling a model from the
catalog. Graphs run headless from the command line, from a watched
directory, or through the HTTP API.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .canvasflow/config.yaml or ~/.config/canvasflow/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"enable debug logging")
	rootCmd.PersistentFlags().StringArrayVar(&featureSpecs, "feature", nil,
		"turn a feature flag on (name) or off (name=false); repeatable")
}

func initConfig() {
	v := viper.New()
	config.SetDefaults(v)
	if err := config.BindEnv(v); err != nil {
		cfgErr = fmt.Errorf("binding environment: %w", err)
		return
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .canvasflow/config.yaml (current directory)
		// 2. ~/.config/canvasflow/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			v.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			v.AddConfigPath(filepath.Join(home, ".config", "canvasflow"))
			v.SetConfigName("config")
			v.SetConfigType("yaml")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// No config file anywhere - create the default one.
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				v.SetConfigFile(defaultConfigPath)
				_ = v.ReadInConfig()
			}
			// If write fails, continue with defaults.
		default:
			cfgErr = fmt.Errorf("reading config: %w", err)
			return
		}
	}

	configPath = v.ConfigFileUsed()
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, cfgErr = config.Load(v)
}

// setup runs before every command: it surfaces config errors, resolves
// feature flags and starts logging. Entries at log_level and above reach
// stderr; --debug (or debug: true) writes everything to the debug log
// instead.
func setup(cmd *cobra.Command, _ []string) error {
	if cfgErr != nil && !skipsConfig(cmd) {
		return cfgErr
	}

	overrides, err := flags.ParseOverrides(featureSpecs)
	if err != nil {
		return err
	}
	features = flags.New(cfg.Flags).With(overrides)

	if debugFlag || cfg.Debug || os.Getenv("CANVASFLOW_DEBUG") != "" {
		logPath := os.Getenv("CANVASFLOW_LOG")
		if logPath == "" {
			logPath = "debug.log"
		}
		cleanup, err := log.Init(logPath)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.SetMinLevel(log.LevelDebug)
		log.Info(log.CatConfig, "canvasflow starting", "version", version, "config", configPath, "logPath", logPath)
		return nil
	}

	log.InitWriter(cmd.ErrOrStderr(), log.ParseLevel(cfg.LogLevel))
	return nil
}

// skipsConfig reports whether cmd can run with a broken config file.
// The config subcommands exist to repair one.
func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == configCmd {
			return true
		}
	}
	return false
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
