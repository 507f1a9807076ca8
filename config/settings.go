package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override settings,
// e.g. RUNPIPE_LOG_LEVEL=debug or RUNPIPE_ASYNC_MAX_CONCURRENT=4.
const EnvPrefix = "RUNPIPE"

// Settings is the runtime configuration of the runpipe command.
type Settings struct {
	// Pipelines is the path of the YAML definitions file.
	Pipelines string        `mapstructure:"pipelines" validate:"required"`
	Log       LogSettings   `mapstructure:"log"`
	Store     StoreSettings `mapstructure:"store"`
	Async     AsyncSettings `mapstructure:"async"`
	Telemetry Telemetry     `mapstructure:"telemetry"`
}

// LogSettings selects the zerolog level and output format.
type LogSettings struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `mapstructure:"format" validate:"oneof=json console pretty"`
}

// StoreSettings configures the run history store. An empty DSN disables it.
type StoreSettings struct {
	DSN string `mapstructure:"dsn"`
}

// AsyncSettings bounds the supervisor that runs async hooks.
type AsyncSettings struct {
	MaxConcurrent   int64         `mapstructure:"max_concurrent" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// Telemetry toggles the OpenTelemetry step wrappers.
type Telemetry struct {
	Tracing bool `mapstructure:"tracing"`
	Metrics bool `mapstructure:"metrics"`
}

type settingsOptions struct {
	envFile string
}

// SettingsOption customizes LoadSettings.
type SettingsOption func(*settingsOptions)

// WithEnvFile loads environment variables from path before reading settings.
// Variables already set in the process environment win.
func WithEnvFile(path string) SettingsOption {
	return func(o *settingsOptions) { o.envFile = path }
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipelines", "pipelines.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.dsn", "")
	v.SetDefault("async.max_concurrent", 16)
	v.SetDefault("async.shutdown_timeout", "10s")
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("telemetry.metrics", false)
}

// LoadSettings reads settings from configFile (YAML, optional), then from a
// .env file, then from RUNPIPE_* environment variables. Later sources win.
// Without WithEnvFile, ./.env is loaded when it exists.
func LoadSettings(configFile string, opts ...SettingsOption) (*Settings, error) {
	o := settingsOptions{envFile: ".env"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.envFile != "" {
		if _, err := os.Stat(o.envFile); err == nil {
			if err := godotenv.Load(o.envFile); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", o.envFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", configFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
