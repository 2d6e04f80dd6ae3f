package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "FRAMEWIZ"

// Side directory naming policies for exports.
const (
	SideNamesLocalized = "localized"
	SideNamesPlain     = "plain"
)

type Config struct {
	DataDir       string
	OutputDir     string
	DatabaseURL   string
	LogLevel      string
	WatchDebounce time.Duration
	SideNames     string
}

// Load reads .env, then framewiz.yaml (working directory or $FRAMEWIZ_DATA_DIR),
// then FRAMEWIZ_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("framewiz")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir := v.GetString("data_dir"); dir != "" && dir != "." {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		log.Debug().Str("file", v.ConfigFileUsed()).Msg("Loaded config file")
	}

	return FromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("output_dir", ".")
	v.SetDefault("database_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("watch_debounce", "300ms")
	v.SetDefault("side_names", SideNamesLocalized)
}

// FromViper builds a Config from an already-populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DataDir:       v.GetString("data_dir"),
		OutputDir:     v.GetString("output_dir"),
		DatabaseURL:   v.GetString("database_url"),
		LogLevel:      strings.ToLower(v.GetString("log_level")),
		WatchDebounce: v.GetDuration("watch_debounce"),
		SideNames:     strings.ToLower(v.GetString("side_names")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	switch c.SideNames {
	case SideNamesLocalized, SideNamesPlain:
	default:
		return fmt.Errorf("side_names %q: want %s or %s", c.SideNames, SideNamesLocalized, SideNamesPlain)
	}
	if c.WatchDebounce <= 0 {
		return fmt.Errorf("watch_debounce must be positive, got %s", c.WatchDebounce)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
