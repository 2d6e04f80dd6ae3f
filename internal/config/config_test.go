package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(v *viper.Viper)
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:  "defaults",
			setup: func(v *viper.Viper) {},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ".", cfg.DataDir)
				assert.Equal(t, 300*time.Millisecond, cfg.WatchDebounce)
				assert.Equal(t, SideNamesLocalized, cfg.SideNames)
				assert.Equal(t, zerolog.InfoLevel, cfg.Level())
				assert.Empty(t, cfg.DatabaseURL)
			},
		},
		{
			name: "overrides",
			setup: func(v *viper.Viper) {
				v.Set("data_dir", "/srv/wizard")
				v.Set("side_names", "PLAIN")
				v.Set("log_level", "debug")
				v.Set("watch_debounce", "1s")
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/srv/wizard", cfg.DataDir)
				assert.Equal(t, SideNamesPlain, cfg.SideNames)
				assert.Equal(t, zerolog.DebugLevel, cfg.Level())
				assert.Equal(t, time.Second, cfg.WatchDebounce)
			},
		},
		{
			name:        "invalid side names",
			setup:       func(v *viper.Viper) { v.Set("side_names", "french") },
			expectError: true,
		},
		{
			name:        "invalid log level",
			setup:       func(v *viper.Viper) { v.Set("log_level", "loud") },
			expectError: true,
		},
		{
			name:        "non-positive debounce",
			setup:       func(v *viper.Viper) { v.Set("watch_debounce", "0s") },
			expectError: true,
		},
		{
			name:        "empty data dir",
			setup:       func(v *viper.Viper) { v.Set("data_dir", "") },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			tt.setup(v)

			cfg, err := FromViper(v)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "framewiz.yaml"),
		[]byte("output_dir: /exports\nside_names: plain\n"), 0644))

	t.Setenv("FRAMEWIZ_DATA_DIR", dir)
	t.Setenv("FRAMEWIZ_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "/exports", cfg.OutputDir)
	assert.Equal(t, SideNamesPlain, cfg.SideNames)
	assert.Equal(t, zerolog.WarnLevel, cfg.Level())
}
