package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Scoring  ScoringConfig  `mapstructure:"scoring"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	UI       UIConfig       `mapstructure:"ui"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScoringConfig points at an optional scoring rules file.
type ScoringConfig struct {
	Path string `mapstructure:"path"`
}

// HTTPConfig holds the JSON API listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Path returns the config file location: $CLIENTHEALTH_CONFIG or
// ~/.config/clienthealth/config.toml.
func Path() string {
	if p := os.Getenv("CLIENTHEALTH_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "clienthealth", "config.toml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", filepath.Join(os.Getenv("HOME"), ".local", "share", "clienthealth", "clienthealth.db"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("scoring.path", "")
	v.SetDefault("http.addr", "127.0.0.1:8087")
	v.SetDefault("ui.timezone", "UTC")
}

// Load reads configuration from file and env. Env var overrides use prefix CLIENTHEALTH_.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CLIENTHEALTH_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "clienthealth"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CLIENTHEALTH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.format", cfg.Log.Format)
	v.Set("scoring.path", cfg.Scoring.Path)
	v.Set("http.addr", cfg.HTTP.Addr)
	v.Set("ui.timezone", cfg.UI.Timezone)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
