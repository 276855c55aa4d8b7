package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[database]\npath = \"/tmp/ch.db\"\n\n[http]\naddr = \":9999\"\n"), 0o644))

	t.Setenv("CLIENTHEALTH_CONFIG", path)
	t.Setenv("CLIENTHEALTH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/ch.db", cfg.Database.Path)
	require.Equal(t, ":9999", cfg.HTTP.Addr)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
	require.Equal(t, "UTC", cfg.UI.Timezone)
	require.Empty(t, cfg.Scoring.Path)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CLIENTHEALTH_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "127.0.0.1:8087", cfg.HTTP.Addr)
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	t.Setenv("CLIENTHEALTH_CONFIG", path)

	want := Config{
		Database: DatabaseConfig{Path: "/data/ch.db"},
		Log:      LogConfig{Level: "warn", Format: "json"},
		Scoring:  ScoringConfig{Path: "/etc/clienthealth/scoring.toml"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		UI:       UIConfig{Timezone: "Australia/Melbourne"},
	}
	require.NoError(t, Save(want))
	require.FileExists(t, path)

	got, err := Load()
	require.NoError(t, err)
	require.Equal(t, want, got)
}
