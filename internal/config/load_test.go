package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.False(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.NotEmpty(t, loaded.Warnings)
	require.Equal(t, Default().MaxHistory, loaded.Config.MaxHistory)

	// The default file should now exist and round-trip.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	var cfg Config
	require.NoError(t, json.Unmarshal(content, &cfg))
	require.True(t, cfg.Hotkey.Ctrl)
	require.True(t, cfg.Hotkey.Super)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model_path": "/models/ggml-small.en.bin",
		"hotkey": {"ctrl": true, "super": false, "trigger_key": "space"},
		"vad": {"enabled": true, "threshold": 0.02}
	}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, "/models/ggml-small.en.bin", loaded.Config.ModelPath)
	require.Equal(t, "space", loaded.Config.Hotkey.TriggerKey)
	require.True(t, loaded.Config.VAD.Enabled)
	// Absent keys keep defaults.
	require.Equal(t, 50, loaded.Config.MaxHistory)
	require.True(t, loaded.Config.AutoPaste)
	require.Equal(t, "local", loaded.Config.Backend)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model_path": `), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvePathPrefersExplicit(t *testing.T) {
	path, err := ResolvePath("/tmp/custom.json")
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.json", path)
}

func TestResolvePathUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	path, err := ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/xdg/config/dictata/config.json", path)
}
