package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir, false)
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", cfg.Addr)
	require.Equal(t, "https://api.openai.com/v1", cfg.Provider.BaseURL)
	require.False(t, cfg.Thinking)
	require.Equal(t, filepath.Join(dir, ".tandem"), cfg.Options.DataDir)
	require.Equal(t, filepath.Join(dir, ".tandem", "tandem.log"), cfg.Options.LogFile)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `{
		"addr": "0.0.0.0:9999",
		"provider": {"model": "local-model", "base_url": "http://localhost:1234/v1"},
		"thinking": true,
		"mcp": [{"name": "time", "command": "tandem", "args": ["mcptime"]}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tandem.json"), []byte(content), 0o644))

	cfg, err := Load(dir, false)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9999", cfg.Addr)
	require.Equal(t, "local-model", cfg.Provider.Model)
	require.True(t, cfg.Thinking)
	require.Len(t, cfg.MCP, 1)
	require.Equal(t, "time", cfg.MCP[0].Name)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TANDEM_ADDR", "localhost:7777")
	t.Setenv("TANDEM_MODEL", "env-model")
	t.Setenv("TANDEM_THINKING", "true")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(dir, false)
	require.NoError(t, err)
	require.Equal(t, "localhost:7777", cfg.Addr)
	require.Equal(t, "env-model", cfg.Provider.Model)
	require.Equal(t, "sk-test", cfg.Provider.APIKey)
	require.True(t, cfg.Thinking)
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tandem.json"), []byte("{nope"), 0o644))

	_, err := Load(dir, false)
	require.Error(t, err)
}

func TestLoadDebugFlagWins(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, true)
	require.NoError(t, err)
	require.True(t, cfg.Options.Debug)
}
