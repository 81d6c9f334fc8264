// Package config loads the tandem configuration from a JSON file plus
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const configFilename = "tandem.json"

// Provider configures the upstream chat-completion endpoint.
type Provider struct {
	BaseURL   string `json:"base_url,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int64  `json:"max_tokens,omitempty"`
}

// MCPServer configures a single MCP tool server connection.
type MCPServer struct {
	Name      string   `json:"name"`
	Transport string   `json:"transport,omitempty"` // "stdio" (default) or "http"
	Command   string   `json:"command,omitempty"`
	Args      []string `json:"args,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
}

// Options holds process-level settings.
type Options struct {
	Debug   bool   `json:"debug,omitempty"`
	DataDir string `json:"data_dir,omitempty"`
	LogFile string `json:"log_file,omitempty"`
}

type Config struct {
	Addr     string      `json:"addr,omitempty"`
	Provider Provider    `json:"provider"`
	Thinking bool        `json:"thinking,omitempty"`
	MCP      []MCPServer `json:"mcp,omitempty"`
	Options  Options     `json:"options,omitempty"`
}

// Load reads the configuration from workingDir/tandem.json, applies
// environment overrides, and fills in defaults. A missing config file is not
// an error; the environment alone can configure the server.
func Load(workingDir string, debug bool) (*Config, error) {
	// Pick up provider keys from a local .env if present.
	_ = godotenv.Load(filepath.Join(workingDir, ".env"))

	cfg := &Config{
		Addr: "localhost:8080",
		Provider: Provider{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4.1",
		},
	}

	data, err := os.ReadFile(filepath.Join(workingDir, configFilename))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// fine, env-only configuration
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configFilename, err)
		}
	}

	if v := os.Getenv("TANDEM_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("TANDEM_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("TANDEM_THINKING"); v == "1" || v == "true" {
		cfg.Thinking = true
	}

	cfg.Options.Debug = cfg.Options.Debug || debug
	if cfg.Options.DataDir == "" {
		cfg.Options.DataDir = filepath.Join(workingDir, ".tandem")
	}
	if cfg.Options.LogFile == "" {
		cfg.Options.LogFile = filepath.Join(cfg.Options.DataDir, "tandem.log")
	}

	return cfg, nil
}
