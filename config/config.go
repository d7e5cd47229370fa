// Package config loads guidance configuration from YAML and turns it
// into ready-to-use llm clients.
package config

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/aschepis/backscratcher/guidance/llm"
)

// ProviderConfig represents configuration for one completion endpoint.
type ProviderConfig struct {
	Address   string `yaml:"address,omitempty"`     // Base URL, e.g. "http://localhost:11434"
	APIKey    string `yaml:"api_key,omitempty"`     // API key, verbatim
	APIKeyEnv string `yaml:"api_key_env,omitempty"` // Environment variable holding the API key
	API       string `yaml:"api,omitempty"`         // Wire format tag (default: openai-completions)
}

// Config represents the guidance configuration file.
type Config struct {
	DefaultProvider string                     `yaml:"default_provider,omitempty"` // Provider name used when a session names none
	Model           string                     `yaml:"model,omitempty"`            // Default model name
	Timeout         int                        `yaml:"timeout,omitempty"`          // Timeout in seconds for a whole exchange (0 = none)
	Providers       map[string]*ProviderConfig `yaml:"providers,omitempty"`
}

// GetConfigPath returns the default config file path, expanding ~ to
// the home directory. Can be overridden via GUIDANCE_CONFIG_PATH.
func GetConfigPath() string {
	if envPath := os.Getenv("GUIDANCE_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.guidance/config.yaml"
	}
	return filepath.Join(homeDir, ".guidance", "config.yaml")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Load loads the configuration from path, merged onto the defaults.
// A missing file is not an error; the defaults point at a local Ollama
// instance.
func Load(path string) (*Config, error) {
	defaults := Config{
		DefaultProvider: "ollama",
		Model:           "llama3.2:3b",
		Timeout:         60,
		Providers: map[string]*ProviderConfig{
			"ollama":   {Address: "http://localhost:11434"},
			"lmstudio": {Address: "http://localhost:1234"},
			"openai":   {Address: "https://api.openai.com", APIKeyEnv: "OPENAI_API_KEY"},
		},
	}

	expandedPath := expandPath(path)
	if _, err := os.Stat(expandedPath); err != nil {
		// File doesn't exist, return defaults
		defaults.applyEnvOverrides()
		return &defaults, nil
	}

	configYAML, err := os.ReadFile(expandedPath) //#nosec 304 -- intentional file read for config
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", expandedPath, err)
	}

	var config Config
	if err := yaml.Unmarshal(configYAML, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := mergo.Merge(&defaults, config, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	if defaults.Providers == nil {
		defaults.Providers = make(map[string]*ProviderConfig)
	}
	defaults.applyEnvOverrides()

	return &defaults, nil
}

// Save saves the configuration to the specified path.
func Save(cfg *Config, path string) error {
	expandedPath := expandPath(path)

	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolveAPIKey returns the API key for the provider, preferring the
// literal key over the named environment variable.
func (p *ProviderConfig) ResolveAPIKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Provider builds the named provider from the configuration.
func (c *Config) Provider(name string) (*llm.APIProvider, error) {
	pc, ok := c.Providers[name]
	if !ok {
		names := lo.Keys(c.Providers)
		sort.Strings(names)
		return nil, fmt.Errorf("unknown provider %q (configured: %s)", name, strings.Join(names, ", "))
	}
	return &llm.APIProvider{
		Name:     name,
		Endpoint: pc.Address,
		Key:      pc.ResolveAPIKey(),
		Format:   pc.API,
	}, nil
}

// Client builds an llm.Client wired to the default provider, with a
// transport honoring the configured timeout. Note the timeout bounds
// the whole exchange including streamed reads.
func (c *Config) Client(logger zerolog.Logger) (*llm.Client, error) {
	provider, err := c.Provider(c.DefaultProvider)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{}
	if c.Timeout > 0 {
		httpClient.Timeout = time.Duration(c.Timeout) * time.Second
	}

	return llm.NewClient(
		llm.WithDefaultProvider(provider),
		llm.WithHTTPClient(httpClient),
		llm.WithLogger(logger),
	), nil
}
