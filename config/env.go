package config

import "os"

// applyEnvOverrides layers process environment settings on top of the
// merged configuration. Environment variables win over the file, the
// same way the file wins over the built-in defaults.
func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("GUIDANCE_PROVIDER"); provider != "" {
		c.DefaultProvider = provider
	}
	if model := os.Getenv("GUIDANCE_MODEL"); model != "" {
		c.Model = model
	}
	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		if pc, ok := c.Providers["ollama"]; ok {
			pc.Address = host
		}
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		if pc, ok := c.Providers["openai"]; ok {
			pc.Address = baseURL
		}
	}
}
