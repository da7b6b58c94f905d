package config

import (
	"net/url"
	"strings"
)

// BackendStatus summarizes how one LLM backend is configured.
type BackendStatus struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	// MaskedKey is the first ten characters of the key followed by "...".
	MaskedKey string `json:"masked_key,omitempty"`
	Model     string `json:"model"`
	URL       string `json:"url"`
	Preferred bool   `json:"preferred"`
}

// MaskKey hides all but the first ten characters of an API key.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return key + "..."
	}
	return key[:10] + "..."
}

// OpenAIConfigured reports whether the OpenAI backend has credentials.
func (c *Config) OpenAIConfigured() bool {
	return c.LLM.OpenAI.APIKey != ""
}

// OllamaConfigured reports whether the Ollama backend is reachable without
// credentials (local host) or has an API key for a hosted instance.
func (c *Config) OllamaConfigured() bool {
	if c.LLM.Ollama.APIKey != "" {
		return true
	}
	u, err := url.Parse(c.LLM.Ollama.Host)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// APIKeyStatus reports the configuration state of each backend.
func (c *Config) APIKeyStatus() []BackendStatus {
	return []BackendStatus{
		{
			Name:       BackendOpenAI,
			Configured: c.OpenAIConfigured(),
			MaskedKey:  MaskKey(c.LLM.OpenAI.APIKey),
			Model:      c.LLM.OpenAI.Model,
			URL:        c.LLM.OpenAI.BaseURL,
			Preferred:  c.LLM.Backend == BackendOpenAI,
		},
		{
			Name:       BackendOllama,
			Configured: c.OllamaConfigured(),
			MaskedKey:  MaskKey(c.LLM.Ollama.APIKey),
			Model:      c.LLM.Ollama.Model,
			URL:        c.LLM.Ollama.Host,
			Preferred:  c.LLM.Backend == BackendOllama,
		},
	}
}
