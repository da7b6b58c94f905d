package model

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/c360studio/specgen/config"
)

// RegistryConfig represents the JSON configuration structure for the model registry.
type RegistryConfig struct {
	Capabilities map[string]*CapabilityConfig `json:"capabilities"`
	Endpoints    map[string]*EndpointConfig   `json:"endpoints"`
	Defaults     *DefaultsConfig              `json:"defaults,omitempty"`
}

// FromConfig builds a registry from application configuration.
// The configured backend is preferred for every capability; the other backend
// is added as a fallback only when it is usable.
func FromConfig(cfg *config.Config) *Registry {
	var openaiTemp *float64
	if t := cfg.LLM.OpenAI.Temperature; t != nil {
		v := *t
		openaiTemp = &v
	}
	endpoints := map[string]*EndpointConfig{
		config.BackendOpenAI: {
			Provider:    "openai",
			URL:         cfg.LLM.OpenAI.BaseURL,
			Model:       cfg.LLM.OpenAI.Model,
			MaxTokens:   cfg.LLM.OpenAI.MaxTokens,
			Temperature: openaiTemp,
			APIKey:      cfg.LLM.OpenAI.APIKey,
		},
		config.BackendOllama: {
			Provider: "ollama",
			URL:      cfg.LLM.Ollama.Host,
			Model:    cfg.LLM.Ollama.Model,
			APIKey:   cfg.LLM.Ollama.APIKey,
		},
	}

	preferred := cfg.LLM.Backend
	other := config.BackendOpenAI
	otherUsable := cfg.OpenAIConfigured()
	if preferred == config.BackendOpenAI {
		other = config.BackendOllama
		otherUsable = cfg.OllamaConfigured()
	}

	var fallback []string
	if otherUsable {
		fallback = []string{other}
	}

	caps := make(map[Capability]*CapabilityConfig, len(AllCapabilities))
	for _, c := range AllCapabilities {
		caps[c] = &CapabilityConfig{
			Description: fmt.Sprintf("%s via %s", c, preferred),
			Preferred:   []string{preferred},
			Fallback:    fallback,
		}
	}

	r := NewRegistry(caps, endpoints)
	r.defaults.Model = preferred
	return r
}

// LoadFromFile loads a registry configuration from a JSON file.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	return LoadFromJSON(data)
}

// LoadFromJSON loads a registry from JSON data.
// Accepts either a document with a "model_registry" key or the bare registry config.
func LoadFromJSON(data []byte) (*Registry, error) {
	cfg, err := parseRegistryConfig(data)
	if err != nil {
		return nil, err
	}
	return registryFromConfig(cfg), nil
}

func parseRegistryConfig(data []byte) (*RegistryConfig, error) {
	var wrapped struct {
		ModelRegistry *RegistryConfig `json:"model_registry"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.ModelRegistry != nil {
		return wrapped.ModelRegistry, nil
	}

	var cfg RegistryConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse registry config: %w", err)
	}
	return &cfg, nil
}

func registryFromConfig(cfg *RegistryConfig) *Registry {
	caps := make(map[Capability]*CapabilityConfig, len(cfg.Capabilities))
	for k, v := range cfg.Capabilities {
		caps[Capability(k)] = v
	}

	r := NewRegistry(caps, cfg.Endpoints)
	if cfg.Defaults != nil {
		r.defaults = cfg.Defaults
	}
	return r
}

// ToConfig converts a Registry to a RegistryConfig for serialization.
func (r *Registry) ToConfig() *RegistryConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make(map[string]*CapabilityConfig, len(r.capabilities))
	for k, v := range r.capabilities {
		caps[string(k)] = v
	}

	endpoints := make(map[string]*EndpointConfig, len(r.endpoints))
	for k, v := range r.endpoints {
		endpoints[k] = v
	}

	return &RegistryConfig{
		Capabilities: caps,
		Endpoints:    endpoints,
		Defaults:     r.defaults,
	}
}

// MergeFromConfig merges configuration into an existing registry.
// Existing entries are overwritten. An incoming endpoint without credentials
// keeps the key of the endpoint it replaces.
func (r *Registry) MergeFromConfig(cfg *RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range cfg.Capabilities {
		r.capabilities[Capability(k)] = v
	}

	for k, v := range cfg.Endpoints {
		if prev, ok := r.endpoints[k]; ok && v.APIKey == "" && v.APIKeyEnv == "" {
			v.APIKey = prev.APIKey
		}
		r.endpoints[k] = v
	}

	if cfg.Defaults != nil {
		r.defaults = cfg.Defaults
	}
}
