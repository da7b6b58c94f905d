package model

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
)

// Registry manages model selection based on capabilities.
// It maps capabilities to preferred models with fallback chains.
type Registry struct {
	mu           sync.RWMutex
	capabilities map[Capability]*CapabilityConfig
	endpoints    map[string]*EndpointConfig
	defaults     *DefaultsConfig
	health       *healthState
}

// CapabilityConfig defines model preferences for a capability.
type CapabilityConfig struct {
	// Description explains what this capability is for.
	Description string `json:"description"`

	// Preferred lists models in order of preference.
	Preferred []string `json:"preferred"`

	// Fallback lists backup models if all preferred fail.
	Fallback []string `json:"fallback"`
}

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the wire protocol (openai, ollama).
	Provider string `json:"provider"`

	// URL is the API base URL. Empty uses the provider default.
	URL string `json:"url,omitempty"`

	// Model is the actual model identifier to send to the provider.
	Model string `json:"model"`

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is used when a request does not set one.
	Temperature *float64 `json:"temperature,omitempty"`

	// APIKeyEnv names an environment variable holding the API key.
	APIKeyEnv string `json:"api_key_env,omitempty"`

	// APIKey is set programmatically from configuration and never serialized.
	APIKey string `json:"-"`
}

// Key returns the API key for the endpoint, preferring the explicit key.
func (e *EndpointConfig) Key() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.APIKeyEnv != "" {
		return os.Getenv(e.APIKeyEnv)
	}
	return ""
}

// DefaultsConfig holds default model settings.
type DefaultsConfig struct {
	// Model is the default model when no capability matches.
	Model string `json:"model"`
}

// NewRegistry creates a new model registry with the given configuration.
func NewRegistry(caps map[Capability]*CapabilityConfig, endpoints map[string]*EndpointConfig) *Registry {
	if caps == nil {
		caps = make(map[Capability]*CapabilityConfig)
	}
	if endpoints == nil {
		endpoints = make(map[string]*EndpointConfig)
	}
	return &Registry{
		capabilities: caps,
		endpoints:    endpoints,
		defaults:     &DefaultsConfig{Model: "default"},
		health:       newHealthState(DefaultHealthConfig()),
	}
}

// NewDefaultRegistry creates a registry backed by a local Ollama instance.
// Used when no configuration is provided.
func NewDefaultRegistry() *Registry {
	chain := func(desc string) *CapabilityConfig {
		return &CapabilityConfig{Description: desc, Preferred: []string{"ollama"}}
	}
	r := NewRegistry(
		map[Capability]*CapabilityConfig{
			CapabilitySpec:     chain("DBML, Gherkin, flowcharts, API specs"),
			CapabilityAnalysis: chain("Ambiguity discovery over spec artefacts"),
			CapabilityIdeation: chain("Idea expansion and field drafting"),
			CapabilityGeneral:  chain("Free-form prompts"),
		},
		map[string]*EndpointConfig{
			"ollama": {
				Provider: "ollama",
				URL:      "http://localhost:11434",
				Model:    "gpt-oss:120b",
			},
		},
	)
	r.defaults.Model = "ollama"
	return r
}

// Resolve returns the preferred model for a capability.
func (r *Registry) Resolve(c Capability) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if cfg, ok := r.capabilities[c]; ok && len(cfg.Preferred) > 0 {
		return cfg.Preferred[0]
	}
	return r.defaults.Model
}

// GetFallbackChain returns all models for a capability in order of preference.
// Duplicates are dropped so a model is never tried twice.
func (r *Registry) GetFallbackChain(c Capability) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.capabilities[c]
	if !ok {
		return []string{r.defaults.Model}
	}

	seen := make(map[string]bool, len(cfg.Preferred)+len(cfg.Fallback))
	chain := make([]string, 0, len(cfg.Preferred)+len(cfg.Fallback))
	for _, names := range [][]string{cfg.Preferred, cfg.Fallback} {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			chain = append(chain, name)
		}
	}
	return chain
}

// ForStage returns the resolved model for a pipeline stage's capability.
func (r *Registry) ForStage(stage string) string {
	return r.Resolve(CapabilityForStage(stage))
}

// GetEndpoint returns the endpoint configuration for a model name.
// Returns nil if the model is not configured.
func (r *Registry) GetEndpoint(modelName string) *EndpointConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.endpoints[modelName]
}

// SetCapability updates or adds a capability configuration.
func (r *Registry) SetCapability(c Capability, cfg *CapabilityConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.capabilities[c] = cfg
}

// SetEndpoint updates or adds an endpoint configuration.
func (r *Registry) SetEndpoint(name string, cfg *EndpointConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.endpoints[name] = cfg
}

// SetDefault sets the default model.
func (r *Registry) SetDefault(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.defaults = &DefaultsConfig{Model: model}
}

// ListCapabilities returns all configured capabilities, sorted.
func (r *Registry) ListCapabilities() []Capability {
	r.mu.RLock()
	defer r.mu.RUnlock()

	caps := make([]Capability, 0, len(r.capabilities))
	for c := range r.capabilities {
		caps = append(caps, c)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}

// ListEndpoints returns all configured endpoint names, sorted.
func (r *Registry) ListEndpoints() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON implements json.Marshaler for the registry.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToConfig())
}
