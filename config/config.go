// Package config provides configuration loading and management for specgen.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend names accepted by llm.backend.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// MaxUploadBytes is the largest spreadsheet accepted by the upload records.
const MaxUploadBytes = 10 * 1024 * 1024

// Config represents the complete specgen configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	LLM       LLMConfig       `yaml:"llm"`
	Uploads   UploadsConfig   `yaml:"uploads"`
	Index     IndexConfig     `yaml:"index"`
	NATS      NATSConfig      `yaml:"nats"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:8000)
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// MaxBodyBytes caps JSON request bodies
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// StorageConfig configures the SQLite database
type StorageConfig struct {
	// Path is the database file (":memory:" for an ephemeral database)
	Path string `yaml:"path"`
}

// LLMConfig configures the language model backends
type LLMConfig struct {
	// Backend selects the preferred backend: "ollama" or "openai"
	Backend string       `yaml:"backend"`
	OpenAI  OpenAIConfig `yaml:"openai"`
	Ollama  OllamaConfig `yaml:"ollama"`
	// Timeout bounds a single HTTP call to a backend
	Timeout time.Duration `yaml:"timeout"`
	// Language is the natural language generated documents are written in
	Language string `yaml:"language"`
	// RegistryFile optionally points at a JSON model registry that is watched for changes
	RegistryFile string `yaml:"registry_file"`
}

// OpenAIConfig configures the OpenAI chat completions backend
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// Temperature is nil when unset, so a file can choose 0
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// OllamaConfig configures the Ollama chat backend
type OllamaConfig struct {
	APIKey string `yaml:"api_key"`
	Host   string `yaml:"host"`
	Model  string `yaml:"model"`
}

// UploadsConfig configures spreadsheet upload storage
type UploadsConfig struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// IndexConfig configures the vector index data directory
type IndexConfig struct {
	Dir string `yaml:"dir"`
}

// NATSConfig configures LLM call publishing
type NATSConfig struct {
	// URL is the NATS server URL (empty disables publishing)
	URL string `yaml:"url"`
	// Stream is the JetStream stream that captures call records
	Stream string `yaml:"stream"`
}

// EmbeddingConfig configures sentence embeddings
type EmbeddingConfig struct {
	// Provider is "genai" or empty to disable embeddings
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	// BaseURL overrides the Gemini API endpoint
	BaseURL string `yaml:"base_url"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	// Disabled turns off the /metrics endpoint; request metrics are still collected
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         "127.0.0.1:8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Storage: StorageConfig{
			Path: "specgen.db",
		},
		LLM: LLMConfig{
			Backend: BackendOllama,
			OpenAI: OpenAIConfig{
				BaseURL:     "https://api.openai.com/v1",
				Model:       "gpt-3.5-turbo",
				Temperature: floatPtr(0.7),
				MaxTokens:   2000,
			},
			Ollama: OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "gpt-oss:120b",
			},
			Timeout:  3 * time.Minute,
			Language: "English",
		},
		Uploads: UploadsConfig{
			Dir:      "uploads",
			MaxBytes: MaxUploadBytes,
		},
		Index: IndexConfig{
			Dir: "faiss_data",
		},
		NATS: NATSConfig{
			Stream: "SPECGEN_LLM",
		},
		Embedding: EmbeddingConfig{
			Model: "text-embedding-004",
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	switch c.LLM.Backend {
	case BackendOllama, BackendOpenAI:
	default:
		return fmt.Errorf("llm.backend must be %q or %q, got %q", BackendOllama, BackendOpenAI, c.LLM.Backend)
	}
	if t := c.LLM.OpenAI.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("llm.openai.temperature must be between 0 and 2")
	}
	if c.LLM.OpenAI.MaxTokens < 0 {
		return fmt.Errorf("llm.openai.max_tokens must not be negative")
	}
	if c.Uploads.MaxBytes <= 0 {
		return fmt.Errorf("uploads.max_bytes must be positive")
	}
	if c.Embedding.Provider != "" && c.Embedding.Provider != "genai" {
		return fmt.Errorf("embedding.provider must be empty or \"genai\"")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Server
	setString(&c.Server.Addr, other.Server.Addr)
	setDuration(&c.Server.ReadTimeout, other.Server.ReadTimeout)
	setDuration(&c.Server.WriteTimeout, other.Server.WriteTimeout)
	if other.Server.MaxBodyBytes > 0 {
		c.Server.MaxBodyBytes = other.Server.MaxBodyBytes
	}

	// Storage
	setString(&c.Storage.Path, other.Storage.Path)

	// LLM
	setString(&c.LLM.Backend, other.LLM.Backend)
	setString(&c.LLM.OpenAI.APIKey, other.LLM.OpenAI.APIKey)
	setString(&c.LLM.OpenAI.BaseURL, other.LLM.OpenAI.BaseURL)
	setString(&c.LLM.OpenAI.Model, other.LLM.OpenAI.Model)
	if t := other.LLM.OpenAI.Temperature; t != nil {
		c.LLM.OpenAI.Temperature = floatPtr(*t)
	}
	if other.LLM.OpenAI.MaxTokens != 0 {
		c.LLM.OpenAI.MaxTokens = other.LLM.OpenAI.MaxTokens
	}
	setString(&c.LLM.Ollama.APIKey, other.LLM.Ollama.APIKey)
	setString(&c.LLM.Ollama.Host, other.LLM.Ollama.Host)
	setString(&c.LLM.Ollama.Model, other.LLM.Ollama.Model)
	setDuration(&c.LLM.Timeout, other.LLM.Timeout)
	setString(&c.LLM.Language, other.LLM.Language)
	setString(&c.LLM.RegistryFile, other.LLM.RegistryFile)

	// Uploads
	setString(&c.Uploads.Dir, other.Uploads.Dir)
	if other.Uploads.MaxBytes > 0 {
		c.Uploads.MaxBytes = other.Uploads.MaxBytes
	}

	// Index
	setString(&c.Index.Dir, other.Index.Dir)

	// NATS
	setString(&c.NATS.URL, other.NATS.URL)
	setString(&c.NATS.Stream, other.NATS.Stream)

	// Embedding
	setString(&c.Embedding.Provider, other.Embedding.Provider)
	setString(&c.Embedding.APIKey, other.Embedding.APIKey)
	setString(&c.Embedding.Model, other.Embedding.Model)
	setString(&c.Embedding.BaseURL, other.Embedding.BaseURL)

	// Metrics
	if other.Metrics.Disabled {
		c.Metrics.Disabled = true
	}
	setString(&c.Metrics.Path, other.Metrics.Path)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
