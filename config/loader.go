package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "specgen.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/specgen"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	// getenv is swapped in tests
	getenv func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, getenv: os.Getenv}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/specgen/config.yaml)
// 3. Project config (specgen.yaml in current or parent directories)
// 4. Explicit config file (when path is non-empty)
// 5. Environment variables
func (l *Loader) Load(path string) (*Config, error) {
	config := DefaultConfig()

	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	if path != "" {
		explicit, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", path))
		config.Merge(explicit)
	}

	l.applyEnv(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnv overlays the environment variables the service has always honoured.
func (l *Loader) applyEnv(c *Config) {
	setString(&c.LLM.OpenAI.APIKey, l.getenv("OPENAI_API_KEY"))
	setString(&c.LLM.OpenAI.Model, l.getenv("OPENAI_MODEL"))
	if v := l.getenv("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.OpenAI.Temperature = &f
		} else {
			l.logger.Warn("Ignoring invalid OPENAI_TEMPERATURE", slog.String("value", v))
		}
	}
	if v := l.getenv("OPENAI_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.OpenAI.MaxTokens = n
		} else {
			l.logger.Warn("Ignoring invalid OPENAI_MAX_TOKENS", slog.String("value", v))
		}
	}
	setString(&c.LLM.Ollama.APIKey, l.getenv("OLLAMA_API_KEY"))
	setString(&c.LLM.Ollama.Host, l.getenv("OLLAMA_HOST"))
	setString(&c.LLM.Ollama.Model, l.getenv("OLLAMA_MODEL"))
	setString(&c.LLM.Backend, strings.ToLower(l.getenv("SPECGEN_LLM_BACKEND")))
	setString(&c.Storage.Path, l.getenv("SPECGEN_DB"))
	setString(&c.Server.Addr, l.getenv("SPECGEN_ADDR"))
	setString(&c.NATS.URL, l.getenv("NATS_URL"))
	setString(&c.Embedding.APIKey, l.getenv("GEMINI_API_KEY"))
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()

	if _, err := os.Stat(userConfigPath); err == nil {
		return nil
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for specgen.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
