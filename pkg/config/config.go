// Package config loads server configuration from the environment.
// A .env file, when present, is read by the entrypoint before Load
// runs; Load itself only consults os.Getenv.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Config holds all runtime settings for the server.
type Config struct {
	// LLM provider
	APIKey  string
	APIBase string

	// Model parameters
	ModelName   string
	Temperature float32
	MaxTokens   int

	// Sandbox provisioning. SandboxAddress selects fixed-address mode;
	// when empty, containers are created from SandboxImage per agent.
	SandboxAddress    string
	SandboxImage      string
	SandboxNamePrefix string
	SandboxTTLMinutes int
	SandboxNetwork    string
	SandboxChromeArgs string
	SandboxHTTPSProxy string
	SandboxHTTPProxy  string
	SandboxNoProxy    string

	// Web search (optional; tool group is omitted unless both are set)
	GoogleSearchAPIKey   string
	GoogleSearchEngineID string

	// Logging
	LogLevel string

	// HTTP listen address
	ListenAddress string
}

// Load reads configuration from the environment, applies defaults and
// validates required settings.
func Load() (*Config, error) {
	cfg := &Config{
		APIKey:               os.Getenv("API_KEY"),
		APIBase:              getEnv("API_BASE", "https://api.deepseek.com/v1"),
		ModelName:            getEnv("MODEL_NAME", "deepseek-chat"),
		Temperature:          getEnvFloat("TEMPERATURE", 0.7),
		MaxTokens:            getEnvInt("MAX_TOKENS", 2000),
		SandboxAddress:       os.Getenv("SANDBOX_ADDRESS"),
		SandboxImage:         os.Getenv("SANDBOX_IMAGE"),
		SandboxNamePrefix:    getEnv("SANDBOX_NAME_PREFIX", "sable-sandbox"),
		SandboxTTLMinutes:    getEnvInt("SANDBOX_TTL_MINUTES", 30),
		SandboxNetwork:       os.Getenv("SANDBOX_NETWORK"),
		SandboxChromeArgs:    os.Getenv("SANDBOX_CHROME_ARGS"),
		SandboxHTTPSProxy:    os.Getenv("SANDBOX_HTTPS_PROXY"),
		SandboxHTTPProxy:     os.Getenv("SANDBOX_HTTP_PROXY"),
		SandboxNoProxy:       os.Getenv("SANDBOX_NO_PROXY"),
		GoogleSearchAPIKey:   os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchEngineID: os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		ListenAddress:        getEnv("LISTEN_ADDRESS", ":8000"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ValidationError{Field: "API_KEY", Err: ErrMissingRequiredField}
	}
	return nil
}

// SearchEnabled reports whether the web-search tool group should be
// registered: both the API key and the engine id must be configured.
func (c *Config) SearchEnabled() bool {
	return c.GoogleSearchAPIKey != "" && c.GoogleSearchEngineID != ""
}

// SlogLevel maps the configured log level onto slog's scale. Unknown
// values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "warning", "WARN", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default",
			"key", key,
			"value", v,
			"default", fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		slog.Warn("Invalid float in environment, using default",
			"key", key,
			"value", v,
			"default", fallback)
		return fallback
	}
	return float32(f)
}

// String renders the config for startup logging with the secrets
// redacted.
func (c *Config) String() string {
	return fmt.Sprintf("model=%s api_base=%s sandbox_image=%s sandbox_address=%s search_enabled=%t listen=%s",
		c.ModelName, c.APIBase, c.SandboxImage, c.SandboxAddress, c.SearchEnabled(), c.ListenAddress)
}
