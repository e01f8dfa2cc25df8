// Package config reads process configuration from the environment. It is
// only used by the binaries under cmd/.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var defaultModels = map[string]string{
	ProviderGemini: "gemini-2.5-flash",
	ProviderOpenAI: "gpt-4o-mini",
}

type Config struct {
	Provider       string
	Model          string
	APIKey         string
	ParamPrefix    string
	HistoryTable   string
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	OpenAIBaseURL  string
	AllowedOrigin  string
	LogLevel       string
	LogFile        string
	Port           int
}

// Load reads the configuration through getenv, usually os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	envInt := func(key string, def int) int {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("ignoring invalid integer environment variable", "key", key, "value", v)
			return def
		}
		return n
	}

	cfg := Config{
		Provider:       strings.ToLower(env("PALM_PROVIDER", ProviderGemini)),
		Model:          env("PALM_MODEL", ""),
		APIKey:         env("PALM_API_KEY", ""),
		ParamPrefix:    env("PARAM_PREFIX", ""),
		HistoryTable:   env("HISTORY_TABLE", ""),
		MaxAttempts:    envInt("PALM_MAX_ATTEMPTS", 2),
		RetryBaseDelay: time.Duration(envInt("PALM_RETRY_BASE_DELAY_MS", 1000)) * time.Millisecond,
		RequestTimeout: time.Duration(envInt("PALM_REQUEST_TIMEOUT_SECONDS", 45)) * time.Second,
		OpenAIBaseURL:  env("PALM_OPENAI_BASE_URL", ""),
		AllowedOrigin:  env("CORS_ALLOW_ORIGIN", "*"),
		LogLevel:       env("LOG_LEVEL", "info"),
		LogFile:        env("LOG_FILE", ""),
		Port:           envInt("PORT", 8080),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[cfg.Provider]
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, ok := defaultModels[c.Provider]; !ok {
		return fmt.Errorf("config: unknown provider %q", c.Provider)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("config: PALM_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("config: PALM_RETRY_BASE_DELAY_MS must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: PALM_REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: PORT out of range: %d", c.Port)
	}
	return nil
}
