package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(envMap(nil))
	require.NoError(t, err)
	require.Equal(t, Config{
		Provider:       ProviderGemini,
		Model:          "gemini-2.5-flash",
		MaxAttempts:    2,
		RetryBaseDelay: time.Second,
		RequestTimeout: 45 * time.Second,
		AllowedOrigin:  "*",
		LogLevel:       "info",
		Port:           8080,
	}, cfg)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		"PALM_PROVIDER":                " OpenAI ",
		"PALM_API_KEY":                 "sk-test",
		"PARAM_PREFIX":                 "/palm-reader",
		"HISTORY_TABLE":                "palm-history",
		"PALM_MAX_ATTEMPTS":            "3",
		"PALM_RETRY_BASE_DELAY_MS":     "250",
		"PALM_REQUEST_TIMEOUT_SECONDS": "10",
		"PALM_OPENAI_BASE_URL":         "http://localhost:11434/v1",
		"PORT":                         "9000",
	}))
	require.NoError(t, err)
	require.Equal(t, ProviderOpenAI, cfg.Provider)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, "sk-test", cfg.APIKey)
	require.Equal(t, "/palm-reader", cfg.ParamPrefix)
	require.Equal(t, "palm-history", cfg.HistoryTable)
	require.Equal(t, 3, cfg.MaxAttempts)
	require.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	require.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
	require.Equal(t, 9000, cfg.Port)
}

func TestLoad_InvalidIntegerFallsBackToDefault(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{"PALM_MAX_ATTEMPTS": "many"}))
	require.NoError(t, err)
	require.Equal(t, 2, cfg.MaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown provider": {"PALM_PROVIDER": "llama"},
		"zero attempts":    {"PALM_MAX_ATTEMPTS": "0"},
		"negative delay":   {"PALM_RETRY_BASE_DELAY_MS": "-1"},
		"zero timeout":     {"PALM_REQUEST_TIMEOUT_SECONDS": "0"},
		"bad port":         {"PORT": "70000"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(envMap(env))
			require.Error(t, err)
		})
	}
}
