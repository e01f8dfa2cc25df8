package usecase

import (
	"context"
	"log/slog"
	"strings"

	"palm-reader/internal/domain"
)

// KeySource resolves the model API key.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// ReadingSynthesizer builds a reading without the model.
type ReadingSynthesizer interface {
	Synthesize(hand domain.Hand, focusArea string) domain.Reading
}

// ChatResponder replies without the model.
type ChatResponder interface {
	Reply(message string) string
}

// Recorder receives fallback and model-attempt events.
type Recorder interface {
	Fallback(ctx context.Context, endpoint, reason string)
	ModelAttempt(ctx context.Context, op string, err error)
	StartSpan(ctx context.Context, name string) (context.Context, func(err error))
}

// NopRecorder discards every event.
type NopRecorder struct{}

func (NopRecorder) Fallback(context.Context, string, string)    {}
func (NopRecorder) ModelAttempt(context.Context, string, error) {}
func (NopRecorder) StartSpan(ctx context.Context, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

var placeholderKeys = map[string]struct{}{
	"":                         {},
	"your_api_key_here":        {},
	"your-api-key-here":        {},
	"your_gemini_api_key_here": {},
	"your_openai_api_key_here": {},
	"changeme":                 {},
	"placeholder":              {},
}

// IsPlaceholderKey reports whether key is empty or a known template value.
func IsPlaceholderKey(key string) bool {
	_, ok := placeholderKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// Online reports whether a usable API key is configured. Lookup failures
// count as offline.
func Online(ctx context.Context, keys KeySource) bool {
	key, err := keys.APIKey(ctx)
	if err != nil {
		slog.WarnContext(ctx, "api key lookup failed, using offline mode", "err", err)
		return false
	}
	return !IsPlaceholderKey(key)
}
