package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"palm-reader/internal/domain"
	"palm-reader/internal/retry"
)

const (
	DefaultMaxAttempts = 2
	DefaultBaseDelay   = time.Second
)

// VisionModel is the external generative model.
type VisionModel interface {
	Generate(ctx context.Context, prompt string, image domain.Image) (string, error)
	Chat(ctx context.Context, system string, messages []domain.ChatMessage) (string, error)
}

// ModelClient calls a VisionModel with bounded, sequential retries.
type ModelClient struct {
	model     VisionModel
	baseDelay time.Duration
	recorder  Recorder
}

func NewModelClient(model VisionModel, baseDelay time.Duration, recorder Recorder) (*ModelClient, error) {
	if model == nil {
		return nil, errors.New("usecase: vision model must not be nil")
	}
	if baseDelay < 0 {
		baseDelay = DefaultBaseDelay
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &ModelClient{model: model, baseDelay: baseDelay, recorder: recorder}, nil
}

// Generate asks the model to read image. After a failed attempt i it waits
// baseDelay*i; after maxAttempts failures it returns *ExternalServiceError.
func (c *ModelClient) Generate(ctx context.Context, prompt string, image domain.Image, maxAttempts int) (string, error) {
	return c.do(ctx, "generate", maxAttempts, func(ctx context.Context) (string, error) {
		return c.model.Generate(ctx, prompt, image)
	})
}

// Chat asks the model for a conversational reply with the same retry policy.
func (c *ModelClient) Chat(ctx context.Context, system string, messages []domain.ChatMessage, maxAttempts int) (string, error) {
	return c.do(ctx, "chat", maxAttempts, func(ctx context.Context) (string, error) {
		return c.model.Chat(ctx, system, messages)
	})
}

func (c *ModelClient) do(ctx context.Context, op string, maxAttempts int, call func(context.Context) (string, error)) (string, error) {
	if maxAttempts < 1 {
		return "", fmt.Errorf("usecase: %s: %w", op, retry.ErrInvalidPolicy)
	}
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   c.baseDelay,
		Delay:       retry.Linear,
		Retryable:   isRetryable,
	}

	var (
		out      string
		attempts int
	)
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		text, err := call(ctx)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("model returned empty text")
		}
		c.recorder.ModelAttempt(ctx, op, err)
		if err != nil {
			return err
		}
		out = text
		return nil
	}, func(attempt int, err error) {
		slog.WarnContext(ctx, "model attempt failed",
			"op", op,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"err", err,
		)
	})
	if err != nil {
		return "", &ExternalServiceError{Op: op, Attempts: attempts, Err: err}
	}
	return out, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	status, ok := upstreamStatusCode(err)
	if !ok {
		return true
	}
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 400 && status < 500:
		return false
	default:
		return true
	}
}
