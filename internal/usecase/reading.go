package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"palm-reader/internal/domain"
)

const (
	endpointReading       = "reading"
	defaultRequestTimeout = 45 * time.Second
	maxLoggedRaw          = 512

	ModeOnline  = "online"
	ModeOffline = "offline"
)

// ReadingService produces a reading for every request with an image, falling
// back to local content whenever the model path cannot deliver one.
type ReadingService struct {
	keys        KeySource
	model       *ModelClient
	fallback    ReadingSynthesizer
	recorder    Recorder
	maxAttempts int
	timeout     time.Duration
}

func NewReadingService(keys KeySource, model *ModelClient, fallback ReadingSynthesizer, recorder Recorder, maxAttempts int, timeout time.Duration) (*ReadingService, error) {
	if keys == nil {
		return nil, errors.New("usecase: key source must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: model client must not be nil")
	}
	if fallback == nil {
		return nil, errors.New("usecase: reading synthesizer must not be nil")
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &ReadingService{
		keys:        keys,
		model:       model,
		fallback:    fallback,
		recorder:    recorder,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}, nil
}

// ProduceReading fails only when the request carries no image.
func (s *ReadingService) ProduceReading(ctx context.Context, req domain.ReadingRequest) (domain.Reading, error) {
	if strings.TrimSpace(req.Image) == "" {
		return domain.Reading{}, newError(ErrorInvalidInput, "missing_image", nil)
	}

	ctx, end := s.recorder.StartSpan(ctx, "ReadingService.ProduceReading")
	var cause error
	defer func() { end(cause) }()

	if !Online(ctx, s.keys) {
		slog.InfoContext(ctx, "no api key configured, synthesizing reading")
		return s.synthesize(ctx, req, "offline"), nil
	}

	reading, err := s.fromModel(ctx, req)
	if err != nil {
		cause = err
		attrs := []any{"err", err, "reason", fallbackReason(err)}
		var malformed *MalformedOutputError
		if errors.As(err, &malformed) {
			attrs = append(attrs, "raw", truncate(malformed.Raw, maxLoggedRaw), "raw_len", len(malformed.Raw))
		}
		slog.WarnContext(ctx, "model reading failed, synthesizing reading", attrs...)
		return s.synthesize(ctx, req, fallbackReason(err)), nil
	}
	return reading, nil
}

func (s *ReadingService) fromModel(ctx context.Context, req domain.ReadingRequest) (domain.Reading, error) {
	image, err := decodeImage(req.Image)
	if err != nil {
		return domain.Reading{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.model.Generate(ctx, buildReadingPrompt(req.DominantHand, req.FocusArea), image, s.maxAttempts)
	if err != nil {
		return domain.Reading{}, err
	}
	return NormalizeReading(raw)
}

func (s *ReadingService) synthesize(ctx context.Context, req domain.ReadingRequest, reason string) domain.Reading {
	s.recorder.Fallback(ctx, endpointReading, reason)
	return s.fallback.Synthesize(req.DominantHand, strings.TrimSpace(req.FocusArea))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Mode reports "online" when a usable API key is configured, else "offline".
func (s *ReadingService) Mode(ctx context.Context) string {
	if Online(ctx, s.keys) {
		return ModeOnline
	}
	return ModeOffline
}
