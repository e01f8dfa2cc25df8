package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"palm-reader/internal/domain"
)

const endpointChat = "chat"

// ChatService answers follow-up questions about a reading.
type ChatService struct {
	keys        KeySource
	model       *ModelClient
	fallback    ChatResponder
	recorder    Recorder
	maxAttempts int
	timeout     time.Duration
}

func NewChatService(keys KeySource, model *ModelClient, fallback ChatResponder, recorder Recorder, maxAttempts int, timeout time.Duration) (*ChatService, error) {
	if keys == nil {
		return nil, errors.New("usecase: key source must not be nil")
	}
	if model == nil {
		return nil, errors.New("usecase: model client must not be nil")
	}
	if fallback == nil {
		return nil, errors.New("usecase: chat responder must not be nil")
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
	return &ChatService{
		keys:        keys,
		model:       model,
		fallback:    fallback,
		recorder:    recorder,
		maxAttempts: maxAttempts,
		timeout:     timeout,
	}, nil
}

// ProduceReply fails only when the message is empty.
func (s *ChatService) ProduceReply(ctx context.Context, req domain.ChatRequest) (string, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return "", newError(ErrorInvalidInput, "missing_message", nil)
	}

	ctx, end := s.recorder.StartSpan(ctx, "ChatService.ProduceReply")
	var cause error
	defer func() { end(cause) }()

	if !Online(ctx, s.keys) {
		slog.InfoContext(ctx, "no api key configured, using fallback chat reply")
		return s.reply(ctx, message, "offline"), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	answer, err := s.model.Chat(callCtx, buildChatSystemPrompt(req.Reading), buildChatMessages(req.ChatHistory, message), s.maxAttempts)
	if err != nil {
		cause = err
		slog.WarnContext(ctx, "model chat failed, using fallback chat reply", "err", err, "history_len", len(req.ChatHistory))
		return s.reply(ctx, message, fallbackReason(err)), nil
	}
	return strings.TrimSpace(answer), nil
}

func (s *ChatService) reply(ctx context.Context, message, reason string) string {
	s.recorder.Fallback(ctx, endpointChat, reason)
	return s.fallback.Reply(message)
}
