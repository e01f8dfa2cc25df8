package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"palm-reader/internal/domain"
	"palm-reader/internal/logging"
	"palm-reader/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

const (
	codeNotFound         = "NOT_FOUND"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

type ReadingProducer interface {
	ProduceReading(ctx context.Context, req domain.ReadingRequest) (domain.Reading, error)
	Mode(ctx context.Context) string
}

type ChatReplier interface {
	ProduceReply(ctx context.Context, req domain.ChatRequest) (string, error)
}

type HistoryKeeper interface {
	Save(ctx context.Context, in usecase.SaveInput) (domain.HistoryEntry, error)
	List(ctx context.Context, limit int) ([]domain.HistoryEntry, error)
}

type readingRequest struct {
	Image        string `json:"image"`
	DominantHand string `json:"dominantHand"`
	FocusArea    string `json:"focusArea"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type saveRequest struct {
	Reading      domain.Reading `json:"reading"`
	Image        string         `json:"image"`
	DominantHand string         `json:"dominantHand"`
}

type historyResponse struct {
	Readings []domain.HistoryEntry `json:"readings"`
}

type healthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the API Gateway proxy integration.
type Handler struct {
	reading ReadingProducer
	chat    ChatReplier
	history HistoryKeeper
	origin  string
}

type Option func(*Handler)

// WithAllowedOrigin sets the Access-Control-Allow-Origin value. Defaults to "*".
func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		if origin = strings.TrimSpace(origin); origin != "" {
			h.origin = origin
		}
	}
}

func NewHandler(reading ReadingProducer, chat ChatReplier, history HistoryKeeper, opts ...Option) (*Handler, error) {
	if reading == nil {
		return nil, errors.New("handler: reading producer must not be nil")
	}
	if chat == nil {
		return nil, errors.New("handler: chat replier must not be nil")
	}
	if history == nil {
		return nil, errors.New("handler: history keeper must not be nil")
	}
	h := &Handler{reading: reading, chat: chat, history: history, origin: "*"}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := time.Now()
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	ctx = logging.WithCorrelationID(ctx, correlationID)
	path := normalizePath(req.Path)
	logger := slog.With("correlation_id", correlationID, "method", req.HTTPMethod, "path", path)

	resp := h.route(ctx, logger, req, path)
	if resp.Headers == nil {
		resp.Headers = map[string]string{}
	}
	resp.Headers[correlationHeader] = correlationID
	for k, v := range h.corsHeaders() {
		resp.Headers[k] = v
	}

	logger.Info("request handled", "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return resp, nil
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest, path string) events.APIGatewayProxyResponse {
	if req.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	}

	var allowed []string
	switch path {
	case "/reading":
		allowed = []string{http.MethodPost}
		if req.HTTPMethod == http.MethodPost {
			return h.handleReading(ctx, logger, req)
		}
	case "/chat":
		allowed = []string{http.MethodPost}
		if req.HTTPMethod == http.MethodPost {
			return h.handleChat(ctx, logger, req)
		}
	case "/readings":
		allowed = []string{http.MethodGet, http.MethodPost}
		switch req.HTTPMethod {
		case http.MethodGet:
			return h.handleListReadings(ctx, logger, req)
		case http.MethodPost:
			return h.handleSaveReading(ctx, logger, req)
		}
	case "/health":
		allowed = []string{http.MethodGet}
		if req.HTTPMethod == http.MethodGet {
			return jsonResponse(http.StatusOK, healthResponse{Status: "ok", Mode: h.reading.Mode(ctx)})
		}
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: codeNotFound})
	}

	resp := jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: codeMethodNotAllowed})
	resp.Headers["Allow"] = strings.Join(allowed, ", ")
	return resp
}

func (h *Handler) handleReading(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in readingRequest
	if err := decodeBody(req, &in); err != nil {
		return h.errorResponse(logger, err)
	}
	reading, err := h.reading.ProduceReading(ctx, domain.ReadingRequest{
		Image:        in.Image,
		DominantHand: domain.ParseHand(in.DominantHand),
		FocusArea:    in.FocusArea,
	})
	if err != nil {
		return h.errorResponse(logger, err)
	}
	return jsonResponse(http.StatusOK, reading)
}

func (h *Handler) handleChat(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in domain.ChatRequest
	if err := decodeBody(req, &in); err != nil {
		return h.errorResponse(logger, err)
	}
	answer, err := h.chat.ProduceReply(ctx, in)
	if err != nil {
		return h.errorResponse(logger, err)
	}
	return jsonResponse(http.StatusOK, chatResponse{Response: answer})
}

func (h *Handler) handleSaveReading(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	var in saveRequest
	if err := decodeBody(req, &in); err != nil {
		return h.errorResponse(logger, err)
	}
	entry, err := h.history.Save(ctx, usecase.SaveInput{
		Reading:      in.Reading,
		Image:        in.Image,
		DominantHand: domain.ParseHand(in.DominantHand),
	})
	if err != nil {
		return h.errorResponse(logger, err)
	}
	return jsonResponse(http.StatusCreated, entry)
}

func (h *Handler) handleListReadings(ctx context.Context, logger *slog.Logger, req events.APIGatewayProxyRequest) events.APIGatewayProxyResponse {
	limit := 0
	if raw := strings.TrimSpace(req.QueryStringParameters["limit"]); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return h.errorResponse(logger, &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_limit", Err: err})
		}
		limit = n
	}
	entries, err := h.history.List(ctx, limit)
	if err != nil {
		return h.errorResponse(logger, err)
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return jsonResponse(http.StatusOK, historyResponse{Readings: entries})
}

func (h *Handler) errorResponse(logger *slog.Logger, err error) events.APIGatewayProxyResponse {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "code", code, "err", err)
	} else {
		logger.Warn("request rejected", "code", code, "err", err)
	}
	return jsonResponse(status, errorResponse{Error: code})
}

func statusFor(err error) (int, string) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, string(ucErr.Code)
	default:
		return http.StatusInternalServerError, string(usecase.ErrorInternal)
	}
}

func (h *Handler) corsHeaders() map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  h.origin,
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization, " + correlationHeader,
	}
}

func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_body_encoding", Err: err}
		}
		body = decoded
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &usecase.Error{Code: usecase.ErrorInvalidInput, Reason: "invalid_json", Err: err}
	}
	return nil
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + string(usecase.ErrorInternal) + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

// headerValue looks a header up case-insensitively.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func normalizePath(p string) string {
	p = "/" + strings.Trim(p, "/")
	return strings.ToLower(p)
}
