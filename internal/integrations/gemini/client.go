// Package gemini adapts the Google Gen AI SDK to the vision model used for
// palm readings and follow-up chat.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"palm-reader/internal/domain"
)

const DefaultModel = "gemini-2.5-flash"

// KeySource resolves the Gemini API key per request.
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// modelsClient is the subset of genai.Models used here.
type modelsClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var (
	newGoogleClient = genai.NewClient
	modelsOf        = func(c *genai.Client) modelsClient { return c.Models }
)

// StatusError carries the HTTP status of a failed Gemini call.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini: status %d: %v", e.Code, e.Err)
}

func (e *StatusError) Unwrap() error       { return e.Err }
func (e *StatusError) HTTPStatusCode() int { return e.Code }

// Client implements the vision model on top of genai. The SDK client is
// created on first use and rebuilt when the resolved key changes.
type Client struct {
	keys        KeySource
	model       string
	httpClient  *http.Client
	temperature *float32

	mu     sync.Mutex
	apiKey string
	models modelsClient
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTemperature(t float32) Option {
	return func(c *Client) {
		c.temperature = genai.Ptr(t)
	}
}

func NewClient(keys KeySource, model string, opts ...Option) (*Client, error) {
	if keys == nil {
		return nil, errors.New("gemini: key source must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	c := &Client{keys: keys, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveModels(ctx context.Context) (modelsClient, error) {
	key, err := c.keys.APIKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve api key: %w", err)
	}
	if key == "" {
		return nil, errors.New("gemini: api key is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil && c.apiKey == key {
		return c.models, nil
	}
	client, err := newGoogleClient(ctx, &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.apiKey = key
	c.models = modelsOf(client)
	return c.models, nil
}

// Generate sends the palm photo with the prompt and requests JSON matching
// the reading schema.
func (c *Client) Generate(ctx context.Context, prompt string, image domain.Image) (string, error) {
	if len(image.Data) == 0 {
		return "", errors.New("gemini: image must not be empty")
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image.Data, image.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature:      c.temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   readingSchema(),
	}
	return c.generate(ctx, contents, cfg)
}

// Chat replays the conversation under the given system instruction.
func (c *Client) Chat(ctx context.Context, system string, messages []domain.ChatMessage) (string, error) {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	cfg := &genai.GenerateContentConfig{Temperature: c.temperature}
	if system = strings.TrimSpace(system); system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return c.generate(ctx, contents, cfg)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	models, err := c.resolveModels(ctx)
	if err != nil {
		return "", err
	}
	resp, err := models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", wrapError(err)
	}
	if resp == nil {
		return "", errors.New("gemini: empty response")
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("gemini: response has no text")
	}
	return text, nil
}

func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Err: err}
	}
	return fmt.Errorf("gemini: generate content: %w", err)
}

func lineSchema(nullable bool) *genai.Schema {
	s := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"observation": {Type: genai.TypeString},
			"meaning":     {Type: genai.TypeString},
		},
		Required:         []string{"observation", "meaning"},
		PropertyOrdering: []string{"observation", "meaning"},
	}
	if nullable {
		s.Nullable = genai.Ptr(true)
	}
	return s
}

func readingSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"heartLine":      lineSchema(false),
			"headLine":       lineSchema(false),
			"lifeLine":       lineSchema(false),
			"fateLine":       lineSchema(true),
			"overallReading": {Type: genai.TypeString},
			"advice":         {Type: genai.TypeString},
		},
		Required: []string{"heartLine", "headLine", "lifeLine", "overallReading", "advice"},
		PropertyOrdering: []string{
			"heartLine", "headLine", "lifeLine", "fateLine", "overallReading", "advice",
		},
	}
}
