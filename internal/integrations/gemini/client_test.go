package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"palm-reader/internal/domain"
)

type fakeKeys struct {
	key string
	err error
}

func (f *fakeKeys) APIKey(context.Context) (string, error) { return f.key, f.err }

type stubModels struct {
	resp *genai.GenerateContentResponse
	err  error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (s *stubModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	return s.resp, s.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

// stubSDK swaps the SDK constructors and returns the client configs it saw.
func stubSDK(t *testing.T, models modelsClient) *[]*genai.ClientConfig {
	t.Helper()
	origNew, origModels := newGoogleClient, modelsOf
	t.Cleanup(func() {
		newGoogleClient, modelsOf = origNew, origModels
	})
	var seen []*genai.ClientConfig
	newGoogleClient = func(_ context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		seen = append(seen, cfg)
		return &genai.Client{}, nil
	}
	modelsOf = func(*genai.Client) modelsClient { return models }
	return &seen
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, "")
	require.Error(t, err)

	c, err := NewClient(&fakeKeys{key: "k"}, " ")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.model)
}

func TestGenerate_SendsImageAndSchema(t *testing.T) {
	stub := &stubModels{resp: textResponse(`{"advice":"ok"}`)}
	seen := stubSDK(t, stub)
	c, err := NewClient(&fakeKeys{key: "AIza-test"}, "gemini-test", WithTemperature(0.8))
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "read this palm", domain.Image{MIMEType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	require.Equal(t, `{"advice":"ok"}`, out)

	require.Len(t, *seen, 1)
	require.Equal(t, "AIza-test", (*seen)[0].APIKey)
	require.Equal(t, genai.BackendGeminiAPI, (*seen)[0].Backend)

	require.Equal(t, "gemini-test", stub.gotModel)
	require.Len(t, stub.gotContents, 1)
	parts := stub.gotContents[0].Parts
	require.Len(t, parts, 2)
	require.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	require.Equal(t, []byte("png"), parts[0].InlineData.Data)
	require.Equal(t, "read this palm", parts[1].Text)

	require.Equal(t, "application/json", stub.gotConfig.ResponseMIMEType)
	require.NotNil(t, stub.gotConfig.ResponseSchema)
	fate := stub.gotConfig.ResponseSchema.Properties["fateLine"]
	require.NotNil(t, fate.Nullable)
	require.True(t, *fate.Nullable)
	require.NotContains(t, stub.gotConfig.ResponseSchema.Required, "fateLine")
	require.InDelta(t, 0.8, *stub.gotConfig.Temperature, 0.0001)
}

func TestGenerate_EmptyImage(t *testing.T) {
	c, err := NewClient(&fakeKeys{key: "k"}, "")
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "p", domain.Image{})
	require.ErrorContains(t, err, "image")
}

func TestChat_MapsRolesAndSystem(t *testing.T) {
	stub := &stubModels{resp: textResponse("Your heart line glows.")}
	stubSDK(t, stub)
	c, err := NewClient(&fakeKeys{key: "k"}, "")
	require.NoError(t, err)

	out, err := c.Chat(context.Background(), "You are a palm reader.", []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "hi"},
		{Role: domain.RoleAssistant, Content: "hello"},
		{Role: domain.RoleUser, Content: "love?"},
	})
	require.NoError(t, err)
	require.Equal(t, "Your heart line glows.", out)

	require.Len(t, stub.gotContents, 3)
	require.Equal(t, genai.RoleUser, stub.gotContents[0].Role)
	require.Equal(t, genai.RoleModel, stub.gotContents[1].Role)
	require.Equal(t, "love?", stub.gotContents[2].Parts[0].Text)
	require.Equal(t, "You are a palm reader.", stub.gotConfig.SystemInstruction.Parts[0].Text)
	require.Nil(t, stub.gotConfig.ResponseSchema)
}

func TestClient_ReusesSDKClientPerKey(t *testing.T) {
	stub := &stubModels{resp: textResponse("ok")}
	seen := stubSDK(t, stub)
	keys := &fakeKeys{key: "first"}
	c, err := NewClient(keys, "")
	require.NoError(t, err)

	for range 3 {
		_, err = c.Chat(context.Background(), "", []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
		require.NoError(t, err)
	}
	require.Len(t, *seen, 1)

	keys.key = "rotated"
	_, err = c.Chat(context.Background(), "", []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	require.Len(t, *seen, 2)
	require.Equal(t, "rotated", (*seen)[1].APIKey)
}

func TestClient_KeyErrors(t *testing.T) {
	stubSDK(t, &stubModels{})

	c, err := NewClient(&fakeKeys{err: errors.New("ssm down")}, "")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "", nil)
	require.ErrorContains(t, err, "ssm down")

	c, err = NewClient(&fakeKeys{}, "")
	require.NoError(t, err)
	_, err = c.Chat(context.Background(), "", nil)
	require.ErrorContains(t, err, "api key is empty")
}

func TestClient_APIErrorExposesStatus(t *testing.T) {
	stubSDK(t, &stubModels{err: fmt.Errorf("call: %w", genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED"})})
	c, err := NewClient(&fakeKeys{key: "k"}, "")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "", nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, 429, statusErr.HTTPStatusCode())
}

func TestClient_EmptyText(t *testing.T) {
	stubSDK(t, &stubModels{resp: textResponse("  ")})
	c, err := NewClient(&fakeKeys{key: "k"}, "")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "", nil)
	require.ErrorContains(t, err, "no text")
}

func TestClient_TransportError(t *testing.T) {
	stubSDK(t, &stubModels{err: errors.New("connection reset")})
	c, err := NewClient(&fakeKeys{key: "k"}, "")
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), "", nil)
	require.ErrorContains(t, err, "connection reset")
	var statusErr *StatusError
	require.False(t, errors.As(err, &statusErr))
}
