package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/logger"
)

// ==========================
// Test Helpers
// ==========================

type fakeModels struct {
	calls   int32
	respond func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	n := int(atomic.AddInt32(&f.calls, 1))
	return f.respond(n, contents, cfg)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func createTestConfig() Config {
	return Config{
		APIKey:      "test-key",
		Model:       "gemini-2.5-flash",
		Timeout:     2 * time.Second,
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
	}
}

func newTestGemini(t *testing.T, cfg Config, models contentGenerator) *Gemini {
	return newGemini(cfg, models, logger.NewTestLogger(t), nil)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestGemini_Generate_Success(t *testing.T) {
	models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse("Hello, welcome to our product..."), nil
	}}
	g := newTestGemini(t, createTestConfig(), models)

	text, err := g.Generate(context.Background(), Prompt{Operation: "generate-script", Text: "write"})

	require.NoError(t, err)
	assert.Equal(t, "Hello, welcome to our product...", text)
	assert.Equal(t, int32(1), models.calls)
}

func TestGemini_Generate_BuildsAudioAndJSONMode(t *testing.T) {
	var gotContents []*genai.Content
	var gotConfig *genai.GenerateContentConfig
	models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotContents, gotConfig = contents, cfg
		return textResponse(`{"ok":true}`), nil
	}}
	g := newTestGemini(t, createTestConfig(), models)

	_, err := g.Generate(context.Background(), Prompt{
		Operation: "transcribe-audio",
		Text:      "transcribe",
		Audio:     []byte("RIFF"),
		MimeType:  "audio/wav",
		JSONMode:  true,
	})
	require.NoError(t, err)

	require.Len(t, gotContents, 1)
	parts := gotContents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "transcribe", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "audio/wav", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("RIFF"), parts[1].InlineData.Data)
	assert.Equal(t, "application/json", gotConfig.ResponseMIMEType)
}

// ==========================
// Retry & Classification
// ==========================

func TestGemini_Generate_RetriesTransientFailures(t *testing.T) {
	models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		if call == 1 {
			return nil, genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}
		}
		return textResponse("second time lucky"), nil
	}}
	g := newTestGemini(t, createTestConfig(), models)

	text, err := g.Generate(context.Background(), Prompt{Operation: "generate-script", Text: "x"})

	require.NoError(t, err)
	assert.Equal(t, "second time lucky", text)
	assert.Equal(t, int32(2), models.calls)
}

func TestGemini_Generate_Classification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		resp      *genai.GenerateContentResponse
		wantErr   error
		wantCalls int32
	}{
		{
			name:      "client error not retried",
			err:       genai.APIError{Code: http.StatusBadRequest, Message: "bad prompt"},
			wantErr:   apperrors.ErrProviderFailed,
			wantCalls: 1,
		},
		{
			name:      "quota retried then fails",
			err:       genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"},
			wantErr:   apperrors.ErrProviderFailed,
			wantCalls: 2,
		},
		{
			name:      "empty output is malformed",
			resp:      textResponse("   "),
			wantErr:   apperrors.ErrMalformedOutput,
			wantCalls: 1,
		},
		{
			name:      "no candidates is malformed",
			resp:      &genai.GenerateContentResponse{},
			wantErr:   apperrors.ErrMalformedOutput,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
				return tt.resp, tt.err
			}}
			g := newTestGemini(t, createTestConfig(), models)

			_, err := g.Generate(context.Background(), Prompt{Operation: "op", Text: "x"})

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantCalls, models.calls)
		})
	}
}

func TestGemini_Generate_Timeout(t *testing.T) {
	models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		time.Sleep(100 * time.Millisecond)
		return nil, context.DeadlineExceeded
	}}
	cfg := createTestConfig()
	cfg.Timeout = 20 * time.Millisecond
	g := newTestGemini(t, cfg, models)

	_, err := g.Generate(context.Background(), Prompt{Operation: "op", Text: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProviderTimeout)
	assert.Equal(t, int32(1), models.calls)
}

func TestGemini_Generate_ParentCancelled(t *testing.T) {
	models := &fakeModels{respond: func(call int, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, context.Canceled
	}}
	g := newTestGemini(t, createTestConfig(), models)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Generate(ctx, Prompt{Operation: "op", Text: "x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrProviderFailed)
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{MaxRetries: -1}.withDefaults()
	assert.Equal(t, DefaultModel, c.Model)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Equal(t, 0, c.MaxRetries)
	assert.Equal(t, DefaultBaseBackoff, c.BaseBackoff)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), Config{}, nil, logger.NewTestLogger(t), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigurationError(err))
}

// ==========================
// Gemini REST fake
// ==========================

func TestNewGemini_AgainstRESTFake(t *testing.T) {
	var hits int32
	var gotKey string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if !strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent") {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"script\":[]}"}]}}]}`))
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.BaseURL = server.URL + "/"
	g, err := NewGemini(context.Background(), cfg, server.Client(), logger.NewTestLogger(t), nil)
	require.NoError(t, err)

	text, err := g.Generate(context.Background(), Prompt{Operation: "generate-script", Text: "hello", JSONMode: true})

	require.NoError(t, err)
	assert.Equal(t, `{"script":[]}`, text)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, gotBody, "contents")
}

func TestNewGemini_RESTServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal secret detail","status":"INTERNAL"}}`))
	}))
	defer server.Close()

	cfg := createTestConfig()
	cfg.BaseURL = server.URL + "/"
	g, err := NewGemini(context.Background(), cfg, server.Client(), logger.NewTestLogger(t), nil)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Prompt{Operation: "generate-script", Text: "hello"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrProviderFailed))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&hits), int32(2))
}
