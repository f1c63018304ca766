package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/metrics"
	"voicecoach-gateway/internal/common/observability"
)

// contentGenerator is the part of *genai.Models the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini implements Provider over the Gemini API.
type Gemini struct {
	config Config
	models contentGenerator
	logger Logger
	obs    *observability.Observability
}

// NewGemini builds a client for the Gemini API. httpClient may be nil.
func NewGemini(ctx context.Context, cfg Config, httpClient *http.Client, log Logger, obs *observability.Observability) (*Gemini, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, apperrors.NewConfigurationError("provider api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGemini(cfg, client.Models, log, obs), nil
}

func newGemini(cfg Config, models contentGenerator, log Logger, obs *observability.Observability) *Gemini {
	return &Gemini{
		config: cfg.withDefaults(),
		models: models,
		logger: log,
		obs:    obs,
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt Prompt) (string, error) {
	start := time.Now()
	text, err := g.generate(ctx, prompt)
	metrics.ObserveProviderCall(prompt.Operation, outcome(err), time.Since(start))
	return text, err
}

func (g *Gemini) generate(ctx context.Context, prompt Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	contents := buildContents(prompt)
	genConfig := &genai.GenerateContentConfig{}
	if prompt.JSONMode {
		genConfig.ResponseMIMEType = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := g.config.BaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", classify(ctx, lastErr)
			}
		}

		text, err := g.attempt(ctx, prompt, attempt+1, contents, genConfig)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !transient(ctx, err) {
			break
		}
		g.logger.Warn("provider call failed, retrying", map[string]interface{}{
			"operation": prompt.Operation,
			"attempt":   attempt + 1,
			"error":     err.Error(),
		})
	}
	return "", classify(ctx, lastErr)
}

func (g *Gemini) attempt(ctx context.Context, prompt Prompt, n int, contents []*genai.Content, genConfig *genai.GenerateContentConfig) (string, error) {
	ctx, span := g.obs.StartSpan(ctx, "provider.generate",
		attribute.String("model", g.config.Model),
		attribute.String("operation", prompt.Operation),
		attribute.Int("attempt", n),
	)
	defer span.End()

	resp, err := g.models.GenerateContent(ctx, g.config.Model, contents, genConfig)
	if err == nil {
		text := ""
		if resp != nil {
			text = resp.Text()
		}
		if strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%w: empty response", apperrors.ErrMalformedOutput)
		} else {
			g.logger.Debug("provider call completed", map[string]interface{}{
				"operation": prompt.Operation,
				"attempt":   n,
				"chars":     len(text),
			})
			return text, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "provider call failed")
	return "", err
}

func buildContents(prompt Prompt) []*genai.Content {
	parts := make([]*genai.Part, 0, 2)
	parts = append(parts, genai.NewPartFromText(prompt.Text))
	if len(prompt.Audio) > 0 {
		parts = append(parts, genai.NewPartFromBytes(prompt.Audio, prompt.MimeType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// transient reports whether another attempt may succeed: 429, 5xx and
// network failures, and only while the call deadline has not passed.
func transient(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, apperrors.ErrMalformedOutput) {
		return false
	}
	if code, ok := apiErrorCode(err); ok {
		return code == http.StatusTooManyRequests || code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func classify(ctx context.Context, err error) error {
	if err == nil {
		err = ctx.Err()
	}
	switch {
	case errors.Is(err, apperrors.ErrMalformedOutput):
		return err
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return fmt.Errorf("%w: %v", apperrors.ErrProviderTimeout, err)
	default:
		return fmt.Errorf("%w: %v", apperrors.ErrProviderFailed, err)
	}
}

func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func isNetTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, apperrors.ErrProviderTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, apperrors.ErrMalformedOutput):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeError
	}
}
