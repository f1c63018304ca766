// Package provider calls the generative-AI service that writes scripts,
// transcribes rehearsals and scores them.
package provider

import (
	"context"
	"time"

	"voicecoach-gateway/internal/common/config"
)

// Prompt is one request to the provider.
type Prompt struct {
	// Operation labels metrics, spans and logs ("generate-script", "transcribe-audio", ...).
	Operation string
	Text      string
	// Audio is sent as an inline part ahead of Text when non-empty.
	Audio    []byte
	MimeType string
	// JSONMode asks the provider for an application/json response.
	JSONMode bool
}

// Provider returns the provider's text output for a prompt. Errors wrap
// errors.ErrProviderTimeout, errors.ErrProviderFailed or errors.ErrMalformedOutput.
type Provider interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
}

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTimeout     = 60 * time.Second
	DefaultBaseBackoff = 200 * time.Millisecond
)

// ConfigFrom derives provider settings from the application config.
func ConfigFrom(cfg *config.Config) Config {
	c := Config{
		APIKey:      cfg.Provider.APIKey,
		Model:       cfg.Provider.Model,
		BaseURL:     cfg.Provider.BaseURL,
		Timeout:     cfg.ProviderTimeout(),
		MaxRetries:  cfg.Provider.MaxRetries,
		BaseBackoff: DefaultBaseBackoff,
	}
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	return c
}
