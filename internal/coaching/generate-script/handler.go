// internal/coaching/generate-script/handler.go
package generatescript

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"voicecoach-gateway/internal/coaching"
	"voicecoach-gateway/internal/common/cache"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/metrics"
	"voicecoach-gateway/internal/common/observability"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/internal/provider"
)

const (
	TaskType = "generate-script"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Handler struct {
	config   *Config
	provider provider.Provider
	cache    cache.Cache
	logger   Logger
	obs      *observability.Observability
}

// NewHandler builds the operation. scripts may be nil to disable caching.
func NewHandler(config *Config, p provider.Provider, scripts cache.Cache, log Logger, obs *observability.Observability) *Handler {
	return &Handler{
		config:   config,
		provider: p,
		cache:    scripts,
		logger:   log,
		obs:      obs,
	}
}

// Execute returns a timed script for the topic. Errors are *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	start := time.Now()
	output, err := h.execute(ctx, input)

	status := "success"
	if err != nil {
		status = "failed"
	}
	h.obs.RecordOperation(ctx, TaskType, status)
	h.obs.RecordOperationDuration(ctx, TaskType, time.Since(start), status)
	return output, err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	topic := strings.TrimSpace(input.Topic)
	if topic == "" {
		return nil, apperrors.NewValidationError("", apperrors.FieldError{Field: "topic", Message: "topic is required"})
	}
	duration := input.DurationMinutes
	if duration <= 0 {
		duration = models.DefaultDurationMinutes
	}
	key := CacheKey(topic, duration)

	if cached, ok := h.lookup(ctx, key); ok {
		return cached, nil
	}

	text, err := h.provider.Generate(ctx, provider.Prompt{
		Operation: TaskType,
		Text:      buildPrompt(topic, duration),
		JSONMode:  true,
	})
	if err != nil {
		return nil, apperrors.FromProviderError(TaskType, err)
	}

	lines, err := parseScript(text, duration)
	if err != nil {
		return nil, apperrors.NewUpstreamMalformedError(TaskType, err)
	}

	output := &Output{
		Title:  "Presentation on " + topic,
		Script: lines,
	}

	h.logger.Info("script generated", map[string]interface{}{
		"durationMinutes": duration,
		"parts":           len(lines),
	})
	h.store(ctx, key, output)
	return output, nil
}

func (h *Handler) lookup(ctx context.Context, key string) (*Output, bool) {
	if h.cache == nil {
		return nil, false
	}
	var cached Output
	found, err := h.cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.ObserveCacheLookup(metrics.CacheError)
		h.logger.Warn("script cache lookup failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	case !found || len(cached.Script) == 0:
		metrics.ObserveCacheLookup(metrics.CacheMiss)
		return nil, false
	default:
		metrics.ObserveCacheLookup(metrics.CacheHit)
		return &cached, true
	}
}

func (h *Handler) store(ctx context.Context, key string, output *Output) {
	if h.cache == nil {
		return
	}
	if err := h.cache.SetJSON(ctx, key, output, h.config.CacheTTL); err != nil {
		h.logger.Warn("script cache store failed", map[string]interface{}{"error": err.Error()})
	}
}

// CacheKey identifies a script by topic and duration.
func CacheKey(topic string, duration int) string {
	sum := sha256.Sum256([]byte(topic + "|" + strconv.Itoa(duration)))
	return "script:" + hex.EncodeToString(sum[:])
}

func buildPrompt(topic string, duration int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a script for a %d-minute session on the topic: '%s'.\n", duration, topic)
	b.WriteString("Adapt your style to the user's intent expressed in the topic text (e.g., seminar, presentation, introduction, interview, lesson, pitch, demo). Do not assume a default style.\n")
	b.WriteString("The script should be divided into a logical number of parts appropriate for the duration.\n")
	b.WriteString("Provide a generic timestamp range (e.g., \"00:00-00:05\") for each part.\n")
	b.WriteString("Your response MUST be a valid JSON object with a single key \"script\".\n")
	b.WriteString("The value of \"script\" should be a list of objects.\n")
	b.WriteString("Each object should have two keys: \"timestamp\" (string) and \"line\" (string).\n")
	b.WriteString("Example format:\n")
	b.WriteString(`{
  "script": [
    {"timestamp": "00:00-00:05", "line": "Introduction line tailored to the requested context."},
    {"timestamp": "00:06-00:12", "line": "Next point."}
  ]
}`)
	return b.String()
}

// parseScript accepts the JSON script the prompt asks for. Prose output is
// kept verbatim, one part per paragraph, spread evenly over the session.
func parseScript(text string, duration int) ([]models.ScriptLine, error) {
	stripped := coaching.StripFences(text)
	if stripped == "" {
		return nil, fmt.Errorf("%w: empty script", apperrors.ErrMalformedOutput)
	}

	if !coaching.LooksLikeJSON(stripped) {
		return proseScript(stripped, duration), nil
	}

	decoded, err := coaching.DecodeLines(stripped, "script")
	if err != nil {
		return nil, err
	}
	lines := make([]models.ScriptLine, 0, len(decoded))
	for _, l := range decoded {
		if strings.TrimSpace(l.Line) == "" {
			continue
		}
		lines = append(lines, models.ScriptLine{
			Timestamp: strings.TrimSpace(l.Timestamp),
			Line:      strings.TrimSpace(l.Line),
		})
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: script has no lines", apperrors.ErrMalformedOutput)
	}
	return lines, nil
}

func proseScript(text string, duration int) []models.ScriptLine {
	var paragraphs []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}

	total := duration * 60
	n := len(paragraphs)
	lines := make([]models.ScriptLine, n)
	for i, p := range paragraphs {
		lines[i] = models.ScriptLine{
			Timestamp: coaching.FormatRange(total*i/n, total*(i+1)/n),
			Line:      p,
		}
	}
	return lines
}
