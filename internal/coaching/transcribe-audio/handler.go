// internal/coaching/transcribe-audio/handler.go
package transcribeaudio

import (
	"context"
	"strings"
	"time"

	"voicecoach-gateway/internal/coaching"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/observability"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/internal/provider"
)

const (
	TaskType = "transcribe-audio"
)

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Handler struct {
	config   *Config
	provider provider.Provider
	logger   Logger
	obs      *observability.Observability
}

func NewHandler(config *Config, p provider.Provider, log Logger, obs *observability.Observability) *Handler {
	return &Handler{
		config:   config,
		provider: p,
		logger:   log,
		obs:      obs,
	}
}

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
	if len(input.Audio) == 0 {
		return nil, apperrors.NewValidationError("", apperrors.FieldError{Field: "audio", Message: "must not be empty"})
	}
	mimeType := input.MimeType
	if mimeType == "" {
		mimeType = h.config.DefaultMimeType
	}

	text, err := h.provider.Generate(ctx, provider.Prompt{
		Operation: TaskType,
		Text:      prompt,
		Audio:     input.Audio,
		MimeType:  mimeType,
		JSONMode:  true,
	})
	if err != nil {
		return nil, apperrors.FromProviderError(TaskType, err)
	}

	lines, err := coaching.DecodeLines(text, "transcription")
	if err != nil {
		return nil, apperrors.NewUpstreamMalformedError(TaskType, err)
	}

	output := &Output{Transcription: make([]models.ScriptLine, 0, len(lines))}
	for _, l := range lines {
		if strings.TrimSpace(l.Line) == "" {
			continue
		}
		output.Transcription = append(output.Transcription, models.ScriptLine{
			Timestamp: strings.TrimSpace(l.Timestamp),
			Line:      strings.TrimSpace(l.Line),
		})
	}

	h.logger.Info("audio transcribed", map[string]interface{}{
		"mimeType": mimeType,
		"bytes":    len(input.Audio),
		"segments": len(output.Transcription),
	})
	return output, nil
}

const prompt = `Please transcribe the following audio.
Provide a timestamp range for each transcribed sentence or significant pause.
Your response MUST be a valid JSON object with a single key "transcription".
The value of "transcription" should be a list of objects.
Each object should have two keys: "timestamp" (string) and "line" (string).
Example format:
{
  "transcription": [
    {"timestamp": "00:00-00:05", "line": "The first transcribed sentence."},
    {"timestamp": "00:06-00:12", "line": "The second transcribed sentence."}
  ]
}`
