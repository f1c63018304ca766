package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	generatescript "voicecoach-gateway/internal/coaching/generate-script"
	speechfeedback "voicecoach-gateway/internal/coaching/speech-feedback"
	transcribeaudio "voicecoach-gateway/internal/coaching/transcribe-audio"
	"voicecoach-gateway/internal/common/config"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/logger"
	"voicecoach-gateway/internal/common/validation"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/pkg/registry"
)

// MaxJSONBodyBytes bounds POST /generate_script bodies.
const MaxJSONBodyBytes = 64 << 10

type handlers struct {
	config      *config.Config
	logger      logger.Logger
	registry    *registry.OperationRegistry
	scripts     *generatescript.Handler
	transcriber *transcribeaudio.Handler
	feedback    *speechfeedback.Handler
	errors      *apperrors.ErrorHandler
	audio       *audioPolicy
}

func newHandlers(deps Deps) *handlers {
	return &handlers{
		config:      deps.Config,
		logger:      deps.Logger,
		registry:    deps.Registry,
		scripts:     deps.Scripts,
		transcriber: deps.Transcriber,
		feedback:    deps.Feedback,
		errors:      apperrors.NewErrorHandler(deps.Logger),
		audio:       newAudioPolicy(deps.Config.Audio),
	}
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthStatus{Status: "ok"})
}

func (h *handlers) generateScript(c *gin.Context) {
	body, err := readLimited(c, MaxJSONBodyBytes)
	if err != nil {
		h.fail(c, err)
		return
	}

	if err := h.validate(registry.OperationGenerateScript, body, ""); err != nil {
		h.fail(c, err)
		return
	}

	var req models.ScriptRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.fail(c, apperrors.NewValidationError("", apperrors.FieldError{Field: "body", Message: err.Error()}))
		return
	}

	ctx, cancel := h.operationContext(c, registry.OperationGenerateScript)
	defer cancel()

	out, err := h.scripts.Execute(ctx, generatescript.InputFromRequest(req))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) analyze(c *gin.Context) {
	req, err := h.parseAnalyzeRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}

	ctx, cancel := h.operationContext(c, registry.OperationAnalyze)
	defer cancel()

	transcript, err := h.transcriber.Execute(ctx, &transcribeaudio.Input{
		Audio:    req.Audio,
		MimeType: req.MimeType,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	report, err := h.feedback.Execute(ctx, &speechfeedback.Input{
		OriginalScript: req.OriginalScript,
		Transcription:  transcript.Transcription,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// operationContext bounds the whole operation by its registry timeout. Each
// provider call inside it still gets its own provider.timeout.
func (h *handlers) operationContext(c *gin.Context, operation string) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	op, ok := h.registry.Get(operation)
	if !ok {
		return ctx, func() {}
	}
	if d := op.TimeoutDuration(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return ctx, func() {}
}

// validate checks doc against the operation's input schema. prefix names the
// form field the document came from, if any.
func (h *handlers) validate(operation string, doc []byte, prefix string) error {
	result, err := validation.ValidateJSON(h.registry.InputSchema(operation), doc)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if result.Valid {
		return nil
	}

	fields := result.FieldErrors()
	if prefix != "" {
		for i := range fields {
			if fields[i].Field == "body" {
				fields[i].Field = prefix
			} else {
				fields[i].Field = prefix + "." + fields[i].Field
			}
		}
	}
	return apperrors.NewValidationError("", fields...)
}

func (h *handlers) fail(c *gin.Context, err error) {
	status, body := h.errors.Handle(routeOf(c), c.GetString(requestIDKey), err)
	c.AbortWithStatusJSON(status, body)
}

// readLimited reads the whole body, failing with PAYLOAD_TOO_LARGE past limit.
func readLimited(c *gin.Context, limit int64) ([]byte, error) {
	if c.Request.ContentLength > limit {
		return nil, apperrors.NewPayloadTooLargeError(limit)
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.NewPayloadTooLargeError(limit)
		}
		return nil, apperrors.NewValidationError("", apperrors.FieldError{Field: "body", Message: "could not be read"})
	}
	return body, nil
}
