// internal/coaching/generate-script/models.go
package generatescript

import "voicecoach-gateway/internal/models"

type Input struct {
	Topic           string
	DurationMinutes int
}

// InputFromRequest resolves the request's duration fields.
func InputFromRequest(req models.ScriptRequest) *Input {
	return &Input{
		Topic:           req.Topic,
		DurationMinutes: req.DurationMinutes(),
	}
}

type Output = models.ScriptResponse
