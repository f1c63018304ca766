// internal/coaching/speech-feedback/models.go
package speechfeedback

import "voicecoach-gateway/internal/models"

type Input struct {
	OriginalScript []models.ScriptLine
	Transcription  []models.ScriptLine
}

type Output = models.FeedbackReport
