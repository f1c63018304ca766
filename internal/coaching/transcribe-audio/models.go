// internal/coaching/transcribe-audio/models.go
package transcribeaudio

import "voicecoach-gateway/internal/models"

type Input struct {
	Audio    []byte
	MimeType string
}

type Output = models.Transcription
