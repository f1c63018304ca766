// internal/coaching/transcribe-audio/config.go
package transcribeaudio

// DefaultMimeType is sent when the upload carries no usable type.
const DefaultMimeType = "audio/webm"

type Config struct {
	DefaultMimeType string
}

func LoadConfig() *Config {
	return &Config{DefaultMimeType: DefaultMimeType}
}
