// internal/coaching/speech-feedback/config.go
package speechfeedback

type Config struct {
	MinScore float64
	MaxScore float64
	// MissingTimestamp replaces an absent transcribed_timestamp in a tip.
	MissingTimestamp string
}

func LoadConfig() *Config {
	return &Config{
		MinScore:         0,
		MaxScore:         10,
		MissingTimestamp: "N/A",
	}
}
