package models

// ScriptLine is one timed segment of a script or of a transcription.
type ScriptLine struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}

// ScriptRequest is the body of POST /generate_script.
type ScriptRequest struct {
	Topic         string `json:"topic"`
	Duration      *int   `json:"duration,omitempty"`       // minutes
	LengthSeconds *int   `json:"length_seconds,omitempty"` // alternative to Duration
}

// DefaultDurationMinutes applies when neither duration nor length_seconds is sent.
const DefaultDurationMinutes = 3

// DurationMinutes resolves the requested session length in whole minutes.
func (r ScriptRequest) DurationMinutes() int {
	if r.Duration != nil && *r.Duration > 0 {
		return *r.Duration
	}
	if r.LengthSeconds != nil && *r.LengthSeconds > 0 {
		return (*r.LengthSeconds + 59) / 60
	}
	return DefaultDurationMinutes
}

// ScriptResponse is the body returned by POST /generate_script.
type ScriptResponse struct {
	Title  string       `json:"title"`
	Script []ScriptLine `json:"script"`
}

// HealthStatus is the body returned by GET /health.
type HealthStatus struct {
	Status string `json:"status"`
}
