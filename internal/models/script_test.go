package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestScriptRequest_DurationMinutes(t *testing.T) {
	tests := []struct {
		name string
		req  ScriptRequest
		want int
	}{
		{"default", ScriptRequest{Topic: "x"}, DefaultDurationMinutes},
		{"explicit minutes", ScriptRequest{Duration: intPtr(5)}, 5},
		{"seconds exact minute", ScriptRequest{LengthSeconds: intPtr(60)}, 1},
		{"seconds rounds up", ScriptRequest{LengthSeconds: intPtr(61)}, 2},
		{"minutes win over seconds", ScriptRequest{Duration: intPtr(2), LengthSeconds: intPtr(600)}, 2},
		{"zero duration falls through", ScriptRequest{Duration: intPtr(0), LengthSeconds: intPtr(90)}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.DurationMinutes())
		})
	}
}
