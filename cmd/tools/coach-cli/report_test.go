package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/pkg/registry"
)

// ==========================
// Report rendering
// ==========================

func TestRenderReport(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, &models.FeedbackReport{
		Score:               7.25,
		OverallFeedback:     "Solid delivery.",
		SpeakingPaceScore:   8,
		VoiceClarityScore:   9,
		FillerWordsScore:    6,
		FillerWordsCount:    4,
		WordRepetitionScore: 7,
		RepetitiveWordsList: []string{"basically", "so"},
		DetailedTips: []models.DetailedTip{
			{OriginalTimestamp: "00:00-00:10", TranscribedTimestamp: "00:00-00:12", Suggestion: "Slow down."},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "PRESENTATION FEEDBACK REPORT")
	assert.Contains(t, out, "Overall Score: 7.25 / 10.0")
	assert.Contains(t, out, "Solid delivery.")
	assert.Contains(t, out, "Filler Words Score: 6.00 / 10.0 (Count: 4)")
	assert.Contains(t, out, "Repetitive Words: basically, so")
	assert.Contains(t, out, "Original [00:00-00:10] vs. Your Speech [00:00-00:12]:")
	assert.Contains(t, out, "  - Suggestion: Slow down.")
	assert.NotContains(t, out, "No specific tips were generated.")
}

func TestRenderReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderReport(&buf, &models.FeedbackReport{})

	out := buf.String()
	assert.Contains(t, out, "Overall Score: 0.00 / 10.0")
	assert.Contains(t, out, "Repetitive Words: None")
	assert.Contains(t, out, "No specific tips were generated.")
}

func TestRenderScript(t *testing.T) {
	var buf bytes.Buffer
	renderScript(&buf, &models.ScriptResponse{
		Title: "Presentation on Go",
		Script: []models.ScriptLine{
			{Timestamp: "00:00-00:30", Line: "Hello."},
		},
	})
	assert.Equal(t, "Presentation on Go\n------------------\n[00:00-00:30] Hello.\n", buf.String())
}

// ==========================
// Registry commands
// ==========================

func TestCheckRegistry(t *testing.T) {
	require.NoError(t, checkRegistry(registry.Default()))

	missing := registry.Default()
	missing.Operations = missing.Operations[:1]
	assert.ErrorContains(t, checkRegistry(missing), "missing operation")

	dup := registry.Default()
	dup.Operations = append(dup.Operations, dup.Operations[0])
	assert.ErrorContains(t, checkRegistry(dup), "duplicate operation ID")

	badTimeout := registry.Default()
	badTimeout.Operations[1].Timeout = "soon"
	assert.ErrorContains(t, checkRegistry(badTimeout), "invalid timeout")

	sharedRoute := registry.Default()
	sharedRoute.Operations[2].Path = sharedRoute.Operations[1].Path
	assert.ErrorContains(t, checkRegistry(sharedRoute), "share route")

	empty := &registry.OperationRegistry{}
	assert.ErrorContains(t, checkRegistry(empty), "no operations")
}

func runRegistryCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := registryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRegistryValidateCommand(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		return path
	}

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "duplicate ids",
			content: `{"operations": [
				{"id": "health", "method": "GET", "path": "/health"},
				{"id": "health", "method": "GET", "path": "/healthz"}
			]}`,
			wantErr: "duplicate operation ID: health",
		},
		{
			name:    "missing operations",
			content: `{"operations": [{"id": "health", "method": "GET", "path": "/health"}]}`,
			wantErr: "missing operation generate-script",
		},
		{
			name:    "operation without id",
			content: `{"operations": [{"method": "GET", "path": "/health"}]}`,
			wantErr: "missing required field: id",
		},
		{
			name:    "empty file",
			content: `{}`,
			wantErr: "no operations",
		},
		{
			name:    "not json",
			content: `{"operations": [`,
			wantErr: "failed to parse registry",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runRegistryCmd(t, "validate", "--path", write(tt.name+".json", tt.content))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.NotContains(t, out, "validation passed")
		})
	}
}

func TestRegistryExportThenValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	out, err := runRegistryCmd(t, "export", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 operations")

	out, err = runRegistryCmd(t, "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Registry validation passed. Found 3 operations.")
}

func TestSaveRegistry_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, saveRegistry(registry.Default(), path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	require.NoError(t, checkRegistry(loaded))
	assert.Len(t, loaded.Operations, 3)
}

func TestValidateInput(t *testing.T) {
	assert.NoError(t, validateInput(registry.OperationGenerateScript, []byte(`{"topic":"Go","duration":3}`)))
	assert.Error(t, validateInput(registry.OperationGenerateScript, []byte(`{"duration":3}`)))
	assert.NoError(t, validateInput(registry.OperationAnalyze, []byte(`[{"timestamp":"00:00","line":"hi"}]`)))
	assert.Error(t, validateInput(registry.OperationAnalyze, []byte(`[]`)))
}
