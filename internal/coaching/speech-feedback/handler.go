// internal/coaching/speech-feedback/handler.go
package speechfeedback

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"voicecoach-gateway/internal/coaching"
	apperrors "voicecoach-gateway/internal/common/errors"
	"voicecoach-gateway/internal/common/observability"
	"voicecoach-gateway/internal/models"
	"voicecoach-gateway/internal/provider"
)

const (
	TaskType = "speech-feedback"
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
	text, err := h.provider.Generate(ctx, provider.Prompt{
		Operation: TaskType,
		Text:      buildPrompt(input),
		JSONMode:  true,
	})
	if err != nil {
		return nil, apperrors.FromProviderError(TaskType, err)
	}

	report, err := h.coerce(text)
	if err != nil {
		return nil, apperrors.NewUpstreamMalformedError(TaskType, err)
	}

	h.logger.Info("feedback generated", map[string]interface{}{
		"score": report.Score,
		"tips":  len(report.DetailedTips),
	})
	return report, nil
}

func buildPrompt(input *Input) string {
	original := input.OriginalScript
	if original == nil {
		original = []models.ScriptLine{}
	}
	transcribed := input.Transcription
	if transcribed == nil {
		transcribed = []models.ScriptLine{}
	}

	var b strings.Builder
	b.WriteString("You are a public speaking coach. Your task is to analyze a user's speech delivery by comparing an original script to their transcribed speech and providing a detailed analysis.\n\n")
	b.WriteString("Here is the original script:\n```json\n")
	b.WriteString(coaching.MarshalIndented(original))
	b.WriteString("\n```\n\nHere is the user's transcribed speech:\n```json\n")
	b.WriteString(coaching.MarshalIndented(transcribed))
	b.WriteString("\n```\n\n")
	b.WriteString(`Please perform the following actions and return the response in the requested JSON format.
1. Overall Score (0-10): Provide a numeric score based on how well the user followed the script.
2. Overall Feedback: Give a very short, one-sentence overall feedback on the performance.
3. Speech Analysis:
   - Word Repetition Score (0-10): Score how often the user unnecessarily repeats words.
   - Speaking Pace Score (0-10): Based on timestamps and text, score the speaking pace.
   - Filler Words Score (0-10): Score the usage of filler words (e.g., 'um', 'ah', 'like'). Higher score means fewer fillers.
   - Voice Clarity Score (0-10): Based on the coherence of the transcribed text, estimate speech clarity.
   - Filler Words Count: Provide the total count of identified filler words.
   - Repetitive Words List: Provide a list of words that were repeated unnecessarily.
4. Detailed Tips: For each entry in the original script, find the corresponding part in the user's transcription. Provide a brief, one-sentence suggestion for each comparison.

Your response MUST be a valid JSON object that strictly adheres to the following structure.
{
  "score": <float>,
  "overall_feedback": "<string>",
  "word_repetition_score": <float>,
  "word_repetition_count": <int>,
  "speaking_pace_count": <int>,
  "speaking_pace_score": <float>,
  "filler_words_score": <float>,
  "voice_clarity_score": <float>,
  "filler_words_count": <int>,
  "repetitive_words_list": ["<string>", "<string>"],
  "detailed_tips": [
    {
      "original_timestamp": "<string from original script>",
      "transcribed_timestamp": "<corresponding string from transcription, or 'N/A' if not found>",
      "suggestion": "<string>"
    }
  ]
}
Do not include any other text or formatting like markdown backticks.`)
	return b.String()
}

// coerce fills absent or mistyped fields with zero values and clamps ranges.
// Only output that is not a JSON object is rejected.
func (h *Handler) coerce(text string) (*Output, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(coaching.StripFences(text)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedOutput, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: feedback is not an object", apperrors.ErrMalformedOutput)
	}

	report := &Output{
		Score:               h.score(raw["score"]),
		OverallFeedback:     toString(raw["overall_feedback"]),
		WordRepetitionScore: h.score(raw["word_repetition_score"]),
		WordRepetitionCount: toCount(raw["word_repetition_count"]),
		SpeakingPaceScore:   h.score(raw["speaking_pace_score"]),
		SpeakingPaceCount:   toCount(raw["speaking_pace_count"]),
		FillerWordsScore:    h.score(raw["filler_words_score"]),
		VoiceClarityScore:   h.score(raw["voice_clarity_score"]),
		FillerWordsCount:    toCount(raw["filler_words_count"]),
		RepetitiveWordsList: []string{},
		DetailedTips:        []models.DetailedTip{},
	}

	if words, ok := raw["repetitive_words_list"].([]interface{}); ok {
		for _, w := range words {
			if s := strings.TrimSpace(toString(w)); s != "" {
				report.RepetitiveWordsList = append(report.RepetitiveWordsList, s)
			}
		}
	}

	if tips, ok := raw["detailed_tips"].([]interface{}); ok {
		for _, t := range tips {
			obj, ok := t.(map[string]interface{})
			if !ok {
				continue
			}
			tip := models.DetailedTip{
				OriginalTimestamp:    toString(obj["original_timestamp"]),
				TranscribedTimestamp: toString(obj["transcribed_timestamp"]),
				Suggestion:           toString(obj["suggestion"]),
			}
			if strings.TrimSpace(tip.TranscribedTimestamp) == "" {
				tip.TranscribedTimestamp = h.config.MissingTimestamp
			}
			report.DetailedTips = append(report.DetailedTips, tip)
		}
	}

	return report, nil
}

func (h *Handler) score(v interface{}) float64 {
	f := toFloat(v)
	return math.Min(math.Max(f, h.config.MinScore), h.config.MaxScore)
}

func toFloat(v interface{}) float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		f, _ = x.Float64()
	case float64:
		f = x
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toCount(v interface{}) int {
	f := toFloat(v)
	if f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

func toString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
