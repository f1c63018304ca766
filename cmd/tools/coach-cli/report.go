package main

import (
	"fmt"
	"io"
	"strings"

	"voicecoach-gateway/internal/models"
)

const rule = "=================================================="

func renderScript(w io.Writer, s *models.ScriptResponse) {
	fmt.Fprintln(w, s.Title)
	fmt.Fprintln(w, strings.Repeat("-", len(s.Title)))
	for _, line := range s.Script {
		fmt.Fprintf(w, "[%s] %s\n", line.Timestamp, line.Line)
	}
}

// renderReport prints a feedback report in the console layout rehearsing
// speakers are used to.
func renderReport(w io.Writer, r *models.FeedbackReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "          PRESENTATION FEEDBACK REPORT")
	fmt.Fprintln(w, rule)

	fmt.Fprintf(w, "\nOverall Score: %.2f / 10.0\n", r.Score)

	fmt.Fprintln(w, "\n--- Overall Feedback ---")
	fmt.Fprintln(w, r.OverallFeedback)

	fmt.Fprintln(w, "\n--- Speech Analysis ---")
	fmt.Fprintf(w, "Speaking Pace Score: %.2f / 10.0\n", r.SpeakingPaceScore)
	fmt.Fprintf(w, "Voice Clarity Score: %.2f / 10.0\n", r.VoiceClarityScore)
	fmt.Fprintf(w, "Filler Words Score: %.2f / 10.0 (Count: %d)\n", r.FillerWordsScore, r.FillerWordsCount)
	fmt.Fprintf(w, "Word Repetition Score: %.2f / 10.0\n", r.WordRepetitionScore)
	repeated := "None"
	if len(r.RepetitiveWordsList) > 0 {
		repeated = strings.Join(r.RepetitiveWordsList, ", ")
	}
	fmt.Fprintf(w, "Repetitive Words: %s\n", repeated)

	fmt.Fprintln(w, "\n--- Detailed Comparison & Tips ---")
	if len(r.DetailedTips) == 0 {
		fmt.Fprintln(w, "No specific tips were generated.")
	}
	for _, tip := range r.DetailedTips {
		fmt.Fprintf(w, "\nOriginal [%s] vs. Your Speech [%s]:\n", tip.OriginalTimestamp, tip.TranscribedTimestamp)
		fmt.Fprintf(w, "  - Suggestion: %s\n", tip.Suggestion)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
}
