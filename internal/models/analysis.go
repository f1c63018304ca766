package models

// AnalyzeRequest is the decoded multipart body of POST /analyze.
type AnalyzeRequest struct {
	Audio          []byte
	MimeType       string
	Filename       string
	OriginalScript []ScriptLine
}

// Transcription is the provider's timestamped transcript of the rehearsal.
type Transcription struct {
	Transcription []ScriptLine `json:"transcription"`
}

// DetailedTip compares one script segment with what was actually said.
type DetailedTip struct {
	OriginalTimestamp    string `json:"original_timestamp"`
	TranscribedTimestamp string `json:"transcribed_timestamp"`
	Suggestion           string `json:"suggestion"`
}

// FeedbackReport is the body returned by POST /analyze. Scores are on a 0-10 scale.
type FeedbackReport struct {
	Score               float64       `json:"score"`
	OverallFeedback     string        `json:"overall_feedback"`
	WordRepetitionScore float64       `json:"word_repetition_score"`
	WordRepetitionCount int           `json:"word_repetition_count"`
	SpeakingPaceScore   float64       `json:"speaking_pace_score"`
	SpeakingPaceCount   int           `json:"speaking_pace_count"`
	FillerWordsScore    float64       `json:"filler_words_score"`
	VoiceClarityScore   float64       `json:"voice_clarity_score"`
	FillerWordsCount    int           `json:"filler_words_count"`
	RepetitiveWordsList []string      `json:"repetitive_words_list"`
	DetailedTips        []DetailedTip `json:"detailed_tips"`
}
