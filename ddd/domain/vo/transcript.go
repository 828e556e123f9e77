package vo

import "strings"

// Word is one word-level timing entry inside a transcript segment.
type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// TranscriptSegment is one timestamped span of transcribed speech. Speaker is
// empty until (and unless) diarization assigns one.
type TranscriptSegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// Speaker is one roster entry mapping an anonymous diarization id to a display
// label and color.
type Speaker struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TranscriptResult is the persisted result payload attached to a completed job.
type TranscriptResult struct {
	Text           string              `json:"text"`
	Language       string              `json:"language"`
	Duration       float64             `json:"duration"`
	WordCount      int                 `json:"word_count"`
	Segments       []TranscriptSegment `json:"segments"`
	Speakers       []Speaker           `json:"speakers,omitempty"`
	ProcessingTime float64             `json:"processing_time"`
}

// CountWords counts whitespace-separated words in the full text.
func CountWords(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(strings.Fields(text))
}
