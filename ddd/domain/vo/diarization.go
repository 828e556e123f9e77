package vo

import "fmt"

// DiarizationSegment is one speaker-attributed time interval. SpeakerID is
// stable only within a single diarization run.
type DiarizationSegment struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	SpeakerID string  `json:"speaker"`
}

// speakerColors is the fixed palette cycled through by first-appearance order.
var speakerColors = []string{
	"#1f77b4", // blue
	"#ff7f0e", // orange
	"#2ca02c", // green
	"#d62728", // red
	"#9467bd", // purple
	"#8c564b", // brown
	"#e377c2", // pink
	"#7f7f7f", // gray
	"#bcbd22", // olive
	"#17becf", // cyan
}

// BuildSpeakerRoster assigns display names and palette colors to the distinct
// speaker ids, in first-appearance order over the given segments.
func BuildSpeakerRoster(segments []DiarizationSegment) []Speaker {
	if len(segments) == 0 {
		return nil
	}
	seen := make(map[string]bool, 4)
	roster := make([]Speaker, 0, 4)
	for _, seg := range segments {
		if seen[seg.SpeakerID] {
			continue
		}
		seen[seg.SpeakerID] = true
		i := len(roster)
		roster = append(roster, Speaker{
			ID:    seg.SpeakerID,
			Name:  fmt.Sprintf("Speaker %d", i+1),
			Color: speakerColors[i%len(speakerColors)],
		})
	}
	return roster
}
