package service

import "transcribe-service/ddd/domain/vo"

// MergeSpeakers assigns a dominant speaker to each transcript segment by
// accumulated temporal overlap with the diarization segments. Ties go to the
// speaker encountered first in diarization order. Segments with no overlap
// keep an empty speaker. Pure function: inputs are not mutated and an empty
// diarization list returns the transcript segments unchanged.
func MergeSpeakers(transcript []vo.TranscriptSegment, diarization []vo.DiarizationSegment) []vo.TranscriptSegment {
	if len(diarization) == 0 {
		return transcript
	}

	merged := make([]vo.TranscriptSegment, len(transcript))
	for i, seg := range transcript {
		merged[i] = seg
		merged[i].Speaker = dominantSpeaker(seg.Start, seg.End, diarization)
	}
	return merged
}

// dominantSpeaker picks the speaker with the largest accumulated overlap over
// [start, end). The final scan walks speakers in first-encounter order with a
// strictly-greater comparison, so ties resolve to the speaker that appeared
// first in the diarization sequence.
func dominantSpeaker(start, end float64, diarization []vo.DiarizationSegment) string {
	totals := make(map[string]float64, 4)
	order := make([]string, 0, 4)

	for _, d := range diarization {
		overlap := overlapDuration(start, end, d.Start, d.End)
		if overlap <= 0 {
			continue
		}
		if _, seen := totals[d.SpeakerID]; !seen {
			order = append(order, d.SpeakerID)
		}
		totals[d.SpeakerID] += overlap
	}

	best := ""
	bestOverlap := 0.0
	for _, id := range order {
		if totals[id] > bestOverlap {
			bestOverlap = totals[id]
			best = id
		}
	}
	return best
}

func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
