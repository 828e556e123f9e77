package port

import (
	"context"

	"transcribe-service/ddd/domain/vo"
)

// DiarizationOutcome is the explicit result variant of a diarization run.
// Available=false means the engine cannot run at all (missing dependency or
// credential); OK=false with Available=true means this particular run failed.
// Neither case is an error to the caller — diarization is an optional
// enhancement, never a hard dependency of the pipeline.
type DiarizationOutcome struct {
	Available bool
	OK        bool
	Segments  []vo.DiarizationSegment
	Speakers  []vo.Speaker
}

// Unavailable is the outcome when the engine is not installed or configured.
func Unavailable() DiarizationOutcome {
	return DiarizationOutcome{}
}

// NoResult is the outcome when an available engine failed on this input.
func NoResult() DiarizationOutcome {
	return DiarizationOutcome{Available: true}
}

// Diarizer partitions audio into speaker-attributed intervals.
type Diarizer interface {
	IsAvailable() bool
	Process(ctx context.Context, audioPath string, minSpeakers, maxSpeakers int) DiarizationOutcome
}
