package port

import (
	"context"
	"errors"

	"transcribe-service/ddd/domain/vo"
)

// ErrTranscriptionFailed wraps failures of the underlying inference call.
// The engine never retries internally; the orchestrator decides.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcription is the raw engine output before speaker merge.
type Transcription struct {
	Text     string
	Language string
	Duration float64
	Segments []vo.TranscriptSegment
}

// Transcriber runs inference over a normalized waveform. Language "auto" (or
// empty) enables detection; any other code forces that language.
type Transcriber interface {
	Transcribe(ctx context.Context, model *Model, audioPath, language string) (*Transcription, error)
}
