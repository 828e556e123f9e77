package port

import (
	"context"
	"fmt"

	"transcribe-service/ddd/domain/vo"
)

// ConversionError reports a failed decode/encode step, carrying the external
// command's exit status and trailing stderr for diagnostics.
type ConversionError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ConversionError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("media conversion failed: %v", e.Err)
	}
	return fmt.Sprintf("media conversion failed (cmd=%s exit=%d): %s", e.Command, e.ExitCode, e.Stderr)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// AudioNormalizer converts arbitrary uploaded media into a canonical
// single-channel 16 kHz 16-bit PCM waveform. Video inputs additionally drop
// the video stream. Never mutates the input; re-running yields an equivalent
// output.
type AudioNormalizer interface {
	Normalize(ctx context.Context, inputPath string, kind vo.MediaKind, outputPath string) error

	// ProbeDuration reads container metadata for the media duration in
	// seconds, returning 0 when it cannot be determined.
	ProbeDuration(ctx context.Context, path string) float64
}
