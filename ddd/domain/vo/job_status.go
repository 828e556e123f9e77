package vo

// JobStatus is the lifecycle status of a media job.
type JobStatus string

const (
	// JobStatusPending waits for a worker to claim the job.
	JobStatusPending JobStatus = "pending"
	// JobStatusExtracting means the audio track is being extracted from a video container.
	JobStatusExtracting JobStatus = "extracting"
	// JobStatusProcessing means transcription (and optional diarization) is running.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted is terminal success; the result payload is attached.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed is terminal failure; the error message carries the diagnostic.
	JobStatusFailed JobStatus = "failed"
)

// IsValid reports whether the status is a known lifecycle state.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusExtracting, JobStatusProcessing,
		JobStatusCompleted, JobStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the status string.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition may occur.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo checks the forward-only state machine. Audio-kind jobs skip
// the extracting state entirely.
func (s JobStatus) CanTransitionTo(target JobStatus) bool {
	switch s {
	case JobStatusPending:
		return target == JobStatusExtracting || target == JobStatusProcessing
	case JobStatusExtracting:
		return target == JobStatusProcessing || target == JobStatusFailed || target == JobStatusPending
	case JobStatusProcessing:
		return target == JobStatusCompleted || target == JobStatusFailed || target == JobStatusPending
	case JobStatusCompleted, JobStatusFailed:
		return false
	default:
		return false
	}
}
