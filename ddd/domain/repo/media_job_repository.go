package repo

import (
	"context"
	"errors"
	"time"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/vo"
)

// ErrJobNotFound is returned when no row matches the job UUID. A worker
// picking up a deleted job treats this as a no-op, not a failure.
var ErrJobNotFound = errors.New("media job not found")

// MediaJobRepository persists media jobs. The status row is the sole
// coordination point between workers; Claim is the only way to take ownership.
type MediaJobRepository interface {
	CreateMediaJob(ctx context.Context, job *entity.MediaJobEntity) error
	GetMediaJob(ctx context.Context, jobUUID string) (*entity.MediaJobEntity, error)

	// Claim atomically transitions the job from the expected status to the
	// target status. It returns false (and no error) when another worker won
	// the race or the job moved on.
	Claim(ctx context.Context, jobUUID string, from, to vo.JobStatus) (bool, error)

	// UpdateStatus sets status plus diagnostic message without touching the result.
	UpdateStatus(ctx context.Context, jobUUID string, status vo.JobStatus, message string) error

	// SetExtractedAudioPath records the normalized audio location exactly once.
	SetExtractedAudioPath(ctx context.Context, jobUUID, path string) error

	// CompleteWithResult attaches the result payload and the completed status in
	// one write.
	CompleteWithResult(ctx context.Context, jobUUID string, result *vo.TranscriptResult) error

	// ScheduleRetry re-opens the job for pickup after the given delay,
	// incrementing its retry counter.
	ScheduleRetry(ctx context.Context, jobUUID string, nextAttemptAt time.Time, message string) error

	// QueryStaleJobs returns non-terminal jobs whose last update is older than
	// the threshold (crashed-worker recovery).
	QueryStaleJobs(ctx context.Context, statuses []vo.JobStatus, updatedBefore time.Time, limit int) ([]*entity.MediaJobEntity, error)

	// QueryDueJobs returns pending jobs whose next attempt time has passed.
	QueryDueJobs(ctx context.Context, now time.Time, limit int) ([]*entity.MediaJobEntity, error)
}
