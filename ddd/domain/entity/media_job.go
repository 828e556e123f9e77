package entity

import (
	"time"

	"github.com/google/uuid"

	"transcribe-service/ddd/domain/vo"
)

// MediaJobEntity is one submitted media-processing unit of work tracked
// through the pending → extracting → processing → {completed|failed}
// lifecycle. Media kind, model tier and the diarization decision are fixed at
// submission time.
type MediaJobEntity struct {
	id                 uint64
	jobUUID            string
	userUUID           string
	inputPath          string
	mediaKind          vo.MediaKind
	extractedAudioPath string
	modelTier          vo.ModelTier
	language           string
	diarize            bool
	minSpeakers        int
	maxSpeakers        int
	status             vo.JobStatus
	errorMessage       string
	retryCount         int
	result             *vo.TranscriptResult
	processingTime     *float64
	createdAt          time.Time
	updatedAt          time.Time
}

// NewMediaJobEntity creates a pending job with a fresh UUID.
func NewMediaJobEntity(userUUID, inputPath string, kind vo.MediaKind, tier vo.ModelTier, language string, diarize bool) *MediaJobEntity {
	now := time.Now()
	if language == "" {
		language = "auto"
	}
	return &MediaJobEntity{
		jobUUID:   uuid.New().String(),
		userUUID:  userUUID,
		inputPath: inputPath,
		mediaKind: kind,
		modelTier: tier,
		language:  language,
		diarize:   diarize,
		status:    vo.JobStatusPending,
		createdAt: now,
		updatedAt: now,
	}
}

// RestoreMediaJobEntity rebuilds an entity from persisted state.
func RestoreMediaJobEntity(
	id uint64,
	jobUUID, userUUID, inputPath string,
	kind vo.MediaKind,
	extractedAudioPath string,
	tier vo.ModelTier,
	language string,
	diarize bool,
	minSpeakers, maxSpeakers int,
	status vo.JobStatus,
	errorMessage string,
	retryCount int,
	result *vo.TranscriptResult,
	processingTime *float64,
	createdAt, updatedAt time.Time,
) *MediaJobEntity {
	return &MediaJobEntity{
		id:                 id,
		jobUUID:            jobUUID,
		userUUID:           userUUID,
		inputPath:          inputPath,
		mediaKind:          kind,
		extractedAudioPath: extractedAudioPath,
		modelTier:          tier,
		language:           language,
		diarize:            diarize,
		minSpeakers:        minSpeakers,
		maxSpeakers:        maxSpeakers,
		status:             status,
		errorMessage:       errorMessage,
		retryCount:         retryCount,
		result:             result,
		processingTime:     processingTime,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}
}

func (j *MediaJobEntity) ID() uint64        { return j.id }
func (j *MediaJobEntity) SetID(id uint64)   { j.id = id }
func (j *MediaJobEntity) JobUUID() string   { return j.jobUUID }
func (j *MediaJobEntity) UserUUID() string  { return j.userUUID }
func (j *MediaJobEntity) InputPath() string { return j.inputPath }

func (j *MediaJobEntity) MediaKind() vo.MediaKind { return j.mediaKind }
func (j *MediaJobEntity) ModelTier() vo.ModelTier { return j.modelTier }
func (j *MediaJobEntity) Language() string        { return j.language }

// DiarizeRequested reports the entitlement decision fixed at submission time.
func (j *MediaJobEntity) DiarizeRequested() bool { return j.diarize }

func (j *MediaJobEntity) MinSpeakers() int { return j.minSpeakers }
func (j *MediaJobEntity) MaxSpeakers() int { return j.maxSpeakers }

// SetSpeakerHints records optional min/max speaker counts for diarization.
func (j *MediaJobEntity) SetSpeakerHints(min, max int) {
	j.minSpeakers = min
	j.maxSpeakers = max
}

// ExtractedAudioPath is empty until extraction succeeds for a video-kind job.
func (j *MediaJobEntity) ExtractedAudioPath() string { return j.extractedAudioPath }

// SetExtractedAudioPath records the normalized audio location. Set at most once.
func (j *MediaJobEntity) SetExtractedAudioPath(path string) {
	if j.extractedAudioPath == "" {
		j.extractedAudioPath = path
		j.updatedAt = time.Now()
	}
}

// AudioPath is the path the processing stage should read: the extracted track
// for video jobs, the original upload otherwise.
func (j *MediaJobEntity) AudioPath() string {
	if j.extractedAudioPath != "" {
		return j.extractedAudioPath
	}
	return j.inputPath
}

func (j *MediaJobEntity) Status() vo.JobStatus { return j.status }

// SetStatus applies a lifecycle transition.
func (j *MediaJobEntity) SetStatus(status vo.JobStatus) {
	j.status = status
	j.updatedAt = time.Now()
}

func (j *MediaJobEntity) ErrorMessage() string { return j.errorMessage }

func (j *MediaJobEntity) SetErrorMessage(msg string) {
	j.errorMessage = msg
	j.updatedAt = time.Now()
}

func (j *MediaJobEntity) RetryCount() int { return j.retryCount }

// IncrementRetryCount bumps the transient-failure counter.
func (j *MediaJobEntity) IncrementRetryCount() {
	j.retryCount++
	j.updatedAt = time.Now()
}

// Result is non-nil only for completed jobs.
func (j *MediaJobEntity) Result() *vo.TranscriptResult { return j.result }

// CompleteWith attaches the result payload and marks the job completed in one
// step, so readers never observe one without the other.
func (j *MediaJobEntity) CompleteWith(result *vo.TranscriptResult) {
	j.result = result
	j.processingTime = &result.ProcessingTime
	j.errorMessage = ""
	j.status = vo.JobStatusCompleted
	j.updatedAt = time.Now()
}

func (j *MediaJobEntity) ProcessingTime() *float64 { return j.processingTime }
func (j *MediaJobEntity) CreatedAt() time.Time     { return j.createdAt }
func (j *MediaJobEntity) UpdatedAt() time.Time     { return j.updatedAt }

func (j *MediaJobEntity) IsCompleted() bool { return j.status == vo.JobStatusCompleted }
func (j *MediaJobEntity) IsFailed() bool    { return j.status == vo.JobStatusFailed }
func (j *MediaJobEntity) IsTerminal() bool  { return j.status.IsTerminal() }
func (j *MediaJobEntity) IsPending() bool   { return j.status == vo.JobStatusPending }
