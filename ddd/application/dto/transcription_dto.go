package dto

import (
	"time"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/vo"
)

// TranscriptionJobDto is the submission acknowledgement.
type TranscriptionJobDto struct {
	JobUUID   string    `json:"job_uuid"`
	UserUUID  string    `json:"user_uuid"`
	InputPath string    `json:"input_path"`
	MediaKind string    `json:"media_kind"`
	ModelTier string    `json:"model_tier"`
	Language  string    `json:"language"`
	Diarize   bool      `json:"diarize"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// TranscriptionStatusDto is the lightweight polling response. Text stays
// empty until the job completes.
type TranscriptionStatusDto struct {
	JobUUID      string `json:"job_uuid"`
	Status       string `json:"status"`
	IsReady      bool   `json:"is_ready"`
	Text         string `json:"text,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	RetryCount   int    `json:"retry_count,omitempty"`
}

// TranscriptionDetailDto carries the full result payload.
type TranscriptionDetailDto struct {
	JobUUID        string               `json:"job_uuid"`
	Status         string               `json:"status"`
	ModelTier      string               `json:"model_tier"`
	Language       string               `json:"language,omitempty"`
	Result         *vo.TranscriptResult `json:"result,omitempty"`
	ErrorMessage   string               `json:"error_message,omitempty"`
	ProcessingTime *float64             `json:"processing_time,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewTranscriptionJobDto builds the submission response from the entity.
func NewTranscriptionJobDto(job *entity.MediaJobEntity) *TranscriptionJobDto {
	if job == nil {
		return nil
	}
	return &TranscriptionJobDto{
		JobUUID:   job.JobUUID(),
		UserUUID:  job.UserUUID(),
		InputPath: job.InputPath(),
		MediaKind: string(job.MediaKind()),
		ModelTier: string(job.ModelTier()),
		Language:  job.Language(),
		Diarize:   job.DiarizeRequested(),
		Status:    string(job.Status()),
		CreatedAt: job.CreatedAt(),
	}
}

// NewTranscriptionStatusDto builds the polling response from the entity.
func NewTranscriptionStatusDto(job *entity.MediaJobEntity) *TranscriptionStatusDto {
	if job == nil {
		return nil
	}
	s := &TranscriptionStatusDto{
		JobUUID:    job.JobUUID(),
		Status:     string(job.Status()),
		IsReady:    job.IsCompleted(),
		RetryCount: job.RetryCount(),
	}
	if job.IsCompleted() && job.Result() != nil {
		s.Text = job.Result().Text
	}
	if job.IsFailed() {
		s.ErrorMessage = job.ErrorMessage()
	}
	return s
}

// NewTranscriptionDetailDto builds the full-result response from the entity.
func NewTranscriptionDetailDto(job *entity.MediaJobEntity) *TranscriptionDetailDto {
	if job == nil {
		return nil
	}
	return &TranscriptionDetailDto{
		JobUUID:        job.JobUUID(),
		Status:         string(job.Status()),
		ModelTier:      string(job.ModelTier()),
		Language:       job.Language(),
		Result:         job.Result(),
		ErrorMessage:   job.ErrorMessage(),
		ProcessingTime: job.ProcessingTime(),
		CreatedAt:      job.CreatedAt(),
		UpdatedAt:      job.UpdatedAt(),
	}
}
