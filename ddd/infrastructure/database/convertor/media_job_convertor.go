package convertor

import (
	"encoding/json"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/ddd/infrastructure/database/po"
)

// MediaJobConvertor maps between the domain entity and the persistence row.
type MediaJobConvertor struct{}

func NewMediaJobConvertor() *MediaJobConvertor {
	return &MediaJobConvertor{}
}

func (c *MediaJobConvertor) ToEntity(row *po.MediaJob) *entity.MediaJobEntity {
	var result *vo.TranscriptResult
	if row.ResultJSON != nil && *row.ResultJSON != "" {
		var r vo.TranscriptResult
		if err := json.Unmarshal([]byte(*row.ResultJSON), &r); err == nil {
			result = &r
		}
	}

	extractedPath := ""
	if row.ExtractedAudioPath != nil {
		extractedPath = *row.ExtractedAudioPath
	}
	language := "auto"
	if row.Language != nil && *row.Language != "" {
		language = *row.Language
	}

	job := entity.RestoreMediaJobEntity(
		row.Id,
		row.JobUUID,
		row.UserUUID,
		row.InputPath,
		vo.MediaKind(row.MediaKind),
		extractedPath,
		vo.ModelTier(row.ModelTier),
		language,
		row.Diarize,
		row.MinSpeakers,
		row.MaxSpeakers,
		vo.JobStatus(row.Status),
		row.ErrorMessage,
		row.RetryCount,
		result,
		row.ProcessingTime,
		row.CreatedAt,
		row.UpdatedAt,
	)
	return job
}

func (c *MediaJobConvertor) ToPO(job *entity.MediaJobEntity) *po.MediaJob {
	row := &po.MediaJob{
		BaseModel: po.BaseModel{
			Id:        job.ID(),
			CreatedAt: job.CreatedAt(),
			UpdatedAt: job.UpdatedAt(),
		},
		JobUUID:      job.JobUUID(),
		UserUUID:     job.UserUUID(),
		InputPath:    job.InputPath(),
		MediaKind:    string(job.MediaKind()),
		ModelTier:    string(job.ModelTier()),
		Diarize:      job.DiarizeRequested(),
		MinSpeakers:  job.MinSpeakers(),
		MaxSpeakers:  job.MaxSpeakers(),
		Status:       string(job.Status()),
		ErrorMessage: job.ErrorMessage(),
		RetryCount:   job.RetryCount(),
	}

	if p := job.ExtractedAudioPath(); p != "" {
		row.ExtractedAudioPath = &p
	}
	if lang := job.Language(); lang != "" {
		row.Language = &lang
	}
	if result := job.Result(); result != nil {
		if data, err := json.Marshal(result); err == nil {
			s := string(data)
			row.ResultJSON = &s
		}
	}
	row.ProcessingTime = job.ProcessingTime()

	return row
}

// ResultToJSON serializes the result payload for the completion write.
func (c *MediaJobConvertor) ResultToJSON(result *vo.TranscriptResult) (string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
