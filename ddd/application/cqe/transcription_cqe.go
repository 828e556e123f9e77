package cqe

import (
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/errno"
)

// SubmitTranscriptionReq is the job submission request.
type SubmitTranscriptionReq struct {
	UserUUID    string `header:"X-User-UUID" binding:"required"`
	InputPath   string `json:"input_path" binding:"required"`
	ModelTier   string `json:"model_tier"`
	Language    string `json:"language"`
	Diarize     bool   `json:"diarize"`
	MinSpeakers int    `json:"min_speakers"`
	MaxSpeakers int    `json:"max_speakers"`
}

func (req *SubmitTranscriptionReq) Validate() error {
	if req.UserUUID == "" {
		return errno.ErrUserUUIDRequired
	}
	if req.InputPath == "" {
		return errno.ErrInputPathRequired
	}
	if _, ok := vo.KindFromPath(req.InputPath); !ok {
		return errno.ErrUnsupportedMedia
	}
	if req.ModelTier == "" {
		req.ModelTier = string(vo.ModelTierBase)
	}
	if !vo.ModelTier(req.ModelTier).IsValid() {
		return errno.ErrInvalidModelTier
	}
	if req.MinSpeakers < 0 || req.MaxSpeakers < 0 {
		return errno.ErrInvalidParam
	}
	if req.MaxSpeakers > 0 && req.MinSpeakers > req.MaxSpeakers {
		return errno.ErrInvalidParam
	}
	return nil
}

// QueryTranscriptionReq addresses one job.
type QueryTranscriptionReq struct {
	JobUUID  string `uri:"job_uuid" binding:"required"`
	UserUUID string `header:"X-User-UUID" binding:"required"`
}

func (req *QueryTranscriptionReq) Validate() error {
	if req.JobUUID == "" {
		return errno.ErrMissingParam
	}
	if req.UserUUID == "" {
		return errno.ErrUserUUIDRequired
	}
	return nil
}
