package http

import (
	"github.com/gin-gonic/gin"

	"transcribe-service/ddd/application/app"
	"transcribe-service/ddd/application/cqe"
	"transcribe-service/pkg/restapi"
)

// TranscriptionController exposes job submission and result queries.
type TranscriptionController struct {
	transcribeApp app.TranscribeApp
}

func NewTranscriptionController(transcribeApp app.TranscribeApp) *TranscriptionController {
	return &TranscriptionController{transcribeApp: transcribeApp}
}

// Submit handles POST /api/v1/transcriptions.
func (c *TranscriptionController) Submit(ctx *gin.Context) {
	var req cqe.SubmitTranscriptionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, err)
		return
	}
	req.UserUUID = ctx.GetHeader("X-User-UUID")

	job, err := c.transcribeApp.SubmitTranscription(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, job)
}

// GetStatus handles GET /api/v1/transcriptions/:job_uuid/status.
func (c *TranscriptionController) GetStatus(ctx *gin.Context) {
	req := &cqe.QueryTranscriptionReq{
		JobUUID:  ctx.Param("job_uuid"),
		UserUUID: ctx.GetHeader("X-User-UUID"),
	}
	status, err := c.transcribeApp.GetTranscriptionStatus(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, status)
}

// GetDetail handles GET /api/v1/transcriptions/:job_uuid.
func (c *TranscriptionController) GetDetail(ctx *gin.Context) {
	req := &cqe.QueryTranscriptionReq{
		JobUUID:  ctx.Param("job_uuid"),
		UserUUID: ctx.GetHeader("X-User-UUID"),
	}
	detail, err := c.transcribeApp.GetTranscriptionDetail(ctx.Request.Context(), req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, detail)
}
