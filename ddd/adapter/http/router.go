package http

import (
	"github.com/gin-gonic/gin"

	"transcribe-service/ddd/application/app"
	"transcribe-service/pkg/manager"
	"transcribe-service/pkg/middleware"
)

func init() {
	manager.RegisterRoutes(RegisterTranscriptionRoutes)
}

// RegisterTranscriptionRoutes attaches the service routes to the shared engine.
func RegisterTranscriptionRoutes(router *gin.Engine, deps *manager.Dependencies) {
	var transcribeApp app.TranscribeApp
	if deps != nil {
		if v, ok := deps.TranscribeAppService.(app.TranscribeApp); ok {
			transcribeApp = v
		}
	}
	if transcribeApp == nil {
		transcribeApp = app.DefaultTranscribeApp()
	}

	controller := NewTranscriptionController(transcribeApp)

	v1 := router.Group("/api/v1", middleware.RequestContextMiddleware())
	{
		transcriptions := v1.Group("/transcriptions")
		{
			transcriptions.POST("", controller.Submit)
			transcriptions.GET("/:job_uuid", controller.GetDetail)
			transcriptions.GET("/:job_uuid/status", controller.GetStatus)
		}
	}
}
