package worker

import (
	"context"
	"fmt"

	"transcribe-service/ddd/domain/service"
	"transcribe-service/ddd/infrastructure/database/persistence"
	"transcribe-service/ddd/infrastructure/diarize"
	"transcribe-service/ddd/infrastructure/executor"
	"transcribe-service/ddd/infrastructure/queue"
	"transcribe-service/ddd/infrastructure/storage"
	"transcribe-service/ddd/infrastructure/whisper"
	"transcribe-service/internal/resource"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
	"transcribe-service/pkg/manager"
	"transcribe-service/pkg/task"
)

func init() {
	manager.RegisterComponentPlugin(&TranscribeWorkerComponentPlugin{})
}

// TranscribeWorkerComponentPlugin assembles and starts the pipeline worker.
type TranscribeWorkerComponentPlugin struct{}

func (p *TranscribeWorkerComponentPlugin) Name() string {
	return "transcribeWorkerComponent"
}

func (p *TranscribeWorkerComponentPlugin) MustCreateComponent(deps *manager.Dependencies) manager.Component {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}

	jobRepo := persistence.NewMediaJobRepository()
	storageGateway := storage.NewMinioStorage(resource.DefaultMinioResource())
	jobQueue := queue.NewRedisJobQueue(resource.DefaultRedisResource().Client())

	normalizer := executor.NewFFmpegNormalizer(cfg.Whisper.FFmpegPath, cfg.Whisper.FFprobePath)
	modelLoader := whisper.NewLoader(storageGateway, cfg)
	engine := whisper.NewEngine(cfg)
	diarizer := diarize.NewPyannoteDiarizer(cfg)

	extractionSvc := service.NewExtractionService(jobRepo, storageGateway, normalizer, cfg)
	transcriptionSvc := service.NewTranscriptionService(
		jobRepo, storageGateway, normalizer, modelLoader, engine, diarizer, cfg)

	workerID := cfg.Worker.WorkerID
	if workerID == "" {
		workerID = "transcribe-worker"
	}

	return &transcribeWorkerComponent{
		name:    "transcribeWorker",
		enabled: cfg.Worker.Enabled,
		worker: NewTranscribeWorker(
			workerID, jobQueue, extractionSvc, transcriptionSvc, jobRepo, cfg),
	}
}

type transcribeWorkerComponent struct {
	name    string
	enabled bool
	worker  TranscribeWorker
}

func (c *transcribeWorkerComponent) Start() error {
	if !c.enabled {
		logger.Infof("Transcribe worker disabled by configuration name=%s", c.name)
		return nil
	}
	if c.worker == nil {
		return fmt.Errorf("transcribe worker not initialized")
	}
	task.Register(&backgroundTaskAdapter{
		name:      c.name,
		startFunc: c.worker.Start,
		stopFunc:  c.worker.Stop,
	})
	logger.Infof("Transcribe worker component registered background task name=%s", c.name)
	return nil
}

func (c *transcribeWorkerComponent) Stop() error {
	if c.worker != nil && c.worker.IsRunning() {
		return c.worker.Stop()
	}
	return nil
}

func (c *transcribeWorkerComponent) GetName() string {
	return c.name
}

// backgroundTaskAdapter adapts Start/Stop functions to the BackgroundTask interface.
type backgroundTaskAdapter struct {
	name      string
	startFunc func(ctx context.Context) error
	stopFunc  func() error
}

func (b *backgroundTaskAdapter) Name() string                    { return b.name }
func (b *backgroundTaskAdapter) Start(ctx context.Context) error { return b.startFunc(ctx) }
func (b *backgroundTaskAdapter) Stop() error                     { return b.stopFunc() }
