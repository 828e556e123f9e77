package app

import (
	"context"
	"errors"
	"sync"

	"transcribe-service/ddd/application/cqe"
	"transcribe-service/ddd/application/dto"
	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/ddd/infrastructure/database/persistence"
	"transcribe-service/ddd/infrastructure/entitlement"
	"transcribe-service/ddd/infrastructure/queue"
	"transcribe-service/internal/resource"
	"transcribe-service/pkg/assert"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/errno"
	"transcribe-service/pkg/kafka"
	"transcribe-service/pkg/logger"
)

var (
	singleTranscribeApp TranscribeApp
	onceTranscribeApp   sync.Once
)

// TranscribeApp is the submission and query surface of the service.
type TranscribeApp interface {
	// SubmitTranscription accepts a job, resolves entitlement and hands the
	// job to the pipeline.
	SubmitTranscription(ctx context.Context, req *cqe.SubmitTranscriptionReq) (*dto.TranscriptionJobDto, error)
	// GetTranscriptionStatus returns the lightweight polling view.
	GetTranscriptionStatus(ctx context.Context, req *cqe.QueryTranscriptionReq) (*dto.TranscriptionStatusDto, error)
	// GetTranscriptionDetail returns the full result payload.
	GetTranscriptionDetail(ctx context.Context, req *cqe.QueryTranscriptionReq) (*dto.TranscriptionDetailDto, error)
}

type transcribeAppImpl struct {
	jobRepo     repo.MediaJobRepository
	entitlement gateway.EntitlementResolver
	publisher   gateway.JobPublisher
}

func DefaultTranscribeApp() TranscribeApp {
	assert.NotCircular()
	onceTranscribeApp.Do(func() {
		cfg := config.GetGlobalConfig()
		singleTranscribeApp = NewTranscribeAppWith(
			persistence.NewMediaJobRepository(),
			entitlement.NewPlanResolver(resource.DefaultRedisResource().Client(), cfg),
			queue.NewKafkaJobPublisher(kafka.DefaultClient(), cfg),
		)
	})
	assert.NotNil(singleTranscribeApp)
	return singleTranscribeApp
}

func NewTranscribeAppWith(jobRepo repo.MediaJobRepository, resolver gateway.EntitlementResolver, publisher gateway.JobPublisher) TranscribeApp {
	return &transcribeAppImpl{
		jobRepo:     jobRepo,
		entitlement: resolver,
		publisher:   publisher,
	}
}

func (a *transcribeAppImpl) SubmitTranscription(ctx context.Context, req *cqe.SubmitTranscriptionReq) (*dto.TranscriptionJobDto, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	kind, ok := vo.KindFromPath(req.InputPath)
	if !ok {
		return nil, errno.ErrUnsupportedMedia
	}

	// Entitlement is decided once here; the pipeline trusts what the entity
	// carries and never re-derives plan capabilities mid-flight.
	decision, err := a.entitlement.Resolve(ctx, req.UserUUID, vo.ModelTier(req.ModelTier), req.Diarize)
	if err != nil {
		logger.Errorf("entitlement resolution failed user_uuid=%s error=%v", req.UserUUID, err)
		return nil, errno.ErrInternalServer
	}

	job := entity.NewMediaJobEntity(req.UserUUID, req.InputPath, kind, decision.Tier, req.Language, decision.Diarization)
	if decision.Diarization {
		job.SetSpeakerHints(req.MinSpeakers, req.MaxSpeakers)
	}

	if err := a.jobRepo.CreateMediaJob(ctx, job); err != nil {
		logger.Errorf("job persistence failed user_uuid=%s error=%v", req.UserUUID, err)
		return nil, errno.ErrDatabase
	}

	if err := a.publisher.PublishSubmitted(ctx, job); err != nil {
		logger.Errorf("job publish failed job_uuid=%s error=%v", job.JobUUID(), err)
		_ = a.jobRepo.UpdateStatus(ctx, job.JobUUID(), vo.JobStatusFailed, "failed to hand job to pipeline")
		return nil, errno.ErrQueueUnavailable
	}

	logger.Infof("transcription submitted job_uuid=%s user_uuid=%s kind=%s tier=%s diarize=%t",
		job.JobUUID(), job.UserUUID(), kind, decision.Tier, decision.Diarization)
	return dto.NewTranscriptionJobDto(job), nil
}

func (a *transcribeAppImpl) GetTranscriptionStatus(ctx context.Context, req *cqe.QueryTranscriptionReq) (*dto.TranscriptionStatusDto, error) {
	job, err := a.loadOwnedJob(ctx, req)
	if err != nil {
		return nil, err
	}
	return dto.NewTranscriptionStatusDto(job), nil
}

func (a *transcribeAppImpl) GetTranscriptionDetail(ctx context.Context, req *cqe.QueryTranscriptionReq) (*dto.TranscriptionDetailDto, error) {
	job, err := a.loadOwnedJob(ctx, req)
	if err != nil {
		return nil, err
	}
	return dto.NewTranscriptionDetailDto(job), nil
}

// loadOwnedJob fetches the job and enforces ownership. A foreign job reads as
// not found rather than forbidden, so job UUIDs cannot be probed.
func (a *transcribeAppImpl) loadOwnedJob(ctx context.Context, req *cqe.QueryTranscriptionReq) (*entity.MediaJobEntity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job, err := a.jobRepo.GetMediaJob(ctx, req.JobUUID)
	if errors.Is(err, repo.ErrJobNotFound) {
		return nil, errno.ErrJobNotFound
	}
	if err != nil {
		logger.Errorf("job lookup failed job_uuid=%s error=%v", req.JobUUID, err)
		return nil, errno.ErrDatabase
	}
	if job.UserUUID() != req.UserUUID {
		return nil, errno.ErrJobNotFound
	}
	return job, nil
}
