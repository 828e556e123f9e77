package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

// ExtractionService is the extracting stage: it claims a pending video-kind
// job, pulls the upload, extracts and normalizes the audio track, and stores
// the waveform for the processing stage.
type ExtractionService interface {
	Execute(ctx context.Context, jobUUID string) Outcome
}

type extractionServiceImpl struct {
	jobRepo    repo.MediaJobRepository
	storage    gateway.StorageGateway
	normalizer port.AudioNormalizer
	cfg        *config.Config
}

// NewExtractionService creates the extraction stage service.
func NewExtractionService(jobRepo repo.MediaJobRepository, storage gateway.StorageGateway, normalizer port.AudioNormalizer, cfg *config.Config) ExtractionService {
	return &extractionServiceImpl{
		jobRepo:    jobRepo,
		storage:    storage,
		normalizer: normalizer,
		cfg:        cfg,
	}
}

func (s *extractionServiceImpl) Execute(ctx context.Context, jobUUID string) Outcome {
	job, err := s.jobRepo.GetMediaJob(ctx, jobUUID)
	if errors.Is(err, repo.ErrJobNotFound) {
		// Deleted out-of-band between submission and pickup.
		logger.Infof("extraction skipped, job no longer exists job_uuid=%s", jobUUID)
		return done(jobUUID)
	}
	if err != nil {
		return retryable(jobUUID, 0, fmt.Errorf("load job: %w", err))
	}
	if job.IsTerminal() {
		return done(jobUUID)
	}
	if job.MediaKind() != vo.MediaKindVideo {
		// Audio uploads go straight to processing; nothing to extract.
		return Outcome{Action: ActionDone, JobUUID: jobUUID, EnqueueProcessing: job.IsPending()}
	}
	if job.ExtractedAudioPath() != "" {
		// Extraction already ran; only the handoff is missing.
		return Outcome{Action: ActionDone, JobUUID: jobUUID, EnqueueProcessing: true}
	}

	claimed, err := s.jobRepo.Claim(ctx, jobUUID, vo.JobStatusPending, vo.JobStatusExtracting)
	if err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("claim job: %w", err))
	}
	if !claimed {
		logger.Infof("extraction claim lost job_uuid=%s status=%s", jobUUID, job.Status())
		return done(jobUUID)
	}

	exists, err := s.storage.MediaExists(ctx, job.InputPath())
	if err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("check input object: %w", err))
	}
	if !exists {
		return terminal(jobUUID, fmt.Errorf("input file missing from storage: %s", job.InputPath()))
	}

	workDir := filepath.Join(s.cfg.Whisper.TempDir, "extract", jobUUID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warnf("failed to clean extraction work dir path=%s error=%s", workDir, err.Error())
		}
	}()

	localInput := filepath.Join(workDir, filepath.Base(job.InputPath()))
	if err := s.storage.DownloadMedia(ctx, job.InputPath(), localInput); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("download input: %w", err))
	}

	localWav := filepath.Join(workDir, jobUUID+".wav")
	if err := s.normalizer.Normalize(ctx, localInput, vo.MediaKindVideo, localWav); err != nil {
		// Permanent codec errors and transient I/O failures are
		// indistinguishable here; both consume the bounded retry budget.
		return retryable(jobUUID, job.RetryCount(), err)
	}

	objectKey := filepath.ToSlash(filepath.Join("extracted", jobUUID+".wav"))
	uploadedKey, err := s.storage.UploadExtractedAudio(ctx, localWav, objectKey)
	if err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("upload extracted audio: %w", err))
	}

	if err := s.jobRepo.SetExtractedAudioPath(ctx, jobUUID, uploadedKey); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("record extracted audio path: %w", err))
	}

	logger.Infof("audio track extracted job_uuid=%s object_key=%s", jobUUID, uploadedKey)
	return Outcome{Action: ActionDone, JobUUID: jobUUID, EnqueueProcessing: true}
}
