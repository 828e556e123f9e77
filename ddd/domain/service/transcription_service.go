package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

// TranscriptionService is the processing stage: it claims the job, loads the
// model for the granted tier, runs inference, optionally diarizes and merges,
// and attaches the result atomically with the completed status.
type TranscriptionService interface {
	Execute(ctx context.Context, jobUUID string) Outcome
}

type transcriptionServiceImpl struct {
	jobRepo     repo.MediaJobRepository
	storage     gateway.StorageGateway
	normalizer  port.AudioNormalizer
	modelLoader port.ModelLoader
	transcriber port.Transcriber
	diarizer    port.Diarizer
	cfg         *config.Config
}

// NewTranscriptionService creates the processing stage service.
func NewTranscriptionService(
	jobRepo repo.MediaJobRepository,
	storage gateway.StorageGateway,
	normalizer port.AudioNormalizer,
	modelLoader port.ModelLoader,
	transcriber port.Transcriber,
	diarizer port.Diarizer,
	cfg *config.Config,
) TranscriptionService {
	return &transcriptionServiceImpl{
		jobRepo:     jobRepo,
		storage:     storage,
		normalizer:  normalizer,
		modelLoader: modelLoader,
		transcriber: transcriber,
		diarizer:    diarizer,
		cfg:         cfg,
	}
}

func (s *transcriptionServiceImpl) Execute(ctx context.Context, jobUUID string) Outcome {
	job, err := s.jobRepo.GetMediaJob(ctx, jobUUID)
	if errors.Is(err, repo.ErrJobNotFound) {
		logger.Infof("processing skipped, job no longer exists job_uuid=%s", jobUUID)
		return done(jobUUID)
	}
	if err != nil {
		return retryable(jobUUID, 0, fmt.Errorf("load job: %w", err))
	}
	if job.IsTerminal() {
		return done(jobUUID)
	}

	if !s.claim(ctx, job) {
		logger.Infof("processing claim lost job_uuid=%s status=%s", jobUUID, job.Status())
		return done(jobUUID)
	}

	audioKey := job.AudioPath()
	exists, err := s.storage.MediaExists(ctx, audioKey)
	if err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("check audio object: %w", err))
	}
	if !exists {
		return terminal(jobUUID, fmt.Errorf("audio file missing from storage: %s", audioKey))
	}

	workDir := filepath.Join(s.cfg.Whisper.TempDir, "process", jobUUID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			logger.Warnf("failed to clean processing work dir path=%s error=%s", workDir, err.Error())
		}
	}()

	localAudio := filepath.Join(workDir, filepath.Base(audioKey))
	if err := s.storage.DownloadMedia(ctx, audioKey, localAudio); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("download audio: %w", err))
	}

	wavPath := localAudio
	if job.ExtractedAudioPath() == "" {
		// Audio uploads skip the extraction stage, so the format conversion
		// happens here.
		if _, ok := vo.KindFromPath(localAudio); !ok {
			return terminal(jobUUID, fmt.Errorf("unsupported media format: %s", filepath.Ext(localAudio)))
		}
		wavPath = filepath.Join(workDir, jobUUID+".wav")
		if err := s.normalizer.Normalize(ctx, localAudio, vo.MediaKindAudio, wavPath); err != nil {
			return retryable(jobUUID, job.RetryCount(), err)
		}
	}

	start := time.Now()

	model, err := s.modelLoader.Load(ctx, job.ModelTier())
	if err != nil {
		if errors.Is(err, port.ErrModelUnavailable) {
			// Deployment defect; burning retry budget would only delay the alert.
			return terminal(jobUUID, err)
		}
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("load model: %w", err))
	}
	defer model.Release()

	transcription, err := s.transcriber.Transcribe(ctx, model, wavPath, job.Language())
	if err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("%w: %v", port.ErrTranscriptionFailed, err))
	}

	segments := transcription.Segments
	var speakers []vo.Speaker
	if job.DiarizeRequested() {
		segments, speakers = s.diarize(ctx, job, wavPath, segments)
	}

	duration := transcription.Duration
	if duration == 0 && len(segments) > 0 {
		duration = segments[len(segments)-1].End
	}
	if duration == 0 {
		duration = s.normalizer.ProbeDuration(ctx, wavPath)
	}

	result := &vo.TranscriptResult{
		Text:           transcription.Text,
		Language:       transcription.Language,
		Duration:       duration,
		WordCount:      vo.CountWords(transcription.Text),
		Segments:       segments,
		Speakers:       speakers,
		ProcessingTime: time.Since(start).Seconds(),
	}

	if err := s.jobRepo.CompleteWithResult(ctx, jobUUID, result); err != nil {
		return retryable(jobUUID, job.RetryCount(), fmt.Errorf("persist result: %w", err))
	}

	logger.Infof("transcription completed job_uuid=%s model=%s language=%s duration=%.1fs words=%d speakers=%d",
		jobUUID, model.Tier, result.Language, duration, result.WordCount, len(speakers))
	return done(jobUUID)
}

// claim takes exclusive ownership. Audio jobs transition pending → processing;
// video jobs arrive in extracting after a successful extraction and transition
// extracting → processing when the downstream stage begins.
func (s *transcriptionServiceImpl) claim(ctx context.Context, job *entity.MediaJobEntity) bool {
	for _, from := range []vo.JobStatus{vo.JobStatusPending, vo.JobStatusExtracting} {
		claimed, err := s.jobRepo.Claim(ctx, job.JobUUID(), from, vo.JobStatusProcessing)
		if err != nil {
			logger.Warnf("claim attempt failed job_uuid=%s from=%s error=%s", job.JobUUID(), from, err.Error())
			return false
		}
		if claimed {
			return true
		}
	}
	return false
}

// diarize runs the optional speaker pass. Any failure leaves the transcript
// unlabeled; it never affects the overall job outcome.
func (s *transcriptionServiceImpl) diarize(ctx context.Context, job *entity.MediaJobEntity, wavPath string, segments []vo.TranscriptSegment) ([]vo.TranscriptSegment, []vo.Speaker) {
	if !s.diarizer.IsAvailable() {
		logger.Warnf("diarization requested but engine unavailable job_uuid=%s", job.JobUUID())
		return segments, nil
	}

	outcome := s.diarizer.Process(ctx, wavPath, job.MinSpeakers(), job.MaxSpeakers())
	if !outcome.Available || !outcome.OK {
		logger.Warnf("diarization produced no result job_uuid=%s", job.JobUUID())
		return segments, nil
	}

	merged := MergeSpeakers(segments, outcome.Segments)
	speakers := outcome.Speakers
	if len(speakers) == 0 {
		speakers = vo.BuildSpeakerRoster(outcome.Segments)
	}
	return merged, speakers
}
