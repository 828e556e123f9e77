package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/service"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/ddd/infrastructure/queue"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

// TranscribeWorker drains the stage queues. Each loop claims one job at a
// time; after MaxJobsPerLoop jobs the loop recycles itself, which bounds how
// much memory a long-lived loop can accumulate from inference runs.
type TranscribeWorker interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
	Stats() WorkerStats
}

// WorkerStats is a point-in-time snapshot for the health endpoint.
type WorkerStats struct {
	ProcessedJobs uint64
	CompletedJobs uint64
	RetriedJobs   uint64
	FailedJobs    uint64
	LoopsRecycled uint64
	CurrentlyBusy int
	StartTime     time.Time
	LastJobTime   time.Time
}

type transcribeWorkerImpl struct {
	id            string
	jobQueue      queue.JobQueue
	extraction    service.ExtractionService
	transcription service.TranscriptionService
	jobRepo       repo.MediaJobRepository
	cfg           *config.Config
	retryPolicy   vo.RetryPolicy

	running bool
	cancel  context.CancelFunc
	stats   WorkerStats
	mu      sync.RWMutex
	wg      sync.WaitGroup
}

func NewTranscribeWorker(
	id string,
	jobQueue queue.JobQueue,
	extraction service.ExtractionService,
	transcription service.TranscriptionService,
	jobRepo repo.MediaJobRepository,
	cfg *config.Config,
) TranscribeWorker {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &transcribeWorkerImpl{
		id:            id,
		jobQueue:      jobQueue,
		extraction:    extraction,
		transcription: transcription,
		jobRepo:       jobRepo,
		cfg:           cfg,
		retryPolicy: vo.RetryPolicy{
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
			MaxAttempts: cfg.Retry.MaxAttempts,
		},
		stats: WorkerStats{StartTime: time.Now()},
	}
}

func (w *transcribeWorkerImpl) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker %s is already running", w.id)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.stats.StartTime = time.Now()

	loopCount := w.cfg.Worker.LoopCount
	if loopCount <= 0 {
		loopCount = 1
	}
	logger.Infof("starting transcribe worker id=%s loops=%d", w.id, loopCount)

	for i := 0; i < loopCount; i++ {
		w.wg.Add(2)
		go w.stageLoop(workerCtx, queue.StageExtraction, i)
		go w.stageLoop(workerCtx, queue.StageProcessing, i)
	}

	w.wg.Add(2)
	go w.promoteLoop(workerCtx)
	go w.sweepLoop(workerCtx)

	return nil
}

func (w *transcribeWorkerImpl) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	logger.Infof("stopping transcribe worker id=%s", w.id)
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.running = false
	logger.Infof("transcribe worker stopped id=%s", w.id)
	return nil
}

func (w *transcribeWorkerImpl) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *transcribeWorkerImpl) Stats() WorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// stageLoop claims from one stage queue until cancelled. After a bounded
// number of jobs the loop respawns itself with fresh state.
func (w *transcribeWorkerImpl) stageLoop(ctx context.Context, stage queue.Stage, loopID int) {
	defer w.wg.Done()

	logger.Debugf("worker loop started id=%s stage=%s loop=%d", w.id, stage, loopID)
	jobsHandled := 0
	maxJobs := w.cfg.Worker.MaxJobsPerLoop

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobUUID, err := w.jobQueue.Dequeue(ctx, stage, w.cfg.Worker.PollInterval)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Warnf("dequeue failed id=%s stage=%s error=%s", w.id, stage, err.Error())
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if jobUUID == "" {
			continue
		}

		w.handleJob(ctx, stage, jobUUID)

		jobsHandled++
		if maxJobs > 0 && jobsHandled >= maxJobs {
			w.updateStats(func(s *WorkerStats) { s.LoopsRecycled++ })
			logger.Infof("recycling worker loop id=%s stage=%s loop=%d jobs=%d", w.id, stage, loopID, jobsHandled)
			w.wg.Add(1)
			go w.stageLoop(ctx, stage, loopID)
			return
		}
	}
}

// handleJob runs one stage under the soft/hard time limits and interprets the
// outcome. The stage context carries the soft limit; the hard limit fires a
// watchdog that cancels outright.
func (w *transcribeWorkerImpl) handleJob(parent context.Context, stage queue.Stage, jobUUID string) {
	w.updateStats(func(s *WorkerStats) {
		s.CurrentlyBusy++
		s.LastJobTime = time.Now()
	})
	defer w.updateStats(func(s *WorkerStats) {
		s.CurrentlyBusy--
		s.ProcessedJobs++
	})

	ctx, cancel := context.WithTimeout(parent, w.cfg.Worker.SoftTimeLimit)
	defer cancel()

	hardTimer := time.AfterFunc(w.cfg.Worker.HardTimeLimit, func() {
		logger.Errorf("hard time limit exceeded, cancelling job_uuid=%s stage=%s", jobUUID, stage)
		cancel()
	})
	defer hardTimer.Stop()

	var outcome service.Outcome
	switch stage {
	case queue.StageExtraction:
		outcome = w.extraction.Execute(ctx, jobUUID)
	case queue.StageProcessing:
		outcome = w.transcription.Execute(ctx, jobUUID)
	default:
		logger.Errorf("unknown stage=%s job_uuid=%s", stage, jobUUID)
		return
	}

	w.applyOutcome(parent, stage, outcome)
}

// applyOutcome is the single place job failure state is persisted.
func (w *transcribeWorkerImpl) applyOutcome(ctx context.Context, stage queue.Stage, outcome service.Outcome) {
	switch outcome.Action {
	case service.ActionDone:
		w.updateStats(func(s *WorkerStats) { s.CompletedJobs++ })
		if outcome.EnqueueProcessing {
			if err := w.jobQueue.Enqueue(ctx, queue.StageProcessing, outcome.JobUUID); err != nil {
				logger.Errorf("failed to enqueue processing stage job_uuid=%s error=%s", outcome.JobUUID, err.Error())
			}
		}

	case service.ActionRetry:
		attempts := w.persistedAttempts(ctx, outcome)
		if w.retryPolicy.Exhausted(attempts + 1) {
			msg := fmt.Sprintf("retry budget exhausted after %d attempts: %v", attempts+1, outcome.Err)
			logger.Errorf("job failed permanently job_uuid=%s stage=%s error=%s", outcome.JobUUID, stage, msg)
			if err := w.jobRepo.UpdateStatus(ctx, outcome.JobUUID, vo.JobStatusFailed, msg); err != nil {
				logger.Errorf("failed to persist terminal failure job_uuid=%s error=%s", outcome.JobUUID, err.Error())
			}
			w.updateStats(func(s *WorkerStats) { s.FailedJobs++ })
			return
		}

		delay := w.retryPolicy.Jittered(w.retryPolicy.Delay(attempts + 1))
		dueAt := time.Now().Add(delay)
		logger.Warnf("scheduling retry job_uuid=%s stage=%s attempt=%d delay=%s error=%v",
			outcome.JobUUID, stage, attempts+1, delay, outcome.Err)

		if err := w.jobRepo.ScheduleRetry(ctx, outcome.JobUUID, dueAt, fmt.Sprintf("%v", outcome.Err)); err != nil {
			logger.Errorf("failed to persist retry job_uuid=%s error=%s", outcome.JobUUID, err.Error())
		}
		// Park the delayed entry even if the row write failed: a pending row
		// with no queue entry is invisible until the sweeper notices it, while
		// a queue entry for a row that did not move re-claims harmlessly.
		if err := w.jobQueue.EnqueueDelayed(ctx, stage, outcome.JobUUID, dueAt); err != nil {
			logger.Errorf("failed to park delayed job job_uuid=%s error=%s", outcome.JobUUID, err.Error())
		}
		w.updateStats(func(s *WorkerStats) { s.RetriedJobs++ })

	case service.ActionFail:
		msg := fmt.Sprintf("%v", outcome.Err)
		logger.Errorf("job failed job_uuid=%s stage=%s error=%s", outcome.JobUUID, stage, msg)
		if err := w.jobRepo.UpdateStatus(ctx, outcome.JobUUID, vo.JobStatusFailed, msg); err != nil {
			logger.Errorf("failed to persist failure job_uuid=%s error=%s", outcome.JobUUID, err.Error())
		}
		w.updateStats(func(s *WorkerStats) { s.FailedJobs++ })
	}
}

// persistedAttempts reconciles the outcome's retry count with the row's. An
// outcome produced before the job could be loaded carries count zero; trusting
// it would let a job that keeps failing to load retry forever.
func (w *transcribeWorkerImpl) persistedAttempts(ctx context.Context, outcome service.Outcome) int {
	attempts := outcome.RetryCount
	job, err := w.jobRepo.GetMediaJob(ctx, outcome.JobUUID)
	if err != nil {
		return attempts
	}
	if job.RetryCount() > attempts {
		attempts = job.RetryCount()
	}
	return attempts
}

// promoteLoop moves due delayed jobs back onto the ready lists.
func (w *transcribeWorkerImpl) promoteLoop(ctx context.Context) {
	defer w.wg.Done()

	interval := w.cfg.Worker.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.jobQueue.PromoteDue(ctx, time.Now())
			if err != nil {
				logger.Warnf("delayed job promotion failed error=%s", err.Error())
				continue
			}
			if n > 0 {
				logger.Debugf("promoted delayed jobs count=%d", n)
			}
		}
	}
}

// sweepLoop re-opens jobs stranded in a working status by a crashed worker.
func (w *transcribeWorkerImpl) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	interval := w.cfg.Worker.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepStale(ctx)
		}
	}
}

func (w *transcribeWorkerImpl) sweepStale(ctx context.Context) {
	threshold := w.cfg.Worker.StuckThreshold
	if threshold <= 0 {
		threshold = w.cfg.Worker.HardTimeLimit + time.Minute
	}
	cutoff := time.Now().Add(-threshold)

	stale, err := w.jobRepo.QueryStaleJobs(ctx,
		[]vo.JobStatus{vo.JobStatusExtracting, vo.JobStatusProcessing}, cutoff, 50)
	if err != nil {
		logger.Warnf("stale job sweep failed error=%s", err.Error())
		return
	}

	for _, job := range stale {
		stage := queue.StageProcessing
		if job.Status() == vo.JobStatusExtracting && job.ExtractedAudioPath() == "" {
			stage = queue.StageExtraction
		}

		if w.retryPolicy.Exhausted(job.RetryCount() + 1) {
			msg := fmt.Sprintf("abandoned by crashed worker, retry budget exhausted after %d attempts", job.RetryCount()+1)
			if err := w.jobRepo.UpdateStatus(ctx, job.JobUUID(), vo.JobStatusFailed, msg); err != nil {
				logger.Errorf("failed to fail stale job job_uuid=%s error=%s", job.JobUUID(), err.Error())
			}
			continue
		}

		logger.Warnf("re-opening stale job job_uuid=%s status=%s stage=%s", job.JobUUID(), job.Status(), stage)
		if err := w.jobRepo.ScheduleRetry(ctx, job.JobUUID(), time.Now(), "re-opened after worker crash"); err != nil {
			logger.Errorf("failed to re-open stale job job_uuid=%s error=%s", job.JobUUID(), err.Error())
			continue
		}
		if err := w.jobQueue.Enqueue(ctx, stage, job.JobUUID()); err != nil {
			logger.Errorf("failed to re-enqueue stale job job_uuid=%s error=%s", job.JobUUID(), err.Error())
		}
	}

	w.recoverLostDelayed(ctx, cutoff)
}

// recoverLostDelayed re-enqueues pending jobs whose retry came due long ago
// but never left the database. That only happens when the redis delayed set
// lost the entry (flush, failover); the row is the durable record.
func (w *transcribeWorkerImpl) recoverLostDelayed(ctx context.Context, cutoff time.Time) {
	due, err := w.jobRepo.QueryDueJobs(ctx, cutoff, 50)
	if err != nil {
		logger.Warnf("due job recovery failed error=%s", err.Error())
		return
	}

	for _, job := range due {
		stage := queue.StageProcessing
		if job.MediaKind() == vo.MediaKindVideo && job.ExtractedAudioPath() == "" {
			stage = queue.StageExtraction
		}
		logger.Warnf("re-enqueueing lost delayed job job_uuid=%s stage=%s", job.JobUUID(), stage)
		if err := w.jobQueue.Enqueue(ctx, stage, job.JobUUID()); err != nil {
			logger.Errorf("failed to re-enqueue due job job_uuid=%s error=%s", job.JobUUID(), err.Error())
		}
	}
}

func (w *transcribeWorkerImpl) updateStats(fn func(*WorkerStats)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.stats)
}
