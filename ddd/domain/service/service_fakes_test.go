package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/repo"
	"transcribe-service/ddd/domain/vo"
)

// fakeJobRepo is an in-memory MediaJobRepository with the same claim
// semantics as the SQL implementation: a conditional status swap that exactly
// one caller can win.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*entity.MediaJobEntity

	scheduledRetries []time.Time
	failErr          error // when set, every call fails with this error
}

func newFakeJobRepo(jobs ...*entity.MediaJobEntity) *fakeJobRepo {
	r := &fakeJobRepo{jobs: make(map[string]*entity.MediaJobEntity)}
	for _, j := range jobs {
		r.jobs[j.JobUUID()] = j
	}
	return r
}

func (r *fakeJobRepo) CreateMediaJob(ctx context.Context, job *entity.MediaJobEntity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.jobs[job.JobUUID()] = job
	return nil
}

func (r *fakeJobRepo) GetMediaJob(ctx context.Context, jobUUID string) (*entity.MediaJobEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return nil, r.failErr
	}
	job, ok := r.jobs[jobUUID]
	if !ok {
		return nil, repo.ErrJobNotFound
	}
	// Hand out a snapshot, like a SQL read would. Concurrent writes land on
	// the stored entity, not on the caller's copy.
	snapshot := *job
	return &snapshot, nil
}

func (r *fakeJobRepo) Claim(ctx context.Context, jobUUID string, from, to vo.JobStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return false, r.failErr
	}
	job, ok := r.jobs[jobUUID]
	if !ok || job.Status() != from {
		return false, nil
	}
	job.SetStatus(to)
	return true, nil
}

func (r *fakeJobRepo) UpdateStatus(ctx context.Context, jobUUID string, status vo.JobStatus, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobUUID]; ok && !job.Status().IsTerminal() {
		job.SetStatus(status)
		job.SetErrorMessage(message)
	}
	return nil
}

func (r *fakeJobRepo) SetExtractedAudioPath(ctx context.Context, jobUUID, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobUUID]; ok {
		job.SetExtractedAudioPath(path)
	}
	return nil
}

func (r *fakeJobRepo) CompleteWithResult(ctx context.Context, jobUUID string, result *vo.TranscriptResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	if job, ok := r.jobs[jobUUID]; ok && job.Status() == vo.JobStatusProcessing {
		job.CompleteWith(result)
	}
	return nil
}

func (r *fakeJobRepo) ScheduleRetry(ctx context.Context, jobUUID string, nextAttemptAt time.Time, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[jobUUID]; ok && !job.Status().IsTerminal() {
		job.SetStatus(vo.JobStatusPending)
		job.SetErrorMessage(message)
		job.IncrementRetryCount()
		r.scheduledRetries = append(r.scheduledRetries, nextAttemptAt)
	}
	return nil
}

func (r *fakeJobRepo) QueryStaleJobs(ctx context.Context, statuses []vo.JobStatus, updatedBefore time.Time, limit int) ([]*entity.MediaJobEntity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.MediaJobEntity
	for _, job := range r.jobs {
		for _, s := range statuses {
			if job.Status() == s && job.UpdatedAt().Before(updatedBefore) {
				out = append(out, job)
			}
		}
	}
	return out, nil
}

func (r *fakeJobRepo) QueryDueJobs(ctx context.Context, now time.Time, limit int) ([]*entity.MediaJobEntity, error) {
	return nil, nil
}

// fakeStorage keeps objects as byte blobs in memory.
type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte

	uploads   []string
	downloads []string
	statErr   error
}

func newFakeStorage(keys ...string) *fakeStorage {
	s := &fakeStorage{objects: make(map[string][]byte)}
	for _, k := range keys {
		s.objects[k] = []byte("media-bytes")
	}
	return s
}

func (s *fakeStorage) DownloadMedia(ctx context.Context, objectKey, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey]
	if !ok {
		return errors.New("object not found: " + objectKey)
	}
	s.downloads = append(s.downloads, objectKey)
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *fakeStorage) UploadExtractedAudio(ctx context.Context, localPath, objectKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	s.objects[objectKey] = data
	s.uploads = append(s.uploads, objectKey)
	return objectKey, nil
}

func (s *fakeStorage) DownloadModel(ctx context.Context, objectKey, localPath string) error {
	return s.DownloadMedia(ctx, objectKey, localPath)
}

func (s *fakeStorage) MediaExists(ctx context.Context, objectKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statErr != nil {
		return false, s.statErr
	}
	_, ok := s.objects[objectKey]
	return ok, nil
}

// fakeNormalizer records calls and writes an output file like ffmpeg would.
type fakeNormalizer struct {
	mu       sync.Mutex
	calls    int
	lastKind vo.MediaKind
	err      error
	duration float64
}

func (n *fakeNormalizer) Normalize(ctx context.Context, inputPath string, kind vo.MediaKind, outputPath string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.lastKind = kind
	if n.err != nil {
		return n.err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte("RIFF-wav"), 0o644)
}

func (n *fakeNormalizer) ProbeDuration(ctx context.Context, path string) float64 {
	return n.duration
}

// fakeLoader hands out a model and tracks releases.
type fakeLoader struct {
	mu       sync.Mutex
	tier     vo.ModelTier
	err      error
	released int
}

func (l *fakeLoader) Load(ctx context.Context, tier vo.ModelTier) (*port.Model, error) {
	if l.err != nil {
		return nil, l.err
	}
	loaded := tier
	if l.tier != "" {
		loaded = l.tier
	}
	return port.NewModel(loaded, "/cache/"+string(loaded)+"/model.bin", "cpu", loaded != tier, func() {
		l.mu.Lock()
		l.released++
		l.mu.Unlock()
	}), nil
}

func (l *fakeLoader) releaseCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.released
}

// fakeTranscriber returns a canned transcription.
type fakeTranscriber struct {
	mu    sync.Mutex
	out   *port.Transcription
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, model *port.Model, audioPath, language string) (*port.Transcription, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDiarizer returns a canned outcome.
type fakeDiarizer struct {
	available bool
	outcome   port.DiarizationOutcome
	calls     int
}

func (f *fakeDiarizer) IsAvailable() bool { return f.available }

func (f *fakeDiarizer) Process(ctx context.Context, audioPath string, minSpeakers, maxSpeakers int) port.DiarizationOutcome {
	f.calls++
	return f.outcome
}
