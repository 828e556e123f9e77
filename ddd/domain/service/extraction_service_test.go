package service

import (
	"context"
	"strings"
	"testing"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
)

func extractionConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Whisper.TempDir = t.TempDir()
	return cfg
}

// TestExtractionVideoJob runs the full happy path: claim, download, normalize,
// upload, record the extracted key, hand off to processing.
func TestExtractionVideoJob(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	repo := newFakeJobRepo(job)
	storage := newFakeStorage("uploads/meeting.mp4")
	normalizer := &fakeNormalizer{}
	svc := NewExtractionService(repo, storage, normalizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone (err=%v)", outcome.Action, outcome.Err)
	}
	if !outcome.EnqueueProcessing {
		t.Fatalf("EnqueueProcessing = false, want true")
	}
	wantKey := "extracted/" + job.JobUUID() + ".wav"
	if job.ExtractedAudioPath() != wantKey {
		t.Fatalf("ExtractedAudioPath = %q, want %q", job.ExtractedAudioPath(), wantKey)
	}
	if len(storage.uploads) != 1 || storage.uploads[0] != wantKey {
		t.Fatalf("uploads = %v, want [%s]", storage.uploads, wantKey)
	}
	if normalizer.lastKind != vo.MediaKindVideo {
		t.Fatalf("normalize kind = %v, want video", normalizer.lastKind)
	}
	// The job stays in extracting; the processing stage claims it from there.
	if job.Status() != vo.JobStatusExtracting {
		t.Fatalf("status = %v, want extracting", job.Status())
	}
}

// TestExtractionAudioJobPassesThrough asserts audio uploads skip extraction
// entirely and are handed to processing while still pending.
func TestExtractionAudioJobPassesThrough(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	repo := newFakeJobRepo(job)
	normalizer := &fakeNormalizer{}
	svc := NewExtractionService(repo, newFakeStorage(), normalizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone || !outcome.EnqueueProcessing {
		t.Fatalf("outcome = %+v, want done with processing handoff", outcome)
	}
	if normalizer.calls != 0 {
		t.Fatalf("normalizer ran %d times on an audio job, want 0", normalizer.calls)
	}
	if job.Status() != vo.JobStatusPending {
		t.Fatalf("status = %v, want pending (processing stage claims it)", job.Status())
	}
}

// TestExtractionAudioJobAlreadyClaimed asserts the pass-through does not
// re-enqueue a job another worker is already processing.
func TestExtractionAudioJobAlreadyClaimed(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	job.SetStatus(vo.JobStatusProcessing)
	repo := newFakeJobRepo(job)
	svc := NewExtractionService(repo, newFakeStorage(), &fakeNormalizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone || outcome.EnqueueProcessing {
		t.Fatalf("outcome = %+v, want done without handoff", outcome)
	}
}

// TestExtractionAlreadyExtracted asserts a re-delivered message after a crash
// between upload and enqueue only repeats the handoff.
func TestExtractionAlreadyExtracted(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	job.SetExtractedAudioPath("extracted/" + job.JobUUID() + ".wav")
	repo := newFakeJobRepo(job)
	storage := newFakeStorage("uploads/meeting.mp4")
	normalizer := &fakeNormalizer{}
	svc := NewExtractionService(repo, storage, normalizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone || !outcome.EnqueueProcessing {
		t.Fatalf("outcome = %+v, want done with processing handoff", outcome)
	}
	if normalizer.calls != 0 || len(storage.uploads) != 0 {
		t.Fatalf("extraction re-ran (normalize=%d uploads=%d), want pure handoff", normalizer.calls, len(storage.uploads))
	}
}

// TestExtractionJobGone treats a deleted job as a no-op, not a failure.
func TestExtractionJobGone(t *testing.T) {
	svc := NewExtractionService(newFakeJobRepo(), newFakeStorage(), &fakeNormalizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), "no-such-job")

	if outcome.Action != ActionDone || outcome.EnqueueProcessing {
		t.Fatalf("outcome = %+v, want silent done", outcome)
	}
}

// TestExtractionClaimLost asserts losing the status race ends the attempt
// without side effects.
func TestExtractionClaimLost(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	job.SetStatus(vo.JobStatusExtracting) // another worker holds it
	storage := newFakeStorage("uploads/meeting.mp4")
	svc := NewExtractionService(newFakeJobRepo(job), storage, &fakeNormalizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone", outcome.Action)
	}
	if len(storage.downloads) != 0 {
		t.Fatalf("downloads = %v, want none after a lost claim", storage.downloads)
	}
}

// TestExtractionMissingInput fails the job permanently when the upload is not
// in object storage; waiting will not make it appear.
func TestExtractionMissingInput(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	svc := NewExtractionService(newFakeJobRepo(job), newFakeStorage(), &fakeNormalizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionFail {
		t.Fatalf("Action = %v, want ActionFail", outcome.Action)
	}
	if outcome.Err == nil || !strings.Contains(outcome.Err.Error(), "missing from storage") {
		t.Fatalf("Err = %v, want missing-from-storage", outcome.Err)
	}
}

// TestExtractionNormalizeFailureRetries asserts conversion errors consume the
// retry budget rather than failing outright.
func TestExtractionNormalizeFailureRetries(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	normalizer := &fakeNormalizer{err: &port.ConversionError{Command: "ffmpeg", ExitCode: 1, Stderr: "moov atom not found"}}
	svc := NewExtractionService(newFakeJobRepo(job), newFakeStorage("uploads/meeting.mp4"), normalizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionRetry {
		t.Fatalf("Action = %v, want ActionRetry", outcome.Action)
	}
	if outcome.RetryCount != job.RetryCount() {
		t.Fatalf("RetryCount = %d, want %d", outcome.RetryCount, job.RetryCount())
	}
}
