package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
)

func cannedTranscription() *port.Transcription {
	return &port.Transcription{
		Text:     "hello world again",
		Language: "en",
		Duration: 4.2,
		Segments: []vo.TranscriptSegment{
			{Start: 0, End: 2, Text: "hello world"},
			{Start: 2, End: 4.2, Text: "again"},
		},
	}
}

// TestProcessingAudioJobCompletes claims a pending audio job, normalizes the
// upload in place, transcribes and attaches the result with the completed
// status.
func TestProcessingAudioJobCompletes(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierSmall, "auto", false)
	repo := newFakeJobRepo(job)
	storage := newFakeStorage("uploads/call.mp3")
	normalizer := &fakeNormalizer{}
	loader := &fakeLoader{}
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(repo, storage, normalizer, loader, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone (err=%v)", outcome.Action, outcome.Err)
	}
	if !job.IsCompleted() {
		t.Fatalf("status = %v, want completed", job.Status())
	}
	result := job.Result()
	if result == nil {
		t.Fatal("Result = nil, want attached transcript")
	}
	if result.Text != "hello world again" {
		t.Fatalf("Text = %q, want %q", result.Text, "hello world again")
	}
	if result.WordCount != 3 {
		t.Fatalf("WordCount = %d, want 3", result.WordCount)
	}
	if result.Language != "en" {
		t.Fatalf("Language = %q, want en", result.Language)
	}
	if result.Duration != 4.2 {
		t.Fatalf("Duration = %v, want 4.2", result.Duration)
	}
	if normalizer.calls != 1 {
		t.Fatalf("normalizer calls = %d, want 1 (audio converts inline)", normalizer.calls)
	}
	if loader.releaseCount() != 1 {
		t.Fatalf("model released %d times, want 1", loader.releaseCount())
	}
}

// TestProcessingExtractedJobSkipsNormalize asserts a video job whose audio was
// already extracted is transcribed directly from the stored waveform.
func TestProcessingExtractedJobSkipsNormalize(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierBase, "auto", false)
	job.SetExtractedAudioPath("extracted/" + job.JobUUID() + ".wav")
	job.SetStatus(vo.JobStatusExtracting) // left there by the extraction stage
	repo := newFakeJobRepo(job)
	storage := newFakeStorage("extracted/" + job.JobUUID() + ".wav")
	normalizer := &fakeNormalizer{}
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(repo, storage, normalizer, &fakeLoader{}, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone (err=%v)", outcome.Action, outcome.Err)
	}
	if !job.IsCompleted() {
		t.Fatalf("status = %v, want completed (claimed from extracting)", job.Status())
	}
	if normalizer.calls != 0 {
		t.Fatalf("normalizer calls = %d, want 0 for pre-extracted audio", normalizer.calls)
	}
}

// TestProcessingClaimLost ends the attempt quietly when another worker already
// holds the job.
func TestProcessingClaimLost(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	job.SetStatus(vo.JobStatusProcessing)
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, &fakeLoader{}, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone", outcome.Action)
	}
	if transcriber.calls != 0 {
		t.Fatalf("transcriber ran %d times after a lost claim, want 0", transcriber.calls)
	}
}

// TestProcessingConcurrentClaimSingleWinner races two workers over one pending
// job: exactly one wins the claim and runs inference, the other backs off
// without touching the result.
func TestProcessingConcurrentClaimSingleWinner(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	repo := newFakeJobRepo(job)
	storage := newFakeStorage("uploads/call.mp3")
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(repo, storage, &fakeNormalizer{}, &fakeLoader{}, transcriber, &fakeDiarizer{}, extractionConfig(t))

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = svc.Execute(context.Background(), job.JobUUID())
		}(i)
	}
	wg.Wait()

	for i, outcome := range outcomes {
		if outcome.Action != ActionDone {
			t.Fatalf("outcome[%d].Action = %v, want ActionDone (err=%v)", i, outcome.Action, outcome.Err)
		}
	}
	if got := transcriber.callCount(); got != 1 {
		t.Fatalf("transcriber ran %d times, want exactly 1", got)
	}
	if !job.IsCompleted() {
		t.Fatalf("status = %v, want completed", job.Status())
	}
	if job.Result() == nil || job.Result().Text != "hello world again" {
		t.Fatalf("Result = %+v, want the single winner's transcript", job.Result())
	}
}

// TestProcessingCompletedJobIsNoop asserts re-delivery of an already completed
// job does nothing.
func TestProcessingCompletedJobIsNoop(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	job.CompleteWith(&vo.TranscriptResult{Text: "done"})
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage(), &fakeNormalizer{}, &fakeLoader{}, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone || transcriber.calls != 0 {
		t.Fatalf("outcome = %+v calls = %d, want no-op", outcome, transcriber.calls)
	}
	if job.Result().Text != "done" {
		t.Fatalf("result overwritten: %q", job.Result().Text)
	}
}

// TestProcessingMissingAudioFails treats a vanished audio object as terminal.
func TestProcessingMissingAudioFails(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage(), &fakeNormalizer{}, &fakeLoader{}, &fakeTranscriber{}, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionFail {
		t.Fatalf("Action = %v, want ActionFail", outcome.Action)
	}
	if outcome.Err == nil || !strings.Contains(outcome.Err.Error(), "missing from storage") {
		t.Fatalf("Err = %v, want missing-from-storage", outcome.Err)
	}
}

// TestProcessingModelUnavailableFails asserts a dead model store fails the job
// instead of burning the retry budget.
func TestProcessingModelUnavailableFails(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierLarge, "auto", false)
	loader := &fakeLoader{err: port.ErrModelUnavailable}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, loader, &fakeTranscriber{}, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionFail {
		t.Fatalf("Action = %v, want ActionFail", outcome.Action)
	}
	if !errors.Is(outcome.Err, port.ErrModelUnavailable) {
		t.Fatalf("Err = %v, want ErrModelUnavailable", outcome.Err)
	}
}

// TestProcessingInferenceFailureRetries schedules a retry when the engine
// itself fails.
func TestProcessingInferenceFailureRetries(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierBase, "auto", false)
	loader := &fakeLoader{}
	transcriber := &fakeTranscriber{err: errors.New("CUDA out of memory")}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, loader, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionRetry {
		t.Fatalf("Action = %v, want ActionRetry", outcome.Action)
	}
	if !errors.Is(outcome.Err, port.ErrTranscriptionFailed) {
		t.Fatalf("Err = %v, want wrapped ErrTranscriptionFailed", outcome.Err)
	}
	if loader.releaseCount() != 1 {
		t.Fatalf("model released %d times on the failure path, want 1", loader.releaseCount())
	}
}

// TestProcessingDiarizationAttachesSpeakers merges speaker labels into the
// result when the job was granted diarization.
func TestProcessingDiarizationAttachesSpeakers(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierMedium, "auto", true)
	diarizer := &fakeDiarizer{
		available: true,
		outcome: port.DiarizationOutcome{
			Available: true,
			OK:        true,
			Segments: []vo.DiarizationSegment{
				{Start: 0, End: 2, SpeakerID: "SPEAKER_00"},
				{Start: 2, End: 5, SpeakerID: "SPEAKER_01"},
			},
		},
	}
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, &fakeLoader{}, transcriber, diarizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone (err=%v)", outcome.Action, outcome.Err)
	}
	result := job.Result()
	if len(result.Speakers) != 2 {
		t.Fatalf("Speakers = %d, want 2", len(result.Speakers))
	}
	if result.Segments[0].Speaker != "SPEAKER_00" || result.Segments[1].Speaker != "SPEAKER_01" {
		t.Fatalf("segment speakers = %q/%q, want SPEAKER_00/SPEAKER_01",
			result.Segments[0].Speaker, result.Segments[1].Speaker)
	}
}

// TestProcessingDiarizationFailureStillCompletes asserts a failed speaker pass
// degrades to an unlabeled transcript rather than failing the job.
func TestProcessingDiarizationFailureStillCompletes(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierMedium, "auto", true)
	diarizer := &fakeDiarizer{available: true, outcome: port.NoResult()}
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, &fakeLoader{}, transcriber, diarizer, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone {
		t.Fatalf("Action = %v, want ActionDone (err=%v)", outcome.Action, outcome.Err)
	}
	result := job.Result()
	if len(result.Speakers) != 0 {
		t.Fatalf("Speakers = %v, want none after a failed pass", result.Speakers)
	}
	if result.Text != "hello world again" {
		t.Fatalf("Text = %q, transcript lost", result.Text)
	}
}

// TestProcessingDegradedModelCompletes asserts a fallback-tier model still
// produces a result.
func TestProcessingDegradedModelCompletes(t *testing.T) {
	job := entity.NewMediaJobEntity("user-1", "uploads/call.mp3", vo.MediaKindAudio, vo.ModelTierLarge, "auto", false)
	loader := &fakeLoader{tier: vo.FallbackTier}
	transcriber := &fakeTranscriber{out: cannedTranscription()}
	svc := NewTranscriptionService(newFakeJobRepo(job), newFakeStorage("uploads/call.mp3"), &fakeNormalizer{}, loader, transcriber, &fakeDiarizer{}, extractionConfig(t))

	outcome := svc.Execute(context.Background(), job.JobUUID())

	if outcome.Action != ActionDone || !job.IsCompleted() {
		t.Fatalf("outcome = %+v status = %v, want completed on degraded model", outcome, job.Status())
	}
}
