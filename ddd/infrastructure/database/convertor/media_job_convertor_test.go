package convertor

import (
	"reflect"
	"testing"

	"transcribe-service/ddd/domain/entity"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/ddd/infrastructure/database/po"
)

// TestRoundTripCompletedJob maps a completed job to a row and back without
// losing the result payload.
func TestRoundTripCompletedJob(t *testing.T) {
	c := NewMediaJobConvertor()
	job := entity.NewMediaJobEntity("user-1", "uploads/meeting.mp4", vo.MediaKindVideo, vo.ModelTierMedium, "de", true)
	job.SetSpeakerHints(2, 4)
	job.SetExtractedAudioPath("extracted/" + job.JobUUID() + ".wav")
	job.CompleteWith(&vo.TranscriptResult{
		Text:      "guten tag",
		Language:  "de",
		WordCount: 2,
		Segments: []vo.TranscriptSegment{
			{Start: 0, End: 1.5, Text: "guten tag", Speaker: "SPEAKER_00"},
		},
		Speakers:       []vo.Speaker{{ID: "SPEAKER_00", Name: "Speaker 1", Color: "#1f77b4"}},
		ProcessingTime: 12.5,
	})

	row := c.ToPO(job)
	if row.Status != "completed" || row.ResultJSON == nil {
		t.Fatalf("row = status %q result %v, want completed with payload", row.Status, row.ResultJSON)
	}

	restored := c.ToEntity(row)
	if restored.JobUUID() != job.JobUUID() || restored.UserUUID() != job.UserUUID() {
		t.Fatalf("identity lost: %s/%s", restored.JobUUID(), restored.UserUUID())
	}
	if restored.MinSpeakers() != 2 || restored.MaxSpeakers() != 4 {
		t.Fatalf("speaker hints = %d/%d, want 2/4", restored.MinSpeakers(), restored.MaxSpeakers())
	}
	if restored.ExtractedAudioPath() != job.ExtractedAudioPath() {
		t.Fatalf("extracted path = %q, want %q", restored.ExtractedAudioPath(), job.ExtractedAudioPath())
	}
	if !reflect.DeepEqual(restored.Result(), job.Result()) {
		t.Fatalf("result = %+v, want %+v", restored.Result(), job.Result())
	}
}

// TestToEntityDefaults fills "auto" language and tolerates nil optionals.
func TestToEntityDefaults(t *testing.T) {
	c := NewMediaJobConvertor()
	row := &po.MediaJob{
		JobUUID:   "j-1",
		UserUUID:  "u-1",
		InputPath: "uploads/call.mp3",
		MediaKind: "audio",
		ModelTier: "base",
		Status:    "pending",
	}

	job := c.ToEntity(row)
	if job.Language() != "auto" {
		t.Fatalf("Language = %q, want auto for nil column", job.Language())
	}
	if job.ExtractedAudioPath() != "" || job.Result() != nil {
		t.Fatalf("optionals = %q/%v, want empty", job.ExtractedAudioPath(), job.Result())
	}
}

// TestToEntityCorruptResultJSON drops an unparsable payload instead of
// failing the read.
func TestToEntityCorruptResultJSON(t *testing.T) {
	c := NewMediaJobConvertor()
	bad := "{not json"
	row := &po.MediaJob{
		JobUUID:    "j-1",
		UserUUID:   "u-1",
		InputPath:  "uploads/call.mp3",
		MediaKind:  "audio",
		ModelTier:  "base",
		Status:     "completed",
		ResultJSON: &bad,
	}

	job := c.ToEntity(row)
	if job.Result() != nil {
		t.Fatalf("Result = %+v, want nil for corrupt payload", job.Result())
	}
}
