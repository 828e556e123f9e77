package diarize

import (
	_ "embed"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

//go:embed assets/diarize.py
var diarizeScript []byte

// PyannoteDiarizer implements port.Diarizer over an embedded python helper.
// Availability is decided once at construction: a missing auth token or a
// disabled flag means every job sees an unavailable engine rather than a
// per-job failure.
type PyannoteDiarizer struct {
	pythonPath string
	tempDir    string
	authToken  string
	enabled    bool
	run        func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)
}

func NewPyannoteDiarizer(cfg *config.Config) *PyannoteDiarizer {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &PyannoteDiarizer{
		pythonPath: cfg.Whisper.PythonPath,
		tempDir:    cfg.Whisper.TempDir,
		authToken:  cfg.Diarization.AuthToken,
		enabled:    cfg.Diarization.Enabled,
		run:        execEnvRunner,
	}
}

func execEnvRunner(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%s: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

func (d *PyannoteDiarizer) IsAvailable() bool {
	return d.enabled && d.authToken != ""
}

func (d *PyannoteDiarizer) Process(ctx context.Context, audioPath string, minSpeakers, maxSpeakers int) port.DiarizationOutcome {
	if !d.IsAvailable() {
		return port.Unavailable()
	}

	scriptPath, err := d.materializeScript()
	if err != nil {
		logger.Warnf("diarization helper setup failed error=%s", err.Error())
		return port.NoResult()
	}
	defer os.Remove(scriptPath)

	args := []string{scriptPath, "--audio", audioPath}
	if minSpeakers > 0 {
		args = append(args, "--min-speakers", strconv.Itoa(minSpeakers))
	}
	if maxSpeakers > 0 {
		args = append(args, "--max-speakers", strconv.Itoa(maxSpeakers))
	}

	env := append(os.Environ(), "HF_AUTH_TOKEN="+d.authToken)
	out, err := d.run(ctx, env, d.pythonPath, args...)
	if err != nil {
		logger.Warnf("diarization run failed audio=%s error=%s", audioPath, err.Error())
		return port.NoResult()
	}

	var parsed struct {
		Segments []struct {
			Start     float64 `json:"start"`
			End       float64 `json:"end"`
			SpeakerID string  `json:"speaker_id"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		logger.Warnf("diarization output unparsable error=%s", err.Error())
		return port.NoResult()
	}

	segments := make([]vo.DiarizationSegment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, vo.DiarizationSegment{
			Start:     seg.Start,
			End:       seg.End,
			SpeakerID: seg.SpeakerID,
		})
	}
	return port.DiarizationOutcome{
		Available: true,
		OK:        true,
		Segments:  segments,
		Speakers:  vo.BuildSpeakerRoster(segments),
	}
}

func (d *PyannoteDiarizer) materializeScript() (string, error) {
	if err := os.MkdirAll(d.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(d.tempDir, "diarize-*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(diarizeScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
