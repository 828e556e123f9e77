package whisper

import (
	_ "embed"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

//go:embed assets/transcribe.py
var transcribeScript []byte

// Engine implements port.Transcriber by shelling out to an embedded python
// helper. One process per job keeps inference memory out of this process and
// makes the hard time limit enforceable with a plain kill.
type Engine struct {
	pythonPath string
	tempDir    string
	run        commandOutputRunner
}

// commandOutputRunner captures stdout of an external command; stderr rides
// along in the error. Substitutable in tests.
type commandOutputRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutputRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = os.Environ()
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

func NewEngine(cfg *config.Config) *Engine {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &Engine{
		pythonPath: cfg.Whisper.PythonPath,
		tempDir:    cfg.Whisper.TempDir,
		run:        execOutputRunner,
	}
}

type engineOutput struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Word        string  `json:"word"`
			Start       float64 `json:"start"`
			End         float64 `json:"end"`
			Probability float64 `json:"probability"`
		} `json:"words"`
	} `json:"segments"`
}

func (e *Engine) Transcribe(ctx context.Context, model *port.Model, audioPath, language string) (*port.Transcription, error) {
	scriptPath, err := e.materializeScript()
	if err != nil {
		return nil, err
	}
	defer os.Remove(scriptPath)

	modelRef := filepath.Dir(model.Path)
	args := []string{
		scriptPath,
		"--audio", audioPath,
		"--model", modelRef,
		"--device", model.Device,
	}
	if language != "" && language != "auto" {
		args = append(args, "--language", language)
	}

	logger.Debugf("running transcription model=%s device=%s audio=%s", model.Tier, model.Device, audioPath)
	out, err := e.run(ctx, e.pythonPath, args...)
	if err != nil {
		return nil, fmt.Errorf("inference helper: %w", err)
	}

	var parsed engineOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse helper output: %w", err)
	}

	transcription := &port.Transcription{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Duration: parsed.Duration,
	}
	for _, seg := range parsed.Segments {
		segment := vo.TranscriptSegment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
		for _, w := range seg.Words {
			segment.Words = append(segment.Words, vo.Word{
				Word:        w.Word,
				Start:       w.Start,
				End:         w.End,
				Probability: w.Probability,
			})
		}
		transcription.Segments = append(transcription.Segments, segment)
	}
	return transcription, nil
}

func (e *Engine) materializeScript() (string, error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f, err := os.CreateTemp(e.tempDir, "transcribe-*.py")
	if err != nil {
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if _, err := f.Write(transcribeScript); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	return f.Name(), nil
}
