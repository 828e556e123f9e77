package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/logger"
)

const stderrTailLimit = 4096

// commandRunner runs an external command and returns its combined stderr.
// It exists so tests can substitute a fake for real ffmpeg invocations.
type commandRunner func(ctx context.Context, name string, args ...string) (stderr string, exitCode int, err error)

func execRunner(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return tail(stderr.String(), stderrTailLimit), exitCode, err
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// FFmpegNormalizer implements port.AudioNormalizer with local ffmpeg/ffprobe
// binaries. Both audio and video inputs decode to mono 16 kHz PCM WAV, the
// format the transcription engine expects.
type FFmpegNormalizer struct {
	ffmpegPath  string
	ffprobePath string
	run         commandRunner
}

func NewFFmpegNormalizer(ffmpegPath, ffprobePath string) *FFmpegNormalizer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegNormalizer{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, run: execRunner}
}

// CheckBinaries verifies ffmpeg and ffprobe resolve on PATH. Called once at
// startup so a misconfigured host fails fast instead of per-job.
func (n *FFmpegNormalizer) CheckBinaries() error {
	for _, bin := range []string{n.ffmpegPath, n.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("required binary not found: %s: %w", bin, err)
		}
	}
	return nil
}

func (n *FFmpegNormalizer) Normalize(ctx context.Context, inputPath string, kind vo.MediaKind, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return &port.ConversionError{Err: fmt.Errorf("create output dir: %w", err)}
	}

	args := []string{"-y", "-i", inputPath}
	if kind == vo.MediaKindVideo {
		args = append(args, "-vn")
	}
	args = append(args,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outputPath,
	)

	logger.Debugf("running normalization command=%s args=%s", n.ffmpegPath, strings.Join(args, " "))
	stderr, exitCode, err := n.run(ctx, n.ffmpegPath, args...)
	if err != nil {
		return &port.ConversionError{
			Command:  n.ffmpegPath,
			ExitCode: exitCode,
			Stderr:   stderr,
			Err:      err,
		}
	}

	// ffmpeg can exit zero without producing output on some malformed inputs.
	info, statErr := os.Stat(outputPath)
	if statErr != nil || info.Size() == 0 {
		return &port.ConversionError{
			Command: n.ffmpegPath,
			Stderr:  stderr,
			Err:     errors.New("normalization produced no output"),
		}
	}
	return nil
}

func (n *FFmpegNormalizer) ProbeDuration(ctx context.Context, path string) float64 {
	cmd := exec.CommandContext(ctx, n.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		logger.Warnf("ffprobe failed path=%s error=%s", path, err.Error())
		return 0
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || duration < 0 {
		return 0
	}
	return duration
}
