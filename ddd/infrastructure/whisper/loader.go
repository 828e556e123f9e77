package whisper

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"

	"transcribe-service/ddd/domain/gateway"
	"transcribe-service/ddd/domain/port"
	"transcribe-service/ddd/domain/vo"
	"transcribe-service/pkg/config"
	"transcribe-service/pkg/logger"
)

// Loader implements port.ModelLoader. Weights live in the object store under
// models/<tier> and are cached on local disk; a tier whose weights cannot be
// fetched degrades to the fallback tier before giving up.
type Loader struct {
	storage  gateway.StorageGateway
	cacheDir string
	device   string

	mu     sync.Mutex
	cached map[vo.ModelTier]string // tier -> verified local dir
}

func NewLoader(storage gateway.StorageGateway, cfg *config.Config) *Loader {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	return &Loader{
		storage:  storage,
		cacheDir: cfg.Whisper.CacheDir,
		device:   cfg.Whisper.Device,
		cached:   make(map[vo.ModelTier]string),
	}
}

func (l *Loader) Load(ctx context.Context, tier vo.ModelTier) (*port.Model, error) {
	path, err := l.ensure(ctx, tier)
	if err == nil {
		return port.NewModel(tier, path, l.device, false, l.releaseHook(tier)), nil
	}
	logger.Warnf("model load failed, degrading tier=%s fallback=%s error=%s", tier, vo.FallbackTier, err.Error())

	if tier == vo.FallbackTier {
		return nil, fmt.Errorf("%w: %v", port.ErrModelUnavailable, err)
	}
	path, fbErr := l.ensure(ctx, vo.FallbackTier)
	if fbErr != nil {
		return nil, fmt.Errorf("%w: requested %s (%v), fallback %s (%v)",
			port.ErrModelUnavailable, tier, err, vo.FallbackTier, fbErr)
	}
	return port.NewModel(vo.FallbackTier, path, l.device, true, l.releaseHook(vo.FallbackTier)), nil
}

// ensure verifies the tier's weights are present in the local cache, fetching
// them from the object store on a miss.
func (l *Loader) ensure(ctx context.Context, tier vo.ModelTier) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if path, ok := l.cached[tier]; ok {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		delete(l.cached, tier)
	}

	localPath := filepath.Join(l.cacheDir, string(tier), "model.bin")
	if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
		l.cached[tier] = localPath
		return localPath, nil
	}

	objectKey := fmt.Sprintf("models/%s/model.bin", tier)
	logger.Infof("fetching model weights tier=%s object_key=%s", tier, objectKey)
	if err := l.storage.DownloadModel(ctx, objectKey, localPath); err != nil {
		return "", fmt.Errorf("fetch model weights %s: %w", tier, err)
	}
	info, err := os.Stat(localPath)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("model weights empty after fetch: %s", tier)
	}

	l.cached[tier] = localPath
	return localPath, nil
}

// releaseHook returns what runs when the job is done with the model. The
// inference process itself exits per run; the hook just nudges the runtime to
// hand freed memory back to the OS between large jobs.
func (l *Loader) releaseHook(tier vo.ModelTier) func() {
	return func() {
		runtime.GC()
		debug.FreeOSMemory()
		logger.Debugf("model released tier=%s", tier)
	}
}
