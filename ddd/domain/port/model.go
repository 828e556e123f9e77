package port

import (
	"context"
	"errors"

	"transcribe-service/ddd/domain/vo"
)

// ErrModelUnavailable means not even the fallback tier could be loaded. This
// is a deployment defect, never retried.
var ErrModelUnavailable = errors.New("no transcription model available")

// Model is a ready-to-run inference model. Tier reflects what was actually
// loaded, which may be the fallback tier rather than what was requested.
// Callers own the model for the duration of one job and must Release it on
// every exit path.
type Model struct {
	Tier     vo.ModelTier
	Path     string
	Device   string
	Degraded bool

	release func()
}

// NewModel builds a model handle with its release hook.
func NewModel(tier vo.ModelTier, path, device string, degraded bool, release func()) *Model {
	return &Model{Tier: tier, Path: path, Device: device, Degraded: degraded, release: release}
}

// Release frees whatever the loader pinned for this model. Idempotent.
func (m *Model) Release() {
	if m == nil || m.release == nil {
		return
	}
	r := m.release
	m.release = nil
	r()
}

// ModelLoader resolves a tier to a ready-to-run model. Loading is expensive;
// implementations keep at most one model resident per worker process and the
// caller releases it deterministically after use.
type ModelLoader interface {
	Load(ctx context.Context, tier vo.ModelTier) (*Model, error)
}
