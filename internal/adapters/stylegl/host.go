package stylegl

import (
	"sync"

	"github.com/canopyops/geoscene/internal/core/ports"
)

// Host builds engines for the scene controller and keeps the latest one
// reachable for viewers streaming its style.
type Host struct {
	opts Options

	mu      sync.RWMutex
	current *Engine
}

// NewHost creates a host sharing opts across engines.
func NewHost(opts Options) *Host {
	return &Host{opts: opts}
}

// Factory returns a constructor that records each engine it creates.
func (h *Host) Factory() func(accessToken string) (ports.RenderEngine, error) {
	build := Factory(h.opts)
	return func(accessToken string) (ports.RenderEngine, error) {
		e, err := build(accessToken)
		if err != nil {
			return nil, err
		}
		h.mu.Lock()
		h.current = e.(*Engine)
		h.mu.Unlock()
		return e, nil
	}
}

// Current returns the live engine. ok is false before the first mount and
// after the engine is removed.
func (h *Host) Current() (*Engine, bool) {
	h.mu.RLock()
	e := h.current
	h.mu.RUnlock()
	if e == nil {
		return nil, false
	}
	e.mu.RLock()
	removed := e.removed
	e.mu.RUnlock()
	return e, !removed
}
