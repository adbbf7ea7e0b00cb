package viewer

import (
	"sync"

	"github.com/MeKo-Tech/kyclens/internal/overlay"
)

// Viewport is a SizeProbe whose size is pushed by the client, for example
// from websocket viewport messages. Every page reports the same size.
type Viewport struct {
	mu   sync.RWMutex
	size overlay.RenderedSize
}

// Set records the latest size.
func (v *Viewport) Set(size overlay.RenderedSize) {
	v.mu.Lock()
	v.size = size
	v.mu.Unlock()
}

// PageSize implements SizeProbe.
func (v *Viewport) PageSize(int) overlay.RenderedSize {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.size
}
