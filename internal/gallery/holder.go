package gallery

import "sync"

// Holder hands out the current gallery projection and lets a finished
// pipeline run swap in a new one without interrupting readers.
type Holder struct {
	mu sync.RWMutex
	g  *Gallery
}

func NewHolder(g *Gallery) *Holder {
	return &Holder{g: g}
}

// Get returns the current projection, nil when no snapshot exists yet.
func (h *Holder) Get() *Gallery {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.g
}

// Swap replaces the projection.
func (h *Holder) Swap(g *Gallery) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.g = g
}
