package memos

import "sync"

// Guard is a non-reentrant in-flight marker keyed by user session. It
// replaces the web client's ad hoc ref flags: acquisition either succeeds
// immediately or reports the pass as already running, and release is safe
// on every exit path.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

// TryAcquire marks key as in flight. Returns false if it already is.
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false
	}
	g.held[key] = struct{}{}
	return true
}

// Release clears key. Releasing an unheld key is a no-op.
func (g *Guard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
}
