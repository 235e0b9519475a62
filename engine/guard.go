package engine

import "sync"

// guard serializes the code path that performs an external value release.
// Reentrancy here is a call-stack hazard: the release callback can call back
// into the engine before the outer operation returns. The guard is an
// explicit held/released flag per key, checked synchronously on entry.
type guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func newGuard() *guard {
	return &guard{held: make(map[string]struct{})}
}

// do runs fn with the guard held for key. It fails with ErrReentrant if the
// key is already inside a guarded call, and releases the key on every exit
// path.
func (g *guard) do(key string, fn func() error) error {
	g.mu.Lock()
	if _, ok := g.held[key]; ok {
		g.mu.Unlock()
		return ErrReentrant
	}
	g.held[key] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.held, key)
		g.mu.Unlock()
	}()

	return fn()
}
