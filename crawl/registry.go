package crawl

import (
	"errors"
	"io"
	"sync"
)

// ErrSessionActive is returned when a session that is already running is
// started again.
var ErrSessionActive = errors.New("crawl: session already active")

type activeCrawl struct {
	cancel func()
	closer io.Closer
}

// Registry tracks running crawls so the control surface can cancel them
// and shutdown can sweep them all.
type Registry struct {
	mu     sync.Mutex
	active map[string]*activeCrawl
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*activeCrawl)}
}

// Register records a running crawl. Fails when the session is already
// registered.
func (r *Registry) Register(sessionID string, cancel func(), closer io.Closer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[sessionID]; ok {
		return ErrSessionActive
	}
	r.active[sessionID] = &activeCrawl{cancel: cancel, closer: closer}
	return nil
}

// Cancel aborts a running crawl: cancels its context and closes its
// browser. Reports whether the session was registered.
func (r *Registry) Cancel(sessionID string) bool {
	r.mu.Lock()
	a, ok := r.active[sessionID]
	delete(r.active, sessionID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	a.cancel()
	if a.closer != nil {
		a.closer.Close()
	}
	return true
}

// Remove drops a finished crawl without cancelling. The crawl goroutine
// calls this on its own way out.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.active, sessionID)
	r.mu.Unlock()
}

// Active reports whether a session is currently running.
func (r *Registry) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[sessionID]
	return ok
}

// CancelAll aborts every running crawl. Used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	all := r.active
	r.active = make(map[string]*activeCrawl)
	r.mu.Unlock()

	for _, a := range all {
		a.cancel()
		if a.closer != nil {
			a.closer.Close()
		}
	}
}
