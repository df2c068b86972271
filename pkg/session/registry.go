package session

import (
	"context"
	"sync"
	"time"
)

var (
	// RegistryMaxAge is how long an untouched session survives.
	RegistryMaxAge = 24 * time.Hour
	// RegistryGCInterval is how often expired sessions are collected.
	RegistryGCInterval = time.Minute
)

type trackedSession struct {
	session  *Session
	lastUsed time.Time
}

// Registry tracks live sessions by ID and expires idle ones in the
// background. Server frontends create one session per client and look it
// up per request.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*trackedSession

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry creates a registry and starts its GC goroutine. The
// goroutine stops when ctx is done or Close is called.
func NewRegistry(ctx context.Context) *Registry {
	r := &Registry{
		sessions: make(map[string]*trackedSession),
		stopChan: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(RegistryGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stopChan:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.GC()
			}
		}
	}()
	return r
}

// Close stops the GC goroutine and waits for it.
func (r *Registry) Close() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
	r.wg.Wait()
}

// GetOrCreate returns the session registered under id, creating and
// registering a fresh one when absent. Lookup refreshes the idle timer.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tracked, ok := r.sessions[id]; ok {
		tracked.lastUsed = time.Now()
		return tracked.session
	}
	s := New()
	r.sessions[id] = &trackedSession{session: s, lastUsed: time.Now()}
	return s
}

// Get returns the session registered under id, refreshing its idle timer.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tracked, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	tracked.lastUsed = time.Now()
	return tracked.session, true
}

// Delete removes the session registered under id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// GC removes sessions idle longer than RegistryMaxAge.
func (r *Registry) GC() {
	expiredAt := time.Now().Add(-RegistryMaxAge)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, tracked := range r.sessions {
		if tracked.lastUsed.Before(expiredAt) {
			delete(r.sessions, id)
		}
	}
}
