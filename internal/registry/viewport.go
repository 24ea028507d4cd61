package registry

import (
	"sync"
	"time"
)

// VisibilitySource reports whether the client is currently foregrounded.
type VisibilitySource func() bool

// StartViewportTracking polls the source at the configured interval and
// records transitions on the user's session. Clients that can push
// visibility events call SetViewportVisible directly; the poll is the
// fallback for platforms where those events are unreliable. Tracking stops
// when the session ends, the registry closes, or the returned stop function
// is called.
func (r *Registry) StartViewportTracking(userID string, source VisibilitySource) (stop func()) {
	r.mu.Lock()
	if _, ok := r.sessions[userID]; !ok {
		r.mu.Unlock()
		return func() {}
	}
	if prev, ok := r.watchers[userID]; ok {
		// replace an existing watcher for the same user
		defer close(prev)
	}
	done := make(chan struct{})
	r.watchers[userID] = done
	r.mu.Unlock()

	go func() {
		ticker := time.NewTicker(r.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				visible := source()
				r.mu.RLock()
				session, ok := r.sessions[userID]
				unchanged := ok && session.ViewportVisible == visible
				r.mu.RUnlock()
				if !ok {
					return
				}
				// re-observing the same state is a no-op
				if unchanged {
					continue
				}
				r.SetViewportVisible(userID, visible)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			if current, ok := r.watchers[userID]; ok && current == done {
				delete(r.watchers, userID)
				r.mu.Unlock()
				close(done)
				return
			}
			r.mu.Unlock()
		})
	}
}
