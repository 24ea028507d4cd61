// Package registry tracks live client sessions in memory: one entry per
// user, refreshed by heartbeats, carrying the last known viewport state.
// It is authoritative for "is this user connected right now"; the persisted
// presence row only mirrors coarse projections of it.
package registry

import (
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vendora/presence/internal/models"
)

var mobileAgentPattern = regexp.MustCompile(`Mobile|Android|iPhone|iPad`)

// DetectDeviceType classifies a client user-agent string.
func DetectDeviceType(userAgent string) models.DeviceType {
	if mobileAgentPattern.MatchString(userAgent) {
		return models.DeviceMobile
	}
	return models.DeviceWeb
}

// Session is a live connection entry. Owned exclusively by the registry;
// callers only ever see copies.
type Session struct {
	SessionID          string
	UserID             string
	DeviceType         models.DeviceType
	UserAgent          string
	Connected          bool
	StartedAt          time.Time
	LastPing           time.Time
	ViewportVisible    bool
	LastViewportChange time.Time

	// lastHiddenAt anchors the hidden-grace window across rapid
	// visible/hidden flips.
	lastHiddenAt time.Time
}

type Config struct {
	ConnTimeout       time.Duration
	HeartbeatInterval time.Duration
	HiddenGrace       time.Duration
	PollInterval      time.Duration
}

type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	watchers map[string]chan struct{}

	cfg Config
	log zerolog.Logger
	now func() time.Time

	// onHeartbeat mirrors each tick downstream; best-effort.
	onHeartbeat func(userID string)
	// onViewport mirrors visibility flips downstream; best-effort.
	onViewport func(userID string, visible bool)

	heartbeatMu   sync.Mutex
	heartbeatStop chan struct{}
}

type Option func(*Registry)

// WithClock overrides the time source. Tests use this to step time.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithHeartbeatFunc sets the per-user mirror invoked on every heartbeat tick.
func WithHeartbeatFunc(fn func(userID string)) Option {
	return func(r *Registry) { r.onHeartbeat = fn }
}

// WithViewportFunc sets the mirror invoked on every visibility change.
func WithViewportFunc(fn func(userID string, visible bool)) Option {
	return func(r *Registry) { r.onViewport = fn }
}

func New(cfg Config, log zerolog.Logger, opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		watchers: make(map[string]chan struct{}),
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StartSession registers a live session for the user, replacing any prior
// entry. Only one session per user is modeled. The shared heartbeat loop is
// started on the first session.
func (r *Registry) StartSession(userID string, deviceType models.DeviceType, userAgent string) string {
	now := r.now()
	session := &Session{
		SessionID:          uuid.NewString(),
		UserID:             userID,
		DeviceType:         deviceType,
		UserAgent:          userAgent,
		Connected:          true,
		StartedAt:          now,
		LastPing:           now,
		ViewportVisible:    true,
		LastViewportChange: now,
	}

	r.mu.Lock()
	r.sessions[userID] = session
	r.mu.Unlock()

	r.startHeartbeat()

	r.log.Debug().
		Str("user_id", userID).
		Str("session_id", session.SessionID).
		Str("device", string(deviceType)).
		Msg("session started")

	return session.SessionID
}

// EndSession removes the user's entry and stops any viewport watcher.
func (r *Registry) EndSession(userID string) {
	r.mu.Lock()
	delete(r.sessions, userID)
	stop, ok := r.watchers[userID]
	if ok {
		delete(r.watchers, userID)
	}
	r.mu.Unlock()

	if ok {
		close(stop)
	}

	r.log.Debug().Str("user_id", userID).Msg("session ended")
}

// Ping refreshes the liveness timestamp. Unknown users are ignored.
func (r *Registry) Ping(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[userID]
	if !ok {
		return
	}
	session.LastPing = r.now()
}

// IsConnected reports whether the user has a live session whose last ping is
// within the connection timeout. Stale entries are treated as disconnected
// at read time; they are not evicted here.
func (r *Registry) IsConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok || !session.Connected {
		return false
	}
	return r.now().Sub(session.LastPing) < r.cfg.ConnTimeout
}

// SetViewportVisible records a foreground/background transition for the
// user's session and mirrors it downstream.
func (r *Registry) SetViewportVisible(userID string, visible bool) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok {
		r.mu.Unlock()
		return
	}

	changed := session.ViewportVisible != visible
	now := r.now()
	session.ViewportVisible = visible
	session.LastViewportChange = now
	if !visible {
		session.lastHiddenAt = now
	}
	r.mu.Unlock()

	if changed && r.onViewport != nil {
		r.onViewport(userID, visible)
	}
}

// ViewportStatus resolves the user's viewport state. A hide within the grace
// window still reads as hidden even if the tab already flipped back, so push
// decisions made in quick succession agree.
func (r *Registry) ViewportStatus(userID string) models.ViewportStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return models.ViewportUnknown
	}

	if !session.ViewportVisible {
		return models.ViewportHidden
	}
	if !session.lastHiddenAt.IsZero() && r.now().Sub(session.lastHiddenAt) < r.cfg.HiddenGrace {
		return models.ViewportHidden
	}
	return models.ViewportVisible
}

// Get returns a copy of the user's session entry.
func (r *Registry) Get(userID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// Snapshot copies all live entries; the heartbeat loop and sweeps iterate
// this instead of the map itself.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, *session)
	}
	return out
}

// Sweep drops sessions whose last ping is older than the cutoff. Purely
// memory hygiene: IsConnected already treats them as disconnected.
func (r *Registry) Sweep(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)

	r.mu.Lock()
	var stops []chan struct{}
	removed := 0
	for userID, session := range r.sessions {
		if session.LastPing.Before(cutoff) {
			delete(r.sessions, userID)
			if stop, ok := r.watchers[userID]; ok {
				delete(r.watchers, userID)
				stops = append(stops, stop)
			}
			removed++
		}
	}
	r.mu.Unlock()

	for _, stop := range stops {
		close(stop)
	}

	if removed > 0 {
		r.log.Debug().Int("removed", removed).Msg("swept stale sessions")
	}
	return removed
}

func (r *Registry) startHeartbeat() {
	r.heartbeatMu.Lock()
	defer r.heartbeatMu.Unlock()

	if r.heartbeatStop != nil {
		return
	}
	stop := make(chan struct{})
	r.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(r.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				for _, session := range r.Snapshot() {
					r.Ping(session.UserID)
					if r.onHeartbeat != nil {
						r.onHeartbeat(session.UserID)
					}
				}
			}
		}
	}()
}

// Close stops the heartbeat loop and all viewport watchers.
func (r *Registry) Close() {
	r.heartbeatMu.Lock()
	if r.heartbeatStop != nil {
		close(r.heartbeatStop)
		r.heartbeatStop = nil
	}
	r.heartbeatMu.Unlock()

	r.mu.Lock()
	watchers := r.watchers
	r.watchers = make(map[string]chan struct{})
	r.mu.Unlock()

	for _, stop := range watchers {
		close(stop)
	}
}
