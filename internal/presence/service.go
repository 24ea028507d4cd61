// Package presence implements the hybrid online-status core: it combines the
// in-memory connection registry, the persisted activity trail, and the
// user's preference into the resolved online flag and the push-eligibility
// decision.
package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vendora/presence/internal/config"
	"vendora/presence/internal/models"
	"vendora/presence/internal/registry"
	"vendora/presence/internal/repository"
)

// PresenceStore is the persisted system-of-record for presence rows.
type PresenceStore interface {
	Get(ctx context.Context, userID string) (models.UserPresence, error)
	Upsert(ctx context.Context, userID string, update models.PresenceUpdate) error
	ListUserIDs(ctx context.Context) ([]string, error)
	CountOnline(ctx context.Context) (int, error)
}

// ActivityStore appends activity events and answers recency queries.
type ActivityStore interface {
	Append(ctx context.Context, event models.ActivityEvent) error
	LastActivityAt(ctx context.Context, userID string) (time.Time, error)
	ListRecent(ctx context.Context, userID string, limit int) ([]models.ActivityEvent, error)
}

// Publisher fans presence changes and activity events out to interested
// viewers. All publishing is best-effort.
type Publisher interface {
	PublishPresence(ctx context.Context, p models.UserPresence) error
	PublishActivity(ctx context.Context, event models.ActivityEvent) error
}

// Service is the caller-facing presence API. Read paths never surface
// storage errors; they degrade to conservative defaults (offline, no push,
// no activity). Write paths for explicit user actions do return errors.
type Service struct {
	cfg       config.PresenceConfig
	store     PresenceStore
	activity  ActivityStore
	registry  *registry.Registry
	publisher Publisher
	log       zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(
	cfg config.PresenceConfig,
	store PresenceStore,
	activity ActivityStore,
	reg *registry.Registry,
	publisher Publisher,
	log zerolog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		cfg:       cfg,
		store:     store,
		activity:  activity,
		registry:  reg,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the connection registry for callers that wire heartbeat
// or viewport tracking directly.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Initialize begins presence tracking for a connecting client: registers a
// session, mirrors the online flag, and records a login event. An empty user
// id means no authenticated user and is a no-op, not an error.
func (s *Service) Initialize(ctx context.Context, userID, userAgent string) string {
	if userID == "" {
		return ""
	}

	deviceType := registry.DetectDeviceType(userAgent)
	sessionID := s.registry.StartSession(userID, deviceType, userAgent)

	s.mirrorPresence(ctx, userID, models.PresenceUpdate{
		IsOnline: boolPtr(true),
		LastSeen: timePtr(s.now()),
	})
	s.Track(ctx, userID, models.ActivityLogin, models.ActivityMetadata{Device: deviceType})

	return sessionID
}

// Cleanup stops tracking for a disconnecting client and mirrors the offline
// flag. Safe to call for users that never initialized.
func (s *Service) Cleanup(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	s.Track(ctx, userID, models.ActivityLogout, models.ActivityMetadata{})
	s.registry.EndSession(userID)
	s.mirrorPresence(ctx, userID, models.PresenceUpdate{
		IsOnline: boolPtr(false),
		LastSeen: timePtr(s.now()),
	})
}

// Track records an activity event and bumps the persisted last-seen
// timestamp. Storage failures are logged and swallowed; tracking must never
// break the caller's flow.
func (s *Service) Track(ctx context.Context, userID string, activityType models.ActivityType, metadata models.ActivityMetadata) {
	if userID == "" {
		return
	}

	event := models.ActivityEvent{
		UserID:       userID,
		ActivityType: activityType,
		Timestamp:    s.now(),
		Metadata:     metadata,
	}

	if err := s.activity.Append(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Str("activity", string(activityType)).Msg("append activity failed")
	}
	s.mirrorPresence(ctx, userID, models.PresenceUpdate{LastSeen: timePtr(event.Timestamp)})

	if s.publisher != nil {
		if err := s.publisher.PublishActivity(ctx, event); err != nil {
			s.log.Debug().Err(err).Str("user_id", userID).Msg("publish activity failed")
		}
	}
}

// Ping refreshes the user's connection liveness and mirrors last-seen.
func (s *Service) Ping(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.registry.Ping(userID)
	s.mirrorPresence(ctx, userID, models.PresenceUpdate{LastSeen: timePtr(s.now())})
}

// GetOnlineStatus returns the resolved presence for a user. Unknown users
// and storage failures resolve to offline with auto preference.
func (s *Service) GetOnlineStatus(ctx context.Context, userID string) models.UserPresence {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrPresenceNotFound) {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("get presence failed")
		}
		p = models.UserPresence{
			UserID:     userID,
			Preference: models.PreferenceAuto,
			LastSeen:   s.now(),
		}
	}

	connected := s.registry.IsConnected(userID)
	recent, _, err := s.hasRecentActivity(ctx, userID, s.cfg.OnlineThreshold)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("recency check failed")
		recent = false
	}

	p.IsOnline = Resolve(p, connected, recent)
	return p
}

// SetPreference stores the user's presence preference. Selecting an always
// mode also writes the flag it implies; auto and manual leave the stored
// flag untouched.
func (s *Service) SetPreference(ctx context.Context, userID string, preference models.Preference) error {
	if !preference.Valid() {
		return fmt.Errorf("invalid preference %q", preference)
	}

	update := models.PresenceUpdate{Preference: &preference}
	switch preference {
	case models.PreferenceAlwaysOnline:
		update.IsOnline = boolPtr(true)
	case models.PreferenceAlwaysOffline:
		update.IsOnline = boolPtr(false)
	}

	if err := s.store.Upsert(ctx, userID, update); err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	s.publishPresence(ctx, userID)
	return nil
}

// UpdateManualStatus sets the stored online flag directly. Only meaningful
// under manual preference; the resolver passes the flag through verbatim.
func (s *Service) UpdateManualStatus(ctx context.Context, userID string, isOnline bool) error {
	update := models.PresenceUpdate{
		IsOnline: &isOnline,
		LastSeen: timePtr(s.now()),
	}
	if err := s.store.Upsert(ctx, userID, update); err != nil {
		return fmt.Errorf("update manual status: %w", err)
	}
	s.publishPresence(ctx, userID)
	return nil
}

// SetNotificationPrefs stores the per-category push opt-ins consulted by the
// eligibility cascade.
func (s *Service) SetNotificationPrefs(ctx context.Context, userID string, prefs models.NotificationPrefs) error {
	if err := s.store.Upsert(ctx, userID, models.PresenceUpdate{NotificationPrefs: &prefs}); err != nil {
		return fmt.Errorf("set notification prefs: %w", err)
	}
	s.publishPresence(ctx, userID)
	return nil
}

// OnlineCount reports how many users currently carry the stored online flag.
func (s *Service) OnlineCount(ctx context.Context) int {
	count, err := s.store.CountOnline(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("count online failed")
		return 0
	}
	return count
}

// RecentActivity lists the user's newest activity events.
func (s *Service) RecentActivity(ctx context.Context, userID string, limit int) []models.ActivityEvent {
	if limit <= 0 {
		limit = 10
	}
	events, err := s.activity.ListRecent(ctx, userID, limit)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("list activity failed")
		return nil
	}
	return events
}

// hasRecentActivity reads the persisted last-seen timestamp and compares it
// against the threshold. Falls back to the activity trail when no presence
// row exists yet.
func (s *Service) hasRecentActivity(ctx context.Context, userID string, threshold time.Duration) (bool, string, error) {
	lastSeen, err := s.lastSeen(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPresenceNotFound) || errors.Is(err, repository.ErrNoActivity) {
			return false, "Unknown", nil
		}
		return false, "Unknown", err
	}

	elapsed := s.now().Sub(lastSeen)
	return elapsed <= threshold, FormatTimeSince(lastSeen, s.now()), nil
}

func (s *Service) lastSeen(ctx context.Context, userID string) (time.Time, error) {
	p, err := s.store.Get(ctx, userID)
	if err == nil {
		return p.LastSeen, nil
	}
	if !errors.Is(err, repository.ErrPresenceNotFound) {
		return time.Time{}, err
	}
	return s.activity.LastActivityAt(ctx, userID)
}

// mirrorPresence persists a coarse projection of in-memory state. Always
// best-effort: presence must not block or fail the caller.
func (s *Service) mirrorPresence(ctx context.Context, userID string, update models.PresenceUpdate) {
	if err := s.store.Upsert(ctx, userID, update); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("mirror presence failed")
		return
	}
	s.publishPresence(ctx, userID)
}

func (s *Service) publishPresence(ctx context.Context, userID string) {
	if s.publisher == nil {
		return
	}
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		return
	}
	if err := s.publisher.PublishPresence(ctx, p); err != nil {
		s.log.Debug().Err(err).Str("user_id", userID).Msg("publish presence failed")
	}
}

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }
