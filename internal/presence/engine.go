package presence

import (
	"context"
	"errors"

	"vendora/presence/internal/models"
	"vendora/presence/internal/repository"
)

// CheckPushEligibility decides whether an external push dispatch should be
// triggered for the user and category. The rules form an ordered cascade;
// the first match wins. The check is advisory and never fails: any error
// while gathering inputs collapses to a low-confidence "don't push".
func (s *Service) CheckPushEligibility(ctx context.Context, userID string, category models.NotificationCategory) models.PushDecision {
	connected := s.registry.IsConnected(userID)
	viewport := s.registry.ViewportStatus(userID)

	// 1. Live session with the app in the foreground: an in-app indicator
	// reaches the user, a push would be redundant.
	if connected && viewport == models.ViewportVisible {
		return models.PushDecision{
			ShouldSendPush:   false,
			Reason:           models.ReasonConnected,
			Confidence:       models.ConfidenceHigh,
			LastActivity:     "Just now",
			ConnectionStatus: models.ConnectionConnected,
			ViewportStatus:   models.ViewportVisible,
		}
	}

	// 2. Live session but backgrounded: push is the only way to reach them.
	if connected && viewport == models.ViewportHidden {
		return models.PushDecision{
			ShouldSendPush:   true,
			Reason:           models.ReasonConnected,
			Confidence:       models.ConfidenceHigh,
			LastActivity:     "Just now",
			ConnectionStatus: models.ConnectionConnected,
			ViewportStatus:   models.ViewportHidden,
		}
	}

	// 3. No live session, but activity inside the push window.
	recent, timeSince, err := s.hasRecentActivity(ctx, userID, s.cfg.PushActivityThreshold)
	if err != nil {
		return s.errorDecision(userID, err)
	}
	if recent && viewport == models.ViewportHidden {
		return models.PushDecision{
			ShouldSendPush:   true,
			Reason:           models.ReasonRecentActivity,
			Confidence:       models.ConfidenceMedium,
			LastActivity:     timeSince,
			ConnectionStatus: models.ConnectionAway,
			ViewportStatus:   models.ViewportHidden,
		}
	}

	// 4. Explicit opt-in for this category, or an always-online preference.
	override, err := s.preferenceOverride(ctx, userID, category)
	if err != nil {
		return s.errorDecision(userID, err)
	}
	if override && viewport == models.ViewportHidden {
		return models.PushDecision{
			ShouldSendPush:   true,
			Reason:           models.ReasonPreferenceOverride,
			Confidence:       models.ConfidenceLow,
			LastActivity:     "Unknown",
			ConnectionStatus: models.ConnectionDisconnected,
			ViewportStatus:   models.ViewportHidden,
		}
	}

	// 5. Default: viewport visible without a live session, or fully offline.
	return models.PushDecision{
		ShouldSendPush:   false,
		Reason:           models.ReasonOffline,
		Confidence:       models.ConfidenceHigh,
		LastActivity:     "Unknown",
		ConnectionStatus: models.ConnectionDisconnected,
		ViewportStatus:   viewport,
	}
}

// EligibleUsers runs the cascade over every known user and returns the ids
// that should be pushed for the category. Per-user failures are skipped, not
// fatal; a failed listing yields an empty result.
func (s *Service) EligibleUsers(ctx context.Context, category models.NotificationCategory) []string {
	userIDs, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("list users for push failed")
		return nil
	}

	var eligible []string
	for _, userID := range userIDs {
		decision := s.CheckPushEligibility(ctx, userID, category)
		if decision.ShouldSendPush {
			eligible = append(eligible, userID)
		}
	}
	return eligible
}

func (s *Service) preferenceOverride(ctx context.Context, userID string, category models.NotificationCategory) (bool, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrPresenceNotFound) {
			return false, nil
		}
		return false, err
	}
	if p.Preference == models.PreferenceAlwaysOnline {
		return true, nil
	}
	return p.NotificationPrefs.Enabled(category), nil
}

func (s *Service) errorDecision(userID string, err error) models.PushDecision {
	s.log.Warn().Err(err).Str("user_id", userID).Msg("push eligibility check failed")
	return models.PushDecision{
		ShouldSendPush:   false,
		Reason:           models.ReasonOffline,
		Confidence:       models.ConfidenceLow,
		LastActivity:     "Error",
		ConnectionStatus: models.ConnectionDisconnected,
		ViewportStatus:   models.ViewportUnknown,
	}
}
