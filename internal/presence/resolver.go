package presence

import "vendora/presence/internal/models"

// Resolve computes the externally visible online flag for a user. Preference
// takes precedence over everything else; only auto mode derives the answer
// from liveness signals.
func Resolve(p models.UserPresence, connected bool, recentActivity bool) bool {
	switch p.Preference {
	case models.PreferenceAlwaysOnline:
		return true
	case models.PreferenceAlwaysOffline:
		return false
	case models.PreferenceManual:
		return p.IsOnline
	default:
		return connected || recentActivity
	}
}
