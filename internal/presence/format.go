package presence

import (
	"fmt"
	"time"
)

// FormatTimeSince renders the elapsed time between lastSeen and now as the
// relative string shown next to a user's status. Floor division throughout;
// no singular/plural special-casing.
func FormatTimeSince(lastSeen, now time.Time) string {
	elapsed := now.Sub(lastSeen)
	if elapsed < 0 {
		elapsed = 0
	}

	minutes := int(elapsed / time.Minute)
	if minutes < 1 {
		return "Just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes ago", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d hours ago", hours)
	}

	return fmt.Sprintf("%d days ago", hours/24)
}
