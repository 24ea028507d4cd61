package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatTimeSinceBoundaries(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    string
	}{
		{0, "Just now"},
		{59 * time.Second, "Just now"},
		{60 * time.Second, "1 minutes ago"},
		{90 * time.Second, "1 minutes ago"},
		{3599 * time.Second, "59 minutes ago"},
		{3600 * time.Second, "1 hours ago"},
		{86399 * time.Second, "23 hours ago"},
		{86400 * time.Second, "1 days ago"},
		{72 * time.Hour, "3 days ago"},
	}

	for _, tc := range cases {
		got := FormatTimeSince(now.Add(-tc.elapsed), now)
		require.Equal(t, tc.want, got, "elapsed %s", tc.elapsed)
	}
}

func TestFormatTimeSinceFutureTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "Just now", FormatTimeSince(now.Add(time.Minute), now))
}
