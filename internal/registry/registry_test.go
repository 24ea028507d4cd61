package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vendora/presence/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() Config {
	return Config{
		ConnTimeout:       30 * time.Second,
		HeartbeatInterval: time.Hour,
		HiddenGrace:       10 * time.Second,
		PollInterval:      time.Hour,
	}
}

func newTestRegistry(t *testing.T, clk *fakeClock, opts ...Option) *Registry {
	t.Helper()
	opts = append([]Option{WithClock(clk.Now)}, opts...)
	r := New(testConfig(), zerolog.Nop(), opts...)
	t.Cleanup(r.Close)
	return r
}

func TestStartSessionReplacesPriorEntry(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := newTestRegistry(t, clk)

	first := r.StartSession("u1", models.DeviceWeb, "")
	second := r.StartSession("u1", models.DeviceMobile, "")
	require.NotEqual(t, first, second)

	session, ok := r.Get("u1")
	require.True(t, ok)
	require.Equal(t, second, session.SessionID)
	require.Equal(t, models.DeviceMobile, session.DeviceType)
	require.Len(t, r.Snapshot(), 1)
}

func TestIsConnectedTimeoutBoundary(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := newTestRegistry(t, clk)

	r.StartSession("u1", models.DeviceWeb, "")

	clk.Advance(29 * time.Second)
	require.True(t, r.IsConnected("u1"))

	clk.Advance(2 * time.Second) // 31s since last ping
	require.False(t, r.IsConnected("u1"))

	r.Ping("u1")
	require.True(t, r.IsConnected("u1"))
}

func TestIsConnectedUnknownUser(t *testing.T) {
	clk := newFakeClock(time.Now())
	r := newTestRegistry(t, clk)

	require.False(t, r.IsConnected("nobody"))
	r.Ping("nobody") // no-op, must not panic or create an entry
	_, ok := r.Get("nobody")
	require.False(t, ok)
}

func TestEndSessionRemovesEntry(t *testing.T) {
	clk := newFakeClock(time.Now())
	r := newTestRegistry(t, clk)

	r.StartSession("u1", models.DeviceWeb, "")
	r.EndSession("u1")

	require.False(t, r.IsConnected("u1"))
	require.Equal(t, models.ViewportUnknown, r.ViewportStatus("u1"))
}

func TestViewportHiddenGraceWindow(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := newTestRegistry(t, clk)

	r.StartSession("u1", models.DeviceWeb, "")
	require.Equal(t, models.ViewportVisible, r.ViewportStatus("u1"))

	r.SetViewportVisible("u1", false)
	require.Equal(t, models.ViewportHidden, r.ViewportStatus("u1"))

	// rapid hide -> show: still hidden for the rest of the grace window
	clk.Advance(2 * time.Second)
	r.SetViewportVisible("u1", true)
	require.Equal(t, models.ViewportHidden, r.ViewportStatus("u1"))

	clk.Advance(5 * time.Second)
	require.Equal(t, models.ViewportHidden, r.ViewportStatus("u1"))

	clk.Advance(4 * time.Second) // past the 10s grace
	require.Equal(t, models.ViewportVisible, r.ViewportStatus("u1"))
}

func TestViewportMirrorFiresOnChangeOnly(t *testing.T) {
	clk := newFakeClock(time.Now())
	var flips []bool
	r := newTestRegistry(t, clk, WithViewportFunc(func(_ string, visible bool) {
		flips = append(flips, visible)
	}))

	r.StartSession("u1", models.DeviceWeb, "")
	r.SetViewportVisible("u1", true) // unchanged, no mirror
	r.SetViewportVisible("u1", false)
	r.SetViewportVisible("u1", false) // unchanged, no mirror
	r.SetViewportVisible("u1", true)

	require.Equal(t, []bool{false, true}, flips)
}

func TestSweepEvictsStaleSessions(t *testing.T) {
	clk := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	r := newTestRegistry(t, clk)

	r.StartSession("stale", models.DeviceWeb, "")
	clk.Advance(10 * time.Minute)
	r.StartSession("fresh", models.DeviceWeb, "")

	removed := r.Sweep(5 * time.Minute)
	require.Equal(t, 1, removed)

	_, ok := r.Get("stale")
	require.False(t, ok)
	_, ok = r.Get("fresh")
	require.True(t, ok)
}

func TestDetectDeviceType(t *testing.T) {
	cases := []struct {
		agent string
		want  models.DeviceType
	}{
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", models.DeviceMobile},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", models.DeviceMobile},
		{"Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X)", models.DeviceMobile},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", models.DeviceWeb},
		{"", models.DeviceWeb},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DetectDeviceType(tc.agent), "agent %q", tc.agent)
	}
}
