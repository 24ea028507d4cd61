package registry

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vendora/presence/internal/models"
)

func TestViewportPollerObservesTransitions(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.HiddenGrace = 0
	r := New(cfg, zerolog.Nop())
	t.Cleanup(r.Close)

	r.StartSession("u1", models.DeviceWeb, "")

	var visible atomic.Bool
	visible.Store(true)
	stop := r.StartViewportTracking("u1", visible.Load)
	defer stop()

	visible.Store(false)
	require.Eventually(t, func() bool {
		return r.ViewportStatus("u1") == models.ViewportHidden
	}, time.Second, 5*time.Millisecond)

	visible.Store(true)
	require.Eventually(t, func() bool {
		return r.ViewportStatus("u1") == models.ViewportVisible
	}, time.Second, 5*time.Millisecond)
}

func TestViewportTrackingStopsWithSession(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 5 * time.Millisecond
	r := New(cfg, zerolog.Nop())
	t.Cleanup(r.Close)

	r.StartSession("u1", models.DeviceWeb, "")

	var polls atomic.Int32
	stop := r.StartViewportTracking("u1", func() bool {
		polls.Add(1)
		return true
	})
	defer stop()

	require.Eventually(t, func() bool { return polls.Load() > 0 }, time.Second, 5*time.Millisecond)

	r.EndSession("u1")
	settled := polls.Load()
	time.Sleep(50 * time.Millisecond)
	require.LessOrEqual(t, polls.Load(), settled+1)
}

func TestViewportTrackingWithoutSessionIsNoop(t *testing.T) {
	r := New(testConfig(), zerolog.Nop())
	t.Cleanup(r.Close)

	stop := r.StartViewportTracking("nobody", func() bool { return true })
	stop() // must be safe to call
}
