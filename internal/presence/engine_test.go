package presence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vendora/presence/internal/models"
)

func TestPushConnectedVisibleSuppressesPush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Initialize(ctx, "u1", "")

	// recent activity and an enabled category preference would each justify
	// a push on their own; the connected-and-visible rule must win anyway
	require.NoError(t, f.svc.SetNotificationPrefs(ctx, "u1", models.NotificationPrefs{Chat: true}))

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.False(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonConnected, decision.Reason)
	require.Equal(t, models.ConfidenceHigh, decision.Confidence)
	require.Equal(t, models.ConnectionConnected, decision.ConnectionStatus)
	require.Equal(t, models.ViewportVisible, decision.ViewportStatus)
}

func TestPushConnectedHiddenSendsPush(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Initialize(ctx, "u1", "")
	f.reg.SetViewportVisible("u1", false)

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.True(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonConnected, decision.Reason)
	require.Equal(t, models.ConfidenceHigh, decision.Confidence)
	require.Equal(t, models.ViewportHidden, decision.ViewportStatus)
}

func TestPushRecentActivityWhileAway(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// session went stale but the tab stayed backgrounded and the persisted
	// last-seen is only a minute old
	f.svc.Initialize(ctx, "u1", "")
	f.reg.SetViewportVisible("u1", false)
	f.clk.Advance(60 * time.Second)

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.True(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonRecentActivity, decision.Reason)
	require.Equal(t, models.ConfidenceMedium, decision.Confidence)
	require.Equal(t, models.ConnectionAway, decision.ConnectionStatus)
	require.Equal(t, models.ViewportHidden, decision.ViewportStatus)
	require.Equal(t, "1 minutes ago", decision.LastActivity)
}

func TestPushPreferenceOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Initialize(ctx, "u1", "")
	f.reg.SetViewportVisible("u1", false)
	require.NoError(t, f.svc.SetNotificationPrefs(ctx, "u1", models.NotificationPrefs{Orders: true}))

	// activity long stale: rules 1-3 all pass over this user
	f.clk.Advance(10 * time.Minute)

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryOrders)
	require.True(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonPreferenceOverride, decision.Reason)
	require.Equal(t, models.ConfidenceLow, decision.Confidence)
	require.Equal(t, models.ConnectionDisconnected, decision.ConnectionStatus)

	// the override is per category
	other := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryMarketing)
	require.False(t, other.ShouldSendPush)
	require.Equal(t, models.ReasonOffline, other.Reason)
}

func TestPushAlwaysOnlineCountsAsOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Initialize(ctx, "u1", "")
	f.reg.SetViewportVisible("u1", false)
	require.NoError(t, f.svc.SetPreference(ctx, "u1", models.PreferenceAlwaysOnline))
	f.clk.Advance(10 * time.Minute)

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryMarketing)
	require.True(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonPreferenceOverride, decision.Reason)
}

func TestPushOfflineFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// disconnected 90 seconds ago with nothing since: recency alone is not
	// enough without a hidden viewport, so the default branch answers
	f.svc.Initialize(ctx, "u1", "")
	f.svc.Cleanup(ctx, "u1")
	f.clk.Advance(90 * time.Second)

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.False(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonOffline, decision.Reason)
	require.Equal(t, models.ConfidenceHigh, decision.Confidence)
	require.Equal(t, models.ConnectionDisconnected, decision.ConnectionStatus)
	require.Equal(t, models.ViewportUnknown, decision.ViewportStatus)
}

func TestPushFullyStaleUserNotEligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.seed(models.UserPresence{
		UserID:     "u1",
		Preference: models.PreferenceAuto,
		LastSeen:   f.clk.Now().Add(-time.Hour),
	})

	decision := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.False(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonOffline, decision.Reason)
	require.Equal(t, models.ConfidenceHigh, decision.Confidence)
}

func TestPushInputFailureCollapsesToSafeDefault(t *testing.T) {
	f := newFixture(t)
	f.store.getErr = errors.New("connection reset")

	decision := f.svc.CheckPushEligibility(context.Background(), "u1", models.CategoryChat)
	require.False(t, decision.ShouldSendPush)
	require.Equal(t, models.ReasonOffline, decision.Reason)
	require.Equal(t, models.ConfidenceLow, decision.Confidence)
	require.Equal(t, "Error", decision.LastActivity)
}

func TestViewportGraceKeepsDecisionsStable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Initialize(ctx, "u1", "")
	f.reg.SetViewportVisible("u1", false)

	first := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.Equal(t, models.ViewportHidden, first.ViewportStatus)

	// tab flips straight back: within the grace window the answer must not
	// bounce to visible
	f.clk.Advance(2 * time.Second)
	f.reg.SetViewportVisible("u1", true)
	second := f.svc.CheckPushEligibility(ctx, "u1", models.CategoryChat)
	require.Equal(t, models.ViewportHidden, second.ViewportStatus)
	require.Equal(t, first.ShouldSendPush, second.ShouldSendPush)
}

func TestEligibleUsersSkipsPerUserFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// eligible: live session, backgrounded
	f.svc.Initialize(ctx, "eligible", "")
	f.reg.SetViewportVisible("eligible", false)

	// not eligible: known but fully offline
	f.store.seed(models.UserPresence{
		UserID:     "offline",
		Preference: models.PreferenceAuto,
		LastSeen:   f.clk.Now().Add(-time.Hour),
	})

	// failing: store read errors for this user; must be skipped, not fatal
	f.store.seed(models.UserPresence{UserID: "broken", Preference: models.PreferenceAuto})
	f.store.getErrFor = map[string]error{"broken": errors.New("row corrupt")}

	eligible := f.svc.EligibleUsers(ctx, models.CategoryChat)
	require.Equal(t, []string{"eligible"}, eligible)
}

func TestEligibleUsersListFailureYieldsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.listErr = errors.New("timeout")

	require.Empty(t, f.svc.EligibleUsers(context.Background(), models.CategoryChat))
}
