package presence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vendora/presence/internal/models"
)

func TestResolvePreferencePrecedence(t *testing.T) {
	cases := []struct {
		name      string
		presence  models.UserPresence
		connected bool
		recent    bool
		want      bool
	}{
		{"always online beats no signals", models.UserPresence{Preference: models.PreferenceAlwaysOnline}, false, false, true},
		{"always offline beats all signals", models.UserPresence{Preference: models.PreferenceAlwaysOffline, IsOnline: true}, true, true, false},
		{"manual passes stored true through", models.UserPresence{Preference: models.PreferenceManual, IsOnline: true}, false, false, true},
		{"manual passes stored false through", models.UserPresence{Preference: models.PreferenceManual, IsOnline: false}, true, true, false},
		{"auto connected but stale activity", models.UserPresence{Preference: models.PreferenceAuto}, true, false, true},
		{"auto disconnected but recent activity", models.UserPresence{Preference: models.PreferenceAuto}, false, true, true},
		{"auto no signals", models.UserPresence{Preference: models.PreferenceAuto}, false, false, false},
		{"empty preference derives like auto", models.UserPresence{}, true, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Resolve(tc.presence, tc.connected, tc.recent))
		})
	}
}
