package connection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/wireerr"
)

func TestTransitionFollowsDrawnArrows(t *testing.T) {
	path := []State{StateAuthenticated, StateLoading, StateZoneLoaded, StateLoggingOut, StateClosed}

	s := StateHandshake
	for _, next := range path {
		var err error
		s, err = Transition(s, next)
		require.NoError(t, err)
		require.Equal(t, next, s)
	}
}

func TestTransitionRejectsUndrawnArrows(t *testing.T) {
	cases := []struct {
		from, to State
	}{
		{StateHandshake, StateLoading},
		{StateHandshake, StateZoneLoaded},
		{StateAuthenticated, StateZoneLoaded},
		{StateLoading, StateAuthenticated},
		{StateLoggingOut, StateZoneLoaded},
		{StateClosed, StateHandshake},
	}
	for _, c := range cases {
		got, err := Transition(c.from, c.to)
		require.Error(t, err, "%s -> %s must be rejected", c.from, c.to)
		require.True(t, errors.Is(err, wireerr.ErrInvalidTransition))
		require.Equal(t, c.from, got, "a rejected transition must not move the state")
	}
}

func TestReloadingFromZoneLoadedIsAllowed(t *testing.T) {
	// A zone change re-enters Loading from ZoneLoaded (§4.3).
	s, err := Transition(StateZoneLoaded, StateLoading)
	require.NoError(t, err)
	require.Equal(t, StateLoading, s)
}

func TestEveryStateMayClose(t *testing.T) {
	for _, s := range []State{StateHandshake, StateAuthenticated, StateLoading, StateZoneLoaded, StateLoggingOut} {
		_, err := Transition(s, StateClosed)
		require.NoError(t, err, "%s must be able to close", s)
	}
}
