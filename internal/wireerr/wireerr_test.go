package wireerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesErrorsIs(t *testing.T) {
	err := Wrap(ErrDbError, "insert character failed")
	require.True(t, errors.Is(err, ErrDbError))
	require.False(t, errors.Is(err, ErrScriptError))
}

func TestFatalClassification(t *testing.T) {
	require.False(t, Fatal(ErrUnknownOpcode))
	require.False(t, Fatal(ErrScriptError))
	require.False(t, Fatal(ErrOversubscribed))
	require.False(t, Fatal(ErrInstanceMissing))
	require.True(t, Fatal(ErrMalformedPacket))
	require.True(t, Fatal(ErrUnauthenticatedAction))
	require.True(t, Fatal(ErrInvalidTransition))
	require.True(t, Fatal(ErrTimeoutKeepAlive))
	require.True(t, Fatal(Wrap(ErrDbError, "commit retry exhausted")))
}
