package ipc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventMessagesRoundTrip(t *testing.T) {
	roundTrip(t, EventStart{ActorId: 1, HandlerId: 262176, EventType: 4, Flags: 1, Arg: 7})
	roundTrip(t, EventFinish{HandlerId: 262176, Result: 1})
	roundTrip(t, NewEventScene(262176, 0, []uint32{0x20, 1000, 1, 4551, 10, 5}))
}

func TestNewEventSceneTruncatesParams(t *testing.T) {
	params := make([]uint32, MaxEventSceneParams+10)
	for i := range params {
		params[i] = uint32(i)
	}
	p := NewEventScene(1, 0, params)
	require.EqualValues(t, MaxEventSceneParams, p.ParamCount)
	require.Equal(t, uint32(MaxEventSceneParams-1), p.Params[MaxEventSceneParams-1])
}
