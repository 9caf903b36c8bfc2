package director

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetDataSchedulesOneVarsBroadcast(t *testing.T) {
	d := New(7, "dungeon")

	d.SetData(0, 1)
	d.SetData(3, 9)

	out := d.DrainBroadcasts()
	require.Len(t, out, 1, "multiple writes coalesce into one DirectorVars per tick")
	require.Equal(t, EventVarsChanged, out[0].Kind)
	require.Equal(t, uint32(7), out[0].HandlerId)

	require.Empty(t, d.DrainBroadcasts(), "drain clears the dirty flag")
}

func TestSetDataOutOfRangeIsIgnored(t *testing.T) {
	d := New(1, "dungeon")
	d.SetData(-1, 5)
	d.SetData(10, 5)
	require.Empty(t, d.DrainBroadcasts())
	require.Equal(t, byte(0), d.Data(10))
}

func TestDataRoundTrip(t *testing.T) {
	d := New(1, "dungeon")
	d.SetData(4, 0x2A)
	require.Equal(t, byte(0x2A), d.Data(4))
}

func TestBroadcastsCarryHandlerId(t *testing.T) {
	d := New(0x8003_0001, "trial")

	d.HideEObj(2000182)
	d.ShowEObj(2000183)
	d.EventAction(5, 10, 11)
	d.FinishGimmick(10)
	d.LogMessage(3)
	d.AbandonDuty(10)

	for _, b := range d.DrainBroadcasts() {
		require.Equal(t, uint32(0x8003_0001), b.HandlerId)
	}
}

func TestDrainOrderIsQueueOrder(t *testing.T) {
	d := New(1, "trial")
	d.HideEObj(100)
	d.LogMessage(2)
	d.SetData(0, 1)

	out := d.DrainBroadcasts()
	require.Len(t, out, 3)
	require.Equal(t, EventHideEObj, out[0].Kind)
	require.Equal(t, EventLogMessage, out[1].Kind)
	require.Equal(t, EventVarsChanged, out[2].Kind, "vars flush appends after explicit broadcasts")
}
