package persist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/model"
)

// TestCharacterDataBlobRoundTrips guards the JSON shape persisted under
// character_data (§6): every field Commit writes must survive a
// marshal/unmarshal cycle unchanged, since Load rebuilds PlayerData from
// exactly this shape.
func TestCharacterDataBlobRoundTrips(t *testing.T) {
	want := characterDataBlob{
		ClassJob: classJobBlob{ClassJobId: 3},
		Content:  contentBlob{GMRank: 1, GMInvisible: true},
		Volatile: volatileBlob{
			Position: model.Position{X: 1, Y: 2, Z: 3},
			ZoneId:   132,
			HPCurr:   100,
			HPMax:    100,
			MPCurr:   50,
			MPMax:    50,
		},
		Inventory: model.NewInventory(),
		Quest:     []model.ActiveQuest{{QuestId: 9, Sequence: 2}},
		Companion: json.RawMessage(`{}`),
	}
	want.ClassJob.Levels[3] = 10
	want.ClassJob.Exp[3] = 500

	raw, err := json.Marshal(want)
	require.NoError(t, err)

	var got characterDataBlob
	require.NoError(t, json.Unmarshal(raw, &got))

	require.Equal(t, want.ClassJob, got.ClassJob)
	require.Equal(t, want.Content, got.Content)
	require.Equal(t, want.Volatile, got.Volatile)
	require.Equal(t, want.Quest, got.Quest)
	require.Equal(t, want.Inventory.Currency.Gil, got.Inventory.Currency.Gil)
}
