package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/model"
)

// Store is the persistence seam the Connection task uses on Loading→
// ZoneLoaded and on every zone change / graceful logout (§4.4). The real
// implementation is CharacterRepository below, the only one in this module.
type Store interface {
	Load(ctx context.Context, contentId model.ContentId) (*model.PlayerData, error)
	Commit(ctx context.Context, name string, timePlayedMinutes int, data *model.PlayerData) error
}

// CharacterRepository implements Store against the two-table layout in §6:
// `character` carries the small, queryable columns; `character_data` carries
// everything else as JSON blobs. A commit writes both rows in one
// transaction, so a crash mid-write never leaves content_id half-updated.
type CharacterRepository struct {
	pool *pgxpool.Pool
}

// NewCharacterRepository wraps pool.
func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// characterDataBlob is the JSON shape of character_data's columns (§6: one
// blob per sub-struct). Field order here has no wire significance; the
// client never sees this layout, only the PlayerSetup codec does (ipc
// package).
type characterDataBlob struct {
	// Customize is round-tripped but not yet surfaced on model.PlayerData;
	// appearance bytes only live on the CommonSpawn built at spawn time.
	Customize     [constants.CustomizeSize]byte `json:"customize"`
	ClassJob      classJobBlob                  `json:"classjob"`
	Unlock        model.UnlockData              `json:"unlock"`
	Content       contentBlob                   `json:"content"`
	Volatile      volatileBlob                  `json:"volatile"`
	Inventory     *model.Inventory              `json:"inventory"`
	Aetheryte     []byte                        `json:"aetheryte"`
	AetherCurrent []byte                        `json:"aether_current"`
	Companion     json.RawMessage               `json:"companion"`
	Quest         []model.ActiveQuest           `json:"quest"`
}

type classJobBlob struct {
	ClassJobId uint8                                      `json:"classjob_id"`
	Levels     [constants.ClassJobArraySize]uint16 `json:"levels"`
	Exp        [constants.ClassJobArraySize]int32  `json:"exp"`
}

type contentBlob struct {
	GMRank      uint8 `json:"gm_rank"`
	GMInvisible bool  `json:"gm_invisible"`
}

type volatileBlob struct {
	Position       model.Position `json:"position"`
	Rotation       float32        `json:"rotation"`
	ZoneId         uint16         `json:"zone_id"`
	HPCurr         uint32         `json:"hp_curr"`
	HPMax          uint32         `json:"hp_max"`
	MPCurr         uint16         `json:"mp_curr"`
	MPMax          uint16         `json:"mp_max"`
	ItemSequence   uint32         `json:"item_sequence"`
	ShopSequence   uint32         `json:"shop_sequence"`
	DisplayFlags   uint32         `json:"display_flags"`
	ClientLanguage uint8          `json:"client_language"`
	PartyId        uint64         `json:"party_id"`
}

// Load retrieves a character's full snapshot, or (nil, nil) if contentId
// has no row yet (§4.4 step 1).
func (r *CharacterRepository) Load(ctx context.Context, contentId model.ContentId) (*model.PlayerData, error) {
	var accountId int64
	var actorId int64
	var gmRank uint8
	err := r.pool.QueryRow(ctx,
		`SELECT service_account_id, actor_id, gm_rank FROM character WHERE content_id = $1`,
		int64(contentId),
	).Scan(&accountId, &actorId, &gmRank)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying character %d: %w", contentId, err)
	}

	var raw []byte
	err = r.pool.QueryRow(ctx,
		`SELECT jsonb_build_object(
			'customize', customize, 'classjob', classjob, 'unlock', unlock,
			'content', content, 'volatile', volatile, 'inventory', inventory,
			'aetheryte', aetheryte, 'aether_current', aether_current,
			'companion', companion, 'quest', quest
		) FROM character_data WHERE content_id = $1`,
		int64(contentId),
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("querying character_data %d: %w", contentId, err)
	}

	var blob characterDataBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("decoding character_data %d: %w", contentId, err)
	}

	data := model.NewPlayerData(model.ObjectId(actorId), contentId, uint32(accountId))
	data.Position = blob.Volatile.Position
	data.Rotation = blob.Volatile.Rotation
	data.ZoneId = blob.Volatile.ZoneId
	data.ClassJobId = blob.ClassJob.ClassJobId
	data.Levels = blob.ClassJob.Levels
	data.Exp = blob.ClassJob.Exp
	data.HPCurr = blob.Volatile.HPCurr
	data.HPMax = blob.Volatile.HPMax
	data.MPCurr = blob.Volatile.MPCurr
	data.MPMax = blob.Volatile.MPMax
	data.Unlocks = blob.Unlock
	data.ActiveQuests = blob.Quest
	data.GMRank = blob.Content.GMRank
	data.GMInvisible = blob.Content.GMInvisible
	data.ItemSequence = blob.Volatile.ItemSequence
	data.ShopSequence = blob.Volatile.ShopSequence
	data.DisplayFlags = blob.Volatile.DisplayFlags
	data.ClientLanguage = blob.Volatile.ClientLanguage
	data.PartyId = blob.Volatile.PartyId
	if blob.Inventory != nil {
		data.Inventory = blob.Inventory
	}
	return data, nil
}

// Commit writes data's full snapshot in one transaction (§4.4: "committed
// on graceful logout and on every zone change", §6: "a commit be atomic at
// the character-id granularity").
func (r *CharacterRepository) Commit(ctx context.Context, name string, timePlayedMinutes int, data *model.PlayerData) error {
	blob := characterDataBlob{
		ClassJob: classJobBlob{ClassJobId: data.ClassJobId, Levels: data.Levels, Exp: data.Exp},
		Unlock:   data.Unlocks,
		Content:  contentBlob{GMRank: data.GMRank, GMInvisible: data.GMInvisible},
		Volatile: volatileBlob{
			Position:       data.Position,
			Rotation:       data.Rotation,
			ZoneId:         data.ZoneId,
			HPCurr:         data.HPCurr,
			HPMax:          data.HPMax,
			MPCurr:         data.MPCurr,
			MPMax:          data.MPMax,
			ItemSequence:   data.ItemSequence,
			ShopSequence:   data.ShopSequence,
			DisplayFlags:   data.DisplayFlags,
			ClientLanguage: data.ClientLanguage,
			PartyId:        data.PartyId,
		},
		Inventory: data.Inventory,
		Quest:     data.ActiveQuests,
		Companion: json.RawMessage(`{}`),
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit for character %d: %w", data.ContentId, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO character (content_id, service_account_id, actor_id, gm_rank, name, time_played_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (content_id) DO UPDATE SET
		   gm_rank = EXCLUDED.gm_rank, name = EXCLUDED.name, time_played_minutes = EXCLUDED.time_played_minutes`,
		int64(data.ContentId), int64(data.AccountId), int64(data.ActorId), data.GMRank, name, timePlayedMinutes,
	)
	if err != nil {
		return fmt.Errorf("upserting character %d: %w", data.ContentId, err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO character_data (content_id, customize, classjob, unlock, content, volatile, inventory, aetheryte, aether_current, companion, quest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (content_id) DO UPDATE SET
		   customize = EXCLUDED.customize, classjob = EXCLUDED.classjob, unlock = EXCLUDED.unlock,
		   content = EXCLUDED.content, volatile = EXCLUDED.volatile, inventory = EXCLUDED.inventory,
		   aetheryte = EXCLUDED.aetheryte, aether_current = EXCLUDED.aether_current,
		   companion = EXCLUDED.companion, quest = EXCLUDED.quest`,
		int64(data.ContentId), blob.Customize, blob.ClassJob, blob.Unlock, blob.Content,
		blob.Volatile, blob.Inventory, blob.Unlock.Aetherytes, blob.Unlock.AetherCurrents,
		blob.Companion, blob.Quest,
	)
	if err != nil {
		return fmt.Errorf("upserting character_data %d: %w", data.ContentId, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing character %d: %w", data.ContentId, err)
	}
	return nil
}
