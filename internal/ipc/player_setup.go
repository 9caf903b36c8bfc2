package ipc

import (
	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/model"
)

// unlocksSize sums every UnlockData bitmask width, in the fixed field order
// the wire requires; reordering model.UnlockData's fields without updating
// this encoder breaks the client.
const unlocksSize = constants.AetheryteBitmaskSize +
	constants.MountBitmaskSize +
	constants.MinionBitmaskSize +
	constants.OrchestrionBitmaskSize +
	constants.TripleTriadBitmaskSize +
	constants.OrnamentBitmaskSize +
	constants.GlassesStyleBitmaskSize +
	constants.ChocoboTaxiBitmaskSize +
	constants.BuddyEquipBitmaskSize +
	constants.CaughtFishBitmaskSize +
	constants.CaughtSpearfishBitmaskSize +
	constants.AdventureBitmaskSize +
	constants.AetherCurrentBitmaskSize +
	constants.QuestBitmaskSize +
	constants.InstanceContentBitmaskSize +
	constants.CutsceneBitmaskSize +
	constants.ActiveHelpBitmaskSize +
	constants.GeneralUnlockBitmaskSize

func encodeUnlocks(w *Writer, u model.UnlockData) {
	w.Raw(u.Aetherytes[:])
	w.Raw(u.Mounts[:])
	w.Raw(u.Minions[:])
	w.Raw(u.OrchestrionRolls[:])
	w.Raw(u.TripleTriadCards[:])
	w.Raw(u.Ornaments[:])
	w.Raw(u.GlassesStyles[:])
	w.Raw(u.ChocoboTaxiStands[:])
	w.Raw(u.BuddyEquip[:])
	w.Raw(u.CaughtFish[:])
	w.Raw(u.CaughtSpearfish[:])
	w.Raw(u.Adventures[:])
	w.Raw(u.AetherCurrents[:])
	w.Raw(u.CompletedQuests[:])
	w.Raw(u.InstanceContent[:])
	w.Raw(u.CutscenesSeen[:])
	w.Raw(u.ActiveHelpSeen[:])
	w.Raw(u.GeneralUnlocks[:])
}

func decodeUnlocks(r *Reader) (model.UnlockData, error) {
	var u model.UnlockData
	fields := [][]byte{
		u.Aetherytes[:], u.Mounts[:], u.Minions[:], u.OrchestrionRolls[:],
		u.TripleTriadCards[:], u.Ornaments[:], u.GlassesStyles[:], u.ChocoboTaxiStands[:],
		u.BuddyEquip[:], u.CaughtFish[:], u.CaughtSpearfish[:], u.Adventures[:],
		u.AetherCurrents[:], u.CompletedQuests[:], u.InstanceContent[:], u.CutscenesSeen[:],
		u.ActiveHelpSeen[:], u.GeneralUnlocks[:],
	}
	for _, f := range fields {
		if err := r.Fixed(f); err != nil {
			return model.UnlockData{}, err
		}
	}
	return u, nil
}

// playerSetupSize is the declared length of the whole snapshot: identity
// and position fields, the classjob level/exp tables, current vitals, every
// unlock bitmask, and GM/party bookkeeping.
const playerSetupSize = 4 + 8 + // actor id, content id
	2 + 12 + 2 + // zone id, position, rotation
	1 + constants.ClassJobArraySize*2 + constants.ClassJobArraySize*4 + // classjob id, levels, exp
	4 + 4 + 2 + 2 + // hp curr/max, mp curr/max
	unlocksSize +
	1 + 1 + 2 + // gm rank, gm invisible, pad
	4 + 1 + 3 + 8 // display flags, client language, pad, party id

// PlayerSetup is the full persistent-state dump sent once per zone load
// (§4.4 step 2). It carries only the fields the client needs before it can
// render anything. After it, zone load sends InitZone and the player's own
// spawn; no separate inventory, unlock-announcement or quest-list messages
// are sent.
type PlayerSetup struct {
	ActorId   model.ObjectId
	ContentId model.ContentId

	ZoneId         uint16
	Position       model.Position
	RotationPacked uint16

	ClassJobId uint8
	Levels     [constants.ClassJobArraySize]uint16
	Exp        [constants.ClassJobArraySize]int32

	HPCurr, HPMax uint32
	MPCurr, MPMax uint16

	Unlocks model.UnlockData

	GMRank      uint8
	GMInvisible bool

	DisplayFlags   uint32
	ClientLanguage uint8
	PartyId        uint64
}

func (PlayerSetup) Opcode() Opcode { return OpPlayerSetup }

func (p PlayerSetup) Encode() []byte {
	w := NewWriter(playerSetupSize)
	w.U32(uint32(p.ActorId))
	w.U64(uint64(p.ContentId))
	w.U16(p.ZoneId)
	w.F32(p.Position.X)
	w.F32(p.Position.Y)
	w.F32(p.Position.Z)
	w.U16(p.RotationPacked)
	w.U8(p.ClassJobId)
	for _, lvl := range p.Levels {
		w.U16(lvl)
	}
	for _, exp := range p.Exp {
		w.U32(uint32(exp))
	}
	w.U32(p.HPCurr)
	w.U32(p.HPMax)
	w.U16(p.MPCurr)
	w.U16(p.MPMax)
	encodeUnlocks(w, p.Unlocks)
	w.U8(p.GMRank)
	w.U8(boolToU8(p.GMInvisible))
	w.Pad(2)
	w.U32(p.DisplayFlags)
	w.U8(p.ClientLanguage)
	w.Pad(3)
	w.U64(p.PartyId)
	return w.Bytes()
}

func DecodePlayerSetup(body []byte) (PlayerSetup, error) {
	r := NewReader(body)
	var p PlayerSetup
	var err error

	actorID, err := r.U32()
	if err != nil {
		return PlayerSetup{}, err
	}
	p.ActorId = model.ObjectId(actorID)
	contentID, err := r.U64()
	if err != nil {
		return PlayerSetup{}, err
	}
	p.ContentId = model.ContentId(contentID)
	if p.ZoneId, err = r.U16(); err != nil {
		return PlayerSetup{}, err
	}
	if p.Position.X, err = r.F32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.Position.Y, err = r.F32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.Position.Z, err = r.F32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.RotationPacked, err = r.U16(); err != nil {
		return PlayerSetup{}, err
	}
	if p.ClassJobId, err = r.U8(); err != nil {
		return PlayerSetup{}, err
	}
	for i := range p.Levels {
		if p.Levels[i], err = r.U16(); err != nil {
			return PlayerSetup{}, err
		}
	}
	for i := range p.Exp {
		raw, err := r.U32()
		if err != nil {
			return PlayerSetup{}, err
		}
		p.Exp[i] = int32(raw)
	}
	if p.HPCurr, err = r.U32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.HPMax, err = r.U32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.MPCurr, err = r.U16(); err != nil {
		return PlayerSetup{}, err
	}
	if p.MPMax, err = r.U16(); err != nil {
		return PlayerSetup{}, err
	}
	if p.Unlocks, err = decodeUnlocks(r); err != nil {
		return PlayerSetup{}, err
	}
	if p.GMRank, err = r.U8(); err != nil {
		return PlayerSetup{}, err
	}
	gmInvisible, err := r.U8()
	if err != nil {
		return PlayerSetup{}, err
	}
	p.GMInvisible = gmInvisible != 0
	if _, err = r.Bytes(2); err != nil {
		return PlayerSetup{}, err
	}
	if p.DisplayFlags, err = r.U32(); err != nil {
		return PlayerSetup{}, err
	}
	if p.ClientLanguage, err = r.U8(); err != nil {
		return PlayerSetup{}, err
	}
	if _, err = r.Bytes(3); err != nil {
		return PlayerSetup{}, err
	}
	if p.PartyId, err = r.U64(); err != nil {
		return PlayerSetup{}, err
	}
	return p, nil
}

// FromPlayerData builds a PlayerSetup snapshot from the authoritative
// PlayerData the connection owns.
func FromPlayerData(pd *model.PlayerData) PlayerSetup {
	return PlayerSetup{
		ActorId:        pd.ActorId,
		ContentId:      pd.ContentId,
		ZoneId:         pd.ZoneId,
		Position:       pd.Position,
		RotationPacked: model.QuantizeRotation(pd.Rotation),
		ClassJobId:     pd.ClassJobId,
		Levels:         pd.Levels,
		Exp:            pd.Exp,
		HPCurr:         pd.HPCurr,
		HPMax:          pd.HPMax,
		MPCurr:         pd.MPCurr,
		MPMax:          pd.MPMax,
		Unlocks:        pd.Unlocks,
		GMRank:         pd.GMRank,
		GMInvisible:    pd.GMInvisible,
		DisplayFlags:   pd.DisplayFlags,
		ClientLanguage: pd.ClientLanguage,
		PartyId:        pd.PartyId,
	}
}
