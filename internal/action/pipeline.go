// Package action implements the request/cast/resolve state machine that
// turns a client's ActionRequest into a deterministic effect list (§4.6).
// It is grounded on la2go's internal/ai "skill cast" handling for the
// enqueue/interrupt/resolve shape, generalized to dispatch through the
// script host instead of Go-native formulas, per this spec's Non-goal
// that damage formulas are opaque and owned by scripts.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/zone"
)

// Pipeline resolves ActionRequests against a game-data store and a script
// host. It holds no per-request state; the instance's task queue is the
// only durable state a cast has between enqueue and resolution (§4.6).
type Pipeline struct {
	Data gamedata.Store
	Host *script.Host
}

// New returns a Pipeline wired to its collaborators.
func New(data gamedata.Store, host *script.Host) *Pipeline {
	return &Pipeline{Data: data, Host: host}
}

// Enqueue looks up the action's cast time and appends a CastAction task to
// in, due at now+cast_time (§4.6 steps 1-2). It returns the resolved
// interruptible flag so the caller can also reply with a cast-bar message
// if it wants to (out of scope here; this package only owns resolution).
func (p *Pipeline) Enqueue(ctx context.Context, in *zone.Instance, now time.Time, casterId model.ObjectId, req ipc.ActionRequest) (interruptible bool, err error) {
	info, ok := p.Data.Action(ctx, req.ActionKey)
	if !ok {
		return false, fmt.Errorf("action: unknown action key %d", req.ActionKey)
	}
	d := time.Duration(info.CastTimeCs) * 10 * time.Millisecond
	interruptible = d > 0
	in.Enqueue(zone.Task{
		Kind:          zone.TaskCastAction,
		DueAt:         now.Add(d),
		ActorId:       casterId,
		TargetId:      req.TargetId,
		ActionKey:     req.ActionKey,
		ActionKind:    req.Kind,
		Interruptible: interruptible,
	})
	return interruptible, nil
}

// CancelCast removes a pending cast for casterId, reporting whether one was
// actually cancelled (§4.6 step 3, §8 "cast idempotence": cancelling an
// already-resolved cast is a no-op because the task is already gone).
func (p *Pipeline) CancelCast(in *zone.Instance, casterId model.ObjectId) bool {
	return in.CancelCastsFor(casterId)
}

// Resolution is the outcome of resolving one CastAction task: the effect
// list to apply plus, for Item actions, the item consumed (so the caller
// can decrement inventory).
type Resolution struct {
	ActionKey uint32
	Effects   []model.Effect
	Tasks     []script.Task
}

// Resolve evaluates req according to its Kind (§4.6 step 4): Normal invokes
// the action's bound script, Item dispatches through the item table first,
// Mount synthesises an EffectMount without scripting, Nothing is a no-op.
func (p *Pipeline) Resolve(ctx context.Context, req ipc.ActionRequest, casterId model.ObjectId) (Resolution, error) {
	switch req.Kind {
	case ipc.ActionNothing:
		return Resolution{ActionKey: req.ActionKey}, nil

	case ipc.ActionMount:
		return Resolution{
			ActionKey: req.ActionKey,
			Effects:   []model.Effect{{Kind: model.EffectMount, MountId: req.ActionKey}},
		}, nil

	case ipc.ActionNormal:
		info, ok := p.Data.Action(ctx, req.ActionKey)
		if !ok || info.ScriptName == "" {
			return Resolution{ActionKey: req.ActionKey}, nil
		}
		effects, tasks, err := p.Host.DoAction(info.ScriptName, casterId)
		if err != nil {
			// ScriptError: logged by the host, hook treated as no-op (§7).
			return Resolution{ActionKey: req.ActionKey}, nil
		}
		return Resolution{ActionKey: req.ActionKey, Effects: effects, Tasks: tasks}, nil

	case ipc.ActionItem:
		itemId := req.ActionKey
		ia, ok := p.Data.ItemAction(ctx, itemId)
		if !ok {
			return Resolution{ActionKey: req.ActionKey}, nil
		}
		scriptName, arg, dispatchTasks, err := p.Host.DispatchItem(casterId, req.TargetId, itemId, ia.ActionType, ia.ActionData, ia.AdditionalData)
		if err != nil || scriptName == "" {
			return Resolution{ActionKey: req.ActionKey, Tasks: dispatchTasks}, nil
		}
		effects, tasks, err := p.Host.RunEventScript(scriptName, casterId, req.TargetId, arg)
		if err != nil {
			return Resolution{ActionKey: req.ActionKey, Tasks: dispatchTasks}, nil
		}
		return Resolution{ActionKey: req.ActionKey, Effects: effects, Tasks: append(dispatchTasks, tasks...)}, nil

	default:
		return Resolution{ActionKey: req.ActionKey}, nil
	}
}

// ApplyOutcome applies a Resolution's effect list to the instance's actor
// table (§4.6 step 5): damage decrements HP saturating at zero, GainEffect
// writes into the 30-slot status ring, LoseEffect clears a slot. It returns
// the set of target ids that took a Damage effect, whether or not their HP
// moved, so the caller knows who needs an UpdateHpMpTp broadcast (§4.6 step 6).
func ApplyOutcome(in *zone.Instance, casterId model.ObjectId, defaultTarget model.ObjectId, effects []model.Effect) (changedHP map[model.ObjectId]bool) {
	changedHP = make(map[model.ObjectId]bool)
	for _, eff := range effects {
		targetId := eff.TargetId
		if targetId == 0 {
			targetId = defaultTarget
		}
		target, ok := in.Actor(targetId)
		if !ok {
			continue // dropped: target in a different instance or already gone (§4.6 "effects... dropped with a warning")
		}
		switch eff.Kind {
		case model.EffectDamage:
			target.ApplyDamage(eff.Amount)
			changedHP[targetId] = true
		case model.EffectGainEffect:
			src := eff.Source
			if src == 0 {
				src = casterId
			}
			target.GainStatusEffect(model.StatusEffect{
				EffectId: eff.EffectId,
				Param:    eff.Param,
				Duration: eff.Duration,
				SourceId: src,
			})
		case model.EffectLoseEffect:
			target.LoseStatusEffect(eff.EffectId)
		case model.EffectMount:
			// Mount application is a display-flag concern owned by the
			// caller's CommonSpawn update, not this package.
		}
	}
	return changedHP
}

// BuildActionResult packs up to MaxActionResultEffects effects into the
// broadcast ActionResult payload (§4.6 step 6).
func BuildActionResult(actionId uint32, casterId, targetId model.ObjectId, animLock uint16, rotation uint16, hidden bool, effects []model.Effect) ipc.ActionResult {
	var out ipc.ActionResult
	out.ActionId = actionId
	out.CasterId = casterId
	out.TargetId = targetId
	out.AnimationLock = animLock
	out.RotationPacked = rotation
	out.HiddenAnimation = hidden
	for i := 0; i < len(effects) && i < ipc.MaxActionResultEffects; i++ {
		out.Effects[i] = toEffectEntry(effects[i])
	}
	return out
}

// BuildEffectResult packs up to MaxEffectResultEffects effects plus the
// target's post-action HP/MP/shield for the target's owning connection
// (§4.6 step 6).
func BuildEffectResult(targetId model.ObjectId, hp uint32, mp uint16, shield uint16, effects []model.Effect) ipc.EffectResult {
	var out ipc.EffectResult
	out.TargetId = targetId
	out.HPCurr = hp
	out.MPCurr = mp
	out.Shield = shield
	for i := 0; i < len(effects) && i < ipc.MaxEffectResultEffects; i++ {
		out.Effects[i] = toEffectEntry(effects[i])
	}
	return out
}

func toEffectEntry(e model.Effect) ipc.EffectEntry {
	switch e.Kind {
	case model.EffectDamage:
		return ipc.EffectEntry{Kind: ipc.EffectDamage, Amount: e.Amount, Source: e.Source}
	case model.EffectGainEffect:
		return ipc.EffectEntry{Kind: ipc.EffectGainEffect, EffectId: e.EffectId, Param: e.Param, Duration: e.Duration, Source: e.Source}
	default:
		return ipc.EffectEntry{Kind: ipc.EffectNone}
	}
}
