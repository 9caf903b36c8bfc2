package globalserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/action"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/zone"
)

// tick drains every instance's due tasks (§4.5 "fixed cadence... drains
// tasks whose due_at <= now"). There is no per-actor simulation step; only
// the task queue and each instance's Director broadcasts are drained.
func (s *Server) tick(now time.Time) {
	for _, in := range s.instances {
		for _, t := range in.PopDue(now) {
			switch t.Kind {
			case zone.TaskCastAction:
				s.resolveCast(in, t)
			case zone.TaskCastEvent:
				s.resolveEventCast(in, t)
			case zone.TaskDeadFadeOut:
				s.removeActor(t.ActorId)
			}
		}
		if d, ok := s.directors[in.Id]; ok {
			s.flushDirector(d)
		}
	}
}

// resolveCast runs step 4-7 of the action pipeline for a cast whose timer
// just expired (§4.6).
func (s *Server) resolveCast(in *zone.Instance, t zone.Task) {
	req := ipc.ActionRequest{ActionKey: t.ActionKey, TargetId: t.TargetId, Kind: t.ActionKind}

	res, err := s.pipeline.Resolve(context.Background(), req, t.ActorId)
	if err != nil {
		s.log.Warn("action: resolve failed", zap.Uint32("action_key", t.ActionKey), zap.Error(err))
		return
	}

	defaultTarget := t.TargetId
	if defaultTarget == 0 {
		defaultTarget = t.ActorId
	}
	changed := action.ApplyOutcome(in, t.ActorId, defaultTarget, res.Effects)

	// Direct damage interrupts a target's own pending cast if it was
	// enqueued interruptible (§4.6 step 3).
	for target := range changed {
		if target != t.ActorId && in.CancelInterruptibleCasts(target) {
			s.sendToActor(target, ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryCancelCast)})
		}
	}

	result := action.BuildActionResult(t.ActionKey, t.ActorId, defaultTarget, 0, 0, false, res.Effects)
	s.broadcastToObservers(in, 0, ActionResultMsg{Payload: result})

	if changed[defaultTarget] {
		if target, ok := in.Actor(defaultTarget); ok {
			effectResult := action.BuildEffectResult(defaultTarget, target.Spawn.HPCurr, target.Spawn.MPCurr, 0, res.Effects)
			s.sendToActor(defaultTarget, EffectResultMsg{Payload: effectResult})
			s.sendToActor(defaultTarget, UpdateHpMpTpMsg{Payload: ipc.UpdateHpMpTp{
				ActorId: defaultTarget,
				HP:      target.Spawn.HPCurr,
				MP:      target.Spawn.MPCurr,
			}})
			if !target.IsAlive() {
				s.onKill(defaultTarget)
			}
		}
	}

	s.deliverTasks(t.ActorId, res.Tasks)
}

func (s *Server) resolveEventCast(in *zone.Instance, t zone.Task) {
	d, ok := s.directors[in.Id]
	if !ok {
		return
	}
	tasks, err := d.EventActionCast(s.host, t.ActorId, t.TargetId)
	if err != nil {
		s.log.Warn("director: event action cast failed", zap.Error(err))
	}
	s.deliverTasks(t.ActorId, tasks)
	s.flushDirector(d)
}

// deliverTasks hands a hook's queued script.Task list to the actor's own
// connection to interpret (§4.9 step 2: task processing, including the
// FinishEvent re-entrancy rule, is the connection's job, not the Global
// server's). Kill and SetHP/SetMP are applied here and not forwarded, so the
// broadcasts they produce stay consistent with the actor table; the
// director-scoped kinds (event-object, director-var, duty and gimmick tasks)
// go to applyDirectorTask and are not forwarded either. ChangeWeather is
// applied and broadcast here and then forwarded as well; every other kind
// is forwarded untouched.
func (s *Server) deliverTasks(actorId model.ObjectId, tasks []script.Task) {
	if len(tasks) == 0 {
		return
	}
	var forward []script.Task
	for _, task := range tasks {
		switch task.Kind {
		case script.TaskKill:
			s.onKill(actorId)
		case script.TaskSetHP:
			s.onSetHP(actorId, task.HP)
		case script.TaskSetMP:
			s.onSetMP(actorId, task.MP)
		case script.TaskChangeWeather:
			if in := s.instanceFor(actorId); in != nil {
				in.Weather = uint16(task.Id)
				s.broadcastToObservers(in, 0, ChangeZoneMsg{ZoneId: in.ZoneId, WeatherId: in.Weather})
			}
			forward = append(forward, task)
		case script.TaskHideEObj, script.TaskShowEObj, script.TaskSpawnEObj, script.TaskDeleteEObj,
			script.TaskSetDirectorVar, script.TaskAbandonDuty, script.TaskDirectorEventAction,
			script.TaskFinishGimmick, script.TaskDirectorLogMessage:
			s.applyDirectorTask(actorId, task)
		default:
			forward = append(forward, task)
		}
	}
	if len(forward) > 0 {
		s.sendToActor(actorId, NewTasksMsg{Tasks: forward})
	}
}
