package content

import (
	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// defaultRespawnTicks is used for npcs without a configured timer.
const defaultRespawnTicks = 50

// Respawner despawns dead npcs and brings them back after their respawn
// timer. Driver goroutine only.
type Respawner struct {
	Events *event.Bus // optional

	world *world.World
	sched *task.Scheduler
	log   *zap.Logger
}

func NewRespawner(w *world.World, s *task.Scheduler, log *zap.Logger) *Respawner {
	return &Respawner{world: w, sched: s, log: log}
}

// Despawn removes n from the world and schedules its return. The npc is
// the task's group key, so Cancel(n) keeps it gone for good.
func (r *Respawner) Despawn(n *world.Npc) {
	if err := r.world.RemoveNpc(n); err != nil {
		r.log.Warn("NPC 移除失敗", zap.Int32("npc", n.ID), zap.Error(err))
		return
	}
	ticks := n.RespawnTicks
	if ticks <= 0 {
		ticks = defaultRespawnTicks
	}
	r.sched.Submit(task.NewFunc(ticks, func(t *task.Task) error {
		n.Revive()
		if err := r.world.AddNpc(n); err != nil {
			// Registry full: try again next countdown.
			r.log.Debug("NPC 重生延後", zap.Int32("npc", n.ID), zap.Error(err))
			return nil
		}
		t.Cancel()
		event.Emit(r.Events, event.NpcRespawned{Npc: n})
		return nil
	}, task.WithKey(n), task.WithName("respawn")))
}
