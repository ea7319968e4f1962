package content

import (
	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/world"
)

// DefaultHitDelay is the ticks between an attack and its damage landing.
const DefaultHitDelay = 1

// Combat schedules delayed hits. Hits are keyed by the attacker so a logout
// cancels everything still in flight.
type Combat struct {
	Events *event.Bus // optional

	world   *world.World
	sched   *task.Scheduler
	respawn *Respawner
}

func NewCombat(w *world.World, s *task.Scheduler, r *Respawner) *Combat {
	return &Combat{world: w, sched: s, respawn: r}
}

// Attack queues damage on target, landing after delay ticks.
func (c *Combat) Attack(attacker *world.Player, target *world.Npc, damage int32, delay int) *task.Task {
	attacker.Exclusive(func() { attacker.Animate(1) })
	t := task.NewFunc(delay, func(t *task.Task) error {
		t.Cancel()
		if !c.world.Npcs.Contains(target) {
			return nil
		}
		var killed bool
		target.Exclusive(func() { killed = target.Damage(damage) })
		if killed {
			event.Emit(c.Events, event.NpcKilled{Npc: target, Killer: attacker})
			c.respawn.Despawn(target)
		}
		return nil
	}, task.WithKey(attacker), task.WithName("hit"))
	c.sched.Submit(t)
	return t
}
