// Package content is the game layer built on the scheduler: npc behaviors,
// spawning, respawn timers, delayed combat hits and shop restocking.
package content

import (
	"fmt"
	"math/rand/v2"

	"github.com/l1jgo/tickworld/internal/world"
)

const (
	KindStationary = "stationary"
	KindWander     = "wander"
	KindPatrol     = "patrol"
)

// RegisterBehaviors installs the built-in behavior kinds. seed makes wander
// paths reproducible per npc.
func RegisterBehaviors(b *world.Behaviors, seed uint64) {
	b.Register(KindStationary, func(*world.Npc) world.Behavior { return stationary{} })
	b.Register(KindWander, func(n *world.Npc) world.Behavior {
		return &wander{rng: rand.New(rand.NewPCG(seed, uint64(uint32(n.ID))))}
	})
	b.Register(KindPatrol, func(n *world.Npc) world.Behavior { return &patrol{} })
}

type stationary struct{}

func (stationary) Step(*world.Npc, *world.World) error { return nil }

// wander takes an occasional random step, staying within WalkRadius of the
// spawn point.
type wander struct {
	rng *rand.Rand
}

func (b *wander) Step(n *world.Npc, _ *world.World) error {
	if b.rng.IntN(4) != 0 {
		return nil
	}
	dx := int32(b.rng.IntN(3) - 1)
	dy := int32(b.rng.IntN(3) - 1)
	if dx == 0 && dy == 0 {
		return nil
	}
	if n.WalkRadius > 0 && !n.Spawn.Within(n.Pos.Step(dx, dy), n.WalkRadius) {
		dx, dy = towards(n.Pos.X, n.Spawn.X), towards(n.Pos.Y, n.Spawn.Y)
		if dx == 0 && dy == 0 {
			return nil
		}
	}
	n.Walk.Add(world.Step{DX: dx, DY: dy})
	return nil
}

// patrol walks Route in a loop.
type patrol struct {
	next int
}

func (b *patrol) Step(n *world.Npc, _ *world.World) error {
	if len(n.Route) == 0 {
		return fmt.Errorf("npc %d: patrol without route", n.ID)
	}
	if b.next >= len(n.Route) {
		b.next = 0
	}
	target := n.Route[b.next]
	if n.Pos == target {
		b.next = (b.next + 1) % len(n.Route)
		target = n.Route[b.next]
	}
	n.Walk.PathTo(n.Pos, target)
	return nil
}

func towards(from, to int32) int32 {
	switch {
	case to > from:
		return 1
	case to < from:
		return -1
	}
	return 0
}
