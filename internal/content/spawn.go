package content

import (
	"fmt"
	"math/rand/v2"

	"github.com/l1jgo/tickworld/internal/data"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// Spawner places npcs from the spawn list into the world.
type Spawner struct {
	world     *world.World
	behaviors *world.Behaviors
	templates *data.NpcTable
	rng       *rand.Rand
	log       *zap.Logger
}

func NewSpawner(w *world.World, b *world.Behaviors, templates *data.NpcTable, seed uint64, log *zap.Logger) *Spawner {
	return &Spawner{
		world:     w,
		behaviors: b,
		templates: templates,
		rng:       rand.New(rand.NewPCG(seed, 0x5eed)),
		log:       log,
	}
}

// SpawnAll spawns every entry and returns the number of npcs placed.
// Unknown templates are skipped with a warning; a full registry stops the
// run with an error.
func (s *Spawner) SpawnAll(entries []data.SpawnEntry) (int, error) {
	count := 0
	for _, e := range entries {
		tmpl := s.templates.Get(e.NpcID)
		if tmpl == nil {
			s.log.Warn("生怪表引用不存在的 NPC", zap.Int32("npc_id", e.NpcID))
			continue
		}
		for i := 0; i < e.Count; i++ {
			n, err := s.build(tmpl, e)
			if err != nil {
				return count, err
			}
			if err := s.world.AddNpc(n); err != nil {
				return count, fmt.Errorf("spawn %s: %w", tmpl.Name, err)
			}
			count++
		}
	}
	return count, nil
}

func (s *Spawner) build(tmpl *data.NpcTemplate, e data.SpawnEntry) (*world.Npc, error) {
	pos := world.Position{X: e.X, Y: e.Y, MapID: e.MapID}
	if e.RandomX > 0 {
		pos.X += s.rng.Int32N(2*e.RandomX+1) - e.RandomX
	}
	if e.RandomY > 0 {
		pos.Y += s.rng.Int32N(2*e.RandomY+1) - e.RandomY
	}

	n := world.NewNpc(tmpl.NpcID, tmpl.Name, pos, tmpl.HP)
	n.Gfx = tmpl.GfxID
	n.WalkRadius = tmpl.WalkRadius
	n.RespawnTicks = tmpl.RespawnTicks
	for _, wp := range e.Patrol {
		n.Route = append(n.Route, world.Position{X: wp.X, Y: wp.Y, MapID: e.MapID})
	}

	kind := tmpl.Behavior
	if e.Behavior != "" {
		kind = e.Behavior
	}
	if err := s.behaviors.Attach(n, kind); err != nil {
		return nil, fmt.Errorf("spawn %s: %w", tmpl.Name, err)
	}
	return n, nil
}
