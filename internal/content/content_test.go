package content

import (
	"testing"

	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/data"
	"github.com/l1jgo/tickworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type fixture struct {
	world *world.World
	sched *task.Scheduler
}

func newFixture() *fixture {
	return &fixture{
		world: world.New(world.Options{MaxPlayers: 4, MaxNpcs: 16}, zap.NewNop()),
		sched: task.NewScheduler(zap.NewNop()),
	}
}

func (f *fixture) ticks(n int) {
	for i := 0; i < n; i++ {
		f.sched.Sequence()
	}
}

func TestWanderStaysInsideRadius(t *testing.T) {
	f := newFixture()
	b := world.NewBehaviors()
	RegisterBehaviors(b, 7)

	n := world.NewNpc(1, "rat", world.Position{X: 50, Y: 50}, 5)
	n.WalkRadius = 2
	require.NoError(t, b.Attach(n, KindWander))
	require.NoError(t, f.world.AddNpc(n))

	moved := false
	for i := 0; i < 500; i++ {
		require.NoError(t, n.ProcessMovement(f.world))
		assert.True(t, n.Spawn.Within(n.Pos, 3), "tick %d at %+v", i, n.Pos)
		moved = moved || n.Pos != n.Spawn
	}
	assert.True(t, moved)
}

func TestPatrolLoopsOverRoute(t *testing.T) {
	f := newFixture()
	b := world.NewBehaviors()
	RegisterBehaviors(b, 1)

	n := world.NewNpc(1, "guard", world.Position{}, 5)
	n.Route = []world.Position{{X: 0}, {X: 2}}
	require.NoError(t, b.Attach(n, KindPatrol))
	require.NoError(t, f.world.AddNpc(n))

	var xs []int32
	for i := 0; i < 6; i++ {
		require.NoError(t, n.ProcessMovement(f.world))
		xs = append(xs, n.Pos.X)
	}
	assert.Equal(t, []int32{1, 2, 1, 0, 1, 2}, xs)

	lost := world.NewNpc(1, "lost", world.Position{}, 5)
	require.NoError(t, b.Attach(lost, KindPatrol))
	assert.Error(t, lost.ProcessMovement(f.world))
}

func TestSpawnerPlacesNpcsWithBehaviors(t *testing.T) {
	f := newFixture()
	b := world.NewBehaviors()
	RegisterBehaviors(b, 1)

	var tmpl struct {
		Npcs []data.NpcTemplate `yaml:"npcs"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`
npcs:
  - {npc_id: 1, name: rat, hp: 5, behavior: wander, walk_radius: 3}
`), &tmpl))
	table := tableOf(t, tmpl.Npcs)

	s := NewSpawner(f.world, b, table, 1, zap.NewNop())
	n, err := s.SpawnAll([]data.SpawnEntry{
		{NpcID: 1, X: 10, Y: 10, Count: 3, RandomX: 2, RandomY: 2},
		{NpcID: 99, Count: 1},
		{NpcID: 1, Count: 1, Behavior: KindPatrol, Patrol: []data.Waypoint{{X: 1}, {X: 3}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, f.world.Npcs.Size())

	f.world.Npcs.Each(func(n *world.Npc) bool {
		if n.AIKind == KindWander {
			assert.True(t, world.Position{X: 10, Y: 10}.Within(n.Pos, 2))
		} else {
			assert.Len(t, n.Route, 2)
		}
		return true
	})
}

func TestSpawnerRejectsUnknownBehavior(t *testing.T) {
	f := newFixture()
	table := tableOf(t, []data.NpcTemplate{{NpcID: 1, Name: "odd", Behavior: "teleporting"}})
	s := NewSpawner(f.world, world.NewBehaviors(), table, 1, zap.NewNop())
	_, err := s.SpawnAll([]data.SpawnEntry{{NpcID: 1, Count: 1}})
	assert.Error(t, err)
}

func TestKilledNpcRespawnsAfterTimer(t *testing.T) {
	f := newFixture()
	r := NewRespawner(f.world, f.sched, zap.NewNop())
	c := NewCombat(f.world, f.sched, r)

	attacker := world.NewPlayer(1, "hero", world.Position{})
	require.NoError(t, f.world.AddPlayer(attacker))
	rat := world.NewNpc(1, "rat", world.Position{X: 1}, 5)
	rat.RespawnTicks = 3
	require.NoError(t, f.world.AddNpc(rat))

	c.Attack(attacker, rat, 10, 2)
	f.ticks(1)
	assert.False(t, rat.Dead)
	f.ticks(1)
	assert.True(t, rat.Dead)
	assert.False(t, f.world.Npcs.Contains(rat))
	assert.True(t, f.sched.IsRunning(rat))

	f.ticks(2)
	assert.False(t, f.world.Npcs.Contains(rat))
	f.ticks(1)
	assert.True(t, f.world.Npcs.Contains(rat))
	assert.False(t, rat.Dead)
	assert.Equal(t, int32(5), rat.HP)

	f.ticks(1)
	assert.False(t, f.sched.IsRunning(rat))
}

func TestLogoutCancelsPendingHits(t *testing.T) {
	f := newFixture()
	c := NewCombat(f.world, f.sched, NewRespawner(f.world, f.sched, zap.NewNop()))
	attacker := world.NewPlayer(1, "hero", world.Position{})
	rat := world.NewNpc(1, "rat", world.Position{X: 1}, 5)
	require.NoError(t, f.world.AddNpc(rat))

	c.Attack(attacker, rat, 3, 2)
	c.Attack(attacker, rat, 3, 4)
	assert.Equal(t, 2, f.sched.Cancel(attacker))
	f.ticks(5)
	assert.Equal(t, int32(5), rat.HP)
}

func TestShopRestockRunsOncePerShop(t *testing.T) {
	f := newFixture()
	var file struct {
		Shops []data.Shop `yaml:"shops"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`
shops:
  - id: 1
    restock_ticks: 2
    items:
      - {item_id: 40, price: 5, max_stock: 2}
`), &file))
	shops := NewShops(shopTableOf(t, file.Shops), f.sched)

	price, err := shops.Buy(1, 40)
	require.NoError(t, err)
	assert.Equal(t, int32(5), price)
	_, err = shops.Buy(1, 40)
	require.NoError(t, err)
	_, err = shops.Buy(1, 40)
	assert.ErrorIs(t, err, ErrOutOfStock)
	_, err = shops.Buy(1, 41)
	assert.ErrorIs(t, err, ErrUnknownItem)
	_, err = shops.Buy(9, 40)
	assert.ErrorIs(t, err, ErrUnknownShop)

	assert.True(t, shops.Restocking(1))
	assert.Equal(t, 1, f.sched.Len())

	f.ticks(2)
	assert.Equal(t, int32(1), shops.Stock(1, 40))
	assert.True(t, shops.Restocking(1))
	f.ticks(2)
	assert.Equal(t, int32(2), shops.Stock(1, 40))
	assert.False(t, shops.Restocking(1))
}
