// Package app assembles the server: world, scheduler, update strategy,
// tick driver, persistence, content and network, all constructed
// explicitly and passed to whoever needs them.
package app

import (
	"fmt"
	"path/filepath"

	"github.com/google/wire"
	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/content"
	"github.com/l1jgo/tickworld/internal/core/event"
	coresys "github.com/l1jgo/tickworld/internal/core/system"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/core/tick"
	"github.com/l1jgo/tickworld/internal/core/update"
	"github.com/l1jgo/tickworld/internal/data"
	"github.com/l1jgo/tickworld/internal/handler"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/scripting"
	"github.com/l1jgo/tickworld/internal/system"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// ProviderSet lists every constructor the injector may use.
var ProviderSet = wire.NewSet(
	LoadTables,
	ProvideEvents,
	ProvideWorld,
	ProvideScheduler,
	ProvideBehaviors,
	ProvideUpdateService,
	ProvideRunner,
	ProvideDriver,
	ProvideServer,
	persist.NewAccountRepo,
	persist.NewCharacterRepo,
	ProvideSaveQueue,
	ProvideRespawner,
	ProvideCombat,
	ProvideShops,
	ProvideSpawner,
	ProvideScripting,
	ProvideDeps,
	ProvideRegistry,
	ProvideAutosave,
	ProvideApp,
	net.NewSessionStore,
)

// Tables is the static game data read from the data directory.
type Tables struct {
	Npcs   *data.NpcTable
	Spawns []data.SpawnEntry
	Shops  *data.ShopTable
}

func LoadTables(cfg *config.Config) (*Tables, error) {
	dir := cfg.Content.DataDir
	npcs, err := data.LoadNpcTable(filepath.Join(dir, "npc_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load npc table: %w", err)
	}
	spawns, err := data.LoadSpawnList(filepath.Join(dir, "spawn_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load spawn list: %w", err)
	}
	shops, err := data.LoadShopTable(filepath.Join(dir, "shop_list.yaml"))
	if err != nil {
		return nil, fmt.Errorf("load shop table: %w", err)
	}
	return &Tables{Npcs: npcs, Spawns: spawns, Shops: shops}, nil
}

func ProvideEvents(log *zap.Logger) *event.Bus {
	return event.NewBus(log)
}

func ProvideWorld(cfg *config.Config, log *zap.Logger) *world.World {
	return world.New(world.Options{
		MaxPlayers:   cfg.World.MaxPlayers,
		MaxNpcs:      cfg.World.MaxNpcs,
		ViewDistance: cfg.World.ViewDistance,
	}, log)
}

func ProvideScheduler(log *zap.Logger) *task.Scheduler {
	return task.NewScheduler(log)
}

func ProvideBehaviors(cfg *config.Config) *world.Behaviors {
	b := world.NewBehaviors()
	content.RegisterBehaviors(b, uint64(cfg.Server.StartTime))
	return b
}

func ProvideUpdateService(cfg *config.Config, w *world.World, log *zap.Logger) (update.Service, func(), error) {
	svc, err := update.New(cfg.Tick.Strategy, w, update.Options{
		Renderer:    update.NewViewRenderer(),
		Workers:     cfg.Tick.Workers,
		QueueSize:   cfg.Tick.QueueSize,
		MinParallel: cfg.Tick.MinParallel,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Warn("更新服務關閉失敗", zap.Error(err))
		}
	}
	return svc, cleanup, nil
}

func ProvideRunner() *coresys.Runner {
	return coresys.NewRunner()
}

func ProvideDriver(cfg *config.Config, runner *coresys.Runner, log *zap.Logger) *tick.Driver {
	return tick.New(cfg.Tick.Period, runner, cfg.Tick.PostQueueSize, log)
}

func ProvideServer(cfg *config.Config, log *zap.Logger) (*net.Server, func(), error) {
	srv, err := net.NewServer(cfg.Network.BindAddress, net.Options{
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		PktPerSec:    cfg.Network.PacketsPerSecond,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("listen %s: %w", cfg.Network.BindAddress, err)
	}
	return srv, srv.Shutdown, nil
}

func ProvideRespawner(w *world.World, s *task.Scheduler, bus *event.Bus, log *zap.Logger) *content.Respawner {
	r := content.NewRespawner(w, s, log)
	r.Events = bus
	return r
}

func ProvideCombat(w *world.World, s *task.Scheduler, r *content.Respawner, bus *event.Bus) *content.Combat {
	c := content.NewCombat(w, s, r)
	c.Events = bus
	return c
}

func ProvideShops(t *Tables, s *task.Scheduler) *content.Shops {
	return content.NewShops(t.Shops, s)
}

func ProvideSpawner(cfg *config.Config, w *world.World, b *world.Behaviors, t *Tables, log *zap.Logger) *content.Spawner {
	return content.NewSpawner(w, b, t.Npcs, uint64(cfg.Server.StartTime), log)
}

func ProvideScripting(cfg *config.Config, s *task.Scheduler, w *world.World, bus *event.Bus, log *zap.Logger) (*scripting.Engine, func(), error) {
	engine, err := scripting.NewEngine(cfg.Content.ScriptsDir, s, w, log)
	if err != nil {
		return nil, nil, err
	}
	engine.Subscribe(bus)
	return engine, engine.Close, nil
}

func ProvideDeps(
	cfg *config.Config,
	accounts *persist.AccountRepo,
	chars *persist.CharacterRepo,
	saves *persist.SaveQueue,
	w *world.World,
	s *task.Scheduler,
	d *tick.Driver,
	engine *scripting.Engine,
	combat *content.Combat,
	shops *content.Shops,
	bus *event.Bus,
	log *zap.Logger,
) *handler.Deps {
	deps := &handler.Deps{
		AccountRepo: accounts,
		CharRepo:    chars,
		Saves:       saves,
		Config:      cfg,
		Log:         log,
		World:       w,
		Scheduler:   s,
		Driver:      d,
		Scripting:   engine,
		Combat:      combat,
		Shops:       shops,
		Online:      handler.NewOnline(),
		Events:      bus,
	}
	w.OnEvict(deps.OnEvict)
	return deps
}

func ProvideRegistry(deps *handler.Deps, log *zap.Logger) *packet.Registry[*net.Session] {
	reg := packet.NewRegistry[*net.Session](log)
	handler.RegisterAll(reg, deps)
	return reg
}

// ProvideSaveQueue starts the single character writer. Its cleanup drains
// what is queued, so it must run after App.Shutdown.
func ProvideSaveQueue(chars *persist.CharacterRepo) (*persist.SaveQueue, func()) {
	q := persist.NewSaveQueue(chars, persist.DefaultSaveQueueSize, persist.DefaultSaveTimeout)
	return q, q.Close
}

func ProvideAutosave(w *world.World, saves *persist.SaveQueue, log *zap.Logger) *system.Autosave {
	return system.NewAutosave(w, saves, log)
}
