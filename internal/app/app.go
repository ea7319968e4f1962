package app

import (
	"context"

	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/content"
	"github.com/l1jgo/tickworld/internal/core/event"
	coresys "github.com/l1jgo/tickworld/internal/core/system"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/core/tick"
	"github.com/l1jgo/tickworld/internal/core/update"
	"github.com/l1jgo/tickworld/internal/handler"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/scripting"
	"github.com/l1jgo/tickworld/internal/system"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// App is the application context. Everything the game loop touches hangs
// off it; nothing is reachable through package globals.
type App struct {
	Config    *config.Config
	Events    *event.Bus
	World     *world.World
	Scheduler *task.Scheduler
	Update    update.Service
	Runner    *coresys.Runner
	Driver    *tick.Driver
	Server    *net.Server
	Sessions  *net.SessionStore
	Registry  *packet.Registry[*net.Session]
	Deps      *handler.Deps
	Autosave  *system.Autosave
	Scripting *scripting.Engine
	Spawner   *content.Spawner
	Tables    *Tables
	Input     *system.InputSystem

	log *zap.Logger
}

// ProvideApp registers the tick systems in phase order and starts the
// recurring autosave task.
func ProvideApp(
	cfg *config.Config,
	bus *event.Bus,
	w *world.World,
	sched *task.Scheduler,
	svc update.Service,
	runner *coresys.Runner,
	driver *tick.Driver,
	server *net.Server,
	store *net.SessionStore,
	reg *packet.Registry[*net.Session],
	deps *handler.Deps,
	autosave *system.Autosave,
	engine *scripting.Engine,
	spawner *content.Spawner,
	tables *Tables,
	log *zap.Logger,
) *App {
	input := system.NewInputSystem(server, reg, store, deps, cfg.Network.MaxPacketsPerTick, log)
	runner.Register(system.NewEventSystem(bus))
	runner.Register(input)
	runner.Register(system.NewEntitySystem(svc))
	runner.Register(system.NewTaskSystem(sched))

	if cfg.Content.AutosaveTicks > 0 {
		sched.Submit(autosave.Task(cfg.Content.AutosaveTicks))
	}

	return &App{
		Config:    cfg,
		Events:    bus,
		World:     w,
		Scheduler: sched,
		Update:    svc,
		Runner:    runner,
		Driver:    driver,
		Server:    server,
		Sessions:  store,
		Registry:  reg,
		Deps:      deps,
		Autosave:  autosave,
		Scripting: engine,
		Spawner:   spawner,
		Tables:    tables,
		Input:     input,
		log:       log,
	}
}

// Populate spawns the npcs of the spawn list.
func (a *App) Populate() (int, error) {
	return a.Spawner.SpawnAll(a.Tables.Spawns)
}

// Run accepts connections and drives ticks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	go a.Server.AcceptLoop()
	return a.Driver.Run(ctx)
}

// Shutdown stops the network, saves every online player and cancels all
// tasks. Call only after Run has returned; the cleanup returned by Build
// releases the worker pool and Lua VM afterwards.
func (a *App) Shutdown(ctx context.Context) error {
	a.Server.Shutdown()
	a.Sessions.Each(func(sess *net.Session) {
		sess.Close()
	})
	err := a.Autosave.SaveAll(ctx)
	a.Scheduler.CancelAll()
	return err
}
