package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/world"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Key is the task group key of script-scheduled tasks. It is distinct from
// every Go-side key, so scripts can only cancel their own tasks.
type Key string

// PlayerKey is the key scripts receive for a player on login; it is
// cancelled when the player leaves.
func PlayerKey(name string) Key { return Key("player:" + name) }

// Engine wraps a single gopher-lua VM.
// Driver goroutine only: scripts run from handlers and scheduler passes.
type Engine struct {
	vm    *lua.LState
	sched *task.Scheduler
	world *world.World
	log   *zap.Logger
}

// NewEngine creates a Lua engine bound to the scheduler and world and loads
// every .lua file in scriptsDir. A missing directory is not an error.
func NewEngine(scriptsDir string, sched *task.Scheduler, w *world.World, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(2))

	e := &Engine{vm: vm, sched: sched, world: w, log: log}
	e.register()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory, in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua. Used by tests and the admin console.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) register() {
	e.vm.SetGlobal("schedule", e.vm.NewFunction(e.luaSchedule))
	e.vm.SetGlobal("cancel", e.vm.NewFunction(e.luaCancel))
	e.vm.SetGlobal("is_running", e.vm.NewFunction(e.luaIsRunning))
	e.vm.SetGlobal("say", e.vm.NewFunction(e.luaSay))
	e.vm.SetGlobal("log", e.vm.NewFunction(e.luaLog))
}

// schedule(delay, instant, key, fn) -> task id
//
// fn runs every delay ticks until it returns false or cancel(key) is called.
func (e *Engine) luaSchedule(L *lua.LState) int {
	delay := L.CheckInt(1)
	instant := L.ToBool(2)
	key := Key(L.CheckString(3))
	fn := L.CheckFunction(4)
	if delay < 0 {
		L.ArgError(1, "delay must not be negative")
		return 0
	}

	opts := []task.Option{task.WithKey(key), task.WithName("lua:" + string(key))}
	if instant {
		opts = append(opts, task.Instant())
	}
	t := task.NewFunc(delay, func(t *task.Task) error {
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			return fmt.Errorf("lua task %s: %w", key, err)
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		if ret == lua.LFalse {
			t.Cancel()
		}
		return nil
	}, opts...)
	e.sched.Submit(t)
	L.Push(lua.LString(t.ID()))
	return 1
}

// cancel(key) -> number of tasks cancelled
func (e *Engine) luaCancel(L *lua.LState) int {
	n := e.sched.Cancel(Key(L.CheckString(1)))
	L.Push(lua.LNumber(n))
	return 1
}

// is_running(key) -> bool
func (e *Engine) luaIsRunning(L *lua.LState) int {
	L.Push(lua.LBool(e.sched.IsRunning(Key(L.CheckString(1)))))
	return 1
}

// say(player_name, text) -> bool
func (e *Engine) luaSay(L *lua.LState) int {
	name, text := L.CheckString(1), L.CheckString(2)
	p, ok := e.world.Players.Find(func(p *world.Player) bool { return p.Name == name })
	if ok {
		p.Exclusive(func() { p.Say(text) })
	}
	L.Push(lua.LBool(ok))
	return 1
}

// log(msg)
func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info("lua", zap.String("msg", L.CheckString(1)))
	return 0
}

// OnLogin calls the script hook on_login(player) if one is defined.
func (e *Engine) OnLogin(p *world.Player) {
	e.callHook("on_login", e.playerTable(p))
}

// Subscribe forwards world events to the optional script hooks
// on_logout(player), on_npc_killed(npc, killer) and on_npc_respawn(npc).
func (e *Engine) Subscribe(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.PlayerLeft) {
		e.callHook("on_logout", e.playerTable(ev.Player))
	})
	event.Subscribe(bus, func(ev event.NpcKilled) {
		e.callHook("on_npc_killed", e.npcTable(ev.Npc), e.playerTable(ev.Killer))
	})
	event.Subscribe(bus, func(ev event.NpcRespawned) {
		e.callHook("on_npc_respawn", e.npcTable(ev.Npc))
	})
}

func (e *Engine) callHook(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
	}
}

func (e *Engine) playerTable(p *world.Player) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(p.Name))
	t.RawSetString("char_id", lua.LNumber(p.CharID))
	t.RawSetString("key", lua.LString(PlayerKey(p.Name)))
	t.RawSetString("x", lua.LNumber(p.Pos.X))
	t.RawSetString("y", lua.LNumber(p.Pos.Y))
	t.RawSetString("map", lua.LNumber(p.Pos.MapID))
	return t
}

func (e *Engine) npcTable(n *world.Npc) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(n.ID))
	t.RawSetString("template", lua.LNumber(n.TemplateID))
	t.RawSetString("name", lua.LString(n.Name))
	t.RawSetString("x", lua.LNumber(n.Pos.X))
	t.RawSetString("y", lua.LNumber(n.Pos.Y))
	t.RawSetString("map", lua.LNumber(n.Pos.MapID))
	return t
}

// OnLogout cancels every script task bound to the player.
func (e *Engine) OnLogout(p *world.Player) int {
	return e.sched.Cancel(PlayerKey(p.Name))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
