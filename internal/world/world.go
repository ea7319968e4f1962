package world

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Default registry capacities.
const (
	DefaultMaxPlayers   = 2048
	DefaultMaxNpcs      = 8192
	DefaultViewDistance = 15
)

// EvictFunc is told about every entity the world removes because of a
// failure. cause is the error that triggered the eviction.
type EvictFunc func(e Entity, cause error)

// World owns the player and npc registries plus the npc AOI index. It is
// constructed once by the application and injected where needed.
type World struct {
	Players *Registry[*Player]
	Npcs    *Registry[*Npc]

	npcGrid      *AOIGrid
	viewDistance int32

	mu      sync.Mutex
	onEvict []EvictFunc
	evicted int
	log     *zap.Logger
}

// Options sizes a World.
type Options struct {
	MaxPlayers   int
	MaxNpcs      int
	ViewDistance int32
}

func New(opts Options, log *zap.Logger) *World {
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	if opts.MaxNpcs <= 0 {
		opts.MaxNpcs = DefaultMaxNpcs
	}
	if opts.ViewDistance <= 0 {
		opts.ViewDistance = DefaultViewDistance
	}
	return &World{
		Players:      NewRegistry[*Player]("players", opts.MaxPlayers),
		Npcs:         NewRegistry[*Npc]("npcs", opts.MaxNpcs),
		npcGrid:      NewAOIGrid(),
		viewDistance: opts.ViewDistance,
		log:          log,
	}
}

func (w *World) ViewDistance() int32 { return w.viewDistance }

// AddPlayer registers a player.
func (w *World) AddPlayer(p *Player) error {
	if _, err := w.Players.Add(p); err != nil {
		return fmt.Errorf("add player %s: %w", p.Name, err)
	}
	return nil
}

// RemovePlayer unregisters a player.
func (w *World) RemovePlayer(p *Player) error {
	if err := w.Players.Remove(p); err != nil {
		return fmt.Errorf("remove player %s: %w", p.Name, err)
	}
	return nil
}

// AddNpc registers an npc and indexes it for visibility.
func (w *World) AddNpc(n *Npc) error {
	if _, err := w.Npcs.Add(n); err != nil {
		return fmt.Errorf("add npc %d: %w", n.ID, err)
	}
	w.npcGrid.Add(n, n.Pos)
	return nil
}

// RemoveNpc unregisters an npc and drops it from the visibility index.
func (w *World) RemoveNpc(n *Npc) error {
	if err := w.Npcs.Remove(n); err != nil {
		return fmt.Errorf("remove npc %d: %w", n.ID, err)
	}
	w.npcGrid.Remove(n, n.Pos)
	return nil
}

// TeleportNpc moves a registered npc and keeps the index in sync.
func (w *World) TeleportNpc(n *Npc, to Position) {
	from := n.Pos
	n.TeleportTo(to)
	w.npcGrid.Move(n, from, to)
}

func (w *World) npcMoved(n *Npc, from Position) {
	w.npcGrid.Move(n, from, n.Pos)
}

// NpcsNear appends the npcs visible from pos to dst.
func (w *World) NpcsNear(pos Position, dst []*Npc) []*Npc {
	return w.npcGrid.Near(pos, w.viewDistance, dst)
}

// OnEvict registers a listener for failure evictions.
func (w *World) OnEvict(fn EvictFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onEvict = append(w.onEvict, fn)
}

// Evict forcibly removes an entity after an unrecoverable failure. It is
// equivalent to a disconnect or despawn and is never fatal to the tick.
func (w *World) Evict(e Entity, cause error) {
	var err error
	switch v := e.(type) {
	case *Player:
		err = w.RemovePlayer(v)
	case *Npc:
		err = w.RemoveNpc(v)
	default:
		err = fmt.Errorf("evict: unsupported entity %T", e)
	}
	if err != nil {
		w.log.Warn("實體移除失敗", zap.String("kind", e.Kind()), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.evicted++
	listeners := append([]EvictFunc(nil), w.onEvict...)
	w.mu.Unlock()

	w.log.Info("實體已強制移除",
		zap.String("kind", e.Kind()),
		zap.NamedError("cause", cause),
	)
	for _, fn := range listeners {
		fn(e, cause)
	}
}

// Evicted returns how many entities were evicted since start.
func (w *World) Evicted() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.evicted
}
