package update

import (
	"fmt"
	"sync"

	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// pipeline is the part shared by both strategies: the serial movement
// phase, the containment guard and failure eviction.
type pipeline struct {
	world    *world.World
	renderer Renderer
	trace    TraceFunc
	log      *zap.Logger

	playerBuf []*world.Player
	npcBuf    []*world.Npc
}

func newPipeline(w *world.World, opts Options, log *zap.Logger) pipeline {
	r := opts.Renderer
	if r == nil {
		r = NewViewRenderer()
	}
	return pipeline{
		world:     w,
		renderer:  r,
		trace:     opts.Trace,
		log:       log,
		playerBuf: make([]*world.Player, 0, w.Players.Capacity()),
		npcBuf:    make([]*world.Npc, 0, w.Npcs.Capacity()),
	}
}

// movement resolves steps for every player then every npc, on the caller.
// A failing entity is evicted immediately and the walk continues.
func (p *pipeline) movement() {
	p.playerBuf = p.world.Players.Snapshot(p.playerBuf[:0])
	for _, pl := range p.playerBuf {
		if err := p.guard(PhaseMovement, pl, func() error {
			pl.ProcessMovement()
			return nil
		}); err != nil {
			p.fail(PhaseMovement, pl, err)
		}
	}
	clear(p.playerBuf)

	p.npcBuf = p.world.Npcs.Snapshot(p.npcBuf[:0])
	for _, n := range p.npcBuf {
		if err := p.guard(PhaseMovement, n, func() error {
			return n.ProcessMovement(p.world)
		}); err != nil {
			p.fail(PhaseMovement, n, err)
		}
	}
	clear(p.npcBuf)
}

func (p *pipeline) renderPlayer(pl *world.Player) error {
	return p.renderer.Render(pl, p.world)
}

func resetPlayer(pl *world.Player) error {
	pl.ResetTick()
	return nil
}

func resetNpc(n *world.Npc) error {
	n.ResetTick()
	return nil
}

// guard runs fn inside e's exclusive region and turns a panic into an error.
func (p *pipeline) guard(phase Phase, e world.Entity, fn func() error) (err error) {
	e.Lock()
	defer e.Unlock()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panic: %v", phase, rec)
		}
	}()
	if p.trace != nil {
		p.trace(phase, e)
	}
	return fn()
}

// fail logs an entity failure and evicts the entity. Driver goroutine only.
func (p *pipeline) fail(phase Phase, e world.Entity, err error) {
	p.log.Error("實體更新失敗",
		zap.Stringer("phase", phase),
		zap.String("kind", e.Kind()),
		zap.Int("slot", e.Index()),
		zap.Error(err),
	)
	p.world.Evict(e, err)
}

// failure is one entity that failed inside a parallel phase.
type failure struct {
	entity world.Entity
	err    error
}

// failureList collects failures reported by workers; the driver evicts
// them once the phase barrier has been passed.
type failureList struct {
	mu    sync.Mutex
	items []failure
}

func (f *failureList) add(e world.Entity, err error) {
	f.mu.Lock()
	f.items = append(f.items, failure{entity: e, err: err})
	f.mu.Unlock()
}

func (f *failureList) drain() []failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items
	f.items = nil
	return items
}

// runSerial runs one phase over the registry on the caller.
func runSerial[T world.Entity](p *pipeline, phase Phase, parties []T, fn func(T) error) {
	for _, e := range parties {
		if err := p.guard(phase, e, func() error { return fn(e) }); err != nil {
			p.fail(phase, e, err)
		}
	}
}
