package update

import (
	"github.com/l1jgo/tickworld/internal/core/gamesync"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// DefaultMinParallel is the registry size below which a phase is not worth
// fanning out.
const DefaultMinParallel = 8

// Concurrent runs movement serially, then fans each of the remaining
// phases out over a worker pool. Every phase ends at a barrier, so no
// work of phase k+1 starts before all of phase k has finished.
type Concurrent struct {
	pipeline
	pool        *Pool
	barrier     *gamesync.Barrier
	minParallel int
	failures    failureList
}

func NewConcurrent(w *world.World, opts Options, log *zap.Logger) *Concurrent {
	minParallel := opts.MinParallel
	if minParallel <= 0 {
		minParallel = DefaultMinParallel
	}
	return &Concurrent{
		pipeline:    newPipeline(w, opts, log),
		pool:        NewPool(opts.Workers, opts.QueueSize),
		barrier:     gamesync.NewBarrier(),
		minParallel: minParallel,
	}
}

func (c *Concurrent) Name() string { return "concurrent" }

// Pool exposes the worker pool for metrics.
func (c *Concurrent) Pool() *Pool { return c.pool }

func (c *Concurrent) Execute() {
	c.movement()

	runPhase(c, PhasePlayerUpdate, c.world.Players, &c.playerBuf, c.renderPlayer)
	runPhase(c, PhasePlayerReset, c.world.Players, &c.playerBuf, resetPlayer)
	runPhase(c, PhaseNpcReset, c.world.Npcs, &c.npcBuf, resetNpc)
}

func (c *Concurrent) Close() error { return c.pool.Close() }

// runPhase processes every party of reg once. Parallel units report
// failures instead of evicting; eviction happens here, after the barrier,
// on the driver goroutine.
func runPhase[T world.Entity](c *Concurrent, phase Phase, reg *world.Registry[T], buf *[]T, fn func(T) error) {
	desc := gamesync.NewSyncTask[T](phase.String(), reg, reg.Size() >= c.minParallel, *buf)
	defer func() { *buf = desc.Buffer() }()

	if !desc.Concurrent() {
		runSerial(&c.pipeline, phase, desc.Parties(), fn)
		return
	}

	c.barrier.Arm(desc.PartyCount())
	inline := 0
	for _, e := range desc.Parties() {
		queued := c.pool.Submit(func() {
			defer c.barrier.Arrive()
			if err := c.guard(phase, e, func() error { return fn(e) }); err != nil {
				c.failures.add(e, err)
			}
		})
		if !queued {
			inline++
		}
	}
	c.barrier.Wait()
	if inline > 0 {
		c.log.Debug("工作佇列已滿，改由驅動執行緒處理",
			zap.Stringer("phase", phase),
			zap.Int("inline", inline),
			zap.Int("parties", desc.PartyCount()),
		)
	}

	for _, f := range c.failures.drain() {
		c.fail(phase, f.entity, f.err)
	}
}
