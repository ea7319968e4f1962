package update

import (
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// Sequential runs every phase on the calling goroutine. Phase ordering
// follows from program order.
type Sequential struct {
	pipeline
}

func NewSequential(w *world.World, opts Options, log *zap.Logger) *Sequential {
	return &Sequential{pipeline: newPipeline(w, opts, log)}
}

func (s *Sequential) Name() string { return "sequential" }

func (s *Sequential) Execute() {
	s.movement()

	s.playerBuf = s.world.Players.Snapshot(s.playerBuf[:0])
	runSerial(&s.pipeline, PhasePlayerUpdate, s.playerBuf, s.renderPlayer)

	s.playerBuf = s.world.Players.Snapshot(s.playerBuf[:0])
	runSerial(&s.pipeline, PhasePlayerReset, s.playerBuf, resetPlayer)
	clear(s.playerBuf)

	s.npcBuf = s.world.Npcs.Snapshot(s.npcBuf[:0])
	runSerial(&s.pipeline, PhaseNpcReset, s.npcBuf, resetNpc)
	clear(s.npcBuf)
}

func (s *Sequential) Close() error { return nil }
