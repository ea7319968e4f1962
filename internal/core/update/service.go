// Package update runs the per-tick entity pipeline: movement, player
// render, player reset and npc reset, strictly in that order.
package update

import (
	"fmt"
	"strings"

	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// Phase is one ordered stage of the entity pipeline.
type Phase int

const (
	PhaseMovement     Phase = iota // players then npcs, always serial
	PhasePlayerUpdate              // render + transmit each player's view
	PhasePlayerReset               // clear per-tick player state
	PhaseNpcReset                  // clear per-tick npc state
)

func (p Phase) String() string {
	switch p {
	case PhaseMovement:
		return "movement"
	case PhasePlayerUpdate:
		return "player-update"
	case PhasePlayerReset:
		return "player-reset"
	case PhaseNpcReset:
		return "npc-reset"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Service executes one full pipeline per call. Sequential and Concurrent
// are interchangeable.
type Service interface {
	Name() string
	Execute()
	Close() error
}

// TraceFunc observes every entity visit. It runs inside the entity's
// exclusive region; a panic in it counts as that entity's failure.
type TraceFunc func(phase Phase, e world.Entity)

// Options configures either strategy.
type Options struct {
	Renderer Renderer
	Trace    TraceFunc

	// Concurrent strategy only.
	Workers     int // 0 = runtime.NumCPU()
	QueueSize   int // 0 = 4 per worker
	MinParallel int // registries smaller than this run serially
}

// New builds the strategy named by kind: "sequential" or "concurrent".
func New(kind string, w *world.World, opts Options, log *zap.Logger) (Service, error) {
	switch strings.ToLower(kind) {
	case "sequential", "serial":
		return NewSequential(w, opts, log), nil
	case "concurrent", "parallel", "":
		return NewConcurrent(w, opts, log), nil
	default:
		return nil, fmt.Errorf("unknown update strategy %q", kind)
	}
}
