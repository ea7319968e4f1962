package system

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/handler"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// Autosave periodically saves dirty players. It runs as a recurring
// scheduler task on the driver goroutine: rows are copied there and handed
// to the save queue, one batch in flight at a time. A failed batch marks
// its players dirty again so the next run retries them.
type Autosave struct {
	world *world.World
	saves *persist.SaveQueue
	log   *zap.Logger

	inflight <-chan error
	batch    []*world.Player
	started  time.Time
	saved    atomic.Int64
}

func NewAutosave(w *world.World, saves *persist.SaveQueue, log *zap.Logger) *Autosave {
	return &Autosave{world: w, saves: saves, log: log}
}

// Task builds the recurring autosave task firing every interval ticks.
func (a *Autosave) Task(interval int) *task.Task {
	return task.New(interval, a, task.WithKey(a), task.WithName("autosave"))
}

// Saved counts rows written since start.
func (a *Autosave) Saved() int64 { return a.saved.Load() }

func (a *Autosave) Execute(_ *task.Task) error {
	if a.inflight != nil {
		select {
		case err := <-a.inflight:
			a.settle(err)
		default:
			a.log.Debug("上一批存檔尚未完成，略過本次自動存檔")
			return nil
		}
	}
	players, rows := a.collect(true)
	if len(rows) == 0 {
		return nil
	}
	a.batch = players
	a.started = time.Now()
	a.inflight = a.saves.Enqueue(rows)
	return nil
}

// Flush waits for the batch in flight, if any, and records its outcome.
// Driver goroutine, or after the driver has stopped.
func (a *Autosave) Flush(ctx context.Context) error {
	if a.inflight == nil {
		return nil
	}
	err := persist.Wait(ctx, a.inflight)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.settle(err)
	return err
}

// SaveAll synchronously saves every online player. Used at shutdown, after
// the driver has stopped.
func (a *Autosave) SaveAll(ctx context.Context) error {
	// a failed autosave batch is covered by the full save below
	if err := a.Flush(ctx); ctx.Err() != nil {
		return fmt.Errorf("save all players: %w", err)
	}
	_, rows := a.collect(false)
	if len(rows) == 0 {
		return nil
	}
	if err := persist.Wait(ctx, a.saves.Enqueue(rows)); err != nil {
		return fmt.Errorf("save all players: %w", err)
	}
	a.saved.Add(int64(len(rows)))
	a.log.Info(fmt.Sprintf("關機存檔完成  玩家=%d", len(rows)))
	return nil
}

// collect snapshots players and clears their dirty flag; settle restores
// the flag if the write fails.
func (a *Autosave) collect(dirtyOnly bool) ([]*world.Player, []persist.CharacterRow) {
	var players []*world.Player
	var rows []persist.CharacterRow
	a.world.Players.Each(func(p *world.Player) bool {
		if dirtyOnly && !p.Dirty {
			return true
		}
		players = append(players, p)
		rows = append(rows, handler.SnapshotRow(p))
		p.Dirty = false
		return true
	})
	return players, rows
}

func (a *Autosave) settle(err error) {
	batch := a.batch
	a.inflight, a.batch = nil, nil
	if err != nil {
		// Players who left meanwhile were saved by their logout.
		retry := 0
		for _, p := range batch {
			if a.world.Players.Contains(p) {
				p.Dirty = true
				retry++
			}
		}
		a.log.Error("自動存檔失敗", zap.Int("players", len(batch)), zap.Int("retry", retry), zap.Error(err))
		return
	}
	a.saved.Add(int64(len(batch)))
	a.log.Debug("自動存檔完成",
		zap.Int("players", len(batch)),
		zap.Duration("elapsed", time.Since(a.started)),
	)
}
