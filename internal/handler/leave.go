package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

const saveTimeout = 3 * time.Second

// Leave cleans up after a closed session: the player leaves the world,
// its tasks are cancelled and the character is saved. The save is queued
// only after the player is out of the registry, behind any autosave batch
// already queued. The account stays reserved until the save is done, so a
// fresh login cannot load the row before it is written. Driver goroutine
// only.
//
// The returned channel is closed when the save has finished; it is nil when
// the session never entered the world.
func Leave(sess *net.Session, deps *Deps) <-chan struct{} {
	p := deps.Online.Unbind(sess.ID)
	if p == nil {
		if sess.Account != "" {
			deps.Online.Release(sess.Account, sess.ID)
		}
		return nil
	}

	// An evicted player is already gone from the registry.
	if err := deps.World.RemovePlayer(p); err != nil && !errors.Is(err, world.ErrNotRegistered) {
		deps.Log.Warn("移除玩家失敗", zap.String("player", p.Name), zap.Error(err))
	}
	cancelled := deps.Scheduler.Cancel(p)
	if deps.Scripting != nil {
		cancelled += deps.Scripting.OnLogout(p)
	}
	p.Outbox = nil
	event.Emit(deps.Events, event.PlayerLeft{Player: p})

	deps.Log.Info(fmt.Sprintf("玩家離開世界  角色=%s  session=%d  取消任務=%d", p.Name, sess.ID, cancelled))

	row := SnapshotRow(p)
	saved := deps.Saves.Enqueue([]persist.CharacterRow{row})
	account, reserved, sessID := p.Account, sess.Account, sess.ID
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := <-saved; err != nil {
			deps.Log.Error("斷線存檔角色失敗", zap.String("name", row.Name), zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := deps.AccountRepo.SetOnline(ctx, account, false); err != nil {
			deps.Log.Error("設定離線狀態資料庫錯誤", zap.String("account", account), zap.Error(err))
		}
		if reserved != "" {
			deps.Online.Release(reserved, sessID)
		}
	}()
	return done
}

// OnEvict is registered as the world's eviction listener. A player's
// session is closed so the input system runs Leave on the next tick; an
// npc only loses its pending tasks.
func (d *Deps) OnEvict(e world.Entity, _ error) {
	switch v := e.(type) {
	case *world.Player:
		if c, ok := v.Outbox.(interface{ Close() }); ok {
			c.Close()
		}
	case *world.Npc:
		d.Scheduler.Cancel(v)
	}
}

// SnapshotRow copies the persisted fields of p.
func SnapshotRow(p *world.Player) persist.CharacterRow {
	return persist.CharacterRow{
		ID:          p.CharID,
		AccountName: p.Account,
		Name:        p.Name,
		X:           p.Pos.X,
		Y:           p.Pos.Y,
		MapID:       p.Pos.MapID,
		Heading:     p.Heading,
		RunEnergy:   int32(p.RunEnergy),
		Gfx:         p.Gfx,
	}
}
