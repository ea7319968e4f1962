package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

const loginTimeout = 5 * time.Second

// loginResult is what the auth goroutine hands back to the driver.
type loginResult struct {
	account string
	char    *persist.CharacterRow
	err     error
}

// HandleLogin processes C_OPCODE_LOGIN.
// Format: [opcode][account\0][password\0]
//
// Database work runs off the driver goroutine; the player joins the world
// through Driver.Post so the registry is only touched between ticks.
func HandleLogin(sess *net.Session, r *packet.Reader, deps *Deps) {
	if sess.Account != "" {
		return // login already in flight
	}
	account := strings.ToLower(strings.TrimSpace(r.ReadS()))
	password := r.ReadS()
	if account == "" || password == "" {
		sendLoginResult(sess, packet.LoginBadPassword, nil)
		return
	}
	if deps.World.Players.Size() >= deps.World.Players.Capacity() {
		sendLoginResult(sess, packet.LoginWorldFull, nil)
		return
	}
	if !deps.Online.Reserve(account, sess.ID) {
		sendLoginResult(sess, packet.LoginAlreadyIn, nil)
		return
	}
	sess.Account = account

	ip := sess.IP
	go func() {
		res := authenticate(deps, account, password, ip)
		if err := deps.Driver.Post(func() { enterWorld(sess, res, deps) }); err != nil {
			deps.Log.Error("登入結果無法投遞", zap.String("account", account), zap.Error(err))
			sess.Close()
		}
	}()
}

// authenticate checks the password and loads (or creates) the account's
// character. Runs on its own goroutine.
func authenticate(deps *Deps, account, password, ip string) loginResult {
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	res := loginResult{account: account}
	if _, err := deps.AccountRepo.Authenticate(ctx, account, password, ip, deps.Config.Server.AutoCreateAccounts); err != nil {
		res.err = err
		return res
	}

	char, err := deps.CharRepo.LoadByAccount(ctx, account)
	if errors.Is(err, persist.ErrNotFound) {
		char = &persist.CharacterRow{
			AccountName: account,
			Name:        account,
			X:           deps.Config.World.StartX,
			Y:           deps.Config.World.StartY,
			MapID:       deps.Config.World.StartMap,
			RunEnergy:   world.MaxRunEnergy,
		}
		err = deps.CharRepo.Create(ctx, char)
		if err == nil {
			deps.Log.Info(fmt.Sprintf("建立新角色  帳號=%s", account))
		}
	}
	if err != nil {
		res.err = fmt.Errorf("load character: %w", err)
		return res
	}
	res.char = char
	return res
}

// enterWorld runs on the driver goroutine.
func enterWorld(sess *net.Session, res loginResult, deps *Deps) {
	if sess.IsClosed() {
		deps.Online.Release(res.account, sess.ID)
		return
	}
	if res.err != nil {
		deps.Online.Release(res.account, sess.ID)
		sess.Account = ""
		code := loginCode(res.err)
		if code == packet.LoginServerError {
			deps.Log.Error("登入失敗", zap.String("account", res.account), zap.Error(res.err))
		}
		sendLoginResult(sess, code, nil)
		return
	}

	c := res.char
	p := world.NewPlayer(c.ID, c.Name, world.Position{X: c.X, Y: c.Y, MapID: c.MapID})
	p.Account = res.account
	p.SessionID = sess.ID
	p.Outbox = sess
	p.Heading = c.Heading
	p.RunEnergy = int(c.RunEnergy)
	if c.Gfx != 0 {
		p.Gfx = c.Gfx
	}
	if budget := deps.Config.Network.PacketBudget; budget > 0 {
		p.PacketBudget = budget
	}

	if err := deps.World.AddPlayer(p); err != nil {
		deps.Online.Release(res.account, sess.ID)
		sess.Account = ""
		code := packet.LoginServerError
		if errors.Is(err, world.ErrFull) {
			code = packet.LoginWorldFull
		}
		sendLoginResult(sess, code, nil)
		return
	}
	deps.Online.Bind(sess.ID, p)
	sess.SetState(packet.StateInWorld)
	sendLoginResult(sess, packet.LoginOK, p)

	deps.Log.Info(fmt.Sprintf("玩家進入世界  角色=%s  session=%d", p.Name, sess.ID))

	if deps.Scripting != nil {
		deps.Scripting.OnLogin(p)
	}
	event.Emit(deps.Events, event.PlayerEntered{Player: p})

	ip := sess.IP
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
		defer cancel()
		if err := deps.AccountRepo.SetOnline(ctx, res.account, true); err != nil {
			deps.Log.Error("設定上線狀態資料庫錯誤", zap.Error(err))
		}
		if err := deps.AccountRepo.UpdateLastActive(ctx, res.account, ip); err != nil {
			deps.Log.Error("更新最後活動時間資料庫錯誤", zap.Error(err))
		}
	}()
}

func loginCode(err error) byte {
	switch {
	case errors.Is(err, persist.ErrBadPassword), errors.Is(err, persist.ErrNotFound):
		return packet.LoginBadPassword
	case errors.Is(err, persist.ErrBanned):
		return packet.LoginBanned
	default:
		return packet.LoginServerError
	}
}

// sendLoginResult sends S_OPCODE_LOGIN_RESULT: [C code][D charID][D x][D y][H map].
// p is nil on failure.
func sendLoginResult(sess *net.Session, code byte, p *world.Player) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_LOGIN_RESULT)
	w.WriteC(code)
	if p == nil {
		w.WriteD(0)
		w.WriteD(0)
		w.WriteD(0)
		w.WriteH(0)
	} else {
		w.WriteD(p.CharID)
		w.WriteD(p.Pos.X)
		w.WriteD(p.Pos.Y)
		w.WriteH(uint16(p.Pos.MapID))
	}
	sess.Send(w.Bytes())
}
