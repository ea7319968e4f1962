package handler

import (
	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/content"
	"github.com/l1jgo/tickworld/internal/core/event"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/core/tick"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/scripting"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into all packet handlers.
// Handlers run on the driver goroutine during the input phase.
type Deps struct {
	AccountRepo *persist.AccountRepo
	CharRepo    *persist.CharacterRepo
	Saves       *persist.SaveQueue
	Config      *config.Config
	Log         *zap.Logger
	World       *world.World
	Scheduler   *task.Scheduler
	Driver      *tick.Driver
	Scripting   *scripting.Engine // nil when no scripts are loaded
	Combat      *content.Combat
	Shops       *content.Shops
	Online      *Online
	Events      *event.Bus // nil disables login/logout events
}

// RegisterAll registers all packet handlers into the registry.
func RegisterAll(reg *packet.Registry[*net.Session], deps *Deps) {
	reg.Register(packet.C_OPCODE_LOGIN,
		[]packet.SessionState{packet.StateConnected},
		func(sess *net.Session, r *packet.Reader) {
			HandleLogin(sess, r, deps)
		},
	)

	inWorld := []packet.SessionState{packet.StateInWorld}

	reg.Register(packet.C_OPCODE_WALK, inWorld,
		func(sess *net.Session, r *packet.Reader) {
			HandleWalk(sess, r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_CHAT, inWorld,
		func(sess *net.Session, r *packet.Reader) {
			HandleChat(sess, r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_ATTACK, inWorld,
		func(sess *net.Session, r *packet.Reader) {
			HandleAttack(sess, r, deps)
		},
	)
	reg.Register(packet.C_OPCODE_BUY, inWorld,
		func(sess *net.Session, r *packet.Reader) {
			HandleBuy(sess, r, deps)
		},
	)

	// Quit is accepted before login too.
	reg.Register(packet.C_OPCODE_QUIT,
		[]packet.SessionState{packet.StateConnected, packet.StateInWorld},
		func(sess *net.Session, r *packet.Reader) {
			HandleQuit(sess, r, deps)
		},
	)
}

// sendMessage sends S_OPCODE_MESSAGE with a line of text.
func sendMessage(sess *net.Session, text string) {
	w := packet.NewWriterWithOpcode(packet.S_OPCODE_MESSAGE)
	w.WriteS(text)
	sess.Send(w.Bytes())
}
