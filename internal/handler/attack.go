package handler

import (
	"github.com/l1jgo/tickworld/internal/content"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

const (
	attackRange  = 1
	attackDamage = 10
)

// HandleAttack processes C_OPCODE_ATTACK.
// Format: [opcode][D npc object id]
// The hit lands content.DefaultHitDelay ticks later unless the attacker
// logs out first.
func HandleAttack(sess *net.Session, r *packet.Reader, deps *Deps) {
	targetID := r.ReadD()

	p := deps.Online.Player(sess.ID)
	if p == nil || r.Err() != nil {
		return
	}
	target, ok := deps.World.Npcs.Find(func(n *world.Npc) bool { return n.ID == targetID })
	if !ok || target.Dead {
		return
	}
	if !p.Pos.Within(target.Pos, attackRange) {
		deps.Log.Debug("攻擊目標超出範圍",
			zap.String("player", p.Name),
			zap.Int32("target", targetID),
		)
		return
	}
	deps.Combat.Attack(p, target, attackDamage, content.DefaultHitDelay)
}
