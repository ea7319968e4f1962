package handler

import (
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/world"
	"go.uber.org/zap"
)

// maxWalkDistance rejects destinations further than a client could have
// clicked on screen.
const maxWalkDistance = 32

// HandleWalk processes C_OPCODE_WALK.
// Format: [opcode][D x][D y][C running]
// The path is queued here and walked by the movement phase.
func HandleWalk(sess *net.Session, r *packet.Reader, deps *Deps) {
	x := r.ReadD()
	y := r.ReadD()
	running := r.ReadC() != 0

	p := deps.Online.Player(sess.ID)
	if p == nil || r.Err() != nil {
		return
	}
	p.Exclusive(func() {
		to := world.Position{X: x, Y: y, MapID: p.Pos.MapID}
		if !p.Pos.Within(to, maxWalkDistance) {
			deps.Log.Debug("移動目標過遠",
				zap.String("player", p.Name),
				zap.Int32("x", x),
				zap.Int32("y", y),
			)
			return
		}
		p.Running = running
		p.Walk.PathTo(p.Pos, to)
	})
}
