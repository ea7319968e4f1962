package handler

import (
	"fmt"

	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
)

// HandleQuit processes C_OPCODE_QUIT.
// Only closes the session; the input system runs Leave on the next tick.
func HandleQuit(sess *net.Session, _ *packet.Reader, deps *Deps) {
	deps.Log.Info(fmt.Sprintf("玩家登出  session=%d  帳號=%s", sess.ID, sess.Account))
	sess.Close()
}
