package handler

import (
	"errors"
	"fmt"

	"github.com/l1jgo/tickworld/internal/content"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"go.uber.org/zap"
)

// HandleBuy processes C_OPCODE_BUY.
// Format: [opcode][D shop id][D item id]
func HandleBuy(sess *net.Session, r *packet.Reader, deps *Deps) {
	shopID := r.ReadD()
	itemID := r.ReadD()

	p := deps.Online.Player(sess.ID)
	if p == nil || r.Err() != nil {
		return
	}
	price, err := deps.Shops.Buy(shopID, itemID)
	switch {
	case err == nil:
		sendMessage(sess, fmt.Sprintf("購買成功，花費 %d 金幣", price))
	case errors.Is(err, content.ErrOutOfStock):
		sendMessage(sess, "商品已售完")
	default:
		deps.Log.Debug("購買失敗", zap.String("player", p.Name), zap.Error(err))
		sendMessage(sess, "無法購買此商品")
	}
}
