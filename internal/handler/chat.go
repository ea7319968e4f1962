package handler

import (
	"strings"
	"unicode/utf8"

	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"go.uber.org/zap"
)

const maxChatRunes = 80

// HandleChat processes C_OPCODE_CHAT.
// Format: [opcode][text\0]
// Text is shown over the speaker's head through the chat update flag.
func HandleChat(sess *net.Session, r *packet.Reader, deps *Deps) {
	text := strings.TrimSpace(r.ReadS())
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		text = string([]rune(text)[:maxChatRunes])
	}

	p := deps.Online.Player(sess.ID)
	if p == nil {
		return
	}
	deps.Log.Debug("C_Chat", zap.String("player", p.Name), zap.String("text", text))
	p.Exclusive(func() { p.Say(text) })
}
