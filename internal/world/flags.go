package world

import "github.com/l1jgo/tickworld/internal/net/packet"

// UpdateFlag names one update block a mob can carry in a tick.
type UpdateFlag uint8

const (
	FlagAppearance UpdateFlag = iota
	FlagChat
	FlagAnimation
	FlagHit
	FlagFacing
	numFlags
)

// FlagSet is a bit set of pending update blocks.
type FlagSet uint16

func (s FlagSet) With(f UpdateFlag) FlagSet { return s | 1<<f }
func (s FlagSet) Has(f UpdateFlag) bool     { return s&(1<<f) != 0 }
func (s FlagSet) Empty() bool               { return s == 0 }

// flagBlock is the per-variant encoder of an update block. Blocks are
// written in declaration order after the mask.
type flagBlock struct {
	name   string
	encode func(w *packet.Writer, m *Mob)
}

var flagBlocks = [numFlags]flagBlock{
	FlagAppearance: {"appearance", func(w *packet.Writer, m *Mob) {
		w.WriteD(m.Gfx)
		w.WriteS(m.Title)
	}},
	FlagChat: {"chat", func(w *packet.Writer, m *Mob) {
		w.WriteS(m.ForcedChat)
	}},
	FlagAnimation: {"animation", func(w *packet.Writer, m *Mob) {
		w.WriteD(m.Animation)
	}},
	FlagHit: {"hit", func(w *packet.Writer, m *Mob) {
		w.WriteC(byte(len(m.Hits)))
		for _, h := range m.Hits {
			w.WriteD(h.Damage)
			w.WriteC(h.Type)
		}
	}},
	FlagFacing: {"facing", func(w *packet.Writer, m *Mob) {
		w.WriteC(byte(m.Heading))
	}},
}

func (f UpdateFlag) String() string {
	if f < numFlags {
		return flagBlocks[f].name
	}
	return "unknown"
}

// EncodeFlags writes the flag mask followed by each pending block.
// extra is OR-ed into the mask (used to force appearance for new viewers).
func EncodeFlags(w *packet.Writer, m *Mob, extra FlagSet) {
	set := m.flags | extra
	w.WriteH(uint16(set))
	for f := UpdateFlag(0); f < numFlags; f++ {
		if set.Has(f) {
			flagBlocks[f].encode(w, m)
		}
	}
}
