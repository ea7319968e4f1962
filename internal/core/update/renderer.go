package update

import (
	"sync/atomic"

	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/world"
)

// Renderer computes and transmits one player's view of the world.
// Render runs inside the player's exclusive region and may only mutate
// that player; everything else is read-only during the render phase.
type Renderer interface {
	Render(p *world.Player, w *world.World) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(p *world.Player, w *world.World) error

func (f RendererFunc) Render(p *world.Player, w *world.World) error { return f(p, w) }

// ViewRenderer builds the S_OPCODE_UPDATE packet:
//
//	self:    [D x][D y][H map][C teleported][flags]
//	removed: [H n] n*[D id]
//	kept:    [H n] n*([D id][D x][D y][flags])
//	added:   [H n] n*([D id][D x][D y][flags+appearance])
type ViewRenderer struct {
	dropped atomic.Int64
}

func NewViewRenderer() *ViewRenderer { return &ViewRenderer{} }

// Dropped counts updates discarded because a player's packet budget was spent.
func (r *ViewRenderer) Dropped() int64 { return r.dropped.Load() }

func (r *ViewRenderer) Render(p *world.Player, w *world.World) error {
	near := w.NpcsNear(p.Pos, nil)
	visible := near[:0]
	for _, n := range near {
		if !n.Dead {
			visible = append(visible, n)
		}
	}

	known := make(map[*world.Npc]struct{}, len(p.LocalNpcs()))
	for _, n := range p.LocalNpcs() {
		known[n] = struct{}{}
	}
	var kept, added []*world.Npc
	for _, n := range visible {
		if _, ok := known[n]; ok && !n.Teleported {
			kept = append(kept, n)
			delete(known, n)
		} else {
			added = append(added, n)
		}
	}

	pw := packet.NewWriterWithOpcode(packet.S_OPCODE_UPDATE)
	pw.WriteD(p.Pos.X)
	pw.WriteD(p.Pos.Y)
	pw.WriteH(uint16(p.Pos.MapID))
	pw.WriteC(boolByte(p.Teleported))
	world.EncodeFlags(pw, &p.Mob, 0)

	// What is left in known is out of view, dead, or teleported; the
	// latter come back in the added section.
	var removed []*world.Npc
	for _, n := range p.LocalNpcs() {
		if _, gone := known[n]; gone {
			removed = append(removed, n)
		}
	}
	pw.WriteH(uint16(len(removed)))
	for _, n := range removed {
		pw.WriteD(n.ID)
	}
	pw.WriteH(uint16(len(kept)))
	for _, n := range kept {
		writeNpc(pw, n, 0)
	}
	pw.WriteH(uint16(len(added)))
	var forced world.FlagSet
	forced = forced.With(world.FlagAppearance)
	for _, n := range added {
		writeNpc(pw, n, forced)
	}

	p.SetLocalNpcs(visible)
	data := pw.Bytes()
	p.SetRenderCache(data)
	if !p.Send(data) {
		r.dropped.Add(1)
	}
	p.Flush()
	return nil
}

func writeNpc(pw *packet.Writer, n *world.Npc, extra world.FlagSet) {
	pw.WriteD(n.ID)
	pw.WriteD(n.Pos.X)
	pw.WriteD(n.Pos.Y)
	world.EncodeFlags(pw, &n.Mob, extra)
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
