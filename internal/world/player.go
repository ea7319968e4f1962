package world

// Outbox receives encoded packets for a player. Implemented by net.Session.
type Outbox interface {
	Send(data []byte)
}

// Flusher is implemented by outboxes that buffer until told to write.
type Flusher interface {
	FlushOutput()
}

// DefaultPacketBudget is the number of packets a player may be sent per tick.
const DefaultPacketBudget = 64

// MaxRunEnergy is a full run bar; running drains one point per extra step.
const MaxRunEnergy = 10000

// Player is an interactive, session-backed entity.
type Player struct {
	Mob

	CharID    int32 // DB id
	Account   string
	Name      string
	SessionID uint64
	Outbox    Outbox

	Running      bool
	RunEnergy    int
	PacketBudget int

	// Dirty is set whenever persisted state changes; autosave clears it.
	Dirty bool

	// Render state, owned by the player's update worker.
	localNpcs   []*Npc
	renderCache []byte
	packetsSent int
}

// NewPlayer builds a detached player at pos.
func NewPlayer(charID int32, name string, pos Position) *Player {
	p := &Player{
		CharID:       charID,
		Name:         name,
		RunEnergy:    MaxRunEnergy,
		PacketBudget: DefaultPacketBudget,
	}
	p.Pos = pos
	p.LastPos = pos
	p.Title = name
	p.Flag(FlagAppearance)
	return p
}

func (p *Player) Kind() string { return "player" }

func (p *Player) String() string { return "player(" + p.Name + ")" }

// ProcessMovement consumes this tick's steps: one when walking, two when
// running with energy left.
func (p *Player) ProcessMovement() {
	steps := 1
	if p.Running && p.RunEnergy > 0 {
		steps = 2
	}
	if taken := p.advance(steps); taken > 0 {
		if taken == 2 {
			p.RunEnergy--
		}
		p.Dirty = true
	}
}

// Send transmits data if the per-tick packet budget allows it.
func (p *Player) Send(data []byte) bool {
	if p.Outbox == nil || p.packetsSent >= p.PacketBudget {
		return false
	}
	p.packetsSent++
	p.Outbox.Send(data)
	return true
}

// Flush pushes buffered packets to the client, if the outbox buffers.
func (p *Player) Flush() {
	if f, ok := p.Outbox.(Flusher); ok {
		f.FlushOutput()
	}
}

// LocalNpcs returns the npcs the player's client currently knows about.
func (p *Player) LocalNpcs() []*Npc { return p.localNpcs }

// SetLocalNpcs replaces the known npc list; used by the render pass.
func (p *Player) SetLocalNpcs(npcs []*Npc) { p.localNpcs = npcs }

// RenderCache is the update packet built this tick, nil after reset.
func (p *Player) RenderCache() []byte { return p.renderCache }

func (p *Player) SetRenderCache(b []byte) { p.renderCache = b }

func (p *Player) PacketsSent() int { return p.packetsSent }

// ResetTick clears the per-tick render cache, packet counter and flags.
func (p *Player) ResetTick() {
	p.resetTransient()
	p.renderCache = nil
	p.packetsSent = 0
}
