package world

import (
	"sync"
)

// Position is a tile coordinate on one map.
type Position struct {
	X     int32
	Y     int32
	MapID int16
}

// Chebyshev returns the tile distance to o, or -1 when on another map.
func (p Position) Chebyshev(o Position) int32 {
	if p.MapID != o.MapID {
		return -1
	}
	return max(abs32(p.X-o.X), abs32(p.Y-o.Y))
}

// Within reports whether o is on the same map and at most dist tiles away.
func (p Position) Within(o Position, dist int32) bool {
	d := p.Chebyshev(o)
	return d >= 0 && d <= dist
}

// Step returns the position one step in direction (dx, dy).
func (p Position) Step(dx, dy int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, MapID: p.MapID}
}

func abs32(n int32) int32 {
	if n < 0 {
		return -n
	}
	return n
}

// Heading tables: 0=N, then clockwise.
var (
	headingDX = [8]int32{0, 1, 1, 1, 0, -1, -1, -1}
	headingDY = [8]int32{-1, -1, 0, 1, 1, 1, 0, -1}
)

// HeadingOf returns the heading of a single step (dx, dy), each in [-1, 1].
func HeadingOf(dx, dy int32) int16 {
	for i := int16(0); i < 8; i++ {
		if headingDX[i] == dx && headingDY[i] == dy {
			return i
		}
	}
	return 0
}

// Hit is one damage splat shown this tick.
type Hit struct {
	Damage int32
	Type   byte // 0=normal, 1=poison, 2=block
}

// maxHitsPerTick mirrors the client which only renders two splats per update.
const maxHitsPerTick = 2

// Mob is the state shared by players and npcs. Its mutex is the per-entity
// exclusive region: the update workers hold it while processing the entity,
// and any other code mutating the entity goes through Exclusive.
type Mob struct {
	mu   sync.Mutex
	slot int // registry slot + 1; 0 = not registered

	Pos     Position
	LastPos Position
	Heading int16
	Walk    WalkingQueue

	// Appearance
	Gfx   int32
	Title string

	// Transient per-tick state, cleared by the reset passes.
	flags      FlagSet
	Teleported bool
	ForcedChat string
	Animation  int32
	Hits       []Hit
}

func (m *Mob) Index() int       { return m.slot - 1 }
func (m *Mob) setIndex(idx int) { m.slot = idx + 1 }
func (m *Mob) Lock()            { m.mu.Lock() }
func (m *Mob) Unlock()          { m.mu.Unlock() }

// Exclusive runs fn while holding the entity's exclusive region.
func (m *Mob) Exclusive(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Flag marks an update block as pending for this tick.
func (m *Mob) Flag(f UpdateFlag) { m.flags = m.flags.With(f) }

func (m *Mob) Flags() FlagSet { return m.flags }

// Say queues overhead text.
func (m *Mob) Say(text string) {
	m.ForcedChat = text
	m.Flag(FlagChat)
}

// Animate queues an animation id.
func (m *Mob) Animate(id int32) {
	m.Animation = id
	m.Flag(FlagAnimation)
}

// AddHit queues a damage splat. Extra hits beyond the per-tick limit are
// dropped from display but still applied by the caller.
func (m *Mob) AddHit(h Hit) {
	if len(m.Hits) < maxHitsPerTick {
		m.Hits = append(m.Hits, h)
	}
	m.Flag(FlagHit)
}

// TeleportTo moves the mob without walking and clears pending steps.
func (m *Mob) TeleportTo(pos Position) {
	m.Walk.Clear()
	m.Pos = pos
	m.Teleported = true
}

// advance pops up to steps entries from the walking queue and applies them.
// It returns how many steps were taken.
func (m *Mob) advance(steps int) int {
	taken := 0
	for taken < steps {
		st, ok := m.Walk.Next()
		if !ok {
			break
		}
		m.Pos = m.Pos.Step(st.DX, st.DY)
		m.Heading = HeadingOf(st.DX, st.DY)
		taken++
	}
	if taken > 0 {
		m.Flag(FlagFacing)
	}
	return taken
}

// resetTransient clears everything a tick accumulated on the mob.
func (m *Mob) resetTransient() {
	m.flags = 0
	m.Teleported = false
	m.ForcedChat = ""
	m.Animation = 0
	m.Hits = m.Hits[:0]
	m.LastPos = m.Pos
}
