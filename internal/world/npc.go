package world

import (
	"fmt"
	"sync/atomic"
)

// npcIDCounter generates unique NPC object IDs.
// Starts at 200_000_000 to avoid collision with character DB IDs.
var npcIDCounter atomic.Int32

func init() {
	npcIDCounter.Store(200_000_000)
}

// NextNpcID returns a unique object ID for an NPC instance.
func NextNpcID() int32 {
	return npcIDCounter.Add(1)
}

// Behavior decides where an npc walks. Step is called once per tick from
// the movement phase and may queue steps on n.Walk.
type Behavior interface {
	Step(n *Npc, w *World) error
}

// Npc is an autonomous entity.
type Npc struct {
	Mob

	ID         int32 // unique object ID (from NextNpcID)
	TemplateID int32
	Name       string
	AIKind     string // behavior kind, e.g. "wander"
	Behavior   Behavior

	Spawn        Position
	WalkRadius   int32
	RespawnTicks int
	Route        []Position // patrol waypoints

	HP    int32
	MaxHP int32
	Dead  bool
}

// NewNpc builds a detached npc standing on its spawn point.
func NewNpc(templateID int32, name string, spawn Position, maxHP int32) *Npc {
	n := &Npc{
		ID:         NextNpcID(),
		TemplateID: templateID,
		Name:       name,
		Spawn:      spawn,
		HP:         maxHP,
		MaxHP:      maxHP,
	}
	n.Pos = spawn
	n.LastPos = spawn
	n.Gfx = templateID
	n.Title = name
	n.Flag(FlagAppearance)
	return n
}

func (n *Npc) Kind() string { return "npc" }

func (n *Npc) String() string { return fmt.Sprintf("npc(%d %s)", n.ID, n.Name) }

// ProcessMovement lets the behavior plan and takes at most one step.
func (n *Npc) ProcessMovement(w *World) error {
	if n.Dead {
		return nil
	}
	if n.Behavior != nil && n.Walk.Len() == 0 {
		if err := n.Behavior.Step(n, w); err != nil {
			return err
		}
	}
	from := n.Pos
	if n.advance(1) > 0 {
		w.npcMoved(n, from)
	}
	return nil
}

// Damage applies a hit and reports whether it killed the npc.
func (n *Npc) Damage(amount int32) bool {
	if n.Dead {
		return false
	}
	n.HP -= amount
	n.AddHit(Hit{Damage: amount})
	if n.HP <= 0 {
		n.HP = 0
		n.Dead = true
		return true
	}
	return false
}

// Revive restores the npc at its spawn point.
func (n *Npc) Revive() {
	n.Dead = false
	n.HP = n.MaxHP
	n.TeleportTo(n.Spawn)
	n.LastPos = n.Spawn
	n.Flag(FlagAppearance)
}

// ResetTick clears per-tick transient state.
func (n *Npc) ResetTick() {
	n.resetTransient()
}
