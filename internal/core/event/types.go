package event

import "github.com/l1jgo/tickworld/internal/world"

// PlayerEntered is emitted once a player is in the registry.
type PlayerEntered struct {
	Player *world.Player
}

// PlayerLeft is emitted after a player has been removed and its tasks
// cancelled.
type PlayerLeft struct {
	Player *world.Player
}

// NpcKilled is emitted when a hit drops an npc to zero hp.
type NpcKilled struct {
	Npc    *world.Npc
	Killer *world.Player
}

// NpcRespawned is emitted when a despawned npc is back in the world.
type NpcRespawned struct {
	Npc *world.Npc
}
