package data

import "fmt"

// NpcTemplate is one npc kind from npc_list.yaml.
type NpcTemplate struct {
	NpcID        int32  `yaml:"npc_id"`
	Name         string `yaml:"name"`
	GfxID        int32  `yaml:"gfx_id"`
	HP           int32  `yaml:"hp"`
	Behavior     string `yaml:"behavior"` // "stationary", "wander", "patrol"
	WalkRadius   int32  `yaml:"walk_radius"`
	RespawnTicks int    `yaml:"respawn_ticks"`
}

// Waypoint is one patrol stop.
type Waypoint struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// SpawnEntry defines where and how many NPCs to spawn.
type SpawnEntry struct {
	NpcID    int32      `yaml:"npc_id"`
	MapID    int16      `yaml:"map_id"`
	X        int32      `yaml:"x"`
	Y        int32      `yaml:"y"`
	Count    int        `yaml:"count"`
	RandomX  int32      `yaml:"randomx"`
	RandomY  int32      `yaml:"randomy"`
	Behavior string     `yaml:"behavior,omitempty"` // overrides the template
	Patrol   []Waypoint `yaml:"patrol,omitempty"`
}

type npcListFile struct {
	Npcs []NpcTemplate `yaml:"npcs"`
}

type spawnListFile struct {
	Spawns []SpawnEntry `yaml:"spawns"`
}

// NpcTable indexes templates by npc id.
type NpcTable struct {
	templates map[int32]*NpcTemplate
}

func LoadNpcTable(path string) (*NpcTable, error) {
	f, err := decodeFile[npcListFile](path, "npc_list")
	if err != nil {
		return nil, err
	}
	t := &NpcTable{templates: make(map[int32]*NpcTemplate, len(f.Npcs))}
	for i := range f.Npcs {
		npc := &f.Npcs[i]
		if _, dup := t.templates[npc.NpcID]; dup {
			return nil, fmt.Errorf("npc_list: duplicate npc_id %d", npc.NpcID)
		}
		if npc.HP <= 0 {
			npc.HP = 1
		}
		if npc.Behavior == "" {
			npc.Behavior = "stationary"
		}
		t.templates[npc.NpcID] = npc
	}
	return t, nil
}

// Get returns nil for an unknown id.
func (t *NpcTable) Get(npcID int32) *NpcTemplate { return t.templates[npcID] }

func (t *NpcTable) Count() int { return len(t.templates) }

// LoadSpawnList reads spawn_list.yaml. Entries must name a positive npc id;
// a missing count means one.
func LoadSpawnList(path string) ([]SpawnEntry, error) {
	f, err := decodeFile[spawnListFile](path, "spawn_list")
	if err != nil {
		return nil, err
	}
	for i := range f.Spawns {
		e := &f.Spawns[i]
		if e.NpcID <= 0 {
			return nil, fmt.Errorf("spawn_list: entry %d has no npc_id", i)
		}
		e.Count = max(e.Count, 1)
	}
	return f.Spawns, nil
}
