package world

import (
	"slices"
	"sync"
)

// AOIGrid implements a cell-based Area of Interest index of npcs.
// Writes happen on the driver goroutine (spawn, despawn, movement phase);
// the render workers only read, so a RWMutex is enough.

const cellSize = 16

type cellKey struct {
	mapID int16
	cx    int32
	cy    int32
}

func toCellCoord(v int32) int32 {
	if v < 0 {
		return (v - cellSize + 1) / cellSize
	}
	return v / cellSize
}

type AOIGrid struct {
	mu    sync.RWMutex
	cells map[cellKey]map[*Npc]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[*Npc]struct{}),
	}
}

func keyOf(p Position) cellKey {
	return cellKey{mapID: p.MapID, cx: toCellCoord(p.X), cy: toCellCoord(p.Y)}
}

// Add places an npc into the grid at pos.
func (g *AOIGrid) Add(n *Npc, pos Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(n, keyOf(pos))
}

func (g *AOIGrid) add(n *Npc, k cellKey) {
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[*Npc]struct{})
		g.cells[k] = cell
	}
	cell[n] = struct{}{}
}

// Remove takes an npc out of the grid.
func (g *AOIGrid) Remove(n *Npc, pos Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remove(n, keyOf(pos))
}

func (g *AOIGrid) remove(n *Npc, k cellKey) {
	cell := g.cells[k]
	if cell != nil {
		delete(cell, n)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an npc's cell when its position changes.
func (g *AOIGrid) Move(n *Npc, from, to Position) {
	oldK, newK := keyOf(from), keyOf(to)
	if oldK == newK {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.remove(n, oldK)
	g.add(n, newK)
}

// Near appends to dst every npc within dist tiles of pos, ordered by
// registry slot so results are deterministic.
func (g *AOIGrid) Near(pos Position, dist int32, dst []*Npc) []*Npc {
	reach := (dist + cellSize - 1) / cellSize
	k := keyOf(pos)
	start := len(dst)

	g.mu.RLock()
	for dx := -reach; dx <= reach; dx++ {
		for dy := -reach; dy <= reach; dy++ {
			ck := cellKey{mapID: k.mapID, cx: k.cx + dx, cy: k.cy + dy}
			for n := range g.cells[ck] {
				if n.Pos.Within(pos, dist) {
					dst = append(dst, n)
				}
			}
		}
	}
	g.mu.RUnlock()

	slices.SortFunc(dst[start:], func(a, b *Npc) int { return a.Index() - b.Index() })
	return dst
}
