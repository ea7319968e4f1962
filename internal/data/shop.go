package data

import (
	"cmp"
	"fmt"
	"slices"
)

// defaultRestockTicks is one minute at the standard tick rate.
const defaultRestockTicks = 100

// ShopItem holds one stocked item of a shop.
type ShopItem struct {
	ItemID   int32 `yaml:"item_id"`
	Price    int32 `yaml:"price"`
	MaxStock int32 `yaml:"max_stock"`
}

// Shop is a stock list owned by one NPC template.
type Shop struct {
	ID           int32      `yaml:"id"`
	NpcID        int32      `yaml:"npc_id"`
	Name         string     `yaml:"name"`
	RestockTicks int        `yaml:"restock_ticks"` // ticks between restock steps
	Items        []ShopItem `yaml:"items"`
}

type shopListFile struct {
	Shops []Shop `yaml:"shops"`
}

// ShopTable holds all shops indexed by shop ID.
type ShopTable struct {
	shops map[int32]*Shop
}

// LoadShopTable reads shop_list.yaml. Shop ids must be unique and an item
// may appear once per shop.
func LoadShopTable(path string) (*ShopTable, error) {
	f, err := decodeFile[shopListFile](path, "shop_list")
	if err != nil {
		return nil, err
	}

	t := &ShopTable{shops: make(map[int32]*Shop, len(f.Shops))}
	for i := range f.Shops {
		s := &f.Shops[i]
		if _, dup := t.shops[s.ID]; dup {
			return nil, fmt.Errorf("shop_list: duplicate shop id %d", s.ID)
		}
		if s.RestockTicks <= 0 {
			s.RestockTicks = defaultRestockTicks
		}
		seen := make(map[int32]bool, len(s.Items))
		for j := range s.Items {
			it := &s.Items[j]
			if seen[it.ItemID] {
				return nil, fmt.Errorf("shop_list: shop %d lists item %d twice", s.ID, it.ItemID)
			}
			seen[it.ItemID] = true
			it.MaxStock = max(it.MaxStock, 1)
		}
		t.shops[s.ID] = s
	}
	return t, nil
}

// Get returns a shop by ID, or nil if not found.
func (t *ShopTable) Get(id int32) *Shop {
	return t.shops[id]
}

// Count returns the number of shops loaded.
func (t *ShopTable) Count() int {
	return len(t.shops)
}

// All returns the shops ordered by ID.
func (t *ShopTable) All() []*Shop {
	out := make([]*Shop, 0, len(t.shops))
	for _, s := range t.shops {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *Shop) int { return cmp.Compare(a.ID, b.ID) })
	return out
}
