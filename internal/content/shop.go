package content

import (
	"errors"
	"fmt"

	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/data"
)

var (
	ErrUnknownShop = errors.New("unknown shop")
	ErrUnknownItem = errors.New("item not sold here")
	ErrOutOfStock  = errors.New("out of stock")
)

// Shops tracks live stock and restocks sold-out items one unit per restock
// step. At most one restock task runs per shop. Driver goroutine only.
type Shops struct {
	table *data.ShopTable
	sched *task.Scheduler
	stock map[int32]map[int32]int32 // shop id -> item id -> stock
}

func NewShops(table *data.ShopTable, s *task.Scheduler) *Shops {
	stock := make(map[int32]map[int32]int32, table.Count())
	for _, shop := range table.All() {
		items := make(map[int32]int32, len(shop.Items))
		for _, it := range shop.Items {
			items[it.ItemID] = it.MaxStock
		}
		stock[shop.ID] = items
	}
	return &Shops{table: table, sched: s, stock: stock}
}

// Stock returns the current stock of an item.
func (s *Shops) Stock(shopID, itemID int32) int32 {
	return s.stock[shopID][itemID]
}

// Restocking reports whether shopID has a restock task running.
func (s *Shops) Restocking(shopID int32) bool {
	shop := s.table.Get(shopID)
	return shop != nil && s.sched.IsRunning(shop)
}

// Buy takes one unit and returns its price.
func (s *Shops) Buy(shopID, itemID int32) (int32, error) {
	shop := s.table.Get(shopID)
	if shop == nil {
		return 0, fmt.Errorf("shop %d: %w", shopID, ErrUnknownShop)
	}
	var price int32 = -1
	for _, it := range shop.Items {
		if it.ItemID == itemID {
			price = it.Price
			break
		}
	}
	if price < 0 {
		return 0, fmt.Errorf("shop %d item %d: %w", shopID, itemID, ErrUnknownItem)
	}
	if s.stock[shopID][itemID] <= 0 {
		return 0, fmt.Errorf("shop %d item %d: %w", shopID, itemID, ErrOutOfStock)
	}
	s.stock[shopID][itemID]--
	s.ensureRestock(shop)
	return price, nil
}

func (s *Shops) ensureRestock(shop *data.Shop) {
	if s.sched.IsRunning(shop) {
		return
	}
	s.sched.Submit(task.NewFunc(shop.RestockTicks, func(t *task.Task) error {
		if !s.restockStep(shop) {
			t.Cancel()
		}
		return nil
	}, task.WithKey(shop), task.WithName("restock")))
}

// restockStep adds one unit to every short item and reports whether any
// item is still below its maximum.
func (s *Shops) restockStep(shop *data.Shop) bool {
	short := false
	items := s.stock[shop.ID]
	for _, it := range shop.Items {
		if items[it.ItemID] < it.MaxStock {
			items[it.ItemID]++
		}
		if items[it.ItemID] < it.MaxStock {
			short = true
		}
	}
	return short
}
