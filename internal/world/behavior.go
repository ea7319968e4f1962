package world

import (
	"fmt"
	"slices"
	"sync"
)

// BehaviorFactory builds the behavior instance for one npc.
type BehaviorFactory func(n *Npc) Behavior

// Behaviors maps behavior kinds to factories. Kinds are registered
// explicitly at startup.
type Behaviors struct {
	mu        sync.RWMutex
	factories map[string]BehaviorFactory
}

func NewBehaviors() *Behaviors {
	return &Behaviors{factories: make(map[string]BehaviorFactory)}
}

// Register binds kind to f. Registering a kind twice is a programming error.
func (b *Behaviors) Register(kind string, f BehaviorFactory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.factories[kind]; dup {
		panic(fmt.Sprintf("world: behavior %q registered twice", kind))
	}
	b.factories[kind] = f
}

// Attach resolves kind and installs the resulting behavior on n.
func (b *Behaviors) Attach(n *Npc, kind string) error {
	b.mu.RLock()
	f, ok := b.factories[kind]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown npc behavior %q", kind)
	}
	n.AIKind = kind
	n.Behavior = f(n)
	return nil
}

// Kinds lists the registered kinds in sorted order.
func (b *Behaviors) Kinds() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	kinds := make([]string, 0, len(b.factories))
	for k := range b.factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}
