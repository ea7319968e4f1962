package world

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFull              = errors.New("registry full")
	ErrAlreadyRegistered = errors.New("entity already registered")
	ErrNotRegistered     = errors.New("entity not registered")
)

// Entity is anything stored in a Registry: players and npcs.
type Entity interface {
	// Index is the registry slot, or -1 when the entity is not registered.
	Index() int
	Kind() string
	Lock()
	Unlock()
	setIndex(int)
}

// Registry is a fixed-capacity, slot-indexed entity store. Iteration goes
// through Snapshot, so adds and removes never invalidate an in-progress walk.
type Registry[T Entity] struct {
	mu       sync.RWMutex
	name     string
	slots    []T
	occupied []bool
	size     int
	hint     int // lowest slot that may be free
}

func NewRegistry[T Entity](name string, capacity int) *Registry[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("world.NewRegistry(%s): capacity must be > 0", name))
	}
	return &Registry[T]{
		name:     name,
		slots:    make([]T, capacity),
		occupied: make([]bool, capacity),
	}
}

func (r *Registry[T]) Name() string { return r.name }

// Add places e in the lowest free slot and returns that slot.
func (r *Registry[T]) Add(e T) (int, error) {
	if e.Index() >= 0 {
		return -1, fmt.Errorf("%s add: %w", r.name, ErrAlreadyRegistered)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := r.hint; i < len(r.slots); i++ {
		if r.occupied[i] {
			continue
		}
		r.slots[i] = e
		r.occupied[i] = true
		r.size++
		r.hint = i + 1
		e.setIndex(i)
		return i, nil
	}
	return -1, fmt.Errorf("%s add (capacity %d): %w", r.name, len(r.slots), ErrFull)
}

// Remove frees e's slot.
func (r *Registry[T]) Remove(e T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := e.Index()
	if idx < 0 || idx >= len(r.slots) || !r.occupied[idx] || any(r.slots[idx]) != any(e) {
		return fmt.Errorf("%s remove: %w", r.name, ErrNotRegistered)
	}
	var zero T
	r.slots[idx] = zero
	r.occupied[idx] = false
	r.size--
	if idx < r.hint {
		r.hint = idx
	}
	e.setIndex(-1)
	return nil
}

// Get returns the entity in slot idx.
func (r *Registry[T]) Get(idx int) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || idx >= len(r.slots) || !r.occupied[idx] {
		var zero T
		return zero, false
	}
	return r.slots[idx], true
}

// Contains reports whether e currently occupies its slot.
func (r *Registry[T]) Contains(e T) bool {
	got, ok := r.Get(e.Index())
	return ok && any(got) == any(e)
}

func (r *Registry[T]) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Registry[T]) Capacity() int {
	return len(r.slots)
}

// Snapshot appends every live entity, in slot order, to dst.
func (r *Registry[T]) Snapshot(dst []T) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, ok := range r.occupied {
		if ok {
			dst = append(dst, r.slots[i])
		}
	}
	return dst
}

// Each calls fn for every live entity in slot order until fn returns false.
func (r *Registry[T]) Each(fn func(T) bool) {
	for _, e := range r.Snapshot(make([]T, 0, r.Size())) {
		if !fn(e) {
			return
		}
	}
}

// Find returns the first live entity matching pred.
func (r *Registry[T]) Find(pred func(T) bool) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i, ok := range r.occupied {
		if ok && pred(r.slots[i]) {
			return r.slots[i], true
		}
	}
	var zero T
	return zero, false
}
