package gamesync

// Population is the registry view a SyncTask is captured from.
type Population[T any] interface {
	// Snapshot appends the live members in iteration order to dst.
	Snapshot(dst []T) []T
	Capacity() int
}

// SyncTask describes one phase of per-entity work: which entities take
// part, how large the backing registry can get, and whether the phase may
// fan out across workers.
//
// The party list is a snapshot taken at construction. Entities that join
// the registry afterwards are not part of this phase.
type SyncTask[T any] struct {
	name       string
	parties    []T
	capacity   int
	concurrent bool
}

// NewSyncTask snapshots pop into buf (which may be nil) and returns the
// descriptor for the phase.
func NewSyncTask[T any](name string, pop Population[T], concurrent bool, buf []T) *SyncTask[T] {
	capacity := pop.Capacity()
	if buf == nil {
		buf = make([]T, 0, capacity)
	}
	return &SyncTask[T]{
		name:       name,
		parties:    pop.Snapshot(buf[:0]),
		capacity:   capacity,
		concurrent: concurrent,
	}
}

func (s *SyncTask[T]) Name() string { return s.name }

// PartyCount is the number of entities that must finish this phase.
func (s *SyncTask[T]) PartyCount() int { return len(s.parties) }

// Capacity is the maximum size of the backing registry.
func (s *SyncTask[T]) Capacity() int { return s.capacity }

// Concurrent reports whether the phase may run in parallel.
func (s *SyncTask[T]) Concurrent() bool { return s.concurrent }

// Parties returns the snapshotted members. The slice is owned by the descriptor.
func (s *SyncTask[T]) Parties() []T { return s.parties }

// Buffer hands back the snapshot storage for reuse by the next phase.
func (s *SyncTask[T]) Buffer() []T {
	clear(s.parties)
	return s.parties[:0]
}
