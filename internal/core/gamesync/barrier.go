package gamesync

import (
	"fmt"
	"sync"
)

// Barrier is a reusable counting latch. Each phase it is armed with the
// number of parties expected, parties Arrive as they finish, and the
// coordinator Waits until every armed party has arrived. Parties that show
// up after arming are not waited on; they belong to the next phase.
type Barrier struct {
	mu      sync.Mutex
	done    chan struct{}
	pending int
	phase   int
}

// NewBarrier returns a barrier with nothing armed; Wait returns immediately.
func NewBarrier() *Barrier {
	done := make(chan struct{})
	close(done)
	return &Barrier{done: done}
}

// Arm starts a new phase expecting parties arrivals. Arming while the
// previous phase is still open is a programming error.
func (b *Barrier) Arm(parties int) {
	if parties < 0 {
		panic(fmt.Sprintf("gamesync: arm with %d parties", parties))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending > 0 {
		panic(fmt.Sprintf("gamesync: re-arm of phase %d with %d parties outstanding", b.phase, b.pending))
	}
	b.phase++
	b.pending = parties
	b.done = make(chan struct{})
	if parties == 0 {
		close(b.done)
	}
}

// Arrive records one party as finished.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == 0 {
		panic(fmt.Sprintf("gamesync: arrival on closed phase %d", b.phase))
	}
	b.pending--
	if b.pending == 0 {
		close(b.done)
	}
}

// Wait blocks until every party of the current phase has arrived.
func (b *Barrier) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	<-done
}

// Done exposes the completion channel of the current phase.
func (b *Barrier) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Phase returns how many times the barrier has been armed.
func (b *Barrier) Phase() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Outstanding returns the parties still expected in the current phase.
func (b *Barrier) Outstanding() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}
