package system

import (
	"fmt"
	"slices"
	"time"
)

// Named is implemented by systems that want a label in tick timings.
// Others are labelled by their Go type.
type Named interface {
	Name() string
}

// Runner executes systems in phase order each tick and keeps how long each
// one took on the last tick. Driver goroutine only.
type Runner struct {
	stages []stage
	sorted bool
}

type stage struct {
	sys     System
	name    string
	elapsed time.Duration
}

func NewRunner() *Runner {
	return &Runner{stages: make([]stage, 0, 8)}
}

func (r *Runner) Register(s System) {
	name := fmt.Sprintf("%T", s)
	if n, ok := s.(Named); ok {
		name = n.Name()
	}
	r.stages = append(r.stages, stage{sys: s, name: name})
	r.sorted = false
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.stages) }

// Tick runs every system once. A system that panics is recorded as running
// until the panic, and the panic propagates to the caller.
func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for i := range r.stages {
		r.stages[i].elapsed = 0
	}
	for i := range r.stages {
		st := &r.stages[i]
		start := time.Now()
		func() {
			defer func() { st.elapsed = time.Since(start) }()
			st.sys.Update(dt)
		}()
	}
}

// Slowest names the system that took longest on the last tick. ok is false
// when nothing is registered.
func (r *Runner) Slowest() (name string, elapsed time.Duration, ok bool) {
	for _, st := range r.stages {
		if !ok || st.elapsed > elapsed {
			name, elapsed, ok = st.name, st.elapsed, true
		}
	}
	return name, elapsed, ok
}

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	slices.SortStableFunc(r.stages, func(a, b stage) int { return int(a.sys.Phase() - b.sys.Phase()) })
	r.sorted = true
}
