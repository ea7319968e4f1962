package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var order []string
	rec := func(name string, p Phase) System {
		return Func{P: p, Fn: func(time.Duration) { order = append(order, name) }}
	}
	r := NewRunner()
	r.Register(rec("tasks", PhaseTasks))
	r.Register(rec("update", PhaseEntities))
	r.Register(rec("input-a", PhaseInput))
	r.Register(rec("input-b", PhaseInput))

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input-a", "input-b", "update", "tasks"}, order)
	assert.Equal(t, 4, r.Len())
	assert.Equal(t, "entities", PhaseEntities.String())
}

type sleeper struct {
	name string
	d    time.Duration
}

func (s sleeper) Phase() Phase         { return PhaseEntities }
func (s sleeper) Update(time.Duration) { time.Sleep(s.d) }
func (s sleeper) Name() string         { return s.name }

func TestRunnerReportsSlowestSystem(t *testing.T) {
	r := NewRunner()
	_, _, ok := r.Slowest()
	assert.False(t, ok)

	r.Register(Func{P: PhaseInput, Fn: func(time.Duration) {}})
	r.Register(sleeper{name: "pathing", d: 5 * time.Millisecond})
	r.Tick(0)

	name, took, ok := r.Slowest()
	require.True(t, ok)
	assert.Equal(t, "pathing", name)
	assert.GreaterOrEqual(t, took, 5*time.Millisecond)
}

func TestRunnerTimesPanickingSystem(t *testing.T) {
	r := NewRunner()
	r.Register(Func{P: PhaseTasks, Fn: func(time.Duration) {
		time.Sleep(2 * time.Millisecond)
		panic("boom")
	}})
	assert.Panics(t, func() { r.Tick(0) })

	name, took, ok := r.Slowest()
	require.True(t, ok)
	assert.Equal(t, "system.Func", name)
	assert.GreaterOrEqual(t, took, 2*time.Millisecond)
}
