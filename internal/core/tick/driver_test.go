package tick

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/l1jgo/tickworld/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func fn(p system.Phase, f func()) system.System {
	return system.Func{P: p, Fn: func(time.Duration) { f() }}
}

func TestStepRunsPostsThenSystemsInOrder(t *testing.T) {
	var order []string
	r := system.NewRunner()
	r.Register(fn(system.PhaseTasks, func() { order = append(order, "tasks") }))
	r.Register(fn(system.PhaseEntities, func() { order = append(order, "entities") }))
	d := New(time.Second, r, 8, zap.NewNop())

	require.NoError(t, d.Post(func() { order = append(order, "post") }))
	require.NoError(t, d.Step())
	assert.Equal(t, []string{"post", "entities", "tasks"}, order)
	assert.Equal(t, uint64(1), d.Ticks())
}

func TestWorkPostedDuringDrainWaitsForNextTick(t *testing.T) {
	d := New(time.Second, system.NewRunner(), 8, zap.NewNop())
	ran := 0
	require.NoError(t, d.Post(func() {
		ran++
		require.NoError(t, d.Post(func() { ran += 10 }))
	}))
	require.NoError(t, d.Step())
	assert.Equal(t, 1, ran)
	require.NoError(t, d.Step())
	assert.Equal(t, 11, ran)
}

func TestPostQueueBound(t *testing.T) {
	d := New(time.Second, system.NewRunner(), 1, zap.NewNop())
	require.NoError(t, d.Post(func() {}))
	assert.ErrorIs(t, d.Post(func() {}), ErrPostQueueFull)
}

func TestStepIsNotReentrant(t *testing.T) {
	r := system.NewRunner()
	d := New(time.Second, r, 8, zap.NewNop())
	var inner error
	r.Register(fn(system.PhaseEntities, func() { inner = d.Step() }))

	require.NoError(t, d.Step())
	assert.ErrorIs(t, inner, ErrTickInFlight)
	assert.Equal(t, uint64(1), d.Ticks())
}

func TestOverrunIsLoggedAndCounted(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	r := system.NewRunner()
	r.Register(fn(system.PhaseEntities, func() { time.Sleep(5 * time.Millisecond) }))
	d := New(time.Millisecond, r, 8, zap.New(core))

	require.NoError(t, d.Step())
	assert.Equal(t, uint64(1), d.Overruns())
	assert.GreaterOrEqual(t, d.LastDuration(), 5*time.Millisecond)
	entries := logs.FilterMessage("tick 逾時").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "1", entries[0].ContextMap()["overruns"])
	assert.Equal(t, "system.Func", entries[0].ContextMap()["slowest"])
}

func TestPanickingSystemDoesNotKillDriver(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := system.NewRunner()
	boom := true
	r.Register(fn(system.PhaseEntities, func() {
		if boom {
			boom = false
			panic("bad system")
		}
	}))
	d := New(time.Second, r, 8, zap.New(core))

	assert.Error(t, d.Step())
	assert.Equal(t, 1, logs.FilterMessage("tick 執行失敗").Len())
	assert.NoError(t, d.Step())
	assert.Equal(t, uint64(2), d.Ticks())
}

func TestPanickingPostIsContained(t *testing.T) {
	d := New(time.Second, system.NewRunner(), 8, zap.NewNop())
	ran := false
	require.NoError(t, d.Post(func() { panic("bad post") }))
	require.NoError(t, d.Post(func() { ran = true }))
	require.NoError(t, d.Step())
	assert.True(t, ran)
}

func TestRunTicksUntilCancelled(t *testing.T) {
	var fired atomic.Int32
	r := system.NewRunner()
	r.Register(fn(system.PhaseTasks, func() { fired.Add(1) }))
	d := New(2*time.Millisecond, r, 8, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, d.Ticks(), uint64(3))
}
