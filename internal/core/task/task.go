package task

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/google/uuid"
)

// DefaultKey is the group key carried by tasks submitted without one.
var DefaultKey Key = defaultKey{}

type defaultKey struct{}

func (defaultKey) String() string { return "default" }

// Key groups tasks belonging to one owner (usually an entity) so they can be
// cancelled or queried together. Keys must be comparable; WithKey enforces it.
type Key = any

// Executor is the work a Task performs when it comes due.
type Executor interface {
	Execute(t *Task) error
}

// Func adapts a plain function into an Executor.
type Func func(t *Task) error

func (f Func) Execute(t *Task) error { return f(t) }

// Optional hooks. An Executor may implement any of these.
type (
	// SubmitHook runs once when the task is handed to the Scheduler,
	// before an instant execution.
	SubmitHook interface{ OnSubmit(t *Task) }
	// SequenceHook runs on every scheduler pass regardless of the delay.
	SequenceHook interface{ OnSequence(t *Task) }
	// CancelHook runs exactly once when the task stops running.
	CancelHook interface{ OnCancel(t *Task) }
	// FailureHook receives errors and recovered panics from Execute.
	FailureHook interface{ OnFailure(t *Task, err error) }
)

// Task is a unit of deferred, possibly recurring, work measured in ticks.
//
// Everything except Cancel and Running is driver-goroutine only.
type Task struct {
	id      string
	name    string
	key     Key
	exec    Executor
	instant bool

	delay        int
	counter      int
	pauseCounter int

	running atomic.Bool
}

// Option configures a Task at construction.
type Option func(*Task)

// WithKey binds the task to a group key. Keys are compared with ==, so a
// non-comparable key (slice, map, func) is a programming error.
func WithKey(key Key) Option {
	if key != nil && !reflect.TypeOf(key).Comparable() {
		panic(fmt.Sprintf("task.WithKey: key of type %T is not comparable", key))
	}
	return func(t *Task) {
		if key != nil {
			t.key = key
		}
	}
}

// WithName sets a human readable name used in logs.
func WithName(name string) Option {
	return func(t *Task) { t.name = name }
}

// Instant makes the task execute once immediately on submission.
func Instant() Option {
	return func(t *Task) { t.instant = true }
}

// New creates a running, not yet submitted task that fires every delay ticks.
func New(delay int, exec Executor, opts ...Option) *Task {
	if delay < 0 {
		panic(fmt.Sprintf("task.New: negative delay %d", delay))
	}
	if exec == nil {
		panic("task.New: nil executor")
	}
	t := &Task{
		id:    uuid.NewString(),
		key:   DefaultKey,
		exec:  exec,
		delay: delay,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.running.Store(true)
	return t
}

// NewFunc is New with a function body.
func NewFunc(delay int, fn func(t *Task) error, opts ...Option) *Task {
	return New(delay, Func(fn), opts...)
}

func (t *Task) ID() string      { return t.id }
func (t *Task) Key() Key        { return t.key }
func (t *Task) IsInstant() bool { return t.instant }
func (t *Task) Delay() int      { return t.delay }
func (t *Task) Counter() int    { return t.counter }
func (t *Task) Running() bool   { return t.running.Load() }
func (t *Task) Paused() bool    { return t.pauseCounter > 0 }
func (t *Task) PauseLeft() int  { return t.pauseCounter }

// Name returns the configured name, falling back to the id.
func (t *Task) Name() string {
	if t.name != "" {
		return t.name
	}
	return t.id
}

// SetDelay changes the delay. The new value applies to the next countdown;
// the elapsed counter is kept.
func (t *Task) SetDelay(delay int) {
	if delay < 0 {
		panic(fmt.Sprintf("task %s: negative delay %d", t.Name(), delay))
	}
	t.delay = delay
}

// Pause suspends the due check for the given number of ticks. The counter
// does not advance while paused. Pausing a paused task is a usage error.
func (t *Task) Pause(ticks int) {
	if ticks <= 0 {
		panic(fmt.Sprintf("task %s: pause of %d ticks", t.Name(), ticks))
	}
	if t.pauseCounter > 0 {
		panic(fmt.Sprintf("task %s: already paused (%d ticks left)", t.Name(), t.pauseCounter))
	}
	t.pauseCounter = ticks
}

// Cancel stops the task. Idempotent; OnCancel fires once.
func (t *Task) Cancel() {
	if !t.running.CompareAndSwap(true, false) {
		return
	}
	if h, ok := t.exec.(CancelHook); ok {
		h.OnCancel(t)
	}
}

// due advances the countdown by one tick and reports whether the task
// should execute on this pass.
func (t *Task) due() bool {
	if !t.running.Load() {
		return false
	}
	if t.pauseCounter > 0 {
		t.pauseCounter--
		return false
	}
	t.counter++
	if t.counter >= t.delay {
		t.counter = 0
		return true
	}
	return false
}

func (t *Task) String() string {
	return fmt.Sprintf("task(%s key=%v delay=%d)", t.Name(), t.key, t.delay)
}
