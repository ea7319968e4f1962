package task

import (
	"fmt"

	"go.uber.org/zap"
)

// Scheduler owns all live tasks and runs the due ones once per tick.
// Single-goroutine access only (tick driver).
type Scheduler struct {
	pending []*Task
	ready   []*Task
	log     *zap.Logger
}

func NewScheduler(log *zap.Logger) *Scheduler {
	return &Scheduler{
		pending: make([]*Task, 0, 256),
		ready:   make([]*Task, 0, 64),
		log:     log,
	}
}

// Submit makes t live. OnSubmit fires first; an instant task then executes
// immediately and joins the pending set only if it is still running.
// Submitting a cancelled task is a programming error.
func (s *Scheduler) Submit(t *Task) {
	if !t.Running() {
		panic(fmt.Sprintf("scheduler: submit of cancelled %s", t))
	}
	if h, ok := t.exec.(SubmitHook); ok {
		h.OnSubmit(t)
	}
	if t.instant {
		s.execute(t)
	}
	if t.Running() {
		s.pending = append(s.pending, t)
	}
}

// Sequence runs one scheduler pass: every pending task is advanced, due
// tasks are queued, and the queue is drained in the order tasks became due.
// Tasks cancelled before this pass are evicted. A panicking OnSequence hook
// counts as that task's failure; the pass carries on with the others.
func (s *Scheduler) Sequence() {
	n := len(s.pending)
	live := 0
	for i := 0; i < n; i++ {
		t := s.pending[i]
		if s.advance(t) {
			s.ready = append(s.ready, t)
		} else if !t.Running() {
			continue
		}
		s.pending[live] = t
		live++
	}
	// keep tasks submitted by hooks during the pass
	live += copy(s.pending[live:], s.pending[n:])
	clear(s.pending[live:])
	s.pending = s.pending[:live]

	for i := 0; i < len(s.ready); i++ {
		t := s.ready[i]
		s.ready[i] = nil
		// an earlier task in this pass may have cancelled it
		if t.Running() {
			s.execute(t)
		}
	}
	s.ready = s.ready[:0]
}

// advance runs the per-pass hook and the due check. It never panics.
func (s *Scheduler) advance(t *Task) bool {
	due := false
	err := safeCall(t, "sequence hook", func() error {
		if h, ok := t.exec.(SequenceHook); ok {
			h.OnSequence(t)
		}
		due = t.due()
		return nil
	})
	if err != nil {
		s.fail(t, err)
		return false
	}
	return due
}

// Cancel cancels every live task carrying key.
func (s *Scheduler) Cancel(key Key) int {
	n := 0
	for _, t := range s.pending {
		if t.key == key && t.Running() {
			t.Cancel()
			n++
		}
	}
	return n
}

// IsRunning reports whether at least one live task carries key.
func (s *Scheduler) IsRunning(key Key) bool {
	for _, t := range s.pending {
		if t.key == key && t.Running() {
			return true
		}
	}
	return false
}

// Len returns the number of tasks in the pending set, including tasks
// cancelled since the last pass.
func (s *Scheduler) Len() int {
	return len(s.pending)
}

// CancelAll cancels every live task. Used at shutdown.
func (s *Scheduler) CancelAll() {
	for _, t := range s.pending {
		t.Cancel()
	}
}

func (s *Scheduler) execute(t *Task) {
	if err := safeCall(t, "execute", func() error { return t.exec.Execute(t) }); err != nil {
		s.fail(t, err)
	}
}

// fail logs err and hands it to the task's OnFailure hook. A panic in the
// hook itself is logged and dropped.
func (s *Scheduler) fail(t *Task, err error) {
	s.log.Error("任務執行失敗",
		zap.String("task", t.Name()),
		zap.Any("key", t.key),
		zap.Error(err),
	)
	h, ok := t.exec.(FailureHook)
	if !ok {
		return
	}
	if herr := safeCall(t, "failure hook", func() error { h.OnFailure(t, err); return nil }); herr != nil {
		s.log.Error("任務失敗處理器 panic", zap.String("task", t.Name()), zap.Error(herr))
	}
}

// safeCall runs fn with panic recovery so one broken task cannot take
// down the pass.
func safeCall(t *Task, what string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("task %s %s panic: %v", t.Name(), what, rec)
		}
	}()
	return fn()
}
