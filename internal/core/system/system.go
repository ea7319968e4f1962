package system

import "time"

// Phase orders the systems of one tick. Systems sharing a phase run in
// registration order.
type Phase int

const (
	PhaseInput    Phase = iota // 0: posted work + session packet queues
	PhaseEntities              // 1: movement, render, reset pipeline
	PhaseTasks                 // 2: scheduler sequence
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseEntities:
		return "entities"
	case PhaseTasks:
		return "tasks"
	default:
		return "unknown"
	}
}

// System is one stage of the tick.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// Func adapts a plain function to System.
type Func struct {
	P  Phase
	Fn func(dt time.Duration)
}

func (f Func) Phase() Phase            { return f.P }
func (f Func) Update(dt time.Duration) { f.Fn(dt) }
