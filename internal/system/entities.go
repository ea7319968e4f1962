package system

import (
	"time"

	coresys "github.com/l1jgo/tickworld/internal/core/system"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/core/update"
)

// EntitySystem runs the movement, render and reset pipeline. Phase 1.
type EntitySystem struct {
	service update.Service
}

func NewEntitySystem(svc update.Service) *EntitySystem {
	return &EntitySystem{service: svc}
}

func (s *EntitySystem) Phase() coresys.Phase { return coresys.PhaseEntities }

func (s *EntitySystem) Name() string { return "entities/" + s.service.Name() }

func (s *EntitySystem) Update(_ time.Duration) { s.service.Execute() }

// TaskSystem advances the scheduler by one tick. Phase 2.
type TaskSystem struct {
	sched *task.Scheduler
}

func NewTaskSystem(sched *task.Scheduler) *TaskSystem {
	return &TaskSystem{sched: sched}
}

func (s *TaskSystem) Phase() coresys.Phase { return coresys.PhaseTasks }

func (s *TaskSystem) Name() string { return "tasks" }

func (s *TaskSystem) Update(_ time.Duration) { s.sched.Sequence() }
