package system

import (
	"time"

	"github.com/l1jgo/tickworld/internal/core/event"
	coresys "github.com/l1jgo/tickworld/internal/core/system"
)

// EventSystem delivers the events queued during the previous tick. It runs
// in phase 0 ahead of input, so handlers see a world that is between ticks.
type EventSystem struct {
	bus *event.Bus
}

func NewEventSystem(bus *event.Bus) *EventSystem {
	return &EventSystem{bus: bus}
}

func (s *EventSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventSystem) Name() string { return "events" }

func (s *EventSystem) Update(_ time.Duration) { s.bus.Flush() }
