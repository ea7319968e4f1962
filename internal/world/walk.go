package world

// Step is one tile of movement, each component in [-1, 1].
type Step struct {
	DX int32
	DY int32
}

// maxQueuedSteps bounds a walking queue so a client cannot queue a path
// across the whole map.
const maxQueuedSteps = 50

// WalkingQueue holds the pending steps of a mob, consumed by the movement
// phase one (walking) or two (running) per tick.
type WalkingQueue struct {
	steps []Step
	head  int
}

// Add queues a single step. Steps beyond the queue limit are dropped.
func (q *WalkingQueue) Add(s Step) bool {
	if q.Len() >= maxQueuedSteps {
		return false
	}
	q.steps = append(q.steps, s)
	return true
}

// PathTo replaces the queue with a diagonal-first path from -> to.
func (q *WalkingQueue) PathTo(from, to Position) {
	q.Clear()
	if from.MapID != to.MapID {
		return
	}
	x, y := from.X, from.Y
	for (x != to.X || y != to.Y) && q.Len() < maxQueuedSteps {
		dx := sign32(to.X - x)
		dy := sign32(to.Y - y)
		q.steps = append(q.steps, Step{DX: dx, DY: dy})
		x += dx
		y += dy
	}
}

// Next pops the oldest step.
func (q *WalkingQueue) Next() (Step, bool) {
	if q.head >= len(q.steps) {
		q.Clear()
		return Step{}, false
	}
	s := q.steps[q.head]
	q.head++
	return s, true
}

func (q *WalkingQueue) Len() int { return len(q.steps) - q.head }

func (q *WalkingQueue) Clear() {
	q.steps = q.steps[:0]
	q.head = 0
}

func sign32(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
