package system

import (
	"time"

	coresys "github.com/l1jgo/tickworld/internal/core/system"
	"github.com/l1jgo/tickworld/internal/handler"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"go.uber.org/zap"
)

// SessionSource hands over freshly accepted sessions. Implemented by net.Server.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// InputSystem drains packet queues from all sessions and dispatches them
// through the packet registry. Phase 0 (Input).
type InputSystem struct {
	source     SessionSource
	registry   *packet.Registry[*net.Session]
	store      *net.SessionStore
	deps       *handler.Deps
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(
	source SessionSource,
	registry *packet.Registry[*net.Session],
	store *net.SessionStore,
	deps *handler.Deps,
	maxPerTick int,
	log *zap.Logger,
) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 10
	}
	return &InputSystem{
		source:     source,
		registry:   registry,
		store:      store,
		deps:       deps,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Name() string { return "input" }

func (s *InputSystem) Update(_ time.Duration) {
	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.store.Add(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	s.store.Each(func(sess *net.Session) {
		if sess.IsClosed() {
			// Packets sent just before the disconnect still count.
			s.drain(sess)
			sess.FlushOutput()
			handler.Leave(sess, s.deps)
			s.store.Remove(sess.ID)
			return
		}
		if s.drain(sess) > 0 && sess.State() == packet.StateInWorld {
			if p := s.deps.Online.Player(sess.ID); p != nil {
				p.Dirty = true
			}
		}
	})

	// Login results and other replies go out now; in-world players are
	// flushed again by the render pass.
	s.store.Each(func(sess *net.Session) {
		sess.FlushOutput()
	})
}

// drain dispatches up to maxPerTick queued packets and returns how many ran.
func (s *InputSystem) drain(sess *net.Session) int {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case data := <-sess.InQueue:
			if err := s.registry.Dispatch(sess, sess.State(), data); err != nil {
				s.log.Debug("封包分派錯誤",
					zap.Uint64("session", sess.ID),
					zap.Error(err),
				)
			}
		default:
			return i
		}
	}
	return s.maxPerTick
}

// SessionCount returns the current number of active sessions.
func (s *InputSystem) SessionCount() int {
	return s.store.Count()
}
