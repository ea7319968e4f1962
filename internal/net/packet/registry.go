package packet

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	ErrEmptyPacket     = errors.New("empty packet")
	ErrStateNotAllowed = errors.New("opcode not allowed in session state")
)

// SessionState is the protocol phase of a session.
type SessionState int

const (
	StateConnected SessionState = iota // awaiting login
	StateInWorld                       // playing
	StateDisconnecting
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateInWorld:
		return "InWorld"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// stateSet is a bitmask of SessionState values.
type stateSet uint32

func statesOf(states []SessionState) stateSet {
	var set stateSet
	for _, s := range states {
		set |= 1 << s
	}
	return set
}

func (s stateSet) has(st SessionState) bool { return s&(1<<st) != 0 }

// Handler processes one packet for a session of type S.
type Handler[S any] func(sess S, r *Reader)

type route[S any] struct {
	fn      Handler[S]
	allowed stateSet
}

// Registry routes opcodes to handlers, gated by session state. Handlers are
// registered at startup and dispatched from the driver goroutine.
type Registry[S any] struct {
	routes  [256]*route[S]
	unknown atomic.Int64
	log     *zap.Logger
}

func NewRegistry[S any](log *zap.Logger) *Registry[S] {
	return &Registry[S]{log: log}
}

// Register binds opcode to fn for the given states, replacing any earlier binding.
func (reg *Registry[S]) Register(opcode byte, states []SessionState, fn Handler[S]) {
	reg.routes[opcode] = &route[S]{fn: fn, allowed: statesOf(states)}
}

// Unknown counts packets whose opcode had no handler.
func (reg *Registry[S]) Unknown() int64 { return reg.unknown.Load() }

// Dispatch runs the handler for data[0]. Unknown opcodes are dropped
// without error; a handler panic comes back as an error.
func (reg *Registry[S]) Dispatch(sess S, state SessionState, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyPacket
	}
	opcode := data[0]
	rt := reg.routes[opcode]
	if rt == nil {
		reg.unknown.Add(1)
		reg.log.Debug("未知操作碼", zap.Uint8("opcode", opcode), zap.Stringer("state", state))
		return nil
	}
	if !rt.allowed.has(state) {
		reg.log.Warn("操作碼在此狀態下不允許",
			zap.Uint8("opcode", opcode),
			zap.Stringer("state", state),
		)
		return fmt.Errorf("opcode %d in %s: %w", opcode, state, ErrStateNotAllowed)
	}
	return reg.safeCall(rt.fn, sess, NewReader(data), opcode)
}

func (reg *Registry[S]) safeCall(fn Handler[S], sess S, r *Reader, opcode byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("處理器 panic 已恢復",
				zap.Uint8("opcode", opcode),
				zap.Any("panic", rec),
			)
			err = fmt.Errorf("handler panic for opcode %d: %v", opcode, rec)
		}
	}()
	fn(sess, r)
	return nil
}
