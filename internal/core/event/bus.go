package event

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Bus is a double-buffered event bus. Events emitted in tick N are
// delivered in tick N+1, in emission order, when the driver calls Flush at
// tick start. Emit and Flush are driver-goroutine only.
type Bus struct {
	mu       sync.Mutex // only protects handler registration
	front    []any
	back     []any
	handlers map[reflect.Type][]func(any)
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]func(any)),
		log:      log,
	}
}

// Emit queues an event for the next Flush. A nil bus drops it.
func Emit[T any](b *Bus, event T) {
	if b == nil {
		return
	}
	b.back = append(b.back, event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns the number of events waiting for the next Flush.
func (b *Bus) Pending() int { return len(b.back) }

// Flush rotates back→front and delivers every front event to its
// handlers. A panicking handler is logged and skipped. Events emitted by
// handlers wait for the following Flush. Returns the events delivered.
func (b *Bus) Flush() int {
	b.front, b.back = b.back, b.front[:0]

	b.mu.Lock()
	handlers := b.handlers
	b.mu.Unlock()

	for _, ev := range b.front {
		for _, h := range handlers[reflect.TypeOf(ev)] {
			if err := safeCall(h, ev); err != nil {
				b.log.Error("事件處理失敗",
					zap.String("event", reflect.TypeOf(ev).String()),
					zap.Error(err),
				)
			}
		}
	}
	n := len(b.front)
	clear(b.front)
	return n
}

func safeCall(h func(any), ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	h(ev)
	return nil
}
