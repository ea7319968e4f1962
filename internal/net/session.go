package net

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/l1jgo/tickworld/internal/net/packet"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// Session is one client connection. The read and write loops run on their
// own goroutines; outBuf belongs to whichever phase owns the session's
// player (input system or that player's update worker).
type Session struct {
	ID      uint64
	IP      string
	Account string // set once login starts

	InQueue  chan []byte // frames for the input system
	OutQueue chan []byte // frames for the write loop

	conn   net.Conn
	state  atomic.Int32 // packet.SessionState
	outBuf [][]byte
	limit  rateLimiter

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func NewSession(conn net.Conn, id uint64, opts Options, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		IP:       conn.RemoteAddr().String(),
		InQueue:  make(chan []byte, max(opts.InQueueSize, 1)),
		OutQueue: make(chan []byte, max(opts.OutQueueSize, 1)),
		conn:     conn,
		limit:    rateLimiter{perSec: opts.PktPerSec},
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Uint64("session", id)),
	}
	s.state.Store(int32(packet.StateConnected))
	return s
}

func (s *Session) State() packet.SessionState {
	return packet.SessionState(s.state.Load())
}

func (s *Session) SetState(st packet.SessionState) {
	s.state.Store(int32(st))
}

// Start launches the read and write loops.
func (s *Session) Start() {
	go s.readLoop()
	go s.writeLoop()
}

// Send buffers a packet until the next FlushOutput.
func (s *Session) Send(data []byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, data)
}

// Pending is the number of buffered, unflushed packets.
func (s *Session) Pending() int { return len(s.outBuf) }

// FlushOutput hands the buffered packets to the write loop. A client that
// cannot keep up (OutQueue full) is disconnected.
func (s *Session) FlushOutput() {
	defer func() {
		clear(s.outBuf)
		s.outBuf = s.outBuf[:0]
	}()
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("輸出佇列已滿，斷開慢速連線", zap.Int("pending", len(s.outBuf)))
			s.Close()
			return
		}
	}
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.closeCh }

// Close shuts the connection down. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.SetState(packet.StateDisconnecting)
		close(s.closeCh)
		s.conn.Close()
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) readLoop() {
	defer s.Close()

	for {
		payload, err := ReadFrame(s.conn)
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		if !s.limit.allow(time.Now()) {
			s.log.Warn("封包速率超限，斷開連線", zap.Int("pps", s.limit.count))
			return
		}

		// Block rather than drop: a lost walk packet desyncs the client.
		select {
		case s.InQueue <- payload:
		case <-s.closeCh:
			return
		}
	}
}

// writeLoop coalesces whatever is queued into one buffered write, so a
// tick's worth of packets usually costs a single syscall.
func (s *Session) writeLoop() {
	defer s.Close()

	var buf []byte
	for {
		select {
		case data := <-s.OutQueue:
			buf = s.appendQueued(buf[:0], data)
			if len(buf) == 0 {
				continue
			}
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if _, err := s.conn.Write(buf); err != nil {
				if !s.closed.Load() {
					s.log.Debug("寫入錯誤", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

// appendQueued frames first and every packet already waiting in OutQueue.
func (s *Session) appendQueued(buf, first []byte) []byte {
	data := first
	for {
		var err error
		if buf, err = AppendFrame(buf, data); err != nil {
			s.log.Warn("略過無效封包", zap.Error(err))
		}
		select {
		case data = <-s.OutQueue:
		default:
			return buf
		}
	}
}

// rateLimiter counts packets per wall-clock second. Read loop only.
type rateLimiter struct {
	perSec int // 0 = unlimited
	count  int
	second int64
}

func (l *rateLimiter) allow(now time.Time) bool {
	if l.perSec <= 0 {
		return true
	}
	if sec := now.Unix(); sec != l.second {
		l.second = sec
		l.count = 0
	}
	l.count++
	return l.count <= l.perSec
}
