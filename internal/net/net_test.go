package net

import (
	"bytes"
	gonet "net"
	"testing"
	"time"

	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte{packet.C_OPCODE_QUIT, 7}))
	assert.Equal(t, []byte{4, 0, packet.C_OPCODE_QUIT, 7}, buf.Bytes())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{packet.C_OPCODE_QUIT, 7}, got)

	_, err = ReadFrame(bytes.NewReader([]byte{2, 0}))
	assert.Error(t, err)
	assert.Error(t, WriteFrame(&buf, nil))
}

func TestSessionQueuesAndFlush(t *testing.T) {
	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 1, Options{InQueueSize: 4, OutQueueSize: 4}, zap.NewNop())
	sess.Start()
	defer sess.Close()

	go func() { _ = WriteFrame(client, []byte{packet.C_OPCODE_CHAT, 'h', 'i', 0}) }()
	select {
	case in := <-sess.InQueue:
		assert.Equal(t, packet.C_OPCODE_CHAT, in[0])
	case <-time.After(time.Second):
		t.Fatal("no inbound packet")
	}

	sess.Send([]byte{packet.S_OPCODE_MESSAGE, 0})
	assert.Equal(t, 1, sess.Pending())
	sess.FlushOutput()
	assert.Zero(t, sess.Pending())

	client.SetReadDeadline(time.Now().Add(time.Second))
	out, err := ReadFrame(client)
	require.NoError(t, err)
	assert.Equal(t, []byte{packet.S_OPCODE_MESSAGE, 0}, out)
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	_, server := gonet.Pipe()
	sess := NewSession(server, 2, Options{InQueueSize: 1, OutQueueSize: 1}, zap.NewNop())
	sess.Close()
	sess.Close()
	assert.True(t, sess.IsClosed())
	assert.Equal(t, packet.StateDisconnecting, sess.State())

	sess.Send([]byte{1})
	assert.Zero(t, sess.Pending())
}

func TestSessionStoreIteratesInIDOrder(t *testing.T) {
	st := NewSessionStore()
	for _, id := range []uint64{3, 1, 2} {
		_, c := gonet.Pipe()
		st.Add(NewSession(c, id, Options{}, zap.NewNop()))
	}
	var ids []uint64
	st.Each(func(s *Session) {
		ids = append(ids, s.ID)
		st.Remove(s.ID)
	})
	assert.Equal(t, []uint64{1, 2, 3}, ids)
	assert.Zero(t, st.Count())
}

func TestWriteLoopDeliversFlushedPacketsInOrder(t *testing.T) {
	client, server := gonet.Pipe()
	defer client.Close()
	sess := NewSession(server, 4, Options{InQueueSize: 1, OutQueueSize: 8}, zap.NewNop())
	sess.Start()
	defer sess.Close()

	for i := byte(1); i <= 3; i++ {
		sess.Send([]byte{packet.S_OPCODE_MESSAGE, i})
	}
	sess.FlushOutput()

	client.SetReadDeadline(time.Now().Add(time.Second))
	for i := byte(1); i <= 3; i++ {
		out, err := ReadFrame(client)
		require.NoError(t, err)
		assert.Equal(t, []byte{packet.S_OPCODE_MESSAGE, i}, out)
	}
}

func TestRateLimiterResetsEachSecond(t *testing.T) {
	l := rateLimiter{perSec: 2}
	now := time.Unix(100, 0)
	assert.True(t, l.allow(now))
	assert.True(t, l.allow(now.Add(500*time.Millisecond)))
	assert.False(t, l.allow(now.Add(900*time.Millisecond)))
	assert.True(t, l.allow(now.Add(time.Second)))

	unlimited := rateLimiter{}
	for i := 0; i < 100; i++ {
		require.True(t, unlimited.allow(now))
	}
}
