package system

import (
	"context"
	stdnet "net"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/core/event"
	coresys "github.com/l1jgo/tickworld/internal/core/system"
	"github.com/l1jgo/tickworld/internal/core/task"
	"github.com/l1jgo/tickworld/internal/handler"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/l1jgo/tickworld/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type chanSource chan *net.Session

func (c chanSource) NewSessions() <-chan *net.Session { return c }

func newTestSession(t *testing.T, id uint64) *net.Session {
	t.Helper()
	client, server := stdnet.Pipe()
	t.Cleanup(func() { client.Close() })
	return net.NewSession(server, id, net.Options{InQueueSize: 8, OutQueueSize: 16}, zap.NewNop())
}

func newInput(t *testing.T, maxPerTick int) (*InputSystem, chanSource, *handler.Deps, *[]byte) {
	t.Helper()
	log := zap.NewNop()
	deps := &handler.Deps{
		Log:       log,
		World:     world.New(world.Options{}, log),
		Scheduler: task.NewScheduler(log),
		Online:    handler.NewOnline(),
	}
	var seen []byte
	reg := packet.NewRegistry[*net.Session](log)
	reg.Register(packet.C_OPCODE_CHAT,
		[]packet.SessionState{packet.StateConnected, packet.StateInWorld, packet.StateDisconnecting},
		func(_ *net.Session, r *packet.Reader) { seen = append(seen, r.ReadC()) },
	)
	src := make(chanSource, 4)
	return NewInputSystem(src, reg, net.NewSessionStore(), deps, maxPerTick, log), src, deps, &seen
}

func TestInputDispatchesBoundedPerTick(t *testing.T) {
	in, src, _, seen := newInput(t, 2)
	sess := newTestSession(t, 1)
	src <- sess
	for i := byte(1); i <= 3; i++ {
		sess.InQueue <- []byte{packet.C_OPCODE_CHAT, i}
	}

	in.Update(0)
	assert.Equal(t, 1, in.SessionCount())
	assert.Equal(t, []byte{1, 2}, *seen)

	in.Update(0)
	assert.Equal(t, []byte{1, 2, 3}, *seen)
}

func TestInputDrainsAndRemovesClosedSession(t *testing.T) {
	in, src, deps, seen := newInput(t, 10)
	sess := newTestSession(t, 1)
	src <- sess
	in.Update(0)

	require.True(t, deps.Online.Reserve("alice", sess.ID))
	sess.Account = "alice"
	sess.InQueue <- []byte{packet.C_OPCODE_CHAT, 9}
	sess.Close()

	in.Update(0)
	assert.Equal(t, []byte{9}, *seen)
	assert.Zero(t, in.SessionCount())
	assert.Zero(t, deps.Online.Accounts())
}

func TestInputMarksActivePlayersDirty(t *testing.T) {
	in, src, deps, _ := newInput(t, 10)
	sess := newTestSession(t, 1)
	src <- sess
	p := world.NewPlayer(1, "alice", world.Position{})
	deps.Online.Bind(sess.ID, p)
	sess.SetState(packet.StateInWorld)

	in.Update(0)
	assert.False(t, p.Dirty)

	sess.InQueue <- []byte{packet.C_OPCODE_CHAT, 1}
	in.Update(0)
	assert.True(t, p.Dirty)
}

type countingService struct{ runs int }

func (s *countingService) Name() string { return "counting" }
func (s *countingService) Execute()     { s.runs++ }
func (s *countingService) Close() error { return nil }

func TestSystemsRunInPhaseOrder(t *testing.T) {
	sched := task.NewScheduler(zap.NewNop())
	svc := &countingService{}
	var order []string
	sched.Submit(task.NewFunc(1, func(*task.Task) error {
		order = append(order, "task")
		return nil
	}))

	r := coresys.NewRunner()
	r.Register(NewTaskSystem(sched))
	r.Register(NewEntitySystem(svc))
	r.Register(coresys.Func{P: coresys.PhaseEntities, Fn: func(time.Duration) {
		order = append(order, "entities")
	}})
	r.Tick(0)

	assert.Equal(t, 1, svc.runs)
	assert.Equal(t, []string{"entities", "task"}, order)
}

func TestEventsQueuedInTickArriveBeforeNextInput(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	var order []string
	event.Subscribe(bus, func(e event.PlayerLeft) { order = append(order, "left "+e.Player.Name) })

	r := coresys.NewRunner()
	r.Register(NewEventSystem(bus))
	r.Register(coresys.Func{P: coresys.PhaseInput, Fn: func(time.Duration) {
		order = append(order, "input")
	}})
	r.Register(coresys.Func{P: coresys.PhaseTasks, Fn: func(time.Duration) {
		if len(order) == 1 {
			event.Emit(bus, event.PlayerLeft{Player: world.NewPlayer(1, "ann", world.Position{})})
		}
	}})

	r.Tick(0)
	assert.Equal(t, []string{"input"}, order)
	r.Tick(0)
	assert.Equal(t, []string{"input", "left ann", "input"}, order)
}

func openTestDB(t *testing.T) *persist.DB {
	t.Helper()
	ctx := context.Background()
	db, err := persist.NewDB(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "world.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persist.RunMigrations(ctx, db))
	return db
}

func newSaveQueue(t *testing.T, repo *persist.CharacterRepo) *persist.SaveQueue {
	t.Helper()
	q := persist.NewSaveQueue(repo, 16, 5*time.Second)
	t.Cleanup(q.Close)
	return q
}

func addSavedPlayer(t *testing.T, w *world.World, repo *persist.CharacterRepo, name string) *world.Player {
	t.Helper()
	row := &persist.CharacterRow{AccountName: name, Name: name, X: 1, Y: 1}
	require.NoError(t, repo.Create(context.Background(), row))
	p := world.NewPlayer(row.ID, name, world.Position{X: 1, Y: 1})
	p.Account = name
	require.NoError(t, w.AddPlayer(p))
	return p
}

func TestAutosaveWritesDirtyPlayersOnly(t *testing.T) {
	log := zap.NewNop()
	repo := persist.NewCharacterRepo(openTestDB(t))
	w := world.New(world.Options{}, log)
	sched := task.NewScheduler(log)

	moved := addSavedPlayer(t, w, repo, "alice")
	idle := addSavedPlayer(t, w, repo, "bob")
	moved.Pos = world.Position{X: 50, Y: 60}
	moved.Dirty = true
	idle.Pos = world.Position{X: 70, Y: 80}

	a := NewAutosave(w, newSaveQueue(t, repo), log)
	sched.Submit(a.Task(2))
	sched.Sequence()
	require.NoError(t, a.Flush(context.Background()))
	assert.Zero(t, a.Saved())
	sched.Sequence()

	require.NoError(t, a.Flush(context.Background()))
	assert.Equal(t, int64(1), a.Saved())
	assert.False(t, moved.Dirty)

	row, err := repo.LoadByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(50), row.X)
	row, err = repo.LoadByName(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, int32(1), row.X, "clean player not written")
	assert.True(t, sched.IsRunning(a), "autosave keeps running")
}

func TestFailedAutosaveBatchIsRetried(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	db := openTestDB(t)
	repo := persist.NewCharacterRepo(db)
	w := world.New(world.Options{}, zap.NewNop())
	p := addSavedPlayer(t, w, repo, "alice")
	gone := addSavedPlayer(t, w, repo, "bob")
	a := NewAutosave(w, newSaveQueue(t, repo), zap.New(core))

	_, err := db.X.ExecContext(ctx, `ALTER TABLE characters RENAME TO characters_away`)
	require.NoError(t, err)
	p.Pos = world.Position{X: 50, Y: 60}
	p.Dirty = true
	gone.Dirty = true
	require.NoError(t, a.Execute(nil))
	assert.False(t, p.Dirty, "cleared once the row is copied")
	require.NoError(t, w.RemovePlayer(gone))

	assert.Error(t, a.Flush(ctx))
	assert.True(t, p.Dirty, "failed write marks the player dirty again")
	assert.False(t, gone.Dirty, "a player who left is not re-marked")
	assert.Zero(t, a.Saved())
	assert.Equal(t, 1, logs.FilterMessage("自動存檔失敗").Len())

	_, err = db.X.ExecContext(ctx, `ALTER TABLE characters_away RENAME TO characters`)
	require.NoError(t, err)
	require.NoError(t, a.Execute(nil))
	require.NoError(t, a.Flush(ctx))
	assert.Equal(t, int64(1), a.Saved())
	assert.False(t, p.Dirty)

	row, err := repo.LoadByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(50), row.X)
}

func TestLogoutSaveCommitsAfterEarlierAutosave(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()
	db := openTestDB(t)
	repo := persist.NewCharacterRepo(db)
	saves := newSaveQueue(t, repo)
	w := world.New(world.Options{}, log)
	deps := &handler.Deps{
		AccountRepo: persist.NewAccountRepo(db),
		CharRepo:    repo,
		Saves:       saves,
		Log:         log,
		World:       w,
		Scheduler:   task.NewScheduler(log),
		Online:      handler.NewOnline(),
	}
	a := NewAutosave(w, saves, log)

	p := addSavedPlayer(t, w, repo, "alice")
	sess := newTestSession(t, 1)
	require.True(t, deps.Online.Reserve("alice", sess.ID))
	sess.Account = "alice"
	deps.Online.Bind(sess.ID, p)

	// The test db has a single connection; holding it stalls the writer so
	// both batches are queued before either commits.
	tx, err := db.X.BeginTxx(ctx, nil)
	require.NoError(t, err)

	p.Pos = world.Position{X: 50, Y: 50}
	p.Dirty = true
	require.NoError(t, a.Execute(nil))
	p.Pos = world.Position{X: 60, Y: 60}
	sess.Close()
	done := handler.Leave(sess, deps)
	require.NotNil(t, done)
	assert.Equal(t, 1, deps.Online.Accounts(), "reserved while saving")

	require.NoError(t, tx.Rollback())
	<-done
	require.NoError(t, a.Flush(ctx))
	assert.Zero(t, deps.Online.Accounts())

	row, err := repo.LoadByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(60), row.X, "logout snapshot wins over the older autosave")
}

func TestSaveAllIgnoresDirtyFlag(t *testing.T) {
	log := zap.NewNop()
	repo := persist.NewCharacterRepo(openTestDB(t))
	w := world.New(world.Options{}, log)
	p := addSavedPlayer(t, w, repo, "alice")
	p.Pos = world.Position{X: 9, Y: 9}

	a := NewAutosave(w, newSaveQueue(t, repo), log)
	require.NoError(t, a.SaveAll(context.Background()))
	assert.Equal(t, int64(1), a.Saved())

	row, err := repo.LoadByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int32(9), row.X)
}
