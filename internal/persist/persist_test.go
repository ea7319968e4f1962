package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/tickworld/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "world.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, RunMigrations(ctx, db))
	return db
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, RunMigrations(context.Background(), db))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepo(openTestDB(t))

	_, err := repo.Authenticate(ctx, "alice", "pw", "127.0.0.1", false)
	assert.ErrorIs(t, err, ErrNotFound)

	acc, err := repo.Authenticate(ctx, "alice", "pw", "127.0.0.1", true)
	require.NoError(t, err)
	assert.Equal(t, "alice", acc.Name)
	assert.NotEqual(t, "pw", acc.PasswordHash)

	_, err = repo.Authenticate(ctx, "alice", "wrong", "127.0.0.1", true)
	assert.ErrorIs(t, err, ErrBadPassword)

	acc, err = repo.Authenticate(ctx, "alice", "pw", "10.0.0.2", false)
	require.NoError(t, err)
	assert.False(t, acc.Online)

	require.NoError(t, repo.SetOnline(ctx, "alice", true))
	require.NoError(t, repo.UpdateLastActive(ctx, "alice", "10.0.0.2"))
	acc, err = repo.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, acc.Online)
	assert.Equal(t, "10.0.0.2", acc.IP)

	n, err := repo.ResetOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBannedAccountIsRejected(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewAccountRepo(db)
	_, err := repo.Create(ctx, "mallory", "pw", "")
	require.NoError(t, err)
	_, err = db.X.ExecContext(ctx, db.rebind(`UPDATE accounts SET banned = ? WHERE name = ?`), true, "mallory")
	require.NoError(t, err)

	_, err = repo.Authenticate(ctx, "mallory", "pw", "", false)
	assert.ErrorIs(t, err, ErrBanned)
}

func TestCharacterLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := NewAccountRepo(db).Create(ctx, "bob", "pw", "")
	require.NoError(t, err)
	chars := NewCharacterRepo(db)

	_, err = chars.LoadByAccount(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)

	c := &CharacterRow{AccountName: "bob", Name: "Bob", X: 10, Y: 20, RunEnergy: 10000}
	require.NoError(t, chars.Create(ctx, c))
	assert.NotZero(t, c.ID)

	c.X, c.Y, c.Heading = 11, 21, 2
	require.NoError(t, chars.SaveCharacter(ctx, c))

	got, err := chars.LoadByAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int32(11), got.X)
	assert.Equal(t, int16(2), got.Heading)

	got.RunEnergy = 42
	require.NoError(t, chars.SaveBatch(ctx, []CharacterRow{*got}))
	byName, err := chars.LoadByName(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, int32(42), byName.RunEnergy)
}

func TestSaveQueueCommitsInEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	_, err := NewAccountRepo(db).Create(ctx, "carol", "pw", "")
	require.NoError(t, err)
	chars := NewCharacterRepo(db)
	c := &CharacterRow{AccountName: "carol", Name: "Carol"}
	require.NoError(t, chars.Create(ctx, c))

	q := NewSaveQueue(chars, 8, 5*time.Second)
	// Hold the only connection so every batch is queued before any commits.
	tx, err := db.X.BeginTxx(ctx, nil)
	require.NoError(t, err)
	var results []<-chan error
	for x := int32(1); x <= 5; x++ {
		row := *c
		row.X = x
		results = append(results, q.Enqueue([]CharacterRow{row}))
	}
	require.NoError(t, tx.Rollback())
	for _, done := range results {
		require.NoError(t, Wait(ctx, done))
	}

	got, err := chars.LoadByName(ctx, "Carol")
	require.NoError(t, err)
	assert.Equal(t, int32(5), got.X)

	assert.NoError(t, Wait(ctx, q.Enqueue(nil)))
	q.Close()
	q.Close()
	assert.ErrorIs(t, Wait(ctx, q.Enqueue([]CharacterRow{*c})), ErrQueueClosed)
}

func TestWaitGivesUpWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, make(chan error)), context.Canceled)
}
