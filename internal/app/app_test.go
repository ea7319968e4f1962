package app

import (
	"context"
	stdnet "net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/l1jgo/tickworld/internal/config"
	"github.com/l1jgo/tickworld/internal/net"
	"github.com/l1jgo/tickworld/internal/net/packet"
	"github.com/l1jgo/tickworld/internal/persist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testNpcs = `npcs:
  - {npc_id: 45001, name: goblin, gfx_id: 1110, hp: 40, behavior: wander, walk_radius: 4}
  - {npc_id: 70001, name: merchant, gfx_id: 1200, hp: 100}
`
	testSpawns = `spawns:
  - {npc_id: 45001, map_id: 0, x: 102, y: 102, count: 3}
  - {npc_id: 70001, map_id: 0, x: 101, y: 99}
`
	testShops = `shops:
  - id: 1
    npc_id: 70001
    name: general store
    items:
      - {item_id: 40010, price: 30, max_stock: 5}
`
	testScript = `
logins = 0
function on_login(p)
  logins = logins + 1
end
`
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"data/npc_list.yaml":   testNpcs,
		"data/spawn_list.yaml": testSpawns,
		"data/shop_list.yaml":  testShops,
		"scripts/on_login.lua": testScript,
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	cfg := config.Default()
	cfg.Tick.Period = 20 * time.Millisecond
	cfg.Tick.Workers = 2
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(dir, "world.db")
	cfg.Network.BindAddress = "127.0.0.1:0"
	cfg.Content.DataDir = filepath.Join(dir, "data")
	cfg.Content.ScriptsDir = filepath.Join(dir, "scripts")
	return cfg
}

func openDB(t *testing.T, cfg *config.Config) *persist.DB {
	t.Helper()
	ctx := context.Background()
	db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, persist.RunMigrations(ctx, db))
	return db
}

func TestBuildWiresSystemsAndContent(t *testing.T) {
	cfg := testConfig(t)
	a, cleanup, err := Build(cfg, openDB(t, cfg), zap.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 4, a.Runner.Len())
	assert.Equal(t, "concurrent", a.Update.Name())
	assert.True(t, a.Scheduler.IsRunning(a.Autosave), "autosave task submitted")

	n, err := a.Populate()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, a.World.Npcs.Size())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Driver.Step())
	}
	assert.Equal(t, uint64(5), a.Driver.Ticks())
}

func TestBuildRejectsUnknownStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tick.Strategy = "bogus"
	_, _, err := Build(cfg, openDB(t, cfg), zap.NewNop())
	assert.Error(t, err)
}

func TestClientLoginReceivesWorldUpdates(t *testing.T) {
	cfg := testConfig(t)
	db := openDB(t, cfg)
	a, cleanup, err := Build(cfg, db, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	_, err = a.Populate()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	conn, err := stdnet.Dial("tcp", a.Server.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	login := packet.NewWriterWithOpcode(packet.C_OPCODE_LOGIN)
	login.WriteS("alice")
	login.WriteS("secret")
	require.NoError(t, net.WriteFrame(conn, login.Bytes()))

	frame, err := net.ReadFrame(conn)
	require.NoError(t, err)
	r := packet.NewReader(frame)
	require.Equal(t, packet.S_OPCODE_LOGIN_RESULT, r.Opcode())
	require.Equal(t, packet.LoginOK, r.ReadC())

	frame, err = net.ReadFrame(conn)
	require.NoError(t, err)
	r = packet.NewReader(frame)
	assert.Equal(t, packet.S_OPCODE_UPDATE, r.Opcode())
	assert.Equal(t, cfg.World.StartX, r.ReadD())
	assert.Equal(t, cfg.World.StartY, r.ReadD())

	walk := packet.NewWriterWithOpcode(packet.C_OPCODE_WALK)
	walk.WriteD(cfg.World.StartX + 2)
	walk.WriteD(cfg.World.StartY)
	walk.WriteC(0)
	require.NoError(t, net.WriteFrame(conn, walk.Bytes()))

	// Keep reading updates until the walk shows up.
	require.Eventually(t, func() bool {
		frame, err := net.ReadFrame(conn)
		if err != nil {
			return false
		}
		r := packet.NewReader(frame)
		return r.Opcode() == packet.S_OPCODE_UPDATE && r.ReadD() == cfg.World.StartX+2
	}, 5*time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, a.Shutdown(context.Background()))

	row, err := persist.NewCharacterRepo(db).LoadByAccount(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, cfg.World.StartX+2, row.X)
}
