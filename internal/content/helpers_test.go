package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/l1jgo/tickworld/internal/data"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func tableOf(t *testing.T, npcs []data.NpcTemplate) *data.NpcTable {
	t.Helper()
	raw, err := yaml.Marshal(map[string]any{"npcs": npcs})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "npc_list.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	table, err := data.LoadNpcTable(path)
	require.NoError(t, err)
	return table
}

func shopTableOf(t *testing.T, shops []data.Shop) *data.ShopTable {
	t.Helper()
	raw, err := yaml.Marshal(map[string]any{"shops": shops})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "shop_list.yaml")
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	table, err := data.LoadShopTable(path)
	require.NoError(t, err)
	return table
}
