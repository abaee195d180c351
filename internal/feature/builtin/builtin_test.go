package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shellhost/internal/feature"
	"shellhost/internal/settings"
	"shellhost/internal/shell"
)

func build(t *testing.T, sh settings.ShellSettings) *shell.Context {
	t.Helper()
	reg, err := feature.Discover(Modules())
	require.NoError(t, err)

	ctx, err := shell.NewBuilder(reg, nil, nil).Build(sh, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestDiscoverBuiltins(t *testing.T) {
	reg, err := feature.Discover(Modules())
	require.NoError(t, err)
	assert.Equal(t, []string{"Core", "Db", "Cache"}, reg.IDs())
}

func TestFullStack(t *testing.T) {
	ctx := build(t, settings.ShellSettings{
		ID: "Tenant1",
		Features: []settings.FeatureEntry{
			{Name: "Cache"},
		},
		Configuration: map[string]map[string]any{
			"Db": {"ConnectionString": "postgres://tenant1", "PoolSize": "16"},
		},
	})

	assert.Equal(t, []string{"Core", "Db", "Cache"}, ctx.FeatureOrder())

	identity, err := ctx.Container().Resolve("core.identity")
	require.NoError(t, err)
	assert.Equal(t, "Tenant1", identity.(*Identity).Shell)

	pool, err := ctx.Container().Resolve("db.pool")
	require.NoError(t, err)
	// Weakly typed binding converted the string "16".
	assert.Equal(t, 16, pool.(*Pool).Options.PoolSize)
	assert.Equal(t, "postgres://tenant1", pool.(*Pool).Options.ConnectionString)
	assert.Equal(t, "30s", pool.(*Pool).Options.Timeout)

	store, err := ctx.Container().Resolve("cache.store")
	require.NoError(t, err)
	assert.Equal(t, 1024, store.(*Store).MaxEntries)
	require.NoError(t, store.(*Store).Put("k", "v"))
	v, ok := store.(*Store).Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestDatabaseRequiresConnectionString(t *testing.T) {
	reg, err := feature.Discover(Modules())
	require.NoError(t, err)

	_, err = shell.NewBuilder(reg, nil, nil).Build(settings.ShellSettings{
		ID:       "Tenant1",
		Features: []settings.FeatureEntry{{Name: "Db"}},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ConnectionString")
}

func TestPoolDisposedWithShell(t *testing.T) {
	reg, err := feature.Discover(Modules())
	require.NoError(t, err)

	ctx, err := shell.NewBuilder(reg, nil, nil).Build(settings.ShellSettings{
		ID: "Tenant1",
		Features: []settings.FeatureEntry{
			{Name: "Db", Settings: map[string]any{"ConnectionString": "X"}},
		},
	}, nil)
	require.NoError(t, err)

	pool, err := ctx.Container().Resolve("db.pool")
	require.NoError(t, err)
	require.NoError(t, ctx.Close())
	assert.True(t, pool.(*Pool).Closed())
}
