package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenNested(t *testing.T) {
	flat := Flatten(map[string]any{
		"Db": map[string]any{
			"ConnectionString": "X",
			"Pool": map[string]any{
				"Size": 10,
			},
		},
		"Enabled": true,
	})

	assert.Equal(t, "X", flat["Db:ConnectionString"])
	assert.Equal(t, 10, flat["Db:Pool:Size"])
	assert.Equal(t, true, flat["Enabled"])
}

func TestExpandRoundTrip(t *testing.T) {
	nested := Expand(map[string]any{
		"Db:ConnectionString": "X",
		"Db:Pool:Size":        10,
	})

	db, ok := nested["Db"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "X", db["ConnectionString"])
	pool, ok := db["Pool"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 10, pool["Size"])
}

func allTiers() Tiers {
	return Tiers{
		Env:      map[string]string{"ConnectionString": "env"},
		Inline:   map[string]any{"ConnectionString": "inline"},
		Shell:    map[string]any{"ConnectionString": "shell"},
		Root:     map[string]any{"ConnectionString": "root"},
		Defaults: map[string]any{"ConnectionString": "default"},
	}
}

func TestMergePrecedenceOrder(t *testing.T) {
	// Peel tiers off highest-first; the winner falls through in order.
	tiers := allTiers()

	eff := Merge("Tenant1", "Db", tiers)
	assert.Equal(t, "env", eff.String("ConnectionString"))

	tiers.Env = nil
	eff = Merge("Tenant1", "Db", tiers)
	assert.Equal(t, "inline", eff.String("ConnectionString"))

	tiers.Inline = nil
	eff = Merge("Tenant1", "Db", tiers)
	assert.Equal(t, "shell", eff.String("ConnectionString"))

	tiers.Shell = nil
	eff = Merge("Tenant1", "Db", tiers)
	assert.Equal(t, "root", eff.String("ConnectionString"))

	tiers.Root = nil
	eff = Merge("Tenant1", "Db", tiers)
	assert.Equal(t, "default", eff.String("ConnectionString"))
}

func TestMergePerProperty(t *testing.T) {
	// A lower tier supplies a property the higher tiers leave unset.
	eff := Merge("Tenant1", "Db", Tiers{
		Env:      map[string]string{"ConnectionString": "env"},
		Defaults: map[string]any{"PoolSize": 5},
	})

	assert.Equal(t, "env", eff.String("ConnectionString"))
	v, ok := eff.Value("PoolSize")
	require.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestMergeCaseInsensitiveProperties(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Inline:   map[string]any{"connectionstring": "inline"},
		Defaults: map[string]any{"ConnectionString": "default"},
	})

	assert.Equal(t, "inline", eff.String("ConnectionString"))
	assert.Equal(t, "inline", eff.String("connectionstring"))
	assert.Len(t, eff.Paths(), 1)
}

func TestMergeInlineBeatsRoot(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Inline: map[string]any{"ConnectionString": "X"},
		Root:   map[string]any{"ConnectionString": "Y"},
	})
	assert.Equal(t, "X", eff.String("ConnectionString"))
}

type dbOptions struct {
	ConnectionString string
	PoolSize         int
	ReadOnly         bool
}

func TestBindWeaklyTyped(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Env:      map[string]string{"PoolSize": "25", "ReadOnly": "true"},
		Defaults: map[string]any{"ConnectionString": "default"},
	})

	var opts dbOptions
	require.NoError(t, eff.Bind(&opts))
	assert.Equal(t, "default", opts.ConnectionString)
	assert.Equal(t, 25, opts.PoolSize)
	assert.True(t, opts.ReadOnly)
}

func TestBindSoftConversionFailure(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Env:      map[string]string{"PoolSize": "not-a-number"},
		Defaults: map[string]any{"ConnectionString": "default"},
	})

	opts := dbOptions{PoolSize: 8}
	require.NoError(t, eff.Bind(&opts))
	// The unconvertible property falls back to the target's value.
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, "default", opts.ConnectionString)
}

func TestBindShedsAllOffenders(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Env:      map[string]string{"PoolSize": "many", "Retries": "few"},
		Defaults: map[string]any{"ConnectionString": "default"},
	})

	opts := struct {
		ConnectionString string
		PoolSize         int
		Retries          int
	}{PoolSize: 8, Retries: 2}
	require.NoError(t, eff.Bind(&opts))

	// Every unconvertible property falls back; none escalates to an error.
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2, opts.Retries)
	assert.Equal(t, "default", opts.ConnectionString)
}

func TestBindShedsShapeMismatch(t *testing.T) {
	// A scalar where the target expects a block is shed like any other
	// conversion failure, even though the decoder words it differently.
	eff := Merge("Tenant1", "Db", Tiers{
		Shell: map[string]any{"Pool": "not-a-block"},
	})

	var opts nestedOptions
	opts.Pool.Size = 3
	require.NoError(t, eff.Bind(&opts))
	assert.Equal(t, 3, opts.Pool.Size)
}

type nestedOptions struct {
	Pool struct {
		Size int
	}
}

func TestBindNestedSoftFailure(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Shell: map[string]any{"Pool": map[string]any{"Size": "bogus"}},
	})

	var opts nestedOptions
	opts.Pool.Size = 3
	require.NoError(t, eff.Bind(&opts))
	assert.Equal(t, 3, opts.Pool.Size)
}

func TestValidateRequired(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Defaults: map[string]any{"ConnectionString": ""},
	})

	err := Validate(eff, Require("ConnectionString"), Require("ApiKey"))
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Tenant1", verr.Shell)
	assert.Equal(t, "Db", verr.Feature)
	// Both validators ran; problems are aggregated, not short-circuited.
	assert.Len(t, verr.Problems, 2)
}

func TestValidatePasses(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{
		Inline: map[string]any{"ConnectionString": "X"},
	})
	assert.NoError(t, Validate(eff, Require("ConnectionString")))
}

func TestValidateNoValidators(t *testing.T) {
	eff := Merge("Tenant1", "Db", Tiers{})
	assert.NoError(t, Validate(eff))
	assert.NoError(t, Validate(eff, nil))
}
