package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	env := ParseEnv([]string{
		"Shells__Tenant1__Configuration__Db__ConnectionString=from-env",
		"Shells__Tenant1__Configuration__Db__Pool__Size=20",
		"PATH=/usr/bin",
		"Shells__Tenant1__Db__ConnectionString=missing-configuration-segment",
		"Shells__Tenant1__Configuration__Db=no-property",
	})

	overrides := env.For("Tenant1", "Db")
	require.NotNil(t, overrides)
	assert.Equal(t, "from-env", overrides["ConnectionString"])
	assert.Equal(t, "20", overrides["Pool:Size"])
	assert.Len(t, overrides, 2)
}

func TestParseEnvCaseInsensitiveShellAndFeature(t *testing.T) {
	env := ParseEnv([]string{
		"Shells__TENANT1__Configuration__DB__ConnectionString=x",
	})

	overrides := env.For("tenant1", "db")
	require.NotNil(t, overrides)
	assert.Equal(t, "x", overrides["ConnectionString"])
}

func TestParseEnvNoMatches(t *testing.T) {
	env := ParseEnv([]string{"HOME=/root"})
	assert.Nil(t, env.For("Tenant1", "Db"))

	var nilEnv *EnvOverrides
	assert.Nil(t, nilEnv.For("Tenant1", "Db"))
}

func TestEnvOverridesReturnsCopy(t *testing.T) {
	env := ParseEnv([]string{
		"Shells__Tenant1__Configuration__Db__ConnectionString=x",
	})

	first := env.For("Tenant1", "Db")
	first["ConnectionString"] = "mutated"

	second := env.For("Tenant1", "Db")
	assert.Equal(t, "x", second["ConnectionString"])
}
