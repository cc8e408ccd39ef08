package cmds

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvVarsBindToHyphenatedFlags(t *testing.T) {
	t.Setenv("DEEPWIDE_API_URL", "http://from-env:9999")
	t.Setenv("DEEPWIDE_LOG_LEVEL", "debug")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, cmd.PersistentPreRunE(cmd, nil))

	assert.Equal(t, "http://from-env:9999", viper.GetString("api-url"))
	assert.Equal(t, "debug", viper.GetString("log-level"))
}

func TestEnvVarOverridesFlagDefault(t *testing.T) {
	t.Setenv("DEEPWIDE_DB", "/tmp/env.db")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, cmd.PersistentPreRunE(cmd, nil))

	assert.Equal(t, "/tmp/env.db", viper.GetString("db"))
}
