package cmd

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestRootSubcommands(t *testing.T) {
	for _, name := range []string{"run", "migrate", "register-commands", "version"} {
		t.Run(name, func(t *testing.T) {
			c, args, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Empty(t, args)
			assert.Equal(t, name, c.Name())
		})
	}

	c, _, err := rootCmd.Find([]string{"register-commands"})
	require.NoError(t, err)
	assert.Same(t, registerCommandsCmd, c)
}
