package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandWiring(t *testing.T) {
	commands := rootCmd.Commands()

	var names []string
	for _, c := range commands {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "replay")
}

func TestReplayFlags(t *testing.T) {
	for _, name := range []string{"signals", "start", "end", "interval"} {
		flag := replayCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "flag %s missing", name)
	}

	// Required flags fail fast before any config is loaded
	replayCmd.SetArgs([]string{})
	err := replayCmd.ValidateRequiredFlags()
	assert.Error(t, err)
}

func TestRunFlags(t *testing.T) {
	flag := runCmd.Flags().Lookup("signals")
	require.NotNil(t, flag)
	assert.Equal(t, "s", flag.Shorthand)
}
