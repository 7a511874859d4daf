package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootRegistersCommands(t *testing.T) {
	for _, name := range []string{"init", "start", "stop", "status", "version", "completion", "config", "user", "backup"} {
		t.Run(name, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, cmd.Name())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	defer versionCmd.SetOut(nil)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, buf.String(), "dittoftp 1.2.3")
}

func TestInitCommandWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	rootCmd.SetArgs([]string{"init", "--config", path})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "storage_root")

	// A second run without --force refuses to overwrite.
	rootCmd.SetArgs([]string{"init", "--config", path})
	assert.Error(t, Execute())
	initForce = false
}
