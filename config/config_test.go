package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadMergesOverDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fpgrars.toml")
	contents := `
[execution]
max_cycles = 42

[display]
width = 640
height = 480
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.EqualValues(t, 42, cfg.Execution.MaxCycles)
	require.Equal(t, 640, cfg.Display.Width)
	require.Equal(t, 480, cfg.Display.Height)
	// Untouched fields keep their defaults.
	require.Equal(t, 2, cfg.Display.Scale)
	require.Equal(t, "main", cfg.Execution.Entry)
}

func TestSidecarPath(t *testing.T) {
	got := SidecarPath("/tmp/progs/fib.s")
	require.Equal(t, "/tmp/progs/fpgrars.toml", got)
}
