package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_NoPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileOverlaysDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "transport: actisense\ndevice: /dev/ttyUSB0\nbaud: 115200\ndevice_name: 4660\ninitial_src: 42\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "actisense", cfg.Transport)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Device)
	assert.Equal(t, uint64(4660), cfg.DeviceName)
	assert.Equal(t, uint8(42), cfg.InitialSrc)
	// Untouched defaults survive the overlay.
	assert.Equal(t, ":9400", cfg.MetricsAddr)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
