package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const example = `
[engine]
max_bundle_depth = 4
frame_digest = true

[icq]
udp_ports = [4000, 4001]

[log]
level = "debug"
json = true

[capture]
workers = 8
snaplen = 1500
`

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Engine.MaxBundleDepth)
	assert.Equal(t, []uint16{4000}, cfg.ICQ.UDPPorts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1, cfg.Capture.Workers)
}

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(example))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Engine.MaxBundleDepth)
	assert.True(t, cfg.Engine.FrameDigest)
	assert.Equal(t, []uint16{4000, 4001}, cfg.ICQ.UDPPorts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 8, cfg.Capture.Workers)
	assert.Equal(t, 1500, cfg.Capture.Snaplen)
}

func TestDecodePartial(t *testing.T) {
	cfg, err := Decode(strings.NewReader("[capture]\nworkers = 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Capture.Workers)
	assert.Equal(t, Default().ICQ, cfg.ICQ, "missing sections keep defaults")
}

func TestDecodeErrors(t *testing.T) {
	var tests = []struct {
		doc  string
		want string
	}{
		{doc: "[engine]\nmax_depth = 3\n", want: "unknown keys: engine.max_depth"},
		{doc: "[engine]\nmax_bundle_depth = 0\n", want: "max_bundle_depth"},
		{doc: "[icq]\nudp_ports = []\n", want: "udp_ports is empty"},
		{doc: "[icq]\nudp_ports = [4000, 4000]\n", want: "4000 twice"},
		{doc: "[icq]\nudp_ports = [0]\n", want: "port 0"},
		{doc: "[log]\nlevel = \"loud\"\n", want: "log.level"},
		{doc: "[capture]\nworkers = 0\n", want: "capture.workers"},
		{doc: "[capture]\nsnaplen = -1\n", want: "capture.snaplen"},
		{doc: "[capture\n", want: ""},
	}
	for _, tc := range tests {
		_, err := Decode(strings.NewReader(tc.doc))
		require.Error(t, err, tc.doc)
		assert.Contains(t, err.Error(), tc.want, tc.doc)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icqdump.toml")
	require.NoError(t, os.WriteFile(path, []byte(example), 0o600))

	t.Setenv(EnvLogLevel, "trace")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "trace", cfg.Log.Level, "environment overrides file")

	t.Setenv(EnvLogLevel, "bogus")
	_, err = Load(path)
	assert.ErrorContains(t, err, "config load failed")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
