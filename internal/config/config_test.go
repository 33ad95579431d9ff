package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/delaycheck/internal/signal"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Stream{Device: "hw:0,0", PeriodSize: 64, PeriodCount: 4}, c.Capture)
	assert.Equal(t, Stream{Device: "hw:0,0", PeriodSize: 256, PeriodCount: 4}, c.Playback)
	assert.Equal(t, 44100, c.Rate)
	assert.Equal(t, 2, c.Channels)
	assert.Equal(t, "tone.wav", c.Signal.Path)
	assert.Equal(t, signal.Wrap, c.AtEnd())
	assert.Equal(t, 3000, c.Trial.Ceiling)
	assert.Equal(t, 500*time.Millisecond, c.Experiment.Settle)
	assert.Equal(t, 3000, c.Experiment.DrainBlocks)
	assert.Equal(t, "info", c.Log.Level)
	assert.Empty(t, c.Log.File)
	assert.Empty(t, c.Source, "no file was read")
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bench.yaml", `
capture:
  device: hw:CARD=sndrpisimplecar,DEV=0
  period_size: 32
playback:
  device: hw:1,0
rate: 48000
signal:
  path: /usr/share/delaycheck/click.wav
  at_end: silence
experiment:
  settle: 250ms
  drain_blocks: 100
log:
  level: debug
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Stream{Device: "hw:CARD=sndrpisimplecar,DEV=0", PeriodSize: 32, PeriodCount: 4}, c.Capture)
	assert.Equal(t, "hw:1,0", c.Playback.Device)
	assert.Equal(t, 256, c.Playback.PeriodSize, "unset keys keep their defaults")
	assert.Equal(t, 48000, c.Rate)
	assert.Equal(t, signal.Silence, c.AtEnd())
	assert.Equal(t, 250*time.Millisecond, c.Experiment.Settle)
	assert.Equal(t, 100, c.Experiment.DrainBlocks)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, path, c.Source)
}

func TestLoadWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "delaycheck.yaml", "trial:\n  ceiling: 1500\n")
	chdir(t, dir)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1500, c.Trial.Ceiling)
	assert.Equal(t, "delaycheck.yaml", filepath.Base(c.Source))
}

func TestLoadEnvironment(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bench.yaml", "capture:\n  period_size: 32\n")
	t.Setenv("DELAYCHECK_CAPTURE_PERIOD_SIZE", "128")
	t.Setenv("DELAYCHECK_LOG_LEVEL", "none")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 128, c.Capture.PeriodSize, "environment overrides the file")
	assert.Equal(t, "none", c.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err, "an explicit config file must exist")

	broken := writeFile(t, dir, "broken.yaml", "rate: [unterminated\n")
	_, err = Load(broken)
	assert.Error(t, err)

	invalid := writeFile(t, dir, "invalid.yaml", "rate: 0\nlog:\n  level: loud\n")
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate must be positive")
	assert.Contains(t, err.Error(), `log.level "loud"`)
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"capture device", func(c *Config) { c.Capture.Device = "" }, "capture.device is empty"},
		{"playback period", func(c *Config) { c.Playback.PeriodSize = 0 }, "playback.period_size"},
		{"period count", func(c *Config) { c.Capture.PeriodCount = 1 }, "capture.period_count"},
		{"channels", func(c *Config) { c.Channels = -1 }, "channels must be positive"},
		{"signal path", func(c *Config) { c.Signal.Path = "" }, "signal.path is empty"},
		{"end policy", func(c *Config) { c.Signal.AtEnd = "loop" }, "unknown end policy"},
		{"ceiling", func(c *Config) { c.Trial.Ceiling = 0 }, "trial.ceiling"},
		{"settle", func(c *Config) { c.Experiment.Settle = -time.Second }, "experiment.settle"},
		{"drain", func(c *Config) { c.Experiment.DrainBlocks = -1 }, "experiment.drain_blocks"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cc := *c
			tc.mutate(&cc)
			err := cc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	assert.NoError(t, c.Validate())
}
