package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/delaycheck/internal/experiment"
	"github.com/gen2brain/delaycheck/internal/trial"
)

func TestParseCount(t *testing.T) {
	n, err := parseCount("25")
	assert.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, s := range []string{"", "0", "-4", "ten", "12abc", "1.5"} {
		_, err := parseCount(s)
		assert.Error(t, err, "%q must be rejected", s)
	}
}

func TestRunUsage(t *testing.T) {
	for name, args := range map[string][]string{
		"missing":  nil,
		"extra":    {"3", "4"},
		"zero":     {"0"},
		"negative": {"-2"},
		"garbage":  {"three"},
		"flag":     {"-verbose", "3"},
	} {
		t.Run(name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, exitUsage, run(args, &stdout, &stderr))
			assert.Contains(t, stderr.String(), "Usage: delaycheck <NUMBER_OF_TEST_REPETITIONS>")
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRunSetupFailures(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	t.Run("config", func(t *testing.T) {
		t.Setenv("DELAYCHECK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitFailure, run([]string{"3"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "Error loading configuration")
	})

	t.Run("invalid config", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("DELAYCHECK_TRIAL_CEILING", "0")

		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitFailure, run([]string{"3"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "trial.ceiling")
	})

	t.Run("signal", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("DELAYCHECK_LOG_LEVEL", "none")

		var stdout, stderr bytes.Buffer
		assert.Equal(t, exitFailure, run([]string{"3"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "Error opening test signal")
		assert.Empty(t, stdout.String())
	})
}

// loopback stands in for the signal and both devices. Each trial captures a peak on its first
// read when found[trial] is set.
type loopback struct {
	found []bool
	trial int
	fresh bool
	err   error
}

func (l *loopback) Reset() error {
	l.trial++
	l.fresh = true
	return nil
}

func (l *loopback) NextBlock(dst []int16) error {
	clear(dst)
	return nil
}

func (l *loopback) WriteBlock([]int16) error { return nil }

func (l *loopback) ReadBlock(block []int16) error {
	if l.err != nil {
		return l.err
	}

	clear(block)
	if l.fresh && l.trial <= len(l.found) && l.found[l.trial-1] {
		block[1] = 30000
	}
	l.fresh = false

	return nil
}

func loopbackDriver(l *loopback, stdout *bytes.Buffer) *experiment.Driver {
	return &experiment.Driver{
		Runner:      trial.NewRunner(5, 4, 4),
		Source:      l,
		Player:      l,
		Capturer:    l,
		DrainBlocks: 1,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		Out:         stdout,
	}
}

func TestReport(t *testing.T) {
	t.Run("summary", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		d := loopbackDriver(&loopback{found: []bool{true, false, true}}, &stdout)

		assert.Equal(t, exitOK, report(context.Background(), d, 3, slog.Default(), &stdout, &stderr))
		assert.Empty(t, stderr.String())

		out := stdout.String()
		assert.Equal(t, 2, strings.Count(out, "Peak found\nDelay: "))
		assert.Equal(t, 1, strings.Count(out, "Peak not found\n"))

		lines := strings.Split(strings.TrimSpace(out), "\n")
		last := lines[len(lines)-1]
		assert.True(t, strings.HasPrefix(last, "Min: "), "summary is printed last, got %q", last)
		assert.Contains(t, last, " avg: ")
		assert.Contains(t, last, " median: ")
	})

	t.Run("no successful trials", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		d := loopbackDriver(&loopback{}, &stdout)

		assert.Equal(t, exitNoResults, report(context.Background(), d, 2, slog.Default(), &stdout, &stderr))
		assert.Equal(t, "Peak not found\nPeak not found\nno successful trials\n", stdout.String())
		assert.Empty(t, stderr.String())
	})

	t.Run("device error", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		d := loopbackDriver(&loopback{err: errors.New("input/output error")}, &stdout)

		assert.Equal(t, exitFailure, report(context.Background(), d, 2, slog.Default(), &stdout, &stderr))
		assert.Contains(t, stderr.String(), "Error during measurement")
		assert.Contains(t, stderr.String(), "input/output error")
		assert.NotContains(t, stdout.String(), "Min: ")
	})

	t.Run("interrupted", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var stdout, stderr bytes.Buffer
		d := loopbackDriver(&loopback{found: []bool{true, true, true}}, &stdout)
		d.Sleep = func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		}

		require.Equal(t, exitOK, report(ctx, d, 3, slog.Default(), &stdout, &stderr))
		assert.Equal(t, 1, strings.Count(stdout.String(), "Peak found"), "no trial starts after the interrupt")
		assert.Contains(t, stdout.String(), "Min: ")
		assert.Empty(t, stderr.String())
	})
}
