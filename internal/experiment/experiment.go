// Package experiment repeats latency trials and aggregates their results.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gen2brain/delaycheck/internal/observe"
	"github.com/gen2brain/delaycheck/internal/signal"
	"github.com/gen2brain/delaycheck/internal/trial"
)

// Defaults between trials.
const (
	DefaultSettle      = 500 * time.Millisecond
	DefaultDrainBlocks = 3000
)

// xrunCounter is implemented by device streams that recover from xruns.
type xrunCounter interface {
	Xruns() int
}

// Driver runs trials one after another on the same devices and signal.
type Driver struct {
	Runner   *trial.Runner
	Source   signal.Source
	Player   trial.Player
	Capturer trial.Capturer

	// Settle is waited after every trial, before the capture drain.
	Settle time.Duration
	// DrainBlocks capture blocks are read and discarded after every trial so that the next
	// one starts on fresh input.
	DrainBlocks int

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Out receives one line per trial. Nil discards them.
	Out io.Writer

	Metrics *observe.Metrics
	Logger  *slog.Logger
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *Driver) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}

func (d *Driver) printf(format string, args ...any) {
	if d.Out != nil {
		fmt.Fprintf(d.Out, format, args...)
	}
}

// Run performs up to n trials and returns the latencies of those that found the peak. Trials
// that end without a peak are logged and dropped but still count towards n.
//
// ctx is checked between trials and by the running trial at every block. When it is done the
// trials completed so far are returned together with ctx's error. A device or signal error
// ends the run and is returned with the partial results.
func (d *Driver) Run(ctx context.Context, n int) (*ResultSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("experiment: invalid number of trials %d", n)
	}

	if d.Runner == nil || d.Source == nil || d.Player == nil || d.Capturer == nil {
		return nil, errors.New("experiment: driver is missing a collaborator")
	}

	wait := d.Sleep
	if wait == nil {
		wait = sleep
	}

	log := d.logger()
	results := &ResultSet{}
	xruns := d.xruns()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		out, err := d.Runner.Run(ctx, d.Source, d.Player, d.Capturer)
		if err != nil {
			return results, fmt.Errorf("experiment: trial %d: %w", i+1, err)
		}

		if d.Metrics != nil {
			d.Metrics.RecordTrial(ctx, out.Found, out.Latency)
		}

		if out.Found {
			d.printf("Peak found\nDelay: %d us\n", out.Micros())
			results.Append(out.Micros())
			log.Debug("trial finished", "trial", i+1, "latency_us", out.Micros(),
				"peak_index", out.PeakIndex, "capture_blocks", out.CaptureIterations)
		} else {
			d.printf("Peak not found\n")
			log.Info("peak not found", "trial", i+1, "capture_blocks", out.CaptureIterations)
		}

		if err := wait(ctx, d.Settle); err != nil {
			return results, err
		}

		if err := d.drain(); err != nil {
			return results, fmt.Errorf("experiment: drain after trial %d: %w", i+1, err)
		}

		xruns = d.recordXruns(ctx, xruns)
	}

	return results, nil
}

// drain reads and discards DrainBlocks capture blocks.
func (d *Driver) drain() error {
	block := make([]int16, d.Runner.CaptureBlock)
	for j := 0; j < d.DrainBlocks; j++ {
		if err := d.Capturer.ReadBlock(block); err != nil {
			return err
		}
	}

	return nil
}

type xrunCounts struct {
	playback, capture int
}

func (d *Driver) xruns() xrunCounts {
	var c xrunCounts
	if x, ok := d.Player.(xrunCounter); ok {
		c.playback = x.Xruns()
	}

	if x, ok := d.Capturer.(xrunCounter); ok {
		c.capture = x.Xruns()
	}

	return c
}

func (d *Driver) recordXruns(ctx context.Context, prev xrunCounts) xrunCounts {
	cur := d.xruns()
	if cur == prev {
		return cur
	}

	d.logger().Warn("device xruns recovered",
		"playback", cur.playback-prev.playback, "capture", cur.capture-prev.capture)

	if d.Metrics != nil {
		d.Metrics.RecordXruns(ctx, "playback", cur.playback-prev.playback)
		d.Metrics.RecordXruns(ctx, "capture", cur.capture-prev.capture)
	}

	return cur
}
