// Package trial runs a single latency measurement: the test signal is played on one device
// while another device is captured and scanned for the signal's arrival.
//
// The two activities run as a fork-join pair. Playback always runs its full schedule so the
// sink stays fed; capture stops at the first detected peak. The only state they share is the
// peak flag, which capture writes once.
//
// Capture stamps its start time just before its first read. Nothing orders that stamp against
// the first playback write, so measurements carry a small, unknown skew.
package trial

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gen2brain/delaycheck/internal/detect"
	"github.com/gen2brain/delaycheck/internal/signal"
)

// DefaultCeiling bounds both activities of a trial, in blocks.
const DefaultCeiling = 3000

// ErrInvalidRunner is returned by Run when the runner is misconfigured.
var ErrInvalidRunner = errors.New("trial: invalid runner")

// Player writes one block to the playback device, blocking until it is queued.
type Player interface {
	WriteBlock(block []int16) error
}

// Capturer reads one block from the capture device, blocking until it is full.
type Capturer interface {
	ReadBlock(block []int16) error
}

// Outcome is the result of one trial.
type Outcome struct {
	Found bool
	// Latency is the time from the first capture read to the detected peak, truncated to
	// microseconds. Zero unless Found.
	Latency time.Duration
	// PeakIndex is the position of the peak within the block it was found in.
	PeakIndex          int
	CaptureIterations  int
	PlaybackIterations int
}

// Micros returns the latency in whole microseconds.
func (o Outcome) Micros() int64 {
	return o.Latency.Microseconds()
}

// Runner holds the fixed parameters of a trial. The zero value is not usable.
type Runner struct {
	// Ceiling is the maximum number of blocks each activity processes.
	Ceiling int
	// PlaybackBlock and CaptureBlock are block lengths in samples (period size × channels).
	PlaybackBlock int
	CaptureBlock  int
	// Detector decides whether a captured block holds the signal. A zero threshold selects
	// the default.
	Detector detect.Detector[int16]
	// Now must return monotonic time. Defaults to time.Now.
	Now func() time.Time
}

// NewRunner returns a Runner with the default detector.
func NewRunner(ceiling, playbackBlock, captureBlock int) *Runner {
	return &Runner{
		Ceiling:       ceiling,
		PlaybackBlock: playbackBlock,
		CaptureBlock:  captureBlock,
		Detector:      detect.New[int16](),
		Now:           time.Now,
	}
}

func (r *Runner) validate() error {
	if r.Ceiling <= 0 {
		return fmt.Errorf("%w: ceiling %d", ErrInvalidRunner, r.Ceiling)
	}

	if r.PlaybackBlock <= 0 || r.CaptureBlock <= 0 {
		return fmt.Errorf("%w: block lengths %d/%d", ErrInvalidRunner, r.PlaybackBlock, r.CaptureBlock)
	}

	return nil
}

// Run rewinds src and performs one trial, returning once both activities have finished.
// Not finding a peak within the ceiling is a normal outcome. An error from either device or
// from src is returned as is and stops the other activity at its next block.
func (r *Runner) Run(ctx context.Context, src signal.Source, out Player, in Capturer) (Outcome, error) {
	if err := r.validate(); err != nil {
		return Outcome{}, err
	}

	if err := src.Reset(); err != nil {
		return Outcome{}, fmt.Errorf("trial: %w", err)
	}

	now := r.Now
	if now == nil {
		now = time.Now
	}

	det := r.Detector
	if det.Threshold == 0 {
		det = detect.New[int16]()
	}

	var (
		peakFound atomic.Bool
		res       Outcome
		start     time.Time
		end       time.Time
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		block := make([]int16, r.PlaybackBlock)
		for res.PlaybackIterations < r.Ceiling {
			if err := gctx.Err(); err != nil {
				return err
			}

			res.PlaybackIterations++
			if err := src.NextBlock(block); err != nil {
				return fmt.Errorf("trial: signal: %w", err)
			}

			if err := out.WriteBlock(block); err != nil {
				return fmt.Errorf("trial: playback: %w", err)
			}
		}

		return nil
	})

	g.Go(func() error {
		block := make([]int16, r.CaptureBlock)
		for res.CaptureIterations < r.Ceiling && !peakFound.Load() {
			if err := gctx.Err(); err != nil {
				return err
			}

			res.CaptureIterations++
			if res.CaptureIterations == 1 {
				start = now()
			}

			if err := in.ReadBlock(block); err != nil {
				return fmt.Errorf("trial: capture: %w", err)
			}

			if idx, ok := det.Detect(block); ok {
				end = now()
				res.PeakIndex = idx
				peakFound.Store(true)
			}
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return res, err
	}

	if peakFound.Load() {
		res.Found = true
		res.Latency = end.Sub(start).Truncate(time.Microsecond)
	} else {
		res.PeakIndex = -1
	}

	return res, nil
}
