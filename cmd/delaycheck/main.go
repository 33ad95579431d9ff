// Command delaycheck measures the latency of an audio loopback path.
//
// It plays a test signal on the playback device, listens on the capture device for the
// signal's first peak and reports how long it took, repeating the measurement the requested
// number of times:
//
//	delaycheck <NUMBER_OF_TEST_REPETITIONS>
//
// Devices, signal file and timing are configured through delaycheck.yaml or DELAYCHECK_*
// environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	ossignal "os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"github.com/gen2brain/delaycheck/internal/alsa"
	"github.com/gen2brain/delaycheck/internal/config"
	"github.com/gen2brain/delaycheck/internal/device"
	"github.com/gen2brain/delaycheck/internal/experiment"
	"github.com/gen2brain/delaycheck/internal/logging"
	"github.com/gen2brain/delaycheck/internal/observe"
	"github.com/gen2brain/delaycheck/internal/signal"
	"github.com/gen2brain/delaycheck/internal/trial"
)

// Exit codes.
const (
	exitOK        = 0
	exitUsage     = 1
	exitFailure   = 2
	exitNoResults = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// parseCount parses the number of repetitions, which must be a positive integer.
func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}

	if n <= 0 {
		return 0, fmt.Errorf("number of repetitions must be positive, got %d", n)
	}

	return n, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("delaycheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s <NUMBER_OF_TEST_REPETITIONS>\n", fs.Name())
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}

	n, err := parseCount(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "Invalid number of repetitions: %v\n", err)
		fs.Usage()

		return exitUsage
	}

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintf(stderr, "Error loading configuration: %v\n", err)
		return exitFailure
	}

	logFile, err := logging.Configure(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(stderr, "Error configuring logger: %v\n", err)
		return exitFailure
	}
	if logFile != nil {
		defer logFile.Close()
	}

	logger := slog.Default().With("run_id", uuid.NewString())

	if cfg.Source != "" {
		logger.Debug("config file loaded", "path", cfg.Source)
	} else {
		logger.Debug("no config file found, using defaults")
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return measure(ctx, cfg, n, logger, stdout, stderr)
}

func measure(ctx context.Context, cfg *config.Config, n int, logger *slog.Logger, stdout, stderr io.Writer) int {
	src, err := signal.Open(cfg.Signal.Path, signal.Options{Channels: cfg.Channels, AtEnd: cfg.AtEnd()})
	if err != nil {
		fmt.Fprintf(stderr, "Error opening test signal: %v\n", err)
		return exitFailure
	}
	defer src.Close()

	if buf, ok := src.(*signal.Buffer); ok && buf.SampleRate() != cfg.Rate {
		logger.Warn("test signal sample rate differs from device rate, it will play at the wrong speed",
			"signal_rate", buf.SampleRate(), "device_rate", cfg.Rate)
	}

	in, err := device.Open(alsa.Capture, device.Params{
		Name:        cfg.Capture.Device,
		Rate:        cfg.Rate,
		Channels:    cfg.Channels,
		PeriodSize:  cfg.Capture.PeriodSize,
		PeriodCount: cfg.Capture.PeriodCount,
	}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening capture device: %v\n", err)
		return exitFailure
	}
	defer in.Close()

	out, err := device.Open(alsa.Playback, device.Params{
		Name:        cfg.Playback.Device,
		Rate:        cfg.Rate,
		Channels:    cfg.Channels,
		PeriodSize:  cfg.Playback.PeriodSize,
		PeriodCount: cfg.Playback.PeriodCount,
	}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error opening playback device: %v\n", err)
		return exitFailure
	}
	defer out.Close()

	d := &experiment.Driver{
		Runner:      trial.NewRunner(cfg.Trial.Ceiling, out.BlockLen(), in.BlockLen()),
		Source:      src,
		Player:      out,
		Capturer:    in,
		Settle:      cfg.Experiment.Settle,
		DrainBlocks: cfg.Experiment.DrainBlocks,
		Out:         stdout,
		Metrics:     observe.DefaultMetrics(),
		Logger:      logger,
	}

	logger.Info("starting measurement", "trials", n, "capture", cfg.Capture.Device,
		"playback", cfg.Playback.Device, "signal", cfg.Signal.Path)

	return report(ctx, d, n, logger, stdout, stderr)
}

// report runs the measurement on d and prints the summary, returning the exit code.
func report(ctx context.Context, d *experiment.Driver, n int, logger *slog.Logger, stdout, stderr io.Writer) int {
	results, err := d.Run(ctx, n)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Info("measurement interrupted", "completed", results.Len())
	default:
		fmt.Fprintf(stderr, "Error during measurement: %v\n", err)
		return exitFailure
	}

	summary, err := results.Summarize()
	if errors.Is(err, experiment.ErrNoSuccessfulTrials) {
		fmt.Fprintln(stdout, "no successful trials")
		return exitNoResults
	}

	fmt.Fprintln(stdout, summary)
	logger.Info("measurement finished", "successful", summary.Count, "trials", n,
		"median_us", summary.Median)

	return exitOK
}
