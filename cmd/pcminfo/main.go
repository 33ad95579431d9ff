package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/delaycheck/internal/alsa"
	"github.com/gen2brain/delaycheck/internal/config"
	"github.com/gen2brain/delaycheck/internal/device"
)

func main() {
	var (
		name   string
		stream string
	)

	flag.StringVar(&name, "device", "", "The PCM name to open, e.g. hw:1,0. Defaults to the configured device.")
	flag.StringVar(&stream, "stream", "capture", "The stream direction ('playback' or 'capture').")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Lists the sound cards and shows the configuration an ALSA PCM device settles on")
		fmt.Fprintln(os.Stderr, "with the delaycheck settings.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	cfg, err := config.Load(os.Getenv(config.EnvConfigPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var (
		dir alsa.Stream
		sc  config.Stream
	)
	switch strings.ToLower(stream) {
	case "playback":
		dir, sc = alsa.Playback, cfg.Playback
	case "capture":
		dir, sc = alsa.Capture, cfg.Capture
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid stream direction '%s'. Must be 'playback' or 'capture'.\n", stream)
		os.Exit(1)
	}

	if name == "" {
		name = sc.Device
	}

	cards, err := alsa.Cards()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing sound cards: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Sound cards:")
	for _, c := range cards {
		fmt.Printf("  %s\n", c)
	}

	fmt.Printf("\n%s %s, requested %d Hz, %d channels, period %d x %d:\n",
		name, dir, cfg.Rate, cfg.Channels, sc.PeriodSize, sc.PeriodCount)

	s, err := device.Open(dir, device.Params{
		Name:        name,
		Rate:        cfg.Rate,
		Channels:    cfg.Channels,
		PeriodSize:  sc.PeriodSize,
		PeriodCount: sc.PeriodCount,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening PCM device: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	period := s.PeriodSize()
	fmt.Printf("  period size:   %d frames (%.2f ms)\n", period, float64(period)*1000/float64(cfg.Rate))
	fmt.Printf("  block length:  %d samples\n", s.BlockLen())
	fmt.Printf("  trial ceiling: %d blocks (%.2f s)\n", cfg.Trial.Ceiling,
		float64(cfg.Trial.Ceiling*period)/float64(cfg.Rate))
}
