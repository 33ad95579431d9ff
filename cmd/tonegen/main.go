// Command tonegen writes a test signal WAV file for delaycheck: a short lead of silence, a
// sine burst and a long silent tail.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gen2brain/delaycheck/internal/signal"
)

func main() {
	spec := signal.DefaultTone

	flag.IntVar(&spec.Rate, "rate", spec.Rate, "The sample rate in Hz")
	flag.IntVar(&spec.Channels, "channels", spec.Channels, "The number of channels")
	flag.Float64Var(&spec.Frequency, "frequency", spec.Frequency, "The burst frequency in Hz")
	flag.Float64Var(&spec.Amplitude, "amplitude", spec.Amplitude, "The burst level as a fraction of full scale")
	flag.DurationVar(&spec.Lead, "lead", spec.Lead, "Silence before the burst")
	flag.DurationVar(&spec.Burst, "burst", spec.Burst, "Length of the burst")
	flag.DurationVar(&spec.Tail, "tail", spec.Tail, "Silence after the burst")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] [output-wav-file]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nThe output defaults to tone.wav.\n\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}

	outputPath := "tone.wav"
	if flag.NArg() == 1 {
		outputPath = flag.Arg(0)
	}

	samples, err := signal.Tone(spec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating tone: %v\n", err)
		os.Exit(1)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating WAV file: %v\n", err)
		os.Exit(1)
	}

	if err := signal.WriteWAV(f, samples, spec.Rate, spec.Channels); err != nil {
		_ = f.Close()
		fmt.Fprintf(os.Stderr, "Error writing WAV file: %v\n", err)
		os.Exit(1)
	}

	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing WAV file: %v\n", err)
		os.Exit(1)
	}

	total := time.Duration(len(samples)/spec.Channels) * time.Second / time.Duration(spec.Rate)
	fmt.Printf("Wrote %s: %v of audio, %d Hz burst of %v at %d Hz, %d channels\n",
		outputPath, total, int(spec.Frequency), spec.Burst, spec.Rate, spec.Channels)
}
