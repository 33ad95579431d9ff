package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gen2brain/delaycheck/internal/detect"
	"github.com/gen2brain/delaycheck/internal/signal"
)

func main() {
	var (
		channels int
		rate     int
	)

	flag.IntVar(&channels, "channels", 2, "The device channel count the signal is adapted to")
	flag.IntVar(&rate, "rate", 44100, "The sample rate assumed for headerless files")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <signal-file>\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "\nShows how delaycheck sees a test signal and where its first peak lies.")
		fmt.Fprintln(os.Stderr, "\nOptions:")
		flag.PrintDefaults()
	}

	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	path := flag.Arg(0)

	src, err := signal.Open(path, signal.Options{Channels: channels, AtEnd: signal.Silence})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open signal: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	kind := "headerless S16_LE"
	var samples int
	if buf, ok := src.(*signal.Buffer); ok {
		kind = "decoded"
		samples = buf.Len()
		rate = buf.SampleRate()
	} else {
		st, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stat signal: %v\n", err)
			os.Exit(1)
		}
		samples = int(st.Size() / 2)
	}

	data := make([]int16, samples)
	if err := src.NextBlock(data); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read signal: %v\n", err)
		os.Exit(1)
	}

	frames := samples / channels
	fmt.Printf("Filename:           %s\n", path)
	fmt.Printf("Kind:               %s\n", kind)
	fmt.Printf("Channels:           %d\n", channels)
	fmt.Printf("Sample Rate:        %d Hz\n", rate)
	fmt.Printf("Frames:             %d\n", frames)
	fmt.Printf("Duration:           %s\n", frameDuration(frames, rate))

	idx, ok := detect.Peak(data, detect.Threshold[int16]())
	if !ok {
		fmt.Printf("First peak:         none above %.0f, delaycheck will never detect this signal\n",
			detect.Threshold[int16]())
		os.Exit(1)
	}

	fmt.Printf("First peak:         frame %d (%s), level %d\n", idx/channels,
		frameDuration(idx/channels, rate), data[idx])
}

// frameDuration converts a frame count at rate into a rounded duration.
func frameDuration(frames, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}

	return (time.Duration(frames) * time.Second / time.Duration(rate)).Round(time.Microsecond)
}
