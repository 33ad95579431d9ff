package signal

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ToneSpec describes a test signal: silence, then a sine burst, then silence.
type ToneSpec struct {
	Rate      int
	Channels  int
	Frequency float64
	// Amplitude is the peak level as a fraction of full scale.
	Amplitude float64
	Lead      time.Duration
	Burst     time.Duration
	Tail      time.Duration
}

// DefaultTone is a 1 kHz burst at half scale, well above the detection threshold.
var DefaultTone = ToneSpec{
	Rate:      44100,
	Channels:  2,
	Frequency: 1000,
	Amplitude: 0.5,
	Lead:      10 * time.Millisecond,
	Burst:     200 * time.Millisecond,
	Tail:      30 * time.Second,
}

func frames(d time.Duration, rate int) int {
	return int(d.Seconds() * float64(rate))
}

// Tone renders spec as interleaved samples, identical on every channel.
func Tone(spec ToneSpec) ([]int16, error) {
	if spec.Rate <= 0 || spec.Channels <= 0 {
		return nil, fmt.Errorf("signal: invalid tone layout (rate=%d channels=%d)", spec.Rate, spec.Channels)
	}

	if spec.Amplitude < 0 || spec.Amplitude > 1 {
		return nil, fmt.Errorf("signal: tone amplitude %v out of range [0,1]", spec.Amplitude)
	}

	lead := frames(spec.Lead, spec.Rate)
	burst := frames(spec.Burst, spec.Rate)
	total := lead + burst + frames(spec.Tail, spec.Rate)

	out := make([]int16, total*spec.Channels)
	for i := 0; i < burst; i++ {
		t := float64(i) / float64(spec.Rate)
		v := int16(math.Sin(2*math.Pi*spec.Frequency*t) * spec.Amplitude * math.MaxInt16)
		for c := 0; c < spec.Channels; c++ {
			out[(lead+i)*spec.Channels+c] = v
		}
	}

	return out, nil
}

// WriteWAV encodes interleaved 16-bit samples as a PCM WAV file.
func WriteWAV(w io.WriteSeeker, samples []int16, rate, channels int) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("signal: write wav: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("signal: finish wav: %w", err)
	}

	return nil
}
