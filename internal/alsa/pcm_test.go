package alsa_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gen2brain/delaycheck/internal/alsa"
)

// To run the hardware tests, the 'snd-aloop' kernel module must be loaded:
//
// sudo modprobe snd-aloop
//
// Playback on hw:Loopback,0 comes back on capture hw:Loopback,1.

var loopbackConfig = alsa.Config{
	Channels:    2,
	Rate:        48000,
	PeriodSize:  256,
	PeriodCount: 4,
	Format:      alsa.FormatS16LE,
}

// loopbackCard returns the card index of the loopback device or skips the test.
func loopbackCard(t *testing.T) uint {
	t.Helper()

	idx, err := alsa.LookupCard("Loopback")
	if err != nil {
		t.Skip("ALSA loopback device not found, run: sudo modprobe snd-aloop")
	}

	return uint(idx)
}

func TestPcmOpenAndClose(t *testing.T) {
	card := loopbackCard(t)

	_, err := alsa.Open(alsa.Name{Card: 1000, Device: 0}, alsa.Playback, loopbackConfig)
	assert.Error(t, err, "opening a missing card must fail")

	pcm, err := alsa.Open(alsa.Name{Card: card, Device: 0}, alsa.Playback, loopbackConfig)
	require.NoError(t, err)

	cfg := pcm.Config()
	assert.Equal(t, uint32(2), cfg.Channels)
	assert.Equal(t, uint32(48000), cfg.Rate)
	assert.Equal(t, uint32(4), pcm.FrameSize())
	assert.Equal(t, cfg.PeriodSize*cfg.PeriodCount, pcm.BufferSize())
	assert.Equal(t, alsa.Playback, pcm.Stream())

	require.NoError(t, pcm.Close())
	assert.NoError(t, pcm.Close(), "second close is a no-op")
}

func TestPcmWrongDirection(t *testing.T) {
	card := loopbackCard(t)

	out, err := alsa.OpenByName("hw:CARD=Loopback,DEV=0", alsa.Playback, loopbackConfig)
	require.NoError(t, err)
	defer out.Close()

	_, err = alsa.Read(out, make([]int16, 512))
	assert.Error(t, err)

	in, err := alsa.Open(alsa.Name{Card: card, Device: 1}, alsa.Capture, loopbackConfig)
	require.NoError(t, err)
	defer in.Close()

	_, err = alsa.Write(in, make([]int16, 512))
	assert.Error(t, err)

	_, err = alsa.Read(in, make([]int32, 512))
	assert.Error(t, err, "sample width must match the format")

	_, err = alsa.Read(in, make([]int16, 3))
	assert.Error(t, err, "partial frames are rejected")
}

func TestPcmLoopback(t *testing.T) {
	card := loopbackCard(t)

	out, err := alsa.Open(alsa.Name{Card: card, Device: 0}, alsa.Playback, loopbackConfig)
	require.NoError(t, err)
	defer out.Close()

	in, err := alsa.Open(alsa.Name{Card: card, Device: 1}, alsa.Capture, loopbackConfig)
	require.NoError(t, err)
	defer in.Close()

	require.NoError(t, out.Prepare())
	require.NoError(t, in.Prepare())

	period := int(loopbackConfig.PeriodSize * loopbackConfig.Channels)
	tone := make([]int16, period)
	for i := 0; i < len(tone); i += 2 {
		v := int16(math.Sin(2*math.Pi*1000*float64(i/2)/48000) * 16000)
		tone[i], tone[i+1] = v, v
	}

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 40; i++ {
			if _, err := alsa.Write(out, tone); err != nil {
				done <- err

				return
			}
		}
		done <- nil
	}()

	var peak int16
	buf := make([]int16, period)
	deadline := time.Now().Add(2 * time.Second)
	for i := 0; i < 30 && time.Now().Before(deadline); i++ {
		n, err := alsa.Read(in, buf)
		require.NoError(t, err)
		assert.Equal(t, int(loopbackConfig.PeriodSize), n)

		for _, s := range buf {
			if s > peak {
				peak = s
			}
		}
	}

	require.NoError(t, <-done)
	assert.Greater(t, peak, int16(8000), "captured signal should carry the played tone")
	assert.NoError(t, out.Drain())
}
