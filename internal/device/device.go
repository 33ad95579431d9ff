// Package device opens the playback and capture streams used by a measurement and moves
// sample blocks through them.
package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gen2brain/delaycheck/internal/alsa"
)

// ErrDevice marks every failure to open, configure or transfer on a device.
var ErrDevice = errors.New("device error")

// Params describes the stream to open.
type Params struct {
	// Name is an ALSA hw: name, "hw:C,D" or "hw:CARD=<id>,DEV=<d>".
	Name        string
	Rate        int
	Channels    int
	PeriodSize  int
	PeriodCount int
}

// Stream is an opened, prepared PCM stream moving S16_LE blocks.
type Stream struct {
	pcm    *alsa.PCM
	params Params
	logger *slog.Logger
}

// Open opens the named device in the given direction, configures it and prepares it for the
// first transfer. The driver may round the period size; BlockLen reports the block length
// that results. A device that does not accept the requested rate or channel count is an error.
func Open(direction alsa.Stream, p Params, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if p.Rate <= 0 || p.Channels <= 0 || p.PeriodSize <= 0 || p.PeriodCount <= 0 {
		return nil, fmt.Errorf("%w: invalid %s parameters for %s", ErrDevice, direction, p.Name)
	}

	pcm, err := alsa.OpenByName(p.Name, direction, alsa.Config{
		Channels:    uint32(p.Channels),
		Rate:        uint32(p.Rate),
		PeriodSize:  uint32(p.PeriodSize),
		PeriodCount: uint32(p.PeriodCount),
		Format:      alsa.FormatS16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	got := pcm.Config()
	if int(got.Rate) != p.Rate || int(got.Channels) != p.Channels {
		_ = pcm.Close()

		return nil, fmt.Errorf("%w: %s settled on %d Hz %d channels, want %d Hz %d channels",
			ErrDevice, p.Name, got.Rate, got.Channels, p.Rate, p.Channels)
	}

	if err := pcm.Prepare(); err != nil {
		_ = pcm.Close()

		return nil, fmt.Errorf("%w: %w", ErrDevice, err)
	}

	s := &Stream{
		pcm:    pcm,
		params: p,
		logger: logger.With("device", p.Name, "stream", direction.String()),
	}

	if int(got.PeriodSize) != p.PeriodSize {
		s.logger.Warn("period size adjusted by driver", "requested", p.PeriodSize, "actual", got.PeriodSize)
	}

	s.logger.Debug("device opened", "name", pcm.DeviceName(), "rate", got.Rate,
		"channels", got.Channels, "period_size", got.PeriodSize, "periods", got.PeriodCount,
		"buffer_size", pcm.BufferSize())

	return s, nil
}

// BlockLen returns the number of samples in one period.
func (s *Stream) BlockLen() int {
	c := s.pcm.Config()
	return int(c.PeriodSize * c.Channels)
}

// PeriodSize returns the period size the driver settled on, in frames.
func (s *Stream) PeriodSize() int {
	return int(s.pcm.Config().PeriodSize)
}

// Xruns returns the number of recovered xruns so far.
func (s *Stream) Xruns() int {
	return s.pcm.Xruns()
}

// ReadBlock fills block from a capture stream, blocking until it is full.
func (s *Stream) ReadBlock(block []int16) error {
	if _, err := alsa.Read(s.pcm, block); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}

	return nil
}

// WriteBlock queues block on a playback stream, blocking until every frame is accepted.
func (s *Stream) WriteBlock(block []int16) error {
	if _, err := alsa.Write(s.pcm, block); err != nil {
		return fmt.Errorf("%w: %w", ErrDevice, err)
	}

	return nil
}

// Close releases the device. Queued playback is played out first; pending capture is
// discarded. Closing twice is a no-op.
func (s *Stream) Close() error {
	if s == nil || s.pcm == nil {
		return nil
	}

	var err error
	if s.pcm.Stream() == alsa.Playback {
		err = s.pcm.Drain()
	} else {
		err = s.pcm.Drop()
	}
	if err != nil {
		s.logger.Warn("stopping stream failed", "err", err)
	}

	if cerr := s.pcm.Close(); cerr != nil {
		return fmt.Errorf("%w: %w", ErrDevice, cerr)
	}
	s.pcm = nil

	return nil
}
