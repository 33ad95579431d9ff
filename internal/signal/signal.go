// Package signal supplies the test signal played during a measurement.
//
// A Source is replayed from its origin on every trial, so each trial emits the same samples.
package signal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source yields interleaved S16 sample blocks in playback order.
type Source interface {
	// Reset rewinds the source to the start of the signal.
	Reset() error
	// NextBlock fills dst with the next len(dst) samples.
	NextBlock(dst []int16) error
}

// SourceCloser is a Source backed by a resource that must be released.
type SourceCloser interface {
	Source
	io.Closer
}

// EndPolicy selects what a Source yields once the signal is exhausted.
type EndPolicy int

const (
	// Wrap restarts the signal from its origin.
	Wrap EndPolicy = iota
	// Silence pads with zero samples.
	Silence
)

// String returns the configuration name of the policy.
func (p EndPolicy) String() string {
	if p == Silence {
		return "silence"
	}

	return "wrap"
}

// ParseEndPolicy parses "wrap" or "silence".
func ParseEndPolicy(s string) (EndPolicy, error) {
	switch strings.ToLower(s) {
	case "wrap", "":
		return Wrap, nil
	case "silence":
		return Silence, nil
	default:
		return Wrap, fmt.Errorf("signal: unknown end policy %q (want wrap or silence)", s)
	}
}

// Options controls how a signal file is opened.
type Options struct {
	// Channels is the interleaved channel count of the playback device.
	Channels int
	// AtEnd is applied when playback runs past the end of the signal.
	AtEnd EndPolicy
}

// Open opens a signal file. WAV and MP3 files are decoded into memory and adapted to
// opts.Channels; any other file is treated as headerless S16_LE already interleaved for
// the device and is read from disk on every trial.
func Open(path string, opts Options) (SourceCloser, error) {
	if opts.Channels <= 0 {
		return nil, fmt.Errorf("signal: invalid channel count %d", opts.Channels)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}

	var decode func(io.ReadSeeker, int) (*Buffer, error)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		decode = decodeWAV
	case ".mp3":
		decode = decodeMP3
	default:
		return NewRaw(f, opts.AtEnd), nil
	}

	defer f.Close()

	buf, err := decode(f, opts.Channels)
	if err != nil {
		return nil, fmt.Errorf("signal: decode %s: %w", path, err)
	}
	buf.policy = opts.AtEnd

	return buf, nil
}
