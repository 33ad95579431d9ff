package signal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Raw reads headerless S16_LE samples from a seekable stream.
type Raw struct {
	r      io.ReadSeeker
	policy EndPolicy
	buf    []byte
}

// NewRaw returns a Source reading from r. If r is an io.Closer, Close closes it.
func NewRaw(r io.ReadSeeker, policy EndPolicy) *Raw {
	return &Raw{r: r, policy: policy}
}

// Reset seeks back to offset zero.
func (s *Raw) Reset() error {
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("signal: rewind: %w", err)
	}

	return nil
}

// NextBlock reads len(dst) samples.
func (s *Raw) NextBlock(dst []int16) error {
	if cap(s.buf) < len(dst)*2 {
		s.buf = make([]byte, len(dst)*2)
	}

	filled := 0
	rewound := false
	for filled < len(dst) {
		want := s.buf[:(len(dst)-filled)*2]

		n, err := io.ReadFull(s.r, want)
		before := filled
		for i := 0; i+1 < n; i += 2 {
			dst[filled] = int16(binary.LittleEndian.Uint16(want[i:]))
			filled++
		}
		if filled > before {
			rewound = false
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			// A rewind that yields no whole sample means the file is shorter than one sample.
			if s.policy != Wrap || rewound {
				clear(dst[filled:])

				return nil
			}

			if err := s.Reset(); err != nil {
				return err
			}
			rewound = true
		default:
			return fmt.Errorf("signal: read: %w", err)
		}
	}

	return nil
}

// Close closes the underlying stream if it can be closed.
func (s *Raw) Close() error {
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}
