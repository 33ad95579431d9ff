package signal

// Buffer is an in-memory Source.
type Buffer struct {
	samples    []int16
	channels   int
	sampleRate int
	pos        int
	policy     EndPolicy
}

// NewBuffer returns a Source over samples. The slice is not copied.
func NewBuffer(samples []int16, channels int, policy EndPolicy) *Buffer {
	return &Buffer{samples: samples, channels: channels, policy: policy}
}

// Reset rewinds to the first sample. It never fails.
func (b *Buffer) Reset() error {
	b.pos = 0

	return nil
}

// NextBlock copies the next len(dst) samples into dst, applying the end policy when the
// signal runs out. An empty signal yields silence.
func (b *Buffer) NextBlock(dst []int16) error {
	filled := 0
	for filled < len(dst) {
		if b.pos >= len(b.samples) {
			if b.policy != Wrap || len(b.samples) == 0 {
				clear(dst[filled:])

				return nil
			}
			b.pos = 0
		}

		n := copy(dst[filled:], b.samples[b.pos:])
		b.pos += n
		filled += n
	}

	return nil
}

// Len returns the signal length in samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Channels returns the interleaved channel count of the samples.
func (b *Buffer) Channels() int { return b.channels }

// SampleRate returns the rate of the decoded file, or 0 if unknown.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Close is a no-op.
func (b *Buffer) Close() error { return nil }
