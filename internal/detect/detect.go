// Package detect finds the arrival of the test signal in captured audio.
package detect

import "unsafe"

// ThresholdRatio is the fraction of the largest representable amplitude a sample has to
// exceed to count as a peak.
const ThresholdRatio = 0.08

// Sample is a signed integer PCM sample.
type Sample interface {
	~int8 | ~int16 | ~int32
}

// MaxMagnitude returns the largest positive value of S.
func MaxMagnitude[S Sample]() float64 {
	var zero S
	bits := unsafe.Sizeof(zero) * 8

	return float64(uint64(1)<<(bits-1) - 1)
}

// Threshold returns the peak threshold for S.
func Threshold[S Sample]() float64 {
	return MaxMagnitude[S]() * ThresholdRatio
}

// Peak scans the odd interleaved positions of block, lowest index first, and returns the
// index of the first sample whose magnitude exceeds threshold. Even positions are ignored.
func Peak[S Sample](block []S, threshold float64) (int, bool) {
	for i := 1; i < len(block); i += 2 {
		v := float64(block[i])
		if v < 0 {
			v = -v
		}

		if v > threshold {
			return i, true
		}
	}

	return -1, false
}

// Detector binds a threshold to Peak.
type Detector[S Sample] struct {
	Threshold float64
}

// New returns a Detector using the default threshold for S.
func New[S Sample]() Detector[S] {
	return Detector[S]{Threshold: Threshold[S]()}
}

// Detect reports the first peak in block.
func (d Detector[S]) Detect(block []S) (int, bool) {
	return Peak(block, d.Threshold)
}
