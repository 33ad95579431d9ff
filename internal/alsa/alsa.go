// Package alsa provides the small slice of the Linux ALSA PCM interface needed to drive a
// playback and a capture stream with blocking, interleaved read/write transfers.
//
// It talks to /dev/snd/pcmC*D* directly through ioctl and does not support the alsa-lib plugin
// layer, so only hardware names ("hw:0,0", "hw:CARD=Loopback,DEV=1") can be opened.
package alsa

// Format is the sample format of a PCM stream (SNDRV_PCM_FORMAT_*).
type Format int32

const (
	FormatS8     Format = 0
	FormatS16LE  Format = 2
	FormatS24LE  Format = 6
	FormatS32LE  Format = 10
	FormatFloat  Format = 14
	FormatS243LE Format = 32
)

// FormatNames maps the supported formats to their ALSA names.
var FormatNames = map[Format]string{
	FormatS8:     "S8",
	FormatS16LE:  "S16_LE",
	FormatS24LE:  "S24_LE",
	FormatS32LE:  "S32_LE",
	FormatFloat:  "FLOAT_LE",
	FormatS243LE: "S24_3LE",
}

// String returns the ALSA name of the format.
func (f Format) String() string {
	if name, ok := FormatNames[f]; ok {
		return name
	}

	return "UNKNOWN"
}

// Bits returns the storage size of one sample in bits.
// 24-bit samples in 32-bit containers report 32.
func (f Format) Bits() uint32 {
	switch f {
	case FormatS8:
		return 8
	case FormatS16LE:
		return 16
	case FormatS243LE:
		return 24
	case FormatS24LE, FormatS32LE, FormatFloat:
		return 32
	default:
		return 0
	}
}

// Stream is the direction of a PCM stream.
type Stream int

const (
	Playback Stream = iota
	Capture
)

// String returns "playback" or "capture".
func (s Stream) String() string {
	if s == Capture {
		return "capture"
	}

	return "playback"
}

// suffix is the character used in the device node name, /dev/snd/pcmC0D0p or /dev/snd/pcmC0D0c.
func (s Stream) suffix() byte {
	if s == Capture {
		return 'c'
	}

	return 'p'
}

// Hardware parameter indices (SNDRV_PCM_HW_PARAM_*).
// The first three are masks, the rest are intervals starting at hwParamSampleBits.
const (
	hwParamAccess     = 0
	hwParamFormat     = 1
	hwParamSubformat  = 2
	hwParamSampleBits = 8
	hwParamChannels   = 10
	hwParamRate       = 11
	hwParamPeriodSize = 13
	hwParamPeriods    = 15
	hwParamBufferSize = 17
	hwParamTickTime   = 19
)

const (
	accessRWInterleaved = 3
	intervalInteger     = 1 << 2
	tstampEnable        = 1
	maskMax             = 256
)
