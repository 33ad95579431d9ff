package alsa

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned by operations on a PCM that has been closed.
var ErrClosed = errors.New("alsa: pcm is closed")

// Config holds the hardware and software parameters of a PCM stream.
// Zero thresholds are replaced with defaults suited to low latency operation.
type Config struct {
	Channels       uint32
	Rate           uint32
	PeriodSize     uint32
	PeriodCount    uint32
	Format         Format
	StartThreshold uint32
	StopThreshold  uint32
	AvailMin       uint32
}

// PCM is an open ALSA PCM stream using blocking interleaved read/write access.
type PCM struct {
	file       *os.File
	stream     Stream
	config     Config
	name       string
	bufferSize uint32
	boundary   uframes
	xruns      int
}

// Name identifies a PCM device node.
type Name struct {
	Card   uint
	Device uint
}

// String returns the canonical "hw:C,D" form.
func (n Name) String() string {
	return fmt.Sprintf("hw:%d,%d", n.Card, n.Device)
}

// ParseName parses "hw:C,D" and "hw:CARD=<id|index>,DEV=<d>".
// Card identifiers are resolved through lookup, which is usually LookupCard.
func ParseName(s string, lookup func(id string) (int, error)) (Name, error) {
	rest, ok := strings.CutPrefix(s, "hw:")
	if !ok {
		return Name{}, fmt.Errorf("alsa: unsupported PCM name %q: only hw: devices can be opened", s)
	}

	var cardStr, devStr string
	parts := strings.Split(rest, ",")
	switch {
	case len(parts) == 2 && !strings.Contains(rest, "="):
		cardStr, devStr = parts[0], parts[1]
	default:
		devStr = "0"
		for _, part := range parts {
			key, val, found := strings.Cut(part, "=")
			if !found {
				return Name{}, fmt.Errorf("alsa: malformed PCM name %q", s)
			}
			switch strings.ToUpper(key) {
			case "CARD":
				cardStr = val
			case "DEV":
				devStr = val
			default:
				return Name{}, fmt.Errorf("alsa: unknown key %q in PCM name %q", key, s)
			}
		}
	}

	if cardStr == "" {
		return Name{}, fmt.Errorf("alsa: PCM name %q has no card", s)
	}

	device, err := strconv.ParseUint(devStr, 10, 32)
	if err != nil {
		return Name{}, fmt.Errorf("alsa: invalid device %q in %q: %w", devStr, s, err)
	}

	card, err := strconv.ParseUint(cardStr, 10, 32)
	if err != nil {
		if lookup == nil {
			return Name{}, fmt.Errorf("alsa: invalid card %q in %q: %w", cardStr, s, err)
		}

		idx, lerr := lookup(cardStr)
		if lerr != nil {
			return Name{}, lerr
		}
		card = uint64(idx)
	}

	return Name{Card: uint(card), Device: uint(device)}, nil
}

// OpenByName resolves name with ParseName and LookupCard, then opens it.
func OpenByName(name string, stream Stream, config Config) (*PCM, error) {
	n, err := ParseName(name, LookupCard)
	if err != nil {
		return nil, err
	}

	return Open(n, stream, config)
}

// Open opens the PCM device node for the given stream and applies config.
func Open(n Name, stream Stream, config Config) (*PCM, error) {
	path := fmt.Sprintf("/dev/snd/pcmC%dD%d%c", n.Card, n.Device, stream.suffix())

	// Open non-blocking so a busy device fails instead of hanging, then switch to blocking I/O.
	file, err := os.OpenFile(path, os.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("alsa: open %s: %w", path, err)
	}

	flags, err := unix.FcntlInt(file.Fd(), unix.F_GETFL, 0)
	if err == nil {
		_, err = unix.FcntlInt(file.Fd(), unix.F_SETFL, flags&^unix.O_NONBLOCK)
	}
	if err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("alsa: set blocking mode on %s: %w", path, err)
	}

	var info pcmInfo
	if err := ioctl(file.Fd(), ioctlInfo, unsafe.Pointer(&info)); err != nil {
		_ = file.Close()

		return nil, fmt.Errorf("alsa: ioctl INFO on %s: %w", path, err)
	}

	p := &PCM{
		file:   file,
		stream: stream,
		name:   string(bytes.TrimRight(info.Name[:], "\x00")),
	}

	if err := p.setConfig(config); err != nil {
		_ = p.Close()

		return nil, fmt.Errorf("alsa: configure %s: %w", path, err)
	}

	return p, nil
}

func (p *PCM) setConfig(config Config) error {
	if config.Format.Bits() == 0 {
		return fmt.Errorf("unsupported format %d", config.Format)
	}

	hw := newHwParams()
	hw.setMask(hwParamAccess, accessRWInterleaved)
	hw.setMask(hwParamFormat, uint32(config.Format))
	hw.setMin(hwParamPeriodSize, config.PeriodSize)
	hw.setInt(hwParamChannels, config.Channels)
	hw.setInt(hwParamPeriods, config.PeriodCount)
	hw.setInt(hwParamRate, config.Rate)

	if err := ioctl(p.file.Fd(), ioctlHwParams, unsafe.Pointer(hw)); err != nil {
		return fmt.Errorf("ioctl HW_PARAMS: %w", err)
	}

	p.config = config
	p.config.PeriodSize = hw.getInt(hwParamPeriodSize)
	p.config.PeriodCount = hw.getInt(hwParamPeriods)
	p.config.Channels = hw.getInt(hwParamChannels)
	p.config.Rate = hw.getInt(hwParamRate)
	p.bufferSize = p.config.PeriodSize * p.config.PeriodCount

	if p.config.Channels == 0 || p.config.Rate == 0 || p.config.PeriodSize == 0 || p.config.PeriodCount == 0 {
		return fmt.Errorf("driver settled on an unusable configuration (channels=%d rate=%d period=%d periods=%d)",
			p.config.Channels, p.config.Rate, p.config.PeriodSize, p.config.PeriodCount)
	}

	if p.config.AvailMin == 0 {
		p.config.AvailMin = p.config.PeriodSize
	}

	// Capture starts on the first read. Playback starts as soon as one period is queued,
	// so the signal leaves the device without waiting for the buffer to fill.
	if p.config.StartThreshold == 0 {
		if p.stream == Capture {
			p.config.StartThreshold = 1
		} else {
			p.config.StartThreshold = p.config.PeriodSize
		}
	}

	if p.config.StopThreshold == 0 {
		if p.stream == Capture {
			p.config.StopThreshold = p.bufferSize * 10
		} else {
			p.config.StopThreshold = p.bufferSize
		}
	}

	sw := &swParams{
		TstampMode:     tstampEnable,
		PeriodStep:     1,
		AvailMin:       uframes(p.config.AvailMin),
		XferAlign:      uframes(p.config.PeriodSize / 2),
		StartThreshold: uframes(p.config.StartThreshold),
		StopThreshold:  uframes(p.config.StopThreshold),
	}

	if err := ioctl(p.file.Fd(), ioctlSwParams, unsafe.Pointer(sw)); err != nil {
		return fmt.Errorf("ioctl SW_PARAMS: %w", err)
	}
	p.boundary = sw.Boundary

	return nil
}

// Close releases the device. Closing a nil or closed PCM is a no-op.
func (p *PCM) Close() error {
	if p == nil || p.file == nil {
		return nil
	}

	err := p.file.Close()
	p.file = nil

	return err
}

// Prepare moves the stream to the PREPARED state, ready for the first transfer.
func (p *PCM) Prepare() error {
	return p.simple(ioctlPrepare, "PREPARE")
}

// Drop stops the stream immediately, discarding pending frames.
func (p *PCM) Drop() error {
	return p.simple(ioctlDrop, "DROP")
}

// Drain blocks until every queued playback frame has been played, then stops the stream.
func (p *PCM) Drain() error {
	return p.simple(ioctlDrain, "DRAIN")
}

func (p *PCM) simple(req uintptr, name string) error {
	if p == nil || p.file == nil {
		return ErrClosed
	}

	if err := ioctl(p.file.Fd(), req, nil); err != nil {
		return fmt.Errorf("alsa: ioctl %s: %w", name, err)
	}

	return nil
}

// Config returns the configuration the driver settled on.
func (p *PCM) Config() Config { return p.config }

// Stream returns the direction of the PCM.
func (p *PCM) Stream() Stream { return p.stream }

// DeviceName returns the driver supplied device name.
func (p *PCM) DeviceName() string { return p.name }

// BufferSize returns the ring buffer size in frames.
func (p *PCM) BufferSize() uint32 { return p.bufferSize }

// Xruns returns how many overruns (capture) or underruns (playback) were recovered.
func (p *PCM) Xruns() int { return p.xruns }

// FrameSize returns the size of one interleaved frame in bytes.
func (p *PCM) FrameSize() uint32 {
	return p.config.Channels * p.config.Format.Bits() / 8
}
