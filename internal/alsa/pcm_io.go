package alsa

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Sample is the set of Go types that can carry interleaved PCM data.
type Sample interface {
	~int8 | ~int16 | ~int32 | ~float32
}

// Write plays interleaved samples on a playback PCM and blocks until every frame in buf has
// been queued. It returns the number of frames written.
func Write[S Sample](p *PCM, buf []S) (int, error) {
	if p.stream != Playback {
		return 0, errors.New("alsa: cannot write to a capture stream")
	}

	return transfer(p, ioctlWriteIFrame, buf)
}

// Read fills buf with interleaved samples from a capture PCM, blocking until it is full.
// It returns the number of frames read.
func Read[S Sample](p *PCM, buf []S) (int, error) {
	if p.stream != Capture {
		return 0, errors.New("alsa: cannot read from a playback stream")
	}

	return transfer(p, ioctlReadIFrames, buf)
}

func transfer[S Sample](p *PCM, req uintptr, buf []S) (int, error) {
	if p.file == nil {
		return 0, ErrClosed
	}

	var zero S
	if uint32(unsafe.Sizeof(zero))*8 != p.config.Format.Bits() {
		return 0, fmt.Errorf("alsa: %T samples do not match format %s", zero, p.config.Format)
	}

	if len(buf) == 0 {
		return 0, nil
	}

	if len(buf)%int(p.config.Channels) != 0 {
		return 0, fmt.Errorf("alsa: buffer of %d samples is not a whole number of %d-channel frames",
			len(buf), p.config.Channels)
	}

	defer runtime.KeepAlive(buf)

	frameBytes := uintptr(p.FrameSize())
	frames := uint32(len(buf)) / p.config.Channels
	base := uintptr(unsafe.Pointer(&buf[0]))

	done := uint32(0)
	for done < frames {
		x := xferi{
			Buf:    base + uintptr(done)*frameBytes,
			Frames: uframes(frames - done),
		}

		err := ioctl(p.file.Fd(), req, unsafe.Pointer(&x))
		if x.Result > 0 {
			done += uint32(x.Result)
		}

		switch {
		case err == nil:
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EPIPE), errors.Is(err, unix.ESTRPIPE):
			p.xruns++
			if perr := p.Prepare(); perr != nil {
				return int(done), fmt.Errorf("alsa: xrun recovery: %w", perr)
			}
		default:
			return int(done), fmt.Errorf("alsa: transfer: %w", err)
		}
	}

	return int(done), nil
}
