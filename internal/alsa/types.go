package alsa

// Kernel structures from include/uapi/sound/asound.h.
// Field order and sizes must match the C layout; uframes/sframes follow the width of C long,
// which lets Go's natural alignment reproduce the kernel padding on both 32- and 64-bit targets.

type mask struct {
	Bits [8]uint32
}

type interval struct {
	Min   uint32
	Max   uint32
	Flags uint32 // openmin:1, openmax:1, integer:1, empty:1
}

type pcmInfo struct {
	Device          uint32
	Subdevice       uint32
	Stream          int32
	Card            int32
	ID              [64]byte
	Name            [80]byte
	Subname         [32]byte
	DevClass        int32
	DevSubclass     int32
	SubdevicesCount uint32
	SubdevicesAvail uint32
	Sync            [16]byte
	Reserved        [64]byte
}

type hwParams struct {
	Flags     uint32
	Masks     [3]mask
	Mres      [5]mask
	Intervals [12]interval
	Ires      [9]interval
	Rmask     uint32
	Cmask     uint32
	Info      uint32
	Msbits    uint32
	RateNum   uint32
	RateDen   uint32
	FifoSize  uframes
	Reserved  [64]byte
}

type swParams struct {
	TstampMode       int32
	PeriodStep       uint32
	SleepMin         uint32
	AvailMin         uframes
	XferAlign        uframes
	StartThreshold   uframes
	StopThreshold    uframes
	SilenceThreshold uframes
	SilenceSize      uframes
	Boundary         uframes
	Proto            uint32
	TstampType       uint32
	Reserved         [56]byte
}

type xferi struct {
	Result sframes
	Buf    uintptr
	Frames uframes
}

// newHwParams returns hardware parameters that allow every value.
func newHwParams() *hwParams {
	p := &hwParams{}
	for n := range p.Masks {
		for i := range p.Masks[n].Bits {
			p.Masks[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Mres {
		for i := range p.Mres[n].Bits {
			p.Mres[n].Bits[i] = ^uint32(0)
		}
	}

	for n := range p.Intervals {
		p.Intervals[n] = interval{Max: ^uint32(0)}
	}

	for n := range p.Ires {
		p.Ires[n] = interval{Max: ^uint32(0)}
	}

	p.Rmask = ^uint32(0)
	p.Info = ^uint32(0)

	return p
}

// setMask restricts a mask parameter to a single value.
func (p *hwParams) setMask(param int, bit uint32) {
	if param < hwParamAccess || param > hwParamSubformat || bit >= maskMax {
		return
	}

	m := &p.Masks[param-hwParamAccess]
	for i := range m.Bits {
		m.Bits[i] = 0
	}
	m.Bits[bit>>5] |= 1 << (bit & 31)
}

func (p *hwParams) interval(param int) *interval {
	if param < hwParamSampleBits || param > hwParamTickTime {
		return nil
	}

	return &p.Intervals[param-hwParamSampleBits]
}

// setInt pins an interval parameter to exactly val.
func (p *hwParams) setInt(param int, val uint32) {
	if i := p.interval(param); i != nil {
		*i = interval{Min: val, Max: val, Flags: intervalInteger}
	}
}

// setMin raises the lower bound of an interval parameter.
func (p *hwParams) setMin(param int, val uint32) {
	if i := p.interval(param); i != nil {
		i.Min = val
	}
}

// getInt reads the value the driver settled on.
func (p *hwParams) getInt(param int) uint32 {
	if i := p.interval(param); i != nil {
		return i.Min
	}

	return 0
}
