package signal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// decodeWAV reads a whole integer PCM WAV file.
func decodeWAV(r io.ReadSeeker, channels int) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}

	if d.WavAudioFormat != 1 {
		return nil, fmt.Errorf("unsupported WAV audio format %d, only integer PCM is supported", d.WavAudioFormat)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	pcm.SourceBitDepth = int(d.BitDepth)

	return fromIntBuffer(pcm, channels)
}

// decodeMP3 decodes a whole MP3 file. go-mp3 always produces 16-bit stereo.
func decodeMP3(r io.ReadSeeker, channels int) (*Buffer, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, err
	}

	data := make([]int, len(raw)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}

	return fromIntBuffer(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: d.SampleRate()},
		Data:           data,
		SourceBitDepth: 16,
	}, channels)
}

// fromIntBuffer scales decoded samples to 16 bit and maps them onto the device channels.
// Missing channels repeat the last source channel, surplus source channels are dropped.
func fromIntBuffer(pcm *audio.IntBuffer, channels int) (*Buffer, error) {
	if pcm.Format == nil || pcm.Format.NumChannels <= 0 {
		return nil, errors.New("decoded audio has no channel layout")
	}

	src := pcm.Format.NumChannels
	depth := pcm.SourceBitDepth
	if depth != 8 && depth != 16 && depth != 24 && depth != 32 {
		return nil, fmt.Errorf("unsupported bit depth %d", depth)
	}

	frames := len(pcm.Data) / src
	out := make([]int16, frames*channels)
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			sc := min(c, src-1)
			out[f*channels+c] = to16(pcm.Data[f*src+sc], depth)
		}
	}

	return &Buffer{samples: out, channels: channels, sampleRate: pcm.Format.SampleRate}, nil
}

// to16 converts one sample of the given bit depth to int16. 8-bit WAV data is unsigned.
func to16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 16:
		return int16(v)
	default:
		return int16(v >> (depth - 16))
	}
}
