// Package wav decodes raw PCM16 speech payloads and encodes them as canonical
// 44-byte-header WAV files that browsers can play directly.
package wav

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	// HeaderSize is the size of the canonical RIFF/WAVE header.
	HeaderSize = 44

	bitsPerSample = 16
	formatPCM     = 1
)

// Audio is de-interleaved, normalized channel data.
type Audio struct {
	SampleRate int
	Channels   [][]float32
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Duration returns the playback length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// DecodePCM16 interprets data as signed little-endian 16-bit PCM with
// channelCount interleaved channels. Each sample is divided by 32768 so values
// fall in [-1, 1). A trailing partial frame is ignored.
func DecodePCM16(data []byte, sampleRate, channelCount int) (*Audio, error) {
	if channelCount <= 0 {
		return nil, fmt.Errorf("channel count must be positive, got %d", channelCount)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	samples := len(data) / 2
	frames := samples / channelCount

	channels := make([][]float32, channelCount)
	for ch := range channels {
		channels[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channelCount; ch++ {
			off := (i*channelCount + ch) * 2
			v := int16(binary.LittleEndian.Uint16(data[off:]))
			channels[ch][i] = float32(v) / 32768.0
		}
	}

	return &Audio{SampleRate: sampleRate, Channels: channels}, nil
}

// EncodeWAV builds a PCM WAV container from normalized samples.
// Samples are clamped to [-1, 1] and scaled by 0x8000 when negative and
// 0x7FFF otherwise, truncating toward zero.
func EncodeWAV(a *Audio) ([]byte, error) {
	numCh := len(a.Channels)
	if numCh == 0 {
		return nil, fmt.Errorf("audio has no channels")
	}
	frames := a.Frames()
	for ch, data := range a.Channels {
		if len(data) != frames {
			return nil, fmt.Errorf("channel %d has %d samples, want %d", ch, len(data), frames)
		}
	}

	dataSize := frames * numCh * 2
	length := dataSize + HeaderSize
	out := make([]byte, length)
	le := binary.LittleEndian

	copy(out[0:], "RIFF")
	le.PutUint32(out[4:], uint32(length-8))
	copy(out[8:], "WAVE")
	copy(out[12:], "fmt ")
	le.PutUint32(out[16:], 16)
	le.PutUint16(out[20:], formatPCM)
	le.PutUint16(out[22:], uint16(numCh))
	le.PutUint32(out[24:], uint32(a.SampleRate))
	le.PutUint32(out[28:], uint32(a.SampleRate*2*numCh))
	le.PutUint16(out[32:], uint16(numCh*2))
	le.PutUint16(out[34:], bitsPerSample)
	copy(out[36:], "data")
	le.PutUint32(out[40:], uint32(dataSize))

	pos := HeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numCh; ch++ {
			le.PutUint16(out[pos:], uint16(quantize(a.Channels[ch][i])))
			pos += 2
		}
	}
	return out, nil
}

func quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	if v < 0 {
		v *= 0x8000
	} else {
		v *= 0x7FFF
	}
	return int16(math.Trunc(v))
}

// Header is the parsed fmt and data information of a WAV file.
type Header struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataOffset    int
	DataSize      int
}

// ParseHeader reads the canonical 44-byte header produced by EncodeWAV and by
// most speech services.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	le := binary.LittleEndian

	h := &Header{}
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4:]))
		body := off + 8
		switch id {
		case "fmt ":
			if body+16 > len(data) {
				return nil, fmt.Errorf("truncated fmt chunk")
			}
			if tag := le.Uint16(data[body:]); tag != formatPCM {
				return nil, fmt.Errorf("unsupported wav format tag %d", tag)
			}
			h.Channels = int(le.Uint16(data[body+2:]))
			h.SampleRate = int(le.Uint32(data[body+4:]))
			h.BitsPerSample = int(le.Uint16(data[body+14:]))
		case "data":
			h.DataOffset = body
			h.DataSize = min(size, len(data)-body)
			if h.Channels == 0 {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			return h, nil
		}
		off = body + size + size%2
	}
	return nil, fmt.Errorf("wav has no data chunk")
}
