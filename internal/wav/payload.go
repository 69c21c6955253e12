package wav

import (
	"fmt"
	"strings"
)

// Payload formats returned by speech backends.
const (
	FormatPCM = "pcm"
	FormatWAV = "wav"
)

// FromPayload turns a speech payload into playable WAV bytes and reports its
// duration in seconds. Raw PCM16 is decoded and re-encoded; WAV is validated
// and passed through unchanged.
func FromPayload(payload []byte, format string, sampleRate, channels int) ([]byte, float64, error) {
	if len(payload) == 0 {
		return nil, 0, fmt.Errorf("empty audio payload")
	}

	switch strings.ToLower(format) {
	case FormatPCM, "":
		audio, err := DecodePCM16(payload, sampleRate, channels)
		if err != nil {
			return nil, 0, err
		}
		if audio.Frames() == 0 {
			return nil, 0, fmt.Errorf("audio payload has no complete frames")
		}
		out, err := EncodeWAV(audio)
		if err != nil {
			return nil, 0, err
		}
		return out, audio.Duration(), nil
	case FormatWAV:
		h, err := ParseHeader(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid wav payload: %w", err)
		}
		var duration float64
		if bytesPerSec := h.SampleRate * h.Channels * h.BitsPerSample / 8; bytesPerSec > 0 {
			duration = float64(h.DataSize) / float64(bytesPerSec)
		}
		return payload, duration, nil
	default:
		return nil, 0, fmt.Errorf("unsupported audio format %q", format)
	}
}
