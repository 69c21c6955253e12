package wav

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestDecodePCM16(t *testing.T) {
	t.Run("mono normalizes by 32768", func(t *testing.T) {
		a, err := DecodePCM16(pcmBytes(0, 16384, -32768, 32767), 24000, 1)
		if err != nil {
			t.Fatalf("DecodePCM16() error = %v", err)
		}
		want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
		if a.Frames() != len(want) {
			t.Fatalf("frames = %d, want %d", a.Frames(), len(want))
		}
		for i, w := range want {
			if a.Channels[0][i] != w {
				t.Errorf("sample %d = %v, want %v", i, a.Channels[0][i], w)
			}
		}
	})

	t.Run("stereo is de-interleaved", func(t *testing.T) {
		a, err := DecodePCM16(pcmBytes(100, -100, 200, -200), 44100, 2)
		if err != nil {
			t.Fatalf("DecodePCM16() error = %v", err)
		}
		if len(a.Channels) != 2 || a.Frames() != 2 {
			t.Fatalf("got %d channels x %d frames", len(a.Channels), a.Frames())
		}
		if a.Channels[0][1] != 200.0/32768.0 || a.Channels[1][1] != -200.0/32768.0 {
			t.Errorf("unexpected second frame: %v %v", a.Channels[0][1], a.Channels[1][1])
		}
	})

	t.Run("trailing odd byte is ignored", func(t *testing.T) {
		data := append(pcmBytes(1, 2), 0x7f)
		a, err := DecodePCM16(data, 24000, 1)
		if err != nil {
			t.Fatalf("DecodePCM16() error = %v", err)
		}
		if a.Frames() != 2 {
			t.Errorf("frames = %d, want 2", a.Frames())
		}
	})

	t.Run("rejects zero channels", func(t *testing.T) {
		if _, err := DecodePCM16(pcmBytes(1), 24000, 0); err == nil {
			t.Error("expected error for zero channels")
		}
	})
}

func TestEncodeWAVHeader(t *testing.T) {
	a := &Audio{SampleRate: 24000, Channels: [][]float32{{0, 0.5, -0.5}}}
	out, err := EncodeWAV(a)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}

	if len(out) != HeaderSize+6 {
		t.Fatalf("len = %d, want %d", len(out), HeaderSize+6)
	}
	le := binary.LittleEndian
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"riff", string(out[0:4]), "RIFF"},
		{"riff size", le.Uint32(out[4:]), uint32(len(out) - 8)},
		{"wave", string(out[8:12]), "WAVE"},
		{"fmt", string(out[12:16]), "fmt "},
		{"fmt size", le.Uint32(out[16:]), uint32(16)},
		{"format tag", le.Uint16(out[20:]), uint16(1)},
		{"channels", le.Uint16(out[22:]), uint16(1)},
		{"sample rate", le.Uint32(out[24:]), uint32(24000)},
		{"byte rate", le.Uint32(out[28:]), uint32(48000)},
		{"block align", le.Uint16(out[32:]), uint16(2)},
		{"bits", le.Uint16(out[34:]), uint16(16)},
		{"data", string(out[36:40]), "data"},
		{"data size", le.Uint32(out[40:]), uint32(6)},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestEncodeWAVQuantization(t *testing.T) {
	a := &Audio{SampleRate: 8000, Channels: [][]float32{{1, -1, 2, -2, 0.5, -0.5, float32(math.NaN())}}}
	out, err := EncodeWAV(a)
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	want := []int16{32767, -32768, 32767, -32768, 16383, -16384, 0}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(out[HeaderSize+i*2:]))
		if got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}

func TestEncodeWAVRejectsRaggedChannels(t *testing.T) {
	a := &Audio{SampleRate: 8000, Channels: [][]float32{{0, 0}, {0}}}
	if _, err := EncodeWAV(a); err == nil {
		t.Error("expected error for mismatched channel lengths")
	}
}

func TestRoundTripWithinOneLSB(t *testing.T) {
	var samples []int16
	for v := -32768; v <= 32767; v += 97 {
		samples = append(samples, int16(v))
	}
	samples = append(samples, 32767, -1, 1, 0)

	for _, channels := range []int{1, 2} {
		in := samples
		if len(in)%channels != 0 {
			in = in[:len(in)-1]
		}
		a, err := DecodePCM16(pcmBytes(in...), 24000, channels)
		if err != nil {
			t.Fatalf("DecodePCM16() error = %v", err)
		}
		out, err := EncodeWAV(a)
		if err != nil {
			t.Fatalf("EncodeWAV() error = %v", err)
		}
		for i, orig := range in {
			got := int16(binary.LittleEndian.Uint16(out[HeaderSize+i*2:]))
			if diff := int(got) - int(orig); diff < -1 || diff > 1 {
				t.Fatalf("channels=%d sample %d: got %d, want %d±1", channels, i, got, orig)
			}
		}
	}
}

func TestParseHeader(t *testing.T) {
	out, err := EncodeWAV(&Audio{SampleRate: 22050, Channels: [][]float32{{0, 0}, {0, 0}}})
	if err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	h, err := ParseHeader(out)
	if err != nil {
		t.Fatalf("ParseHeader() error = %v", err)
	}
	if h.Channels != 2 || h.SampleRate != 22050 || h.BitsPerSample != 16 {
		t.Errorf("unexpected header: %+v", h)
	}
	if h.DataOffset != HeaderSize || h.DataSize != 8 {
		t.Errorf("unexpected data range: offset=%d size=%d", h.DataOffset, h.DataSize)
	}

	if _, err := ParseHeader([]byte("not a wav file at all, definitely not 44 bytes")); err == nil {
		t.Error("expected error for non-wav data")
	}
}

func TestFromPayload(t *testing.T) {
	t.Run("pcm is wrapped", func(t *testing.T) {
		pcm := pcmBytes(make([]int16, 24000)...)
		out, dur, err := FromPayload(pcm, FormatPCM, 24000, 1)
		if err != nil {
			t.Fatalf("FromPayload() error = %v", err)
		}
		if string(out[0:4]) != "RIFF" {
			t.Error("expected RIFF output")
		}
		if dur != 1.0 {
			t.Errorf("duration = %v, want 1", dur)
		}
	})

	t.Run("wav passes through", func(t *testing.T) {
		in, _ := EncodeWAV(&Audio{SampleRate: 16000, Channels: [][]float32{make([]float32, 8000)}})
		out, dur, err := FromPayload(in, FormatWAV, 24000, 1)
		if err != nil {
			t.Fatalf("FromPayload() error = %v", err)
		}
		if len(out) != len(in) {
			t.Error("expected wav bytes unchanged")
		}
		if dur != 0.5 {
			t.Errorf("duration = %v, want 0.5", dur)
		}
	})

	t.Run("empty payload fails", func(t *testing.T) {
		if _, _, err := FromPayload(nil, FormatPCM, 24000, 1); err == nil {
			t.Error("expected error for empty payload")
		}
	})

	t.Run("unknown format fails", func(t *testing.T) {
		if _, _, err := FromPayload([]byte{1, 2}, "mp3", 24000, 1); err == nil {
			t.Error("expected error for mp3")
		}
	})
}
