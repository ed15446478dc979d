package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"voice-scribe-go/internal/types"
)

// sineWAV renders a 440 Hz tone of the given length as a 16 kHz mono WAV.
func sineWAV(seconds float64, amplitude float64) []byte {
	n := int(seconds * TargetSampleRate)
	buf := &SampleBuffer{Samples: make([]float64, n), SampleRate: TargetSampleRate}
	for i := range buf.Samples {
		buf.Samples[i] = amplitude * math.Sin(2*math.Pi*440*float64(i)/TargetSampleRate)
	}
	return EncodeWAV(buf)
}

func TestLoadWAV(t *testing.T) {
	data := sineWAV(1.0, 0.5)

	buf, err := NewLoader().Load(context.Background(), data, "wav")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if buf.SampleRate != TargetSampleRate {
		t.Errorf("sample rate = %d, want %d", buf.SampleRate, TargetSampleRate)
	}
	if got := buf.Duration(); math.Abs(got-1.0) > 0.01 {
		t.Errorf("duration = %v, want ~1s", got)
	}
	peak := 0.0
	for _, s := range buf.Samples {
		if s > 1 || s < -1 {
			t.Fatalf("sample out of range: %v", s)
		}
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if math.Abs(peak-0.5) > 0.02 {
		t.Errorf("peak amplitude = %v, want ~0.5", peak)
	}
}

// stereoWAV renders interleaved left/right constant samples as a 16-bit
// two-channel WAV at the target rate.
func stereoWAV(seconds, left, right float64) []byte {
	n := int(seconds * TargetSampleRate)
	var pcm bytes.Buffer
	for i := 0; i < n; i++ {
		_ = binary.Write(&pcm, binary.LittleEndian, int16(math.Round(left*32767)))
		_ = binary.Write(&pcm, binary.LittleEndian, int16(math.Round(right*32767)))
	}
	dataLen := uint32(pcm.Len())
	rate := uint32(TargetSampleRate)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, 36+dataLen)
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(2)) // stereo
	_ = binary.Write(&out, binary.LittleEndian, rate)
	_ = binary.Write(&out, binary.LittleEndian, rate*4) // byte rate
	_ = binary.Write(&out, binary.LittleEndian, uint16(4))
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, dataLen)
	out.Write(pcm.Bytes())
	return out.Bytes()
}

func TestLoadStereoDownmixesByAveraging(t *testing.T) {
	data := stereoWAV(0.25, 0.8, 0.2)

	buf, err := NewLoader().Load(context.Background(), data, "wav")
	if err != nil {
		t.Fatalf("Load stereo: %v", err)
	}
	for i, s := range buf.Samples {
		if math.Abs(s-0.5) > 0.002 {
			t.Fatalf("sample %d = %v, want ~0.5 (average of 0.8 and 0.2)", i, s)
		}
	}
}

func TestLoadSniffsFormatWhenUndeclared(t *testing.T) {
	data := sineWAV(0.25, 0.3)

	buf, err := NewLoader().Load(context.Background(), data, "")
	if err != nil {
		t.Fatalf("Load without declared format: %v", err)
	}
	if buf.Duration() == 0 {
		t.Errorf("expected decoded audio")
	}
}

func TestLoadEmptyAudio(t *testing.T) {
	data := EncodeWAV(&SampleBuffer{Samples: nil, SampleRate: TargetSampleRate})

	_, err := NewLoader().Load(context.Background(), data, "wav")
	var empty *types.EmptyAudioError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyAudioError, got %v", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	cases := []struct {
		name   string
		data   []byte
		format string
	}{
		{"declared unknown", []byte("plain text, certainly"), "txt"},
		{"sniff failure", []byte("no magic bytes here at all"), ""},
		{"declared but garbage", []byte("garbage"), "mp4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLoader().Load(context.Background(), tc.data, tc.format)
			var unsupported *types.UnsupportedFormatError
			if !errors.As(err, &unsupported) {
				t.Fatalf("expected UnsupportedFormatError, got %v", err)
			}
		})
	}
}

func TestSniffFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", append([]byte("RIFF\x00\x00\x00\x00WAVE"), make([]byte, 8)...), "wav"},
		{"flac", append([]byte("fLaC"), make([]byte, 12)...), "flac"},
		{"ogg", append([]byte("OggS"), make([]byte, 12)...), "ogg"},
		{"mp3 id3", append([]byte("ID3\x04\x00"), make([]byte, 12)...), "mp3"},
		{"mp3 frame sync", append([]byte{0xFF, 0xFB}, make([]byte, 12)...), "mp3"},
		{"m4a", append([]byte{0, 0, 0, 0x20, 'f', 't', 'y', 'p'}, make([]byte, 8)...), "m4a"},
		{"wma", append([]byte{0x30, 0x26, 0xB2, 0x75}, make([]byte, 12)...), "wma"},
		{"unknown", []byte("xxxxxxxxxxxxxxxx"), ""},
		{"too short", []byte("RIFF"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SniffFormat(tc.data); got != tc.want {
				t.Errorf("SniffFormat = %q, want %q", got, tc.want)
			}
		})
	}
}

// stubFFmpeg writes an executable shell script standing in for the ffmpeg
// binary.
func stubFFmpeg(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg-stub")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestLoadTranscodesViaFFmpeg(t *testing.T) {
	fixture := filepath.Join(t.TempDir(), "decoded.wav")
	if err := os.WriteFile(fixture, sineWAV(0.5, 0.4), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	// The stub ignores its input and copies a known WAV to the output path
	// (the last argument).
	l := NewLoader()
	l.ffmpegPath = stubFFmpeg(t, fmt.Sprintf(`for arg in "$@"; do out=$arg; done
cp %q "$out"`, fixture))

	buf, err := l.Load(context.Background(), []byte("opaque m4a payload"), "m4a")
	if err != nil {
		t.Fatalf("Load via transcode: %v", err)
	}
	if got := buf.Duration(); math.Abs(got-0.5) > 0.01 {
		t.Errorf("duration = %v, want ~0.5s", got)
	}
}

func TestLoadTranscodeFFmpegFailure(t *testing.T) {
	l := NewLoader()
	l.ffmpegPath = stubFFmpeg(t, "exit 1")

	_, err := l.Load(context.Background(), []byte("opaque wma payload"), "wma")
	var unsupported *types.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError when ffmpeg fails, got %v", err)
	}
}

func TestLoadTranscodeFFmpegMissing(t *testing.T) {
	l := NewLoader()
	l.ffmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")

	_, err := l.Load(context.Background(), []byte("opaque aac payload"), "aac")
	var unsupported *types.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError when ffmpeg is absent, got %v", err)
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	orig := &SampleBuffer{
		Samples:    []float64{0, 0.25, -0.25, 0.99, -0.99},
		SampleRate: TargetSampleRate,
	}
	decoded, err := NewLoader().Load(context.Background(), EncodeWAV(orig), "wav")
	if err != nil {
		t.Fatalf("round trip decode: %v", err)
	}
	if len(decoded.Samples) != len(orig.Samples) {
		t.Fatalf("sample count = %d, want %d", len(decoded.Samples), len(orig.Samples))
	}
	for i := range orig.Samples {
		if math.Abs(decoded.Samples[i]-orig.Samples[i]) > 0.001 {
			t.Errorf("sample %d: got %v, want %v", i, decoded.Samples[i], orig.Samples[i])
		}
	}
}
