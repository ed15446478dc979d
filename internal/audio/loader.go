package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/sirupsen/logrus"

	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/types"
)

// Formats decodable in-process. M4A/AAC/WMA are handed to ffmpeg first and
// re-enter as WAV.
const (
	formatWAV  = "wav"
	formatMP3  = "mp3"
	formatFLAC = "flac"
	formatOGG  = "ogg"
	formatM4A  = "m4a"
	formatAAC  = "aac"
	formatWMA  = "wma"
)

// Loader decodes uploaded audio into a normalized SampleBuffer:
// mono, TargetSampleRate, float samples in [-1,1]. It has no side effects
// beyond a temp file when ffmpeg transcoding is needed.
type Loader struct {
	log *logrus.Entry

	// ffmpegPath overrides the binary looked up on PATH; tests use this.
	ffmpegPath string
}

func NewLoader() *Loader {
	return &Loader{log: logger.Component("audio.loader")}
}

// Load decodes data into a SampleBuffer. declaredFormat, when non-empty, is
// the caller's container hint (file extension without dot); otherwise the
// format is sniffed from magic bytes.
func (l *Loader) Load(ctx context.Context, data []byte, declaredFormat string) (*SampleBuffer, error) {
	format := strings.ToLower(strings.TrimPrefix(declaredFormat, "."))
	if format == "" {
		format = SniffFormat(data)
	}

	switch format {
	case formatWAV, formatMP3, formatFLAC, formatOGG:
		return l.decode(data, format)
	case formatM4A, formatAAC, formatWMA:
		wavData, err := l.transcode(ctx, data, format)
		if err != nil {
			return nil, err
		}
		return l.decode(wavData, formatWAV)
	default:
		return nil, &types.UnsupportedFormatError{Format: format}
	}
}

// SniffFormat identifies the container from magic bytes. Returns "" when the
// header matches none of the supported containers.
func SniffFormat(data []byte) string {
	if len(data) < 12 {
		return ""
	}
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return formatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return formatFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return formatOGG
	case bytes.HasPrefix(data, []byte("ID3")),
		len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return formatMP3
	case bytes.Equal(data[4:8], []byte("ftyp")):
		return formatM4A
	case bytes.HasPrefix(data, []byte{0x30, 0x26, 0xB2, 0x75}):
		return formatWMA
	}
	return ""
}

func (l *Loader) decode(data []byte, format string) (*SampleBuffer, error) {
	rc := io.NopCloser(bytes.NewReader(data))

	var (
		stream beep.StreamSeekCloser
		f      beep.Format
		err    error
	)
	switch format {
	case formatWAV:
		stream, f, err = wav.Decode(rc)
	case formatMP3:
		stream, f, err = mp3.Decode(rc)
	case formatFLAC:
		stream, f, err = flac.Decode(rc)
	case formatOGG:
		stream, f, err = vorbis.Decode(rc)
	}
	if err != nil {
		return nil, &types.UnsupportedFormatError{Format: format}
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if int(f.SampleRate) != TargetSampleRate {
		src = beep.Resample(4, f.SampleRate, beep.SampleRate(TargetSampleRate), stream)
	}

	samples := drainMono(src, f.NumChannels)
	if len(samples) == 0 {
		return nil, &types.EmptyAudioError{}
	}

	buf := &SampleBuffer{Samples: samples, SampleRate: TargetSampleRate}
	l.log.WithFields(logrus.Fields{
		"format":      format,
		"source_rate": int(f.SampleRate),
		"duration_s":  buf.Duration(),
	}).Debug("audio decoded")
	return buf, nil
}

// drainMono pulls the whole stream into mono samples. beep spreads a
// one-channel source across both frame slots at half amplitude, so mono
// sources are summed while true stereo is averaged.
func drainMono(s beep.Streamer, channels int) []float64 {
	var samples []float64
	frame := make([][2]float64, 1024)
	for {
		n, ok := s.Stream(frame)
		for i := 0; i < n; i++ {
			v := frame[i][0] + frame[i][1]
			if channels != 1 {
				v /= 2
			}
			samples = append(samples, v)
		}
		if !ok {
			break
		}
	}
	return samples
}

// transcode shells out to ffmpeg for containers beep cannot decode.
func (l *Loader) transcode(ctx context.Context, data []byte, format string) ([]byte, error) {
	bin := l.ffmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, &types.UnsupportedFormatError{Format: format}
	}

	dir, err := os.MkdirTemp("", "voicescribe-*")
	if err != nil {
		return nil, fmt.Errorf("transcode tmp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in."+format)
	out := filepath.Join(dir, "out.wav")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("transcode input: %w", err)
	}

	// ffmpeg -y -i in -ac 1 -ar 16000 -f wav out
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-i", in,
		"-ac", "1", "-ar", fmt.Sprint(TargetSampleRate),
		"-f", "wav",
		out,
	)
	if err := cmd.Run(); err != nil {
		l.log.WithError(err).WithField("format", format).Warn("ffmpeg transcode failed")
		return nil, &types.UnsupportedFormatError{Format: format}
	}
	return os.ReadFile(out)
}
