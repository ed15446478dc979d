package audio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// TargetSampleRate is the fixed rate every decoded buffer is normalized to.
const TargetSampleRate = 16000

// SampleBuffer is a normalized mono PCM buffer. It is produced once by the
// Loader and read-only afterwards; the model adapters share it across
// concurrent calls without copying.
type SampleBuffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length in seconds.
func (b *SampleBuffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// EncodeWAV renders the buffer as a 16-bit PCM mono WAV file. Used by the
// model adapters to ship audio to remote inference services.
func EncodeWAV(b *SampleBuffer) []byte {
	var pcm bytes.Buffer
	for _, s := range b.Samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		_ = binary.Write(&pcm, binary.LittleEndian, int16(math.Round(v*32767)))
	}

	dataLen := uint32(pcm.Len())
	rate := uint32(b.SampleRate)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, 36+dataLen)
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16)) // fmt chunk size
	_ = binary.Write(&out, binary.LittleEndian, uint16(1))  // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(1))  // mono
	_ = binary.Write(&out, binary.LittleEndian, rate)
	_ = binary.Write(&out, binary.LittleEndian, rate*2) // byte rate
	_ = binary.Write(&out, binary.LittleEndian, uint16(2))
	_ = binary.Write(&out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, dataLen)
	out.Write(pcm.Bytes())
	return out.Bytes()
}
