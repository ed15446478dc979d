package asr

import (
	"context"

	"voice-scribe-go/internal/audio"
	"voice-scribe-go/internal/types"
)

// Transcriber is the speech-to-text capability boundary. Implementations
// must return segments ordered by start time and non-overlapping; an empty
// slice (silence-only audio) is a valid result, not an error.
//
// Failures are reported as *types.ModelUnavailableError or
// *types.ResourceExhaustedError so the pipeline can branch on kind.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.SampleBuffer) ([]types.TranscriptSegment, error)
}
