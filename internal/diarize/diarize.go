package diarize

import (
	"context"

	"voice-scribe-go/internal/audio"
	"voice-scribe-go/internal/types"
)

// Diarizer is the "who spoke when" capability boundary. It returns ordered
// speaker turns plus a degraded flag: a degraded result carries a single
// pseudo-speaker turn spanning the whole buffer instead of real clusters.
//
// Failures are reported as *types.ModelUnavailableError or
// *types.ResourceExhaustedError; the pipeline treats both as degradable.
type Diarizer interface {
	Diarize(ctx context.Context, buf *audio.SampleBuffer) (turns []types.SpeakerTurn, degraded bool, err error)
}

// SingleSpeaker returns the degraded-mode turn list: one pseudo-speaker
// covering the whole duration.
func SingleSpeaker(duration float64) []types.SpeakerTurn {
	return []types.SpeakerTurn{{Start: 0, End: duration, Label: "SPEAKER_00"}}
}
