// Package aggregator assembles matched segments into the transcript
// aggregate and renders its canonical text form.
package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"voice-scribe-go/internal/types"
)

// Build constructs the DiarizedTranscript aggregate. Segments are emitted in
// ascending start order regardless of speaker; CreatedAt is set once here.
func Build(conversationID string, segments []types.MatchedSegment, speakerCount int, totalDuration float64, now time.Time) *types.DiarizedTranscript {
	segs := make([]types.MatchedSegment, len(segments))
	copy(segs, segments)
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	names := make(map[int]string, speakerCount)
	for _, s := range segs {
		if _, ok := names[s.SpeakerID]; !ok {
			names[s.SpeakerID] = fmt.Sprintf("Speaker %d", s.SpeakerID)
		}
	}

	return &types.DiarizedTranscript{
		ConversationID: conversationID,
		Segments:       segs,
		SpeakerCount:   speakerCount,
		SpeakerNames:   names,
		TotalDuration:  totalDuration,
		CreatedAt:      now.UTC(),
	}
}

// WithSpeakerNames overlays display names for the given speaker ids and
// returns a copy of the transcript. Segments are shared, never mutated; ids
// not present in the transcript are ignored.
func WithSpeakerNames(t *types.DiarizedTranscript, names map[int]string) *types.DiarizedTranscript {
	out := *t
	out.SpeakerNames = make(map[int]string, len(t.SpeakerNames))
	for id, n := range t.SpeakerNames {
		out.SpeakerNames[id] = n
	}
	for id, n := range names {
		if _, ok := out.SpeakerNames[id]; ok && strings.TrimSpace(n) != "" {
			out.SpeakerNames[id] = n
		}
	}
	return &out
}

// Render produces the canonical human-readable transcript: one line per
// segment, "{display name}: [{mm:ss}-{mm:ss}] {text}".
func Render(t *types.DiarizedTranscript) string {
	var b strings.Builder
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "%s: [%s-%s] %s\n", displayName(t, s.SpeakerID), formatTS(s.Start), formatTS(s.End), s.Text)
	}
	return b.String()
}

func displayName(t *types.DiarizedTranscript, id int) string {
	if n, ok := t.SpeakerNames[id]; ok && n != "" {
		return n
	}
	return fmt.Sprintf("Speaker %d", id)
}

// formatTS renders seconds as mm:ss; minutes keep counting past 59 so the
// format stays two-field for any conversation length.
func formatTS(sec float64) string {
	d := time.Duration(sec * float64(time.Second))
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}
