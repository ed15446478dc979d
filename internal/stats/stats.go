// Package stats derives per-speaker aggregates from a diarized transcript.
package stats

import (
	"sort"
	"strings"

	"voice-scribe-go/internal/types"
)

// Compute returns one SpeakerStats per speaker id present in the transcript,
// ordered by id. Pure function of its input: the same transcript always
// yields identical stats.
func Compute(t *types.DiarizedTranscript) []types.SpeakerStats {
	bySpeaker := map[int]*types.SpeakerStats{}
	confSum := map[int]float64{}

	for _, seg := range t.Segments {
		st, ok := bySpeaker[seg.SpeakerID]
		if !ok {
			st = &types.SpeakerStats{SpeakerID: seg.SpeakerID}
			bySpeaker[seg.SpeakerID] = st
		}
		st.SpeakingTime += seg.Duration()
		st.SegmentCount++
		st.WordCount += len(strings.Fields(seg.Text))
		confSum[seg.SpeakerID] += seg.MatchConfidence
	}

	out := make([]types.SpeakerStats, 0, len(bySpeaker))
	for id, st := range bySpeaker {
		if st.SegmentCount > 0 {
			st.AvgConfidence = confSum[id] / float64(st.SegmentCount)
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpeakerID < out[j].SpeakerID })
	return out
}
