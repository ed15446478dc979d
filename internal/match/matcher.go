// Package match assigns transcript segments to diarizer speaker turns by
// maximum temporal overlap.
package match

import "voice-scribe-go/internal/types"

// fallbackLabel is the synthetic cluster used when a segment overlaps no
// turn at all. It participates in first-appearance renumbering like any
// other label, so such segments still carry a valid speaker id.
const fallbackLabel = "\x00fallback"

// Match assigns every segment to the turn with which it shares the most
// time, then remaps the raw cluster labels to compact 1-based speaker ids in
// order of first assignment. Labels with zero assigned segments get no id,
// so the returned speaker count never inflates from diarizer noise.
//
// Every input segment appears in the output exactly once, in input order.
// Cost is O(len(segments) * len(turns)); both are bounded by conversation
// length, not sample count.
func Match(segments []types.TranscriptSegment, turns []types.SpeakerTurn) ([]types.MatchedSegment, int) {
	assigned := make([]types.MatchedSegment, 0, len(segments))
	ids := map[string]int{}
	next := 1

	for _, seg := range segments {
		label, conf := bestTurn(seg, turns)
		id, ok := ids[label]
		if !ok {
			id = next
			ids[label] = id
			next++
		}
		assigned = append(assigned, types.MatchedSegment{
			TranscriptSegment: seg,
			SpeakerID:         id,
			MatchConfidence:   conf,
		})
	}
	return assigned, len(ids)
}

// bestTurn picks the turn with maximum overlap. Ties break toward the
// earlier-starting turn, then toward the first-listed turn, so the result
// is deterministic across runs. With no positive overlap the fallback
// speaker is chosen with confidence 0.
func bestTurn(seg types.TranscriptSegment, turns []types.SpeakerTurn) (string, float64) {
	bestIdx := -1
	bestOverlap := 0.0
	for i, t := range turns {
		ov := overlap(seg, t)
		if ov <= 0 {
			continue
		}
		if ov > bestOverlap || (ov == bestOverlap && bestIdx >= 0 && t.Start < turns[bestIdx].Start) {
			bestIdx = i
			bestOverlap = ov
		}
	}
	if bestIdx < 0 {
		return fallbackLabel, 0
	}
	conf := 0.0
	if d := seg.Duration(); d > 0 {
		conf = bestOverlap / d
	}
	if conf > 1 {
		conf = 1
	} else if conf < 0 {
		conf = 0
	}
	return turns[bestIdx].Label, conf
}

func overlap(seg types.TranscriptSegment, t types.SpeakerTurn) float64 {
	lo := seg.Start
	if t.Start > lo {
		lo = t.Start
	}
	hi := seg.End
	if t.End < hi {
		hi = t.End
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
