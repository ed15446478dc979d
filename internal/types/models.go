package types

import "time"

// TranscriptSegment is a single piece of recognized speech. Segments produced
// by a Transcriber are ordered by Start and never overlap each other.
type TranscriptSegment struct {
	Start         float64 `json:"start"`
	End           float64 `json:"end"`
	Text          string  `json:"text"`
	ASRConfidence float64 `json:"asr_confidence"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// SpeakerTurn is a time interval the diarizer attributed to one anonymous
// speaker cluster. Label is an opaque cluster identifier, not a stable
// speaker number; turns of different labels may overlap (crosstalk).
type SpeakerTurn struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Label string  `json:"speaker_label"`
}

// MatchedSegment is a transcript segment with its assigned speaker.
// SpeakerID is a compact 1-based id, stable within one transcript and
// assigned in order of first appearance. MatchConfidence is the fraction of
// the segment covered by the chosen turn, in [0,1].
type MatchedSegment struct {
	TranscriptSegment
	SpeakerID       int     `json:"speaker_id"`
	MatchConfidence float64 `json:"match_confidence"`
}

// DiarizedTranscript is the aggregate result of one pipeline run.
// SpeakerCount always equals the number of distinct SpeakerID values present
// in Segments. CreatedAt is set once at construction.
type DiarizedTranscript struct {
	ConversationID string           `json:"conversation_id"`
	Segments       []MatchedSegment `json:"segments"`
	SpeakerCount   int              `json:"speaker_count"`
	SpeakerNames   map[int]string   `json:"speaker_names"`
	TotalDuration  float64          `json:"total_duration"`
	CreatedAt      time.Time        `json:"created_at"`
}

// SpeakerStats holds per-speaker aggregates derived from a transcript.
// Recomputable at any time from the transcript; never persisted as the
// source of truth.
type SpeakerStats struct {
	SpeakerID     int     `json:"speaker_id"`
	SpeakingTime  float64 `json:"speaking_time"`
	SegmentCount  int     `json:"segment_count"`
	WordCount     int     `json:"word_count"`
	AvgConfidence float64 `json:"avg_confidence"`
}
