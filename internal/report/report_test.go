package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"voice-scribe-go/internal/types"
)

func TestWriteWorkbook(t *testing.T) {
	dir := t.TempDir()
	tr := &types.DiarizedTranscript{
		ConversationID: "conv-9",
		Segments: []types.MatchedSegment{
			{
				TranscriptSegment: types.TranscriptSegment{Start: 0, End: 4, Text: "morning all"},
				SpeakerID:         1,
				MatchConfidence:   1.0,
			},
			{
				TranscriptSegment: types.TranscriptSegment{Start: 4, End: 7, Text: "morning"},
				SpeakerID:         2,
				MatchConfidence:   0.75,
			},
		},
		SpeakerCount:  2,
		SpeakerNames:  map[int]string{1: "Speaker 1", 2: "Speaker 2"},
		TotalDuration: 7,
		CreatedAt:     time.Now().UTC(),
	}
	speakerStats := []types.SpeakerStats{
		{SpeakerID: 1, SpeakingTime: 4, SegmentCount: 1, WordCount: 2, AvgConfidence: 1.0},
		{SpeakerID: 2, SpeakingTime: 3, SegmentCount: 1, WordCount: 1, AvgConfidence: 0.75},
	}

	path, err := Write(dir, tr, speakerStats)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(path) != "conv-9_report.xlsx" {
		t.Errorf("report name = %q", filepath.Base(path))
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Speakers")
	if err != nil {
		t.Fatalf("read Speakers sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Speakers rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "Speaker 1" {
		t.Errorf("first speaker name = %q", rows[1][1])
	}

	segRows, err := f.GetRows("Segments")
	if err != nil {
		t.Fatalf("read Segments sheet: %v", err)
	}
	if len(segRows) != 3 {
		t.Errorf("Segments rows = %d, want header + 2", len(segRows))
	}
}
