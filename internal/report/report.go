// Package report writes the per-conversation speaker statistics workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"voice-scribe-go/internal/logger"
	"voice-scribe-go/internal/types"
)

// Write emits an XLSX workbook for the transcript into dir, named
// {conversation_id}_report.xlsx: a "Speakers" sheet with the computed stats
// and a "Segments" sheet with the attributed segments. Returns the written
// path.
func Write(dir string, t *types.DiarizedTranscript, speakerStats []types.SpeakerStats) (string, error) {
	log := logger.Component("report").WithField("conversation_id", t.ConversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const speakersSheet = "Speakers"
	f.SetSheetName("Sheet1", speakersSheet)
	header := []interface{}{"Speaker ID", "Display Name", "Speaking Time (s)", "Segments", "Words", "Avg Confidence"}
	if err := f.SetSheetRow(speakersSheet, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	for i, st := range speakerStats {
		row := []interface{}{
			st.SpeakerID,
			t.SpeakerNames[st.SpeakerID],
			st.SpeakingTime,
			st.SegmentCount,
			st.WordCount,
			st.AvgConfidence,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(speakersSheet, cell, &row); err != nil {
			return "", fmt.Errorf("write speaker row: %w", err)
		}
	}

	const segmentsSheet = "Segments"
	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return "", fmt.Errorf("segments sheet: %w", err)
	}
	segHeader := []interface{}{"Start", "End", "Speaker ID", "Match Confidence", "Text"}
	if err := f.SetSheetRow(segmentsSheet, "A1", &segHeader); err != nil {
		return "", fmt.Errorf("write segments header: %w", err)
	}
	for i, seg := range t.Segments {
		row := []interface{}{seg.Start, seg.End, seg.SpeakerID, seg.MatchConfidence, seg.Text}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(segmentsSheet, cell, &row); err != nil {
			return "", fmt.Errorf("write segment row: %w", err)
		}
	}

	path := filepath.Join(dir, t.ConversationID+"_report.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	log.WithField("path", path).Info("stats report written")
	return path, nil
}
