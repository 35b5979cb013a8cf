package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"coldcall-insights-go/internal/graph"
	"coldcall-insights-go/internal/logger"
)

const (
	sessionsSheet = "Sessions"
	segmentsSheet = "Segments"
	summarySheet  = "Summary"
)

// BuildWorkbook lays out sessions, segment counters and the aggregate summary
// as a three-sheet workbook for operators who live in spreadsheets.
func BuildWorkbook(sessions []graph.SessionSummary, segments []graph.SegmentCount) (*excelize.File, error) {
	log := logger.Component("report")
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sessionsSheet); err != nil {
		return nil, fmt.Errorf("rename sessions sheet: %w", err)
	}
	writeRow(f, sessionsSheet, 1, []any{
		"Session ID", "Outcome", "Product Focus", "ICP Segment",
		"Participants", "Quality Score", "Quality Status",
	})
	for i, s := range sessions {
		writeRow(f, sessionsSheet, i+2, []any{
			s.SessionID, s.Outcome, s.ProductFocus, s.MatchedICPSegment,
			s.ParticipantCount, s.QualityScore, s.QualityStatus,
		})
	}

	if _, err := f.NewSheet(segmentsSheet); err != nil {
		return nil, fmt.Errorf("create segments sheet: %w", err)
	}
	writeRow(f, segmentsSheet, 1, []any{"Segment", "Completed Calls"})
	for i, seg := range segments {
		writeRow(f, segmentsSheet, i+2, []any{seg.Segment, seg.CompletedCallCount})
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("create summary sheet: %w", err)
	}
	summary := Aggregate(sessions)
	writeRow(f, summarySheet, 1, []any{"Metric", "Value"})
	writeRow(f, summarySheet, 2, []any{"Total Calls", summary.TotalCalls})
	writeRow(f, summarySheet, 3, []any{"Meetings Scheduled", summary.MeetingsScheduled})
	writeRow(f, summarySheet, 4, []any{"High-confidence Extractions", summary.HighConfidenceCount})
	writeRow(f, summarySheet, 5, []any{"Average Quality Score", summary.AverageQualityScore})

	row := 7
	writeRow(f, summarySheet, row, []any{"Outcome", "Calls"})
	for _, outcome := range sortedKeys(summary.ByOutcome) {
		row++
		writeRow(f, summarySheet, row, []any{outcome, summary.ByOutcome[outcome]})
	}

	log.WithFields(map[string]interface{}{
		"sessions": len(sessions),
		"segments": len(segments),
	}).Info("Workbook built")
	return f, nil
}

// Export streams the workbook to w, typically an HTTP response.
func Export(w io.Writer, sessions []graph.SessionSummary, segments []graph.SegmentCount) error {
	f, err := BuildWorkbook(sessions, segments)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			continue
		}
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
