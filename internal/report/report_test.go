package report

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"coldcall-insights-go/internal/graph"
	"coldcall-insights-go/internal/types"
)

func sampleSessions() []graph.SessionSummary {
	return []graph.SessionSummary{
		{
			SessionID: "call_transcript_1", Outcome: types.OutcomeMeetingScheduled,
			ProductFocus: "Compliance Suite", MatchedICPSegment: "Financial-SME",
			QualityScore: 55, QualityStatus: types.QualityHighConfidence, ParticipantCount: 3,
		},
		{
			SessionID: "call_transcript_2", Outcome: types.OutcomeRejected,
			ProductFocus: "Compliance Suite", QualityScore: 15,
			QualityStatus: types.QualityReviewRecommended, ParticipantCount: 2,
		},
		{
			SessionID: "call_transcript_3", Outcome: types.OutcomeMeetingScheduled,
			ProductFocus: "Compliance Suite", MatchedICPSegment: "Financial-SME",
			QualityScore: 40, QualityStatus: types.QualityHighConfidence, ParticipantCount: 2,
		},
	}
}

func TestAggregate(t *testing.T) {
	summary := Aggregate(sampleSessions())

	if summary.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d", summary.TotalCalls)
	}
	if summary.MeetingsScheduled != 2 {
		t.Errorf("MeetingsScheduled = %d", summary.MeetingsScheduled)
	}
	if summary.HighConfidenceCount != 2 {
		t.Errorf("HighConfidenceCount = %d", summary.HighConfidenceCount)
	}
	if want := (55.0 + 15.0 + 40.0) / 3.0; summary.AverageQualityScore != want {
		t.Errorf("AverageQualityScore = %v, want %v", summary.AverageQualityScore, want)
	}
	if summary.ByOutcome[types.OutcomeMeetingScheduled] != 2 || summary.ByOutcome[types.OutcomeRejected] != 1 {
		t.Errorf("ByOutcome = %v", summary.ByOutcome)
	}
	// sessions without a matched segment fall into General
	if summary.BySegment["Financial-SME"] != 2 || summary.BySegment["General"] != 1 {
		t.Errorf("BySegment = %v", summary.BySegment)
	}
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil)
	if summary.TotalCalls != 0 || summary.AverageQualityScore != 0 {
		t.Errorf("empty aggregate = %+v", summary)
	}
}

func TestExportWorkbook(t *testing.T) {
	segments := []graph.SegmentCount{
		{Segment: "Financial-SME", CompletedCallCount: 2},
		{Segment: "Retail-Enterprise", CompletedCallCount: 1},
	}

	var buf bytes.Buffer
	if err := Export(&buf, sampleSessions(), segments); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{sessionsSheet, segmentsSheet, summarySheet} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("sheet %q missing (idx %d, err %v)", sheet, idx, err)
		}
	}

	rows, err := f.GetRows(sessionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("sessions rows = %d, want header + 3", len(rows))
	}
	if rows[1][0] != "call_transcript_1" || rows[1][5] != "55" {
		t.Errorf("first session row = %v", rows[1])
	}

	segRows, err := f.GetRows(segmentsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(segRows) != 3 || segRows[1][0] != "Financial-SME" {
		t.Errorf("segment rows = %v", segRows)
	}
}
