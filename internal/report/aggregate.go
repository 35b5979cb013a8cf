package report

import (
	"coldcall-insights-go/internal/graph"
	"coldcall-insights-go/internal/types"
)

// Summary is the rolled-up view of everything ingested so far.
type Summary struct {
	TotalCalls          int            `json:"total_calls"`
	MeetingsScheduled   int            `json:"meetings_scheduled"`
	HighConfidenceCount int            `json:"high_confidence_count"`
	AverageQualityScore float64        `json:"average_quality_score"`
	ByOutcome           map[string]int `json:"by_outcome"`
	BySegment           map[string]int `json:"by_segment"`
}

// Aggregate folds session summaries into overall counters. Sessions with no
// matched segment are bucketed under "General".
func Aggregate(sessions []graph.SessionSummary) Summary {
	byOutcome := map[string]int{}
	bySegment := map[string]int{}
	meetings := 0
	highConfidence := 0
	scoreSum := 0

	for _, s := range sessions {
		byOutcome[s.Outcome]++
		segment := s.MatchedICPSegment
		if segment == "" {
			segment = "General"
		}
		bySegment[segment]++
		if s.Outcome == types.OutcomeMeetingScheduled {
			meetings++
		}
		if s.QualityStatus == types.QualityHighConfidence {
			highConfidence++
		}
		scoreSum += s.QualityScore
	}

	avg := 0.0
	if len(sessions) > 0 {
		avg = float64(scoreSum) / float64(len(sessions))
	}

	return Summary{
		TotalCalls:          len(sessions),
		MeetingsScheduled:   meetings,
		HighConfidenceCount: highConfidence,
		AverageQualityScore: avg,
		ByOutcome:           byOutcome,
		BySegment:           bySegment,
	}
}
