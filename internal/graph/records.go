package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// TurnRecord is one dialogue turn as read back from the graph. Type carries
// the node label, not the raw extractor value.
type TurnRecord struct {
	TurnNumber int    `json:"turn_number"`
	Speaker    string `json:"speaker"`
	Type       string `json:"type"`
	Text       string `json:"text"`
}

// CallRecord is the per-session view fed to the script rewrite chain.
type CallRecord struct {
	SessionID    string       `json:"session_id"`
	Outcome      string       `json:"outcome"`
	QualityScore int          `json:"quality_score"`
	Participants []string     `json:"participants"`
	DialogueFlow []TurnRecord `json:"dialogue_flow"`
}

const recentCallsQuery = `
MATCH (cs:CallSession)
WITH cs
ORDER BY toInteger(split(cs.session_id, '_')[-1]) DESC
LIMIT $limit
OPTIONAL MATCH (p:Person)-[:PARTICIPATED_IN]->(cs)
WITH cs, collect(DISTINCT p.name) AS participants
OPTIONAL MATCH (turn)-[:RAISED_IN]->(cs)
OPTIONAL MATCH (turn)<-[:MADE_BY]-(speaker:Person)
WITH cs, participants,
     collect({turn_number: turn.turn_number, speaker: speaker.name, type: labels(turn)[0], text: turn.text}) AS turns
RETURN cs.session_id AS session_id,
       cs.outcome AS outcome,
       coalesce(cs.quality_score, 0) AS quality_score,
       participants,
       turns
`

// RecentCallRecords loads the most recent calls by session-id suffix,
// including participants and the full dialogue flow ordered by turn number.
func (s *Store) RecentCallRecords(ctx context.Context, limit int) ([]CallRecord, error) {
	runner := s.runner(ctx, neo4j.AccessModeRead)
	defer runner.close(ctx)

	rows, err := runner.run(ctx, recentCallsQuery, map[string]any{
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query recent calls: %w", err)
	}

	var records []CallRecord
	for _, row := range rows {
		call := CallRecord{
			SessionID:    rowString(row, "session_id"),
			Outcome:      rowString(row, "outcome"),
			QualityScore: rowInt(row, "quality_score"),
			Participants: rowStringSlice(row, "participants"),
		}

		if items, ok := row["turns"].([]any); ok {
			for _, item := range items {
				turn, ok := item.(map[string]any)
				if !ok {
					continue
				}
				tr := TurnRecord{}
				if n, ok := turn["turn_number"].(int64); ok {
					tr.TurnNumber = int(n)
				}
				tr.Speaker, _ = turn["speaker"].(string)
				tr.Type, _ = turn["type"].(string)
				tr.Text, _ = turn["text"].(string)
				if tr.Type != "" {
					call.DialogueFlow = append(call.DialogueFlow, tr)
				}
			}
		}
		sort.Slice(call.DialogueFlow, func(i, j int) bool {
			return call.DialogueFlow[i].TurnNumber < call.DialogueFlow[j].TurnNumber
		})
		records = append(records, call)
	}
	return records, nil
}

// SessionSummary is the flat per-call view used by the workbook export.
type SessionSummary struct {
	SessionID         string
	Outcome           string
	ProductFocus      string
	MatchedICPSegment string
	QualityScore      int
	QualityStatus     string
	ParticipantCount  int
}

const sessionSummariesQuery = `
MATCH (cs:CallSession)
OPTIONAL MATCH (cs)-[:FOCUSES_ON]->(prod:Product)
OPTIONAL MATCH (p:Person)-[:PARTICIPATED_IN]->(cs)
RETURN cs.session_id AS session_id,
       cs.outcome AS outcome,
       coalesce(prod.name, '') AS product,
       coalesce(cs.matched_icp_segment, '') AS segment,
       coalesce(cs.quality_score, 0) AS quality_score,
       coalesce(cs.quality_status, '') AS quality_status,
       count(DISTINCT p) AS participant_count
`

// SessionSummaries returns every call session in the graph, ordered by the
// numeric session suffix so the export reads chronologically.
func (s *Store) SessionSummaries(ctx context.Context) ([]SessionSummary, error) {
	runner := s.runner(ctx, neo4j.AccessModeRead)
	defer runner.close(ctx)

	rows, err := runner.run(ctx, sessionSummariesQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("query session summaries: %w", err)
	}

	var summaries []SessionSummary
	for _, row := range rows {
		summaries = append(summaries, SessionSummary{
			SessionID:         rowString(row, "session_id"),
			Outcome:           rowString(row, "outcome"),
			ProductFocus:      rowString(row, "product"),
			MatchedICPSegment: rowString(row, "segment"),
			QualityScore:      rowInt(row, "quality_score"),
			QualityStatus:     rowString(row, "quality_status"),
			ParticipantCount:  rowInt(row, "participant_count"),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, aok := sessionSuffix(summaries[i].SessionID)
		b, bok := sessionSuffix(summaries[j].SessionID)
		if aok != bok {
			return !aok
		}
		return a < b
	})
	return summaries, nil
}

// SegmentCount pairs a customer segment with its completed-call counter.
type SegmentCount struct {
	Segment            string
	CompletedCallCount int
}

const segmentCountsQuery = `
MATCH (seg:CustomerSegment)
RETURN seg.segment AS segment,
       coalesce(seg.completed_call_count, 0) AS completed_call_count
ORDER BY completed_call_count DESC, segment
`

// SegmentCounts returns all customer segments with their call counters.
func (s *Store) SegmentCounts(ctx context.Context) ([]SegmentCount, error) {
	runner := s.runner(ctx, neo4j.AccessModeRead)
	defer runner.close(ctx)

	rows, err := runner.run(ctx, segmentCountsQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("query segment counts: %w", err)
	}

	var counts []SegmentCount
	for _, row := range rows {
		counts = append(counts, SegmentCount{
			Segment:            rowString(row, "segment"),
			CompletedCallCount: rowInt(row, "completed_call_count"),
		})
	}
	return counts, nil
}
