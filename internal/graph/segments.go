package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// linkSegmentQuery anchors on the recipient alone. It runs during the
// classification stage, before the CallSession node exists, so nothing here
// may depend on the session being in the graph yet.
const linkSegmentQuery = `
MERGE (person:Person {name: $recipient_name})
MERGE (seg:CustomerSegment {segment: $segment})
ON CREATE SET seg.completed_call_count = 0
MERGE (person)-[:MATCHES_PROFILE]->(seg)
SET seg.completed_call_count = seg.completed_call_count + 1
`

// LinkRecipientToSegment attaches the call recipient to the classified
// customer segment and bumps the segment's completed-call counter. The
// counter counts classification events, not distinct sessions, so re-running
// a call inflates it; that matches how the threshold below is consumed.
func (s *Store) LinkRecipientToSegment(ctx context.Context, recipientName, segment string) error {
	runner := s.runner(ctx, neo4j.AccessModeWrite)
	defer runner.close(ctx)

	_, err := runner.run(ctx, linkSegmentQuery, map[string]any{
		"recipient_name": recipientName,
		"segment":        segment,
	})
	if err != nil {
		return fmt.Errorf("link recipient to segment %q: %w", segment, err)
	}
	return nil
}

const readySegmentsQuery = `
MATCH (seg:CustomerSegment)
WHERE seg.completed_call_count >= $threshold
  AND (seg.last_analysis_run IS NULL OR seg.completed_call_count > seg.last_analysis_count)
RETURN seg.segment AS segment
ORDER BY seg.completed_call_count DESC
`

// ReadySegments returns the segments that have accumulated enough completed
// calls since their last analysis run to justify a script rewrite.
func (s *Store) ReadySegments(ctx context.Context, threshold int) ([]string, error) {
	runner := s.runner(ctx, neo4j.AccessModeRead)
	defer runner.close(ctx)

	rows, err := runner.run(ctx, readySegmentsQuery, map[string]any{
		"threshold": threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("query ready segments: %w", err)
	}

	var segments []string
	for _, row := range rows {
		if seg := rowString(row, "segment"); seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments, nil
}

const markAnalysisRunQuery = `
MATCH (seg:CustomerSegment {segment: $segment})
SET seg.last_analysis_run = $run_at,
    seg.last_analysis_count = seg.completed_call_count
`

// MarkAnalysisRun stamps a segment after a successful script rewrite so it
// drops out of ReadySegments until new calls arrive.
func (s *Store) MarkAnalysisRun(ctx context.Context, segment string, runAt time.Time) error {
	runner := s.runner(ctx, neo4j.AccessModeWrite)
	defer runner.close(ctx)

	_, err := runner.run(ctx, markAnalysisRunQuery, map[string]any{
		"segment": segment,
		"run_at":  runAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("mark analysis run for %q: %w", segment, err)
	}
	return nil
}
