package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coldcall-insights-go/internal/types"
)

const mergeSessionQuery = `
MERGE (cs:CallSession {session_id: $session_id})
SET cs.outcome = $outcome,
    cs.matched_icp_segment = $matched_segment,
    cs.quality_score = $quality_score,
    cs.quality_status = $quality_status
MERGE (prod:Product {name: $product})
MERGE (cs)-[:FOCUSES_ON]->(prod)
`

const mergeParticipantsQuery = `
MATCH (cs:CallSession {session_id: $session_id})
UNWIND $participants AS part
MERGE (person:Person {name: part.name})
SET person.role = part.role,
    person.organization = part.organization
MERGE (person)-[:PARTICIPATED_IN]->(cs)
`

const nextEdgeQuery = `
MATCH (prev) WHERE elementId(prev) = $prev_id
MATCH (curr) WHERE elementId(curr) = $curr_id
CREATE (prev)-[:NEXT]->(curr)
`

const respondsToEdgeQuery = `
MATCH (resp) WHERE elementId(resp) = $response_id
MATCH (obj) WHERE elementId(obj) = $objection_id
CREATE (resp)-[:RESPONDS_TO]->(obj)
`

// sortedTurns returns the dialogue turns ordered by turn_number, leaving the
// input untouched. All chain edges are derived from this order, never from
// slice position in the payload.
func sortedTurns(turns []types.DialogueTurn) []types.DialogueTurn {
	ordered := make([]types.DialogueTurn, len(turns))
	copy(ordered, turns)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TurnNumber < ordered[j].TurnNumber
	})
	return ordered
}

// respondsTargets maps each position in an ordered turn slice to the position
// of the objection it answers, or -1. An Agent_Response consumes the nearest
// preceding Customer_Objection that no earlier response has claimed, so every
// response gains at most one outgoing edge and every objection at most one
// inbound edge.
func respondsTargets(ordered []types.DialogueTurn) []int {
	targets := make([]int, len(ordered))
	openObjection := -1
	for i, turn := range ordered {
		targets[i] = -1
		switch turn.TurnType {
		case types.TurnCustomerObjection:
			openObjection = i
		case types.TurnAgentResponse:
			if openObjection >= 0 {
				targets[i] = openObjection
				openObjection = -1
			}
		}
	}
	return targets
}

// IngestDialogueFlow writes one call into the graph. Session, product and
// participant merges are idempotent and any failure there aborts the whole
// ingestion. Turn nodes are created rather than merged, so re-running the
// same payload duplicates them; per-turn failures are logged and skipped so
// one bad turn cannot sink the rest of the call.
func (s *Store) IngestDialogueFlow(ctx context.Context, record types.DialogueGraph, report types.QualityReport) error {
	runner := s.runner(ctx, neo4j.AccessModeWrite)
	defer runner.close(ctx)

	sessionID := record.CallSession.SessionID
	log := s.log.WithField("session_id", sessionID)

	_, err := runner.run(ctx, mergeSessionQuery, map[string]any{
		"session_id":      sessionID,
		"outcome":         record.CallSession.Outcome,
		"matched_segment": record.CallSession.MatchedICPSegment,
		"quality_score":   report.FinalScore,
		"quality_status":  report.Status,
		"product":         record.CallSession.ProductFocus,
	})
	if err != nil {
		return fmt.Errorf("merge call session: %w", err)
	}

	participants := make([]map[string]any, 0, len(record.Participants))
	for _, p := range record.Participants {
		participants = append(participants, map[string]any{
			"name":         p.Name,
			"role":         p.Role,
			"organization": p.Organization,
		})
	}
	_, err = runner.run(ctx, mergeParticipantsQuery, map[string]any{
		"session_id":   sessionID,
		"participants": participants,
	})
	if err != nil {
		return fmt.Errorf("merge participants: %w", err)
	}

	ordered := sortedTurns(record.DialogueTurns)
	targets := respondsTargets(ordered)
	nodeIDs := make([]string, len(ordered))
	prevNodeID := ""

	for i, turn := range ordered {
		label, ok := types.NodeLabel(turn.TurnType)
		if !ok {
			// validation runs upstream, so this only fires on a
			// direct caller bypassing it
			log.WithField("turn_type", turn.TurnType).Warn("Skipping turn with unknown type")
			continue
		}

		// the speaker is merged here as well, so a turn attributed to a
		// name outside the participant list still lands in the graph
		createTurnQuery := fmt.Sprintf(`
MATCH (cs:CallSession {session_id: $session_id})
MERGE (speaker:Person {name: $speaker_name})
CREATE (turn:%s {turn_number: $turn_number, text: $text})
CREATE (speaker)-[:MADE_BY]->(turn)
CREATE (turn)-[:RAISED_IN]->(cs)
RETURN elementId(turn) AS node_id
`, label)

		rows, err := runner.run(ctx, createTurnQuery, map[string]any{
			"session_id":   sessionID,
			"speaker_name": turn.SpeakerName,
			"turn_number":  turn.TurnNumber,
			"text":         turn.Text,
		})
		if err == nil && len(rows) > 0 {
			nodeIDs[i] = rowString(rows[0], "node_id")
		}
		if err != nil || nodeIDs[i] == "" {
			log.WithError(err).WithField("turn_number", turn.TurnNumber).
				Warn("Failed to create dialogue turn, skipping its edges")
			continue
		}

		if prevNodeID != "" {
			_, err := runner.run(ctx, nextEdgeQuery, map[string]any{
				"prev_id": prevNodeID,
				"curr_id": nodeIDs[i],
			})
			if err != nil {
				log.WithError(err).WithField("turn_number", turn.TurnNumber).
					Warn("Failed to link NEXT edge")
			}
		}

		if j := targets[i]; j >= 0 && nodeIDs[j] != "" {
			_, err := runner.run(ctx, respondsToEdgeQuery, map[string]any{
				"response_id":  nodeIDs[i],
				"objection_id": nodeIDs[j],
			})
			if err != nil {
				log.WithError(err).WithField("turn_number", turn.TurnNumber).
					Warn("Failed to link RESPONDS_TO edge")
			}
		}

		prevNodeID = nodeIDs[i]
	}

	log.WithField("turns", len(ordered)).Info("Dialogue flow ingested")
	return nil
}
