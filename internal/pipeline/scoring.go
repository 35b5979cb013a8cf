package pipeline

import (
	"fmt"

	"coldcall-insights-go/internal/types"
)

// ScoreDialogue grades a validated dialogue graph on extraction richness. The
// weights favor customer-side signal: pain points outrank buying signals,
// which outrank objections. Scores above 30 are high-confidence; everything
// else gets flagged for human review.
func ScoreDialogue(record types.DialogueGraph) types.QualityReport {
	score := 0
	var notes []string

	score += len(record.Participants) * 5
	for _, p := range record.Participants {
		if p.Role == types.RoleGatekeeper {
			score += 10
			notes = append(notes, "SUCCESS: Gatekeeper correctly identified.")
			break
		}
	}

	if record.CallSession.Outcome == types.OutcomeMeetingScheduled {
		score += 10
		notes = append(notes, "SUCCESS: Meeting outcome captured.")
	}

	objections, painPoints, buyingSignals := 0, 0, 0
	for _, turn := range record.DialogueTurns {
		switch turn.TurnType {
		case types.TurnCustomerObjection:
			objections++
		case types.TurnCustomerPainPoint:
			painPoints++
		case types.TurnCustomerBuyingSignal:
			buyingSignals++
		}
	}
	score += objections * 5
	score += painPoints * 10
	score += buyingSignals * 8

	if objections > 0 {
		notes = append(notes, fmt.Sprintf("SUCCESS: Identified %d customer objection(s).", objections))
	}
	if painPoints > 0 {
		notes = append(notes, fmt.Sprintf("SUCCESS: Identified %d customer pain point(s).", painPoints))
	}

	status := types.QualityReviewRecommended
	if score > 30 {
		status = types.QualityHighConfidence
	}

	return types.QualityReport{
		FinalScore: score,
		Status:     status,
		Notes:      notes,
	}
}
