package pipeline

import (
	"fmt"
	"strings"

	"coldcall-insights-go/internal/types"
)

// NormalizeSpeakers rewrites each turn's speaker name to the canonical form
// from the participant list, matching case-insensitively on the trimmed name.
// Speakers with no participant entry are left untouched and reported back as
// warnings; ingestion still merges them into the graph so no turn is lost.
func NormalizeSpeakers(record *types.DialogueGraph) []string {
	canonical := make(map[string]string, len(record.Participants))
	for _, p := range record.Participants {
		canonical[strings.ToLower(strings.TrimSpace(p.Name))] = p.Name
	}

	var warnings []string
	for i, turn := range record.DialogueTurns {
		key := strings.ToLower(strings.TrimSpace(turn.SpeakerName))
		if name, ok := canonical[key]; ok {
			record.DialogueTurns[i].SpeakerName = name
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"speaker %q not found in participants (turn %d)", turn.SpeakerName, turn.TurnNumber))
	}
	return warnings
}
