package extractor

import "strings"

// GeneralSegment is the catch-all bucket for transcripts that match no ICP
// profile. It never gets a graph edge or a counter bump.
const GeneralSegment = "General"

var knownSegments = map[string]struct{}{
	"Retail-Enterprise":        {},
	"Healthcare-Enterprise":    {},
	"Manufacturing-Enterprise": {},
	"Financial-SME":            {},
	"Film-Entertainment":       {},
}

// NormalizeSegment reduces raw model output to a member of the closed segment
// taxonomy. Whitespace and trailing punctuation are tolerated; anything else
// unexpected becomes General rather than a new graph node.
func NormalizeSegment(raw string) string {
	cleaned := strings.Trim(strings.TrimSpace(raw), ".\"'")
	if _, ok := knownSegments[cleaned]; ok {
		return cleaned
	}
	return GeneralSegment
}
