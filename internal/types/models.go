package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Call outcomes form a closed set. The extraction service must pick exactly
// one; anything else fails validation.
const (
	OutcomeMeetingScheduled = "Meeting Scheduled"
	OutcomeRejected         = "Rejected"
	OutcomeGatekeeperBlock  = "Gatekeeper Block"
	OutcomeVoicemail        = "Voicemail"
	OutcomeFollowUpRequired = "Follow-up Required"
	OutcomeWrongPerson      = "Wrong Person"
	OutcomeCallDropped      = "Call Dropped"
)

const (
	RoleAgent      = "Agent"
	RoleRecipient  = "Recipient"
	RoleGatekeeper = "Gatekeeper"
)

// Turn types, agent-centric first, then customer-centric, then meta.
const (
	TurnOpening              = "Opening"
	TurnClosing              = "Closing"
	TurnGatekeeperDialogue   = "Gatekeeper_Dialogue"
	TurnAgentQuestion        = "Agent_Question"
	TurnAgentResponse        = "Agent_Response"
	TurnRapportBuilding      = "Rapport_Building"
	TurnCustomerQuestion     = "Customer_Question"
	TurnCustomerResponse     = "Customer_Response"
	TurnCustomerObjection    = "Customer_Objection"
	TurnCustomerPainPoint    = "Customer_Pain_Point"
	TurnCustomerBuyingSignal = "Customer_Buying_Signal"
	TurnTechnicalIssue       = "Technical_Issue"
)

// SessionIDPrefix is the fixed prefix of every CallSession identifier.
const SessionIDPrefix = "call_transcript_"

// FormatSessionID renders the canonical session id for a sequence number.
func FormatSessionID(n int) string {
	return fmt.Sprintf("%s%d", SessionIDPrefix, n)
}

var validOutcomes = map[string]struct{}{
	OutcomeMeetingScheduled: {},
	OutcomeRejected:         {},
	OutcomeGatekeeperBlock:  {},
	OutcomeVoicemail:        {},
	OutcomeFollowUpRequired: {},
	OutcomeWrongPerson:      {},
	OutcomeCallDropped:      {},
}

var validRoles = map[string]struct{}{
	RoleAgent:      {},
	RoleRecipient:  {},
	RoleGatekeeper: {},
}

// turnTypeLabels maps every valid turn type to its graph node label. Labels
// are pre-declared constants so query text never embeds free-form input.
var turnTypeLabels = map[string]string{
	TurnOpening:              "Opening",
	TurnClosing:              "Closing",
	TurnGatekeeperDialogue:   "GatekeeperDialogue",
	TurnAgentQuestion:        "AgentQuestion",
	TurnAgentResponse:        "AgentResponse",
	TurnRapportBuilding:      "RapportBuilding",
	TurnCustomerQuestion:     "CustomerQuestion",
	TurnCustomerResponse:     "CustomerResponse",
	TurnCustomerObjection:    "CustomerObjection",
	TurnCustomerPainPoint:    "CustomerPainPoint",
	TurnCustomerBuyingSignal: "CustomerBuyingSignal",
	TurnTechnicalIssue:       "TechnicalIssue",
}

// NodeLabel returns the graph label for a turn type and whether the type is
// part of the closed taxonomy.
func NodeLabel(turnType string) (string, bool) {
	label, ok := turnTypeLabels[turnType]
	return label, ok
}

// CallSession is the per-transcript session header. QualityScore and
// QualityStatus live on the graph node only; they are carried separately as a
// QualityReport until ingestion.
type CallSession struct {
	SessionID         string `json:"session_id"`
	Outcome           string `json:"outcome"`
	ProductFocus      string `json:"product_focus"`
	MatchedICPSegment string `json:"matched_icp_segment,omitempty"`
}

// Participant is one distinct speaker. Name is the identity key shared across
// sessions.
type Participant struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
}

// DialogueTurn is one speaking turn. TurnNumber is the sole ordering key
// within a session.
type DialogueTurn struct {
	TurnNumber  int    `json:"turn_number"`
	SpeakerName string `json:"speaker_name"`
	Text        string `json:"text"`
	TurnType    string `json:"turn_type"`
}

// DialogueGraph is the full structured record one transcript is coerced into.
type DialogueGraph struct {
	CallSession   CallSession    `json:"call_session"`
	Participants  []Participant  `json:"participants"`
	DialogueTurns []DialogueTurn `json:"dialogue_turns"`
}

// ValidationError aggregates every schema violation found in one record. The
// whole record is rejected together; there is no partial acceptance.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("record validation failed: %s", strings.Join(e.Issues, "; "))
}

// ParseDialogueGraph decodes an already syntax-checked JSON document into a
// validated record. Callers that need to distinguish malformed JSON from
// schema violations must run their own json.Unmarshal first.
func ParseDialogueGraph(raw []byte) (DialogueGraph, error) {
	var record DialogueGraph
	if err := json.Unmarshal(raw, &record); err != nil {
		return DialogueGraph{}, &ValidationError{Issues: []string{fmt.Sprintf("decode: %v", err)}}
	}
	if err := record.Validate(); err != nil {
		return DialogueGraph{}, err
	}
	return record, nil
}

// Validate checks every field against the closed sets above.
func (g DialogueGraph) Validate() error {
	var issues []string

	if strings.TrimSpace(g.CallSession.SessionID) == "" {
		issues = append(issues, "call_session.session_id is required")
	}
	if _, ok := validOutcomes[g.CallSession.Outcome]; !ok {
		issues = append(issues, fmt.Sprintf("call_session.outcome %q is not a valid outcome", g.CallSession.Outcome))
	}
	if strings.TrimSpace(g.CallSession.ProductFocus) == "" {
		issues = append(issues, "call_session.product_focus is required")
	}

	for i, p := range g.Participants {
		if strings.TrimSpace(p.Name) == "" {
			issues = append(issues, fmt.Sprintf("participants[%d].name is required", i))
		}
		if _, ok := validRoles[p.Role]; !ok {
			issues = append(issues, fmt.Sprintf("participants[%d].role %q is not a valid role", i, p.Role))
		}
	}

	for i, t := range g.DialogueTurns {
		if t.TurnNumber <= 0 {
			issues = append(issues, fmt.Sprintf("dialogue_turns[%d].turn_number must be a positive integer", i))
		}
		if strings.TrimSpace(t.SpeakerName) == "" {
			issues = append(issues, fmt.Sprintf("dialogue_turns[%d].speaker_name is required", i))
		}
		if strings.TrimSpace(t.Text) == "" {
			issues = append(issues, fmt.Sprintf("dialogue_turns[%d].text is required", i))
		}
		if _, ok := turnTypeLabels[t.TurnType]; !ok {
			issues = append(issues, fmt.Sprintf("dialogue_turns[%d].turn_type %q is not a valid turn type", i, t.TurnType))
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// Recipient returns the first participant with role Recipient, or false when
// the call never reached a decision-maker.
func (g DialogueGraph) Recipient() (Participant, bool) {
	for _, p := range g.Participants {
		if p.Role == RoleRecipient {
			return p, true
		}
	}
	return Participant{}, false
}

// QualityReport is the scoring stage output. Notes are human-readable bonus
// explanations, one per triggered category.
type QualityReport struct {
	FinalScore int      `json:"final_score"`
	Status     string   `json:"status"`
	Notes      []string `json:"notes"`
}

const (
	QualityHighConfidence    = "High-confidence"
	QualityReviewRecommended = "Review Recommended"
)
