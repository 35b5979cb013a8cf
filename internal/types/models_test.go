package types

import (
	"strings"
	"testing"
)

func validRecord() DialogueGraph {
	return DialogueGraph{
		CallSession: CallSession{
			SessionID:    "call_transcript_7",
			Outcome:      OutcomeMeetingScheduled,
			ProductFocus: "NLA Security Solution",
		},
		Participants: []Participant{
			{Name: "Arison Josh", Role: RoleAgent, Organization: "NLA Investigative Division"},
			{Name: "Dale Spear", Role: RoleRecipient},
		},
		DialogueTurns: []DialogueTurn{
			{TurnNumber: 1, SpeakerName: "Arison Josh", Text: "Hi Dale, this is Arison.", TurnType: TurnOpening},
			{TurnNumber: 2, SpeakerName: "Dale Spear", Text: "What does your company do?", TurnType: TurnCustomerQuestion},
		},
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	if err := validRecord().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	record := validRecord()
	record.CallSession.Outcome = "Maybe Later"
	record.Participants[1].Role = "Observer"
	record.DialogueTurns[0].TurnNumber = 0
	record.DialogueTurns[1].TurnType = "Monologue"

	err := record.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Issues) != 4 {
		t.Fatalf("issues = %d (%v), want 4", len(verr.Issues), verr.Issues)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DialogueGraph)
		want   string
	}{
		{"missing session id", func(g *DialogueGraph) { g.CallSession.SessionID = " " }, "session_id"},
		{"unknown outcome", func(g *DialogueGraph) { g.CallSession.Outcome = "Ghosted" }, "outcome"},
		{"missing product", func(g *DialogueGraph) { g.CallSession.ProductFocus = "" }, "product_focus"},
		{"blank participant name", func(g *DialogueGraph) { g.Participants[0].Name = "" }, "name"},
		{"unknown role", func(g *DialogueGraph) { g.Participants[0].Role = "Coach" }, "role"},
		{"negative turn number", func(g *DialogueGraph) { g.DialogueTurns[0].TurnNumber = -1 }, "turn_number"},
		{"blank text", func(g *DialogueGraph) { g.DialogueTurns[0].Text = "  " }, "text"},
		{"unknown turn type", func(g *DialogueGraph) { g.DialogueTurns[0].TurnType = "Filler" }, "turn_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := validRecord()
			tt.mutate(&record)
			err := record.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestParseDialogueGraph(t *testing.T) {
	raw := []byte(`{
		"call_session": {"session_id": "call_transcript_3", "outcome": "Rejected", "product_focus": "Compliance Suite"},
		"participants": [{"name": "James", "role": "Agent", "organization": "Acme"}],
		"dialogue_turns": [{"turn_number": 1, "speaker_name": "James", "text": "Hi.", "turn_type": "Opening"}]
	}`)
	record, err := ParseDialogueGraph(raw)
	if err != nil {
		t.Fatalf("ParseDialogueGraph() error = %v", err)
	}
	if record.CallSession.SessionID != "call_transcript_3" {
		t.Errorf("session_id = %q", record.CallSession.SessionID)
	}
	if len(record.DialogueTurns) != 1 || record.DialogueTurns[0].TurnType != TurnOpening {
		t.Errorf("turns = %+v", record.DialogueTurns)
	}
}

func TestParseDialogueGraphTypeMismatch(t *testing.T) {
	raw := []byte(`{"call_session": {"session_id": 42}}`)
	if _, err := ParseDialogueGraph(raw); err == nil {
		t.Fatal("ParseDialogueGraph() = nil error, want validation error")
	}
}

func TestNodeLabel(t *testing.T) {
	tests := []struct {
		turnType string
		label    string
		ok       bool
	}{
		{TurnOpening, "Opening", true},
		{TurnGatekeeperDialogue, "GatekeeperDialogue", true},
		{TurnCustomerPainPoint, "CustomerPainPoint", true},
		{TurnCustomerBuyingSignal, "CustomerBuyingSignal", true},
		{"Customer_Objection) DETACH DELETE", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		label, ok := NodeLabel(tt.turnType)
		if label != tt.label || ok != tt.ok {
			t.Errorf("NodeLabel(%q) = (%q, %v), want (%q, %v)", tt.turnType, label, ok, tt.label, tt.ok)
		}
	}
}

func TestFormatSessionID(t *testing.T) {
	if got := FormatSessionID(12); got != "call_transcript_12" {
		t.Errorf("FormatSessionID(12) = %q", got)
	}
}

func TestRecipient(t *testing.T) {
	record := validRecord()
	recipient, ok := record.Recipient()
	if !ok || recipient.Name != "Dale Spear" {
		t.Fatalf("Recipient() = (%+v, %v)", recipient, ok)
	}

	record.Participants = record.Participants[:1]
	if _, ok := record.Recipient(); ok {
		t.Fatal("Recipient() found one in an agent-only call")
	}
}
