package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"coldcall-insights-go/internal/logger"
	"coldcall-insights-go/internal/types"
)

type runnerCall struct {
	query  string
	params map[string]any
}

// fakeRunner records every statement a Store method issues and answers them
// through an optional respond hook.
type fakeRunner struct {
	calls   []runnerCall
	respond func(query string, params map[string]any) ([]map[string]any, error)
	closed  int
}

func (f *fakeRunner) run(_ context.Context, query string, params map[string]any) ([]map[string]any, error) {
	f.calls = append(f.calls, runnerCall{query: query, params: params})
	if f.respond != nil {
		return f.respond(query, params)
	}
	return nil, nil
}

func (f *fakeRunner) close(context.Context) { f.closed++ }

func newTestStore(fake *fakeRunner) *Store {
	return &Store{
		log: logger.Component("graph"),
		newRunner: func(neo4j.AccessMode) queryRunner {
			return fake
		},
	}
}

// answerCreates hands out sequential node ids for turn-create statements and
// empty results for everything else.
func answerCreates(failTurnNumber int) func(string, map[string]any) ([]map[string]any, error) {
	next := 0
	return func(query string, params map[string]any) ([]map[string]any, error) {
		if !strings.Contains(query, "CREATE (turn:") {
			return nil, nil
		}
		if failTurnNumber > 0 && params["turn_number"] == failTurnNumber {
			return nil, errors.New("node create refused")
		}
		next++
		return []map[string]any{{"node_id": fmt.Sprintf("n%d", next)}}, nil
	}
}

func ingestRecord() types.DialogueGraph {
	return types.DialogueGraph{
		CallSession: types.CallSession{
			SessionID:         "call_transcript_5",
			Outcome:           types.OutcomeMeetingScheduled,
			ProductFocus:      "Warehouse Automation Suite",
			MatchedICPSegment: "Retail-Enterprise",
		},
		Participants: []types.Participant{
			{Name: "Sam Drake", Role: types.RoleAgent, Organization: "RoboSales"},
			{Name: "Dale Spear", Role: types.RoleRecipient, Organization: "MegaMart"},
		},
		// deliberately out of order; chaining must follow turn_number
		DialogueTurns: []types.DialogueTurn{
			{TurnNumber: 2, SpeakerName: "Dale Spear", Text: "Too expensive.", TurnType: types.TurnCustomerObjection},
			{TurnNumber: 1, SpeakerName: "Sam Drake", Text: "Hi Dale.", TurnType: types.TurnOpening},
			{TurnNumber: 3, SpeakerName: "Sam Drake", Text: "It pays for itself.", TurnType: types.TurnAgentResponse},
		},
	}
}

func TestIngestDialogueFlowQuerySequence(t *testing.T) {
	fake := &fakeRunner{respond: answerCreates(0)}
	store := newTestStore(fake)

	report := types.QualityReport{FinalScore: 35, Status: types.QualityHighConfidence}
	if err := store.IngestDialogueFlow(context.Background(), ingestRecord(), report); err != nil {
		t.Fatalf("IngestDialogueFlow: %v", err)
	}

	// session merge, participants, 3 creates, 2 NEXT, 1 RESPONDS_TO
	if len(fake.calls) != 8 {
		t.Fatalf("issued %d statements, want 8", len(fake.calls))
	}

	first := fake.calls[0]
	if !strings.Contains(first.query, "MERGE (cs:CallSession") {
		t.Errorf("first statement is not the session merge: %q", first.query)
	}
	if first.params["session_id"] != "call_transcript_5" || first.params["quality_score"] != 35 {
		t.Errorf("session merge params = %v", first.params)
	}

	second := fake.calls[1]
	if !strings.Contains(second.query, "UNWIND $participants") {
		t.Errorf("second statement is not the participant merge: %q", second.query)
	}
	if parts, ok := second.params["participants"].([]map[string]any); !ok || len(parts) != 2 {
		t.Errorf("participants param = %v", second.params["participants"])
	}

	wantCreates := []struct {
		label      string
		turnNumber int
	}{
		{"Opening", 1},
		{"CustomerObjection", 2},
		{"AgentResponse", 3},
	}
	createIdx := 0
	for _, call := range fake.calls[2:] {
		if !strings.Contains(call.query, "CREATE (turn:") {
			continue
		}
		want := wantCreates[createIdx]
		if !strings.Contains(call.query, "CREATE (turn:"+want.label+" ") {
			t.Errorf("create %d label: %q, want %s", createIdx, call.query, want.label)
		}
		if !strings.Contains(call.query, "CREATE (speaker)-[:MADE_BY]->(turn)") {
			t.Errorf("create %d must attach MADE_BY from speaker to turn: %q", createIdx, call.query)
		}
		if strings.Contains(call.query, "MERGE (turn:") {
			t.Errorf("turn nodes must be created, not merged: %q", call.query)
		}
		if call.params["turn_number"] != want.turnNumber {
			t.Errorf("create %d turn_number = %v, want %d", createIdx, call.params["turn_number"], want.turnNumber)
		}
		createIdx++
	}
	if createIdx != 3 {
		t.Fatalf("issued %d turn creates, want 3", createIdx)
	}

	var nextPairs [][2]string
	var respondsPairs [][2]string
	for _, call := range fake.calls {
		switch {
		case strings.Contains(call.query, "[:NEXT]"):
			nextPairs = append(nextPairs, [2]string{
				call.params["prev_id"].(string), call.params["curr_id"].(string),
			})
		case strings.Contains(call.query, "[:RESPONDS_TO]"):
			respondsPairs = append(respondsPairs, [2]string{
				call.params["response_id"].(string), call.params["objection_id"].(string),
			})
		}
	}
	if len(nextPairs) != 2 || nextPairs[0] != [2]string{"n1", "n2"} || nextPairs[1] != [2]string{"n2", "n3"} {
		t.Errorf("NEXT pairs = %v, want n1->n2, n2->n3", nextPairs)
	}
	if len(respondsPairs) != 1 || respondsPairs[0] != [2]string{"n3", "n2"} {
		t.Errorf("RESPONDS_TO pairs = %v, want n3->n2", respondsPairs)
	}

	if fake.closed != 1 {
		t.Errorf("runner closed %d times, want 1", fake.closed)
	}
}

func TestIngestDialogueFlowSkipsFailedTurn(t *testing.T) {
	fake := &fakeRunner{respond: answerCreates(2)}
	store := newTestStore(fake)

	err := store.IngestDialogueFlow(context.Background(), ingestRecord(), types.QualityReport{})
	if err != nil {
		t.Fatalf("a failed turn must not abort ingestion: %v", err)
	}

	var nextPairs [][2]string
	respondsCount := 0
	for _, call := range fake.calls {
		switch {
		case strings.Contains(call.query, "[:NEXT]"):
			nextPairs = append(nextPairs, [2]string{
				call.params["prev_id"].(string), call.params["curr_id"].(string),
			})
		case strings.Contains(call.query, "[:RESPONDS_TO]"):
			respondsCount++
		}
	}
	// turn 2 failed, so turn 3 chains to turn 1 and its RESPONDS_TO target
	// is gone
	if len(nextPairs) != 1 || nextPairs[0] != [2]string{"n1", "n2"} {
		t.Errorf("NEXT pairs = %v, want a single n1->n2 link", nextPairs)
	}
	if respondsCount != 0 {
		t.Errorf("RESPONDS_TO edges = %d, want 0 when the objection node failed", respondsCount)
	}
}

func TestIngestDialogueFlowSessionMergeFailureAborts(t *testing.T) {
	fake := &fakeRunner{
		respond: func(query string, _ map[string]any) ([]map[string]any, error) {
			return nil, errors.New("neo4j down")
		},
	}
	store := newTestStore(fake)

	err := store.IngestDialogueFlow(context.Background(), ingestRecord(), types.QualityReport{})
	if err == nil {
		t.Fatal("expected an error when the session merge fails")
	}
	if len(fake.calls) != 1 {
		t.Errorf("issued %d statements after a failed session merge, want 1", len(fake.calls))
	}
}

func TestIngestDialogueFlowCreatesFreshTurnsOnReingest(t *testing.T) {
	fake := &fakeRunner{respond: answerCreates(0)}
	store := newTestStore(fake)

	record := ingestRecord()
	report := types.QualityReport{FinalScore: 10, Status: types.QualityReviewRecommended}
	for i := 0; i < 2; i++ {
		if err := store.IngestDialogueFlow(context.Background(), record, report); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	creates := 0
	for _, call := range fake.calls {
		if strings.Contains(call.query, "CREATE (turn:") {
			creates++
		}
	}
	if creates != 6 {
		t.Errorf("turn creates across two runs = %d, want 6", creates)
	}
}

func TestLinkRecipientToSegment(t *testing.T) {
	fake := &fakeRunner{}
	store := newTestStore(fake)

	err := store.LinkRecipientToSegment(context.Background(), "Dale Spear", "Retail-Enterprise")
	if err != nil {
		t.Fatalf("LinkRecipientToSegment: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("issued %d statements, want 1", len(fake.calls))
	}

	call := fake.calls[0]
	// the link runs before the session is ingested, so it must not touch
	// CallSession at all
	if strings.Contains(call.query, "CallSession") {
		t.Errorf("segment link must not reference CallSession: %q", call.query)
	}
	if !strings.Contains(call.query, "MERGE (person:Person {name: $recipient_name})") {
		t.Errorf("segment link must merge the recipient: %q", call.query)
	}
	if !strings.Contains(call.query, "[:MATCHES_PROFILE]") {
		t.Errorf("segment link must attach MATCHES_PROFILE: %q", call.query)
	}
	if !strings.Contains(call.query, "seg.completed_call_count = seg.completed_call_count + 1") {
		t.Errorf("segment link must bump the counter: %q", call.query)
	}
	if call.params["recipient_name"] != "Dale Spear" || call.params["segment"] != "Retail-Enterprise" {
		t.Errorf("params = %v", call.params)
	}
}

func TestNextSessionID(t *testing.T) {
	t.Run("returns the allocated id", func(t *testing.T) {
		fake := &fakeRunner{
			respond: func(string, map[string]any) ([]map[string]any, error) {
				return []map[string]any{{"next_id": int64(7)}}, nil
			},
		}
		if got := newTestStore(fake).NextSessionID(context.Background()); got != 7 {
			t.Errorf("NextSessionID = %d, want 7", got)
		}
	})

	t.Run("falls back to 1 on error", func(t *testing.T) {
		fake := &fakeRunner{
			respond: func(string, map[string]any) ([]map[string]any, error) {
				return nil, errors.New("neo4j down")
			},
		}
		if got := newTestStore(fake).NextSessionID(context.Background()); got != 1 {
			t.Errorf("NextSessionID = %d, want 1", got)
		}
	})

	t.Run("falls back to 1 on empty result", func(t *testing.T) {
		fake := &fakeRunner{}
		if got := newTestStore(fake).NextSessionID(context.Background()); got != 1 {
			t.Errorf("NextSessionID = %d, want 1", got)
		}
	})
}

func TestRecentCallRecordsReadsSpeakerThroughMadeBy(t *testing.T) {
	fake := &fakeRunner{
		respond: func(query string, _ map[string]any) ([]map[string]any, error) {
			return []map[string]any{{
				"session_id":    "call_transcript_2",
				"outcome":       types.OutcomeRejected,
				"quality_score": int64(12),
				"participants":  []any{"Sam Drake"},
				"turns": []any{
					map[string]any{"turn_number": int64(2), "speaker": "Dale Spear", "type": "CustomerObjection", "text": "No."},
					map[string]any{"turn_number": int64(1), "speaker": "Sam Drake", "type": "Opening", "text": "Hi."},
				},
			}}, nil
		},
	}
	store := newTestStore(fake)

	records, err := store.RecentCallRecords(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentCallRecords: %v", err)
	}
	if len(fake.calls) != 1 {
		t.Fatalf("issued %d statements, want 1", len(fake.calls))
	}
	if !strings.Contains(fake.calls[0].query, "(turn)<-[:MADE_BY]-(speaker:Person)") {
		t.Errorf("speaker lookup must follow MADE_BY from speaker to turn: %q", fake.calls[0].query)
	}
	if fake.calls[0].params["limit"] != 5 {
		t.Errorf("limit param = %v", fake.calls[0].params["limit"])
	}

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.SessionID != "call_transcript_2" || rec.QualityScore != 12 {
		t.Errorf("record = %+v", rec)
	}
	if len(rec.DialogueFlow) != 2 || rec.DialogueFlow[0].TurnNumber != 1 || rec.DialogueFlow[0].Speaker != "Sam Drake" {
		t.Errorf("dialogue flow not sorted by turn number: %+v", rec.DialogueFlow)
	}
}
