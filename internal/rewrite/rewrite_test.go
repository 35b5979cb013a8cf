package rewrite

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestScriptAnalysisSchemaIsStrict(t *testing.T) {
	schema := generateSchema[ScriptAnalysis]()

	if schema["additionalProperties"] != false {
		t.Error("top-level additionalProperties must be false")
	}

	props, ok := schema["properties"].(map[string]interface{})
	if !ok {
		t.Fatal("schema has no properties map")
	}
	for _, field := range []string{"improvement_needed", "sections", "sections_to_improve", "success_rate"} {
		if _, ok := props[field]; !ok {
			t.Errorf("schema missing property %q", field)
		}
	}

	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatal("schema has no required list")
	}
	if len(required) != len(props) {
		t.Errorf("required lists %d fields, properties has %d; strict mode needs all", len(required), len(props))
	}

	sections, ok := props["sections"].(map[string]interface{})
	if !ok {
		t.Fatal("sections property missing")
	}
	items, ok := sections["items"].(map[string]interface{})
	if !ok {
		t.Fatal("sections.items missing")
	}
	if items["additionalProperties"] != false {
		t.Error("nested objects must forbid additional properties")
	}
}

func TestVAPIClientUpdatesAssistant(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewVAPIClient(VAPIConfig{
		BaseURL:     srv.URL,
		AssistantID: "asst-123",
		Token:       "secret-token",
		VoiceID:     "voice-1",
	})
	if err := client.UpdateAssistantScript(context.Background(), "You are a friendly agent."); err != nil {
		t.Fatalf("UpdateAssistantScript() error = %v", err)
	}

	if gotPath != "/assistant/asst-123" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("auth = %q", gotAuth)
	}

	model, ok := gotBody["model"].(map[string]any)
	if !ok {
		t.Fatal("payload missing model")
	}
	messages, ok := model["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("messages = %v", model["messages"])
	}
	msg := messages[0].(map[string]any)
	if msg["role"] != "system" || !strings.Contains(msg["content"].(string), "friendly agent") {
		t.Errorf("system message = %v", msg)
	}
	if _, ok := gotBody["voice"]; !ok {
		t.Error("payload missing voice settings despite configured voice id")
	}
}

func TestVAPIClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewVAPIClient(VAPIConfig{BaseURL: srv.URL, AssistantID: "a", Token: "t"})
	if err := client.UpdateAssistantScript(context.Background(), "script"); err != nil {
		t.Fatalf("UpdateAssistantScript() error = %v after retries", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestVAPIClientDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewVAPIClient(VAPIConfig{BaseURL: srv.URL, AssistantID: "a", Token: "bad"})
	err := client.UpdateAssistantScript(context.Background(), "script")
	if err == nil {
		t.Fatal("expected error on 401")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (4xx must be permanent)", calls.Load())
	}
}
