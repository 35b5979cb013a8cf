package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/extractor"
	"coldcall-insights-go/internal/logger"
	"coldcall-insights-go/internal/types"
)

// Stage tags returned in Result.StepFailed. These are part of the HTTP
// contract, so callers can branch on them.
const (
	StepExtraction           = "extraction"
	StepJSONParsing          = "json_parsing"
	StepValidation           = "validation"
	StepSpeakerNormalization = "speaker_normalization"
	StepICPEnrichment        = "icp_enrichment"
	StepQualityScoring       = "quality_scoring"
	StepGraphIngestion       = "graph_ingestion"
)

// GraphStore is the slice of the graph layer the pipeline needs.
type GraphStore interface {
	NextSessionID(ctx context.Context) int
	LinkRecipientToSegment(ctx context.Context, recipientName, segment string) error
	IngestDialogueFlow(ctx context.Context, record types.DialogueGraph, report types.QualityReport) error
}

// Extractor covers both model calls the pipeline makes. Implementations must
// not retry internally; the pipeline treats every call as a single attempt.
type Extractor interface {
	DialogueFlow(ctx context.Context, transcript string) (string, error)
	ClassifySegment(ctx context.Context, transcript string) (string, error)
}

// AuditWriter persists per-session artifacts. Implementations are best-effort
// and must never return an error into the pipeline.
type AuditWriter interface {
	WriteRaw(sessionID string, payload []byte)
	WriteEnriched(sessionID string, record types.DialogueGraph)
	WriteQualityReport(sessionID string, report types.QualityReport)
}

// Result is the outcome of processing one transcript.
type Result struct {
	Status       bool   `json:"status"`
	Message      string `json:"message"`
	SessionID    string `json:"session_id,omitempty"`
	QualityScore int    `json:"quality_score,omitempty"`
	StepFailed   string `json:"step_failed,omitempty"`
}

// Pipeline runs a transcript through extraction, validation, enrichment,
// scoring and ingestion. Stages run strictly in order and the first failure
// short-circuits the rest.
type Pipeline struct {
	store GraphStore
	llm   Extractor
	audit AuditWriter
	log   *logger.Logger
}

func New(store GraphStore, llm Extractor, audit AuditWriter) *Pipeline {
	return &Pipeline{
		store: store,
		llm:   llm,
		audit: audit,
		log:   logger.New(),
	}
}

// sessionLog is the entry every log line of one run goes through.
func (p *Pipeline) sessionLog(sessionID string) *logrus.Entry {
	return p.log.WithSession(sessionID).WithField("component", "pipeline")
}

func (p *Pipeline) fail(sessionID, step string, err error, what string) Result {
	message := fmt.Sprintf("[%s] %s failed: %v", sessionID, what, err)
	p.sessionLog(sessionID).WithField("step", step).WithError(err).Error(what + " failed")
	return Result{Status: false, Message: message, SessionID: sessionID, StepFailed: step}
}

// ProcessTranscript handles one raw transcript end to end.
func (p *Pipeline) ProcessTranscript(ctx context.Context, transcript string) Result {
	sessionNum := p.store.NextSessionID(ctx)
	sessionID := types.FormatSessionID(sessionNum)
	log := p.sessionLog(sessionID)

	// Step 1: extract the dialogue flow
	rawOutput, err := p.llm.DialogueFlow(ctx, transcript)
	if err != nil {
		return p.fail(sessionID, StepExtraction, err, "dialogue flow extraction")
	}

	// The pipeline owns session-id assignment. Whatever the model put in
	// call_session is overwritten before the payload is trusted anywhere.
	withID, err := injectSessionID([]byte(rawOutput), sessionID)
	if err != nil {
		return p.fail(sessionID, StepJSONParsing, err, "parsing model output as JSON")
	}

	if p.audit != nil {
		p.audit.WriteRaw(sessionID, withID)
	}

	// Step 2a: validate against the closed schema
	record, err := types.ParseDialogueGraph(withID)
	if err != nil {
		return p.fail(sessionID, StepValidation, err, "schema validation")
	}
	log.Info("Schema validation successful")

	// Step 2b: normalize speaker names; unknown speakers only warn
	for _, warning := range NormalizeSpeakers(&record) {
		log.Warn("Speaker normalization: " + warning)
	}

	// Step 3: classify the recipient against the ICP taxonomy. Calls with
	// no recipient (voicemail, gatekeeper block) skip enrichment entirely.
	if recipient, ok := record.Recipient(); ok {
		segment, err := p.llm.ClassifySegment(ctx, transcript)
		if err != nil {
			return p.fail(sessionID, StepICPEnrichment, err, "ICP classification")
		}
		if segment != extractor.GeneralSegment {
			if err := p.store.LinkRecipientToSegment(ctx, recipient.Name, segment); err != nil {
				return p.fail(sessionID, StepICPEnrichment, err, "ICP segment linking")
			}
		}
		record.CallSession.MatchedICPSegment = segment
		log.WithField("segment", segment).Info("Enriched with ICP segment")
	}

	if p.audit != nil {
		p.audit.WriteEnriched(sessionID, record)
	}

	// Step 4: score the enriched record
	report := ScoreDialogue(record)
	log.WithField("quality_score", report.FinalScore).Info("Quality score calculated")

	if p.audit != nil {
		p.audit.WriteQualityReport(sessionID, report)
	}

	// Step 5: ingest into the graph
	if err := p.store.IngestDialogueFlow(ctx, record, report); err != nil {
		return p.fail(sessionID, StepGraphIngestion, err, "graph ingestion")
	}

	message := fmt.Sprintf("[%s] Full processing complete successfully.", sessionID)
	log.Info("Full processing complete")
	return Result{
		Status:       true,
		Message:      message,
		SessionID:    sessionID,
		QualityScore: report.FinalScore,
	}
}

// injectSessionID overwrites call_session.session_id in the raw model output.
// A payload where call_session is missing or not an object fails here, before
// schema validation ever sees it.
func injectSessionID(raw []byte, sessionID string) ([]byte, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	var callSession map[string]any
	if err := json.Unmarshal(payload["call_session"], &callSession); err != nil {
		return nil, fmt.Errorf("call_session is not an object: %w", err)
	}
	if callSession == nil {
		return nil, fmt.Errorf("call_session object missing")
	}
	callSession["session_id"] = sessionID
	updated, err := json.Marshal(callSession)
	if err != nil {
		return nil, err
	}
	payload["call_session"] = updated
	return json.Marshal(payload)
}
