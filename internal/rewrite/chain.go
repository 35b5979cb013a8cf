package rewrite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/graph"
	"coldcall-insights-go/internal/logger"
)

// SectionFinding is the per-section verdict from the analysis step.
type SectionFinding struct {
	Section  string `json:"section" jsonschema_description:"Section tag being assessed"`
	Status   string `json:"status" jsonschema:"enum=NEEDS IMPROVEMENT,enum=NO IMPROVEMENT NEEDED,enum=NOT EVALUATED"`
	Evidence string `json:"evidence" jsonschema_description:"Evidence from the call data supporting the status"`
	Action   string `json:"action" jsonschema_description:"Recommendation, or why no action is needed"`
}

// ScriptAnalysis is the structured output of the analysis step. Downstream
// steps branch on ImprovementNeeded instead of scraping prose.
type ScriptAnalysis struct {
	SuccessRate         string           `json:"success_rate" jsonschema_description:"Meetings scheduled out of total calls"`
	AverageQualityScore float64          `json:"average_quality_score"`
	OverallAssessment   string           `json:"overall_assessment"`
	Sections            []SectionFinding `json:"sections"`
	ImprovementNeeded   bool             `json:"improvement_needed"`
	SectionsToImprove   []string         `json:"sections_to_improve"`
}

var scriptAnalysisSchema = generateSchema[ScriptAnalysis]()

// CallSource supplies the recent call records the analysis runs against.
// *graph.Store satisfies it.
type CallSource interface {
	RecentCallRecords(ctx context.Context, limit int) ([]graph.CallRecord, error)
}

// ScriptPusher publishes a rebuilt script to the calling platform.
type ScriptPusher interface {
	UpdateAssistantScript(ctx context.Context, script string) error
}

// Result carries the artifacts of every completed chain step, mirroring what
// the HTTP handler returns to the operator.
type Result struct {
	Status            string          `json:"status"`
	CallRecordsCount  int             `json:"call_records_count"`
	Analysis          *ScriptAnalysis `json:"analysis,omitempty"`
	ReferenceMaterial string          `json:"reference_material,omitempty"`
	ImprovedSections  string          `json:"improved_sections,omitempty"`
	RebuiltScript     string          `json:"rebuilt_script,omitempty"`
	PushPerformed     bool            `json:"push_performed"`
	StepsCompleted    []string        `json:"steps_completed"`
}

// Config tunes the chain. ImproveModel drives the creative section rewrite
// and may differ from the analytical Model.
type Config struct {
	APIKey        string
	Model         string
	ImproveModel  string
	ReferencePath string
	CallLimit     int
}

// Chain runs the script-improvement workflow: fetch recent calls, analyze
// them against the live script, pull supporting reference material, rewrite
// the weak sections, rebuild the full script and push it out.
type Chain struct {
	api    openai.Client
	cfg    Config
	source CallSource
	pusher ScriptPusher
	log    *logrus.Entry
}

func NewChain(cfg Config, source CallSource, pusher ScriptPusher) *Chain {
	if cfg.Model == "" {
		cfg.Model = "gpt-5-mini"
	}
	if cfg.ImproveModel == "" {
		cfg.ImproveModel = cfg.Model
	}
	if cfg.CallLimit <= 0 {
		cfg.CallLimit = 10
	}
	return &Chain{
		api:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		cfg:    cfg,
		source: source,
		pusher: pusher,
		log:    logger.Component("rewrite"),
	}
}

// Run executes the chain against the given current script. When the analysis
// finds nothing to improve, the chain stops after step 2 and reports that.
func (c *Chain) Run(ctx context.Context, script string) (Result, error) {
	records, err := c.source.RecentCallRecords(ctx, c.cfg.CallLimit)
	if err != nil {
		return Result{}, fmt.Errorf("fetch call records: %w", err)
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("no call records found in database")
	}
	c.log.WithField("count", len(records)).Info("Fetched call records for analysis")

	analysis, err := c.AnalyzeScript(ctx, records, script)
	if err != nil {
		return Result{}, fmt.Errorf("script analysis: %w", err)
	}

	result := Result{
		Status:           "success",
		CallRecordsCount: len(records),
		Analysis:         &analysis,
		StepsCompleted:   []string{"call_data_fetch", "script_analysis"},
	}
	if !analysis.ImprovementNeeded {
		c.log.Info("Analysis found no sections needing improvement")
		return result, nil
	}

	reference, err := c.ExtractReference(ctx, analysis)
	if err != nil {
		return Result{}, fmt.Errorf("reference extraction: %w", err)
	}
	result.ReferenceMaterial = reference
	result.StepsCompleted = append(result.StepsCompleted, "reference_extraction")

	improved, err := c.ImproveSections(ctx, script, analysis, reference)
	if err != nil {
		return Result{}, fmt.Errorf("section improvement: %w", err)
	}
	result.ImprovedSections = improved
	result.StepsCompleted = append(result.StepsCompleted, "section_improvement")

	rebuilt, err := c.RebuildScript(ctx, script, improved)
	if err != nil {
		return Result{}, fmt.Errorf("script rebuild: %w", err)
	}
	result.RebuiltScript = rebuilt
	result.StepsCompleted = append(result.StepsCompleted, "script_rebuild")

	if c.pusher != nil {
		if err := c.pusher.UpdateAssistantScript(ctx, rebuilt); err != nil {
			return Result{}, fmt.Errorf("push rebuilt script: %w", err)
		}
		result.PushPerformed = true
		result.StepsCompleted = append(result.StepsCompleted, "assistant_update")
	}

	return result, nil
}

// AnalyzeScript grades the live script section by section against real call
// records, returning a strict structured verdict.
func (c *Chain) AnalyzeScript(ctx context.Context, records []graph.CallRecord, script string) (ScriptAnalysis, error) {
	recordsJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return ScriptAnalysis{}, fmt.Errorf("marshal call records: %w", err)
	}

	var input strings.Builder
	input.WriteString("CALL RECORDS DATA (most recent calls):\n")
	input.Write(recordsJSON)
	input.WriteString("\n\nCURRENT ASSISTANT SCRIPT:\n")
	input.WriteString(script)
	input.WriteString("\n\nSECTIONS TO ANALYZE:\n")
	for i, section := range scriptSections {
		fmt.Fprintf(&input, "%d. %s\n", i+1, section)
	}

	output, err := c.respondStructured(ctx, c.cfg.Model, analysisInstructions, input.String(), "ScriptAnalysis", scriptAnalysisSchema)
	if err != nil {
		return ScriptAnalysis{}, err
	}

	var analysis ScriptAnalysis
	if err := json.Unmarshal([]byte(output), &analysis); err != nil {
		return ScriptAnalysis{}, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return analysis, nil
}

// ExtractReference pulls the parts of the on-disk reference material relevant
// to the analysis findings. A missing reference file degrades to a notice
// rather than failing the chain.
func (c *Chain) ExtractReference(ctx context.Context, analysis ScriptAnalysis) (string, error) {
	content, err := os.ReadFile(c.cfg.ReferencePath)
	if err != nil {
		c.log.WithError(err).Warn("Reference material unavailable")
		return "Reference material not found. Proceed using general sales principles.", nil
	}

	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	input := fmt.Sprintf("SCRIPT ANALYSIS INSIGHTS:\n%s\n\nAVAILABLE REFERENCE MATERIAL:\n%s", analysisJSON, content)
	return c.respond(ctx, c.cfg.Model, referenceInstructions, input)
}

// ImproveSections rewrites only the sections the analysis flagged, in the
// original script's voice.
func (c *Chain) ImproveSections(ctx context.Context, script string, analysis ScriptAnalysis, reference string) (string, error) {
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	input := fmt.Sprintf("THE SCRIPT:\n%s\n\nTHE REFERENCE MATERIAL:\n%s\n\nIMPROVEMENT GUIDE:\n%s", script, reference, analysisJSON)
	return c.respond(ctx, c.cfg.ImproveModel, improveInstructions, input)
}

// RebuildScript splices the improved sections back into the full script.
func (c *Chain) RebuildScript(ctx context.Context, script, improvedSections string) (string, error) {
	input := fmt.Sprintf("ORIGINAL COMPLETE SCRIPT:\n%s\n\nIMPROVED SECTIONS TO INTEGRATE:\n%s", script, improvedSections)
	return c.respond(ctx, c.cfg.Model, rebuildInstructions, input)
}

func (c *Chain) respond(ctx context.Context, model, instructions, input string) (string, error) {
	resp, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(model),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}

func (c *Chain) respondStructured(ctx context.Context, model, instructions, input, name string, schema map[string]interface{}) (string, error) {
	resp, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(model),
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   name,
					Schema: schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.OutputText(), nil
}
