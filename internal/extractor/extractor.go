package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/logger"
)

// Client turns raw transcripts into structured dialogue-flow JSON and
// classifies recipients against the ICP taxonomy. Each call is a single
// attempt; callers decide what a failure means, so no retries happen here.
type Client struct {
	api   openai.Client
	model string
	log   *logrus.Entry
}

// NewClient builds an extraction client. model falls back to gpt-5-mini when
// empty.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "gpt-5-mini"
	}
	return &Client{
		api:   openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
		log:   logger.Component("extractor"),
	}
}

// DialogueFlow asks the model to structure a transcript and returns the raw
// response text with any markdown fence stripped. The result is untrusted
// until it survives parsing and validation downstream.
func (c *Client) DialogueFlow(ctx context.Context, transcript string) (string, error) {
	output, err := c.respond(ctx, dialogueFlowInstructions, "Transcript:\n"+transcript)
	if err != nil {
		return "", fmt.Errorf("dialogue flow extraction: %w", err)
	}
	return StripFence(output), nil
}

// ClassifySegment maps a transcript to one ICP segment name. Anything outside
// the known taxonomy collapses to "General".
func (c *Client) ClassifySegment(ctx context.Context, transcript string) (string, error) {
	output, err := c.respond(ctx, segmentInstructions, "Call Transcript:\n"+transcript)
	if err != nil {
		return "", fmt.Errorf("segment classification: %w", err)
	}
	segment := NormalizeSegment(output)
	c.log.WithField("segment", segment).Info("Classified recipient profile")
	return segment, nil
}

func (c *Client) respond(ctx context.Context, instructions, input string) (string, error) {
	resp, err := c.api.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(c.model),
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

// StripFence removes a surrounding markdown code fence, with or without a
// json language tag, from model output.
func StripFence(output string) string {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
