package rewrite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/logger"
)

// VAPIConfig identifies the voice assistant that receives rebuilt scripts.
type VAPIConfig struct {
	BaseURL      string
	AssistantID  string
	Token        string
	VoiceID      string
	FirstMessage string
}

// VAPIClient PATCHes the rebuilt script into the assistant's system prompt.
// Unlike pipeline stages, pushes retry on transient failures because losing
// an update here silently reverts the assistant to a stale script.
type VAPIClient struct {
	cfg  VAPIConfig
	http *http.Client
	log  *logrus.Entry
}

func NewVAPIClient(cfg VAPIConfig) *VAPIClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.vapi.ai"
	}
	if cfg.FirstMessage == "" {
		cfg.FirstMessage = "Hi, is compliance available?"
	}
	return &VAPIClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  logger.Component("vapi"),
	}
}

// UpdateAssistantScript replaces the assistant's system message with the
// given script, keeping the voice and call-start settings stable.
func (v *VAPIClient) UpdateAssistantScript(ctx context.Context, script string) error {
	payload := map[string]any{
		"model": map[string]any{
			"temperature": 0.3,
			"provider":    "openai",
			"model":       "gpt-4.1",
			"messages": []map[string]string{
				{"role": "system", "content": script},
			},
		},
		"startSpeakingPlan": map[string]any{
			"smartEndpointingEnabled": true,
			"waitSeconds":             1.5,
		},
		"firstMessage": v.cfg.FirstMessage,
	}
	if v.cfg.VoiceID != "" {
		payload["voice"] = map[string]string{
			"provider": "11labs",
			"voiceId":  v.cfg.VoiceID,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal assistant payload: %w", err)
	}
	url := fmt.Sprintf("%s/assistant/%s", v.cfg.BaseURL, v.cfg.AssistantID)

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+v.cfg.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := v.http.Do(req)
		if err != nil {
			v.log.WithError(err).Warn("Assistant update request failed, will retry")
			return err
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 500 {
			err := fmt.Errorf("assistant update server error %d: %s", resp.StatusCode, respBody)
			v.log.WithError(err).Warn("Transient assistant update failure, will retry")
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("assistant update rejected with %d: %s", resp.StatusCode, respBody))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return err
	}

	v.log.WithField("assistant_id", v.cfg.AssistantID).Info("Assistant script updated")
	return nil
}
