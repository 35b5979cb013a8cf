package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/audit"
	"coldcall-insights-go/internal/extractor"
	"coldcall-insights-go/internal/graph"
	"coldcall-insights-go/internal/logger"
	"coldcall-insights-go/internal/pipeline"
	"coldcall-insights-go/internal/report"
	"coldcall-insights-go/internal/rewrite"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "coldcall-insights-go").Info("starting service")

	ctx := context.Background()
	store, err := graph.Connect(ctx, graph.Config{
		URI:      envOr("NEO4J_URI", "bolt://localhost:7687"),
		Username: envOr("NEO4J_USERNAME", "neo4j"),
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to graph")
	}
	defer store.Close(ctx)
	log.Info("connected to graph")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY is required")
	}
	llm := extractor.NewClient(apiKey, os.Getenv("OPENAI_MODEL"))
	auditWriter := audit.NewWriter(envOr("AUDIT_DIR", "call_outputs"))
	pipe := pipeline.New(store, llm, auditWriter)

	var pusher rewrite.ScriptPusher
	if assistantID := os.Getenv("VAPI_ASSISTANT_ID"); assistantID != "" {
		pusher = rewrite.NewVAPIClient(rewrite.VAPIConfig{
			BaseURL:      os.Getenv("VAPI_BASE_URL"),
			AssistantID:  assistantID,
			Token:        os.Getenv("VAPI_API_KEY"),
			VoiceID:      os.Getenv("VAPI_VOICE_ID"),
			FirstMessage: os.Getenv("VAPI_FIRST_MESSAGE"),
		})
	} else {
		log.Warn("VAPI_ASSISTANT_ID not set, rebuilt scripts will not be pushed")
	}
	chain := rewrite.NewChain(rewrite.Config{
		APIKey:        apiKey,
		Model:         os.Getenv("REWRITE_MODEL"),
		ImproveModel:  os.Getenv("IMPROVE_MODEL"),
		ReferencePath: envOr("REFERENCE_PATH", "reference.txt"),
		CallLimit:     envIntOr("REWRITE_CALL_LIMIT", 10),
	}, store, pusher)

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		fmt.Fprint(w, "ok")
	})

	mux.HandleFunc("/process-transcript", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "process-transcript")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Transcript string `json:"transcript"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			reqLog.WithError(err).Warn("invalid request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if body.Transcript == "" {
			reqLog.Warn("missing transcript")
			http.Error(w, "missing transcript", http.StatusBadRequest)
			return
		}

		start := time.Now()
		res := pipe.ProcessTranscript(r.Context(), body.Transcript)
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("session_id", res.SessionID).
			WithField("status", res.Status).
			Info("pipeline finished")

		w.Header().Set("Content-Type", "application/json")
		if !res.Status {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		writeJSON(w, reqLog, res)
	})

	mux.HandleFunc("/check-threshold", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "check-threshold")
		threshold := envIntOr("SEGMENT_CALL_THRESHOLD", 50)
		if t := r.URL.Query().Get("threshold"); t != "" {
			if parsed, err := strconv.Atoi(t); err == nil && parsed > 0 {
				threshold = parsed
			}
		}

		segments, err := store.ReadySegments(r.Context(), threshold)
		if err != nil {
			reqLog.WithError(err).Error("ready segments query failed")
			http.Error(w, "graph query failed", http.StatusInternalServerError)
			return
		}
		reqLog.WithField("threshold", threshold).WithField("ready", len(segments)).Info("threshold check complete")

		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, reqLog, map[string]any{
			"threshold":      threshold,
			"ready_segments": segments,
		})
	})

	mux.HandleFunc("/update-script", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "update-script")
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var body struct {
			Script  string `json:"script"`
			Segment string `json:"segment"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			reqLog.WithError(err).Warn("invalid request body")
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		script := body.Script
		if script == "" {
			data, err := os.ReadFile(envOr("SCRIPT_PATH", "vapi_script.txt"))
			if err != nil {
				reqLog.WithError(err).Warn("no script in request and script file unreadable")
				http.Error(w, "no script provided", http.StatusBadRequest)
				return
			}
			script = string(data)
		}

		start := time.Now()
		result, err := chain.Run(r.Context(), script)
		if err != nil {
			reqLog.WithError(err).Error("script rewrite failed")
			http.Error(w, fmt.Sprintf("script rewrite failed: %v", err), http.StatusInternalServerError)
			return
		}
		reqLog.WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("steps", result.StepsCompleted).Info("script rewrite complete")

		if body.Segment != "" && result.PushPerformed {
			if err := store.MarkAnalysisRun(r.Context(), body.Segment, time.Now()); err != nil {
				reqLog.WithError(err).Warn("could not stamp analysis run on segment")
			}
		}

		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, reqLog, result)
	})

	mux.HandleFunc("/export-report", func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "export-report")

		sessions, err := store.SessionSummaries(r.Context())
		if err != nil {
			reqLog.WithError(err).Error("session summaries query failed")
			http.Error(w, "graph query failed", http.StatusInternalServerError)
			return
		}
		segments, err := store.SegmentCounts(r.Context())
		if err != nil {
			reqLog.WithError(err).Error("segment counts query failed")
			http.Error(w, "graph query failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="call_insights.xlsx"`)
		if err := report.Export(w, sessions, segments); err != nil {
			reqLog.WithError(err).Error("workbook export failed")
			return
		}
		reqLog.WithField("sessions", len(sessions)).Info("report exported")
	})

	addr := fmt.Sprintf(":%s", envOr("PORT", "8080"))
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

func writeJSON(w io.Writer, log *logrus.Entry, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error("failed to write response")
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envIntOr(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
