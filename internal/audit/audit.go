// Package audit persists per-session pipeline artifacts to disk so failed or
// suspicious extractions can be replayed and inspected. Everything here is
// best-effort: a full disk never fails a transcript.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"coldcall-insights-go/internal/logger"
	"coldcall-insights-go/internal/types"
)

// Writer drops three files per session under <root>/call_<n>/: the raw model
// output, the enriched record, and the quality report.
type Writer struct {
	root string
	log  *logrus.Entry
}

func NewWriter(root string) *Writer {
	return &Writer{
		root: root,
		log:  logger.Component("audit"),
	}
}

// sessionDir shortens "call_transcript_7" to "call_7". Ids outside that shape
// are used as-is.
func sessionDir(sessionID string) string {
	if rest, ok := strings.CutPrefix(sessionID, types.SessionIDPrefix); ok && rest != "" {
		return "call_" + rest
	}
	return sessionID
}

func (w *Writer) write(sessionID, suffix string, data []byte) {
	dir := filepath.Join(w.root, sessionDir(sessionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.log.WithError(err).WithField("session_id", sessionID).Warn("Could not create audit directory")
		return
	}
	path := filepath.Join(dir, sessionID+suffix)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		w.log.WithError(err).WithField("path", path).Warn("Could not save audit file")
	}
}

// WriteRaw stores the model output exactly as the pipeline received it,
// session id already injected.
func (w *Writer) WriteRaw(sessionID string, payload []byte) {
	w.write(sessionID, "_raw.json", payload)
}

// WriteEnriched stores the validated record after normalization and ICP
// enrichment.
func (w *Writer) WriteEnriched(sessionID string, record types.DialogueGraph) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		w.log.WithError(err).WithField("session_id", sessionID).Warn("Could not marshal enriched record")
		return
	}
	w.write(sessionID, "_enriched.json", data)
}

// WriteQualityReport stores the scoring outcome.
func (w *Writer) WriteQualityReport(sessionID string, report types.QualityReport) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		w.log.WithError(err).WithField("session_id", sessionID).Warn("Could not marshal quality report")
		return
	}
	w.write(sessionID, "_quality_report.json", data)
}
