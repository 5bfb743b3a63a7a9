// Package chat is the HTTP boundary over the presentation stage: document
// upload, question submission, and trace polling.
package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"docqa/internal/agent"
	"docqa/internal/middleware"
)

// Pipeline is the slice of the presentation stage the HTTP layer needs.
type Pipeline interface {
	BeginUpload(ctx context.Context, fileName string, data []byte) (string, error)
	BeginQuery(ctx context.Context, query string) (string, error)
	Poll(traceID string) (agent.Outcome, agent.Status)
}

type Handler struct {
	pipeline      Pipeline
	maxUploadSize int64
}

func NewHandler(pipeline Pipeline, maxUploadSizeMB int64) *Handler {
	return &Handler{pipeline: pipeline, maxUploadSize: maxUploadSizeMB << 20}
}

var validExts = map[string]bool{
	".pdf": true, ".pptx": true, ".docx": true, ".csv": true, ".txt": true, ".md": true,
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !validExts[ext] {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unsupported file type", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to read file", http.StatusBadRequest)
		return
	}

	traceID, err := h.pipeline.BeginUpload(r.Context(), header.Filename, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "upload dispatch failed", "file", header.Filename, "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeTrace(r.Context(), w, traceID)
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "query is required", http.StatusBadRequest)
		return
	}

	traceID, err := h.pipeline.BeginQuery(r.Context(), req.Query)
	if err != nil {
		slog.ErrorContext(r.Context(), "query dispatch failed", "error", err)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeTrace(r.Context(), w, traceID)
}

func (h *Handler) Poll(w http.ResponseWriter, r *http.Request) {
	traceID := r.PathValue("traceId")
	if traceID == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "traceId is required", http.StatusBadRequest)
		return
	}

	outcome, status := h.pipeline.Poll(traceID)

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"trace_id": traceID,
		"status":   status,
	}

	switch status {
	case agent.StatusDone:
		resp["answer"] = outcome.Result.Answer
		resp["source_info"] = outcome.Result.SourceInfo
		resp["query"] = outcome.Result.Query
	case agent.StatusFailed:
		resp["error"] = outcome.Failure.Error
	case agent.StatusPending:
		w.WriteHeader(http.StatusAccepted)
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) writeTrace(ctx context.Context, w http.ResponseWriter, traceID string) {
	// Dispatch is synchronous, so the outcome is already known; return it
	// along with the trace id so simple clients can skip polling.
	_, status := h.pipeline.Poll(traceID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"trace_id": traceID,
		"status":   status,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode error response", "error", err)
	}
}
