package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/sqlbench/pkg/metrics"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	DatabaseConnected bool   `json:"database_connected"`
	Version           string `json:"version"`
}

// BatchRequest is the body of POST /evaluate/batch.
type BatchRequest struct {
	Requests []metrics.Request `json:"requests"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:            "ok",
		DatabaseConnected: s.evaluator.ExecutionEnabled(),
		Version:           s.version,
	})
}

func (s *Server) handleComplexityLevels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, metrics.Complexities())
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req metrics.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := s.evaluator.Evaluate(r.Context(), req)
	s.logger.Debug("evaluated",
		slog.String("complexity", string(req.QueryComplexity)),
		slog.Float64("logical_form", resp.Metrics.LogicalFormAccuracy),
		slog.Float64("evaluation_ms", resp.EvaluationTime))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	for i, item := range req.Requests {
		if err := item.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("request %d: %w", i, err))
			return
		}
	}

	writeJSON(w, http.StatusOK, s.evaluator.EvaluateBatch(r.Context(), req.Requests))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Detail: err.Error()})
}
