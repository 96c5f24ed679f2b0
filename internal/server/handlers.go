package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/engine"
	"github.com/callwarden/callwarden/internal/export"
	"github.com/callwarden/callwarden/internal/store"
	"github.com/callwarden/callwarden/internal/websocket"
)

// EvaluateRequest is the body of POST /api/evaluate
type EvaluateRequest struct {
	Metadata   engine.CallMetadata `json:"metadata"`
	Transcript string              `json:"transcript"`
	UseLLM     bool                `json:"use_llm"`
}

// SetModelRequest is the body of PUT /api/llm/model
type SetModelRequest struct {
	Model string `json:"model"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// handleEvaluate runs one evaluation of the transcript-so-far
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Metadata.CallID == "" {
		writeError(w, http.StatusBadRequest, "metadata.call_id is required")
		return
	}

	log := s.logger.WithRequestID(getRequestID(r.Context())).WithCallID(req.Metadata.CallID)

	// A registry listing overrides a stale client-side flag
	if s.dncRegistry != nil && !req.Metadata.IsDNCListed && req.Metadata.CustomerPhone != nil {
		if s.dncRegistry.Lookup(r.Context(), *req.Metadata.CustomerPhone) {
			log.Info("Customer number found in DNC registry")
			req.Metadata.IsDNCListed = true
		}
	}

	result := s.orchestrator.Evaluate(r.Context(), req.Metadata, req.Transcript, req.UseLLM)

	if s.alertStore != nil {
		for _, alert := range result.Alerts {
			if err := s.alertStore.InsertAlert(r.Context(), alert, req.Metadata); err != nil {
				// Persistence failures never block the live evaluation path
				log.Error("Failed to persist alert", zap.Error(err))
			}
		}
	}

	if s.wsHub != nil {
		for _, alert := range result.Alerts {
			s.wsHub.BroadcastEvent(websocket.Event{
				Type:      websocket.EventTypeAlert,
				Timestamp: time.Now(),
				Data: websocket.AlertEvent{
					CallID:    req.Metadata.CallID,
					AgentID:   req.Metadata.AgentID,
					AgentName: req.Metadata.AgentName,
					Alert:     alert,
					LLMUsed:   result.LLMUsed,
				},
			})
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// handleStartSession registers a call session
func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var metadata engine.CallMetadata
	if err := json.NewDecoder(r.Body).Decode(&metadata); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if metadata.CallID == "" {
		writeError(w, http.StatusBadRequest, "call_id is required")
		return
	}

	s.orchestrator.Sessions().StartSession(metadata.CallID)

	if s.alertStore != nil {
		if err := s.alertStore.StartCallSession(r.Context(), metadata); err != nil {
			s.logger.WithCallID(metadata.CallID).Error("Failed to record call session", zap.Error(err))
		}
	}

	s.broadcastSession("started", metadata.CallID, metadata.AgentID)
	writeJSON(w, http.StatusCreated, map[string]string{"call_id": metadata.CallID, "status": "started"})
}

// handleEndSession discards a call session
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["call_id"]

	s.orchestrator.Sessions().EndSession(callID)

	if s.alertStore != nil {
		if err := s.alertStore.EndCallSession(r.Context(), callID); err != nil {
			s.logger.WithCallID(callID).Error("Failed to close call session", zap.Error(err))
		}
	}

	s.broadcastSession("ended", callID, "")
	writeJSON(w, http.StatusOK, map[string]string{"call_id": callID, "status": "ended"})
}

// handleResetSession zeroes a session's conversation state
func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["call_id"]

	s.orchestrator.Sessions().ResetSession(callID)

	s.broadcastSession("reset", callID, "")
	writeJSON(w, http.StatusOK, map[string]string{"call_id": callID, "status": "reset"})
}

func (s *Server) broadcastSession(action, callID, agentID string) {
	if s.wsHub == nil {
		return
	}
	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeSession,
		Timestamp: time.Now(),
		Data:      websocket.SessionEvent{Action: action, CallID: callID, AgentID: agentID},
	})
}

// handleGetAlerts queries stored alerts with optional filters
func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		writeError(w, http.StatusServiceUnavailable, "alert store is not enabled")
		return
	}

	filter, err := alertFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.alertStore.GetAlerts(r.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to query alerts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query alerts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleExportAlerts streams matching alerts as a downloadable file. JSON by
// default; format=parquet selects the warehouse-friendly format.
func (s *Server) handleExportAlerts(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		writeError(w, http.StatusServiceUnavailable, "alert store is not enabled")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "parquet" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	filter, err := alertFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := s.alertStore.GetAlerts(r.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to query alerts for export", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to query alerts")
		return
	}

	filename := fmt.Sprintf("alerts-%s.%s", time.Now().Format("2006-01-02"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == "parquet" {
		w.Header().Set("Content-Type", "application/octet-stream")
		if err := export.WriteAlerts(w, alerts); err != nil {
			s.logger.Error("Failed to export alerts", zap.Error(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleAnalytics aggregates alert counts over a date range. Defaults to the
// trailing 30 days.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if s.alertStore == nil {
		writeError(w, http.StatusServiceUnavailable, "alert store is not enabled")
		return
	}

	endDate := r.URL.Query().Get("end_date")
	if endDate == "" {
		endDate = time.Now().Format(time.RFC3339)
	}
	startDate := r.URL.Query().Get("start_date")
	if startDate == "" {
		startDate = time.Now().AddDate(0, 0, -30).Format(time.RFC3339)
	}

	data, err := s.alertStore.Analytics(r.Context(), startDate, endDate)
	if err != nil {
		s.logger.Error("Failed to build analytics", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to build analytics")
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// handleGetRules returns the full rule catalog
func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":      s.catalog.Version,
		"last_updated": s.catalog.LastUpdated,
		"disclaimer":   s.catalog.Disclaimer,
		"rules":        s.catalog.All(),
	})
}

// handleGetRulesPrompt returns the rendered rule text used in the hosted
// evaluator's system prompt.
func (s *Server) handleGetRulesPrompt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.catalog.RenderForPrompt()))
}

// handleLLMStatus re-probes the hosted evaluator and reports the result
func (s *Server) handleLLMStatus(w http.ResponseWriter, r *http.Request) {
	if s.llmClient == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"available": false})
		return
	}
	s.llmClient.CheckAvailability(r.Context())
	writeJSON(w, http.StatusOK, s.llmClient.Status())
}

// handleSetLLMModel switches the hosted model and re-probes availability
func (s *Server) handleSetLLMModel(w http.ResponseWriter, r *http.Request) {
	if s.llmClient == nil {
		writeError(w, http.StatusServiceUnavailable, "hosted evaluator is not configured")
		return
	}

	var req SetModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	s.llmClient.SetModel(req.Model)
	s.llmClient.CheckAvailability(r.Context())

	s.logger.Info("Hosted model changed", zap.String("model", req.Model))
	writeJSON(w, http.StatusOK, s.llmClient.Status())
}

// handleHealth reports service liveness and component status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       time.Now().Format(time.RFC3339),
		"active_sessions": s.orchestrator.Sessions().ActiveSessions(),
		"store_enabled":   s.alertStore != nil,
		"dnc_enabled":     s.dncRegistry != nil,
	}
	if s.llmClient != nil {
		health["llm"] = s.llmClient.Status()
	}
	writeJSON(w, http.StatusOK, health)
}

func alertFilterFromQuery(r *http.Request) (store.AlertFilter, error) {
	var filter store.AlertFilter
	q := r.URL.Query()

	optional := func(key string) *string {
		if v := q.Get(key); v != "" {
			return &v
		}
		return nil
	}

	filter.StartDate = optional("start_date")
	filter.EndDate = optional("end_date")
	filter.AgentID = optional("agent_id")
	filter.Severity = optional("severity")
	filter.RuleID = optional("rule_id")

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit %q", v)
		}
		filter.Limit = &limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("invalid offset %q", v)
		}
		filter.Offset = &offset
	}

	return filter, nil
}
