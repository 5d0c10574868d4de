package api

import (
	"net/http"
	"time"

	"clarifier/pkg/clarify"
	"clarifier/pkg/logx"
	"clarifier/pkg/version"
)

type startRequest struct {
	UserInput  string `json:"user_input"`
	PDFContent string `json:"pdf_content,omitempty"`
}

type clarifyRequest struct {
	SessionID    string `json:"session_id"`
	UserResponse string `json:"user_response"`
}

type clarifyResponse struct {
	SessionID string   `json:"session_id"`
	Questions []string `json:"questions"`
	Status    string   `json:"status"`
}

type statusResponse struct {
	SessionID string          `json:"session_id"`
	Status    clarify.Status  `json:"status"`
	Context   clarify.Context `json:"context"`
}

type advanceRequest struct {
	Status string `json:"status"`
}

type conversationResponse struct {
	SessionID string                      `json:"session_id"`
	Entries   []clarify.ConversationEntry `json:"entries"`
}

// handleStart implements POST /sessions/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req startRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.sessions.Start(r.Context(), ownerID, req.UserInput, req.PDFContent)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// handleClarify implements POST /sessions/clarify.
func (s *Server) handleClarify(w http.ResponseWriter, r *http.Request, _ string) {
	var req clarifyRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.sessions.Clarify(r.Context(), req.SessionID, req.UserResponse)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	questions := res.Questions
	if questions == nil {
		questions = []string{}
	}
	s.writeJSON(w, http.StatusOK, clarifyResponse{
		SessionID: res.SessionID,
		Questions: questions,
		Status:    res.Status,
	})
}

// handleStatus implements GET /sessions/{id}/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ string) {
	res, err := s.sessions.GetStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		SessionID: res.SessionID,
		Status:    res.Status,
		Context:   res.Context,
	})
}

// handleConversation implements GET /sessions/{id}/conversation.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	entries, err := s.sessions.Conversation(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, conversationResponse{SessionID: id, Entries: entries})
}

// handleAdvance implements POST /sessions/{id}/advance.
func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request, _ string) {
	var req advanceRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	to, err := clarify.ParseStatus(req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.sessions.Advance(r.Context(), r.PathValue("id"), to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		SessionID: res.SessionID,
		Status:    res.Status,
		Context:   res.Context,
	})
}

// handleRoot implements GET /.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "Clarifier API",
		"version": version.Version,
	})
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":  "healthy",
		"version": version.Version,
	}

	if s.counter != nil {
		counts, err := s.counter.CountByStatus(r.Context())
		if err != nil {
			s.logger.Error("Health check failed: %v", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"version": version.Version,
			})
			return
		}
		response["sessions"] = counts
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleLogs implements GET /api/logs?domain=&since=.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	domain := query.Get("domain")
	sinceStr := query.Get("since")

	var since time.Time
	if sinceStr != "" {
		var err error
		since, err = time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			s.logger.Warn("Invalid since parameter: %s", sinceStr)
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid since parameter (use RFC3339)", Code: "INVALID_INPUT"})
			return
		}
	}

	logs := logx.GetRecentLogEntries(domain, since)
	s.writeJSON(w, http.StatusOK, logs)
	s.logger.Debug("Served %d log entries (domain=%s, since=%s)", len(logs), domain, sinceStr)
}
