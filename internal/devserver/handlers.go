package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fprax/notify/internal/wire"
)

// ErrorResponse represents an error in problem+json format
type ErrorResponse struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, errType, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Type:   errType,
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// HandleHistory handles GET /api/notifications/history?limit=&offset=
func (s *Server) HandleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := s.history.List(r.Context(), id.UserID, limit, offset)
	if err != nil {
		s.logger.Error("history list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load history", "")
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

type preferencesResponse struct {
	Preferences wire.Preferences `json:"preferences"`
}

// HandleGetPreferences handles GET /api/notifications/preferences
func (s *Server) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}

	prefs, err := s.history.GetPreferences(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("preferences load failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load preferences", "")
		return
	}
	s.writeJSON(w, http.StatusOK, preferencesResponse{Preferences: prefs})
}

// HandleUpdatePreferences handles PUT /api/notifications/preferences with a
// partial body; unnamed fields keep their stored values.
func (s *Server) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}

	var patch wire.PreferencesPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	prefs, err := s.history.GetPreferences(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("preferences load failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to load preferences", "")
		return
	}
	if err := s.history.PutPreferences(r.Context(), id.UserID, patch.Apply(prefs)); err != nil {
		s.logger.Error("preferences store failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to store preferences", "")
		return
	}
	w.WriteHeader(http.StatusOK)
}

type markAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// HandleMarkAllRead handles PUT /api/notifications/mark-all-read
func (s *Server) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}

	updated, err := s.history.MarkAllRead(r.Context(), id.UserID)
	if err != nil {
		s.logger.Error("mark all read failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to mark all read", "")
		return
	}
	s.writeJSON(w, http.StatusOK, markAllReadResponse{Updated: updated})
}

type testRequest struct {
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Type     string        `json:"type"`
	Priority wire.Priority `json:"priority"`
}

// HandleSendTest handles POST /api/notifications/test, used to verify the
// alert pipeline end to end.
func (s *Server) HandleSendTest(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}

	var req testRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}
	if req.Title == "" || req.Message == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields",
			"title and message are required")
		return
	}
	if req.Type == "" {
		req.Type = wire.TypeTest
	}
	if req.Priority == "" {
		req.Priority = wire.PriorityMedium
	}

	n := wire.Notification{
		Title:    req.Title,
		Message:  req.Message,
		Type:     req.Type,
		Priority: req.Priority,
	}
	if err := s.Notify(r.Context(), id, n); err != nil {
		s.logger.Error("test notification failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "storage_error", "Failed to send test notification", "")
		return
	}
	w.WriteHeader(http.StatusOK)
}
