package server

import (
	"encoding/json"
	"net/http"
	"time"

	"matchpoint/internal/domain"
	"matchpoint/internal/notify"
	"matchpoint/internal/service"

	"github.com/rs/zerolog"
)

// APIServer exposes the two engines as a JSON HTTP API. Everything here is a
// thin translation layer; the rules live in the engines and services.
type APIServer struct {
	reputationSvc   *service.ReputationService
	notificationSvc *service.NotificationService
	logger          zerolog.Logger
}

func NewAPIServer(reputationSvc *service.ReputationService, notificationSvc *service.NotificationService, logger zerolog.Logger) *APIServer {
	return &APIServer{reputationSvc: reputationSvc, notificationSvc: notificationSvc, logger: logger}
}

func (s *APIServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/reputation/events", s.recordEvent)
	mux.HandleFunc("GET /v1/players/{playerID}/reputation", s.getReputation)
	mux.HandleFunc("POST /v1/players/{playerID}/reputation/recalculate", s.recalculate)
	mux.HandleFunc("POST /v1/notifications", s.dispatch)
	mux.HandleFunc("POST /v1/notifications/{id}/read", s.markRead)
	mux.HandleFunc("GET /v1/users/{userID}/preferences", s.getPreferences)
	mux.HandleFunc("PUT /v1/users/{userID}/preferences", s.setPreference)
}

type recordEventRequest struct {
	PlayerID         string         `json:"player_id"`
	EventType        string         `json:"event_type"`
	BaseImpact       *float64       `json:"base_impact,omitempty"`
	OccurredAt       *time.Time     `json:"occurred_at,omitempty"`
	CausedByPlayerID string         `json:"caused_by_player_id,omitempty"`
	MatchID          string         `json:"match_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func (s *APIServer) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	event := &domain.ReputationEvent{
		PlayerID:         req.PlayerID,
		EventType:        domain.ReputationEventType(req.EventType),
		BaseImpact:       req.BaseImpact,
		CausedByPlayerID: req.CausedByPlayerID,
		MatchID:          req.MatchID,
		Metadata:         req.Metadata,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	}

	summary, err := s.reputationSvc.Record(r.Context(), event)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, summaryResponse(summary))
}

func (s *APIServer) getReputation(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("playerID")

	summary, err := s.reputationSvc.Summary(r.Context(), playerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// below the visibility floor the summary is private to the player
	if viewer := r.URL.Query().Get("viewer_id"); viewer != "" && viewer != playerID && !summary.IsPublic {
		s.writeError(w, http.StatusNotFound, "reputation not public")
		return
	}

	s.writeJSON(w, http.StatusOK, summaryResponse(summary))
}

func (s *APIServer) recalculate(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reputationSvc.Recalculate(r.Context(), r.PathValue("playerID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summaryResponse(summary))
}

type dispatchRequest struct {
	UserID      string         `json:"user_id"`
	Type        string         `json:"type"`
	TargetID    string         `json:"target_id,omitempty"`
	Title       string         `json:"title"`
	Body        string         `json:"body,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Priority    string         `json:"priority,omitempty"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
}

type channelOutcomeResponse struct {
	Status        string `json:"status"`
	AttemptNumber int    `json:"attempt_number,omitempty"`
	Error         string `json:"error,omitempty"`
	PriorSuccess  bool   `json:"prior_success,omitempty"`
}

type dispatchResponse struct {
	NotificationID string                            `json:"notification_id"`
	Created        bool                              `json:"created"`
	Delivered      bool                              `json:"delivered"`
	Channels       map[string]channelOutcomeResponse `json:"channels"`
}

func (s *APIServer) dispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Type == "" || req.Title == "" {
		s.writeError(w, http.StatusBadRequest, "user_id, type and title are required")
		return
	}

	result, err := s.notificationSvc.Dispatch(r.Context(), notify.Input{
		UserID:      req.UserID,
		Type:        domain.NotificationType(req.Type),
		TargetID:    req.TargetID,
		Title:       req.Title,
		Body:        req.Body,
		Payload:     req.Payload,
		Priority:    domain.NotificationPriority(req.Priority),
		ExpiresAt:   req.ExpiresAt,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := dispatchResponse{
		NotificationID: result.Notification.ID,
		Created:        result.Created,
		Delivered:      result.Delivered,
		Channels:       make(map[string]channelOutcomeResponse, len(result.Channels)),
	}
	for ch, outcome := range result.Channels {
		resp.Channels[string(ch)] = channelOutcomeResponse{
			Status:        string(outcome.Status),
			AttemptNumber: outcome.AttemptNumber,
			Error:         outcome.Error,
			PriorSuccess:  outcome.PriorSuccess,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) markRead(w http.ResponseWriter, r *http.Request) {
	if err := s.notificationSvc.MarkRead(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *APIServer) getPreferences(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.notificationSvc.ResolvedPreferences(r.Context(), r.PathValue("userID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	out := make(map[string]map[string]bool, len(resolved))
	for typ, channels := range resolved {
		row := make(map[string]bool, len(channels))
		for ch, enabled := range channels {
			row[string(ch)] = enabled
		}
		out[string(typ)] = row
	}
	s.writeJSON(w, http.StatusOK, out)
}

type setPreferenceRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
}

func (s *APIServer) setPreference(w http.ResponseWriter, r *http.Request) {
	var req setPreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.notificationSvc.SetPreference(r.Context(), &domain.NotificationPreference{
		UserID:  r.PathValue("userID"),
		Type:    domain.NotificationType(req.Type),
		Channel: domain.DeliveryChannel(req.Channel),
		Enabled: req.Enabled,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reputationResponse struct {
	PlayerID         string  `json:"player_id"`
	Score            float64 `json:"score"`
	Tier             string  `json:"tier"`
	TotalEvents      int     `json:"total_events"`
	PositiveEvents   int     `json:"positive_events"`
	NegativeEvents   int     `json:"negative_events"`
	MatchesCompleted int     `json:"matches_completed"`
	IsPublic         bool    `json:"is_public"`
	CalculatedAt     string  `json:"calculated_at"`
}

func summaryResponse(s *domain.ReputationSummary) reputationResponse {
	return reputationResponse{
		PlayerID:         s.PlayerID,
		Score:            s.Score,
		Tier:             string(s.Tier),
		TotalEvents:      s.TotalEvents,
		PositiveEvents:   s.PositiveEvents,
		NegativeEvents:   s.NegativeEvents,
		MatchesCompleted: s.MatchesCompleted,
		IsPublic:         s.IsPublic,
		CalculatedAt:     s.CalculatedAt.Format(time.RFC3339),
	}
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *APIServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case err == domain.ErrNotFound:
		s.writeError(w, http.StatusNotFound, "not found")
	default:
		s.logger.Error().Err(err).Msg("request failed")
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
