package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
)

type HistoryReader interface {
	ListSessions(ctx context.Context, userID int64) ([]models.SessionSummary, error)
	SessionMessages(ctx context.Context, userID, sessionID int64) (*models.ChatSession, []models.ChatMessage, error)
	UserStats(ctx context.Context, userID int64) (*models.UserStats, error)
}

type HistoryHandler struct {
	history HistoryReader
}

func NewHistoryHandler(history HistoryReader) *HistoryHandler {
	return &HistoryHandler{history: history}
}

type sessionsResponse struct {
	Sessions []models.SessionSummary `json:"sessions"`
}

type sessionDetailResponse struct {
	Session  *models.ChatSession  `json:"session"`
	Messages []models.ChatMessage `json:"messages"`
}

// ListSessions returns the caller's most recent sessions, newest first.
func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.history.ListSessions(r.Context(), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, sessionsResponse{Sessions: sessions})
}

func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	sessionID, err := strconv.ParseInt(chi.URLParam(r, "sessionID"), 10, 64)
	if err != nil || sessionID <= 0 {
		response.Error(w, apperrors.Validation("invalid session id"))
		return
	}

	session, messages, err := h.history.SessionMessages(r.Context(), user.ID, sessionID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	response.OK(w, sessionDetailResponse{Session: session, Messages: messages})
}

func (h *HistoryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	stats, err := h.history.UserStats(r.Context(), user.ID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, stats)
}
