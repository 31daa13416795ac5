package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

const (
	// MaxListedSessions bounds the history listing.
	MaxListedSessions = 50

	// SecondsPerMessage is the flat per-message estimate behind total_time.
	SecondsPerMessage = 120

	activeDaysWindow = 30 * 24 * time.Hour
	sessionTitleFmt  = "Chat 2006-01-02 15:04"
)

type HistoryService struct {
	store       core.HistoryStore
	idleTimeout time.Duration
	now         func() time.Time
}

// NewHistoryService builds the service. idleTimeout <= 0 means every turn
// joins the user's latest session no matter how old it is.
func NewHistoryService(store core.HistoryStore, idleTimeout time.Duration) *HistoryService {
	return &HistoryService{
		store:       store,
		idleTimeout: idleTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AppendTurn stores one exchange, reusing the latest session when allowed.
func (s *HistoryService) AppendTurn(ctx context.Context, turn models.Turn) (*models.ChatMessage, error) {
	if turn.UserID <= 0 {
		return nil, apperrors.Validation("user id is required")
	}
	if turn.At.IsZero() {
		turn.At = s.now()
	}
	title := turn.At.UTC().Format(sessionTitleFmt)

	msg, err := s.store.AppendTurn(ctx, turn, s.idleTimeout, title)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return msg, nil
}

// ListSessions returns the most recently active sessions first.
func (s *HistoryService) ListSessions(ctx context.Context, userID int64) ([]models.SessionSummary, error) {
	sessions, err := s.store.ListSessions(ctx, userID, MaxListedSessions)
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	return sessions, nil
}

// SessionMessages returns the turns of one session owned by userID.
func (s *HistoryService) SessionMessages(ctx context.Context, userID, sessionID int64) (*models.ChatSession, []models.ChatMessage, error) {
	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, apperrors.NotFound("session not found")
		}
		return nil, nil, apperrors.Persistence(err)
	}
	msgs, err := s.store.ListMessages(ctx, session.ID)
	if err != nil {
		return nil, nil, apperrors.Persistence(err)
	}
	return session, msgs, nil
}

// UserStats computes usage aggregates at read time. TotalTimeSeconds is an
// estimate of SecondsPerMessage per message.
func (s *HistoryService) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	var stats models.UserStats
	since := s.now().Add(-activeDaysWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountSessions(gctx, userID)
		stats.TotalSessions = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountMessages(gctx, userID)
		stats.TotalMessages = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountActiveDays(gctx, userID, since)
		stats.ActiveDays30 = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.Persistence(err)
	}

	stats.TotalTimeSeconds = int64(stats.TotalMessages) * SecondsPerMessage
	return &stats, nil
}
