package core

import (
	"context"
	"errors"
	"time"

	"github.com/markdave123-py/aspiro/internal/models"
)

// Store-level sentinels. Callers match them with errors.Is.
var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserStore is the credential store. It exclusively owns user rows.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	TouchLastLogin(ctx context.Context, email string, at time.Time) error
	UpdateProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.User, error)
	UpdateSubscription(ctx context.Context, id int64, plan string, expires *time.Time) error
}

// HistoryStore owns chat sessions and messages.
type HistoryStore interface {
	// AppendTurn attaches the turn to the user's most recently updated session,
	// or to a new session titled newTitle when there is none (or the latest one
	// has been idle longer than idleTimeout, when idleTimeout > 0). The
	// find-or-create and the insert happen atomically per user.
	AppendTurn(ctx context.Context, turn models.Turn, idleTimeout time.Duration, newTitle string) (*models.ChatMessage, error)
	ListSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, userID, sessionID int64) (*models.ChatSession, error)
	ListMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error)

	CountSessions(ctx context.Context, userID int64) (int, error)
	CountMessages(ctx context.Context, userID int64) (int, error)
	CountActiveDays(ctx context.Context, userID int64, since time.Time) (int, error)
}

type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *models.Feedback) (*models.Feedback, error)
}

// DbClient is everything the relational store provides.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	UserStore
	HistoryStore
	FeedbackStore

	Ping(ctx context.Context) error
	Close() error
}
