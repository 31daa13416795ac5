package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/models"
)

// AppendTurn runs find-latest-or-create and the message insert in one
// transaction. The transaction-scoped advisory lock keyed by user id
// serializes concurrent turns of the same user, so two racing turns cannot
// both observe "no session" and split one conversation in two.
func (c *DatabaseClient) AppendTurn(ctx context.Context, turn models.Turn, idleTimeout time.Duration, newTitle string) (*models.ChatMessage, error) {
	if turn.At.IsZero() {
		turn.At = time.Now().UTC()
	}

	var msg *models.ChatMessage
	err := WithTx(ctx, c.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, turn.UserID); err != nil {
			return fmt.Errorf("lock user history: %w", err)
		}

		sessionID, err := latestReusableSession(ctx, tx, turn, idleTimeout)
		if err != nil {
			return err
		}
		if sessionID == 0 {
			sessionID, err = createSession(ctx, tx, turn.UserID, newTitle, turn.At)
			if err != nil {
				return err
			}
		}

		msg, err = insertMessage(ctx, tx, sessionID, turn)
		if err != nil {
			return err
		}

		// GREATEST keeps updated_at non-decreasing even if clocks disagree.
		const bump = `UPDATE chat_sessions SET updated_at = GREATEST(updated_at, $2) WHERE id = $1`
		if _, err := tx.ExecContext(ctx, bump, sessionID, turn.At); err != nil {
			return fmt.Errorf("bump session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

// latestReusableSession returns 0 when a new session has to be opened.
func latestReusableSession(ctx context.Context, tx DBTX, turn models.Turn, idleTimeout time.Duration) (int64, error) {
	const q = `
		SELECT id, updated_at FROM chat_sessions
		WHERE user_id = $1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`
	var (
		id        int64
		updatedAt time.Time
	)
	err := tx.QueryRowContext(ctx, q, turn.UserID).Scan(&id, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("latest session: %w", err)
	}
	if idleTimeout > 0 && turn.At.Sub(updatedAt) > idleTimeout {
		return 0, nil
	}
	return id, nil
}

func createSession(ctx context.Context, tx DBTX, userID int64, title string, at time.Time) (int64, error) {
	const q = `
		INSERT INTO chat_sessions (user_id, session_title, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		RETURNING id
	`
	var id int64
	if err := tx.QueryRowContext(ctx, q, userID, title, at).Scan(&id); err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func insertMessage(ctx context.Context, tx DBTX, sessionID int64, turn models.Turn) (*models.ChatMessage, error) {
	const q = `
		INSERT INTO chat_messages (session_id, user_message, ai_response, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	msg := &models.ChatMessage{
		SessionID:   sessionID,
		UserMessage: turn.UserMessage,
		AIResponse:  turn.AIResponse,
		CreatedAt:   turn.At,
	}
	if err := tx.QueryRowContext(ctx, q, sessionID, turn.UserMessage, turn.AIResponse, turn.At).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

func (c *DatabaseClient) ListSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error) {
	const q = `
		SELECT s.id, s.session_title, s.created_at, s.updated_at, COUNT(m.id)
		FROM chat_sessions s
		LEFT JOIN chat_messages m ON m.session_id = s.id
		WHERE s.user_id = $1
		GROUP BY s.id
		ORDER BY s.updated_at DESC, s.id DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.SessionSummary, 0)
	for rows.Next() {
		var s models.SessionSummary
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// GetSession returns the session only if userID owns it.
func (c *DatabaseClient) GetSession(ctx context.Context, userID, sessionID int64) (*models.ChatSession, error) {
	const q = `
		SELECT id, user_id, session_title, created_at, updated_at
		FROM chat_sessions
		WHERE id = $1 AND user_id = $2
	`
	var s models.ChatSession
	err := c.db.QueryRowContext(ctx, q, sessionID, userID).Scan(
		&s.ID, &s.UserID, &s.SessionTitle, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}

func (c *DatabaseClient) ListMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, session_id, user_message, ai_response, created_at
		FROM chat_messages
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := make([]models.ChatMessage, 0)
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserMessage, &m.AIResponse, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (c *DatabaseClient) CountSessions(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT COUNT(*) FROM chat_sessions WHERE user_id = $1`
	return c.count(ctx, q, userID)
}

func (c *DatabaseClient) CountMessages(ctx context.Context, userID int64) (int, error) {
	const q = `
		SELECT COUNT(m.id)
		FROM chat_messages m
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE s.user_id = $1
	`
	return c.count(ctx, q, userID)
}

// CountActiveDays counts distinct UTC calendar days with at least one message.
func (c *DatabaseClient) CountActiveDays(ctx context.Context, userID int64, since time.Time) (int, error) {
	const q = `
		SELECT COUNT(DISTINCT (m.created_at AT TIME ZONE 'UTC')::date)
		FROM chat_messages m
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE s.user_id = $1 AND m.created_at >= $2
	`
	return c.count(ctx, q, userID, since)
}

func (c *DatabaseClient) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
