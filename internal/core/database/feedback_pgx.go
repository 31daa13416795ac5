package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/aspiro/internal/models"
)

func (c *DatabaseClient) CreateFeedback(ctx context.Context, fb *models.Feedback) (*models.Feedback, error) {
	if fb == nil {
		return nil, errors.New("nil feedback")
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	const q = `
		INSERT INTO feedback (user_id, rating, type, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := c.db.QueryRowContext(ctx, q, fb.UserID, fb.Rating, fb.Type, fb.Message, fb.CreatedAt).Scan(&fb.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return fb, nil
}
