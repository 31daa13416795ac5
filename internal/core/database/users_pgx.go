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

const userColumns = `id, email, full_name, password_hash, is_active, created_at, last_login, subscription_plan, subscription_expires`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.IsActive,
		&u.CreatedAt, &u.LastLogin, &u.SubscriptionPlan, &u.SubscriptionExpires,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user. Email uniqueness is enforced by the users_email_key
// constraint, not a pre-check, so concurrent registrations cannot both win.
func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, errors.New("nil user")
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.SubscriptionPlan == "" {
		user.SubscriptionPlan = models.PlanFree
	}
	const q = `
		INSERT INTO users (email, full_name, password_hash, is_active, created_at, subscription_plan)
		VALUES ($1, $2, $3, TRUE, $4, $5)
		RETURNING id
	`
	err := c.db.QueryRowContext(ctx, q,
		user.Email, user.FullName, user.PasswordHash, user.CreatedAt, user.SubscriptionPlan,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, core.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.IsActive = true
	return user, nil
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(c.db.QueryRowContext(ctx, q, email))
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(c.db.QueryRowContext(ctx, q, id))
}

func (c *DatabaseClient) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	const q = `UPDATE users SET last_login = $2 WHERE email = $1`
	if _, err := c.db.ExecContext(ctx, q, email, at); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// UpdateProfile applies the non-nil fields of patch. Only full_name is mutable.
func (c *DatabaseClient) UpdateProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.User, error) {
	q := `
		UPDATE users SET full_name = COALESCE($2, full_name)
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(c.db.QueryRowContext(ctx, q, id, patch.FullName))
}

func (c *DatabaseClient) UpdateSubscription(ctx context.Context, id int64, plan string, expires *time.Time) error {
	const q = `UPDATE users SET subscription_plan = $2, subscription_expires = $3 WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, id, plan, expires)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
