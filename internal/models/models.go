package models

import (
	"time"
)

const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// User represents an account, created by registration or first federated login.
type User struct {
	ID                  int64      `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	FullName            string     `db:"full_name" json:"full_name"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	LastLogin           *time.Time `db:"last_login" json:"last_login,omitempty"`
	SubscriptionPlan    string     `db:"subscription_plan" json:"subscription_plan"`
	SubscriptionExpires *time.Time `db:"subscription_expires" json:"subscription_expires,omitempty"`
}

// ChatSession groups consecutive turns for one user.
type ChatSession struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	SessionTitle string    `db:"session_title" json:"session_title"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ChatMessage is one question/answer turn. Immutable once written.
type ChatMessage struct {
	ID          int64     `db:"id" json:"id"`
	SessionID   int64     `db:"session_id" json:"session_id"`
	UserMessage string    `db:"user_message" json:"user_message"`
	AIResponse  string    `db:"ai_response" json:"ai_response"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Feedback is a write-once rating submitted by a user.
type Feedback struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Rating    int       `db:"rating" json:"rating"`
	Type      string    `db:"type" json:"type"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SessionSummary is a history row; MessageCount is aggregated at read time.
type SessionSummary struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// UserStats are derived usage aggregates. TotalTimeSeconds is an estimate
// (a fixed amount per message), not measured wall-clock usage.
type UserStats struct {
	TotalSessions    int   `json:"total_chats"`
	TotalMessages    int   `json:"total_messages"`
	TotalTimeSeconds int64 `json:"total_time"`
	ActiveDays30     int   `json:"streak_days"`
}

// ProfilePatch lists the mutable profile fields. Nil means unchanged.
type ProfilePatch struct {
	FullName *string `json:"full_name"`
}

// FeatureFlags describe what a subscription plan unlocks.
type FeatureFlags struct {
	DailyMessageLimit int  `json:"daily_message_limit"`
	FileUploads       bool `json:"file_uploads"`
	VoiceInput        bool `json:"voice_input"`
	PriorityResponses bool `json:"priority_responses"`
}

type SubscriptionInfo struct {
	Plan     string       `json:"plan"`
	Expires  *time.Time   `json:"expires,omitempty"`
	Features FeatureFlags `json:"features"`
}

// PendingPayment acknowledges an upgrade request handed to the payment gateway.
type PendingPayment struct {
	Status    string `json:"status"`
	Plan      string `json:"plan"`
	Reference string `json:"reference"`
	Message   string `json:"message"`
}

// Turn is one chat exchange waiting to be written to history.
type Turn struct {
	UserID      int64
	UserMessage string
	AIResponse  string
	At          time.Time
}
