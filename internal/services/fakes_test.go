package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/markdave123-py/aspiro/internal/auth"
	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/models"
)

// --- user store ---

type fakeUserStore struct {
	mu      sync.Mutex
	nextID  int64
	byEmail map[string]*models.User
	touched map[string]time.Time

	getErr   error
	touchErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byEmail: map[string]*models.User{}, touched: map[string]time.Time{}}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[u.Email]; ok {
		return nil, core.ErrDuplicateEmail
	}
	f.nextID++
	cp := *u
	cp.ID = f.nextID
	cp.IsActive = true
	f.byEmail[u.Email] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserStore) TouchLastLogin(ctx context.Context, email string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touchErr != nil {
		return f.touchErr
	}
	if u, ok := f.byEmail[email]; ok {
		u.LastLogin = &at
		f.touched[email] = at
	}
	return nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			if patch.FullName != nil {
				u.FullName = *patch.FullName
			}
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserStore) UpdateSubscription(ctx context.Context, id int64, plan string, expires *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			u.SubscriptionPlan = plan
			u.SubscriptionExpires = expires
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeUserStore) setActive(email string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmail[email].IsActive = active
}

// --- history store ---

type fakeHistoryStore struct {
	mu       sync.Mutex
	sessions []models.ChatSession
	messages []models.ChatMessage

	countErr error
}

func (f *fakeHistoryStore) AppendTurn(ctx context.Context, turn models.Turn, idle time.Duration, title string) (*models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *models.ChatSession
	for i := range f.sessions {
		s := &f.sessions[i]
		if s.UserID != turn.UserID {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil || (idle > 0 && turn.At.Sub(latest.UpdatedAt) > idle) {
		f.sessions = append(f.sessions, models.ChatSession{
			ID: int64(len(f.sessions) + 1), UserID: turn.UserID, SessionTitle: title,
			CreatedAt: turn.At, UpdatedAt: turn.At,
		})
		latest = &f.sessions[len(f.sessions)-1]
	}

	msg := models.ChatMessage{
		ID: int64(len(f.messages) + 1), SessionID: latest.ID,
		UserMessage: turn.UserMessage, AIResponse: turn.AIResponse, CreatedAt: turn.At,
	}
	f.messages = append(f.messages, msg)
	if turn.At.After(latest.UpdatedAt) {
		latest.UpdatedAt = turn.At
	}
	return &msg, nil
}

func (f *fakeHistoryStore) ListSessions(ctx context.Context, userID int64, limit int) ([]models.SessionSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SessionSummary, 0)
	for _, s := range f.sessions {
		if s.UserID != userID {
			continue
		}
		n := 0
		for _, m := range f.messages {
			if m.SessionID == s.ID {
				n++
			}
		}
		out = append(out, models.SessionSummary{
			ID: s.ID, Title: s.SessionTitle, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt, MessageCount: n,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeHistoryStore) GetSession(ctx context.Context, userID, sessionID int64) (*models.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.ID == sessionID && s.UserID == userID {
			cp := s
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeHistoryStore) ListMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatMessage, 0)
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeHistoryStore) CountSessions(ctx context.Context, userID int64) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sessions {
		if s.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeHistoryStore) userMessages(userID int64) []models.ChatMessage {
	owned := map[int64]bool{}
	for _, s := range f.sessions {
		if s.UserID == userID {
			owned[s.ID] = true
		}
	}
	var out []models.ChatMessage
	for _, m := range f.messages {
		if owned[m.SessionID] {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeHistoryStore) CountMessages(ctx context.Context, userID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.userMessages(userID)), nil
}

func (f *fakeHistoryStore) CountActiveDays(ctx context.Context, userID int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	days := map[string]bool{}
	for _, m := range f.userMessages(userID) {
		if !m.CreatedAt.Before(since) {
			days[m.CreatedAt.UTC().Format("2006-01-02")] = true
		}
	}
	return len(days), nil
}

// --- feedback store ---

type fakeFeedbackStore struct {
	mu   sync.Mutex
	rows []models.Feedback
	err  error
}

func (f *fakeFeedbackStore) CreateFeedback(ctx context.Context, fb *models.Feedback) (*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	fb.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *fb)
	return fb, nil
}

// --- federated verifier ---

type fakeVerifier struct {
	id  *auth.FederatedIdentity
	err error
}

func (f *fakeVerifier) VerifyAssertion(ctx context.Context, raw string) (*auth.FederatedIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.id, nil
}

// --- llm ---

type fakeLLM struct {
	answer string
	err    error
	system string
	prompt string
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.system, f.prompt = systemPrompt, userPrompt
	return f.answer, f.err
}

// --- recorder ---

type fakeRecorder struct {
	mu    sync.Mutex
	turns []models.Turn
}

func (f *fakeRecorder) Start(context.Context) {}
func (f *fakeRecorder) Close()                {}
func (f *fakeRecorder) Record(t models.Turn) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, t)
	return true
}

var errBoom = errors.New("boom")
