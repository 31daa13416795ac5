package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	middleware "github.com/markdave123-py/aspiro/internal/api/middlewares"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
	"github.com/markdave123-py/aspiro/internal/services"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error) {
	args := m.Called(ctx, in)
	return authResult(args.Get(0)), args.Error(1)
}

func (m *mockAccounts) Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error) {
	args := m.Called(ctx, in)
	return authResult(args.Get(0)), args.Error(1)
}

func (m *mockAccounts) FederatedLogin(ctx context.Context, raw string) (*services.AuthResult, error) {
	args := m.Called(ctx, raw)
	return authResult(args.Get(0)), args.Error(1)
}

func authResult(v any) *services.AuthResult {
	if v == nil {
		return nil
	}
	return v.(*services.AuthResult)
}

type mockReplier struct{ mock.Mock }

func (m *mockReplier) Reply(ctx context.Context, user *models.User, in services.ChatInput) (string, error) {
	args := m.Called(ctx, user, in)
	return args.String(0), args.Error(1)
}

type mockHistory struct{ mock.Mock }

func (m *mockHistory) ListSessions(ctx context.Context, userID int64) ([]models.SessionSummary, error) {
	args := m.Called(ctx, userID)
	out, _ := args.Get(0).([]models.SessionSummary)
	return out, args.Error(1)
}

func (m *mockHistory) SessionMessages(ctx context.Context, userID, sessionID int64) (*models.ChatSession, []models.ChatMessage, error) {
	args := m.Called(ctx, userID, sessionID)
	session, _ := args.Get(0).(*models.ChatSession)
	msgs, _ := args.Get(1).([]models.ChatMessage)
	return session, msgs, args.Error(2)
}

func (m *mockHistory) UserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	stats, _ := args.Get(0).(*models.UserStats)
	return stats, args.Error(1)
}

type mockAccount struct{ mock.Mock }

func (m *mockAccount) UpdateProfile(ctx context.Context, user *models.User, in services.ProfileInput) (*models.User, error) {
	args := m.Called(ctx, user, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAccount) Submit(ctx context.Context, userID int64, in services.FeedbackInput) (*models.Feedback, error) {
	args := m.Called(ctx, userID, in)
	fb, _ := args.Get(0).(*models.Feedback)
	return fb, args.Error(1)
}

func (m *mockAccount) Info(user *models.User) models.SubscriptionInfo {
	return m.Called(user).Get(0).(models.SubscriptionInfo)
}

func (m *mockAccount) Upgrade(ctx context.Context, user *models.User, plan string) (*models.PendingPayment, error) {
	args := m.Called(ctx, user, plan)
	ack, _ := args.Get(0).(*models.PendingPayment)
	return ack, args.Error(1)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// newRequest builds a request with a JSON body and, when user is set, the
// context the gate would have produced.
func newRequest(t *testing.T, method, target string, body any, user *models.User) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(middleware.WithUser(req.Context(), user))
	}
	return req
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[response.ErrorBody](t, rec).Error.Code
}
