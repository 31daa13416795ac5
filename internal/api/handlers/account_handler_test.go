package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
	"github.com/markdave123-py/aspiro/internal/services"
)

func newAccountHandler(m *mockAccount) *AccountHandler {
	return NewAccountHandler(m, m, m)
}

func TestSubmitFeedback(t *testing.T) {
	m := &mockAccount{}
	m.On("Submit", mock.Anything, int64(5), services.FeedbackInput{Rating: 4, Type: "bug", Message: "typo"}).
		Return(&models.Feedback{ID: 31}, nil)

	rec := httptest.NewRecorder()
	newAccountHandler(m).SubmitFeedback(rec, newRequest(t, http.MethodPost, "/submit-feedback",
		map[string]any{"rating": 4, "type": "bug", "message": "typo"}, &models.User{ID: 5}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, float64(31), decodeBody[map[string]any](t, rec)["id"])
	m.AssertExpectations(t)
}

func TestSubmitFeedback_Invalid(t *testing.T) {
	m := &mockAccount{}
	m.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, apperrors.Validation("rating must be at most 5"))

	rec := httptest.NewRecorder()
	newAccountHandler(m).SubmitFeedback(rec, newRequest(t, http.MethodPost, "/submit-feedback",
		map[string]any{"rating": 9, "message": "x"}, &models.User{ID: 5}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile(t *testing.T) {
	user := &models.User{ID: 5, FullName: "Old"}
	name := "New Name"
	m := &mockAccount{}
	m.On("UpdateProfile", mock.Anything, user, services.ProfileInput{FullName: &name}).
		Return(&models.User{ID: 5, FullName: name}, nil)

	rec := httptest.NewRecorder()
	newAccountHandler(m).UpdateProfile(rec, newRequest(t, http.MethodPut, "/update-profile",
		map[string]string{"full_name": name}, user))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, name, decodeBody[models.User](t, rec).FullName)
}

func TestUpdateProfile_OmittedFieldIsNil(t *testing.T) {
	user := &models.User{ID: 5}
	m := &mockAccount{}
	m.On("UpdateProfile", mock.Anything, user, services.ProfileInput{}).Return(user, nil)

	rec := httptest.NewRecorder()
	newAccountHandler(m).UpdateProfile(rec, newRequest(t, http.MethodPut, "/update-profile", map[string]string{}, user))

	assert.Equal(t, http.StatusOK, rec.Code)
	m.AssertExpectations(t)
}

func TestSubscription(t *testing.T) {
	user := &models.User{ID: 5, SubscriptionPlan: models.PlanFree}
	m := &mockAccount{}
	m.On("Info", user).Return(models.SubscriptionInfo{
		Plan:     models.PlanFree,
		Features: models.FeatureFlags{DailyMessageLimit: 20},
	})

	rec := httptest.NewRecorder()
	newAccountHandler(m).Subscription(rec, newRequest(t, http.MethodGet, "/subscription", nil, user))

	assert.Equal(t, http.StatusOK, rec.Code)
	info := decodeBody[models.SubscriptionInfo](t, rec)
	assert.Equal(t, models.PlanFree, info.Plan)
	assert.Equal(t, 20, info.Features.DailyMessageLimit)
}

func TestUpgradeSubscription(t *testing.T) {
	user := &models.User{ID: 5}
	m := &mockAccount{}
	m.On("Upgrade", mock.Anything, user, "premium").
		Return(&models.PendingPayment{Status: "pending", Plan: "premium", Reference: "pay_1"}, nil)
	m.On("Upgrade", mock.Anything, user, "gold").Return(nil, apperrors.Validation("plan must be one of: premium"))

	h := newAccountHandler(m)

	rec := httptest.NewRecorder()
	h.UpgradeSubscription(rec, newRequest(t, http.MethodPost, "/upgrade-subscription", map[string]string{"plan": "premium"}, user))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", decodeBody[models.PendingPayment](t, rec).Status)

	rec = httptest.NewRecorder()
	h.UpgradeSubscription(rec, newRequest(t, http.MethodPost, "/upgrade-subscription", map[string]string{"plan": "gold"}, user))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
