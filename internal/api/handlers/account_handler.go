package handlers

import (
	"context"
	"net/http"

	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
	"github.com/markdave123-py/aspiro/internal/services"
)

type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, user *models.User, in services.ProfileInput) (*models.User, error)
}

type FeedbackSubmitter interface {
	Submit(ctx context.Context, userID int64, in services.FeedbackInput) (*models.Feedback, error)
}

type Subscriptions interface {
	Info(user *models.User) models.SubscriptionInfo
	Upgrade(ctx context.Context, user *models.User, plan string) (*models.PendingPayment, error)
}

// AccountHandler serves the signed-in user's own account: profile, feedback
// and subscription.
type AccountHandler struct {
	profiles      ProfileUpdater
	feedback      FeedbackSubmitter
	subscriptions Subscriptions
}

func NewAccountHandler(profiles ProfileUpdater, feedback FeedbackSubmitter, subscriptions Subscriptions) *AccountHandler {
	return &AccountHandler{profiles: profiles, feedback: feedback, subscriptions: subscriptions}
}

type feedbackRequest struct {
	Rating  int    `json:"rating"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type feedbackResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type profileRequest struct {
	FullName *string `json:"full_name"`
}

type upgradeRequest struct {
	Plan string `json:"plan"`
}

func (h *AccountHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req feedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	fb, err := h.feedback.Submit(r.Context(), user.ID, services.FeedbackInput{
		Rating:  req.Rating,
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, feedbackResponse{ID: fb.ID, Message: "feedback received"})
}

// UpdateProfile applies a partial update and returns the stored user.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	updated, err := h.profiles.UpdateProfile(r.Context(), user, services.ProfileInput{FullName: req.FullName})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, updated)
}

func (h *AccountHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	response.OK(w, h.subscriptions.Info(user))
}

func (h *AccountHandler) UpgradeSubscription(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req upgradeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	ack, err := h.subscriptions.Upgrade(r.Context(), user, req.Plan)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, ack)
}
