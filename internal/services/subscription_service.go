package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

const (
	FreeDailyMessageLimit = 20
	premiumPeriod         = 30 * 24 * time.Hour
)

// PaymentGateway starts a payment for a plan and returns its reference.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, userID int64, plan string) (string, error)
}

// StubGateway accepts every request without contacting a payment provider.
type StubGateway struct{}

func (StubGateway) CreatePayment(context.Context, int64, string) (string, error) {
	return "pay_" + uuid.NewString(), nil
}

type SubscriptionService struct {
	users       core.UserStore
	gateway     PaymentGateway
	autoConfirm bool
	logger      logging.Logger
	now         func() time.Time
}

// NewSubscriptionService builds the service. With autoConfirm the plan is
// granted as soon as the gateway accepts the payment.
func NewSubscriptionService(users core.UserStore, gateway PaymentGateway, autoConfirm bool, logger logging.Logger) *SubscriptionService {
	return &SubscriptionService{
		users:       users,
		gateway:     gateway,
		autoConfirm: autoConfirm,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Info reports the effective plan. A premium plan past its expiry is free.
func (s *SubscriptionService) Info(user *models.User) models.SubscriptionInfo {
	if s.isPremium(user) {
		return models.SubscriptionInfo{
			Plan:     models.PlanPremium,
			Expires:  user.SubscriptionExpires,
			Features: featuresFor(models.PlanPremium),
		}
	}
	return models.SubscriptionInfo{
		Plan:     models.PlanFree,
		Features: featuresFor(models.PlanFree),
	}
}

func (s *SubscriptionService) Upgrade(ctx context.Context, user *models.User, plan string) (*models.PendingPayment, error) {
	if plan != models.PlanPremium {
		return nil, apperrors.Validation("plan must be one of: premium")
	}
	if s.isPremium(user) {
		return nil, apperrors.Conflict("subscription already active")
	}

	ref, err := s.gateway.CreatePayment(ctx, user.ID, plan)
	if err != nil {
		return nil, apperrors.Upstream("payment gateway error", err)
	}
	s.logger.Info(ctx, "payment created", "user_id", user.ID, "plan", plan, "reference", ref)

	ack := &models.PendingPayment{
		Status:    "pending",
		Plan:      plan,
		Reference: ref,
		Message:   "payment initiated; the plan activates once payment is confirmed",
	}
	if !s.autoConfirm {
		return ack, nil
	}

	expires := s.now().Add(premiumPeriod)
	if err := s.users.UpdateSubscription(ctx, user.ID, plan, &expires); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Persistence(err)
	}
	user.SubscriptionPlan = plan
	user.SubscriptionExpires = &expires

	ack.Status = "active"
	ack.Message = "subscription activated"
	return ack, nil
}

func (s *SubscriptionService) isPremium(user *models.User) bool {
	if user.SubscriptionPlan != models.PlanPremium {
		return false
	}
	return user.SubscriptionExpires == nil || user.SubscriptionExpires.After(s.now())
}

func featuresFor(plan string) models.FeatureFlags {
	if plan == models.PlanPremium {
		// Zero limit means unlimited.
		return models.FeatureFlags{
			DailyMessageLimit: 0,
			FileUploads:       true,
			VoiceInput:        true,
			PriorityResponses: true,
		}
	}
	return models.FeatureFlags{DailyMessageLimit: FreeDailyMessageLimit}
}
