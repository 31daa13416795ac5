package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/markdave123-py/aspiro/internal/auth"
	"github.com/markdave123-py/aspiro/internal/core"
	"github.com/markdave123-py/aspiro/internal/logging"
	"github.com/markdave123-py/aspiro/internal/metrics"
	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
)

// AuthResult is returned by every successful sign-in path.
type AuthResult struct {
	Token auth.Token
	User  *models.User
}

type RegisterInput struct {
	Email    string `validate:"required,email,max=255"`
	FullName string `validate:"required,max=100"`
	Password string `validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type ProfileInput struct {
	FullName *string `validate:"omitempty,min=1,max=100"`
}

// UserService owns registration, sign-in and bearer-token resolution.
type UserService struct {
	users    core.UserStore
	hasher   *auth.Hasher
	tokens   *auth.TokenService
	verifier auth.AssertionVerifier
	metrics  *metrics.Metrics
	logger   logging.Logger
	now      func() time.Time
}

func NewUserService(
	users core.UserStore,
	hasher *auth.Hasher,
	tokens *auth.TokenService,
	verifier auth.AssertionVerifier,
	m *metrics.Metrics,
	logger logging.Logger,
) *UserService {
	return &UserService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		verifier: verifier,
		metrics:  m,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a password account. Input is validated before any store
// call; the email unique constraint decides races between duplicate sign-ups.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperrors.Validation("password must be at most 72 bytes")
		}
		return nil, apperrors.Internal(err)
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Email:            in.Email,
		FullName:         in.FullName,
		PasswordHash:     hash,
		CreatedAt:        s.now(),
		SubscriptionPlan: models.PlanFree,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("email already registered")
		}
		return nil, apperrors.Persistence(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return s.issue(user)
}

// Login never tells the caller whether the email exists. Unknown emails still
// pay for one bcrypt comparison.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, core.ErrNotFound):
		if derr := s.hasher.VerifyDummy(ctx, in.Password); derr != nil {
			return nil, apperrors.Internal(derr)
		}
		return nil, s.reject(metrics.ReasonBadCredentials, apperrors.Unauthorized("invalid credentials"))
	case err != nil:
		return nil, apperrors.Persistence(err)
	}

	ok, err := s.hasher.Verify(ctx, user.PasswordHash, in.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !ok {
		return nil, s.reject(metrics.ReasonBadCredentials, apperrors.Unauthorized("invalid credentials"))
	}
	if !user.IsActive {
		return nil, s.reject(metrics.ReasonInactive, apperrors.Forbidden("inactive account"))
	}

	s.touch(ctx, user)
	return s.issue(user)
}

// FederatedLogin signs in with a provider assertion, creating the account on
// first use. Only verified provider emails are trusted.
func (s *UserService) FederatedLogin(ctx context.Context, rawAssertion string) (*AuthResult, error) {
	id, err := s.verifier.VerifyAssertion(ctx, rawAssertion)
	switch {
	case errors.Is(err, auth.ErrProviderMisconfigured):
		s.logger.Error(ctx, "federated login without provider client id")
		return nil, apperrors.Configuration("misconfigured provider")
	case err != nil:
		return nil, s.reject(metrics.ReasonFederated, apperrors.Unauthorized("invalid assertion").Wrap(err))
	}
	if !id.EmailVerified {
		return nil, s.reject(metrics.ReasonFederated, apperrors.Unauthorized("unverified email"))
	}

	email := normalizeEmail(id.Email)
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		user, err = s.createFederated(ctx, email, id)
	}
	if err != nil {
		return nil, apperrors.Persistence(err)
	}
	if !user.IsActive {
		return nil, s.reject(metrics.ReasonInactive, apperrors.Forbidden("inactive account"))
	}

	s.touch(ctx, user)
	return s.issue(user)
}

// createFederated stores a provider account. The password hash is derived
// from the provider subject, so the account cannot be opened with a password
// unless the subject leaks.
func (s *UserService) createFederated(ctx context.Context, email string, id *auth.FederatedIdentity) (*models.User, error) {
	hash, err := s.hasher.Hash(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(id.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	if len(name) > 100 {
		name = name[:100]
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		Email:            email,
		FullName:         name,
		PasswordHash:     hash,
		CreatedAt:        s.now(),
		SubscriptionPlan: models.PlanFree,
	})
	if errors.Is(err, core.ErrDuplicateEmail) {
		// Lost a race with a concurrent first login for the same email.
		return s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "federated user created", "user_id", user.ID)
	return user, nil
}

// Authenticate resolves a bearer token to an active user and records the
// access as the user's last login.
func (s *UserService) Authenticate(ctx context.Context, rawToken string) (*models.User, error) {
	claims, err := s.tokens.Validate(rawToken)
	if err != nil {
		return nil, s.reject(metrics.ReasonInvalidToken, apperrors.Unauthorized("invalid or expired token").Wrap(err))
	}

	user, err := s.users.GetUserByEmail(ctx, claims.Subject)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return nil, s.reject(metrics.ReasonInvalidToken, apperrors.Unauthorized("invalid or expired token"))
	case err != nil:
		return nil, apperrors.Persistence(err)
	}
	if !user.IsActive {
		return nil, s.reject(metrics.ReasonInactive, apperrors.Unauthorized("invalid or expired token"))
	}

	s.touch(ctx, user)
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	if in.FullName != nil {
		trimmed := strings.TrimSpace(*in.FullName)
		in.FullName = &trimmed
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	updated, err := s.users.UpdateProfile(ctx, user.ID, models.ProfilePatch{FullName: in.FullName})
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Persistence(err)
	}
	return updated, nil
}

// touch records the sign-in time. A failed write is logged and never blocks
// authentication; LastLogin is only set once the write succeeded.
func (s *UserService) touch(ctx context.Context, user *models.User) {
	at := s.now()
	if err := s.users.TouchLastLogin(ctx, user.Email, at); err != nil {
		s.logger.Warn(ctx, "touch last login failed", "user_id", user.ID, "err", err)
		return
	}
	user.LastLogin = &at
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	tok, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &AuthResult{Token: tok, User: user}, nil
}

func (s *UserService) reject(reason string, err *apperrors.Error) *apperrors.Error {
	s.metrics.AuthFailures.WithLabelValues(reason).Inc()
	return err
}
