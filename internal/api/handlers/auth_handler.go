package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/markdave123-py/aspiro/internal/models"
	"github.com/markdave123-py/aspiro/internal/pkg/apperrors"
	"github.com/markdave123-py/aspiro/internal/pkg/response"
	"github.com/markdave123-py/aspiro/internal/services"
)

// AccountService is the slice of services.UserService the auth endpoints use.
type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	FederatedLogin(ctx context.Context, rawAssertion string) (*services.AuthResult, error)
}

type AuthHandler struct {
	accounts AccountService
}

func NewAuthHandler(accounts AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

type registerRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// googleLoginRequest accepts the Google Identity Services field name as well
// as the plain OAuth one.
type googleLoginRequest struct {
	Credential string `json:"credential"`
	IDToken    string `json:"id_token"`
}

type authResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	res, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, toAuthResponse(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	res, err := h.accounts.Login(r.Context(), services.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toAuthResponse(res))
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	assertion := strings.TrimSpace(req.Credential)
	if assertion == "" {
		assertion = strings.TrimSpace(req.IDToken)
	}
	if assertion == "" {
		response.Error(w, apperrors.Validation("credential is required"))
		return
	}

	res, err := h.accounts.FederatedLogin(r.Context(), assertion)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, toAuthResponse(res))
}

// Logout only acknowledges. Tokens stay valid until they expire; the client
// drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{"message": "logged out"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	response.OK(w, user)
}

func toAuthResponse(res *services.AuthResult) authResponse {
	return authResponse{
		AccessToken: res.Token.Value,
		TokenType:   "bearer",
		ExpiresAt:   res.Token.ExpiresAt,
		User:        res.User,
	}
}
