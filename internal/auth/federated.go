package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

var (
	ErrInvalidAssertion      = errors.New("invalid assertion")
	ErrProviderMisconfigured = errors.New("federated provider client id is not configured")
)

// FederatedIdentity is what a verified provider assertion says about the user.
type FederatedIdentity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// AssertionVerifier verifies a raw provider credential. Implementations fail
// closed: any doubt about the assertion is ErrInvalidAssertion.
type AssertionVerifier interface {
	VerifyAssertion(ctx context.Context, raw string) (*FederatedIdentity, error)
}

// payloadValidator matches idtoken.Validator.Validate.
type payloadValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleVerifier checks Google ID tokens against Google's published keys,
// bound to one OAuth client id as the expected audience.
type GoogleVerifier struct {
	clientID  string
	validator payloadValidator
}

// NewGoogleVerifier builds a verifier. An empty clientID is accepted here and
// reported as ErrProviderMisconfigured on every call, so the rest of the
// service keeps running without Google sign-in.
func NewGoogleVerifier(ctx context.Context, clientID string, httpClient *http.Client) (*GoogleVerifier, error) {
	v := &GoogleVerifier{clientID: clientID}
	if clientID == "" {
		return v, nil
	}
	var opts []option.ClientOption
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	validator, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google id token validator: %w", err)
	}
	v.validator = validator
	return v, nil
}

func (v *GoogleVerifier) VerifyAssertion(ctx context.Context, raw string) (*FederatedIdentity, error) {
	if v.clientID == "" || v.validator == nil {
		return nil, ErrProviderMisconfigured
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidAssertion
	}
	payload, err := v.validator.Validate(ctx, raw, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAssertion, err)
	}
	return identityFromPayload(payload)
}

func identityFromPayload(p *idtoken.Payload) (*FederatedIdentity, error) {
	if p == nil || p.Subject == "" {
		return nil, ErrInvalidAssertion
	}
	id := &FederatedIdentity{
		Subject:       p.Subject,
		Email:         claimString(p.Claims, "email"),
		Name:          claimString(p.Claims, "name"),
		EmailVerified: claimBool(p.Claims, "email_verified"),
	}
	if id.Email == "" {
		return nil, fmt.Errorf("%w: no email claim", ErrInvalidAssertion)
	}
	return id, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

// Google has sent email_verified both as a JSON bool and as a string.
func claimBool(claims map[string]interface{}, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}
