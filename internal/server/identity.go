package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/desertthunder/lunastream/internal/models"
	"github.com/desertthunder/lunastream/internal/shared"
)

// IdentityResolver turns a bearer token into a verified identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (*models.Identity, error)
}

// OIDCIdentity verifies OIDC ID tokens issued for one client.
type OIDCIdentity struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCIdentity discovers the issuer's keys and builds a verifier for clientID.
func NewOIDCIdentity(ctx context.Context, issuer, clientID string) (*OIDCIdentity, error) {
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("%w: oidc issuer and client_id are required", shared.ErrMissingConfig)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover oidc provider: %w", err)
	}
	return NewOIDCIdentityFromVerifier(provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

// NewOIDCIdentityFromVerifier wraps an existing verifier.
func NewOIDCIdentityFromVerifier(verifier *oidc.IDTokenVerifier) *OIDCIdentity {
	return &OIDCIdentity{verifier: verifier}
}

// Resolve verifies the token signature, issuer, audience and expiry.
func (o *OIDCIdentity) Resolve(ctx context.Context, raw string) (*models.Identity, error) {
	token, err := o.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: failed to decode claims: %v", shared.ErrNotAuthenticated, err)
	}

	return &models.Identity{Subject: token.Subject, Email: claims.Email, Name: claims.Name}, nil
}

type contextKey int

const userKey contextKey = iota

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil for guests.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, else "unknown".
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}
