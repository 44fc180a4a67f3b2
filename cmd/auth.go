package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/desertthunder/lunastream/internal/localstore"
	"github.com/desertthunder/lunastream/internal/server"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const loginTimeout = 2 * time.Minute

// AuthLogin signs in with the identity provider using the authorization code flow with PKCE.
//
// The ID token is saved as the session and used as the API bearer token, so continue-watching syncs remotely.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oidcConfig := r.config.Credentials.OIDC
	if oidcConfig.Issuer == "" || oidcConfig.ClientID == "" {
		return fmt.Errorf("%w: credentials.oidc issuer and client_id are required", shared.ErrMissingConfig)
	}
	redirect, err := url.Parse(oidcConfig.RedirectURI)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, oidcConfig.RedirectURI)
	}
	if redirect.Path != "/callback" {
		return fmt.Errorf("%w: redirect_uri path must be /callback", shared.ErrInvalidConfig)
	}

	provider, err := oidc.NewProvider(ctx, oidcConfig.Issuer)
	if err != nil {
		return fmt.Errorf("%w: failed to discover identity provider: %v", shared.ErrServiceUnavailable, err)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     oidcConfig.ClientID,
		ClientSecret: oidcConfig.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  oidcConfig.RedirectURI,
		Scopes:       loginScopes(oidcConfig.Scopes),
	}

	result, err := r.doOAuth(ctx, oauthConfig, redirect.Host, cmd.Bool("no-browser"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	idToken, err := provider.Verifier(&oidc.Config{ClientID: oidcConfig.ClientID}).Verify(ctx, result.IDToken)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return fmt.Errorf("%w: failed to decode claims: %v", shared.ErrInvalidCredentials, err)
	}

	session := localstore.Session{
		IDToken:      result.IDToken,
		RefreshToken: result.Token.RefreshToken,
		Expiry:       idToken.Expiry,
		Subject:      idToken.Subject,
		Email:        claims.Email,
	}
	if err := r.saveSession(session); err != nil {
		return err
	}

	r.writePlain("✓ Signed in as %s\n", sessionName(session))
	r.writePlain("Continue-watching now syncs with %s\n", r.config.API.BaseURL)
	return nil
}

// saveSession persists session and switches progress to the remote store.
func (r *Runner) saveSession(session localstore.Session) error {
	path, err := r.config.ResolveTokenPath()
	if err != nil {
		return err
	}
	if err := localstore.SaveSession(path, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	r.logger.Info("session saved", "path", path, "subject", session.Subject)

	r.session = &session
	if r.api != nil {
		r.api = r.api.WithToken(session.IDToken)
		r.progress.SignIn(r.api.Progress())
	}
	return nil
}

// doOAuth serves the callback on host, sends the user to the provider and waits for the result.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, host string, noBrowser bool, timeout time.Duration) (*server.OAuthResult, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	authURL := config.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	oauthHandler := server.NewOAuthHandler(config, state, verifier)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the login callback on %s: %w", host, err)
	}
	httpServer := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("waiting for login callback at %v", host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	if noBrowser {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser to sign in...\n")
		if err := r.open(authURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlainln("⚠ Could not open browser automatically.")
			r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	if timeout <= 0 {
		timeout = loginTimeout
	}
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil || result.IDToken == "" {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return &result, nil
}

// AuthLogout removes the saved session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	path, err := r.config.ResolveTokenPath()
	if err != nil {
		return err
	}
	if err := localstore.ClearSession(path); err != nil {
		return err
	}

	r.session = nil
	r.progress.SignOut()
	if r.api != nil {
		r.api = r.api.WithToken("")
	}
	r.logger.Info("session cleared", "path", path)
	return r.writePlain("✓ Signed out; continue-watching now uses this device\n")
}

// AuthStatus reports the saved session and checks that the API is reachable.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("LunaStream Status")

	path, err := r.config.ResolveTokenPath()
	if err != nil {
		return err
	}
	session, err := localstore.LoadSession(path)
	switch {
	case err != nil:
		r.writePlain("Session: ✗ unreadable (%v)\n", err)
	case session == nil:
		r.writePlain("Session: ✗ Not signed in\n")
	case session.Expired(r.now()):
		r.writePlain("Session: ⚠ Expired %s (run 'luna auth login')\n", session.Expiry.Local().Format(time.DateTime))
	default:
		r.writePlain("Session: ✓ %s (expires %s)\n", sessionName(*session), session.Expiry.Local().Format(time.DateTime))
	}
	r.writePlain("Progress source: %s\n", r.progress.Source())

	if r.api == nil {
		return r.writePlain("API: not configured\n")
	}

	status, err := r.api.Health(ctx)
	if err != nil {
		r.logger.Debug("health check failed", "error", err)
		return r.writePlain("API: ✗ %s unreachable\n", r.config.API.BaseURL)
	}
	return r.writePlain("API: ✓ %s (%s)\n", r.config.API.BaseURL, status)
}

func loginScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return []string{oidc.ScopeOpenID, "email", "profile"}
	}
	if !slices.Contains(scopes, oidc.ScopeOpenID) {
		return append([]string{oidc.ScopeOpenID}, scopes...)
	}
	return scopes
}

func sessionName(s localstore.Session) string {
	if s.Email != "" {
		return s.Email
	}
	return s.Subject
}
