package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lunastream/internal/localstore"
	"github.com/desertthunder/lunastream/internal/services"
	"github.com/desertthunder/lunastream/internal/shared"
	"github.com/desertthunder/lunastream/internal/tasks"
	"golang.org/x/oauth2"
)

// freeAddr reserves a loopback port and releases it for the callback server.
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func tokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		if r.Form.Get("code_verifier") == "" {
			http.Error(w, "missing verifier", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600,"refresh_token":"rt","id_token":"header.payload.sig"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// callback follows the authorization URL the way a browser would after consent.
func callback(host string, mutate func(q url.Values)) func(string) error {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := url.Values{}
		q.Set("state", u.Query().Get("state"))
		q.Set("code", "auth-code")
		if mutate != nil {
			mutate(q)
		}
		resp, err := http.Get("http://" + host + "/callback?" + q.Encode())
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}

func TestDoOAuth(t *testing.T) {
	oauthConfig := func(t *testing.T, host string) *oauth2.Config {
		srv := tokenServer(t)
		return &oauth2.Config{
			ClientID:    "luna-cli",
			Endpoint:    oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
			RedirectURL: "http://" + host + "/callback",
			Scopes:      loginScopes(nil),
		}
	}

	t.Run("exchanges the code for an id token", func(t *testing.T) {
		host := freeAddr(t)
		var authURL string
		open := callback(host, nil)
		runner, output := newTestRunner(t, RunnerOpts{Open: func(u string) error {
			authURL = u
			return open(u)
		}})

		result, err := runner.doOAuth(context.Background(), oauthConfig(t, host), host, false, 5*time.Second)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.IDToken != "header.payload.sig" || result.Token.RefreshToken != "rt" {
			t.Errorf("unexpected result %+v", result)
		}

		q, _ := url.Parse(authURL)
		if q.Query().Get("code_challenge_method") != "S256" || q.Query().Get("code_challenge") == "" {
			t.Errorf("expected a PKCE challenge in %s", authURL)
		}
		if !strings.Contains(output.String(), "→ Opening browser to sign in...") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("rejects a mismatched state", func(t *testing.T) {
		host := freeAddr(t)
		runner, _ := newTestRunner(t, RunnerOpts{Open: callback(host, func(q url.Values) { q.Set("state", "forged") })})

		_, err := runner.doOAuth(context.Background(), oauthConfig(t, host), host, false, 5*time.Second)
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("reports a denied consent", func(t *testing.T) {
		host := freeAddr(t)
		runner, _ := newTestRunner(t, RunnerOpts{Open: callback(host, func(q url.Values) {
			q.Del("code")
			q.Set("error", "access_denied")
		})})

		_, err := runner.doOAuth(context.Background(), oauthConfig(t, host), host, false, 5*time.Second)
		if !errors.Is(err, shared.ErrAuthFailed) || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected access_denied failure, got %v", err)
		}
	})

	t.Run("times out", func(t *testing.T) {
		host := freeAddr(t)
		runner, output := newTestRunner(t, RunnerOpts{})

		_, err := runner.doOAuth(context.Background(), oauthConfig(t, host), host, true, 50*time.Millisecond)
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(output.String(), "Open this URL in your browser:") {
			t.Errorf("expected the login URL to be printed, got %q", output.String())
		}
	})

	t.Run("stops when the context ends", func(t *testing.T) {
		host := freeAddr(t)
		runner, _ := newTestRunner(t, RunnerOpts{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := runner.doOAuth(ctx, oauthConfig(t, host), host, true, time.Minute)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	health := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer health.Close()

	signedIn := func(t *testing.T) (*Runner, *bytes.Buffer, string) {
		dir := t.TempDir()
		config := shared.DefaultConfig()
		config.API.BaseURL = health.URL
		runner, output := newTestRunner(t, RunnerOpts{
			Config:    config,
			DeviceDir: dir,
			API:       services.NewAPIService(health.URL, health.Client()),
		})
		session := localstore.Session{IDToken: "id-token", Subject: "user-1", Email: "a@example.com", Expiry: time.Now().Add(time.Hour)}
		if err := runner.saveSession(session); err != nil {
			t.Fatal(err)
		}
		return runner, output, filepath.Join(dir, "token.json")
	}

	t.Run("saveSession switches to remote progress", func(t *testing.T) {
		runner, _, path := signedIn(t)

		if runner.progress.Source() != tasks.RemoteSource {
			t.Errorf("expected remote source, got %s", runner.progress.Source())
		}
		saved, err := localstore.LoadSession(path)
		if err != nil || saved == nil || saved.Subject != "user-1" {
			t.Errorf("expected saved session, got %+v, %v", saved, err)
		}
	})

	t.Run("status", func(t *testing.T) {
		runner, output, _ := signedIn(t)

		if err := runCLI(t, runner, "auth", "status"); err != nil {
			t.Fatal(err)
		}
		text := output.String()
		for _, want := range []string{"Session: ✓ a@example.com", "Progress source: remote", "API: ✓ " + health.URL + " (ok)"} {
			if !strings.Contains(text, want) {
				t.Errorf("expected %q in %q", want, text)
			}
		}
	})

	t.Run("logout", func(t *testing.T) {
		runner, _, path := signedIn(t)

		if err := runCLI(t, runner, "auth", "logout"); err != nil {
			t.Fatal(err)
		}
		if runner.session != nil || runner.api.HasToken() {
			t.Error("expected session to be cleared")
		}
		if runner.progress.Source() != tasks.LocalSource {
			t.Errorf("expected local source, got %s", runner.progress.Source())
		}
		if saved, _ := localstore.LoadSession(path); saved != nil {
			t.Error("expected token file to be removed")
		}

		if err := runCLI(t, runner, "auth", "logout"); err != nil {
			t.Errorf("expected logout to be idempotent, got %v", err)
		}
	})

	t.Run("status when signed out", func(t *testing.T) {
		runner, output := newTestRunner(t, RunnerOpts{})

		if err := runCLI(t, runner, "auth", "status"); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(output.String(), "Session: ✗ Not signed in") || !strings.Contains(output.String(), "API: not configured") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("login needs an identity provider", func(t *testing.T) {
		runner, _ := newTestRunner(t, RunnerOpts{})

		if err := runCLI(t, runner, "auth", "login"); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("login checks the redirect path", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.OIDC.Issuer = "https://id.example.com"
		config.Credentials.OIDC.ClientID = "luna-cli"
		config.Credentials.OIDC.RedirectURI = "http://127.0.0.1:8765/oauth"
		runner, _ := newTestRunner(t, RunnerOpts{Config: config})

		if err := runCLI(t, runner, "auth", "login"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoginScopes(t *testing.T) {
	if got := loginScopes(nil); !slices.Equal(got, []string{"openid", "email", "profile"}) {
		t.Errorf("unexpected default scopes %v", got)
	}
	if got := loginScopes([]string{"email"}); !slices.Equal(got, []string{"openid", "email"}) {
		t.Errorf("expected openid to be added, got %v", got)
	}
	if got := loginScopes([]string{"email", "openid"}); !slices.Equal(got, []string{"email", "openid"}) {
		t.Errorf("expected scopes unchanged, got %v", got)
	}
}
