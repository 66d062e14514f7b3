package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/Tiliavir/horas/internal/storage"
)

var requiredScopes = []string{
	"https://graph.microsoft.com/Calendars.Read",
	"offline_access",
}

func msEndpoint(directory, path string) string {
	return "https://login.microsoftonline.com/" + directory + "/oauth2/v2.0/" + path
}

// TokenPath returns where the Graph token of a horas tenant is kept.
func TokenPath(tenantID string) (string, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "auth", "msgraph_"+tenantID+".json"), nil
}

// Authenticator runs the OAuth2 device-code flow against Entra ID and keeps
// the resulting token on disk.
type Authenticator struct {
	Directory string // Entra ID tenant (directory) id
	ClientID  string
	TokenFile string
	Prompt    io.Writer // where sign-in instructions go; os.Stdout when nil
	Logger    *slog.Logger
}

func (a *Authenticator) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

func (a *Authenticator) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID: a.ClientID,
		Scopes:   requiredScopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: msEndpoint(a.Directory, "devicecode"),
			TokenURL:      msEndpoint(a.Directory, "token"),
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// loadToken returns nil, nil when no token has been saved yet.
func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.TokenFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", a.TokenFile, err)
	}
	return &tok, nil
}

func (a *Authenticator) saveToken(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.TokenFile), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := a.TokenFile + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, a.TokenFile); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// token returns a usable token, refreshing it or signing in as needed.
func (a *Authenticator) token(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	tok, err := a.loadToken()
	if err != nil {
		a.logger().Warn("ignoring saved token", "err", err)
		tok = nil
	}
	if tok != nil && tok.Valid() {
		return tok, nil
	}
	if tok != nil && tok.RefreshToken != "" {
		refreshed, err := cfg.TokenSource(ctx, tok).Token()
		if err == nil {
			if err := a.saveToken(refreshed); err != nil {
				a.logger().Warn("could not save refreshed token", "err", err)
			}
			return refreshed, nil
		}
		a.logger().Info("token refresh failed, signing in again", "err", err)
	}

	resp, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device auth request failed: %w", err)
	}
	out := a.Prompt
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To sign in, use a web browser to open the page:")
	fmt.Fprintf(out, "  %s\n", resp.VerificationURI)
	fmt.Fprintf(out, "Enter the code: %s\n", resp.UserCode)
	fmt.Fprintln(out)

	tok, err = cfg.DeviceAccessToken(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("device authentication failed: %w", err)
	}
	if err := a.saveToken(tok); err != nil {
		a.logger().Warn("could not save token", "err", err)
	}
	return tok, nil
}

// HTTPClient returns an HTTP client that authenticates as the signed-in
// user and persists every refreshed token.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	if a.Directory == "" || a.ClientID == "" {
		return nil, fmt.Errorf("msgraph: directory and client id are required")
	}
	cfg := a.config()
	tok, err := a.token(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, &savingTokenSource{ts: cfg.TokenSource(ctx, tok), save: a.saveToken, logger: a.logger()}), nil
}

// savingTokenSource wraps a TokenSource and persists refreshed tokens.
type savingTokenSource struct {
	ts     oauth2.TokenSource
	save   func(*oauth2.Token) error
	logger *slog.Logger
	last   string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.save(tok); err != nil {
			// The refreshed token still serves this process.
			s.logger.Warn("could not save refreshed token", "err", err)
		}
	}
	return tok, nil
}
