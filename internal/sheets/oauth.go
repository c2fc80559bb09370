package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// DefaultCallbackAddr is where the interactive flow listens for Google's redirect.
const DefaultCallbackAddr = "localhost:8080"

const authTimeout = 5 * time.Minute

// OAuthOptions controls the interactive authorization flow.
type OAuthOptions struct {
	ClientID     string
	ClientSecret string
	TokenFile    string
	CallbackAddr string
}

func oauthConfigFor(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// Authorize runs the browser consent flow and returns a token with a
// refresh token suitable for unattended report runs.
func Authorize(ctx context.Context, opts OAuthOptions) (*oauth2.Token, error) {
	addr := opts.CallbackAddr
	if addr == "" {
		addr = DefaultCallbackAddr
	}
	cfg := oauthConfigFor(opts.ClientID, opts.ClientSecret, "http://"+addr+"/callback")
	state := uuid.NewString()

	codes := make(chan string, 1)
	errs := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errs <- errors.New("oauth callback state mismatch")
		case q.Get("code") == "":
			http.Error(w, "no authorization code", http.StatusBadRequest)
			errs <- errors.New("no authorization code received")
		default:
			_, _ = fmt.Fprint(w, "<html><body><h1>MusiqHub is authorized</h1>"+
				"<p>You can close this window and return to the terminal.</p></body></html>")
			codes <- q.Get("code")
		}
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		if err := server.Shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Error shutting down callback server", "error", err)
		}
	}()

	slog.Info("Google Sheets authorization required")
	slog.Info("Open this URL in a browser", "url",
		cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	var code string
	select {
	case code = <-codes:
	case err := <-errs:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("no authorization received within %s", authTimeout)
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if opts.TokenFile != "" {
		if err := saveToken(opts.TokenFile, token); err != nil {
			slog.Warn("Failed to save token", "error", err, "file", opts.TokenFile)
		} else {
			slog.Info("Token saved", "file", opts.TokenFile)
		}
	}

	return token, nil
}

// LoadToken reads a token previously written by Authorize.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", tokenFile, err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// GetOrCreateToken reuses a saved token when one exists, refreshing it if
// it has expired, and falls back to the interactive flow otherwise.
func GetOrCreateToken(ctx context.Context, opts OAuthOptions) (*oauth2.Token, error) {
	if opts.TokenFile == "" {
		return Authorize(ctx, opts)
	}

	token, err := LoadToken(opts.TokenFile)
	if err != nil {
		slog.Info("No saved token, starting authorization", "file", opts.TokenFile)
		return Authorize(ctx, opts)
	}
	if token.Valid() {
		return token, nil
	}

	fresh, err := oauthConfigFor(opts.ClientID, opts.ClientSecret, "").TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := saveToken(opts.TokenFile, fresh); err != nil {
		slog.Warn("Failed to save refreshed token", "error", err)
	}
	return fresh, nil
}
