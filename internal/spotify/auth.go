package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

var authLogger = log.With().Str("component", "spotify-auth").Logger()

// Spotify accounts-service endpoints for the authorization-code flow.
var endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// scopeReadPlayback is the only scope the overlay needs.
const scopeReadPlayback = "user-read-playback-state"

// Credentials identifies this application to the accounts service. As a
// public client using PKCE there is no client secret.
type Credentials struct {
	ClientID    string
	RedirectURI string
}

// CredentialsFromEnv reads credentials from the environment
// (SPOTIFY_CLIENT_ID required, SPOTIFY_REDIRECT_URI optional).
func CredentialsFromEnv(defaultRedirectURI string) (Credentials, error) {
	clientID := os.Getenv("SPOTIFY_CLIENT_ID")
	if clientID == "" {
		return Credentials{}, errors.New("SPOTIFY_CLIENT_ID is not set")
	}

	redirectURI := os.Getenv("SPOTIFY_REDIRECT_URI")
	if redirectURI == "" {
		redirectURI = defaultRedirectURI
	}

	return Credentials{ClientID: clientID, RedirectURI: redirectURI}, nil
}

// Authenticate returns an HTTP client whose requests carry a valid
// access token. A cached token at tokenPath is reused and refreshed;
// otherwise the interactive PKCE flow runs once: the authorization URL
// is printed, a loopback listener captures the redirect, and the
// exchanged token is persisted for next time.
func Authenticate(ctx context.Context, creds Credentials, tokenPath string) (*http.Client, error) {
	conf := &oauth2.Config{
		ClientID:    creds.ClientID,
		RedirectURL: creds.RedirectURI,
		Scopes:      []string{scopeReadPlayback},
		Endpoint:    endpoint,
	}

	tok, err := loadToken(tokenPath)
	if err != nil {
		authLogger.Info().Msg("No cached token, starting interactive authorization")
		tok, err = authorizeInteractive(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			authLogger.Warn().Err(err).Msg("Failed to persist token")
		}
	} else {
		authLogger.Info().Str("path", tokenPath).Msg("Loaded cached token")
	}

	ts := &persistingTokenSource{
		inner: conf.TokenSource(ctx, tok),
		path:  tokenPath,
		last:  tok,
	}

	// Force an early refresh so a revoked or malformed cached token
	// fails at startup instead of on the first poll.
	if _, err := ts.Token(); err != nil {
		return nil, fmt.Errorf("cached token is unusable: %w", err)
	}

	return oauth2.NewClient(ctx, ts), nil
}

// authorizeInteractive runs the authorization-code + PKCE handshake.
func authorizeInteractive(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	redirect, err := url.Parse(conf.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URI %s: %w", conf.RedirectURL, err)
	}

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	fmt.Printf("Open this URL in your browser to authorize lyricpane:\n\n%s\n\n", authURL)

	code, err := waitForCallback(ctx, redirect, state)
	if err != nil {
		return nil, err
	}

	tok, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	authLogger.Info().Msg("Authorization complete")
	return tok, nil
}

// waitForCallback serves the redirect URI on the loopback interface
// until the accounts service delivers the authorization code.
func waitForCallback(ctx context.Context, redirect *url.URL, state string) (string, error) {
	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	type result struct {
		code string
		err  error
	}
	results := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- result{err: errors.New("authorization state mismatch")}
			return
		}
		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, "authorization denied", http.StatusBadRequest)
			results <- result{err: fmt.Errorf("authorization denied: %s", errMsg)}
			return
		}
		fmt.Fprintln(w, "Authorized. You can close this tab and return to lyricpane.")
		results <- result{code: q.Get("code")}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return "", res.err
		}
		if res.code == "" {
			return "", errors.New("callback carried no authorization code")
		}
		return res.code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// persistingTokenSource writes refreshed tokens back to disk so the
// interactive flow only ever runs once.
type persistingTokenSource struct {
	inner oauth2.TokenSource
	path  string
	mu    sync.Mutex
	last  *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.inner.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || tok.AccessToken != p.last.AccessToken {
		p.last = tok
		if err := saveToken(p.path, tok); err != nil {
			authLogger.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}

	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token cache %s: %w", path, err)
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, errors.New("cached token is expired and has no refresh token")
	}

	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to serialize token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token cache: %w", err)
	}

	authLogger.Debug().Str("path", path).Msg("Token cached")
	return nil
}
