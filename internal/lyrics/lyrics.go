// Package lyrics acquires lyric text for a track from external sources.
// The page-structure selector for the scraping provider lives in a single
// function so it can be swapped when the site's markup changes, without
// touching caching or orchestration.
package lyrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"lyricpane/internal/config"
)

// ErrNotFound means the source has no lyrics for this track (e.g. the
// derived page URL returned 404 or the catalog search came back empty).
var ErrNotFound = errors.New("lyrics not found")

// ErrParseMiss means the document was fetched but the lyric container
// could not be located or was empty. Usually markup rot.
var ErrParseMiss = errors.New("lyrics container not found")

// FetchError wraps transport and HTTP status failures. The cause
// sentinel, if any, is reachable through errors.Is.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Provider is a single lyric source. A failed fetch surfaces a typed
// error to the caller; providers do not retry beyond their own bounded
// request policy and never swallow failures.
type Provider interface {
	// Fetch returns cleaned lyric text for the given artists and title.
	Fetch(ctx context.Context, artists []string, title string) (string, error)

	// Name returns the provider name for logs and status lines.
	Name() string
}

var managerLogger = log.With().Str("component", "lyrics-manager").Logger()

// Manager tries each configured provider in order and returns the first
// success.
type Manager struct {
	providers []Provider
}

// NewManager creates a manager over an ordered provider list.
func NewManager(providers ...Provider) *Manager {
	if len(providers) > 0 {
		managerLogger.Info().
			Int("provider_count", len(providers)).
			Str("primary_provider", providers[0].Name()).
			Msg("Lyrics manager initialized")
	}
	return &Manager{providers: providers}
}

// Fetch implements Provider over the whole provider chain.
func (m *Manager) Fetch(ctx context.Context, artists []string, title string) (string, error) {
	if len(m.providers) == 0 {
		return "", errors.New("no lyrics providers configured")
	}

	var lastErr error
	for i, provider := range m.providers {
		managerLogger.Info().
			Str("provider", provider.Name()).
			Int("attempt", i+1).
			Int("total_providers", len(m.providers)).
			Str("title", title).
			Msg("Trying provider")

		text, err := provider.Fetch(ctx, artists, title)
		if err == nil {
			managerLogger.Info().
				Str("provider", provider.Name()).
				Msg("Successfully got lyrics")
			return text, nil
		}

		managerLogger.Warn().
			Str("provider", provider.Name()).
			Err(err).
			Msg("Provider failed")
		lastErr = err

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

// Name implements Provider.
func (m *Manager) Name() string {
	if len(m.providers) > 0 {
		return fmt.Sprintf("manager[primary: %s]", m.providers[0].Name())
	}
	return "manager[no providers]"
}

// NewFromConfig builds the provider chain named in the configuration.
func NewFromConfig(cfg config.LyricsConfig) (*Manager, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch name {
		case "genius":
			providers = append(providers, NewGenius(cfg.GeniusBaseURL, cfg.UserAgent))
		case "lrclib":
			providers = append(providers, NewLRCLib(cfg.LRCLibBaseURL))
		default:
			return nil, fmt.Errorf("unknown lyrics provider: %s", name)
		}
	}
	if len(providers) == 0 {
		return nil, errors.New("no lyrics providers configured")
	}
	return NewManager(providers...), nil
}
