// Package overlay orchestrates the lyric pipeline: poll the music
// service, detect track changes, consult the cache, fetch on a miss,
// and push the result to the display surfaces.
package overlay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lyricpane/internal/cache"
	"lyricpane/internal/config"
	"lyricpane/internal/lyrics"
	"lyricpane/internal/track"
)

var logger = log.With().Str("component", "overlay").Logger()

// State is the controller's position in the per-tick pipeline.
type State int

const (
	StateIdle State = iota
	StatePolling
	StateFetching
	StateDisplaying
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateFetching:
		return "fetching"
	case StateDisplaying:
		return "displaying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Poller asks the music service what is playing right now.
type Poller interface {
	NowPlaying(ctx context.Context) (track.Track, error)
}

// Fetcher acquires lyric text for a track.
type Fetcher interface {
	Fetch(ctx context.Context, artists []string, title string) (string, error)
	Name() string
}

// Surface is a display the controller renders into. Implementations
// must tolerate being called from any goroutine.
type Surface interface {
	SetTrack(artist, title string)
	SetLyrics(text string)
	SetStatus(status string)
}

// Controller runs the poll loop and owns all shared pipeline state:
// the current track, its fingerprint, and the displayed text.
type Controller struct {
	cfg      *config.Config
	poller   Poller
	fetcher  Fetcher
	store    cache.Store
	surfaces []Surface

	mu         sync.Mutex
	state      State
	current    track.Track
	currentKey string
	opacity    float64

	wg sync.WaitGroup
}

// New creates the controller. Every attached surface receives every
// update.
func New(cfg *config.Config, poller Poller, fetcher Fetcher, store cache.Store, surfaces ...Surface) *Controller {
	return &Controller{
		cfg:      cfg,
		poller:   poller,
		fetcher:  fetcher,
		store:    store,
		surfaces: surfaces,
		state:    StateIdle,
		opacity:  cfg.App.Opacity,
	}
}

// Run ticks the pipeline on the configured cadence until the context is
// cancelled. Per-tick errors are contained within that tick; nothing
// here halts the process.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.App.CheckInterval)
	defer ticker.Stop()

	logger.Info().Dur("interval", c.cfg.App.CheckInterval).Msg("Starting playback check loop")
	for {
		c.tick(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			logger.Info().Msg("Playback check loop stopped")
			c.wg.Wait()
			return
		}
	}
}

// tick runs one pipeline pass: poll, detect change, cache lookup, and
// either display or start a fetch.
func (c *Controller) tick(ctx context.Context) {
	c.setState(StatePolling)

	t, err := c.poller.NowPlaying(ctx)
	if err != nil {
		// Transient poll failure: keep whatever is on screen and try
		// again next tick.
		logger.Warn().Err(err).Msg("Failed to poll playback state")
		return
	}

	if !t.IsPlaying {
		c.clearIfStopped()
		return
	}

	key := t.CacheKey()

	c.mu.Lock()
	if key == c.currentKey {
		c.state = StateDisplaying
		c.mu.Unlock()
		return
	}
	logger.Info().Str("artist", t.Artist()).Str("title", t.Title).Msg("New song detected")
	c.current = t
	c.currentKey = key
	c.mu.Unlock()

	c.broadcastTrack(t.Artist(), t.Title)
	c.broadcastLyrics("")
	c.broadcastStatus("Searching lyrics for " + t.Artist() + " - " + t.Title + "...")

	if text, ok := c.store.Get(ctx, t.Artist(), t.Title); ok {
		logger.Info().Str("title", t.Title).Msg("Cache hit")
		c.display(key, text, "Showing lyrics for "+t.Artist()+" - "+t.Title+" (cached)")
		return
	}

	logger.Info().Str("title", t.Title).Msg("Cache miss, fetching")
	c.setState(StateFetching)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.cfg.App.FetchTimeout)
		defer cancel()

		text, err := c.fetcher.Fetch(fetchCtx, t.Artists, t.Title)
		c.finishFetch(fetchCtx, t, key, text, err)
	}()
}

// finishFetch applies a completed fetch. A result whose key no longer
// matches the current track is discarded: the user has moved on and the
// stale text must not reach the display or the cache.
func (c *Controller) finishFetch(ctx context.Context, t track.Track, key, text string, err error) {
	c.mu.Lock()
	stale := key != c.currentKey
	c.mu.Unlock()

	if stale {
		logger.Debug().Str("title", t.Title).Msg("Discarding fetch result for superseded track")
		return
	}

	if err != nil {
		logger.Error().Err(err).Str("title", t.Title).Msg("Failed to get lyrics")
		c.mu.Lock()
		c.state = StateError
		// Forget the key so the next tick re-attempts from scratch.
		c.currentKey = ""
		c.mu.Unlock()
		c.broadcastLyrics(fetchFailureMessage(err))
		c.broadcastStatus("Error")
		return
	}

	if putErr := c.store.Put(ctx, t.Artist(), t.Title, text); putErr != nil {
		// A failed cache write only costs a refetch next session.
		logger.Error().Err(putErr).Str("title", t.Title).Msg("Failed to cache lyrics")
	}

	c.display(key, text, "Showing lyrics for "+t.Artist()+" - "+t.Title)
}

// display pushes lyric text to the surfaces if the track is still
// current.
func (c *Controller) display(key, text, status string) {
	c.mu.Lock()
	if key != c.currentKey {
		c.mu.Unlock()
		return
	}
	c.state = StateDisplaying
	c.mu.Unlock()

	c.broadcastLyrics(text)
	c.broadcastStatus(status)
}

// clearIfStopped wipes the display once when playback stops.
func (c *Controller) clearIfStopped() {
	c.mu.Lock()
	hadTrack := c.currentKey != ""
	c.current = track.Track{}
	c.currentKey = ""
	c.state = StateIdle
	c.mu.Unlock()

	if hadTrack {
		logger.Info().Msg("Playback stopped or nothing playing")
		c.broadcastTrack("", "")
		c.broadcastLyrics("")
		c.broadcastStatus("Nothing playing")
	}
}

// SetOpacity records a user-driven opacity change from a surface.
func (c *Controller) SetOpacity(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.opacity = v
	c.mu.Unlock()
	logger.Debug().Float64("opacity", v).Msg("Opacity changed")
}

// Opacity returns the current display opacity.
func (c *Controller) Opacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opacity
}

// State returns the controller state, for logs and tests.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Controller) broadcastTrack(artist, title string) {
	for _, s := range c.surfaces {
		s.SetTrack(artist, title)
	}
}

func (c *Controller) broadcastLyrics(text string) {
	for _, s := range c.surfaces {
		s.SetLyrics(text)
	}
}

func (c *Controller) broadcastStatus(status string) {
	for _, s := range c.surfaces {
		s.SetStatus(status)
	}
}

// fetchFailureMessage maps the fetch error taxonomy to the short text
// shown in place of lyrics.
func fetchFailureMessage(err error) string {
	switch {
	case errors.Is(err, lyrics.ErrNotFound):
		return "Lyrics not found for this track."
	case errors.Is(err, lyrics.ErrParseMiss):
		return "Lyrics page found, but its layout was not recognized."
	default:
		return "Could not fetch lyrics: network error."
	}
}
