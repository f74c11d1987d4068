// Package spotify is the authenticated music-service collaborator: it
// answers "what is playing right now" and owns the token lifecycle.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"lyricpane/internal/track"
)

const defaultAPIBaseURL = "https://api.spotify.com/v1"

var clientLogger = log.With().Str("component", "spotify").Logger()

// Client queries the playback state of the authenticated user. It is
// stateless between calls; change detection belongs to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type currentlyPlayingResponse struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMs int    `json:"progress_ms"`
	ItemType   string `json:"currently_playing_type"`
	Item       *struct {
		Name       string `json:"name"`
		DurationMs int    `json:"duration_ms"`
		Artists    []struct {
			Name string `json:"name"`
		} `json:"artists"`
	} `json:"item"`
}

// NewClient creates the playback client over an authenticated HTTP
// client (see Authenticate).
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    defaultAPIBaseURL,
	}
}

// NowPlaying polls the currently playing track. "Nothing playing" and
// non-track items (podcast episodes, ads) come back as a track with
// IsPlaying false, not as an error; only auth and transport failures
// are errors.
func (c *Client) NowPlaying(ctx context.Context) (track.Track, error) {
	reqURL := c.baseURL + "/me/player/currently-playing"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return track.Track{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return track.Track{}, fmt.Errorf("playback request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return track.Track{}, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return track.Track{}, fmt.Errorf("playback request rejected with status %d: check credentials and scope", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return track.Track{}, fmt.Errorf("playback request failed with status %d", resp.StatusCode)
	}

	var playing currentlyPlayingResponse
	if err := json.NewDecoder(resp.Body).Decode(&playing); err != nil {
		return track.Track{}, fmt.Errorf("failed to decode playback response: %w", err)
	}

	if playing.Item == nil || (playing.ItemType != "" && playing.ItemType != "track") {
		clientLogger.Debug().Str("item_type", playing.ItemType).Msg("Current item is not a track")
		return track.Track{}, nil
	}

	artists := make([]string, 0, len(playing.Item.Artists))
	for _, a := range playing.Item.Artists {
		artists = append(artists, a.Name)
	}

	return track.Track{
		Artists:    artists,
		Title:      playing.Item.Name,
		IsPlaying:  playing.IsPlaying,
		ProgressMs: playing.ProgressMs,
		DurationMs: playing.Item.DurationMs,
	}, nil
}
