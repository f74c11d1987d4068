package lyrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var lrclibLogger = log.With().Str("component", "lrclib").Logger()

var lrcTimestampRe = regexp.MustCompile(`\[\d{2}:\d{2}(?:\.\d{1,3})?\]`)

// LRCLib queries the lrclib.net catalog API. Used as a fallback when
// scraping fails: it speaks JSON and tolerates fuzzier matching.
type LRCLib struct {
	httpClient     *http.Client
	baseURL        string
	requestTimeout time.Duration
	maxRetries     int
}

type lrclibResult struct {
	ID           int    `json:"id"`
	TrackName    string `json:"trackName"`
	ArtistName   string `json:"artistName"`
	AlbumName    string `json:"albumName"`
	Duration     int    `json:"duration"`
	Instrumental bool   `json:"instrumental"`
	PlainLyrics  string `json:"plainLyrics"`
	SyncedLyrics string `json:"syncedLyrics"`
}

// NewLRCLib creates the catalog provider.
func NewLRCLib(baseURL string) *LRCLib {
	return &LRCLib{
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:        strings.TrimRight(baseURL, "/"),
		requestTimeout: 5 * time.Second,
		maxRetries:     3,
	}
}

// Name implements Provider.
func (c *LRCLib) Name() string {
	return "lrclib"
}

// Fetch implements Provider.
func (c *LRCLib) Fetch(ctx context.Context, artists []string, title string) (string, error) {
	if len(artists) == 0 {
		return "", fmt.Errorf("cannot fetch lyrics: artist list is empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.requestTimeout*time.Duration(c.maxRetries+1))
	defer cancel()

	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artists[0])
	searchURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	resp, err := c.doWithRetry(timeoutCtx, searchURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var results []lrclibResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	lrclibLogger.Info().Int("results", len(results)).Str("title", title).Msg("Search completed")

	if len(results) == 0 {
		return "", fmt.Errorf("no catalog entry for '%s - %s': %w", artists[0], title, ErrNotFound)
	}

	best := bestMatch(results, title, artists[0])
	text := best.PlainLyrics
	if text == "" && best.SyncedLyrics != "" {
		// Synced lyrics carry [mm:ss.xx] timestamps; the overlay shows
		// plain text, so strip them.
		text = stripTimestamps(best.SyncedLyrics)
	}
	if text == "" {
		return "", fmt.Errorf("catalog entry has no lyric text for '%s - %s': %w", artists[0], title, ErrNotFound)
	}

	cleaned := Clean(text)
	if cleaned == "" {
		return "", fmt.Errorf("lyrics empty after cleaning: %w", ErrNotFound)
	}
	return cleaned, nil
}

// doWithRetry issues the GET with a bounded retry on transport errors
// and non-2xx responses. A 404 is terminal: the catalog has no entry.
func (c *LRCLib) doWithRetry(ctx context.Context, searchURL string) (*http.Response, error) {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			lrclibLogger.Info().Int("attempt", attempt).Int("max_retries", c.maxRetries).Msg("Retrying request")
			select {
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "lyricpane/1.0")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			lastErr = &FetchError{URL: searchURL, Err: err}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, &FetchError{URL: searchURL, Status: resp.StatusCode, Err: ErrNotFound}
		default:
			lastErr = &FetchError{URL: searchURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
			resp.Body.Close()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// bestMatch prefers results whose track and artist names both contain
// the targets, then title-only matches, then the first result.
func bestMatch(results []lrclibResult, title, artist string) *lrclibResult {
	var titleOnly *lrclibResult

	for i := range results {
		r := &results[i]
		if !containsFold(r.TrackName, title) {
			continue
		}
		if containsFold(r.ArtistName, artist) {
			return r
		}
		if titleOnly == nil {
			titleOnly = r
		}
	}

	if titleOnly != nil {
		return titleOnly
	}
	return &results[0]
}

func stripTimestamps(synced string) string {
	return strings.TrimSpace(lrcTimestampRe.ReplaceAllString(synced, ""))
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
