package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

var geniusLogger = log.With().Str("component", "genius").Logger()

// The attribute marking lyric containers on song pages.
const lyricsContainerAttr = "data-lyrics-container"

// Slug rewriting rules, applied in order when deriving the page URL.
var (
	unwantedParenRe = regexp.MustCompile(`\s*\((feat|ft|with|explicit)[^)]*\)\s*`)
	versionSuffixRe = regexp.MustCompile(`\s+-\s+(radio edit|live|acoustic|version|edit|mix)\b.*`)
	nonAlphanumRe   = regexp.MustCompile(`[^a-z0-9]+`)
	edgeHyphensRe   = regexp.MustCompile(`^-+|-+$`)
	multiHyphenRe   = regexp.MustCompile(`-{2,}`)
	annotationRe    = regexp.MustCompile(`\s*\[[^\]\n]*\]\s*\n?`)
	blankRunRe      = regexp.MustCompile(`\n{2,}`)
)

// Genius scrapes lyric text from genius.com song pages. The site offers
// no API contract for this; treat every fetch as best-effort.
type Genius struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewGenius creates the scraping provider.
func NewGenius(baseURL, userAgent string) *Genius {
	return &Genius{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
	}
}

// Name implements Provider.
func (g *Genius) Name() string {
	return "genius"
}

// slugComponent formats one artist name or title for the URL path:
// lower-cased, featuring/version noise dropped, ampersands spelled out,
// everything non-alphanumeric reduced to single hyphens.
func slugComponent(input string) string {
	s := strings.ToLower(input)
	s = unwantedParenRe.ReplaceAllString(s, "")
	s = versionSuffixRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " & ", "-and-")
	s = nonAlphanumRe.ReplaceAllString(s, "-")
	s = edgeHyphensRe.ReplaceAllString(s, "")
	s = multiHyphenRe.ReplaceAllString(s, "-")
	return s
}

// songURL derives the canonical page URL for the artists and title.
func (g *Genius) songURL(artists []string, title string) string {
	parts := make([]string, 0, len(artists))
	for _, a := range artists {
		if slug := slugComponent(a); slug != "" {
			parts = append(parts, slug)
		}
	}
	return fmt.Sprintf("%s/%s-%s-lyrics", g.baseURL, strings.Join(parts, "-and-"), slugComponent(title))
}

// Fetch implements Provider. A single attempt: 404 maps to ErrNotFound,
// other failures to FetchError, a fetched page without the expected
// container to ErrParseMiss.
func (g *Genius) Fetch(ctx context.Context, artists []string, title string) (string, error) {
	if len(artists) == 0 {
		return "", fmt.Errorf("cannot fetch lyrics: artist list is empty")
	}

	pageURL := g.songURL(artists, title)
	geniusLogger.Info().Str("url", pageURL).Msg("Fetching lyrics page")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", &FetchError{URL: pageURL, Status: resp.StatusCode, Err: ErrNotFound}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &FetchError{URL: pageURL, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}

	raw, err := extractLyrics(resp.Body)
	if err != nil {
		return "", err
	}

	cleaned := Clean(raw)
	if cleaned == "" {
		return "", fmt.Errorf("lyrics empty after cleaning: %w", ErrParseMiss)
	}
	return cleaned, nil
}

// extractLyrics walks the document and collects text from every
// div[data-lyrics-container=true]. This is the one place that knows the
// page structure.
func extractLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse lyrics page: %w", err)
	}

	var raw strings.Builder
	containers := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && hasAttr(n, lyricsContainerAttr, "true") {
			containers++
			collectContainerText(n, &raw)
			raw.WriteByte('\n')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if containers == 0 {
		return "", ErrParseMiss
	}

	text := strings.TrimRight(raw.String(), "\n \t")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("lyrics container is empty: %w", ErrParseMiss)
	}
	return text, nil
}

// collectContainerText gathers a container's immediate text, turning
// <br> into newlines and flattening anchor (annotation) text.
func collectContainerText(n *html.Node, out *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			out.WriteString(c.Data)
		case html.ElementNode:
			switch c.Data {
			case "br":
				out.WriteByte('\n')
			case "a", "span":
				collectContainerText(c, out)
			}
		}
	}
}

func hasAttr(n *html.Node, key, val string) bool {
	for _, a := range n.Attr {
		if a.Key == key && a.Val == val {
			return true
		}
	}
	return false
}

// Clean strips bracketed annotation markers ("[Chorus]" and friends),
// collapses blank-line runs, and trims the result.
func Clean(raw string) string {
	s := annotationRe.ReplaceAllString(raw, "\n")
	s = blankRunRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
