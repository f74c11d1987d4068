package overlay

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lyricpane/internal/config"
	"lyricpane/internal/lyrics"
	"lyricpane/internal/track"
)

// fakePoller returns a scripted sequence of playback states.
type fakePoller struct {
	mu     sync.Mutex
	tracks []track.Track
	errs   []error
	idx    int
}

func (p *fakePoller) NowPlaying(ctx context.Context) (track.Track, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.idx
	if i >= len(p.tracks) {
		i = len(p.tracks) - 1
	}
	p.idx++
	if p.errs != nil && p.errs[i] != nil {
		return track.Track{}, p.errs[i]
	}
	return p.tracks[i], nil
}

// fakeFetcher resolves fetches on demand when gate is non-nil.
type fakeFetcher struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	gate  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, artists []string, title string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory cache.Store.
type memStore struct {
	mu      sync.Mutex
	entries map[string]string
	puts    int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, artist, title string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.entries[track.Key(artist, title)]
	return text, ok
}

func (m *memStore) Put(ctx context.Context, artist, title, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[track.Key(artist, title)] = text
	m.puts++
	return nil
}

// recordSurface captures the latest values pushed to it.
type recordSurface struct {
	mu     sync.Mutex
	track  string
	lyrics string
	status string
}

func (s *recordSurface) SetTrack(artist, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track = artist + " - " + title
}

func (s *recordSurface) SetLyrics(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lyrics = text
}

func (s *recordSurface) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *recordSurface) snapshot() (string, string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track, s.lyrics, s.status
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			CheckInterval: 10 * time.Millisecond,
			FetchTimeout:  time.Second,
			Opacity:       1.0,
		},
	}
}

func playing(artist, title string) track.Track {
	return track.Track{Artists: []string{artist}, Title: title, IsPlaying: true}
}

func TestMissTriggersExactlyOneFetch(t *testing.T) {
	poller := &fakePoller{tracks: []track.Track{playing("Adele", "Hello")}}
	fetcher := &fakeFetcher{text: "lyric text"}
	store := newMemStore()
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	ctx := context.Background()

	c.tick(ctx)
	c.wg.Wait()
	c.tick(ctx) // same track: no-op
	c.tick(ctx)
	c.wg.Wait()

	if got := fetcher.callCount(); got != 1 {
		t.Errorf("fetch called %d times, expected exactly 1", got)
	}

	_, lyricsText, _ := surface.snapshot()
	if lyricsText != "lyric text" {
		t.Errorf("surface lyrics = %q", lyricsText)
	}
	if text, ok := store.Get(ctx, "Adele", "Hello"); !ok || text != "lyric text" {
		t.Errorf("cache entry = (%q, %v), expected fetched text", text, ok)
	}
	if c.State() != StateDisplaying {
		t.Errorf("state = %v, expected displaying", c.State())
	}
}

func TestCacheHitSkipsFetch(t *testing.T) {
	poller := &fakePoller{tracks: []track.Track{playing("Adele", "Hello")}}
	fetcher := &fakeFetcher{text: "fresh"}
	store := newMemStore()
	store.Put(context.Background(), "Adele", "Hello", "cached text")
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	c.tick(context.Background())
	c.wg.Wait()

	if got := fetcher.callCount(); got != 0 {
		t.Errorf("fetch called %d times on a cache hit", got)
	}
	_, lyricsText, status := surface.snapshot()
	if lyricsText != "cached text" {
		t.Errorf("surface lyrics = %q, expected cached text", lyricsText)
	}
	if !strings.Contains(status, "cached") {
		t.Errorf("status = %q, expected cached marker", status)
	}
}

func TestFetchNotFoundShowsMessageAndSkipsCache(t *testing.T) {
	poller := &fakePoller{tracks: []track.Track{playing("Adele", "Unreleased")}}
	fetcher := &fakeFetcher{err: lyrics.ErrNotFound}
	store := newMemStore()
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	c.tick(context.Background())
	c.wg.Wait()

	_, lyricsText, _ := surface.snapshot()
	if !strings.Contains(lyricsText, "not found") {
		t.Errorf("surface lyrics = %q, expected not-found message", lyricsText)
	}
	if store.puts != 0 {
		t.Errorf("cache written %d times after failed fetch", store.puts)
	}
	if c.State() != StateError {
		t.Errorf("state = %v, expected error", c.State())
	}

	// Next tick re-attempts from scratch, no backoff.
	c.tick(context.Background())
	c.wg.Wait()
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("fetch called %d times, expected a retry on the next tick", got)
	}
}

func TestSupersededFetchIsDiscarded(t *testing.T) {
	song1 := playing("A", "Song1")
	song2 := playing("A", "Song2")

	poller := &fakePoller{tracks: []track.Track{song1, song2}}
	gate := make(chan struct{})
	fetcher := &fakeFetcher{text: "song1 lyrics", gate: gate}
	store := newMemStore()
	store.Put(context.Background(), "A", "Song2", "song2 lyrics")
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	ctx := context.Background()

	// Tick 1: Song1 misses the cache; its fetch blocks on the gate.
	c.tick(ctx)

	// Tick 2: the user skipped to Song2, which is cached.
	c.tick(ctx)

	trackLine, lyricsText, _ := surface.snapshot()
	if trackLine != "A - Song2" || lyricsText != "song2 lyrics" {
		t.Fatalf("before stale resolve: track %q lyrics %q", trackLine, lyricsText)
	}

	// Song1's fetch resolves late; its result must be a no-op.
	close(gate)
	c.wg.Wait()

	_, lyricsText, _ = surface.snapshot()
	if lyricsText != "song2 lyrics" {
		t.Errorf("stale fetch overwrote display: %q", lyricsText)
	}
	if _, ok := store.Get(ctx, "A", "Song1"); ok {
		t.Error("stale fetch result reached the cache")
	}
}

func TestPollErrorKeepsDisplay(t *testing.T) {
	song := playing("Adele", "Hello")
	poller := &fakePoller{
		tracks: []track.Track{song, {}},
		errs:   []error{nil, context.DeadlineExceeded},
	}
	fetcher := &fakeFetcher{text: "lyric text"}
	store := newMemStore()
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	ctx := context.Background()

	c.tick(ctx)
	c.wg.Wait()
	c.tick(ctx) // poll failure

	_, lyricsText, _ := surface.snapshot()
	if lyricsText != "lyric text" {
		t.Errorf("poll failure changed the display: %q", lyricsText)
	}
}

func TestPlaybackStoppedClearsDisplayOnce(t *testing.T) {
	poller := &fakePoller{tracks: []track.Track{
		playing("Adele", "Hello"),
		{IsPlaying: false},
		{IsPlaying: false},
	}}
	fetcher := &fakeFetcher{text: "lyric text"}
	store := newMemStore()
	surface := &recordSurface{}

	c := New(testConfig(), poller, fetcher, store, surface)
	ctx := context.Background()

	c.tick(ctx)
	c.wg.Wait()
	c.tick(ctx)

	_, lyricsText, status := surface.snapshot()
	if lyricsText != "" {
		t.Errorf("display not cleared after playback stopped: %q", lyricsText)
	}
	if status != "Nothing playing" {
		t.Errorf("status = %q", status)
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, expected idle", c.State())
	}

	// Second stopped tick is a no-op.
	surface.SetStatus("sentinel")
	c.tick(ctx)
	if _, _, status := surface.snapshot(); status != "sentinel" {
		t.Error("repeated stopped ticks should not rebroadcast")
	}
}

func TestSetOpacityClamps(t *testing.T) {
	c := New(testConfig(), &fakePoller{tracks: []track.Track{{}}}, &fakeFetcher{}, newMemStore())

	c.SetOpacity(1.7)
	if got := c.Opacity(); got != 1 {
		t.Errorf("Opacity = %v, expected clamp to 1", got)
	}
	c.SetOpacity(-0.3)
	if got := c.Opacity(); got != 0 {
		t.Errorf("Opacity = %v, expected clamp to 0", got)
	}
	c.SetOpacity(0.5)
	if got := c.Opacity(); got != 0.5 {
		t.Errorf("Opacity = %v", got)
	}
}
