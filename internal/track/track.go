package track

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Track is the identity of the currently playing song as reported by the
// music service. It is transient: a fresh value is produced on every poll.
type Track struct {
	Artists    []string
	Title      string
	IsPlaying  bool
	ProgressMs int
	DurationMs int
}

// Artist returns all artist names joined for display and key derivation.
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// Same reports whether two tracks identify the same song, ignoring
// playback state and position.
func (t Track) Same(other Track) bool {
	return Normalize(t.Artist()) == Normalize(other.Artist()) &&
		Normalize(t.Title) == Normalize(other.Title)
}

// CacheKey returns the fingerprint used for cache lookups and change
// detection.
func (t Track) CacheKey() string {
	return Key(t.Artist(), t.Title)
}

// Normalize case-folds, trims, and collapses whitespace runs to a single
// space. Idempotent.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Key derives the content-addressed cache key for an artist/title pair:
// a sha256 hex digest of the normalized "artist|title" string. Any casing
// or whitespace variation of the same pair yields the same key.
func Key(artist, title string) string {
	sum := sha256.Sum256([]byte(Normalize(artist) + "|" + Normalize(title)))
	return hex.EncodeToString(sum[:])
}
