package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"lyricpane/internal/track"
)

var diskLogger = log.With().Str("component", "disk-cache").Logger()

// Disk stores one JSON file per cache key under a fixed directory. The
// file name is the hex digest itself, so a lookup is a single stat. No
// eviction: entries are tiny text blobs keyed by song identity.
type Disk struct {
	dir string
}

// NewDisk creates the disk store, ensuring the cache directory exists.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}
	diskLogger.Info().Str("dir", dir).Msg("Lyrics cache directory ready")
	return &Disk{dir: dir}, nil
}

func (d *Disk) entryPath(key string) string {
	return filepath.Join(d.dir, key+".json")
}

// Get returns the cached lyric text for the pair, if present and
// parseable. A corrupt or unreadable entry is a miss, never fatal.
func (d *Disk) Get(ctx context.Context, artist, title string) (string, bool) {
	key := track.Key(artist, title)
	path := d.entryPath(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			diskLogger.Warn().Err(err).Str("path", path).Msg("Failed to read cache entry, treating as miss")
		}
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		diskLogger.Warn().Err(err).Str("path", path).Msg("Corrupt cache entry, treating as miss")
		return "", false
	}

	if entry.Lyrics == "" {
		diskLogger.Warn().Str("path", path).Msg("Cache entry has no lyrics, treating as miss")
		return "", false
	}

	return entry.Lyrics, true
}

// Put serializes the entry and replaces the target file atomically:
// write to a temp file in the same directory, then rename over the
// final path so concurrent readers never observe a partial entry.
func (d *Disk) Put(ctx context.Context, artist, title, lyrics string) error {
	key := track.Key(artist, title)
	path := d.entryPath(key)

	entry := Entry{
		Key:       key,
		Lyrics:    lyrics,
		FetchedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(d.dir, key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache entry %s: %w", path, err)
	}

	diskLogger.Debug().Str("key", key).Msg("Stored lyrics in cache")
	return nil
}
