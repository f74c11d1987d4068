// Package cache persists fetched lyric text, content-addressed by the
// track fingerprint. Entries are immutable once written and never expire;
// deleting the backing record out-of-band is the only refresh path.
package cache

import (
	"context"
	"fmt"
	"time"

	"lyricpane/internal/config"
)

// Entry is the serialized cache record.
type Entry struct {
	Key       string    `json:"key"`
	Lyrics    string    `json:"lyrics"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Store is the lyric cache contract. Get degrades every internal
// failure (missing, corrupt, unreachable backend) to a miss; the
// caller never sees a cache error.
type Store interface {
	Get(ctx context.Context, artist, title string) (string, bool)
	Put(ctx context.Context, artist, title, lyrics string) error
}

// New creates the Store selected by the cache configuration.
func New(cfg config.CacheConfig, redisCfg config.RedisConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendDisk:
		return NewDisk(cfg.Dir)
	case config.BackendRedis:
		return NewRedis(redisCfg.Addr, redisCfg.Password, redisCfg.DB)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
