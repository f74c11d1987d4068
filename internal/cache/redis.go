package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"lyricpane/internal/track"
)

const redisKeyPrefix = "lyrics:"

var redisLogger = log.With().Str("component", "redis-cache").Logger()

// Redis stores entries in a shared redis instance under lyrics:<key>.
// Entries carry no expiration, matching the disk backend.
type Redis struct {
	rdb *goredis.Client
}

// NewRedis connects to redis and verifies the connection.
func NewRedis(addr, password string, db int) (*Redis, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	redisLogger.Info().Str("addr", addr).Int("db", db).Msg("Redis cache backend connected")
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(ctx context.Context, artist, title string) (string, bool) {
	key := track.Key(artist, title)

	data, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			redisLogger.Warn().Err(err).Str("key", key).Msg("Redis read failed, treating as miss")
		}
		return "", false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		redisLogger.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry, treating as miss")
		return "", false
	}

	if entry.Lyrics == "" {
		return "", false
	}

	return entry.Lyrics, true
}

func (r *Redis) Put(ctx context.Context, artist, title, lyrics string) error {
	key := track.Key(artist, title)

	entry := Entry{
		Key:       key,
		Lyrics:    lyrics,
		FetchedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize cache entry: %w", err)
	}

	if err := r.rdb.Set(ctx, redisKeyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}

	redisLogger.Debug().Str("key", key).Msg("Stored lyrics in cache")
	return nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
