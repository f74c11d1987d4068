package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultSocketPath    = "/tmp/lyricpane.sock"
	DefaultCheckInterval = 3 * time.Second
	DefaultFetchTimeout  = 30 * time.Second
	DefaultOpacity       = 1.0
	DefaultGeniusBaseURL = "https://genius.com"
	DefaultLRCLibBaseURL = "https://lrclib.net/api"
	DefaultUserAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.88 Safari/537.36"
	DefaultRedirectURI   = "http://127.0.0.1:8898/callback"

	BackendDisk  = "disk"
	BackendRedis = "redis"
)

func getDefaultCacheDir() string {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, "lyricpane")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "lyricpane_cache"
	}

	return filepath.Join(homeDir, ".cache", "lyricpane")
}

func getDefaultTokenPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".spotify_token.json"
	}
	return filepath.Join(homeDir, ".cache", "lyricpane", "spotify_token.json")
}

// TomlConfig mirrors the on-disk config file layout.
type TomlConfig struct {
	App struct {
		SocketPath    string  `toml:"socket_path"`
		CheckInterval string  `toml:"check_interval"`
		FetchTimeout  string  `toml:"fetch_timeout"`
		Opacity       float64 `toml:"opacity"`
	} `toml:"app"`

	Cache struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
	} `toml:"cache"`

	Lyrics struct {
		Providers     []string `toml:"providers"`
		GeniusBaseURL string   `toml:"genius_base_url"`
		LRCLibBaseURL string   `toml:"lrclib_base_url"`
		UserAgent     string   `toml:"user_agent"`
	} `toml:"lyrics"`

	Spotify struct {
		RedirectURI string `toml:"redirect_uri"`
		TokenPath   string `toml:"token_path"`
	} `toml:"spotify"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`
}

// AppConfig holds the overlay runtime settings.
type AppConfig struct {
	SocketPath    string
	CheckInterval time.Duration
	FetchTimeout  time.Duration
	Opacity       float64
}

// CacheConfig selects and parameterizes the lyric cache backend.
type CacheConfig struct {
	Backend string
	Dir     string
}

// LyricsConfig configures the lyric sources.
type LyricsConfig struct {
	Providers     []string
	GeniusBaseURL string
	LRCLibBaseURL string
	UserAgent     string
}

// SpotifyConfig holds the non-secret parts of the music-service client
// setup. The client id comes from the environment, never from the file.
type SpotifyConfig struct {
	RedirectURI string
	TokenPath   string
}

// RedisConfig configures the optional shared cache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the resolved application configuration.
type Config struct {
	App     AppConfig
	Cache   CacheConfig
	Lyrics  LyricsConfig
	Spotify SpotifyConfig
	Redis   RedisConfig
}

func getConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "lyricpane", "config.toml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Printf("WARN: Cannot get user home directory: %v", err)
		return "config.toml"
	}

	return filepath.Join(homeDir, ".config", "lyricpane", "config.toml")
}

func loadTomlConfig() (*TomlConfig, error) {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("INFO: Config file not found at %s, using defaults", configPath)
		return &TomlConfig{}, nil
	}

	var config TomlConfig
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, err
	}

	log.Printf("INFO: Loaded config from %s", configPath)
	return &config, nil
}

// Load resolves the configuration from the TOML file, falling back to
// defaults for anything unset. A .env file, if present, is folded into
// the environment first so the Spotify credentials can live next to the
// binary during development.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("INFO: Loaded .env file")
	}

	tomlConfig, err := loadTomlConfig()
	if err != nil {
		log.Printf("ERROR: Failed to load config file: %v", err)
		log.Printf("INFO: Using default configuration")
		tomlConfig = &TomlConfig{}
	}

	config := &Config{
		App: AppConfig{
			SocketPath:    DefaultSocketPath,
			CheckInterval: DefaultCheckInterval,
			FetchTimeout:  DefaultFetchTimeout,
			Opacity:       DefaultOpacity,
		},
		Cache: CacheConfig{
			Backend: BackendDisk,
			Dir:     getDefaultCacheDir(),
		},
		Lyrics: LyricsConfig{
			Providers:     []string{"genius", "lrclib"},
			GeniusBaseURL: DefaultGeniusBaseURL,
			LRCLibBaseURL: DefaultLRCLibBaseURL,
			UserAgent:     DefaultUserAgent,
		},
		Spotify: SpotifyConfig{
			RedirectURI: DefaultRedirectURI,
			TokenPath:   getDefaultTokenPath(),
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
	}

	if tomlConfig.App.SocketPath != "" {
		config.App.SocketPath = tomlConfig.App.SocketPath
	}

	if tomlConfig.App.CheckInterval != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.CheckInterval); err == nil {
			config.App.CheckInterval = duration
		} else {
			log.Printf("WARN: Invalid check_interval format '%s', using default", tomlConfig.App.CheckInterval)
		}
	}

	if tomlConfig.App.FetchTimeout != "" {
		if duration, err := time.ParseDuration(tomlConfig.App.FetchTimeout); err == nil {
			config.App.FetchTimeout = duration
		} else {
			log.Printf("WARN: Invalid fetch_timeout format '%s', using default", tomlConfig.App.FetchTimeout)
		}
	}

	if tomlConfig.App.Opacity > 0 && tomlConfig.App.Opacity <= 1 {
		config.App.Opacity = tomlConfig.App.Opacity
	}

	if tomlConfig.Cache.Backend != "" {
		config.Cache.Backend = tomlConfig.Cache.Backend
	}

	if tomlConfig.Cache.Dir != "" {
		config.Cache.Dir = tomlConfig.Cache.Dir
	}

	if len(tomlConfig.Lyrics.Providers) > 0 {
		config.Lyrics.Providers = tomlConfig.Lyrics.Providers
	}

	if tomlConfig.Lyrics.GeniusBaseURL != "" {
		config.Lyrics.GeniusBaseURL = tomlConfig.Lyrics.GeniusBaseURL
	}

	if tomlConfig.Lyrics.LRCLibBaseURL != "" {
		config.Lyrics.LRCLibBaseURL = tomlConfig.Lyrics.LRCLibBaseURL
	}

	if tomlConfig.Lyrics.UserAgent != "" {
		config.Lyrics.UserAgent = tomlConfig.Lyrics.UserAgent
	}

	if tomlConfig.Spotify.RedirectURI != "" {
		config.Spotify.RedirectURI = tomlConfig.Spotify.RedirectURI
	}

	if tomlConfig.Spotify.TokenPath != "" {
		config.Spotify.TokenPath = tomlConfig.Spotify.TokenPath
	}

	if tomlConfig.Redis.Addr != "" {
		config.Redis.Addr = tomlConfig.Redis.Addr
	}

	if tomlConfig.Redis.Password != "" {
		config.Redis.Password = tomlConfig.Redis.Password
	}

	if tomlConfig.Redis.DB != 0 {
		config.Redis.DB = tomlConfig.Redis.DB
	}

	return config
}
