package main

import (
	"context"
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricpane/internal/cache"
	"lyricpane/internal/config"
	"lyricpane/internal/ipc"
	"lyricpane/internal/lyrics"
	"lyricpane/internal/overlay"
	"lyricpane/internal/spotify"
	"lyricpane/internal/ui"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	creds, err := spotify.CredentialsFromEnv(cfg.Spotify.RedirectURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Missing Spotify credentials")
	}

	authCtx, cancelAuth := context.WithTimeout(context.Background(), 5*time.Minute)
	httpClient, err := spotify.Authenticate(authCtx, creds, cfg.Spotify.TokenPath)
	cancelAuth()
	if err != nil {
		log.Fatal().Err(err).Msg("Spotify authentication failed")
	}
	poller := spotify.NewClient(httpClient)

	store, err := cache.New(cfg.Cache, cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Cache.Backend).Msg("Failed to open lyric cache")
	}

	fetcher, err := lyrics.NewFromConfig(cfg.Lyrics)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build lyric providers")
	}

	ipcServer := ipc.NewServer(cfg.App.SocketPath)
	if err := ipcServer.Start(); err != nil {
		log.Fatal().Err(err).Str("socket", cfg.App.SocketPath).Msg("Failed to start IPC server")
	}
	defer ipcServer.Close()

	fa := fyneapp.NewWithID("io.lyricpane")

	var ctrl *overlay.Controller
	win := ui.New(fa, cfg.App.Opacity, func(v float64) {
		if ctrl != nil {
			ctrl.SetOpacity(v)
		}
	})

	ctrl = overlay.New(cfg, poller, fetcher, store, win, ipcServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)

	log.Info().
		Dur("check_interval", cfg.App.CheckInterval).
		Str("cache_backend", cfg.Cache.Backend).
		Msg("Starting lyric overlay")

	win.ShowAndRun()
}
