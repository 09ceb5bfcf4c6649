package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/thegoat123/thegoat"
	"github.com/thegoat123/thegoat/authentication"
	"github.com/thegoat123/thegoat/authentication/fake_auth"
	"github.com/thegoat123/thegoat/authentication/github_auth"
	"github.com/thegoat123/thegoat/authentication/password_auth"
	"github.com/thegoat123/thegoat/cmd"
	"github.com/thegoat123/thegoat/hooks"
	"github.com/thegoat123/thegoat/imagestore"
	"github.com/thegoat123/thegoat/memstore"
	"github.com/thegoat123/thegoat/pgstore"
	"github.com/thegoat123/thegoat/realtime"
)

func main() {
	cfg := cmd.DefaultConfig()
	err := cfg.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot read configuration")
	}
	logger := cmd.SetupLogger(cfg)
	cfg.Dump(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// setup storage
	var store thegoat.Store
	var pg *pgstore.PGStore
	switch cfg.Store {
	case "memory":
		logger.Warn().Msg("Using the in-memory store, everything will be lost on exit")
		store = memstore.New()
	default:
		pg = pgstore.New(cfg.DatabaseURL())
		store = pg
	}

	// setup authentication
	sessionStore := sessions.NewCookieStore([]byte(cfg.ServerSecret))
	var authService authentication.AuthService
	switch cfg.Auth {
	case "fake":
		logger.Warn().Msg("Using fake authentication, anyone can sign in")
		fake := fake_auth.New(sessionStore)
		fake.SetServerURL("http://" + cfg.Addr)
		authService = fake
	default:
		ll := logger.With().Str("component", "github auth").Logger()
		authService = github_auth.New(sessionStore, cfg.GithubClientID, cfg.GithubClientSecret, ll)
	}

	s := thegoat.NewServer(&thegoat.ServerConfig{
		Addr:           cfg.Addr,
		PollsPerPage:   cfg.PollsPerPage,
		TrustProxy:     cfg.TrustProxy,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger, store, authService)

	pl := logger.With().Str("component", "password auth").Logger()
	s.UsePasswordAuth(password_auth.New(store, sessionStore, pl))

	// share live events across instances
	if cfg.RedisAddr != "" {
		rl := logger.With().Str("component", "realtime").Logger()
		broker := realtime.NewRedisBroker(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), realtime.NewHub(rl), rl)
		go func() {
			if err := broker.Run(ctx); err != nil && ctx.Err() == nil {
				rl.Error().Err(err).Msg("Realtime relay stopped")
			}
		}()
		s.UseBroker(broker)
	}

	if cfg.S3Bucket != "" {
		uploader, err := imagestore.NewS3Uploader(ctx, imagestore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			PublicURL: cfg.S3PublicURL,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Cannot setup image uploads")
		}
		s.UseUploader(uploader)
	}

	if cfg.SlackWebhookURL != "" {
		s.AddPollHook(hooks.NewSlackPollHook(cfg.SlackWebhookURL, cfg.SiteURL))
	}

	err = s.Prepare()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot prepare server")
	}

	if pg != nil && cfg.Migrate {
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Cannot create database tables")
		}
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		s.Stop()
	}()

	err = s.Start()
	if err != nil {
		logger.Fatal().Err(err).Msg("Cannot start server")
	}
}
