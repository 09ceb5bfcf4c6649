package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/thegoat123/thegoat/cmd"
	"github.com/thegoat123/thegoat/preview"
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

	s := preview.NewServer(&preview.Config{
		Addr:      cfg.PreviewAddr,
		OriginURL: cfg.PreviewOriginURL,
		SiteURL:   cfg.SiteURL,
	}, logger.With().Str("component", "preview").Logger(), preview.NewAPIFetcher(cfg.PreviewAPIURL))

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
