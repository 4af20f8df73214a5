package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/rs/zerolog"

	"github.com/dstrand/pokerserver/internal/config"
	"github.com/dstrand/pokerserver/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		chlog.Fatal("loading configuration", "error", err)
	}

	zlevel := zerolog.InfoLevel
	clevel := chlog.InfoLevel
	if cfg.LogLevel == "debug" {
		zlevel = zerolog.DebugLevel
		clevel = chlog.DebugLevel
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zlevel).With().Timestamp().Logger()
	clog := chlog.NewWithOptions(os.Stderr, chlog.Options{Level: clevel, ReportTimestamp: true})

	st, err := store.New(cfg.DataDir)
	if err != nil {
		zlog.Fatal().Err(err).Msg("initializing data store")
	}

	srv, err := NewServer(cfg, zlog, clog, st)
	if err != nil {
		zlog.Fatal().Err(err).Msg("constructing server")
	}

	httpServer := &http.Server{Addr: cfg.Listen, Handler: srv.Handler()}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", cfg.Listen).Str("data_dir", cfg.DataDir).Msg("server starting")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server exited with error")
		}
	case sig := <-sigChan:
		zlog.Info().Str("signal", sig.String()).Msg("received signal, shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("saving final snapshot failed")
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Err(err).Msg("graceful HTTP shutdown failed")
		}

		if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error().Err(err).Msg("server exited with error")
		} else {
			zlog.Info().Msg("server shutdown complete")
		}
	}
}
