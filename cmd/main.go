package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/duynhne/cms-service/config"
	logicv1 "github.com/duynhne/cms-service/internal/logic/v1"
	"github.com/duynhne/cms-service/internal/store"
	"github.com/duynhne/cms-service/internal/web"
	"github.com/duynhne/cms-service/middleware"
	"github.com/duynhne/cms-service/pkg/logger/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Configuration load failed: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL from config
	zerolog.Setup(cfg.Logging.Level)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Str("store", cfg.Database.Backend).
		Str("sessions", cfg.SessionBackend()).
		Msg("Service starting")

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}
	log.Info().Msg("Graceful shutdown complete")
}

func run(cfg *config.Config) error {
	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	if cfg.Tracing.Enabled {
		provider, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			tp = provider
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().Str("endpoint", cfg.Profiling.Endpoint).Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	stores, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error().Err(err).Msg("Store close error")
		} else {
			log.Info().Msg("Stores closed")
		}
	}()

	creds := logicv1.NewCredentialStore(stores.Users, cfg.Auth.BcryptCost, logicv1.WithHashTimeout(cfg.Auth.HashTimeout))
	auth := logicv1.NewAuthService(creds, stores.Sessions,
		logicv1.WithSessionTTL(cfg.Session.TTL),
		logicv1.WithPruneOnLogin(cfg.Session.PruneOnLogin),
	)
	sweeper := logicv1.NewSessionSweeper(stores.Sessions, cfg.Session.SweepInterval, cfg.Session.SweepTimeout)

	var isShuttingDown atomic.Bool
	srv := &http.Server{
		Addr: ":" + cfg.Service.Port,
		Handler: web.NewRouter(auth, web.RouterConfig{
			ServiceName:  cfg.Service.Name,
			Tracing:      tp != nil,
			SecureCookie: cfg.Session.CookieSecure,
			ShuttingDown: &isShuttingDown,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting cms service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		// Fail readiness first and wait for propagation.
		isShuttingDown.Store(true)
		if drainDelay := cfg.GetReadinessDrainDelayDuration(); drainDelay > 0 {
			log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
			time.Sleep(drainDelay)
		}

		shutdownTimeout := cfg.GetShutdownTimeoutDuration()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		} else {
			log.Info().Msg("HTTP server shutdown complete")
		}

		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Tracer shutdown error")
			} else {
				log.Info().Msg("Tracer shutdown complete")
			}
		}
		return nil
	})

	return g.Wait()
}
