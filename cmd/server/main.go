package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spinforge/platform/internal/auth"
	"github.com/spinforge/platform/internal/cache"
	"github.com/spinforge/platform/internal/handler"
	"github.com/spinforge/platform/internal/infra"
	"github.com/spinforge/platform/internal/proxy"
	"github.com/spinforge/platform/internal/repository"
	"github.com/spinforge/platform/internal/session"
	"github.com/spinforge/platform/internal/tournament"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to postgres")

	if err := infra.RunMigrations(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	var ids repository.IDGenerator
	if cfg.RedisEnabled() {
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		ids = repository.NewRedisIDGenerator(client, cfg.Name)
		logger.Info("sequences backed by redis")
	} else {
		ids = repository.NewPgIDGenerator(pool)
	}

	producer := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaEnabled, logger)
	defer producer.Close()

	rounds := repository.NewRoundRepository(pool)
	gains := repository.NewGainRepository(pool)
	games := repository.NewGameRepository(pool)

	tokens := auth.NewTokenService(cfg.TokenSecret)
	retry := proxy.NewRetryService(5, 30*time.Second, logger)
	retry.Start(ctx)

	registry := session.NewRegistry(time.Duration(cfg.CleanSec)*time.Second, logger)
	registry.Start(ctx)

	jackpots := cache.NewJackpotCoalescer(games, cache.DefaultJackpotTTL, logger)
	jackpots.Start(ctx)
	launch := cache.NewLaunchCache(games, cache.DefaultLaunchTTL, logger)
	responses := cache.NewResponseCache()

	logins := session.NewLoginService(session.LoginOptions{
		Config:   cfg,
		Logger:   logger,
		Rounds:   rounds,
		Gains:    gains,
		Games:    games,
		IDs:      ids,
		Events:   producer,
		Tokens:   tokens,
		Registry: registry,
		Retry:    retry,
		Jackpots: jackpots,
	})

	var committer tournament.Committer
	if cfg.TourURL != "" {
		client := tournament.NewClient(cfg.TourURL, cfg.TourName, cfg.TourPassword, logger)
		client.Start(ctx)
		committer = client
	}
	awards := tournament.NewManager(tournament.Options{
		LocalIP:   cfg.TourIP,
		Currency:  cfg.ProxyCurrency,
		Gains:     gains,
		Games:     games,
		IDs:       ids,
		Sink:      registry,
		Committer: committer,
		Logger:    logger,
	})

	client := handler.NewClientHandler(registry, logins, responses, cfg.CacheOn, logger)
	tour := handler.NewTournamentHandler(awards, logger)
	metrics := handler.NewMetricsHandler(registry)
	launcher := handler.NewLaunchHandler(launch, cfg, logger)

	r := chi.NewRouter()
	r.Use(handler.Recovery(logger))
	r.Use(handler.TraceID)
	r.Use(handler.RequestLogger(logger))
	r.Use(metrics.Instrument)
	r.Use(handler.CORS)
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(pool))

	r.Route(cfg.ServerPath, func(r chi.Router) {
		r.Post("/handle", client.Handle)
		r.Post("/ping", client.Ping)
	})
	r.Route("/replay/{roundID}", func(r chi.Router) {
		r.Post("/handle", client.ReplayHandle)
		r.Post("/ping", client.Ping)
	})

	r.Post("/tournament/handle", tour.Handle)

	r.Get("/metrics/online", metrics.Online)
	r.Get("/metrics/state", metrics.State)
	r.Handle("/metrics", metrics.Prometheus())

	r.Get("/launch", launcher.Handle)
	r.Post("/launch", launcher.Handle)

	addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("game server starting", "addr", addr, "path", cfg.ServerPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// let every session settle its pending collect before the process exits
	select {
	case <-registry.Done():
	case <-shutdownCtx.Done():
		logger.Warn("sessions still stopping at shutdown deadline")
	}

	logger.Info("server stopped gracefully")
	return nil
}
