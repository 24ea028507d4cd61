package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vendora/presence/internal/broadcast"
	"vendora/presence/internal/cache"
	"vendora/presence/internal/config"
	"vendora/presence/internal/database"
	"vendora/presence/internal/handlers"
	"vendora/presence/internal/jobs"
	"vendora/presence/internal/log"
	"vendora/presence/internal/models"
	"vendora/presence/internal/presence"
	"vendora/presence/internal/registry"
	"vendora/presence/internal/repository"
	"vendora/presence/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	presenceRepo := repository.NewPresenceRepository(dbPool)
	activityRepo := repository.NewActivityRepository(dbPool)
	broadcaster := broadcast.New(redisClient, logger)

	reg := registry.New(registry.Config{
		ConnTimeout:       cfg.Presence.ConnTimeout,
		HeartbeatInterval: cfg.Presence.HeartbeatInterval,
		HiddenGrace:       cfg.Presence.ViewportHiddenGrace,
		PollInterval:      cfg.Presence.ViewportPollInterval,
	}, logger, registry.WithHeartbeatFunc(func(userID string) {
		hbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		now := time.Now()
		if err := presenceRepo.Upsert(hbCtx, userID, models.PresenceUpdate{LastSeen: &now}); err != nil {
			logger.Warn().Err(err).Str("user_id", userID).Msg("heartbeat mirror failed")
		}
	}), registry.WithViewportFunc(func(userID string, visible bool) {
		logger.Debug().Str("user_id", userID).Bool("visible", visible).Msg("viewport changed")
	}))

	service := presence.NewService(cfg.Presence, presenceRepo, activityRepo, reg, broadcaster, logger)

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, service, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(reg, presenceRepo, cfg.Presence, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, reg, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, reg *registry.Registry, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	reg.Close()
	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
