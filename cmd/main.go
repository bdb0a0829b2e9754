package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/binwise/backend/internal/auth"
	"github.com/binwise/backend/internal/cache"
	"github.com/binwise/backend/internal/config"
	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/email"
	"github.com/binwise/backend/internal/kafka"
	"github.com/binwise/backend/internal/logger"
	"github.com/binwise/backend/internal/pickups"
	"github.com/binwise/backend/internal/realtime"
	"github.com/binwise/backend/internal/repository/postgresql"
	"github.com/binwise/backend/internal/server"
	"github.com/binwise/backend/internal/users"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.IsProduction())
	defer func() {
		_ = log.Sync()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	database, err := db.NewDb(ctx, cfg)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()

	pickupRepo := postgresql.NewPickupRepo(database)
	userRepo := postgresql.NewUserRepo(database)
	activityRepo := postgresql.NewActivityRepo(database)
	agentRepo := postgresql.NewAgentRepo(database)
	centerRepo := postgresql.NewCenterRepo(database)
	outboxRepo := postgresql.NewOutboxTaskRepo(database)

	pickupCache := cache.NewPickupCache(pickupRepo, log)
	if err := pickupCache.LoadInitialData(ctx); err != nil {
		log.Warn("failed to warm pickup cache", zap.Error(err))
	}

	hub := realtime.NewHub(log)

	tokens := auth.NewTokenService(cfg.JWTSecret)
	authService := auth.New(userRepo, tokens)
	pickupService := pickups.New(database, pickupRepo, userRepo, activityRepo, agentRepo, pickupCache, hub, log)
	userService := users.New(database, userRepo, activityRepo, log)
	mailer := email.NewService(cfg, log)

	var producer kafka.Producer
	if cfg.KafkaBroker != "" {
		producer = kafka.NewKafkaProducer(cfg.KafkaBroker)
	} else {
		producer = kafka.NewConsoleProducer(log)
	}
	publisher := kafka.NewPublisher(database, outboxRepo, producer, kafka.PublisherConfig{
		PollInterval: 2 * time.Second,
		BatchSize:    20,
		MaxAttempts:  5,
	}, log)

	srv := server.New(server.Deps{
		Pickups:    pickupService,
		Users:      userService,
		Auth:       authService,
		Tokens:     tokens,
		Agents:     agentRepo,
		Centers:    centerRepo,
		Hub:        hub,
		Mailer:     mailer,
		Outbox:     outboxRepo,
		AuditTopic: cfg.AuditTopic,
	}, cfg.IsProduction(), log)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return srv.Run(groupCtx, cfg.Port)
	})
	group.Go(func() error {
		publisher.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		publisher.Shutdown()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("shutdown finished with error", zap.Error(err))
		return
	}
	log.Info("server gracefully stopped")
}
