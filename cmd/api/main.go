package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outreach_backend/internal/booking"
	"outreach_backend/internal/campaign"
	"outreach_backend/internal/composer"
	"outreach_backend/internal/conversation"
	"outreach_backend/internal/events"
	apphttp "outreach_backend/internal/http"
	"outreach_backend/internal/http/router"
	"outreach_backend/internal/outbound"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/ai/openai"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	events.RegisterLogging(eventBus, log)

	sender, err := outbound.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	tenantRepo := tenant.NewRepository(pool)
	conversationRepo := conversation.NewRepository(pool)

	resolver := tenant.NewResolver(tenantRepo, conversationRepo)
	dispatcher := outbound.NewDispatcher(sender, conversationRepo, cfg, log)
	replyComposer := composer.New(openai.NewClient(cfg), log)

	dedup, closeRedis := initDeduper(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	conversationService := conversation.NewService(
		conversationRepo, resolver, tenantRepo, replyComposer, dispatcher,
		dedup, eventBus, cfg, log,
	)
	conversationModule := conversation.NewModule(
		conversation.NewHandler(conversationService, val, log),
	)

	bookingService := booking.NewService(conversationRepo, booking.NewRepository(pool), eventBus, log)
	bookingModule := booking.NewModule(booking.NewHandler(bookingService, log))

	campaignQueue, closeQueue := initCampaignQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}
	campaignService := campaign.NewService(conversationRepo, campaignQueue, cfg.CampaignBatchLimit, log)
	campaignModule := campaign.NewModule(campaign.NewHandler(campaignService, log))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			conversationModule,
			bookingModule,
			campaignModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initDeduper(cfg *config.Config, log *logger.Logger) (conversation.Deduper, func()) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		log.Warn("REDIS_URL not configured; inbound dedup relies on the database only")
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error("failed to parse redis url; inbound dedup disabled", "error", err)
		return nil, nil
	}

	client := redis.NewClient(opt)
	return conversation.NewRedisDeduper(client, cfg.GetDedupTTL()), func() {
		_ = client.Close()
	}
}

func initCampaignQueue(cfg config.SchedulerConfig, log *logger.Logger) (campaign.Enqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; campaign kickoff disabled")
		return disabledQueue{}, nil
	}

	client, err := campaign.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize campaign queue client", "error", err)
		return disabledQueue{}, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

type disabledQueue struct{}

func (disabledQueue) EnqueueInitialOutreach(context.Context, campaign.InitialOutreachPayload) error {
	return fmt.Errorf("campaign queue not configured")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
