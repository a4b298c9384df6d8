package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/voteban/internal/adapter/dynamo"
	"github.com/pscheid92/voteban/internal/adapter/httpserver"
	"github.com/pscheid92/voteban/internal/adapter/metrics"
	"github.com/pscheid92/voteban/internal/adapter/moderation"
	"github.com/pscheid92/voteban/internal/adapter/postgres"
	"github.com/pscheid92/voteban/internal/adapter/redis"
	"github.com/pscheid92/voteban/internal/adapter/telegram"
	"github.com/pscheid92/voteban/internal/app"
	"github.com/pscheid92/voteban/internal/domain"
	"github.com/pscheid92/voteban/internal/platform/config"
	"github.com/pscheid92/voteban/internal/platform/logging"
	"github.com/pscheid92/voteban/internal/platform/version"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

type stores struct {
	votings domain.VotingRepository
	stats   domain.UserStatsRepository
	health  httpserver.HealthCheck
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func setupRedis(cfg *config.Config, storeMetrics *metrics.StoreMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(storeMetrics))
	if err != nil {
		fatal("Failed to connect to Redis", err)
	}
	return client
}

func setupStores(cfg *config.Config, rdb *goredis.Client, storeMetrics *metrics.StoreMetrics) stores {
	if cfg.StoreBackend == config.BackendRedis {
		slog.Info("Using Redis record store")
		return stores{
			votings: redis.NewVotingRepo(rdb),
			stats:   redis.NewUserStatsRepo(rdb),
			health:  httpserver.HealthCheck{Name: "redis_store", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := dynamo.NewClient(ctx, dynamo.Options{
		Endpoint:    cfg.DynamoEndpoint,
		Region:      cfg.AWSRegion,
		AccessKeyID: cfg.AWSKeyID,
		SecretKey:   cfg.AWSKey,
	})
	if err != nil {
		fatal("Failed to create DynamoDB client", err)
	}

	if cfg.IsDevelopment() {
		if err := dynamo.EnsureTables(ctx, client); err != nil {
			fatal("Failed to create DynamoDB tables", err)
		}
	}

	slog.Info("Using DynamoDB record store", "endpoint", cfg.DynamoEndpoint, "region", cfg.AWSRegion)
	return stores{
		votings: dynamo.NewVotingRepo(client, storeMetrics),
		stats:   dynamo.NewUserStatsRepo(client, storeMetrics),
		health:  httpserver.HealthCheck{Name: "dynamo", Check: dynamoCheck(client)},
	}
}

func dynamoCheck(client *dynamodb.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error { return dynamo.Ping(ctx, client) }
}

// setupArchive connects the optional resolution archive. It returns nils when DATABASE_URL is unset.
func setupArchive(cfg *config.Config, storeMetrics *metrics.StoreMetrics) (*pgxpool.Pool, *postgres.ResolutionArchive) {
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set, resolution archive disabled")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(storeMetrics))
	if err != nil {
		fatal("Failed to connect to database", err)
	}
	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		fatal("Failed to run migrations", err)
	}
	return pool, postgres.NewResolutionArchive(pool)
}

func setupTelegram(cfg *config.Config) *telegram.Client {
	client, err := telegram.NewClient(cfg.BotToken)
	if err != nil {
		fatal("Failed to create Telegram client", err)
	}

	if cfg.WebhookURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := client.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			fatal("Failed to register webhook", err)
		}
		slog.Info("Webhook registered", "url", cfg.WebhookURL)
	}
	return client
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", append(version.Get().LogAttrs(), "env", cfg.AppEnv, "port", cfg.Port)...)

	registry := metrics.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(registry)
	voteMetrics := metrics.NewVoteMetrics(registry)
	intakeMetrics := metrics.NewIntakeMetrics(registry)
	cleanupMetrics := metrics.NewCleanupMetrics(registry)

	rdb := setupRedis(cfg, storeMetrics)
	defer func() { _ = rdb.Close() }()

	st := setupStores(cfg, rdb, storeMetrics)

	healthChecks := []httpserver.HealthCheck{
		{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	}
	if cfg.StoreBackend != config.BackendRedis {
		healthChecks = append(healthChecks, st.health)
	}

	var archive domain.ResolutionArchive
	pool, pgArchive := setupArchive(cfg, storeMetrics)
	if pool != nil {
		defer pool.Close()
		archive = pgArchive
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	classifier := moderation.NewClient(moderation.Config{
		URL:           cfg.ModerationURL,
		Token:         cfg.ModerationToken,
		RatePerSecond: cfg.ModerationRate,
		Burst:         max(1, int(cfg.ModerationRate)),
	}, metrics.NewModerationMetrics(registry))

	chat := setupTelegram(cfg)

	engine := app.NewVotingEngine(st.votings, clock, voteMetrics)
	resolver := app.NewResolver(chat, archive, cfg.AdminChatID, voteMetrics)
	scheduler := app.NewCleanupScheduler(redis.NewCleanupQueue(rdb), clock, cleanupMetrics)
	intake := app.NewIntake(app.IntakeConfig{
		TargetChatID: cfg.TargetChatID,
		AdminChatID:  cfg.AdminChatID,
		MinVotes:     cfg.MinVotes,
		CleanupDelay: cfg.CleanupDelay,
	}, st.stats, classifier, chat, engine, scheduler, intakeMetrics, voteMetrics)
	dispatcher := app.NewDispatcher(cfg.TargetChatID, intake, engine, resolver, chat, intakeMetrics)

	sweeper := app.NewCleanupSweeper(redis.NewCleanupQueue(rdb), chat, app.NewLeaderElector(rdb, instanceID()), clock, cleanupMetrics)

	srv := httpserver.NewServer(httpserver.Config{
		Port:           cfg.Port,
		Webhook:        telegram.NewWebhookHandler(cfg.WebhookSecret, dispatcher),
		MetricsHandler: metrics.Handler(registry),
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		HealthChecks:   healthChecks,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		sweeper.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start() }()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server error", "error", err)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}
	<-sweeperDone
	slog.Info("Shutdown complete")
}
