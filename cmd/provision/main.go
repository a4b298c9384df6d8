// Command provision prepares backing stores before the first deploy: it
// creates the DynamoDB/YDB tables and applies the archive database migrations.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/pscheid92/voteban/internal/adapter/dynamo"
	"github.com/pscheid92/voteban/internal/adapter/postgres"
)

func main() {
	var (
		endpoint    = flag.String("dynamo-endpoint", os.Getenv("DYNAMO_ENDPOINT"), "DynamoDB/YDB endpoint (or set DYNAMO_ENDPOINT env)")
		region      = flag.String("region", envOr("AWS_REGION", "ru-central1"), "AWS region (or set AWS_REGION env)")
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Archive Postgres URL (or set DATABASE_URL env)")
		dryRun      = flag.Bool("dry-run", false, "Only check connectivity, change nothing")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *endpoint == "" && *databaseURL == "" {
		log.Fatal("Nothing to provision: set --dynamo-endpoint and/or --database")
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *endpoint != "" {
		if err := provisionDynamo(ctx, *endpoint, *region, *dryRun); err != nil {
			log.Fatalf("DynamoDB provisioning failed: %v", err)
		}
	}
	if *databaseURL != "" {
		if err := provisionArchive(ctx, *databaseURL, *dryRun); err != nil {
			log.Fatalf("Archive provisioning failed: %v", err)
		}
	}
	slog.Info("Provisioning complete", "dry_run", *dryRun)
}

func provisionDynamo(ctx context.Context, endpoint, region string, dryRun bool) error {
	client, err := dynamo.NewClient(ctx, dynamo.Options{
		Endpoint:    endpoint,
		Region:      region,
		AccessKeyID: os.Getenv("AWS_KEY_ID"),
		SecretKey:   os.Getenv("AWS_KEY"),
	})
	if err != nil {
		return err
	}

	if dryRun {
		if err := dynamo.Ping(ctx, client); err != nil {
			slog.Warn("Votings table not reachable", "endpoint", endpoint, "error", err)
			return nil
		}
		slog.Info("DynamoDB tables reachable", "endpoint", endpoint)
		return nil
	}

	if err := dynamo.EnsureTables(ctx, client); err != nil {
		return err
	}
	slog.Info("DynamoDB tables ready", "endpoint", endpoint)
	return nil
}

func provisionArchive(ctx context.Context, databaseURL string, dryRun bool) error {
	pool, err := postgres.Connect(ctx, databaseURL, nil)
	if err != nil {
		return err
	}
	defer pool.Close()
	slog.Info("Connected to archive database", "url", redact(databaseURL))

	if dryRun {
		return nil
	}
	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		return err
	}
	slog.Info("Archive migrations applied")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// redact hides the password of a connection URL for logging.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
