// backfill-index enqueues re-index jobs for feedback records that have no searchable
// document (missing row or missing vector). Workers in the API process the jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/insightflow/hub/internal/repository"
	"github.com/insightflow/hub/internal/service"
	"github.com/insightflow/hub/pkg/database"
)

const (
	defaultBatchSize = 500
	exitSuccess      = 0
	exitFailure      = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env for consistency with the main API server.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	batchSize := getEnvAsInt("BACKFILL_BATCH_SIZE", defaultBatchSize)

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithVectorTypes())
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	// Insert-only client: no queues are worked here.
	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	inserter := service.NewRetryingJobInserter(riverClient, service.RetryingJobInserterConfig{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
	})

	backfill := service.NewIndexBackfill(repository.NewFeedbackRecordsRepository(db), inserter, batchSize)

	enqueued, err := backfill.Run(ctx)
	if err != nil {
		slog.Error("Backfill failed", "error", err, "enqueued", enqueued)

		return exitFailure
	}

	slog.Info("Backfill complete", "enqueued", enqueued)

	fmt.Printf("Enqueued %d indexing job(s).\n", enqueued)

	return exitSuccess
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultValue
	}

	return n
}
