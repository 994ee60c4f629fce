// Package loadgen drives a running wastesync service with generated batches
// and checks that the aggregates account for them.
package loadgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/wastesync/pkg/logger"
)

const (
	aggregateHours = 1
	pollInterval   = 200 * time.Millisecond
)

// ErrIncomplete reports that some batches were not accepted.
var ErrIncomplete = errors.New("not every batch was accepted")

// Run executes a complete load run.
func Run(ctx context.Context, cfg *Config) (Stats, error) {
	stats := Stats{StartTime: time.Now()}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	logger.Get().Info(ctx, "starting wastesync load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("batches", cfg.Batches),
		logger.Int("itemsPerBatch", cfg.ItemsPerBatch),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	batches := generateBatches(cfg.Batches, cfg.ItemsPerBatch)
	stats.BatchesGenerated = len(batches)

	submitBatches(ctx, cfg, c, batches, &stats)
	if accepted := stats.BatchesSynced + stats.BatchesQueued; accepted != len(batches) {
		return finish(ctx, stats), fmt.Errorf("%w: %d of %d", ErrIncomplete, accepted, len(batches))
	}

	expected := expectedTotals(batches)
	if err := waitForTotals(ctx, cfg, c, expected); err != nil {
		return finish(ctx, stats), fmt.Errorf("result verification failed: %w", err)
	}
	stats.FoodsVerified = len(expected)

	stats = finish(ctx, stats)
	logger.Get().Info(ctx, "load run completed successfully")
	return stats, nil
}

// waitForTotals polls the aggregate until it covers expected. Synchronous
// runs get a single attempt.
func waitForTotals(ctx context.Context, cfg *Config, c *client, expected map[string]float64) error {
	deadline := time.Now()
	if cfg.Async {
		deadline = deadline.Add(cfg.SettleTimeout)
	}
	for {
		totals, err := c.aggregate(ctx, aggregateHours)
		if err != nil {
			return err
		}
		err = verifyTotals(expected, totals)
		if err == nil || !time.Now().Before(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func finish(ctx context.Context, stats Stats) Stats {
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	var batchesPerSecond float64
	if stats.Duration > 0 {
		batchesPerSecond = float64(stats.BatchesSubmitted) / stats.Duration.Seconds()
	}
	logger.Get().Info(ctx, "final statistics",
		logger.Int("batchesGenerated", stats.BatchesGenerated),
		logger.Int("batchesSubmitted", stats.BatchesSubmitted),
		logger.Int("batchesSynced", stats.BatchesSynced),
		logger.Int("batchesQueued", stats.BatchesQueued),
		logger.Int("batchesRejected", stats.BatchesRejected),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("foodsVerified", stats.FoodsVerified),
		logger.Duration("duration", stats.Duration),
		logger.Float64("batchesPerSecond", batchesPerSecond))
	return stats
}
