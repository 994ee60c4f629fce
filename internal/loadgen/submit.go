package loadgen

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/wastesync/pkg/logger"
)

// submitBatches posts batches with a pool of cfg.Workers goroutines.
func submitBatches(ctx context.Context, cfg *Config, c *client, batches []Batch, stats *Stats) {
	logger.Get().Info(ctx, "submitting batches",
		logger.Int("batches", len(batches)),
		logger.Int("workers", cfg.Workers),
		logger.Bool("async", cfg.Async))

	var submitted, synced, queued, rejected, failed atomic.Int64

	ch := make(chan Batch, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range ch {
				status, err := c.submit(ctx, b, cfg.Async, cfg.Location)
				submitted.Add(1)
				switch {
				case err != nil:
					failed.Add(1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "submit failed", logger.String("session_id", b.SessionID), logger.Error(err))
					}
				case status == http.StatusOK:
					synced.Add(1)
				case status == http.StatusAccepted:
					queued.Add(1)
				case status == http.StatusTooManyRequests:
					rejected.Add(1)
				default:
					failed.Add(1)
					if cfg.Verbose {
						logger.Get().Warn(ctx, "batch refused", logger.String("session_id", b.SessionID), logger.Int("status", status))
					}
				}
			}
		}()
	}

	go func() {
		defer close(ch)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case ch <- b:
			}
		}
	}()
	wg.Wait()

	stats.BatchesSubmitted = int(submitted.Load())
	stats.BatchesSynced = int(synced.Load())
	stats.BatchesQueued = int(queued.Load())
	stats.BatchesRejected = int(rejected.Load())
	stats.BatchesFailed = int(failed.Load())

	logger.Get().Info(ctx, "batch submission completed",
		logger.Int("synced", stats.BatchesSynced),
		logger.Int("queued", stats.BatchesQueued),
		logger.Int("rejected", stats.BatchesRejected),
		logger.Int("failed", stats.BatchesFailed))
}
