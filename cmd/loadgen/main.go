// Command loadgen submits generated food-waste batches to a running service
// and verifies the aggregates.
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/wastesync/internal/loadgen"
	"github.com/okian/wastesync/pkg/logger"
)

// Default configuration constants.
const (
	defaultBatches       = 1000
	defaultItemsPerBatch = 5
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultSettleTimeout = time.Minute
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	var (
		baseURL  = flag.String("url", "http://localhost:9080", "Base URL of the service")
		batches  = flag.Int("batches", defaultBatches, "Number of batches to submit")
		items    = flag.Int("items", defaultItemsPerBatch, "Foods per batch")
		workers  = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		timeout  = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		async    = flag.Bool("async", false, "Submit with async=true")
		location = flag.String("location", "", "Location query parameter")
		settle   = flag.Duration("settle", defaultSettleTimeout, "How long to wait for async batches")
		verbose  = flag.Bool("verbose", false, "Log every refused batch")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:       *baseURL,
		Batches:       *batches,
		ItemsPerBatch: *items,
		Workers:       *workers,
		Timeout:       *timeout,
		Async:         *async,
		Location:      *location,
		SettleTimeout: *settle,
		Verbose:       *verbose,
	}
	if _, err := loadgen.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
