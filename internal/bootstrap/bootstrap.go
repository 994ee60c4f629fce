// Package bootstrap builds the service graph from a Config. The commands
// share it so they select sinks and session strategies the same way.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/adapters/sink/dynamo"
	"github.com/okian/wastesync/internal/adapters/sink/memory"
	"github.com/okian/wastesync/internal/adapters/sink/postgres"
	"github.com/okian/wastesync/internal/adapters/sink/postgrest"
	service "github.com/okian/wastesync/internal/app"
	"github.com/okian/wastesync/internal/config"
	"github.com/okian/wastesync/internal/domain/dedupe"
	"github.com/okian/wastesync/internal/domain/normalize"
	"github.com/okian/wastesync/pkg/logger"
)

// ErrUnknownSink is returned for a sink name the bootstrap cannot build.
var ErrUnknownSink = errors.New("unknown sink")

// Logger initializes the global logger from cfg.
func Logger(cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
	}
	return nil
}

// Sink builds the sink cfg selects. The returned func releases its resources.
func Sink(ctx context.Context, cfg *config.Config) (sink.Sink, func(), error) {
	noop := func() {}
	switch cfg.Sink {
	case config.SinkPostgREST:
		if cfg.HasPlaceholderCredentials() {
			logger.Get().Warn(ctx, "supabase credentials are placeholders; set SUPABASE_URL and SUPABASE_KEY")
		}
		c := postgrest.New(cfg.SupabaseURL, cfg.SupabaseKey,
			postgrest.WithTimeout(cfg.Timeout),
			postgrest.WithDebug(cfg.LogLevel == "debug"),
		)
		return c, noop, nil
	case config.SinkPostgres:
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return postgres.NewRepository(pool), pool.Close, nil
	case config.SinkDynamoDB:
		api, err := dynamo.NewFromEnv(ctx, cfg.DynamoDBRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, noop, err
		}
		return dynamo.New(api), noop, nil
	case config.SinkMemory:
		return memory.New(), noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownSink, cfg.Sink)
	}
}

// Service builds the sync service with the sink cfg selects.
func Service(ctx context.Context, cfg *config.Config) (*service.Service, func(), error) {
	session, err := normalize.SessionStrategy(cfg.SessionStrategy, cfg.SessionPrefix)
	if err != nil {
		return nil, func() {}, err
	}
	s, closeSink, err := Sink(ctx, cfg)
	if err != nil {
		return nil, closeSink, err
	}
	normOpts := []normalize.Option{normalize.WithSessionFunc(session)}
	if cfg.CleanNames {
		normOpts = append(normOpts, normalize.WithNameCleanup())
	}
	opts := []service.Option{
		service.WithSink(cfg.Sink, s),
		service.WithTable(cfg.Table),
		service.WithNormalizer(normalize.New(normOpts...)),
		service.WithDefaultLocation(cfg.DefaultLocation),
		service.WithDryRun(cfg.DryRun),
		service.WithTimeout(cfg.Timeout),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithLogger(logger.Get().Named("sync")),
	}
	if cfg.DedupeSize > 0 {
		opts = append(opts, service.WithDedupe(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))))
	}
	return service.New(opts...), closeSink, nil
}
