// Package service syncs food-waste observations to a sink. It backs both the
// HTTP API and the one-shot send command.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/wastesync/internal/adapters/mq/queue"
	"github.com/okian/wastesync/internal/adapters/mq/worker"
	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/collector"
	"github.com/okian/wastesync/internal/domain/dedupe"
	"github.com/okian/wastesync/internal/domain/model"
	"github.com/okian/wastesync/internal/domain/normalize"
	"github.com/okian/wastesync/pkg/logger"
	"github.com/okian/wastesync/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultQueueSize = 1024
	defaultLocation  = "Analysis"
	tracerName       = "github.com/okian/wastesync/internal/app"
)

// Result describes one sync.
type Result struct {
	Shape      string               `json:"shape"`
	SessionID  string               `json:"session_id"`
	Normalized int                  `json:"normalized"`
	Dropped    int                  `json:"dropped"`
	Stored     []model.StoredRecord `json:"stored,omitempty"`
	DryRun     bool                 `json:"dry_run,omitempty"`
	Queued     bool                 `json:"queued,omitempty"`
	Duplicate  bool                 `json:"duplicate,omitempty"`
}

// Total is the summed disposal mass of one food.
type Total struct {
	FoodName     string  `json:"food_name"`
	DisposalMass float64 `json:"disposal_mass"`
	Count        int     `json:"count"`
}

// Service normalizes observations and hands the batches to a sink.
type Service struct {
	mu sync.RWMutex

	sink       sink.Sink
	sinkName   string
	table      string
	normalizer *normalize.Normalizer
	dedupe     dedupe.Deduper

	defaultLocation string
	dryRun          bool
	timeout         time.Duration

	workerCount int
	queueSize   int
	queue       queue.Queue
	pool        *worker.Pool

	started bool

	batchesSynced   atomic.Int64
	batchesFailed   atomic.Int64
	recordsInserted atomic.Int64

	logger logger.Logger
	tracer trace.Tracer
}

// New constructs a Service. Without WithSink every insert fails with ErrNoSink.
func New(opts ...Option) *Service {
	s := &Service{
		table:           model.TableName,
		normalizer:      normalize.New(),
		defaultLocation: defaultLocation,
		timeout:         defaultTimeout,
		workerCount:     runtime.NumCPU(),
		queueSize:       defaultQueueSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sync")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Start starts the async queue and its workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	// Workers outlive the request that started them.
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true

	s.logger.Info(ctx, "sync service started",
		logger.String("sink", s.sinkName),
		logger.String("table", s.table),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("dryRun", s.dryRun),
	)
	return nil
}

// Stop drains the queue and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping sync service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "workers did not drain", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "sync service stopped")
}

// Sync normalizes obs and inserts the batch once. Nothing is sent when
// normalization leaves no records.
func (s *Service) Sync(ctx context.Context, obs any, opts ...SyncOption) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "Sync")
	defer span.End()

	b, res, err := s.prepare(ctx, obs, opts)
	if err != nil {
		recordSpanError(span, err)
		return res, err
	}
	span.SetAttributes(
		attribute.String("shape", res.Shape),
		attribute.Int("records", res.Normalized),
		attribute.String("session_id", res.SessionID),
	)
	if s.dryRun {
		res.DryRun = true
		s.logger.Info(ctx, fmt.Sprintf("would sync %d records", res.Normalized),
			logger.String("session_id", res.SessionID),
			logger.String("table", b.Table),
		)
		return res, nil
	}
	if s.seen(ctx, b.SessionID) {
		res.Duplicate = true
		return res, nil
	}

	stored, err := s.insert(ctx, b)
	if err != nil {
		recordSpanError(span, err)
		return res, err
	}
	res.Stored = stored
	return res, nil
}

// SyncAsync normalizes obs and queues the batch for a worker. A full queue
// returns ErrBackpressure; the batch is not kept.
func (s *Service) SyncAsync(ctx context.Context, obs any, opts ...SyncOption) (Result, error) {
	b, res, err := s.prepare(ctx, obs, opts)
	if err != nil {
		return res, err
	}
	if s.dryRun {
		res.DryRun = true
		s.logger.Info(ctx, fmt.Sprintf("would sync %d records", res.Normalized),
			logger.String("session_id", res.SessionID))
		return res, nil
	}

	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return res, ErrNotStarted
	}
	if s.seen(ctx, b.SessionID) {
		res.Duplicate = true
		return res, nil
	}
	if err := q.Enqueue(ctx, b); err != nil {
		s.forget(ctx, b.SessionID)
		if errors.Is(err, queue.ErrFull) {
			return res, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return res, err
	}
	res.Queued = true
	return res, nil
}

func (s *Service) prepare(ctx context.Context, obs any, opts []SyncOption) (model.Batch, Result, error) {
	o := syncOptions{location: s.defaultLocation}
	for _, opt := range opts {
		opt(&o)
	}

	run, err := s.normalizer.Run(obs, o.location, o.sessionID)
	if err != nil {
		metrics.RecordFormatError("unsupported")
		s.logger.Warn(ctx, "rejected batch", logger.Error(err))
		return model.Batch{}, Result{}, err
	}
	shape := run.Shape.String()
	metrics.RecordNormalized(len(run.Records))
	metrics.RecordRowsDropped(shape, run.Dropped)

	res := Result{
		Shape:      shape,
		SessionID:  run.SessionID,
		Normalized: len(run.Records),
		Dropped:    run.Dropped,
	}
	if len(run.Records) == 0 {
		s.logger.Warn(ctx, "no valid data to sync",
			logger.String("shape", shape),
			logger.Int("dropped", run.Dropped),
		)
		return model.Batch{}, res, ErrNoRecords
	}
	return model.Batch{Table: s.table, SessionID: run.SessionID, Records: run.Records}, res, nil
}

// InsertBatch sends one queued batch. It implements worker.Handler.
func (s *Service) InsertBatch(ctx context.Context, b model.Batch) error { //nolint:gocritic // hugeParam
	_, err := s.insert(ctx, b)
	return err
}

func (s *Service) insert(ctx context.Context, b model.Batch) ([]model.StoredRecord, error) { //nolint:gocritic // hugeParam
	if s.sink == nil {
		s.forget(ctx, b.SessionID)
		return nil, ErrNoSink
	}
	if err := b.Validate(); err != nil {
		s.forget(ctx, b.SessionID)
		s.batchesFailed.Add(1)
		s.logger.Error(ctx, "refusing invalid batch",
			logger.String("session_id", b.SessionID),
			logger.Error(err),
		)
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "Insert",
		trace.WithAttributes(attribute.String("sink", s.sinkName), attribute.Int("records", b.Len())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	stored, err := s.sink.Insert(ctx, b.Table, b.Records)
	metrics.RecordSinkLatency(s.sinkName, float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.forget(ctx, b.SessionID)
		s.batchesFailed.Add(1)
		metrics.RecordBatchFailed(s.sinkName)
		recordSpanError(span, err)
		s.logger.Error(ctx, "sync failed",
			logger.String("sink", s.sinkName),
			logger.String("session_id", b.SessionID),
			logger.Int("records", b.Len()),
			logger.Error(err),
		)
		return nil, err
	}

	s.batchesSynced.Add(1)
	s.recordsInserted.Add(int64(b.Len()))
	metrics.RecordBatchSynced(s.sinkName, b.Len())
	s.logger.Info(ctx, fmt.Sprintf("synced %d food waste records", b.Len()),
		logger.String("sink", s.sinkName),
		logger.String("session_id", b.SessionID),
	)
	return stored, nil
}

// seen reports whether a batch with this session id was already accepted.
func (s *Service) seen(ctx context.Context, sessionID string) bool {
	if s.dedupe == nil || !s.dedupe.SeenAndRecord(ctx, sessionID) {
		return false
	}
	metrics.RecordDuplicate()
	s.logger.Info(ctx, "skipping duplicate batch", logger.String("session_id", sessionID))
	return true
}

// forget lets a batch that was not stored be sent again.
func (s *Service) forget(ctx context.Context, sessionID string) {
	if s.dedupe != nil {
		s.dedupe.Unrecord(ctx, sessionID)
	}
}

// Collector returns a buffer whose Flush syncs through this service.
func (s *Service) Collector(location string, opts ...collector.Option) *collector.Collector {
	flush := func(ctx context.Context, pairs normalize.Pairs, loc, sessionID string) (int, error) {
		res, err := s.Sync(ctx, pairs, WithLocation(loc), WithSessionID(sessionID))
		if errors.Is(err, ErrNoRecords) {
			err = fmt.Errorf("%w: %w", collector.ErrNothingValid, err)
		}
		return res.Normalized, err
	}
	opts = append([]collector.Option{collector.WithLocation(location)}, opts...)
	return collector.New(flush, opts...)
}

// TestConnection checks that the sink is reachable.
func (s *Service) TestConnection(ctx context.Context) error {
	if s.sink == nil {
		return ErrNoSink
	}
	p, ok := s.sink.(sink.Pinger)
	if !ok {
		return fmt.Errorf("ping %s: %w", s.sinkName, sink.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx, s.table); err != nil {
		s.logger.Error(ctx, "database connection failed", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "database connection successful", logger.String("sink", s.sinkName))
	return nil
}

// Recent returns stored rows created at or after since, newest first.
func (s *Service) Recent(ctx context.Context, since time.Time, limit int) ([]model.StoredRecord, error) {
	if s.sink == nil {
		return nil, ErrNoSink
	}
	r, ok := s.sink.(sink.Reader)
	if !ok {
		return nil, fmt.Errorf("read %s: %w", s.sinkName, sink.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return r.Recent(ctx, s.table, since, limit)
}

// Aggregate sums disposal mass per food since a time, largest first.
func (s *Service) Aggregate(ctx context.Context, since time.Time) ([]Total, error) {
	rows, err := s.Recent(ctx, since, 0)
	if err != nil {
		return nil, err
	}
	return Aggregate(rows), nil
}

// Aggregate sums rows per food name. Ties are ordered by name.
func Aggregate(rows []model.StoredRecord) []Total {
	index := make(map[string]int)
	var out []Total
	for _, r := range rows {
		i, ok := index[r.FoodName]
		if !ok {
			i = len(out)
			index[r.FoodName] = i
			out = append(out, Total{FoodName: r.FoodName})
		}
		out[i].DisposalMass += r.DisposalMass
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisposalMass != out[j].DisposalMass {
			return out[i].DisposalMass > out[j].DisposalMass
		}
		return out[i].FoodName < out[j].FoodName
	})
	return out
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"sink":            s.sinkName,
		"table":           s.table,
		"dryRun":          s.dryRun,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"batchesSynced":   s.batchesSynced.Load(),
		"batchesFailed":   s.batchesFailed.Load(),
		"recordsInserted": s.recordsInserted.Load(),
	}
	if s.dedupe != nil {
		stats["dedupeSize"] = s.dedupe.Size()
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
	}
	return stats
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
