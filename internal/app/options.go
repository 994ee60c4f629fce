package service

import (
	"time"

	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/dedupe"
	"github.com/okian/wastesync/internal/domain/normalize"
	"github.com/okian/wastesync/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSink sets the sink and the name it is reported under.
func WithSink(name string, s sink.Sink) Option {
	return func(svc *Service) {
		svc.sink = s
		svc.sinkName = name
	}
}

// WithTable sets the destination table.
func WithTable(table string) Option {
	return func(s *Service) {
		if table != "" {
			s.table = table
		}
	}
}

// WithNormalizer replaces the default normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithDedupe skips batches whose session id was already accepted. A batch
// that fails to insert is forgotten so it can be sent again.
func WithDedupe(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.dedupe = d
	}
}

// WithDefaultLocation sets the location used when a sync names none.
func WithDefaultLocation(location string) Option {
	return func(s *Service) {
		s.defaultLocation = location
	}
}

// WithDryRun logs batches instead of inserting them.
func WithDryRun(on bool) Option {
	return func(s *Service) {
		s.dryRun = on
	}
}

// WithTimeout bounds each sink call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithWorkerCount sets the number of async workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the async queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracerProvider sets where spans are sent.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

type syncOptions struct {
	location  string
	sessionID string
}

// SyncOption adjusts a single sync.
type SyncOption func(*syncOptions)

// WithLocation overrides the default location. Empty keeps the default.
func WithLocation(location string) SyncOption {
	return func(o *syncOptions) {
		if location != "" {
			o.location = location
		}
	}
}

// WithSessionID fixes the session id instead of generating one.
func WithSessionID(id string) SyncOption {
	return func(o *syncOptions) {
		o.sessionID = id
	}
}
