// Package sink defines the contract for persisting canonical record batches.
//
// A Sink receives each batch exactly once; retries are left to the caller.
// Implementations live in the subpackages.
package sink

import (
	"context"
	"time"

	"github.com/okian/wastesync/internal/domain/model"
)

// Sink inserts a batch of records into a table.
type Sink interface {
	// Insert stores records and returns them as stored, with ids and
	// creation times assigned by the backend.
	Insert(ctx context.Context, table string, records []model.Record) ([]model.StoredRecord, error)
}

// Pinger is implemented by sinks that can test their connection to a table.
type Pinger interface {
	Ping(ctx context.Context, table string) error
}

// Reader is implemented by sinks that can read back recent rows, newest first.
type Reader interface {
	Recent(ctx context.Context, table string, since time.Time, limit int) ([]model.StoredRecord, error)
}
