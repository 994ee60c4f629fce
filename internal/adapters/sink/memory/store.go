// Package memory is an in-process sink. It backs dry runs and tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/okian/wastesync/internal/adapters/sink"
	"github.com/okian/wastesync/internal/domain/model"
)

// Store keeps inserted rows per table in insertion order.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]model.StoredRecord
	nextID int64
	calls  int
	now    func() time.Time
	fail   error
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string][]model.StoredRecord),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert appends records with sequential ids.
func (s *Store) Insert(ctx context.Context, table string, records []model.Record) ([]model.StoredRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail != nil {
		return nil, s.fail
	}

	now := s.now().UTC()
	out := make([]model.StoredRecord, len(records))
	for i, r := range records {
		s.nextID++
		out[i] = model.StoredRecord{Record: r, ID: strconv.FormatInt(s.nextID, 10), CreatedAt: now}
	}
	s.tables[table] = append(s.tables[table], out...)
	return append([]model.StoredRecord(nil), out...), nil
}

// Ping always succeeds unless a failure was configured.
func (s *Store) Ping(context.Context, string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return s.fail
	}
	return nil
}

// Recent returns rows created at or after since, newest first.
func (s *Store) Recent(_ context.Context, table string, since time.Time, limit int) ([]model.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.tables[table]
	out := make([]model.StoredRecord, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if !rows[i].CreatedAt.Before(since) {
			out = append(out, rows[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rows returns every row of table in insertion order.
func (s *Store) Rows(table string) []model.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.StoredRecord(nil), s.tables[table]...)
}

// Calls returns how many times Insert was called.
func (s *Store) Calls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// SetFailure makes every following call return err; nil clears it.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

var (
	_ sink.Sink   = (*Store)(nil)
	_ sink.Pinger = (*Store)(nil)
	_ sink.Reader = (*Store)(nil)
)
