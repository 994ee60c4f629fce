// Package collector accumulates food-waste observations and sends them as a
// single batch on an explicit Flush.
package collector

import (
	"context"
	"errors"
	"sync"

	"github.com/okian/wastesync/internal/domain/normalize"
	"github.com/okian/wastesync/pkg/metrics"
)

// SyncFunc sends one batch and reports how many records were stored.
type SyncFunc func(ctx context.Context, obs normalize.Pairs, location, sessionID string) (int, error)

// Collector buffers name to mass entries until Flush.
// Add blocks while a flush is in flight.
type Collector struct {
	mu        sync.Mutex
	sync      SyncFunc
	location  string
	sessionID string

	index map[string]int
	pairs normalize.Pairs
}

// New creates a Collector that flushes through fn.
func New(fn SyncFunc, opts ...Option) *Collector {
	c := &Collector{
		sync:  fn,
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add buffers one entry. A repeated name replaces the earlier mass but keeps
// its position.
func (c *Collector) Add(name string, mass float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(name, mass)
}

// AddBatch buffers every entry of m in ascending name order.
func (c *Collector) AddBatch(m map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range normalize.SortedPairs(m) {
		c.add(p.Name, p.Mass)
	}
}

func (c *Collector) add(name string, mass float64) {
	if i, ok := c.index[name]; ok {
		c.pairs[i].Mass = mass
		return
	}
	c.index[name] = len(c.pairs)
	c.pairs = append(c.pairs, normalize.Pair{Name: name, Mass: mass})
	metrics.AddCollectorBuffered(1)
}

// Len returns the number of buffered entries.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pairs)
}

// Snapshot returns a copy of the buffered entries in insertion order.
func (c *Collector) Snapshot() normalize.Pairs {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append(normalize.Pairs(nil), c.pairs...)
}

// Reset discards the buffer.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

func (c *Collector) clear() {
	metrics.AddCollectorBuffered(-len(c.pairs))
	c.pairs = nil
	c.index = make(map[string]int)
}

// Flush sends the buffer as one batch. The buffer is cleared when the send
// succeeds or fails with ErrNothingValid; on any other error it is kept so
// the caller can retry or Reset. Flushing an empty collector is a no-op.
func (c *Collector) Flush(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pairs) == 0 {
		return 0, nil
	}
	if c.sync == nil {
		return 0, ErrNoSyncer
	}
	n, err := c.sync(ctx, append(normalize.Pairs(nil), c.pairs...), c.location, c.sessionID)
	if err != nil {
		if errors.Is(err, ErrNothingValid) {
			c.clear()
		}
		return 0, err
	}
	c.clear()
	return n, nil
}
