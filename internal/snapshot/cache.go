// Package snapshot loads the GST registration snapshot from files, SQLite,
// or Postgres and serves it read-only to the filter pipeline.
package snapshot

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gst-filter/internal/model"
)

// ErrEmptySnapshot is returned when a store has never been loaded.
var ErrEmptySnapshot = eris.New("snapshot: no snapshot loaded")

// Source produces a full snapshot batch.
type Source interface {
	Batch(ctx context.Context) (model.Batch, error)
}

// Cache loads a Source once and hands every caller its own copy.
// Concurrent callers during a load wait for the same load. A zero TTL
// keeps the snapshot for the life of the process.
type Cache struct {
	src Source
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	batch    *model.Batch
	loadedAt time.Time
}

// NewCache wraps src.
func NewCache(src Source, ttl time.Duration) *Cache {
	return &Cache{src: src, ttl: ttl, now: time.Now}
}

// Batch returns a deep copy of the cached snapshot, loading it on first use
// or after the TTL has passed. Failed loads are not cached.
func (c *Cache) Batch(ctx context.Context) (model.Batch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.batch == nil || c.expired() {
		start := c.now()
		b, err := c.src.Batch(ctx)
		if err != nil {
			return model.Batch{}, err
		}
		c.batch = &b
		c.loadedAt = c.now()
		zap.L().Info("snapshot loaded",
			zap.Int("records", b.Len()),
			zap.Bool("has_pincode_status", b.HasPincodeStatus),
			zap.Bool("has_business_type", b.HasBusinessType),
			zap.Duration("elapsed", c.loadedAt.Sub(start)),
		)
	}
	return c.batch.Clone(), nil
}

// Invalidate drops the cached snapshot so the next call reloads it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.batch = nil
	c.mu.Unlock()
}

func (c *Cache) expired() bool {
	return c.ttl > 0 && c.now().Sub(c.loadedAt) >= c.ttl
}
