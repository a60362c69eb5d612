package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"livability_backend/internal/cachestore"
	"livability_backend/platform/logger"

	"github.com/jonboulle/clockwork"
)

const (
	defaultCachePurgeInterval = 6 * time.Hour
	defaultCachePurgeGrace    = 7 * 24 * time.Hour
)

// NamedPurger is one cache table that can drop its expired rows.
type NamedPurger struct {
	Name   string
	Purger cachestore.Purger
}

// CachePurge periodically removes cache rows that expired longer than the
// grace period ago. Readers filter on expiry themselves; this only bounds
// table growth.
type CachePurge struct {
	purgers  []NamedPurger
	clock    clockwork.Clock
	log      *logger.Logger
	interval time.Duration
	grace    time.Duration
}

func NewCachePurge(purgers []NamedPurger, clock clockwork.Clock, log *logger.Logger, interval, grace time.Duration) *CachePurge {
	if interval <= 0 {
		interval = defaultCachePurgeInterval
	}
	if grace < 0 {
		grace = defaultCachePurgeGrace
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &CachePurge{
		purgers:  purgers,
		clock:    clock,
		log:      log,
		interval: interval,
		grace:    grace,
	}
}

func (c *CachePurge) Run(ctx context.Context) {
	if c == nil || len(c.purgers) == 0 {
		return
	}

	_, _ = c.Purge(ctx, c.grace)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			_, _ = c.Purge(ctx, c.grace)
		}
	}
}

// Purge deletes rows expired before now minus grace from every table and
// returns the total removed. A failing table does not stop the others.
func (c *CachePurge) Purge(ctx context.Context, grace time.Duration) (int64, error) {
	before := c.clock.Now().Add(-grace)

	var total int64
	var errs []error
	for _, p := range c.purgers {
		deleted, err := p.Purger.PurgeExpired(ctx, before)
		if err != nil {
			c.log.Warn("cache purge failed", "table", p.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name, err))
			continue
		}
		if deleted > 0 {
			c.log.Info("cache purge deleted expired rows", "table", p.Name, "deleted", deleted)
		}
		total += deleted
	}
	return total, errors.Join(errs...)
}
