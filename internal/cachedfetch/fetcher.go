// Package cachedfetch implements the read-through path shared by every
// provider client: in-process tier, persistent tier, then the live provider.
// Provider failures never reach the caller; they are logged, counted and
// reported as an absent result.
package cachedfetch

import (
	"context"
	"time"

	"livability_backend/internal/cachestore"
	"livability_backend/platform/logger"
	"livability_backend/platform/observability"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const (
	tierMemory     = "memory"
	tierPersistent = "persistent"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"

	outcomeSuccess = "success"
	outcomeEmpty   = "empty"
	outcomeError   = "error"
)

// LoadFunc fetches a payload from the live provider. A nil payload with a nil
// error means the provider legitimately has no data for the key.
type LoadFunc[T any] func(ctx context.Context) (*T, error)

// Options configures one Fetcher.
type Options struct {
	// Source names the provider in logs and metric labels.
	Source string
	// TTL is how long a fetched payload stays valid in the persistent tier.
	TTL time.Duration
	// LoadTimeout bounds one shared provider call. Zero leaves it to the
	// provider's HTTP client.
	LoadTimeout time.Duration
}

// Fetcher is the two-tier cache in front of one provider.
type Fetcher[T any] struct {
	source      string
	ttl         time.Duration
	loadTimeout time.Duration
	memory      cachestore.Store[T]
	persistent  cachestore.Store[T]
	clock       clockwork.Clock
	group       singleflight.Group
	log         *logger.Logger
	metrics     *observability.Metrics
}

// New creates a Fetcher. persistent may be nil, in which case only the
// in-process tier is used.
func New[T any](opts Options, memory, persistent cachestore.Store[T], clock clockwork.Clock, log *logger.Logger, metrics *observability.Metrics) *Fetcher[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if memory == nil {
		memory = cachestore.NewMemory[T](clock, 0)
	}
	return &Fetcher[T]{
		source:      opts.Source,
		ttl:         opts.TTL,
		loadTimeout: opts.LoadTimeout,
		memory:      memory,
		persistent:  persistent,
		clock:       clock,
		log:         log.WithSource(opts.Source),
		metrics:     metrics,
	}
}

// Fetch returns the cached or freshly loaded entry for key, or nil when the
// provider has no data or could not be reached. Concurrent calls for the same
// key share one upstream request; each caller stops waiting when its own ctx
// is done, without cancelling the shared request for the others.
func (f *Fetcher[T]) Fetch(ctx context.Context, key string, load LoadFunc[T]) *cachestore.Entry[T] {
	if entry := f.lookup(ctx, tierMemory, f.memory, key); entry != nil {
		return entry
	}

	if f.persistent != nil {
		if entry := f.lookup(ctx, tierPersistent, f.persistent, key); entry != nil {
			f.write(ctx, tierMemory, f.memory, *entry)
			return entry
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	ch := f.group.DoChan(key, func() (any, error) {
		loadCtx, cancel := f.loadContext(ctx)
		defer cancel()
		return f.loadAndStore(loadCtx, key, load), nil
	})
	select {
	case res := <-ch:
		entry, _ := res.Val.(*cachestore.Entry[T])
		return entry
	case <-ctx.Done():
		f.log.WithContext(ctx).Debug("caller stopped waiting for provider", "key", key, "error", ctx.Err())
		return nil
	}
}

// loadContext keeps the caller's values but not its cancellation. The shared
// load is bounded by LoadTimeout instead.
func (f *Fetcher[T]) loadContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if f.loadTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, f.loadTimeout)
}

func (f *Fetcher[T]) loadAndStore(ctx context.Context, key string, load LoadFunc[T]) *cachestore.Entry[T] {
	start := f.clock.Now()
	payload, err := load(ctx)
	f.observeDuration(f.clock.Since(start))

	if err != nil {
		f.countProvider(outcomeError)
		f.log.WithContext(ctx).ProviderFailure(f.source, key, err)
		return nil
	}
	if payload == nil {
		f.countProvider(outcomeEmpty)
		f.log.WithContext(ctx).Debug("provider returned no data", "key", key)
		return nil
	}
	f.countProvider(outcomeSuccess)

	now := f.clock.Now().UTC()
	entry := cachestore.Entry[T]{
		Key:         key,
		Payload:     *payload,
		RetrievedAt: now,
		ExpiresAt:   now.Add(f.ttl),
	}

	if f.persistent != nil {
		f.write(ctx, tierPersistent, f.persistent, entry)
	}
	f.write(ctx, tierMemory, f.memory, entry)
	return &entry
}

func (f *Fetcher[T]) lookup(ctx context.Context, tier string, store cachestore.Store[T], key string) *cachestore.Entry[T] {
	entry, err := store.Get(ctx, key)
	switch {
	case err != nil:
		f.countLookup(tier, resultError)
		f.log.WithContext(ctx).CacheError(f.source, tier, "get", err)
		return nil
	case entry == nil:
		f.countLookup(tier, resultMiss)
		return nil
	default:
		f.countLookup(tier, resultHit)
		return entry
	}
}

func (f *Fetcher[T]) write(ctx context.Context, tier string, store cachestore.Store[T], entry cachestore.Entry[T]) {
	if err := store.Upsert(ctx, entry); err != nil {
		f.log.WithContext(ctx).CacheError(f.source, tier, "upsert", err)
	}
}

func (f *Fetcher[T]) countLookup(tier, result string) {
	if f.metrics == nil {
		return
	}
	f.metrics.CacheLookups.WithLabelValues(f.source, tier, result).Inc()
}

func (f *Fetcher[T]) countProvider(outcome string) {
	if f.metrics == nil {
		return
	}
	f.metrics.ProviderRequests.WithLabelValues(f.source, outcome).Inc()
}

func (f *Fetcher[T]) observeDuration(d time.Duration) {
	if f.metrics == nil {
		return
	}
	f.metrics.ProviderDuration.WithLabelValues(f.source).Observe(d.Seconds())
}
