package scheduler

import (
	"context"
	"fmt"
	"time"

	"livability_backend/platform/config"
	"livability_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// ContextWarmer pulls provider data for a location into the caches.
type ContextWarmer interface {
	WarmContext(ctx context.Context, payload WarmContextPayload) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	warmer ContextWarmer
	purge  *CachePurge
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, warmer ContextWarmer, purge *CachePurge, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = defaultQueue
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := newWorker(warmer, purge, log)
	w.server = server
	return w, nil
}

func newWorker(warmer ContextWarmer, purge *CachePurge, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:    mux,
		warmer: warmer,
		purge:  purge,
		log:    log,
	}

	mux.HandleFunc(TaskWarmContext, w.handleWarmContext)
	mux.HandleFunc(TaskPurgeCache, w.handlePurgeCache)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleWarmContext(ctx context.Context, task *asynq.Task) error {
	if w.warmer == nil {
		return nil
	}

	payload, err := ParseWarmContextPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return w.warmer.WarmContext(ctx, payload)
}

func (w *Worker) handlePurgeCache(ctx context.Context, task *asynq.Task) error {
	if w.purge == nil {
		return nil
	}

	payload, err := ParsePurgeCachePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	grace := w.purge.grace
	if payload.GraceSeconds > 0 {
		grace = time.Duration(payload.GraceSeconds) * time.Second
	}

	_, err = w.purge.Purge(ctx, grace)
	return err
}
