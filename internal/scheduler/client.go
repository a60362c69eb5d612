package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"livability_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	defaultQueue      = "default"
	warmTaskTimeout   = 2 * time.Minute
	warmTaskRetries   = 3
	warmTaskUniqueTTL = 10 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

// WarmEnqueuer schedules cache warm-up tasks.
type WarmEnqueuer interface {
	EnqueueWarm(ctx context.Context, payload WarmContextPayload) (string, error)
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return newClient(asynq.NewClient(opt), cfg.GetAsynqQueueName()), nil
}

func newClient(client *asynq.Client, queue string) *Client {
	if queue == "" {
		queue = defaultQueue
	}
	return &Client{client: client, queue: queue}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Queue returns the queue tasks are enqueued on.
func (c *Client) Queue() string {
	return c.queue
}

// EnqueueWarm enqueues a warm-up task and returns its id. Identical payloads
// enqueued within ten minutes collapse into one task.
func (c *Client) EnqueueWarm(ctx context.Context, payload WarmContextPayload) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewWarmContextTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(warmTaskRetries),
		asynq.Timeout(warmTaskTimeout),
		asynq.Unique(warmTaskUniqueTTL),
	)
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// EnqueuePurge enqueues an immediate cache purge.
func (c *Client) EnqueuePurge(ctx context.Context, payload PurgeCachePayload) (string, error) {
	if c == nil || c.client == nil {
		return "", fmt.Errorf("scheduler client not configured")
	}

	task, err := NewPurgeCacheTask(payload)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}

var _ WarmEnqueuer = (*Client)(nil)
