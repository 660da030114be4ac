package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"lending_crm_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	client *asynq.Client
	queue  string
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

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueRecomputeAges(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRecomputeAgesTask(RecomputeAgesPayload{RequestedAt: time.Now()})
	if err != nil {
		return err
	}

	// Fixed task ID dedupes repeat enqueues within the retention window.
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.TaskID(TaskRecomputeAges),
		asynq.Retention(time.Minute),
	)
	if err == asynq.ErrTaskIDConflict {
		return nil
	}
	return err
}

func (c *Client) EnqueueRecomputeLenderStats(ctx context.Context, lenderCode string) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewRecomputeLenderStatsTask(RecomputeLenderStatsPayload{
		RequestedAt: time.Now(),
		LenderCode:  lenderCode,
	})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue))
	return err
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
