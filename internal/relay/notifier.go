package relay

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"outreach-dialer/pkg/utils"
)

// Notifier hands session events to the workflow relay. Delivery is
// fire-and-forget from the caller's point of view: the event goes to an
// outbox and a worker retries delivery.
type Notifier interface {
	SessionStarted(ctx context.Context, ev SessionStarted) error
}

// Enqueuer is the slice of *asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type QueueNotifier struct {
	enq      Enqueuer
	queue    string
	maxRetry int
	closer   func() error
}

type QueueConfig struct {
	Queue    string
	MaxRetry int
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Queue == "" {
		c.Queue = "relay"
	}
	if c.MaxRetry <= 0 {
		c.MaxRetry = 8
	}
	return c
}

func NewQueueNotifier(enq Enqueuer, cfg QueueConfig) *QueueNotifier {
	cfg = cfg.withDefaults()
	return &QueueNotifier{enq: enq, queue: cfg.Queue, maxRetry: cfg.MaxRetry}
}

// NewRedisQueueNotifier opens an asynq client on the shared Redis.
func NewRedisQueueNotifier(redisCfg utils.RedisConfig, cfg QueueConfig) *QueueNotifier {
	client := asynq.NewClient(RedisClientOpt(redisCfg))
	n := NewQueueNotifier(client, cfg)
	n.closer = client.Close
	return n
}

func (n *QueueNotifier) SessionStarted(ctx context.Context, ev SessionStarted) error {
	if n == nil || n.enq == nil {
		return errors.New("relay: notifier not configured")
	}
	task, err := NewSessionStartedTask(ev)
	if err != nil {
		return err
	}
	_, err = n.enq.EnqueueContext(ctx, task, asynq.Queue(n.queue), asynq.MaxRetry(n.maxRetry))
	return err
}

func (n *QueueNotifier) Close() error {
	if n == nil || n.closer == nil {
		return nil
	}
	return n.closer()
}

func RedisClientOpt(c utils.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
		PoolSize:     c.PoolSize,
	}
}

// NoopNotifier drops events. Used when no relay is configured.
type NoopNotifier struct{}

func (NoopNotifier) SessionStarted(context.Context, SessionStarted) error { return nil }
