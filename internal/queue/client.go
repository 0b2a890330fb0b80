// Package queue schedules delayed checkout work on asynq.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Client wraps the asynq client used by the API.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(redisAddr)), queue: DefaultQueue}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// SchedulePaymentTimeout enqueues a payment:timeout task for orderID to run
// after delay. Scheduling the same order twice keeps the first task.
func (c *Client) SchedulePaymentTimeout(ctx context.Context, orderID string, delay time.Duration) error {
	if delay < 0 {
		delay = 0
	}
	task, err := NewPaymentTimeoutTask(PaymentTimeoutPayload{OrderID: orderID})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.ProcessIn(delay),
		asynq.TaskID(paymentTimeoutTaskID(orderID)),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func RedisOpt(addr string) asynq.RedisClientOpt {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return asynq.RedisClientOpt{Addr: addr}
}

// BuildServerConfig returns the worker side settings.
func BuildServerConfig(redisAddr string, concurrency int) (asynq.RedisClientOpt, asynq.Config) {
	if concurrency <= 0 {
		concurrency = 10
	}
	return RedisOpt(redisAddr), asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DefaultQueue: 1},
	}
}
