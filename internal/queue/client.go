package queue

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(redisOpt asynq.RedisClientOpt, queueName string) *Client {
	return &Client{
		client: asynq.NewClient(redisOpt),
		queue:  queueName,
	}
}

func (c *Client) EnqueueNotifyEdit(ctx context.Context, payload NotifyEditPayload) (*asynq.TaskInfo, error) {
	task, err := NewNotifyEditTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.TaskID("notify:"+payload.EditID),
	)
}

func (c *Client) Close() error {
	return c.client.Close()
}
