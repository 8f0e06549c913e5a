package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/teamroster/internal/config"
	"github.com/nikhilbhutani/teamroster/internal/notify"
)

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueInvitationDelivery schedules one delivery attempt. Retries are disabled:
// invitations are delivered at most once.
func (c *Client) EnqueueInvitationDelivery(ctx context.Context, inv notify.Invitation) error {
	return c.enqueue(ctx, TypeInvitationDeliver, InvitationDeliverPayload{Invitation: inv},
		asynq.MaxRetry(0), asynq.Timeout(30*time.Second), asynq.Queue("critical"))
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload interface{}, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
