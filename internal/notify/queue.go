package notify

import (
	"context"
	"fmt"
)

// Enqueuer hands an invitation to the background worker.
type Enqueuer interface {
	EnqueueInvitationDelivery(ctx context.Context, inv Invitation) error
}

// QueueSender defers delivery to the worker. A failure here only covers the
// hand-off; the worker logs its own single delivery attempt.
type QueueSender struct {
	queue Enqueuer
}

func NewQueueSender(q Enqueuer) *QueueSender {
	return &QueueSender{queue: q}
}

func (s *QueueSender) SendInvitation(ctx context.Context, inv Invitation) error {
	if err := s.queue.EnqueueInvitationDelivery(ctx, inv); err != nil {
		return fmt.Errorf("queue invitation delivery: %w", err)
	}
	return nil
}
