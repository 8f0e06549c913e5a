package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/queue"
)

type InvitationWorker struct {
	sender notify.Sender
}

func NewInvitationWorker(sender notify.Sender) *InvitationWorker {
	return &InvitationWorker{sender: sender}
}

func (w *InvitationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.InvitationDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}
	inv := payload.Invitation

	if err := w.sender.SendInvitation(ctx, inv); err != nil {
		slog.Warn("invitation delivery failed",
			"tenant_id", inv.TenantID,
			"membership_id", inv.MembershipID,
			"error", err,
		)
		return fmt.Errorf("deliver invitation %s: %w: %w", inv.MembershipID, err, asynq.SkipRetry)
	}

	slog.Info("invitation delivered", "tenant_id", inv.TenantID, "membership_id", inv.MembershipID)
	return nil
}
