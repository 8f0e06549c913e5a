// Package notify delivers "invitation created" messages to the delivery service.
// Every sender makes a single attempt; callers decide what a failure means.
package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

const EventInvitationCreated = "invitation.created"

type Invitation struct {
	MembershipID   uuid.UUID   `json:"membership_id"`
	TenantID       uuid.UUID   `json:"tenant_id"`
	ContactAddress string      `json:"contact_address"`
	TenantName     string      `json:"tenant_name"`
	Role           models.Role `json:"role"`
	InviterID      uuid.UUID   `json:"inviter_id"`
	InviterLabel   string      `json:"inviter_label"`
	AcceptLink     string      `json:"accept_link"`
}

type Sender interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// LogSender only records the invitation; used when no delivery service is configured.
type LogSender struct{}

func (LogSender) SendInvitation(ctx context.Context, inv Invitation) error {
	slog.Info("invitation delivery skipped, no delivery service configured",
		"tenant_id", inv.TenantID,
		"membership_id", inv.MembershipID,
		"role", inv.Role,
	)
	return nil
}
