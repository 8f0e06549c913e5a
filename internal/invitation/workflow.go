// Package invitation runs the membership mutations an administrator can perform:
// invite, change role, remove. It also takes the accept/decline transitions that
// the external identity flow reports back.
//
// Every mutation is permission-checked against the actor's current role before
// the store is touched.
package invitation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/audit"
	"github.com/nikhilbhutani/teamroster/internal/auth"
	"github.com/nikhilbhutani/teamroster/internal/identity"
	"github.com/nikhilbhutani/teamroster/internal/membership"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

type Auditor interface {
	Log(ctx context.Context, entry audit.LogEntry) error
}

type Workflow struct {
	store         membership.Store
	tenants       tenant.Registry
	identities    identity.Directory
	sender        notify.Sender
	auditor       Auditor
	acceptBaseURL string
	validate      *validator.Validate
}

func NewWorkflow(
	store membership.Store,
	tenants tenant.Registry,
	identities identity.Directory,
	sender notify.Sender,
	auditor Auditor,
	acceptBaseURL string,
) *Workflow {
	return &Workflow{
		store:         store,
		tenants:       tenants,
		identities:    identities,
		sender:        sender,
		auditor:       auditor,
		acceptBaseURL: strings.TrimRight(acceptBaseURL, "/"),
		validate:      validator.New(),
	}
}

// Result of a successful invite. DeliveryWarning wraps apperrors.ErrDeliveryFailed
// when the notification could not be handed off; the invitation still stands.
type Result struct {
	Membership      *models.Membership
	DeliveryWarning error
}

func (w *Workflow) Invite(ctx context.Context, tenantID uuid.UUID, contact string, role models.Role, actorID uuid.UUID) (*Result, error) {
	t, err := w.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := w.authorize(ctx, t, actorID, auth.ActionInvite); err != nil {
		return nil, err
	}

	contact = membership.NormalizeContact(contact)
	if err := w.validate.Var(contact, "required,email"); err != nil {
		return nil, apperrors.ErrInvalidContact
	}
	if !role.Assignable() {
		return nil, apperrors.ErrInvalidRole
	}

	// The founding user is a member without a row, so the store cannot reject
	// their address. Without the founder's identity the invite cannot be checked.
	idents, err := w.identities.BatchLookup(ctx, []uuid.UUID{t.FoundingUserID, actorID})
	if err != nil {
		slog.Warn("identity lookup failed during invite", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDirectoryUnavailable, err)
	}
	if founder, ok := idents[t.FoundingUserID]; ok && strings.EqualFold(founder.ContactAddress, contact) {
		return nil, apperrors.ErrDuplicateInvitation
	}

	m, err := w.store.CreateInvitation(ctx, tenantID, contact, role, actorID)
	if err != nil {
		return nil, err
	}

	w.record(ctx, audit.LogEntry{
		TenantID:     tenantID,
		ActorID:      &actorID,
		Action:       audit.ActionInvitationCreated,
		ResourceType: "membership",
		ResourceID:   &m.ID,
		Details:      map[string]interface{}{"role": role, "contact": contact},
	})

	res := &Result{Membership: m}
	inv := notify.Invitation{
		MembershipID:   m.ID,
		TenantID:       tenantID,
		ContactAddress: contact,
		TenantName:     t.Name,
		Role:           role,
		InviterID:      actorID,
		InviterLabel:   inviterLabel(idents, actorID),
		AcceptLink:     fmt.Sprintf("%s/invitations/%s", w.acceptBaseURL, m.ID),
	}
	if err := w.sender.SendInvitation(ctx, inv); err != nil {
		slog.Warn("invitation created but delivery failed",
			"tenant_id", tenantID,
			"membership_id", m.ID,
			"error", err,
		)
		res.DeliveryWarning = fmt.Errorf("%w: %w", apperrors.ErrDeliveryFailed, err)
	}
	return res, nil
}

func (w *Workflow) ChangeRole(ctx context.Context, membershipID uuid.UUID, newRole models.Role, actorID uuid.UUID) (*models.Membership, error) {
	target, err := w.store.Get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	t, err := w.tenants.GetByID(ctx, target.TenantID)
	if err != nil {
		return nil, err
	}
	if err := w.authorize(ctx, t, actorID, auth.ActionChangeRole); err != nil {
		return nil, err
	}
	if isFounder(target, t) {
		return nil, apperrors.ErrOwnerRole
	}

	updated, err := w.store.UpdateRole(ctx, membershipID, newRole)
	if err != nil {
		return nil, err
	}

	w.record(ctx, audit.LogEntry{
		TenantID:     t.ID,
		ActorID:      &actorID,
		Action:       audit.ActionRoleChanged,
		ResourceType: "membership",
		ResourceID:   &membershipID,
		Details:      map[string]interface{}{"from": target.Role, "to": updated.Role},
	})
	return updated, nil
}

// Remove hard-deletes a membership or pending invitation and returns the row
// that was removed. A membership that is already gone counts as removed and
// yields a nil row.
func (w *Workflow) Remove(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) (*models.Membership, error) {
	target, err := w.store.Get(ctx, membershipID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := w.tenants.GetByID(ctx, target.TenantID)
	if err != nil {
		return nil, err
	}
	if err := w.authorize(ctx, t, actorID, auth.ActionRemoveMember); err != nil {
		return nil, err
	}
	if isFounder(target, t) {
		return nil, apperrors.ErrOwnerRole
	}

	if err := w.store.Remove(ctx, membershipID); err != nil {
		return nil, err
	}

	w.record(ctx, audit.LogEntry{
		TenantID:     t.ID,
		ActorID:      &actorID,
		Action:       audit.ActionMemberRemoved,
		ResourceType: "membership",
		ResourceID:   &membershipID,
		Details:      map[string]interface{}{"role": target.Role, "status": target.Status},
	})
	return target, nil
}

// Accept resolves a pending invitation to subjectID.
func (w *Workflow) Accept(ctx context.Context, membershipID, subjectID uuid.UUID) (*models.Membership, error) {
	if subjectID == uuid.Nil {
		return nil, apperrors.ErrInvalidInput
	}
	m, err := w.store.Accept(ctx, membershipID, subjectID)
	if err != nil {
		return nil, err
	}
	w.record(ctx, audit.LogEntry{
		TenantID:     m.TenantID,
		ActorID:      &subjectID,
		Action:       audit.ActionInvitationAccepted,
		ResourceType: "membership",
		ResourceID:   &membershipID,
		Details:      map[string]interface{}{"role": m.Role},
	})
	return m, nil
}

// Decline records the invitee's own refusal. The declined row stays as a marker
// and does not block a later invitation.
func (w *Workflow) Decline(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error) {
	m, err := w.store.Decline(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	w.record(ctx, audit.LogEntry{
		TenantID:     m.TenantID,
		Action:       audit.ActionInvitationDeclined,
		ResourceType: "membership",
		ResourceID:   &membershipID,
	})
	return m, nil
}

// Authorize loads the company and checks that actorID may perform action in it.
func (w *Workflow) Authorize(ctx context.Context, tenantID, actorID uuid.UUID, action auth.Action) (*models.Tenant, error) {
	t, err := w.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := w.authorize(ctx, t, actorID, action); err != nil {
		return nil, err
	}
	return t, nil
}

// ActorRole resolves the current role of actorID in t.
func (w *Workflow) ActorRole(ctx context.Context, t *models.Tenant, actorID uuid.UUID) (models.Role, error) {
	if t.FoundingUserID == actorID {
		return models.RoleOwner, nil
	}
	m, err := w.store.FindActiveBySubject(ctx, t.ID, actorID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return auth.RoleNone, nil
	}
	if err != nil {
		return auth.RoleNone, fmt.Errorf("resolve actor role: %w", err)
	}
	return auth.EffectiveRole(t, actorID, m), nil
}

func (w *Workflow) authorize(ctx context.Context, t *models.Tenant, actorID uuid.UUID, action auth.Action) error {
	role, err := w.ActorRole(ctx, t, actorID)
	if err != nil {
		return err
	}
	return auth.Require(role, action)
}

func (w *Workflow) record(ctx context.Context, entry audit.LogEntry) {
	if w.auditor == nil {
		return
	}
	if err := w.auditor.Log(ctx, entry); err != nil {
		slog.Error("audit write failed", "action", entry.Action, "tenant_id", entry.TenantID, "error", err)
	}
}

// isFounder reports whether m belongs to the company's founding user. Stored
// owner rows for anyone else are rejected by the store itself.
func isFounder(m *models.Membership, t *models.Tenant) bool {
	return m.HasSubject(t.FoundingUserID)
}

func inviterLabel(idents map[uuid.UUID]models.Identity, actorID uuid.UUID) string {
	ident, ok := idents[actorID]
	if !ok {
		return "A team administrator"
	}
	if ident.DisplayName != "" {
		return ident.DisplayName
	}
	return ident.ContactAddress
}
