package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/auth"
	"github.com/nikhilbhutani/teamroster/internal/directory"
	"github.com/nikhilbhutani/teamroster/internal/invitation"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

// Workflow is the slice of invitation.Workflow the HTTP layer drives.
type Workflow interface {
	Authorize(ctx context.Context, tenantID, actorID uuid.UUID, action auth.Action) (*models.Tenant, error)
	Invite(ctx context.Context, tenantID uuid.UUID, contact string, role models.Role, actorID uuid.UUID) (*invitation.Result, error)
	ChangeRole(ctx context.Context, membershipID uuid.UUID, newRole models.Role, actorID uuid.UUID) (*models.Membership, error)
	Remove(ctx context.Context, membershipID uuid.UUID, actorID uuid.UUID) (*models.Membership, error)
	Accept(ctx context.Context, membershipID, subjectID uuid.UUID) (*models.Membership, error)
	Decline(ctx context.Context, membershipID uuid.UUID) (*models.Membership, error)
}

type RosterReader interface {
	ListRoster(ctx context.Context, tenantID uuid.UUID) (*directory.Roster, error)
}

type MembersHandler struct {
	wf     Workflow
	roster RosterReader
}

func NewMembersHandler(wf Workflow, roster RosterReader) *MembersHandler {
	return &MembersHandler{wf: wf, roster: roster}
}

type inviteRequest struct {
	Contact string      `json:"contact" validate:"required"`
	Role    models.Role `json:"role" validate:"required"`
}

type changeRoleRequest struct {
	Role models.Role `json:"role" validate:"required"`
}

// mutationResponse carries the outcome of a change plus the roster as it reads
// afterwards. The re-read is a separate step; if it fails the change still stands.
type mutationResponse struct {
	Membership    *models.Membership `json:"membership,omitempty"`
	Removed       bool               `json:"removed,omitempty"`
	Roster        *directory.Roster  `json:"roster,omitempty"`
	Warning       string             `json:"warning,omitempty"`
	RosterWarning string             `json:"roster_warning,omitempty"`
}

func (h *MembersHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())
	tenantID, err := uuidParam(r, "tenantID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.wf.Authorize(r.Context(), tenantID, actorID, auth.ActionReadRoster); err != nil {
		writeError(w, r, err)
		return
	}

	roster, err := h.roster.ListRoster(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (h *MembersHandler) Invite(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())
	tenantID, err := uuidParam(r, "tenantID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req inviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.wf.Invite(r.Context(), tenantID, req.Contact, req.Role, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := mutationResponse{Membership: res.Membership}
	if res.DeliveryWarning != nil {
		resp.Warning = apperrors.ErrDeliveryFailed.Error()
	}
	h.attachRoster(r.Context(), &resp, tenantID)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *MembersHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())
	membershipID, err := uuidParam(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req changeRoleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.wf.ChangeRole(r.Context(), membershipID, req.Role, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := mutationResponse{Membership: m}
	h.attachRoster(r.Context(), &resp, m.TenantID)
	writeJSON(w, http.StatusOK, resp)
}

func (h *MembersHandler) Remove(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())
	membershipID, err := uuidParam(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	removed, err := h.wf.Remove(r.Context(), membershipID, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := mutationResponse{Removed: removed != nil}
	if removed != nil {
		h.attachRoster(r.Context(), &resp, removed.TenantID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MembersHandler) attachRoster(ctx context.Context, resp *mutationResponse, tenantID uuid.UUID) {
	roster, err := h.roster.ListRoster(ctx, tenantID)
	if err != nil {
		slog.Warn("roster re-read after mutation failed", "tenant_id", tenantID, "error", err)
		resp.RosterWarning = apperrors.ErrDirectoryUnavailable.Error()
		return
	}
	resp.Roster = roster
}
