package auth

import (
	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

type Action string

const (
	ActionReadRoster   Action = "roster:read"
	ActionInvite       Action = "members:invite"
	ActionChangeRole   Action = "members:change_role"
	ActionRemoveMember Action = "members:remove"
	ActionReadAudit    Action = "audit:read"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

// RoleNone is the effective role of someone with no standing in a company.
const RoleNone models.Role = ""

var rolePermissions = map[models.Role][]Action{
	models.RoleOwner:  {ActionReadRoster, ActionInvite, ActionChangeRole, ActionRemoveMember, ActionReadAudit},
	models.RoleAdmin:  {ActionReadRoster, ActionInvite, ActionChangeRole, ActionRemoveMember, ActionReadAudit},
	models.RoleViewer: {ActionReadRoster},
}

// Evaluate is total over (role, action); unknown roles and actions are denied.
func Evaluate(role models.Role, action Action) Decision {
	for _, a := range rolePermissions[role] {
		if a == action {
			return Allow
		}
	}
	return Deny
}

// Require returns apperrors.ErrForbidden when role may not perform action.
func Require(role models.Role, action Action) error {
	if Evaluate(role, action) == Deny {
		return apperrors.ErrForbidden
	}
	return nil
}

// EffectiveRole resolves what subject may do in tenant. The founding user is the
// owner whatever the membership table says; only accepted memberships count otherwise.
func EffectiveRole(t *models.Tenant, subjectID uuid.UUID, m *models.Membership) models.Role {
	if t != nil && t.FoundingUserID == subjectID {
		return models.RoleOwner
	}
	if m == nil || m.Status != models.StatusAccepted || !m.HasSubject(subjectID) {
		return RoleNone
	}
	// A stored owner row for anyone but the founder carries no ownership.
	if m.Role == models.RoleOwner {
		return models.RoleAdmin
	}
	return m.Role
}
