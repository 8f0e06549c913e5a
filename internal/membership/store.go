// Package membership owns the Membership and Invitation rows of a company.
//
// Uniqueness of non-terminal memberships is enforced by the store at write time;
// callers do not lock.
package membership

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

type Store interface {
	// ListMemberships returns every row of the tenant, any status, oldest first.
	ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Membership, error)
	// FindActiveBySubject returns the accepted membership of subject in tenant,
	// or apperrors.ErrNotFound.
	FindActiveBySubject(ctx context.Context, tenantID, subjectID uuid.UUID) (*models.Membership, error)
	CreateInvitation(ctx context.Context, tenantID uuid.UUID, contact string, role models.Role, inviterID uuid.UUID) (*models.Membership, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Membership, error)
	// Remove hard-deletes the row. Removing a missing id is not an error.
	Remove(ctx context.Context, id uuid.UUID) error
	Accept(ctx context.Context, id, subjectID uuid.UUID) (*models.Membership, error)
	Decline(ctx context.Context, id uuid.UUID) (*models.Membership, error)
}

// NormalizeContact lowercases and trims an invited address.
func NormalizeContact(contact string) string {
	return strings.ToLower(strings.TrimSpace(contact))
}
