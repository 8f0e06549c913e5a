package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// PostgresRosterView reads the company_roster view, which already joins
// memberships with users and adds the founding user when they have no row.
type PostgresRosterView struct {
	db *pgxpool.Pool
}

func NewPostgresRosterView(db *pgxpool.Pool) *PostgresRosterView {
	return &PostgresRosterView{db: db}
}

func (v *PostgresRosterView) ListRoster(ctx context.Context, tenantID uuid.UUID) ([]models.RosterEntry, error) {
	rows, err := v.db.Query(ctx,
		`SELECT membership_id, tenant_id, subject_id, role, status,
		        COALESCE(display_name, ''), COALESCE(avatar_url, ''), COALESCE(contact_address, ''),
		        invited_by, created_at, synthesized
		 FROM company_roster
		 WHERE tenant_id = $1
		 ORDER BY sort_group ASC, created_at ASC, membership_id ASC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("query roster view: %w", err)
	}
	defer rows.Close()

	entries := []models.RosterEntry{}
	for rows.Next() {
		var (
			e            models.RosterEntry
			membershipID *uuid.UUID
		)
		if err := rows.Scan(&membershipID, &e.TenantID, &e.SubjectID, &e.Role, &e.Status,
			&e.DisplayName, &e.AvatarURL, &e.ContactAddress, &e.InvitedBy, &e.CreatedAt, &e.Synthesized); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		if membershipID != nil {
			e.MembershipID = *membershipID
		}
		if e.DisplayName == "" {
			e.DisplayName = PlaceholderName(e.ContactAddress)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster view: %w", err)
	}
	return entries, nil
}
