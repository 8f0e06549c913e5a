package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

const uniqueViolation = "23505"

const membershipColumns = `id, tenant_id, subject_id, role, status, invited_by, invited_email, created_at, updated_at`

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+membershipColumns+`
		 FROM memberships WHERE tenant_id = $1 ORDER BY created_at ASC, id ASC`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []models.Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		memberships = append(memberships, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return memberships, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	m, err := scanMembership(s.db.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", mapError(err))
	}
	return m, nil
}

func (s *PostgresStore) FindActiveBySubject(ctx context.Context, tenantID, subjectID uuid.UUID) (*models.Membership, error) {
	m, err := scanMembership(s.db.QueryRow(ctx,
		`SELECT `+membershipColumns+` FROM memberships
		 WHERE tenant_id = $1 AND subject_id = $2 AND status = 'accepted'`,
		tenantID, subjectID,
	))
	if err != nil {
		return nil, fmt.Errorf("find membership by subject: %w", mapError(err))
	}
	return m, nil
}

func (s *PostgresStore) CreateInvitation(ctx context.Context, tenantID uuid.UUID, contact string, role models.Role, inviterID uuid.UUID) (*models.Membership, error) {
	if !role.Assignable() {
		return nil, apperrors.ErrInvalidRole
	}
	contact = NormalizeContact(contact)

	// The partial unique index covers the invited address; a subject that joined
	// without an invitation row is only reachable through the users table.
	var taken bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM memberships m
			LEFT JOIN users u ON u.id = m.subject_id
			WHERE m.tenant_id = $1
			  AND m.status IN ('pending', 'accepted')
			  AND (lower(m.invited_email) = $2 OR lower(u.email) = $2)
		)`,
		tenantID, contact,
	).Scan(&taken)
	if err != nil {
		return nil, fmt.Errorf("check existing membership: %w", err)
	}
	if taken {
		return nil, apperrors.ErrDuplicateInvitation
	}

	m, err := scanMembership(s.db.QueryRow(ctx,
		`INSERT INTO memberships (tenant_id, role, status, invited_by, invited_email)
		 VALUES ($1, $2, 'pending', $3, $4)
		 RETURNING `+membershipColumns,
		tenantID, role, inviterID, contact,
	))
	if err != nil {
		return nil, fmt.Errorf("insert invitation: %w", mapError(err))
	}
	return m, nil
}

func (s *PostgresStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Membership, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Role == models.RoleOwner {
		return nil, apperrors.ErrOwnerRole
	}
	if !role.Assignable() {
		return nil, apperrors.ErrInvalidRole
	}

	m, err := scanMembership(s.db.QueryRow(ctx,
		`UPDATE memberships SET role = $2, updated_at = now()
		 WHERE id = $1 AND role <> 'owner'
		 RETURNING `+membershipColumns,
		id, role,
	))
	if err != nil {
		return nil, fmt.Errorf("update role: %w", mapError(err))
	}
	return m, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id uuid.UUID) error {
	current, err := s.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.Role == models.RoleOwner {
		return apperrors.ErrOwnerRole
	}

	if _, err := s.db.Exec(ctx, "DELETE FROM memberships WHERE id = $1 AND role <> 'owner'", id); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) Accept(ctx context.Context, id, subjectID uuid.UUID) (*models.Membership, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.StatusAccepted:
		if current.HasSubject(subjectID) {
			return current, nil
		}
		return nil, apperrors.ErrInvalidState
	case models.StatusDeclined:
		return nil, apperrors.ErrInvalidState
	}

	m, err := scanMembership(s.db.QueryRow(ctx,
		`UPDATE memberships SET status = 'accepted', subject_id = $2, updated_at = now()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+membershipColumns,
		id, subjectID,
	))
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", mapError(err))
	}
	return m, nil
}

func (s *PostgresStore) Decline(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch current.Status {
	case models.StatusDeclined:
		return current, nil
	case models.StatusAccepted:
		return nil, apperrors.ErrInvalidState
	}

	m, err := scanMembership(s.db.QueryRow(ctx,
		`UPDATE memberships SET status = 'declined', updated_at = now()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+membershipColumns,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("decline invitation: %w", mapError(err))
	}
	return m, nil
}

func scanMembership(row pgx.Row) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(&m.ID, &m.TenantID, &m.SubjectID, &m.Role, &m.Status,
		&m.InvitedBy, &m.InvitedEmail, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// mapError translates driver errors into the shared sentinels.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	if isUniqueViolation(err) {
		return apperrors.ErrDuplicateInvitation
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
