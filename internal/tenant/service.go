package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// Registry resolves companies by ID.
type Registry interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.QueryRow(ctx,
		"SELECT id, name, founding_user_id, created_at, updated_at FROM tenants WHERE id = $1", id,
	).Scan(&t.ID, &t.Name, &t.FoundingUserID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// Create registers a company. The founding user owns it implicitly; no
// membership row is written for them.
func (s *Service) Create(ctx context.Context, name string, foundingUserID uuid.UUID) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || foundingUserID == uuid.Nil {
		return nil, apperrors.ErrInvalidInput
	}

	var t models.Tenant
	err := s.db.QueryRow(ctx,
		`INSERT INTO tenants (name, founding_user_id) VALUES ($1, $2)
		 RETURNING id, name, founding_user_id, created_at, updated_at`,
		name, foundingUserID,
	).Scan(&t.ID, &t.Name, &t.FoundingUserID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}
