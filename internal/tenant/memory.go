package tenant

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// MemoryRegistry keeps companies in process for database-less runs.
type MemoryRegistry struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]models.Tenant
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{tenants: make(map[uuid.UUID]models.Tenant)}
}

func (r *MemoryRegistry) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, apperrors.ErrTenantNotFound
	}
	return &t, nil
}

func (r *MemoryRegistry) Create(ctx context.Context, name string, foundingUserID uuid.UUID) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || foundingUserID == uuid.Nil {
		return nil, apperrors.ErrInvalidInput
	}

	now := time.Now().UTC()
	t := models.Tenant{
		ID:             uuid.New(),
		Name:           name,
		FoundingUserID: foundingUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	r.mu.Lock()
	r.tenants[t.ID] = t
	r.mu.Unlock()
	return &t, nil
}

// Put stores t verbatim.
func (r *MemoryRegistry) Put(t models.Tenant) {
	r.mu.Lock()
	r.tenants[t.ID] = t
	r.mu.Unlock()
}
