package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// ContactResolver maps an address to the subject that owns it, if any.
type ContactResolver func(ctx context.Context, contact string) (uuid.UUID, bool)

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]models.Membership
	resolve ContactResolver
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithContactResolver(r ContactResolver) MemoryOption {
	return func(s *MemoryStore) { s.resolve = r }
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		rows: make(map[uuid.UUID]models.Membership),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert stores a row as-is, assigning an ID and timestamps when missing.
func (s *MemoryStore) Insert(m models.Membership) models.Membership {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	s.rows[m.ID] = m
	return m
}

func (s *MemoryStore) ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Membership{}
	for _, m := range s.rows {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) FindActiveBySubject(ctx context.Context, tenantID, subjectID uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.TenantID == tenantID && m.Status == models.StatusAccepted && m.HasSubject(subjectID) {
			return &m, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (s *MemoryStore) CreateInvitation(ctx context.Context, tenantID uuid.UUID, contact string, role models.Role, inviterID uuid.UUID) (*models.Membership, error) {
	if !role.Assignable() {
		return nil, apperrors.ErrInvalidRole
	}
	contact = NormalizeContact(contact)

	var subject *uuid.UUID
	if s.resolve != nil {
		if id, ok := s.resolve(ctx, contact); ok {
			subject = &id
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.rows {
		if m.TenantID != tenantID || m.Status.Terminal() {
			continue
		}
		if m.InvitedEmail != nil && *m.InvitedEmail == contact {
			return nil, apperrors.ErrDuplicateInvitation
		}
		if subject != nil && m.HasSubject(*subject) {
			return nil, apperrors.ErrDuplicateInvitation
		}
	}

	now := s.now().UTC()
	inviter := inviterID
	m := models.Membership{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Role:         role,
		Status:       models.StatusPending,
		InvitedBy:    &inviter,
		InvitedEmail: &contact,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.rows[m.ID] = m
	return &m, nil
}

func (s *MemoryStore) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if m.Role == models.RoleOwner {
		return nil, apperrors.ErrOwnerRole
	}
	if !role.Assignable() {
		return nil, apperrors.ErrInvalidRole
	}
	m.Role = role
	m.UpdatedAt = s.now().UTC()
	s.rows[id] = m
	return &m, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok {
		return nil
	}
	if m.Role == models.RoleOwner {
		return apperrors.ErrOwnerRole
	}
	delete(s.rows, id)
	return nil
}

func (s *MemoryStore) Accept(ctx context.Context, id, subjectID uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	switch m.Status {
	case models.StatusAccepted:
		if m.HasSubject(subjectID) {
			return &m, nil
		}
		return nil, apperrors.ErrInvalidState
	case models.StatusDeclined:
		return nil, apperrors.ErrInvalidState
	}

	for _, other := range s.rows {
		if other.ID != id && other.TenantID == m.TenantID && !other.Status.Terminal() && other.HasSubject(subjectID) {
			return nil, apperrors.ErrDuplicateInvitation
		}
	}

	subject := subjectID
	m.SubjectID = &subject
	m.Status = models.StatusAccepted
	m.UpdatedAt = s.now().UTC()
	s.rows[id] = m
	return &m, nil
}

func (s *MemoryStore) Decline(ctx context.Context, id uuid.UUID) (*models.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.rows[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	switch m.Status {
	case models.StatusDeclined:
		return &m, nil
	case models.StatusAccepted:
		return nil, apperrors.ErrInvalidState
	}
	m.Status = models.StatusDeclined
	m.UpdatedAt = s.now().UTC()
	s.rows[id] = m
	return &m, nil
}
