package tenant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/cache"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// JSONCache is the part of cache.Cache used for tenant records.
type JSONCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CachedRegistry memoizes company lookups. Every request resolves its company
// for the permission check, and company records rarely change.
type CachedRegistry struct {
	next  Registry
	cache JSONCache
	ttl   time.Duration
}

func NewCachedRegistry(next Registry, c JSONCache, ttl time.Duration) *CachedRegistry {
	return &CachedRegistry{next: next, cache: c, ttl: ttl}
}

func (r *CachedRegistry) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	key := "tenant:" + id.String()

	var t models.Tenant
	err := r.cache.Get(ctx, key, &t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("tenant cache read failed", "tenant_id", id, "error", err)
	}

	fresh, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, key, fresh, r.ttl); err != nil {
		slog.Warn("tenant cache write failed", "tenant_id", id, "error", err)
	}
	return fresh, nil
}
