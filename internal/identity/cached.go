package identity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// KV is the slice of cache.Cache the decorator needs.
type KV interface {
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMulti(ctx context.Context, entries map[string][]byte, ttl time.Duration) error
}

// CachedDirectory serves identities from a shared cache and reads through to
// next for misses. Cache errors are logged and bypassed.
type CachedDirectory struct {
	next Directory
	kv   KV
	ttl  time.Duration
}

func NewCachedDirectory(next Directory, kv KV, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{next: next, kv: kv, ttl: ttl}
}

func cacheKey(id uuid.UUID) string {
	return "identity:" + id.String()
}

func (d *CachedDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	ids = dedupe(ids)
	out := make(map[uuid.UUID]models.Identity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	hits, err := d.kv.GetMulti(ctx, keys)
	if err != nil {
		slog.Warn("identity cache read failed", "error", err)
		hits = nil
	}

	var missing []uuid.UUID
	for _, id := range ids {
		raw, ok := hits[cacheKey(id)]
		if !ok {
			missing = append(missing, id)
			continue
		}
		var ident models.Identity
		if err := json.Unmarshal(raw, &ident); err != nil {
			missing = append(missing, id)
			continue
		}
		out[id] = ident
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := d.next.BatchLookup(ctx, missing)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]byte, len(fetched))
	for id, ident := range fetched {
		out[id] = ident
		if data, err := json.Marshal(ident); err == nil {
			entries[cacheKey(id)] = data
		}
	}
	if err := d.kv.SetMulti(ctx, entries, d.ttl); err != nil {
		slog.Warn("identity cache write failed", "error", err)
	}
	return out, nil
}

// BatchLookupByContact is not cached; addresses are only looked up for pending
// invitations, and a cached miss would hide a profile created after the invite.
func (d *CachedDirectory) BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error) {
	return d.next.BatchLookupByContact(ctx, contacts)
}
