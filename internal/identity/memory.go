package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

type MemoryDirectory struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]models.Identity
}

func NewMemoryDirectory(idents ...models.Identity) *MemoryDirectory {
	d := &MemoryDirectory{byID: make(map[uuid.UUID]models.Identity)}
	for _, ident := range idents {
		d.Put(ident)
	}
	return d
}

func (d *MemoryDirectory) Put(ident models.Identity) {
	d.mu.Lock()
	d.byID[ident.SubjectID] = ident
	d.mu.Unlock()
}

func (d *MemoryDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[uuid.UUID]models.Identity, len(ids))
	for _, id := range dedupe(ids) {
		if ident, ok := d.byID[id]; ok {
			out[id] = ident
		}
	}
	return out, nil
}

func (d *MemoryDirectory) BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	wanted := normalizeContacts(contacts)
	out := make(map[string]models.Identity, len(wanted))
	if len(wanted) == 0 {
		return out, nil
	}
	for _, ident := range d.byID {
		key := strings.ToLower(ident.ContactAddress)
		for _, c := range wanted {
			if c == key {
				out[key] = ident
				break
			}
		}
	}
	return out, nil
}

func (d *MemoryDirectory) ResolveContact(ctx context.Context, contact string) (uuid.UUID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for id, ident := range d.byID {
		if strings.EqualFold(ident.ContactAddress, contact) {
			return id, true
		}
	}
	return uuid.Nil, false
}
