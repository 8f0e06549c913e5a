// Package identity reads the profile projection joined onto memberships for display.
// It never writes profile data.
package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/teamroster/internal/models"
)

// Directory looks up identities in bulk. Unknown ids are omitted from the result
// rather than failing the batch.
type Directory interface {
	BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error)
	// BatchLookupByContact matches identities by e-mail address, case-insensitively.
	// Result keys are the lowercased addresses.
	BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func normalizeContacts(contacts []string) []string {
	seen := make(map[string]struct{}, len(contacts))
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
