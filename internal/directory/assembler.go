// Package directory assembles the member roster shown to company administrators.
//
// The roster is read from the aggregated company_roster view when it is healthy.
// When that read fails or looks stale the roster is composed from the tenant
// record, the raw membership rows, and one batched identity lookup.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/identity"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// RosterView is the aggregated read that joins memberships with identities.
type RosterView interface {
	ListRoster(ctx context.Context, tenantID uuid.UUID) ([]models.RosterEntry, error)
}

type MembershipLister interface {
	ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error)
}

type Roster struct {
	TenantID uuid.UUID            `json:"tenant_id"`
	Entries  []models.RosterEntry `json:"members"`
	Source   Source               `json:"source"`
}

type Assembler struct {
	view       RosterView
	tenants    tenant.Registry
	members    MembershipLister
	identities identity.Directory
}

// NewAssembler wires both read paths. A nil view sends every read down the
// composed path.
func NewAssembler(view RosterView, tenants tenant.Registry, members MembershipLister, identities identity.Directory) *Assembler {
	return &Assembler{
		view:       view,
		tenants:    tenants,
		members:    members,
		identities: identities,
	}
}

// ListRoster never fails while the tenant and membership reads succeed.
func (a *Assembler) ListRoster(ctx context.Context, tenantID uuid.UUID) (*Roster, error) {
	if a.view != nil {
		entries, err := a.view.ListRoster(ctx, tenantID)
		switch {
		case err != nil:
			slog.Warn("roster view read failed, composing roster", "tenant_id", tenantID, "error", err)
		case !hasOwner(entries):
			slog.Warn("roster view incomplete, composing roster", "tenant_id", tenantID, "rows", len(entries))
		default:
			return &Roster{TenantID: tenantID, Entries: entries, Source: SourcePrimary}, nil
		}
	}

	entries, err := a.compose(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &Roster{TenantID: tenantID, Entries: entries, Source: SourceFallback}, nil
}

func (a *Assembler) compose(ctx context.Context, tenantID uuid.UUID) ([]models.RosterEntry, error) {
	var (
		t    *models.Tenant
		rows []models.Membership
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		t, err = a.tenants.GetByID(gctx, tenantID)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = a.members.ListMemberships(gctx, tenantID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, apperrors.ErrTenantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrDirectoryUnavailable, err)
	}

	ids := []uuid.UUID{t.FoundingUserID}
	for _, m := range rows {
		if m.SubjectID != nil {
			ids = append(ids, *m.SubjectID)
		}
	}
	idents, err := a.identities.BatchLookup(ctx, ids)
	if err != nil {
		slog.Warn("identity lookup failed, using placeholders", "tenant_id", tenantID, "error", err)
		idents = nil
	}
	byContact := make(map[string]models.Identity, len(idents))
	for _, ident := range idents {
		if ident.ContactAddress != "" {
			byContact[strings.ToLower(ident.ContactAddress)] = ident
		}
	}

	// Invitees without a subject yet may still have a profile under the
	// invited address; resolve all of them in one batch.
	var pending []string
	for _, m := range rows {
		if m.SubjectID != nil || m.InvitedEmail == nil {
			continue
		}
		if _, ok := byContact[strings.ToLower(*m.InvitedEmail)]; !ok {
			pending = append(pending, *m.InvitedEmail)
		}
	}
	if len(pending) > 0 && err == nil {
		matched, cerr := a.identities.BatchLookupByContact(ctx, pending)
		if cerr != nil {
			slog.Warn("identity lookup by contact failed, using placeholders", "tenant_id", tenantID, "error", cerr)
		}
		for contact, ident := range matched {
			byContact[contact] = ident
		}
	}

	entries := make([]models.RosterEntry, 0, len(rows)+1)
	var owner *models.RosterEntry
	for _, m := range rows {
		e := entryFromMembership(m, t, idents, byContact)
		if e.Role == models.RoleOwner && owner == nil {
			owner = &e
			continue
		}
		entries = append(entries, e)
	}

	if owner == nil {
		founder := t.FoundingUserID
		synth := models.RosterEntry{
			TenantID:    t.ID,
			SubjectID:   &founder,
			Role:        models.RoleOwner,
			Status:      models.StatusAccepted,
			CreatedAt:   t.CreatedAt,
			Synthesized: true,
		}
		ident, found := idents[founder]
		applyIdentity(&synth, ident, found, "")
		owner = &synth
	}

	return append([]models.RosterEntry{*owner}, entries...), nil
}

func entryFromMembership(m models.Membership, t *models.Tenant, idents map[uuid.UUID]models.Identity, byContact map[string]models.Identity) models.RosterEntry {
	e := models.RosterEntry{
		MembershipID: m.ID,
		TenantID:     m.TenantID,
		SubjectID:    m.SubjectID,
		Role:         displayRole(m, t),
		Status:       m.Status,
		InvitedBy:    m.InvitedBy,
		CreatedAt:    m.CreatedAt,
	}

	invited := ""
	if m.InvitedEmail != nil {
		invited = *m.InvitedEmail
	}

	var (
		ident models.Identity
		found bool
	)
	if m.SubjectID != nil {
		ident, found = idents[*m.SubjectID]
	}
	if !found && invited != "" {
		ident, found = byContact[strings.ToLower(invited)]
	}
	applyIdentity(&e, ident, found, invited)
	return e
}

// displayRole makes the founding user the only owner shown.
func displayRole(m models.Membership, t *models.Tenant) models.Role {
	if m.HasSubject(t.FoundingUserID) {
		return models.RoleOwner
	}
	if m.Role == models.RoleOwner {
		return models.RoleAdmin
	}
	return m.Role
}

func applyIdentity(e *models.RosterEntry, ident models.Identity, found bool, invited string) {
	contact := invited
	if found {
		e.AvatarURL = ident.AvatarURL
		if ident.ContactAddress != "" {
			contact = ident.ContactAddress
		}
		e.DisplayName = ident.DisplayName
	}
	e.ContactAddress = contact
	if e.DisplayName == "" {
		e.DisplayName = PlaceholderName(contact)
	}
}

func hasOwner(entries []models.RosterEntry) bool {
	for _, e := range entries {
		if e.Role == models.RoleOwner {
			return true
		}
	}
	return false
}

// PlaceholderName derives a display label from the local part of an address:
// "alice.smith@example.com" becomes "Alice Smith".
func PlaceholderName(contact string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(contact), "@")
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+' || r == ' '
	})
	if len(words) == 0 {
		return "Unknown member"
	}
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
