package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/teamroster/internal/apperrors"
	"github.com/nikhilbhutani/teamroster/internal/identity"
	"github.com/nikhilbhutani/teamroster/internal/membership"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

type stubView struct {
	entries []models.RosterEntry
	err     error
	calls   int
}

func (s *stubView) ListRoster(ctx context.Context, tenantID uuid.UUID) ([]models.RosterEntry, error) {
	s.calls++
	return s.entries, s.err
}

type failingLister struct{ err error }

func (f failingLister) ListMemberships(ctx context.Context, tenantID uuid.UUID) ([]models.Membership, error) {
	return nil, f.err
}

type failingDirectory struct{}

func (failingDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	return nil, errors.New("profile service timeout")
}

func (failingDirectory) BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error) {
	return nil, errors.New("profile service timeout")
}

type recordingDirectory struct {
	identity.Directory
	batches        [][]uuid.UUID
	contactBatches [][]string
}

func (r *recordingDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	r.batches = append(r.batches, ids)
	return r.Directory.BatchLookup(ctx, ids)
}

func (r *recordingDirectory) BatchLookupByContact(ctx context.Context, contacts []string) (map[string]models.Identity, error) {
	r.contactBatches = append(r.contactBatches, contacts)
	return r.Directory.BatchLookupByContact(ctx, contacts)
}

type fixture struct {
	tenant     models.Tenant
	registry   *tenant.MemoryRegistry
	store      *membership.MemoryStore
	identities *identity.MemoryDirectory
}

func newFixture() *fixture {
	founder := uuid.New()
	t := models.Tenant{
		ID:             uuid.New(),
		Name:           "Acme Hiring",
		FoundingUserID: founder,
		CreatedAt:      time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	reg := tenant.NewMemoryRegistry()
	reg.Put(t)
	return &fixture{
		tenant:   t,
		registry: reg,
		store:    membership.NewMemoryStore(),
		identities: identity.NewMemoryDirectory(models.Identity{
			SubjectID:      founder,
			DisplayName:    "Olivia Owner",
			ContactAddress: "olivia@acme.test",
		}),
	}
}

func (f *fixture) assembler(view RosterView) *Assembler {
	return NewAssembler(view, f.registry, f.store, f.identities)
}

func ownerCount(entries []models.RosterEntry) int {
	n := 0
	for _, e := range entries {
		if e.Role == models.RoleOwner {
			n++
		}
	}
	return n
}

func TestListRoster_EmptyTenantSynthesizesOwner(t *testing.T) {
	f := newFixture()
	view := &stubView{entries: []models.RosterEntry{}}

	roster, err := f.assembler(view).ListRoster(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, roster.Source)
	require.Len(t, roster.Entries, 1)

	owner := roster.Entries[0]
	assert.Equal(t, models.RoleOwner, owner.Role)
	assert.Equal(t, models.StatusAccepted, owner.Status)
	assert.True(t, owner.Synthesized)
	require.NotNil(t, owner.SubjectID)
	assert.Equal(t, f.tenant.FoundingUserID, *owner.SubjectID)
	assert.Equal(t, f.tenant.CreatedAt, owner.CreatedAt)
	assert.Equal(t, "Olivia Owner", owner.DisplayName)
	assert.Equal(t, uuid.Nil, owner.MembershipID)
}

func TestListRoster_PrimaryPathUsedWhenHealthy(t *testing.T) {
	f := newFixture()
	founder := f.tenant.FoundingUserID
	view := &stubView{entries: []models.RosterEntry{
		{TenantID: f.tenant.ID, SubjectID: &founder, Role: models.RoleOwner, Status: models.StatusAccepted, Synthesized: true},
	}}
	lister := failingLister{err: errors.New("must not be called")}

	roster, err := NewAssembler(view, f.registry, lister, f.identities).ListRoster(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, SourcePrimary, roster.Source)
	assert.Equal(t, 1, view.calls)
	assert.Len(t, roster.Entries, 1)
}

func TestListRoster_FallbackMatchesPrimary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	founder := f.tenant.FoundingUserID

	alice := uuid.New()
	f.identities.Put(models.Identity{SubjectID: alice, DisplayName: "Alice Admin", ContactAddress: "alice@example.com"})
	adminRow := f.store.Insert(models.Membership{
		TenantID: f.tenant.ID, SubjectID: &alice, Role: models.RoleAdmin, Status: models.StatusAccepted,
		CreatedAt: f.tenant.CreatedAt.Add(time.Hour),
	})
	pending, err := f.store.CreateInvitation(ctx, f.tenant.ID, "bob.jones@example.com", models.RoleViewer, founder)
	require.NoError(t, err)

	primary := []models.RosterEntry{
		{TenantID: f.tenant.ID, SubjectID: &founder, Role: models.RoleOwner, Status: models.StatusAccepted, DisplayName: "Olivia Owner", Synthesized: true},
		{MembershipID: adminRow.ID, TenantID: f.tenant.ID, SubjectID: &alice, Role: models.RoleAdmin, Status: models.StatusAccepted, DisplayName: "Alice Admin"},
		{MembershipID: pending.ID, TenantID: f.tenant.ID, Role: models.RoleViewer, Status: models.StatusPending, DisplayName: "Bob Jones"},
	}

	view := &stubView{err: errors.New("relation company_roster does not exist")}
	roster, err := f.assembler(view).ListRoster(ctx, f.tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, roster.Source)
	require.Len(t, roster.Entries, len(primary))

	type key struct {
		membership uuid.UUID
		role       models.Role
		status     models.MembershipStatus
		name       string
	}
	keys := func(entries []models.RosterEntry) []key {
		out := make([]key, 0, len(entries))
		for _, e := range entries {
			out = append(out, key{e.MembershipID, e.Role, e.Status, e.DisplayName})
		}
		return out
	}
	assert.ElementsMatch(t, keys(primary), keys(roster.Entries))
	assert.Equal(t, models.RoleOwner, roster.Entries[0].Role, "owner listed first")
	assert.Equal(t, 1, ownerCount(roster.Entries))
}

func TestListRoster_FounderRowIsTheOwnerEntry(t *testing.T) {
	f := newFixture()
	founder := f.tenant.FoundingUserID
	f.store.Insert(models.Membership{TenantID: f.tenant.ID, SubjectID: &founder, Role: models.RoleAdmin, Status: models.StatusAccepted})
	stray := uuid.New()
	f.store.Insert(models.Membership{TenantID: f.tenant.ID, SubjectID: &stray, Role: models.RoleOwner, Status: models.StatusAccepted})

	roster, err := f.assembler(nil).ListRoster(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, roster.Entries, 2)
	assert.Equal(t, 1, ownerCount(roster.Entries))
	assert.False(t, roster.Entries[0].Synthesized)
	assert.True(t, roster.Entries[0].SubjectID != nil && *roster.Entries[0].SubjectID == founder)
	assert.Equal(t, models.RoleAdmin, roster.Entries[1].Role)
}

func TestListRoster_IdentityFailureDegradesToPlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.store.CreateInvitation(ctx, f.tenant.ID, "carol_ann@example.com", models.RoleViewer, f.tenant.FoundingUserID)
	require.NoError(t, err)

	roster, err := NewAssembler(nil, f.registry, f.store, failingDirectory{}).ListRoster(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, roster.Entries, 2)
	assert.Equal(t, "Unknown member", roster.Entries[0].DisplayName)
	assert.Equal(t, "Carol Ann", roster.Entries[1].DisplayName)
	assert.Equal(t, "carol_ann@example.com", roster.Entries[1].ContactAddress)
}

func TestListRoster_SingleBatchedIdentityLookup(t *testing.T) {
	f := newFixture()
	for i := 0; i < 5; i++ {
		id := uuid.New()
		f.store.Insert(models.Membership{TenantID: f.tenant.ID, SubjectID: &id, Role: models.RoleViewer, Status: models.StatusAccepted})
	}
	rec := &recordingDirectory{Directory: f.identities}

	_, err := NewAssembler(nil, f.registry, f.store, rec).ListRoster(context.Background(), f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, rec.batches, 1)
	assert.Len(t, rec.batches[0], 6)
}

func TestListRoster_MembershipReadFailureIsUnavailable(t *testing.T) {
	f := newFixture()
	view := &stubView{err: errors.New("view down")}

	_, err := NewAssembler(view, f.registry, failingLister{err: errors.New("db down")}, f.identities).
		ListRoster(context.Background(), f.tenant.ID)
	assert.ErrorIs(t, err, apperrors.ErrDirectoryUnavailable)
	assert.Equal(t, 1, view.calls, "primary attempted exactly once")
}

func TestListRoster_UnknownTenant(t *testing.T) {
	f := newFixture()
	_, err := f.assembler(&stubView{}).ListRoster(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTenantNotFound)
}

func TestPlaceholderName(t *testing.T) {
	tests := map[string]string{
		"alice@example.com":       "Alice",
		"alice.smith@example.com": "Alice Smith",
		"j-doe+jobs@example.com":  "J Doe Jobs",
		"":                        "Unknown member",
		"@example.com":            "Unknown member",
	}
	for in, want := range tests {
		assert.Equal(t, want, PlaceholderName(in), in)
	}
}

func TestListRoster_PendingInviteeMatchedByAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	founder := f.tenant.FoundingUserID
	f.identities.Put(models.Identity{SubjectID: uuid.New(), DisplayName: "Robert Builder", ContactAddress: "Bob@Example.com"})

	for _, contact := range []string{"bob@example.com", "dee.dee@example.com", "eve@example.com"} {
		_, err := f.store.CreateInvitation(ctx, f.tenant.ID, contact, models.RoleViewer, founder)
		require.NoError(t, err)
	}
	rec := &recordingDirectory{Directory: f.identities}

	roster, err := NewAssembler(nil, f.registry, f.store, rec).ListRoster(ctx, f.tenant.ID)
	require.NoError(t, err)
	require.Len(t, roster.Entries, 4)

	names := map[string]string{}
	for _, e := range roster.Entries[1:] {
		names[e.ContactAddress] = e.DisplayName
	}
	assert.Equal(t, "Robert Builder", names["Bob@Example.com"])
	assert.Equal(t, "Dee Dee", names["dee.dee@example.com"])
	assert.Equal(t, "Eve", names["eve@example.com"])

	require.Len(t, rec.batches, 1)
	require.Len(t, rec.contactBatches, 1, "pending addresses resolved in one batch")
	assert.Len(t, rec.contactBatches[0], 3)
}
