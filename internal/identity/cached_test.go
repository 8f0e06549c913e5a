package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/teamroster/internal/models"
)

type fakeKV struct {
	data    map[string][]byte
	readErr error
	writes  int
}

func (f *fakeKV) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	out := map[string][]byte{}
	for _, k := range keys {
		if v, ok := f.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (f *fakeKV) SetMulti(ctx context.Context, entries map[string][]byte, ttl time.Duration) error {
	f.writes++
	for k, v := range entries {
		f.data[k] = v
	}
	return nil
}

type countingDirectory struct {
	Directory
	calls [][]uuid.UUID
}

func (c *countingDirectory) BatchLookup(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Identity, error) {
	c.calls = append(c.calls, ids)
	return c.Directory.BatchLookup(ctx, ids)
}

func TestCachedDirectory_ReadsThroughOnce(t *testing.T) {
	ctx := context.Background()
	alice := models.Identity{SubjectID: uuid.New(), DisplayName: "Alice", ContactAddress: "alice@example.com"}
	backing := &countingDirectory{Directory: NewMemoryDirectory(alice)}
	kv := &fakeKV{data: map[string][]byte{}}
	d := NewCachedDirectory(backing, kv, time.Minute)

	unknown := uuid.New()
	got, err := d.BatchLookup(ctx, []uuid.UUID{alice.SubjectID, unknown, alice.SubjectID})
	require.NoError(t, err)
	assert.Equal(t, alice, got[alice.SubjectID])
	assert.NotContains(t, got, unknown)
	require.Len(t, backing.calls, 1)
	assert.Len(t, backing.calls[0], 2)

	got, err = d.BatchLookup(ctx, []uuid.UUID{alice.SubjectID})
	require.NoError(t, err)
	assert.Equal(t, "Alice", got[alice.SubjectID].DisplayName)
	assert.Len(t, backing.calls, 1, "second lookup served from cache")
}

func TestCachedDirectory_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	bob := models.Identity{SubjectID: uuid.New(), DisplayName: "Bob"}
	kv := &fakeKV{data: map[string][]byte{}, readErr: errors.New("redis down")}
	d := NewCachedDirectory(NewMemoryDirectory(bob), kv, time.Minute)

	got, err := d.BatchLookup(ctx, []uuid.UUID{bob.SubjectID})
	require.NoError(t, err)
	assert.Equal(t, "Bob", got[bob.SubjectID].DisplayName)
}

func TestMemoryDirectory_ResolveContact(t *testing.T) {
	carol := models.Identity{SubjectID: uuid.New(), ContactAddress: "Carol@Example.com"}
	d := NewMemoryDirectory(carol)

	id, ok := d.ResolveContact(context.Background(), "carol@example.com")
	assert.True(t, ok)
	assert.Equal(t, carol.SubjectID, id)

	_, ok = d.ResolveContact(context.Background(), "nobody@example.com")
	assert.False(t, ok)
}

func TestBatchLookupByContact(t *testing.T) {
	ctx := context.Background()
	robert := models.Identity{SubjectID: uuid.New(), DisplayName: "Robert Builder", ContactAddress: "Bob@Example.com"}
	d := NewCachedDirectory(NewMemoryDirectory(robert), &fakeKV{data: map[string][]byte{}}, time.Minute)

	got, err := d.BatchLookupByContact(ctx, []string{" bob@example.com", "BOB@example.com", "ghost@example.com", ""})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Robert Builder", got["bob@example.com"].DisplayName)
}
