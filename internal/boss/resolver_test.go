package boss

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStorage serves a canned roster to the registry.
type fakeStorage struct {
	bosses  map[int64][]Boss
	aliases map[int64][]Alias
	failAll bool
}

func (f *fakeStorage) ByGuild(_ context.Context, guildID int64) ([]Boss, error) {
	if f.failAll {
		return nil, assert.AnError
	}
	return f.bosses[guildID], nil
}

func (f *fakeStorage) AliasesByGuild(_ context.Context, guildID int64) ([]Alias, error) {
	if f.failAll {
		return nil, assert.AnError
	}
	return f.aliases[guildID], nil
}

func (f *fakeStorage) GuildIDs(_ context.Context) ([]int64, error) {
	if f.failAll {
		return nil, assert.AnError
	}
	ids := make([]int64, 0, len(f.bosses))
	for gid := range f.bosses {
		ids = append(ids, gid)
	}
	return ids, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const guild = int64(42)

func loadedRegistry(t *testing.T) *Registry {
	t.Helper()
	storage := &fakeStorage{
		bosses: map[int64][]Boss{
			guild: {
				{ID: 1, GuildID: guild, Name: "Swampie", Category: "Frozen", SpawnMinutes: 33},
				{ID: 2, GuildID: guild, Name: "Redbane", Category: "Meteoric", SpawnMinutes: 20},
				{ID: 3, GuildID: guild, Name: "Redbane", Category: "Frozen", SpawnMinutes: 20},
				{ID: 4, GuildID: guild, Name: "Gelebron", Category: "EG", SpawnMinutes: 1920},
			},
		},
		aliases: map[int64][]Alias{
			guild: {
				{GuildID: guild, BossID: 1, Alias: "swampy"},
				{GuildID: guild, BossID: 1, Alias: "swamplord"},
				{GuildID: guild, BossID: 4, Alias: "gele"},
				{GuildID: guild, BossID: 99, Alias: "ghost"}, // boss no longer exists
			},
		},
	}
	registry := NewRegistry(storage, testLogger())
	require.NoError(t, registry.LoadAll(context.Background()))
	return registry
}

func TestResolve_AliasAndName(t *testing.T) {
	r := NewResolver(loadedRegistry(t))

	tests := []struct {
		name   string
		text   string
		wantID int64
	}{
		{"alias", "swampy", 1},
		{"second alias, same boss", "swamplord", 1},
		{"uppercase alias", "SWAMPY", 1},
		{"padded input", "  gele  ", 4},
		{"canonical name", "Swampie", 1},
		{"canonical name lowercased", "gelebron", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Resolve(guild, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, b.ID)
		})
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := NewResolver(loadedRegistry(t))

	// no partial matching: "swamp" is a prefix of swampy but must not match
	for _, text := range []string{"swamp", "nosuchboss", "", "   "} {
		_, err := r.Resolve(guild, text)
		assert.ErrorIs(t, err, ErrNotFound, "text %q", text)
	}

	// alias pointing at a deleted boss is dropped at load time
	_, err := r.Resolve(guild, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	// unknown guild
	_, err = r.Resolve(guild+1, "swampy")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_AmbiguousName(t *testing.T) {
	r := NewResolver(loadedRegistry(t))

	// Redbane exists in two categories; the resolver must refuse to guess
	_, err := r.Resolve(guild, "redbane")
	assert.ErrorIs(t, err, ErrAmbiguous)
}

func TestRegistry_GetAndSnapshot(t *testing.T) {
	registry := loadedRegistry(t)

	b, err := registry.Get(guild, 1)
	require.NoError(t, err)
	assert.Equal(t, "Swampie", b.Name)

	_, err = registry.Get(guild, 99)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := registry.Snapshot(guild)
	assert.Len(t, snap, 4)
	assert.Nil(t, registry.Snapshot(guild+1))
	assert.Len(t, registry.All(), 4)
}

func TestRegistry_ReloadFailureKeepsSnapshot(t *testing.T) {
	storage := &fakeStorage{
		bosses: map[int64][]Boss{
			guild: {{ID: 1, GuildID: guild, Name: "Swampie", SpawnMinutes: 33}},
		},
		aliases: map[int64][]Alias{},
	}
	registry := NewRegistry(storage, testLogger())
	require.NoError(t, registry.LoadAll(context.Background()))

	storage.failAll = true
	assert.Error(t, registry.Reload(context.Background()))

	// previous snapshot remains usable
	b, err := registry.Get(guild, 1)
	require.NoError(t, err)
	assert.Equal(t, "Swampie", b.Name)
}
