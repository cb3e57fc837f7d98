package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/config"
)

const t0 = int64(1_700_000_000)

type fakeStorage struct {
	bosses  map[int64][]boss.Boss
	aliases map[int64][]boss.Alias
}

func (f *fakeStorage) ByGuild(_ context.Context, guildID int64) ([]boss.Boss, error) {
	return f.bosses[guildID], nil
}

func (f *fakeStorage) AliasesByGuild(_ context.Context, guildID int64) ([]boss.Alias, error) {
	return f.aliases[guildID], nil
}

func (f *fakeStorage) GuildIDs(_ context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(f.bosses))
	for gid := range f.bosses {
		ids = append(ids, gid)
	}
	return ids, nil
}

// testRouter mounts the read-only timer routes over a canned registry.
// Handlers needing the database are not under test here.
func testRouter(t *testing.T) *chi.Mux {
	t.Helper()
	storage := &fakeStorage{
		bosses: map[int64][]boss.Boss{
			42: {
				{ID: 1, GuildID: 42, Name: "Gelebron", Category: "EG",
					SpawnMinutes: 1920, NextSpawnTS: t0 + 90*60, PreAnnounceMin: 10,
					WindowMinutes: 1680, Version: 1},
				{ID: 2, GuildID: 42, Name: "Swampie", Category: "Frozen",
					SpawnMinutes: 33, NextSpawnTS: t0 + 5*60, PreAnnounceMin: 10,
					WindowMinutes: 3, Version: 1},
			},
		},
		aliases: map[int64][]boss.Alias{
			42: {{GuildID: 42, BossID: 2, Alias: "swampy"}},
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := boss.NewRegistry(storage, logger)
	require.NoError(t, registry.LoadAll(context.Background()))

	h := New(nil, registry, &config.Config{DefaultPreMin: 10}, clock.NewFixed(time.Unix(t0, 0)))

	r := chi.NewRouter()
	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)
	r.Get("/api/v1/guilds", h.ListGuilds)
	r.Get("/api/v1/guilds/{guildID}/timers", h.ListTimers)
	r.Get("/api/v1/guilds/{guildID}/timers/{query}", h.ResolveTimer)
	return r
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestRootAndHealth(t *testing.T) {
	router := testRouter(t)

	rec, body := get(t, router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", body["status"])

	rec, body = get(t, router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
}

func TestListGuilds(t *testing.T) {
	rec, body := get(t, testRouter(t), "/api/v1/guilds")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["guilds"], 1)
}

func TestListTimers(t *testing.T) {
	rec, body := get(t, testRouter(t), "/api/v1/guilds/42/timers")
	require.Equal(t, http.StatusOK, rec.Code)

	timers := body["timers"].([]interface{})
	require.Len(t, timers, 2)

	first := timers[0].(map[string]interface{})
	assert.Equal(t, "Gelebron", first["name"])
	assert.Equal(t, "1h 30m", first["countdown"])
	// 1680m window: t0+90m is already inside [next-window, next+window]
	assert.Equal(t, "window_open", first["phase"])

	second := timers[1].(map[string]interface{})
	assert.Equal(t, "pre_announce", second["phase"])
}

func TestListTimers_CategoryFilter(t *testing.T) {
	rec, body := get(t, testRouter(t), "/api/v1/guilds/42/timers?category=Frozen")
	require.Equal(t, http.StatusOK, rec.Code)
	timers := body["timers"].([]interface{})
	require.Len(t, timers, 1)
	assert.Equal(t, "Swampie", timers[0].(map[string]interface{})["name"])
}

func TestListTimers_UnknownGuildEmpty(t *testing.T) {
	rec, body := get(t, testRouter(t), "/api/v1/guilds/999/timers")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["timers"])
}

func TestListTimers_BadGuildParam(t *testing.T) {
	rec, _ := get(t, testRouter(t), "/api/v1/guilds/notanumber/timers")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResolveTimer(t *testing.T) {
	rec, body := get(t, testRouter(t), "/api/v1/guilds/42/timers/swampy")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Swampie", body["name"])

	rec, _ = get(t, testRouter(t), "/api/v1/guilds/42/timers/nosuchboss")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
