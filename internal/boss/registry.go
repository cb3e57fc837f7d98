package boss

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Storage is the read surface the registry caches over. *Store satisfies it.
type Storage interface {
	ByGuild(ctx context.Context, guildID int64) ([]Boss, error)
	AliasesByGuild(ctx context.Context, guildID int64) ([]Alias, error)
	GuildIDs(ctx context.Context) ([]int64, error)
}

// Registry is the in-memory cache of bosses per guild with an alias index.
// It is rebuilt from storage at startup, refreshed when the listener sees a
// boss_changed notification, and reloaded at the start of every tick —
// worst-case staleness is one tick interval.
type Registry struct {
	storage Storage
	logger  *slog.Logger

	mu     sync.RWMutex
	guilds map[int64]*guildIndex
}

// guildIndex holds one guild's snapshot. Lookup keys are lowercased and
// trimmed; a key mapping to more than one boss id marks an ambiguity.
type guildIndex struct {
	bosses  map[int64]Boss
	ordered []int64
	byName  map[string][]int64
	byAlias map[string][]int64
}

// NewRegistry creates an empty registry over storage.
func NewRegistry(storage Storage, logger *slog.Logger) *Registry {
	return &Registry{
		storage: storage,
		logger:  logger,
		guilds:  make(map[int64]*guildIndex),
	}
}

// LoadAll rebuilds the cache for every guild known to storage.
func (r *Registry) LoadAll(ctx context.Context) error {
	ids, err := r.storage.GuildIDs(ctx)
	if err != nil {
		return fmt.Errorf("load guild ids: %w", err)
	}
	for _, gid := range ids {
		if err := r.Load(ctx, gid); err != nil {
			return err
		}
	}
	return nil
}

// Load rebuilds the cache for a single guild.
func (r *Registry) Load(ctx context.Context, guildID int64) error {
	bosses, err := r.storage.ByGuild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load bosses g%d: %w", guildID, err)
	}
	aliases, err := r.storage.AliasesByGuild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load aliases g%d: %w", guildID, err)
	}

	idx := &guildIndex{
		bosses:  make(map[int64]Boss, len(bosses)),
		ordered: make([]int64, 0, len(bosses)),
		byName:  make(map[string][]int64),
		byAlias: make(map[string][]int64),
	}
	for _, b := range bosses {
		idx.bosses[b.ID] = b
		idx.ordered = append(idx.ordered, b.ID)
		key := normalizeKey(b.Name)
		idx.byName[key] = append(idx.byName[key], b.ID)
	}
	for _, a := range aliases {
		if _, ok := idx.bosses[a.BossID]; !ok {
			// alias points at a deleted boss; skip rather than fail the load
			r.logger.Warn("alias references missing boss",
				"guild_id", guildID, "alias", a.Alias, "boss_id", a.BossID)
			continue
		}
		key := normalizeKey(a.Alias)
		idx.byAlias[key] = append(idx.byAlias[key], a.BossID)
	}

	r.mu.Lock()
	r.guilds[guildID] = idx
	r.mu.Unlock()
	return nil
}

// Get returns a cached boss, or ErrNotFound when the id vanished (e.g.
// administrative deletion raced with a tick).
func (r *Registry) Get(guildID, bossID int64) (Boss, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.guilds[guildID]
	if !ok {
		return Boss{}, ErrNotFound
	}
	b, ok := idx.bosses[bossID]
	if !ok {
		return Boss{}, ErrNotFound
	}
	return b, nil
}

// Snapshot returns the cached bosses of one guild in display order.
func (r *Registry) Snapshot(guildID int64) []Boss {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.guilds[guildID]
	if !ok {
		return nil
	}
	out := make([]Boss, 0, len(idx.ordered))
	for _, id := range idx.ordered {
		out = append(out, idx.bosses[id])
	}
	return out
}

// All returns every cached boss across guilds.
func (r *Registry) All() []Boss {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Boss
	for _, idx := range r.guilds {
		for _, id := range idx.ordered {
			out = append(out, idx.bosses[id])
		}
	}
	return out
}

// GuildIDs returns the cached guild ids.
func (r *Registry) GuildIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.guilds))
	for gid := range r.guilds {
		ids = append(ids, gid)
	}
	return ids
}

// Reload refreshes every cached guild from storage. Called at tick start;
// on failure the previous snapshot stays in place.
func (r *Registry) Reload(ctx context.Context) error {
	return r.LoadAll(ctx)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
