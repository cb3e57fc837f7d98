package boss

import "fmt"

// Resolver resolves free-text input to a boss using the registry's alias
// index. Matching is case-insensitive on trimmed input; an exact alias
// match wins, then an exact canonical-name match. There is no fuzzy or
// partial matching — on a shared roster of 40+ bosses a prefix match
// misfires too easily.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a Resolver over a registry.
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve maps text to a boss. Returns ErrNotFound when nothing matches and
// ErrAmbiguous when more than one boss shares the key. Ambiguity should not
// happen for aliases given the (guild_id, alias) uniqueness constraint, but
// canonical names are only unique per category, and aliases are
// administratively editable — so both paths check instead of picking
// arbitrarily.
func (r *Resolver) Resolve(guildID int64, text string) (Boss, error) {
	key := normalizeKey(text)
	if key == "" {
		return Boss{}, ErrNotFound
	}

	r.registry.mu.RLock()
	defer r.registry.mu.RUnlock()
	idx, ok := r.registry.guilds[guildID]
	if !ok {
		return Boss{}, ErrNotFound
	}

	if ids := idx.byAlias[key]; len(ids) > 0 {
		return pickOne(idx, ids, text)
	}
	if ids := idx.byName[key]; len(ids) > 0 {
		return pickOne(idx, ids, text)
	}
	return Boss{}, fmt.Errorf("resolve %q: %w", text, ErrNotFound)
}

func pickOne(idx *guildIndex, ids []int64, text string) (Boss, error) {
	if len(ids) > 1 {
		return Boss{}, fmt.Errorf("resolve %q matches %d bosses: %w", text, len(ids), ErrAmbiguous)
	}
	b, ok := idx.bosses[ids[0]]
	if !ok {
		return Boss{}, ErrNotFound
	}
	return b, nil
}
