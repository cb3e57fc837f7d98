package boss

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed persistence layer for bosses and aliases.
// All next_spawn_ts writes go through compare-and-swap on the version
// column so a scheduler rollover never silently clobbers a concurrent
// administrative edit.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanBoss(row pgx.Row) (Boss, error) {
	var b Boss
	err := row.Scan(
		&b.ID, &b.GuildID, &b.Name, &b.Category, &b.SpawnMinutes,
		&b.NextSpawnTS, &b.PreAnnounceMin, &b.WindowMinutes,
		&b.ChannelID, &b.TrustedRoleID, &b.SortKey, &b.Notes, &b.Version,
	)
	return b, err
}

func collectBosses(rows pgx.Rows) ([]Boss, error) {
	defer rows.Close()
	var bosses []Boss
	for rows.Next() {
		b, err := scanBoss(rows)
		if err != nil {
			return nil, fmt.Errorf("scan boss: %w", err)
		}
		bosses = append(bosses, b)
	}
	return bosses, rows.Err()
}

// ByID returns a single boss, or ErrNotFound.
func (s *Store) ByID(ctx context.Context, id int64) (Boss, error) {
	b, err := scanBoss(s.pool.QueryRow(ctx, "boss_by_id", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Boss{}, ErrNotFound
	}
	if err != nil {
		return Boss{}, fmt.Errorf("boss by id: %w", err)
	}
	return b, nil
}

// ByGuild returns all bosses for a guild in display order.
func (s *Store) ByGuild(ctx context.Context, guildID int64) ([]Boss, error) {
	rows, err := s.pool.Query(ctx, "bosses_by_guild", guildID)
	if err != nil {
		return nil, fmt.Errorf("bosses by guild: %w", err)
	}
	return collectBosses(rows)
}

// All returns every boss across all guilds. Used by the scheduler tick and
// the downtime reconciler.
func (s *Store) All(ctx context.Context) ([]Boss, error) {
	rows, err := s.pool.Query(ctx, "bosses_all")
	if err != nil {
		return nil, fmt.Errorf("all bosses: %w", err)
	}
	return collectBosses(rows)
}

// GuildIDs returns the distinct guilds with at least one boss.
func (s *Store) GuildIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, "guild_ids")
	if err != nil {
		return nil, fmt.Errorf("guild ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan guild id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AliasesByGuild returns the alias rows for a guild.
func (s *Store) AliasesByGuild(ctx context.Context, guildID int64) ([]Alias, error) {
	rows, err := s.pool.Query(ctx, "aliases_by_guild", guildID)
	if err != nil {
		return nil, fmt.Errorf("aliases by guild: %w", err)
	}
	defer rows.Close()
	var aliases []Alias
	for rows.Next() {
		a := Alias{GuildID: guildID}
		if err := rows.Scan(&a.BossID, &a.Alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}

// UpdateNextSpawn advances a boss's timer with compare-and-swap on version.
// Returns ErrConflict when the row changed underneath us (or was deleted);
// the scheduler re-evaluates the boss on its next tick either way.
func (s *Store) UpdateNextSpawn(ctx context.Context, id, version, nextTS int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bosses SET next_spawn_ts = $3, version = version + 1
		WHERE id = $1 AND version = $2`, id, version, nextTS)
	if err != nil {
		return fmt.Errorf("update next spawn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Shift moves a boss's timer by delta seconds, flooring at floorTS so a
// reduce can never push the spawn into the past. Administrative path; no
// CAS because the shift is expressed relative to the stored value.
func (s *Store) Shift(ctx context.Context, id int64, delta, floorTS int64) (Boss, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE bosses SET next_spawn_ts = GREATEST($3, next_spawn_ts + $2), version = version + 1
		WHERE id = $1
		RETURNING id, guild_id, name, category, spawn_minutes, next_spawn_ts,
			pre_announce_min, window_minutes, channel_id, trusted_role_id, sort_key, notes, version`,
		id, delta, floorTS)
	b, err := scanBoss(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Boss{}, ErrNotFound
	}
	if err != nil {
		return Boss{}, fmt.Errorf("shift boss: %w", err)
	}
	return b, nil
}

// MarkKilled records an observed kill: the next spawn is one full interval
// from now.
func (s *Store) MarkKilled(ctx context.Context, id, now int64) (Boss, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE bosses SET next_spawn_ts = $2 + spawn_minutes * 60, version = version + 1
		WHERE id = $1
		RETURNING id, guild_id, name, category, spawn_minutes, next_spawn_ts,
			pre_announce_min, window_minutes, channel_id, trusted_role_id, sort_key, notes, version`,
		id, now)
	b, err := scanBoss(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Boss{}, ErrNotFound
	}
	if err != nil {
		return Boss{}, fmt.Errorf("mark killed: %w", err)
	}
	return b, nil
}

// Create inserts a new boss and returns its id. Duplicate
// (guild, name, category) surfaces as an error from the unique constraint.
func (s *Store) Create(ctx context.Context, b Boss) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO bosses (guild_id, name, category, spawn_minutes, next_spawn_ts,
			pre_announce_min, window_minutes, channel_id, trusted_role_id, sort_key, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		b.GuildID, b.Name, b.Category, b.SpawnMinutes, b.NextSpawnTS,
		b.PreAnnounceMin, b.WindowMinutes, b.ChannelID, b.TrustedRoleID,
		b.SortKey, b.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create boss: %w", err)
	}
	return id, nil
}

// editableFields are the columns boss edit may touch. Mirrors the edit
// surface of the admin boundary.
var editableFields = map[string]string{
	"name":             "name",
	"category":         "category",
	"spawn_minutes":    "spawn_minutes",
	"window_minutes":   "window_minutes",
	"pre_announce_min": "pre_announce_min",
	"sort_key":         "sort_key",
	"notes":            "notes",
}

// UpdateField sets a single editable column with CAS on version.
func (s *Store) UpdateField(ctx context.Context, id, version int64, field string, value any) error {
	col, ok := editableFields[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return fmt.Errorf("field %q is not editable", field)
	}
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE bosses SET %s = $3, version = version + 1 WHERE id = $1 AND version = $2`, col),
		id, version, value)
	if err != nil {
		return fmt.Errorf("update %s: %w", col, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

// Delete removes a boss and its aliases and subscriptions in one
// transaction, so a failed cleanup never leaves orphaned rows behind.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM bosses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete boss: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM boss_aliases WHERE boss_id = $1`, id); err != nil {
		return fmt.Errorf("delete aliases: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE boss_id = $1`, id); err != nil {
		return fmt.Errorf("delete subscriptions: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// AddAlias registers a lookup alias. Aliases are stored lowercased and
// trimmed; duplicates within a guild are rejected by the unique constraint.
func (s *Store) AddAlias(ctx context.Context, guildID, bossID int64, alias string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO boss_aliases (guild_id, boss_id, alias) VALUES ($1, $2, $3)`,
		guildID, bossID, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return fmt.Errorf("add alias: %w", err)
	}
	return nil
}

// RemoveAlias drops a lookup alias.
func (s *Store) RemoveAlias(ctx context.Context, guildID int64, alias string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM boss_aliases WHERE guild_id = $1 AND alias = $2`,
		guildID, strings.ToLower(strings.TrimSpace(alias)))
	if err != nil {
		return fmt.Errorf("remove alias: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
