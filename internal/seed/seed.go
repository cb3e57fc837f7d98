// Package seed installs and enforces the built-in boss roster per guild.
// Seeding is idempotent: missing bosses are inserted, drifted intervals
// and windows are corrected, missing aliases are added, and manually added
// bosses are never touched or deleted.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ravenguard/bosstrack/internal/procstate"
)

// Version is recorded in meta per guild once the roster is enforced.
// Bump when roster contents change.
const Version = "v2026-08-29-roster"

// Seeded bosses start this far in the past. The backdated cycle is
// recorded as already announced in the outbox, so seeding never bursts
// spawn notifications; timers come live once the scheduler rolls them
// forward or a kill is reported.
const initialOverdueSeconds = 3601

const defaultPreAnnounceMin = 10

// Entry is one roster row.
type Entry struct {
	Category      string
	Name          string
	SpawnMinutes  int
	WindowMinutes int
	Aliases       []string
}

// Roster is the authoritative respawn/window table for all listed bosses.
var Roster = []Entry{
	// Meteoric
	{"Meteoric", "Doomclaw", 7, 5, nil},
	{"Meteoric", "Bonehad", 15, 5, nil},
	{"Meteoric", "Rockbelly", 15, 5, nil},
	{"Meteoric", "Redbane", 20, 5, nil},
	{"Meteoric", "Coppinger", 20, 5, []string{"copp"}},
	{"Meteoric", "Goretusk", 20, 5, nil},

	// Frozen
	{"Frozen", "Redbane", 20, 5, nil},
	{"Frozen", "Eye", 28, 3, nil},
	{"Frozen", "Swampie", 33, 3, []string{"swampy", "swamplord"}},
	{"Frozen", "Woody", 38, 3, nil},
	{"Frozen", "Chained", 43, 3, []string{"chain"}},
	{"Frozen", "Grom", 48, 3, nil},
	{"Frozen", "Pyrus", 58, 3, []string{"py"}},

	// DL
	{"DL", "155", 63, 3, nil},
	{"DL", "160", 68, 3, nil},
	{"DL", "165", 73, 3, nil},
	{"DL", "170", 78, 3, nil},
	{"DL", "180", 88, 3, []string{"snorri"}},

	// EDL
	{"EDL", "185", 72, 3, nil},
	{"EDL", "190", 81, 3, nil},
	{"EDL", "195", 89, 4, nil},
	{"EDL", "200", 108, 5, nil},
	{"EDL", "205", 117, 4, nil},
	{"EDL", "210", 125, 5, nil},
	{"EDL", "215", 134, 5, []string{"unox"}},

	// Rings (3h35m cycle, 50m window)
	{"Rings", "North Ring", 215, 50, []string{"northring"}},
	{"Rings", "Center Ring", 215, 50, []string{"centre", "centering"}},
	{"Rings", "South Ring", 215, 50, []string{"southring"}},
	{"Rings", "East Ring", 215, 50, []string{"eastring"}},

	// EG
	{"EG", "Draig Liathphur", 240, 840, []string{"draig", "dragon", "riverdragon"}},
	{"EG", "Sciathan Leathair", 240, 300, []string{"sciathan", "bat", "northbat"}},
	{"EG", "Thymea Banebark", 240, 840, []string{"thymea", "tree", "ancienttree"}},
	{"EG", "Proteus", 1080, 15, []string{"prot", "base", "prime"}},
	{"EG", "Gelebron", 1920, 1680, []string{"gele"}},
	{"EG", "Dhiothu", 2040, 1680, []string{"dino", "dhio", "d2"}},
	{"EG", "Bloodthorn", 2040, 1680, []string{"bt"}},
	{"EG", "Crom's Manikin", 5760, 1440, []string{"manikin", "crom", "croms"}},

	// Midraids
	{"Midraids", "Aggorath", 1200, 960, []string{"aggy"}},
	{"Midraids", "Mordris", 1200, 960, []string{"mord", "mordy"}},
	{"Midraids", "Necromancer", 1320, 960, []string{"necro"}},
	{"Midraids", "Hrungnir", 1320, 960, []string{"hrung", "muk"}},
}

// Result summarizes one seeding pass.
type Result struct {
	Inserted     int
	Updated      int
	AliasesAdded int
}

// Summary renders the result for logs.
func (r Result) Summary() string {
	return fmt.Sprintf("inserted=%d updated=%d aliases_added=%d", r.Inserted, r.Updated, r.AliasesAdded)
}

// CycleMuter records a boss cycle as already announced. Satisfied by
// announce.Outbox.
type CycleMuter interface {
	MarkCycleAnnounced(ctx context.Context, guildID, bossID, cycleTS int64, bossName string) error
}

// EnsureGuild enforces the roster for one guild at time now (Unix seconds).
func EnsureGuild(ctx context.Context, pool *pgxpool.Pool, meta *procstate.Store, outbox CycleMuter, guildID, now int64, logger *slog.Logger) (Result, error) {
	var res Result

	type existing struct {
		id     int64
		spawn  int
		window int
	}
	current := make(map[[2]string]existing)

	rows, err := pool.Query(ctx,
		`SELECT id, name, category, spawn_minutes, window_minutes FROM bosses WHERE guild_id = $1`,
		guildID)
	if err != nil {
		return res, fmt.Errorf("load existing bosses: %w", err)
	}
	for rows.Next() {
		var e existing
		var name, category string
		if err := rows.Scan(&e.id, &name, &category, &e.spawn, &e.window); err != nil {
			rows.Close()
			return res, fmt.Errorf("scan existing boss: %w", err)
		}
		current[[2]string{category, name}] = e
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return res, fmt.Errorf("load existing bosses: %w", err)
	}

	for _, entry := range Roster {
		key := [2]string{entry.Category, entry.Name}
		e, ok := current[key]
		if ok {
			if e.spawn != entry.SpawnMinutes || e.window != entry.WindowMinutes {
				_, err := pool.Exec(ctx, `
					UPDATE bosses SET spawn_minutes = $2, window_minutes = $3, version = version + 1
					WHERE id = $1`, e.id, entry.SpawnMinutes, entry.WindowMinutes)
				if err != nil {
					return res, fmt.Errorf("enforce %s/%s: %w", entry.Category, entry.Name, err)
				}
				res.Updated++
			}
		} else {
			err := pool.QueryRow(ctx, `
				INSERT INTO bosses (guild_id, name, category, spawn_minutes, next_spawn_ts,
					pre_announce_min, window_minutes)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING id`,
				guildID, entry.Name, entry.Category, entry.SpawnMinutes,
				now-initialOverdueSeconds, defaultPreAnnounceMin, entry.WindowMinutes).Scan(&e.id)
			if err != nil {
				return res, fmt.Errorf("insert %s/%s: %w", entry.Category, entry.Name, err)
			}
			if err := outbox.MarkCycleAnnounced(ctx, guildID, e.id, now-initialOverdueSeconds, entry.Name); err != nil {
				return res, fmt.Errorf("mute seeded cycle %s/%s: %w", entry.Category, entry.Name, err)
			}
			res.Inserted++
		}

		for _, alias := range entry.Aliases {
			tag, err := pool.Exec(ctx, `
				INSERT INTO boss_aliases (guild_id, boss_id, alias)
				VALUES ($1, $2, $3) ON CONFLICT (guild_id, alias) DO NOTHING`,
				guildID, e.id, strings.ToLower(strings.TrimSpace(alias)))
			if err != nil {
				return res, fmt.Errorf("alias %s: %w", alias, err)
			}
			if tag.RowsAffected() > 0 {
				res.AliasesAdded++
			}
		}
	}

	marker := fmt.Sprintf("seed:%s:g%d", Version, guildID)
	if err := meta.Set(ctx, marker, "done"); err != nil {
		return res, err
	}

	if res.Inserted+res.Updated+res.AliasesAdded > 0 {
		logger.Info("Roster enforced", "guild_id", guildID, "summary", res.Summary())
	}
	return res, nil
}
