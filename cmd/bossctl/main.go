// Command bossctl is the bosstrack administration CLI.
//
// Usage:
//
//	bossctl seed --guild 123
//	bossctl boss list --guild 123
//	bossctl boss killed --guild 123 --name gele
//	bossctl boss shift --guild 123 --name 180 --minutes -10
//	bossctl boss add --guild 123 --name "New Boss" --spawn 90 --window 10
//	bossctl alias add --guild 123 --name Proteus --alias base
//	bossctl sub add --guild 123 --name bt --user 456
//	bossctl find --guild 123 swampy
//	bossctl status
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ravenguard/bosstrack/internal/announce"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/clock"
	"github.com/ravenguard/bosstrack/internal/config"
	"github.com/ravenguard/bosstrack/internal/db"
	"github.com/ravenguard/bosstrack/internal/procstate"
	"github.com/ravenguard/bosstrack/internal/respawn"
	"github.com/ravenguard/bosstrack/internal/seed"
	"github.com/ravenguard/bosstrack/internal/subscription"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

var clk = clock.Real{}

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "bossctl",
		Short: "bosstrack administration CLI",
	}

	root.AddCommand(seedCmd())
	root.AddCommand(bossCmd())
	root.AddCommand(aliasCmd())
	root.AddCommand(subCmd())
	root.AddCommand(findCmd())
	root.AddCommand(statusCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// seed command
// --------------------------------------------------------------------------

func seedCmd() *cobra.Command {
	var guildID int64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Install or re-enforce the built-in boss roster for a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				state := procstate.NewStore(pool.Pool)
				outbox := announce.NewOutbox(pool.Pool)
				start := time.Now()
				result, err := seed.EnsureGuild(ctx, pool.Pool, state, outbox, guildID, clk.Unix(), logger)
				if err != nil {
					return err
				}
				logger.Info("Seed finished",
					"guild_id", guildID,
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary())
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	return cmd
}

// --------------------------------------------------------------------------
// boss command
// --------------------------------------------------------------------------

func bossCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boss",
		Short: "Manage bosses and their timers",
	}
	cmd.AddCommand(bossListCmd())
	cmd.AddCommand(bossAddCmd())
	cmd.AddCommand(bossKilledCmd())
	cmd.AddCommand(bossShiftCmd())
	cmd.AddCommand(bossEditCmd())
	cmd.AddCommand(bossDeleteCmd())
	return cmd
}

func bossListCmd() *cobra.Command {
	var guildID int64
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List timers for a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				bosses, err := boss.NewStore(pool.Pool).ByGuild(ctx, guildID)
				if err != nil {
					return err
				}
				now := clk.Unix()
				for _, b := range bosses {
					if category != "" && b.Category != category {
						continue
					}
					phase, err := respawn.Classify(now, b.NextSpawnTS, b.SpawnMinutes, b.PreAnnounceMin, b.WindowMinutes)
					phaseName := phase.String()
					if err != nil {
						phaseName = "invalid"
					}
					fmt.Printf("%-10s %-20s %8s  %s\n",
						b.Category, b.Name,
						respawn.FormatDelta(b.NextSpawnTS-now, 1800), phaseName)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&category, "category", "", "Filter by category")
	return cmd
}

func bossAddCmd() *cobra.Command {
	var guildID int64
	var name, category, notes string
	var spawnMin, windowMin, preMin int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a boss to a guild's roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" || spawnMin <= 0 {
				return fmt.Errorf("--guild, --name, and a positive --spawn are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				now := clk.Unix()
				if preMin == 0 {
					preMin = cfg.DefaultPreMin
				}
				id, err := boss.NewStore(pool.Pool).Create(ctx, boss.Boss{
					GuildID:        guildID,
					Name:           name,
					Category:       category,
					SpawnMinutes:   spawnMin,
					NextSpawnTS:    now + int64(spawnMin)*60,
					PreAnnounceMin: preMin,
					WindowMinutes:  windowMin,
					Notes:          notes,
				})
				if err != nil {
					return err
				}
				logger.Info("Boss added", "id", id, "name", name, "spawn_minutes", spawnMin)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name")
	cmd.Flags().StringVar(&category, "category", "Default", "Category")
	cmd.Flags().IntVar(&spawnMin, "spawn", 0, "Respawn interval in minutes")
	cmd.Flags().IntVar(&windowMin, "window", 0, "Spawn window half-width in minutes")
	cmd.Flags().IntVar(&preMin, "pre", 0, "Pre-announce lead in minutes (0 = default)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes")
	return cmd
}

func bossKilledCmd() *cobra.Command {
	var guildID int64
	var name string
	cmd := &cobra.Command{
		Use:   "killed",
		Short: "Report a boss killed: next spawn becomes one interval from now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" {
				return fmt.Errorf("--guild and --name are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				now := clk.Unix()
				updated, err := boss.NewStore(pool.Pool).MarkKilled(ctx, b.ID, now)
				if err != nil {
					return err
				}
				logger.Info("Kill recorded",
					"name", updated.Name,
					"next_in", respawn.FormatDelta(updated.NextSpawnTS-now, 1800))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	return cmd
}

func bossShiftCmd() *cobra.Command {
	var guildID int64
	var name string
	var minutes int
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Shift a timer earlier or later by minutes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" || minutes == 0 {
				return fmt.Errorf("--guild, --name, and a non-zero --minutes are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				now := clk.Unix()
				var floor int64
				if minutes < 0 {
					floor = now
				}
				updated, err := boss.NewStore(pool.Pool).Shift(ctx, b.ID, int64(minutes)*60, floor)
				if err != nil {
					return err
				}
				logger.Info("Timer shifted",
					"name", updated.Name,
					"minutes", minutes,
					"next_in", respawn.FormatDelta(updated.NextSpawnTS-now, 1800))
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Minutes to shift (negative = earlier)")
	return cmd
}

func bossEditCmd() *cobra.Command {
	var guildID int64
	var name, field, value string
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit one boss field (name, category, spawn_minutes, window_minutes, pre_announce_min, sort_key, notes)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" || field == "" {
				return fmt.Errorf("--guild, --name, and --field are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				// Integer columns want an integer parameter, not text.
				var v any = value
				if n, convErr := strconv.Atoi(value); convErr == nil {
					v = n
				}
				if err := boss.NewStore(pool.Pool).UpdateField(ctx, b.ID, b.Version, field, v); err != nil {
					return err
				}
				logger.Info("Boss updated", "name", b.Name, "field", field, "value", value)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	cmd.Flags().StringVar(&field, "field", "", "Field to edit")
	cmd.Flags().StringVar(&value, "value", "", "New value")
	return cmd
}

func bossDeleteCmd() *cobra.Command {
	var guildID int64
	var name string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a boss, its aliases, and its subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" {
				return fmt.Errorf("--guild and --name are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				if err := boss.NewStore(pool.Pool).Delete(ctx, b.ID); err != nil {
					return err
				}
				logger.Info("Boss deleted", "name", b.Name, "id", b.ID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	return cmd
}

// --------------------------------------------------------------------------
// alias command
// --------------------------------------------------------------------------

func aliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage boss lookup aliases",
	}
	cmd.AddCommand(aliasAddCmd())
	cmd.AddCommand(aliasRemoveCmd())
	return cmd
}

func aliasAddCmd() *cobra.Command {
	var guildID int64
	var name, alias string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an alias for a boss",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || name == "" || alias == "" {
				return fmt.Errorf("--guild, --name, and --alias are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				if err := boss.NewStore(pool.Pool).AddAlias(ctx, guildID, b.ID, alias); err != nil {
					return err
				}
				logger.Info("Alias added", "boss", b.Name, "alias", alias)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	cmd.Flags().StringVar(&alias, "alias", "", "New alias")
	return cmd
}

func aliasRemoveCmd() *cobra.Command {
	var guildID int64
	var alias string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an alias",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || alias == "" {
				return fmt.Errorf("--guild and --alias are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				if err := boss.NewStore(pool.Pool).RemoveAlias(ctx, guildID, alias); err != nil {
					return err
				}
				logger.Info("Alias removed", "alias", alias)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().StringVar(&alias, "alias", "", "Alias to remove")
	return cmd
}

// --------------------------------------------------------------------------
// sub command
// --------------------------------------------------------------------------

func subCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sub",
		Short: "Manage per-boss user subscriptions",
	}
	cmd.AddCommand(subAddCmd())
	cmd.AddCommand(subRemoveCmd())
	return cmd
}

func subAddCmd() *cobra.Command {
	var guildID, userID int64
	var name string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Subscribe a user to a boss's notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || userID == 0 || name == "" {
				return fmt.Errorf("--guild, --user, and --name are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				if err := subscription.NewIndex(pool.Pool).Add(ctx, guildID, b.ID, userID); err != nil {
					return err
				}
				logger.Info("Subscribed", "boss", b.Name, "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	return cmd
}

func subRemoveCmd() *cobra.Command {
	var guildID, userID int64
	var name string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a user's subscription",
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 || userID == 0 || name == "" {
				return fmt.Errorf("--guild, --user, and --name are required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, name)
				if err != nil {
					return err
				}
				if err := subscription.NewIndex(pool.Pool).Remove(ctx, guildID, b.ID, userID); err != nil {
					return err
				}
				logger.Info("Unsubscribed", "boss", b.Name, "user_id", userID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID")
	cmd.Flags().StringVar(&name, "name", "", "Boss name or alias")
	return cmd
}

// --------------------------------------------------------------------------
// find / status commands
// --------------------------------------------------------------------------

func findCmd() *cobra.Command {
	var guildID int64
	cmd := &cobra.Command{
		Use:   "find <name-or-alias>",
		Short: "Resolve free text to a boss and show its timer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if guildID == 0 {
				return fmt.Errorf("--guild is required")
			}
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				b, err := resolve(ctx, pool, guildID, args[0])
				if err != nil {
					return err
				}
				now := clk.Unix()
				phase, err := respawn.Classify(now, b.NextSpawnTS, b.SpawnMinutes, b.PreAnnounceMin, b.WindowMinutes)
				phaseName := phase.String()
				if err != nil {
					phaseName = "invalid"
				}
				announced, err := announce.NewOutbox(pool.Pool).PendingForBoss(
					ctx, guildID, b.ID, announce.PhaseSpawn, b.NextSpawnTS)
				if err != nil {
					return err
				}
				fmt.Printf("%s [%s]  spawn=%dm window=%dm  next=%s  phase=%s  announced=%t\n",
					b.Name, b.Category, b.SpawnMinutes, b.WindowMinutes,
					respawn.FormatDelta(b.NextSpawnTS-now, 1800), phaseName, announced)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&guildID, "guild", 0, "Guild ID")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show engine process state and outbox depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				st, err := procstate.NewStore(pool.Pool).Load(ctx)
				if err != nil {
					return err
				}
				now := clk.Unix()
				fmt.Printf("last tick:    %s\n", tsString(st.LastTick, now))
				fmt.Printf("last startup: %s\n", tsString(st.LastStartup, now))
				fmt.Printf("offline since: %s\n", tsString(st.OfflineSince, now))

				rows, err := pool.Query(ctx,
					"SELECT status, COUNT(*) FROM announcements GROUP BY status ORDER BY status")
				if err != nil {
					return err
				}
				defer rows.Close()
				for rows.Next() {
					var status string
					var n int64
					if err := rows.Scan(&status, &n); err != nil {
						return err
					}
					fmt.Printf("outbox %-10s %d\n", status, n)
				}
				return rows.Err()
			})
		},
	}
}

func tsString(ts, now int64) string {
	if ts <= 0 {
		return "unknown"
	}
	return fmt.Sprintf("%s (%s ago)",
		time.Unix(ts, 0).UTC().Format(time.RFC3339), respawn.HumanAgo(now-ts))
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// run handles config loading, DB connection, and context cancellation.
func run(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}

// resolve loads a guild's registry and resolves free text to one boss.
func resolve(ctx context.Context, pool *db.Pool, guildID int64, text string) (boss.Boss, error) {
	registry := boss.NewRegistry(boss.NewStore(pool.Pool), logger)
	if err := registry.Load(ctx, guildID); err != nil {
		return boss.Boss{}, err
	}
	return boss.NewResolver(registry).Resolve(guildID, text)
}
