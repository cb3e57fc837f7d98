// Package procstate wraps the meta key/value table as an explicit process
// state struct with defined load/save points: startup, end of each tick,
// and graceful shutdown. Nothing else touches these keys ad hoc.
package procstate

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	keyLastTick     = "last_tick_ts"
	keyLastStartup  = "last_startup_ts"
	keyOfflineSince = "offline_since"
)

// State is the engine's process-wide run state. A zero field means the
// value is unknown — '0', empty, or missing all mean "no recorded value",
// and the reconciler treats unknown as a conservative large gap.
type State struct {
	LastTick     int64
	LastStartup  int64
	OfflineSince int64
}

// Store reads and writes State against the meta table.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load reads the full State. Missing keys are zero, not errors.
func (s *Store) Load(ctx context.Context) (State, error) {
	var st State
	var err error
	if st.LastTick, err = s.getTS(ctx, keyLastTick); err != nil {
		return State{}, err
	}
	if st.LastStartup, err = s.getTS(ctx, keyLastStartup); err != nil {
		return State{}, err
	}
	if st.OfflineSince, err = s.getTS(ctx, keyOfflineSince); err != nil {
		return State{}, err
	}
	return st, nil
}

// SaveTick records the completion of a tick. Called exactly once per tick,
// after all per-boss workers have joined.
func (s *Store) SaveTick(ctx context.Context, ts int64) error {
	return s.set(ctx, keyLastTick, strconv.FormatInt(ts, 10))
}

// MarkStartup records process start and clears any stale offline marker.
func (s *Store) MarkStartup(ctx context.Context, ts int64) error {
	if err := s.set(ctx, keyLastStartup, strconv.FormatInt(ts, 10)); err != nil {
		return err
	}
	return s.set(ctx, keyOfflineSince, "0")
}

// MarkOffline records a clean shutdown so the next startup can bound the
// gap precisely.
func (s *Store) MarkOffline(ctx context.Context, ts int64) error {
	return s.set(ctx, keyOfflineSince, strconv.FormatInt(ts, 10))
}

// Get reads an arbitrary meta value ("" when absent). Used for seed
// version markers.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.pool.QueryRow(ctx, "meta_get", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("meta get %s: %w", key, err)
	}
	return v, nil
}

// Set upserts an arbitrary meta value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.set(ctx, key, value)
}

func (s *Store) getTS(ctx context.Context, key string) (int64, error) {
	v, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return ParseTS(v), nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	if _, err := s.pool.Exec(ctx, "meta_set", key, value); err != nil {
		return fmt.Errorf("meta set %s: %w", key, err)
	}
	return nil
}

// ParseTS interprets a stored timestamp string. '0', empty, and garbage
// all collapse to 0 = unknown, which is the safe direction: the reconciler
// then assumes the larger gap.
func ParseTS(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
