package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ravenguard/bosstrack/internal/api/respond"
	"github.com/ravenguard/bosstrack/internal/boss"
	"github.com/ravenguard/bosstrack/internal/respawn"
)

// Countdowns further overdue than this render as "-Nada" (lost track).
const nadaGraceSeconds = 1800

// TimerView is one boss timer as presented to ops clients.
type TimerView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	SpawnMinutes  int    `json:"spawn_minutes"`
	WindowMinutes int    `json:"window_minutes"`
	NextSpawnTS   int64  `json:"next_spawn_ts"`
	Phase         string `json:"phase"`
	Countdown     string `json:"countdown"`
	Notes         string `json:"notes,omitempty"`
}

func (h *Handler) timerView(b boss.Boss, now int64) TimerView {
	phase, err := respawn.Classify(now, b.NextSpawnTS, b.SpawnMinutes, b.PreAnnounceMin, b.WindowMinutes)
	phaseName := phase.String()
	if err != nil {
		phaseName = "invalid"
	}
	return TimerView{
		ID:            b.ID,
		Name:          b.Name,
		Category:      b.Category,
		SpawnMinutes:  b.SpawnMinutes,
		WindowMinutes: b.WindowMinutes,
		NextSpawnTS:   b.NextSpawnTS,
		Phase:         phaseName,
		Countdown:     respawn.FormatDelta(b.NextSpawnTS-now, nadaGraceSeconds),
		Notes:         b.Notes,
	}
}

// ListGuilds returns guild ids known to the registry.
// @Summary List guilds
// @Tags timers
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/guilds [get]
func (h *Handler) ListGuilds(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"guilds": h.registry.GuildIDs(),
	})
}

// ListTimers returns every timer for a guild with its phase and countdown.
// @Summary List guild timers
// @Tags timers
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param category query string false "Filter by category"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/timers [get]
func (h *Handler) ListTimers(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}

	category := r.URL.Query().Get("category")
	now := h.clk.Unix()

	var timers []TimerView
	for _, b := range h.registry.Snapshot(guildID) {
		if category != "" && b.Category != category {
			continue
		}
		timers = append(timers, h.timerView(b, now))
	}
	if timers == nil {
		timers = []TimerView{}
	}

	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"guild_id": guildID,
		"now":      now,
		"timers":   timers,
	})
}

// ResolveTimer resolves free text to a single boss timer.
// @Summary Resolve a boss name or alias
// @Tags timers
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param query path string true "Boss name or alias"
// @Success 200 {object} TimerView
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/timers/{query} [get]
func (h *Handler) ResolveTimer(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}

	query := chi.URLParam(r, "query")
	b, err := h.resolver.Resolve(guildID, query)
	if err != nil {
		writeResolveError(w, query, err)
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, h.timerView(b, h.clk.Unix()))
}

func writeResolveError(w http.ResponseWriter, query string, err error) {
	switch {
	case errors.Is(err, boss.ErrAmbiguous):
		respond.WriteErrorDetail(w, http.StatusConflict, "AMBIGUOUS",
			"Name matches more than one boss", query)
	case errors.Is(err, boss.ErrNotFound):
		respond.WriteErrorDetail(w, http.StatusNotFound, "NOT_FOUND",
			"No boss matches that name or alias", query)
	default:
		respond.WriteError(w, http.StatusInternalServerError, "RESOLVE_FAILED", "Resolution failed")
	}
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_PARAM", "Invalid "+name)
		return 0, false
	}
	return v, true
}
