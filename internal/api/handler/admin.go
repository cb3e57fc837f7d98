package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ravenguard/bosstrack/internal/api/respond"
	"github.com/ravenguard/bosstrack/internal/boss"
)

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, boss.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Boss not found")
	case errors.Is(err, boss.ErrConflict):
		respond.WriteError(w, http.StatusConflict, "VERSION_CONFLICT",
			"Boss was modified concurrently, re-read and retry")
	default:
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR", "Database operation failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "Invalid JSON body")
		return false
	}
	return true
}

// --------------------------------------------------------------------------
// Boss lifecycle
// --------------------------------------------------------------------------

type createBossRequest struct {
	Name           string `json:"name"`
	Category       string `json:"category"`
	SpawnMinutes   int    `json:"spawn_minutes"`
	WindowMinutes  int    `json:"window_minutes"`
	PreAnnounceMin int    `json:"pre_announce_min"`
	NextSpawnTS    int64  `json:"next_spawn_ts"`
	Notes          string `json:"notes"`
}

// CreateBoss adds a boss to a guild's roster.
// @Summary Create boss
// @Tags admin
// @Accept json
// @Produce json
// @Param guildID path int true "Guild ID"
// @Success 201 {object} TimerView
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses [post]
func (h *Handler) CreateBoss(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	var req createBossRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.SpawnMinutes <= 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY",
			"name and a positive spawn_minutes are required")
		return
	}
	if req.Category == "" {
		req.Category = "Default"
	}
	if req.PreAnnounceMin == 0 {
		req.PreAnnounceMin = h.cfg.DefaultPreMin
	}
	now := h.clk.Unix()
	if req.NextSpawnTS == 0 {
		// First cycle starts a full interval out, as if just killed.
		req.NextSpawnTS = now + int64(req.SpawnMinutes)*60
	}

	b := boss.Boss{
		GuildID:        guildID,
		Name:           strings.TrimSpace(req.Name),
		Category:       req.Category,
		SpawnMinutes:   req.SpawnMinutes,
		NextSpawnTS:    req.NextSpawnTS,
		PreAnnounceMin: req.PreAnnounceMin,
		WindowMinutes:  req.WindowMinutes,
		Notes:          req.Notes,
	}
	id, err := h.bosses.Create(r.Context(), b)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	b.ID = id
	respond.WriteJSONObject(w, http.StatusCreated, h.timerView(b, now))
}

// GetBoss returns one boss by id.
// @Summary Get boss
// @Tags admin
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 200 {object} TimerView
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses/{bossID} [get]
func (h *Handler) GetBoss(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	b, err := h.bosses.ByID(r.Context(), bossID)
	if err != nil || b.GuildID != guildID {
		respond.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Boss not found")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.timerView(b, h.clk.Unix()))
}

type editBossRequest struct {
	Field   string          `json:"field"`
	Value   json.RawMessage `json:"value"`
	Version int64           `json:"version"`
}

// EditBoss updates a single editable field under optimistic concurrency.
// @Summary Edit boss field
// @Tags admin
// @Accept json
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 200 {object} TimerView
// @Failure 409 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses/{bossID} [patch]
func (h *Handler) EditBoss(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathInt64(w, r, "guildID"); !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	var req editBossRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var value interface{}
	if err := json.Unmarshal(req.Value, &value); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "Invalid value")
		return
	}
	// JSON numbers decode as float64; integer columns want int64.
	if f, isFloat := value.(float64); isFloat && f == float64(int64(f)) {
		value = int64(f)
	}

	if err := h.bosses.UpdateField(r.Context(), bossID, req.Version, req.Field, value); err != nil {
		if strings.Contains(err.Error(), "not editable") {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "BAD_FIELD",
				"Field is not editable", req.Field)
			return
		}
		writeStoreError(w, err)
		return
	}

	b, err := h.bosses.ByID(r.Context(), bossID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.timerView(b, h.clk.Unix()))
}

// DeleteBoss removes a boss, its aliases, and its subscriptions.
// @Summary Delete boss
// @Tags admin
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses/{bossID} [delete]
func (h *Handler) DeleteBoss(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathInt64(w, r, "guildID"); !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	if err := h.bosses.Delete(r.Context(), bossID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --------------------------------------------------------------------------
// Timer mutations
// --------------------------------------------------------------------------

// KillBoss records a confirmed kill: the next spawn becomes one full
// interval from now.
// @Summary Report boss killed
// @Tags admin
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 200 {object} TimerView
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses/{bossID}/killed [post]
func (h *Handler) KillBoss(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathInt64(w, r, "guildID"); !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	now := h.clk.Unix()
	b, err := h.bosses.MarkKilled(r.Context(), bossID, now)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.timerView(b, now))
}

type shiftRequest struct {
	DeltaMinutes int `json:"delta_minutes"`
}

// ShiftBoss nudges a timer earlier or later. Reductions floor at now so a
// timer is never rewound into the past.
// @Summary Shift boss timer
// @Tags admin
// @Accept json
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 200 {object} TimerView
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/bosses/{bossID}/shift [post]
func (h *Handler) ShiftBoss(w http.ResponseWriter, r *http.Request) {
	if _, ok := pathInt64(w, r, "guildID"); !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	var req shiftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DeltaMinutes == 0 {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "delta_minutes must be non-zero")
		return
	}

	now := h.clk.Unix()
	var floor int64
	if req.DeltaMinutes < 0 {
		floor = now
	}
	b, err := h.bosses.Shift(r.Context(), bossID, int64(req.DeltaMinutes)*60, floor)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, h.timerView(b, now))
}

// --------------------------------------------------------------------------
// Aliases
// --------------------------------------------------------------------------

type aliasRequest struct {
	BossID int64  `json:"boss_id"`
	Alias  string `json:"alias"`
}

// AddAlias registers an alias for a boss.
// @Summary Add alias
// @Tags admin
// @Accept json
// @Param guildID path int true "Guild ID"
// @Success 204
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/guilds/{guildID}/aliases [post]
func (h *Handler) AddAlias(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	var req aliasRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.BossID == 0 || strings.TrimSpace(req.Alias) == "" {
		respond.WriteError(w, http.StatusBadRequest, "BAD_BODY", "boss_id and alias are required")
		return
	}
	if err := h.bosses.AddAlias(r.Context(), guildID, req.BossID, req.Alias); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveAlias deletes an alias.
// @Summary Remove alias
// @Tags admin
// @Param guildID path int true "Guild ID"
// @Param alias path string true "Alias"
// @Success 204
// @Router /api/v1/guilds/{guildID}/aliases/{alias} [delete]
func (h *Handler) RemoveAlias(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	alias := chi.URLParam(r, "alias")
	if err := h.bosses.RemoveAlias(r.Context(), guildID, alias); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

// Subscribe registers a user for a boss's notifications.
// @Summary Subscribe user
// @Tags admin
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Param userID path int true "User ID"
// @Success 204
// @Router /api/v1/guilds/{guildID}/bosses/{bossID}/subscribers/{userID} [put]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	userID, ok := pathInt64(w, r, "userID")
	if !ok {
		return
	}
	if err := h.subs.Add(r.Context(), guildID, bossID, userID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unsubscribe removes a user's subscription.
// @Summary Unsubscribe user
// @Tags admin
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Param userID path int true "User ID"
// @Success 204
// @Router /api/v1/guilds/{guildID}/bosses/{bossID}/subscribers/{userID} [delete]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	userID, ok := pathInt64(w, r, "userID")
	if !ok {
		return
	}
	if err := h.subs.Remove(r.Context(), guildID, bossID, userID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscribers lists user ids subscribed to a boss.
// @Summary List subscribers
// @Tags admin
// @Produce json
// @Param guildID path int true "Guild ID"
// @Param bossID path int true "Boss ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/guilds/{guildID}/bosses/{bossID}/subscribers [get]
func (h *Handler) Subscribers(w http.ResponseWriter, r *http.Request) {
	guildID, ok := pathInt64(w, r, "guildID")
	if !ok {
		return
	}
	bossID, ok := pathInt64(w, r, "bossID")
	if !ok {
		return
	}
	users, err := h.subs.Audience(r.Context(), guildID, bossID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if users == nil {
		users = []int64{}
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"guild_id": guildID,
		"boss_id":  bossID,
		"users":    users,
	})
}
