package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tabine/shiori/internal/auth"
	"github.com/tabine/shiori/internal/model"
	"github.com/tabine/shiori/internal/store"
)

// ShareHandler manages persistent per-user grants. Every operation here
// except the reverse lookup is owner-scoped: the schedule in question
// is always the caller's own.
type ShareHandler struct {
	schedules    *store.ScheduleStore
	shares       *store.ShareStore
	users        *store.UserStore
	exposeErrors bool
	logger       *slog.Logger
}

func NewShareHandler(schedules *store.ScheduleStore, shares *store.ShareStore, users *store.UserStore, exposeErrors bool, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{
		schedules:    schedules,
		shares:       shares,
		users:        users,
		exposeErrors: exposeErrors,
		logger:       logger,
	}
}

// List returns the caller's shares for a date, by share id ascending.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	sched, err := h.schedules.GetByOwnerAndDate(auth.UserID(r.Context()), date)
	if err != nil {
		writeInternal(h.logger, w, "load schedule", err, h.exposeErrors)
		return
	}
	if sched == nil {
		writeJSON(w, http.StatusOK, map[string]any{"shares": []model.ScheduleShare{}})
		return
	}

	shares, err := h.shares.ListBySchedule(sched.ID)
	if err != nil {
		writeInternal(h.logger, w, "list shares", err, h.exposeErrors)
		return
	}
	if shares == nil {
		shares = []model.ScheduleShare{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": shares})
}

type upsertShareRequest struct {
	Date    string `json:"date"`
	Email   string `json:"email"`
	CanEdit bool   `json:"canEdit"`
}

// Upsert grants the named user access to the caller's day, creating the
// schedule implicitly when it does not exist yet. The grantee must have
// logged in at least once; placeholder accounts are never created.
// Repeating the call updates canEdit instead of duplicating.
func (h *ShareHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	date, ok := parseDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	grantee, err := h.users.GetByEmail(req.Email)
	if err != nil {
		writeInternal(h.logger, w, "look up grantee", err, h.exposeErrors)
		return
	}
	if grantee == nil {
		writeError(w, http.StatusNotFound, "no account with that email; the user must log in first")
		return
	}

	ownerID := auth.UserID(r.Context())
	if grantee.ID == ownerID {
		writeError(w, http.StatusBadRequest, "cannot share a day with yourself")
		return
	}

	sched, err := h.schedules.EnsureForDate(ownerID, date)
	if err != nil {
		writeInternal(h.logger, w, "ensure schedule", err, h.exposeErrors)
		return
	}

	share, err := h.shares.Upsert(sched.ID, grantee.ID, req.CanEdit)
	if err != nil {
		writeInternal(h.logger, w, "upsert share", err, h.exposeErrors)
		return
	}
	share.SharedWith = &model.UserSummary{ID: grantee.ID, Name: grantee.Name, Email: grantee.Email, AvatarURL: grantee.AvatarURL}
	writeJSON(w, http.StatusOK, map[string]any{"share": share})
}

// Revoke deletes the share row. Revoking a share that does not exist is
// a success; clients may retry freely.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}
	granteeID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil || granteeID <= 0 {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	sched, err := h.schedules.GetByOwnerAndDate(auth.UserID(r.Context()), date)
	if err != nil {
		writeInternal(h.logger, w, "load schedule", err, h.exposeErrors)
		return
	}
	if sched != nil {
		if err := h.shares.Delete(sched.ID, granteeID); err != nil {
			writeInternal(h.logger, w, "delete share", err, h.exposeErrors)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// SharedWithMe is the reverse lookup: every day on the given date that
// someone else has shared with the caller.
func (h *ShareHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r.URL.Query().Get("date"))
	if !ok {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	days, err := h.shares.ListForUserOnDate(auth.UserID(r.Context()), date)
	if err != nil {
		writeInternal(h.logger, w, "list shared days", err, h.exposeErrors)
		return
	}
	if days == nil {
		days = []model.SharedDay{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"shared": days})
}
